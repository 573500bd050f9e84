// Package render turns a tunnel credential and hostname into the config
// document consumed by the tunnel-runner process.
package render

import (
	"bytes"
	"text/template"
)

// configTemplate is the runner config document. Values are interpolated
// verbatim; the token is opaque and is not escaped or validated.
var configTemplate = template.Must(template.New("runner").Parse(`hostname: {{ .Hostname }}
additional-hostnames: []
token: |
  {{ .Token }}
no-autoupdate: true
loglevel: {{ .LogLevel }}
run-parameters:
  - --edge-ip-version=auto
  - --protocol=auto
  - --grace-period=30s
`))

type templateData struct {
	Hostname string
	Token    string
	LogLevel string
}

// Renderer produces runner config documents for one fixed domain and
// log level.
type Renderer struct {
	domain   string
	logLevel string
}

// New creates a Renderer. logLevel defaults to "info" when empty.
func New(domain, logLevel string) *Renderer {
	if logLevel == "" {
		logLevel = "info"
	}
	return &Renderer{domain: domain, logLevel: logLevel}
}

// Render produces the config document for a (token, hostname) pair.
// It is deterministic: identical inputs yield byte-identical output.
func (r *Renderer) Render(token, hostname string) []byte {
	var buf bytes.Buffer
	// The template only substitutes plain string fields, so execution
	// cannot fail.
	_ = configTemplate.Execute(&buf, templateData{
		Hostname: hostname,
		Token:    token,
		LogLevel: r.logLevel,
	})
	return buf.Bytes()
}

// PredictedHostname returns the hostname a subdomain will be bound to.
// The binding is deterministic from subdomain and domain, so this matches
// the confirmed binding byte for byte.
func (r *Renderer) PredictedHostname(subdomain string) string {
	return subdomain + "." + r.domain
}
