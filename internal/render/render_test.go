package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender_EmbedsTokenAndHostname(t *testing.T) {
	t.Parallel()

	r := New("house-iq.cc", "info")

	doc := string(r.Render("secret123", "api-tunnel.house-iq.cc"))

	assert.Contains(t, doc, "hostname: api-tunnel.house-iq.cc")
	assert.Contains(t, doc, "secret123")
	assert.Contains(t, doc, "additional-hostnames: []")
	assert.Contains(t, doc, "no-autoupdate: true")
	assert.Contains(t, doc, "loglevel: info")
	assert.Contains(t, doc, "--edge-ip-version=auto")
}

func TestRender_IsDeterministic(t *testing.T) {
	t.Parallel()

	r := New("house-iq.cc", "debug")

	first := r.Render("tok", "x.house-iq.cc")
	second := r.Render("tok", "x.house-iq.cc")

	assert.Equal(t, first, second, "identical inputs must produce byte-identical output")
}

func TestRender_TokenInterpolatedVerbatim(t *testing.T) {
	t.Parallel()

	r := New("house-iq.cc", "info")

	// Tokens are opaque; characters meaningful to YAML or templates
	// must pass through untouched.
	doc := string(r.Render(`a{{weird}}:tok"en`, "x.house-iq.cc"))

	assert.Contains(t, doc, `a{{weird}}:tok"en`)
}

func TestPredictedHostname_MatchesBoundHostname(t *testing.T) {
	t.Parallel()

	r := New("house-iq.cc", "info")

	predicted := r.PredictedHostname("api-tunnel")
	assert.Equal(t, "api-tunnel.house-iq.cc", predicted)

	// Rendering with the predicted hostname before the binding exists
	// must match rendering with the confirmed hostname afterwards.
	before := r.Render("secret123", predicted)
	after := r.Render("secret123", "api-tunnel.house-iq.cc")
	assert.Equal(t, before, after)
}

func TestNew_EmptyLogLevelDefaultsToInfo(t *testing.T) {
	t.Parallel()

	r := New("house-iq.cc", "")

	assert.Contains(t, string(r.Render("t", "h")), "loglevel: info")
}
