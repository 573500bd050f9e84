package provision

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// genericFailure is reported when the service declines a request without
// an intelligible error message.
const genericFailure = "provisioning service rejected the request"

// HTTPClient implements Client against the provisioning service's JSON API.
type HTTPClient struct {
	baseURL   string
	accountID string
	apiToken  string
	http      *http.Client
}

// NewHTTPClient creates a provisioning client. A zero timeout means remote
// calls block until the service responds or the context is cancelled.
func NewHTTPClient(baseURL, accountID, apiToken string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		accountID: accountID,
		apiToken:  apiToken,
		http:      &http.Client{Timeout: timeout},
	}
}

// envelope is the response wrapper used by every provisioning endpoint.
type envelope struct {
	Success bool            `json:"success"`
	Errors  []apiError      `json:"errors"`
	Result  json.RawMessage `json:"result"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *HTTPClient) AllocateTunnel(ctx context.Context, name string) (*Grant, error) {
	body := map[string]string{"name": name}

	result, err := c.do(ctx, http.MethodPost, c.accountPath("tunnels"), body)
	if err != nil {
		return nil, fmt.Errorf("allocate tunnel: %w", err)
	}

	var grant Grant
	if err := json.Unmarshal(result, &grant); err != nil {
		return nil, fmt.Errorf("allocate tunnel: decoding result: %w", err)
	}
	if grant.ID == "" || grant.Token == "" {
		return nil, fmt.Errorf("allocate tunnel: %s", genericFailure)
	}

	slog.Debug("tunnel allocated", "tunnel_id", grant.ID, "name", name)
	return &grant, nil
}

func (c *HTTPClient) BindHostname(ctx context.Context, tunnelID, subdomain, domain, target string) error {
	body := map[string]string{
		"tunnel_id": tunnelID,
		"hostname":  subdomain + "." + domain,
		"service":   target,
	}

	if _, err := c.do(ctx, http.MethodPost, c.accountPath("dns"), body); err != nil {
		return fmt.Errorf("bind hostname: %w", err)
	}

	slog.Debug("hostname bound", "tunnel_id", tunnelID, "hostname", subdomain+"."+domain)
	return nil
}

func (c *HTTPClient) ReleaseTunnel(ctx context.Context, tunnelID string) error {
	path := c.accountPath("tunnels") + "/" + url.PathEscape(tunnelID)

	if _, err := c.do(ctx, http.MethodDelete, path, nil); err != nil {
		return fmt.Errorf("release tunnel: %w", err)
	}

	slog.Debug("tunnel released", "tunnel_id", tunnelID)
	return nil
}

func (c *HTTPClient) ReleaseHostname(ctx context.Context, subdomain, domain string) error {
	path := c.accountPath("dns") + "/" + url.PathEscape(subdomain+"."+domain)

	if _, err := c.do(ctx, http.MethodDelete, path, nil); err != nil {
		return fmt.Errorf("release hostname: %w", err)
	}

	slog.Debug("hostname released", "hostname", subdomain+"."+domain)
	return nil
}

func (c *HTTPClient) accountPath(resource string) string {
	return "/accounts/" + url.PathEscape(c.accountID) + "/" + resource
}

// do performs one request/response exchange. A service-reported failure
// and a transport failure both come back as plain errors; only the
// message source differs.
func (c *HTTPClient) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("unreadable response (HTTP %d): %w", resp.StatusCode, err)
	}

	if !env.Success {
		return nil, fmt.Errorf("%s", firstErrorMessage(env.Errors))
	}

	return env.Result, nil
}

// firstErrorMessage extracts the first non-empty message from the error
// list, falling back to a generic string when absent or malformed.
func firstErrorMessage(errs []apiError) string {
	for _, e := range errs {
		if e.Message != "" {
			return e.Message
		}
	}
	return genericFailure
}
