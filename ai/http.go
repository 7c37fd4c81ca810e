package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// HTTPOption configures the HTTP side of a provider.
type HTTPOption func(*endpoint)

type endpoint struct {
	baseURL string
	client  *http.Client
}

// WithBaseURL points a provider at another host, such as an
// OpenAI-compatible gateway or a test server.
func WithBaseURL(u string) HTTPOption {
	return func(e *endpoint) {
		if u != "" {
			e.baseURL = u
		}
	}
}

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(e *endpoint) { e.client = c }
}

func newEndpoint(defaultURL string, opts []HTTPOption) endpoint {
	e := endpoint{baseURL: defaultURL, client: http.DefaultClient}
	for _, o := range opts {
		o(&e)
	}
	return e
}

// postJSON sends body to path and decodes a 2xx response into out.
// Every failure comes back as a *ProviderError.
func (e endpoint) postJSON(ctx context.Context, provider, path string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &ProviderError{Provider: provider, Kind: InvalidResponse, Message: "unencodable request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return &ProviderError{Provider: provider, Kind: Unavailable, Message: "bad endpoint " + e.baseURL, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return transportError(provider, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(provider, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(provider, resp, respBody)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &ProviderError{Provider: provider, Kind: InvalidResponse, Message: "undecodable body", Err: err}
	}
	return nil
}
