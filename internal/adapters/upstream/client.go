package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"collections-console/internal/core/domain"
	"collections-console/internal/obs"
)

// Client talks to the collections REST API under <baseURL>/api
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// envelope is the {success, message, data} wrapper every JSON response uses
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

// NewClient creates a new upstream client
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/") + "/api",
		httpClient: &http.Client{Timeout: timeout},
	}
}

// call is one request to the API. endpoint is a stable label for metrics.
type call struct {
	endpoint string
	method   string
	path     string
	token    string
	query    url.Values
	body     interface{}
}

func (c *Client) send(ctx context.Context, rc call) (*http.Response, error) {
	target := c.baseURL + rc.path
	if len(rc.query) > 0 {
		target += "?" + rc.query.Encode()
	}

	var body io.Reader
	if rc.body != nil {
		payload, err := json.Marshal(rc.body)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", rc.endpoint, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, rc.method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if rc.token != "" {
		req.Header.Set("Authorization", "Bearer "+rc.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		obs.ObserveUpstream(rc.endpoint, "unreachable", time.Since(start))
		return nil, fmt.Errorf("%w: %v", domain.ErrUnreachable, err)
	}
	obs.ObserveUpstream(rc.endpoint, outcome(resp.StatusCode), time.Since(start))
	return resp, nil
}

func outcome(status int) string {
	switch {
	case status == http.StatusUnauthorized:
		return "unauthenticated"
	case status >= 500:
		return "server_error"
	case status >= 400:
		return "client_error"
	}
	return "ok"
}

// do sends a JSON request and decodes the envelope's data into out (if non-nil)
func (c *Client) do(ctx context.Context, rc call, out interface{}) error {
	resp, err := c.send(ctx, rc)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading %s response: %v", domain.ErrUnreachable, rc.endpoint, err)
	}
	if err := checkStatus(resp.StatusCode, raw); err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode %s response: %w", rc.endpoint, err)
	}
	if !env.Success {
		return &domain.APIError{StatusCode: resp.StatusCode, Message: env.message()}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", rc.endpoint, err)
	}
	return nil
}

// download fetches a binary export
func (c *Client) download(ctx context.Context, rc call, fallbackName string) (*domain.Export, error) {
	resp, err := c.send(ctx, rc)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s export: %v", domain.ErrUnreachable, rc.endpoint, err)
	}
	if err := checkStatus(resp.StatusCode, raw); err != nil {
		return nil, err
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		// a JSON body here is an envelope reporting a failure
		var env envelope
		if json.Unmarshal(raw, &env) == nil && !env.Success {
			return nil, &domain.APIError{StatusCode: resp.StatusCode, Message: env.message()}
		}
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	return &domain.Export{
		Filename:    FilenameFrom(resp.Header.Get("Content-Disposition"), fallbackName),
		ContentType: contentType,
		Data:        raw,
	}, nil
}

// checkStatus maps non-2xx statuses onto the console's error taxonomy
func checkStatus(status int, raw []byte) error {
	if status < 300 {
		return nil
	}
	if status == http.StatusUnauthorized {
		return domain.ErrUnauthenticated
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err == nil && env.message() != "" {
		return &domain.APIError{StatusCode: status, Message: env.message()}
	}

	switch status {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: status %d", domain.ErrUnreachable, status)
	}
	return &domain.APIError{StatusCode: status, Message: http.StatusText(status)}
}

func (e envelope) message() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// FilenameFrom extracts the suggested filename from a Content-Disposition header
func FilenameFrom(disposition, fallback string) string {
	if disposition == "" {
		return fallback
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return fallback
	}
	if name := params["filename"]; name != "" {
		return name
	}
	return fallback
}
