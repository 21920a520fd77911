// Package clients talks to the remote services of a run: Google Calendar,
// Drive and Slides through the Google API client libraries, and the chart
// rendering service over JSON.
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/option"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 60 * time.Second

type HTTP struct{ c *http.Client }

// NewHTTP wraps a copy of c. A nil c gets a plain client; a client without
// a timeout gets DefaultTimeout.
func NewHTTP(c *http.Client) *HTTP {
	cp := http.Client{}
	if c != nil {
		cp = *c
	}
	if cp.Timeout == 0 {
		cp.Timeout = DefaultTimeout
	}
	return &HTTP{c: &cp}
}

// serviceOptions points a Google API service at hc and, when set, at
// endpoint instead of the public API.
func serviceOptions(hc *http.Client, endpoint string) []option.ClientOption {
	opts := []option.ClientOption{option.WithHTTPClient(hc)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(strings.TrimRight(endpoint, "/")+"/"))
	}
	return opts
}

// statusError is a non-2xx answer.
type statusError struct {
	svc    string
	status string
	body   string
}

func (e *statusError) Error() string { return fmt.Sprintf("%s %s: %s", e.svc, e.status, e.body) }

func (h *HTTP) do(req *http.Request, svc string) (*http.Response, error) {
	resp, err := h.c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", svc, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &statusError{svc: svc, status: resp.Status, body: string(bytes.TrimSpace(body))}
	}
	return resp, nil
}

func (h *HTTP) postJSON(ctx context.Context, url, svc string, in, out any) error {
	b, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s encode: %w", svc, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := h.do(req, svc)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s decode: %w", svc, err)
	}
	return nil
}
