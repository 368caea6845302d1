// Package light switches table lights through an external bridge.
package light

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Controller switches a single table light.
type Controller interface {
	SetLight(ctx context.Context, tableID int64, on bool) error
}

// HTTPController talks to a light bridge over HTTP:
// POST {base}/tables/{id}/light with body {"on": bool}.
type HTTPController struct {
	baseURL string
	client  *http.Client
}

// NewHTTPController creates a bridge client. timeout caps each request on
// top of any context deadline.
func NewHTTPController(baseURL string, timeout time.Duration) *HTTPController {
	return &HTTPController{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Transport: &http.Transport{},
			Timeout:   timeout,
		},
	}
}

type setLightRequest struct {
	On bool `json:"on"`
}

// SetLight sends one switch request and reports any non-2xx response.
func (c *HTTPController) SetLight(ctx context.Context, tableID int64, on bool) error {
	jsonBody, err := json.Marshal(setLightRequest{On: on})
	if err != nil {
		return fmt.Errorf("failed to marshal light request: %w", err)
	}

	url := fmt.Sprintf("%s/tables/%d/light", c.baseURL, tableID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("light bridge returned status %d", resp.StatusCode)
	}
	return nil
}

// NopController accepts every request. It is used when no bridge is configured.
type NopController struct{}

func (NopController) SetLight(context.Context, int64, bool) error { return nil }
