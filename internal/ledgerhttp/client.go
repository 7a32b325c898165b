// Package ledgerhttp is a JSON-over-HTTP client for authoritative ledger
// services, implementing ledger.Module[float64].
package ledgerhttp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/unkn0wn-root/poscache/ledger"
)

type Client struct {
	baseURL string
	httpc   *http.Client
}

var _ ledger.Module[float64] = (*Client)(nil)

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
	}
}

type valueResponse struct {
	Value float64 `json:"value"`
}

// GetValue fetches the authoritative value via
// GET {base}/value?subject=S&resource=R.
func (c *Client) GetValue(ctx context.Context, subject, resource string) (float64, error) {
	q := url.Values{"subject": {subject}, "resource": {resource}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/value?"+q.Encode(), nil)
	if err != nil {
		return 0, fmt.Errorf("ledger request: %w", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, fmt.Errorf("ledger call: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		// cap the diagnostic read; the body is untrusted
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return 0, fmt.Errorf("ledger returned %d: %s", resp.StatusCode, b)
	}

	var vr valueResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return 0, fmt.Errorf("ledger response decode: %w", err)
	}
	return vr.Value, nil
}
