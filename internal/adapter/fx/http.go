package fx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type rateResponse struct {
	Rate decimal.Decimal `json:"rate"`
}

// HTTPRateProvider queries a rate service: GET {base}/rates?from=X&to=Y
// answering {"rate":"135.00"}.
type HTTPRateProvider struct {
	baseURL string
	client  HTTPClient
	timeout time.Duration
}

// NewHTTPRateProvider creates a provider for baseURL. A nil client uses
// http.DefaultClient.
func NewHTTPRateProvider(baseURL string, client HTTPClient, timeout time.Duration) *HTTPRateProvider {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPRateProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		timeout: timeout,
	}
}

// GetRate implements ports.RateProvider. Every failure is returned; the
// caller must never fall back to a rate of one.
func (p *HTTPRateProvider) GetRate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	q := url.Values{}
	q.Set("from", strings.ToUpper(from))
	q.Set("to", strings.ToUpper(to))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/rates?"+q.Encode(), nil)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fx: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fx: request rate: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return decimal.Zero, fmt.Errorf("fx: rate service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out rateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return decimal.Zero, fmt.Errorf("fx: decode rate: %w", err)
	}
	if !out.Rate.IsPositive() {
		return decimal.Zero, fmt.Errorf("fx: non-positive rate %s for %s/%s", out.Rate, from, to)
	}
	return out.Rate, nil
}
