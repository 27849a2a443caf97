// Package notify delivers notifications and step-up codes to owners.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mobile-money-ledger/internal/core/domain"
	"mobile-money-ledger/internal/core/ports"

	"github.com/rs/zerolog"
)

const (
	notificationsPath = "/notifications"
	codesPath         = "/codes"

	HeaderTimestamp = "X-Timestamp"
	HeaderSignature = "X-Signature"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type codePayload struct {
	Destination string `json:"destination"`
	Code        string `json:"code"`
}

// Gateway posts to an SMS/push gateway. Every request is signed with
// HMAC-SHA256 over METHOD|PATH|TIMESTAMP|BODY.
type Gateway struct {
	baseURL string
	secret  string
	sigSvc  ports.SignatureService
	client  HTTPClient
	timeout time.Duration
	now     func() time.Time
	log     zerolog.Logger
}

// NewGateway creates a gateway client. A nil client uses http.DefaultClient.
func NewGateway(baseURL, secret string, sigSvc ports.SignatureService, client HTTPClient, timeout time.Duration, log zerolog.Logger) *Gateway {
	if client == nil {
		client = http.DefaultClient
	}
	return &Gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		sigSvc:  sigSvc,
		client:  client,
		timeout: timeout,
		now:     time.Now,
		log:     log,
	}
}

// Notify implements ports.Notifier.
func (g *Gateway) Notify(ctx context.Context, n domain.Notification) error {
	return g.post(ctx, notificationsPath, n)
}

// DeliverCode implements ports.CodeDeliverer.
func (g *Gateway) DeliverCode(ctx context.Context, destination, code string) error {
	return g.post(ctx, codesPath, codePayload{Destination: destination, Code: code})
}

func (g *Gateway) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: marshal payload: %w", err)
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	ts := g.now().Unix()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(HeaderSignature, g.sigSvc.Sign(g.secret, g.sigSvc.BuildCanonicalString(http.MethodPost, path, ts, string(body))))

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: deliver: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: gateway returned %d", resp.StatusCode)
	}
	g.log.Debug().Str("path", path).Int("status", resp.StatusCode).Msg("notify: delivered")
	return nil
}
