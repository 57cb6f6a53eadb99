package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"flightshare/internal/pkg/config"
	"flightshare/internal/pkg/errs"
	"flightshare/internal/usecase/shared"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type chargeBody struct {
	Amount      int64  `json:"amount"`
	Fee         int64  `json:"fee"`
	Currency    string `json:"currency"`
	Method      string `json:"payment_method"`
	Reference   string `json:"reference"`
	Description string `json:"description,omitempty"`
}

type chargeResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// HTTPGateway talks to a remote payment provider. The external reference is
// sent as the Idempotency-Key so the provider collapses retries.
type HTTPGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPGateway(cfg config.GatewayConfig) (*HTTPGateway, error) {
	if cfg.BaseURL == "" {
		return nil, errs.New("gateway base URL is required in http mode")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPGateway{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}, nil
}

func (g *HTTPGateway) Charge(ctx context.Context, req shared.ChargeRequest) (shared.ChargeResult, error) {
	body, err := json.Marshal(chargeBody{
		Amount:      req.Amount,
		Fee:         req.Fee,
		Currency:    req.Currency,
		Method:      req.Method,
		Reference:   req.ExternalReference,
		Description: req.Description,
	})
	if err != nil {
		return shared.ChargeResult{}, errs.Wrap(err, "failed to encode charge request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/charges", bytes.NewReader(body))
	if err != nil {
		return shared.ChargeResult{}, errs.Wrap(err, "failed to build charge request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotency-Key", req.ExternalReference)
	if g.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(httpReq)
	if err != nil {
		slog.Warn("payment gateway request failed",
			"reference", req.ExternalReference,
			"error", err)
		return shared.ChargeResult{}, errs.Mark(errs.Wrap(err, "payment gateway request failed"), shared.ErrGatewayUnavailable)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return shared.ChargeResult{}, errs.Mark(errs.Wrap(err, "failed to read gateway response"), shared.ErrGatewayUnavailable)
	}

	var decoded chargeResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil && resp.StatusCode < 500 {
			return shared.ChargeResult{}, errs.Mark(errs.Wrap(err, "malformed gateway response"), shared.ErrGatewayUnavailable)
		}
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if decoded.Status == "declined" {
			return shared.ChargeResult{GatewayReference: decoded.ID, DeclineReason: reasonOr(decoded.Reason, "declined")}, nil
		}
		if decoded.ID == "" {
			return shared.ChargeResult{}, errs.Mark(errs.New("gateway approved without a reference"), shared.ErrGatewayUnavailable)
		}
		return shared.ChargeResult{Approved: true, GatewayReference: decoded.ID}, nil
	case resp.StatusCode == http.StatusPaymentRequired || resp.StatusCode == http.StatusUnprocessableEntity:
		return shared.ChargeResult{GatewayReference: decoded.ID, DeclineReason: reasonOr(decoded.Reason, "declined")}, nil
	default:
		return shared.ChargeResult{}, errs.Mark(
			errs.Newf("gateway responded with status %d", resp.StatusCode),
			shared.ErrGatewayUnavailable,
		)
	}
}

func reasonOr(reason, fallback string) string {
	if reason == "" {
		return fallback
	}
	return reason
}
