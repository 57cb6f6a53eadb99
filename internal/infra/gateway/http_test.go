//go:build unit

package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"flightshare/internal/infra/gateway"
	"flightshare/internal/pkg/config"
	"flightshare/internal/pkg/errs"
	"flightshare/internal/usecase/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHTTPGateway(t *testing.T, handler http.HandlerFunc) *gateway.HTTPGateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	g, err := gateway.NewHTTPGateway(config.GatewayConfig{
		Mode:    "http",
		BaseURL: srv.URL + "/",
		APIKey:  "sk_test",
		Timeout: time.Second,
	})
	require.NoError(t, err)
	return g
}

func respond(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestHTTPGatewayRequest(t *testing.T) {
	var (
		gotPath, gotKey, gotAuth string
		gotBody                  map[string]any
	)
	g := newHTTPGateway(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		respond(http.StatusOK, `{"id":"ch_1","status":"succeeded"}`)(w, r)
	})

	res, err := g.Charge(context.Background(), charge("r1"))
	require.NoError(t, err)

	assert.True(t, res.Approved)
	assert.Equal(t, "ch_1", res.GatewayReference)
	assert.Equal(t, "/charges", gotPath)
	assert.Equal(t, "r1", gotKey)
	assert.Equal(t, "Bearer sk_test", gotAuth)
	assert.EqualValues(t, 12500, gotBody["amount"])
	assert.EqualValues(t, 625, gotBody["fee"])
	assert.Equal(t, "card", gotBody["payment_method"])
	assert.Equal(t, "r1", gotBody["reference"])
}

func TestHTTPGatewayResponses(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantErr     bool
		wantDecline string
	}{
		{name: "2xxで拒否ステータス", status: http.StatusOK, body: `{"id":"ch_2","status":"declined","reason":"insufficient_funds"}`, wantDecline: "insufficient_funds"},
		{name: "402は拒否", status: http.StatusPaymentRequired, body: `{"reason":"card_declined"}`, wantDecline: "card_declined"},
		{name: "422で理由なし", status: http.StatusUnprocessableEntity, body: `{}`, wantDecline: "declined"},
		{name: "5xxは不通扱い", status: http.StatusBadGateway, body: `upstream down`, wantErr: true},
		{name: "承認なのに参照なし", status: http.StatusOK, body: `{"status":"succeeded"}`, wantErr: true},
		{name: "壊れたJSON", status: http.StatusOK, body: `{"id":`, wantErr: true},
		{name: "想定外の4xx", status: http.StatusConflict, body: `{}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newHTTPGateway(t, respond(tt.status, tt.body))

			res, err := g.Charge(context.Background(), charge("r1"))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errs.Is(err, shared.ErrGatewayUnavailable))
				// carries the stack of where the failure was raised
				assert.Contains(t, strings.Join(errs.ExtractStackLines(err, 0), "\n"), "gateway/http.go")
				return
			}
			require.NoError(t, err)
			assert.False(t, res.Approved)
			assert.Equal(t, tt.wantDecline, res.DeclineReason)
		})
	}
}

func TestHTTPGatewayTimeout(t *testing.T) {
	release := make(chan struct{})
	g := newHTTPGateway(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := g.Charge(ctx, charge("r1"))
	require.Error(t, err)
	assert.True(t, errs.Is(err, shared.ErrGatewayUnavailable))
}

func TestNewHTTPGatewayRequiresURL(t *testing.T) {
	_, err := gateway.NewHTTPGateway(config.GatewayConfig{Mode: "http"})
	assert.Error(t, err)
}
