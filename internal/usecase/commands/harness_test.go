//go:build unit

package commands_test

import (
	"context"
	"testing"
	"time"

	"flightshare/internal/domain/offer"
	"flightshare/internal/domain/principal"
	"flightshare/internal/domain/user"
	"flightshare/internal/pkg/clock"
	"flightshare/internal/pkg/jwt"
	"flightshare/internal/pkg/telemetry"
	"flightshare/internal/usecase/commands"
	"flightshare/tests/common/builder"
	"flightshare/tests/common/fakes"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

const (
	continuationTTL   = 30 * time.Minute
	pendingRetryAfter = 30 * time.Second
)

var start = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

// harness wires the lifecycle commands over in-memory stores.
type harness struct {
	clk     *clock.MockClock
	tokens  *jwt.Service
	offers  *fakes.OfferStore
	ledger  *fakes.LedgerStore
	bridges *fakes.BridgeStore
	gateway *fakes.Gateway
	metrics *sdkmetric.ManualReader

	bridge     *commands.GuestBridge
	reconciler *commands.Reconciler
	accept     commands.AcceptanceCommands
	settle     commands.SettlementCommands
	admin      commands.AdminCommands
	offerCmds  commands.OfferCommands
}

func newHarness(t *testing.T, seed ...*offer.Offer) *harness {
	t.Helper()

	h := &harness{
		clk:     clock.NewMockClock(start),
		offers:  fakes.NewOfferStore(seed...),
		ledger:  fakes.NewLedgerStore(),
		gateway: fakes.NewGateway(),
	}
	h.tokens = jwt.NewService("test-secret", 15*time.Minute, time.Hour, jwt.WithNow(h.clk.Now))
	h.bridges = fakes.NewBridgeStore(h.clk.Now)

	fees, err := offer.NewFeePolicy(decimal.RequireFromString("0.05"))
	require.NoError(t, err)

	h.metrics = sdkmetric.NewManualReader()
	instruments, err := telemetry.NewInstrumentsWith(sdkmetric.NewMeterProvider(sdkmetric.WithReader(h.metrics)))
	require.NoError(t, err)

	h.bridge = commands.NewGuestBridge(h.bridges, h.tokens, h.clk, continuationTTL, "https://app.example.com/login")
	h.reconciler = commands.NewReconciler(h.offers, h.ledger, h.clk, instruments)
	h.accept = commands.NewAcceptanceCommands(h.offers, h.bridge, h.reconciler, h.clk, instruments)
	h.settle = commands.NewSettlementCommands(h.offers, h.ledger, h.gateway, h.reconciler, commands.SettlementPolicy{
		Fees:              fees,
		PendingRetryAfter: pendingRetryAfter,
		GatewayTimeout:    2 * time.Second,
	}, h.clk, instruments)
	h.admin = commands.NewAdminCommands(h.offers, h.ledger, h.reconciler, h.clk)
	h.offerCmds = commands.NewOfferCommands(h.offers, h.clk)
	return h
}

// counted returns the totals recorded so far on counter, keyed by its outcome attribute.
func (h *harness) counted(t *testing.T, counter string) map[string]int64 {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, h.metrics.Collect(context.Background(), &rm))

	got := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != counter {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				outcome, _ := dp.Attributes.Value(attribute.Key("outcome"))
				got[outcome.AsString()] += dp.Value
			}
		}
	}
	return got
}

func newMember() principal.Authenticated {
	return builder.NewUserBuilder().WithID(uuid.New()).BuildPrincipal()
}

func newAdmin() principal.Authenticated {
	return builder.NewUserBuilder().WithID(uuid.New()).WithRole(string(user.RoleAdmin)).BuildPrincipal()
}

func newGuest() principal.GuestTicket {
	return principal.NewGuestTicket(start, continuationTTL)
}
