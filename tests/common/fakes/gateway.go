//go:build unit

package fakes

import (
	"context"
	"sync"

	"flightshare/internal/usecase/shared"
)

// Gateway approves everything unless told otherwise and counts calls per
// reference. Decisions are remembered per reference like a real provider's
// idempotency layer; outages are not.
type Gateway struct {
	mu        sync.Mutex
	decisions map[string]shared.ChargeResult
	calls     map[string]int
	declines  map[string]string
	down      bool

	// OnCharge runs before a decision is made, outside the lock.
	OnCharge func(req shared.ChargeRequest)
}

func NewGateway() *Gateway {
	return &Gateway{
		decisions: make(map[string]shared.ChargeResult),
		calls:     make(map[string]int),
		declines:  make(map[string]string),
	}
}

func (g *Gateway) DeclineReference(ref, reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.declines[ref] = reason
}

func (g *Gateway) SetUnavailable(down bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.down = down
}

func (g *Gateway) Charge(ctx context.Context, req shared.ChargeRequest) (shared.ChargeResult, error) {
	if hook := g.OnCharge; hook != nil {
		hook(req)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.calls[req.ExternalReference]++
	if g.down || ctx.Err() != nil {
		return shared.ChargeResult{}, shared.ErrGatewayUnavailable
	}
	if prev, ok := g.decisions[req.ExternalReference]; ok {
		return prev, nil
	}

	res := shared.ChargeResult{Approved: true, GatewayReference: "gw_" + req.ExternalReference}
	if reason, ok := g.declines[req.ExternalReference]; ok {
		res = shared.ChargeResult{DeclineReason: reason}
	}
	g.decisions[req.ExternalReference] = res
	return res, nil
}

// Calls reports how many times ref reached the gateway.
func (g *Gateway) Calls(ref string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[ref]
}

// Charges counts references with a recorded approval.
func (g *Gateway) Charges() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, d := range g.decisions {
		if d.Approved {
			n++
		}
	}
	return n
}
