package gateway

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"flightshare/internal/usecase/shared"
)

// Sandbox trigger references. A reference with one of these prefixes gets the
// matching canned response so clients can exercise every settlement branch.
const (
	DeclinePrefix     = "decline"
	UnavailablePrefix = "unavailable"
)

// Sandbox is an in-process gateway. It remembers every reference it has
// answered and replays the first answer for repeats.
type Sandbox struct {
	mu      sync.Mutex
	results map[string]shared.ChargeResult
	seq     int
}

func NewSandbox() *Sandbox {
	return &Sandbox{results: make(map[string]shared.ChargeResult)}
}

func (s *Sandbox) Charge(ctx context.Context, req shared.ChargeRequest) (shared.ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return shared.ChargeResult{}, shared.ErrGatewayUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.results[req.ExternalReference]; ok {
		return prev, nil
	}

	switch {
	case strings.HasPrefix(req.ExternalReference, UnavailablePrefix):
		// not remembered: the next attempt should see the same outage
		return shared.ChargeResult{}, shared.ErrGatewayUnavailable
	case strings.HasPrefix(req.ExternalReference, DeclinePrefix):
		res := shared.ChargeResult{DeclineReason: "card_declined"}
		s.results[req.ExternalReference] = res
		return res, nil
	}

	s.seq++
	res := shared.ChargeResult{
		Approved:         true,
		GatewayReference: fmt.Sprintf("sbx_%06d", s.seq),
	}
	s.results[req.ExternalReference] = res
	return res, nil
}

// Charges reports how many distinct references produced a charge decision.
func (s *Sandbox) Charges() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}
