//go:build unit

package fakes

import (
	"context"
	"sync"
	"time"

	"flightshare/internal/domain/guest"
	"flightshare/internal/pkg/errs"
	"flightshare/internal/usecase/shared"

	"github.com/google/uuid"
)

// BridgeStore expires bridges against the injected clock the way Redis
// expires keys.
type BridgeStore struct {
	mu      sync.Mutex
	bridges map[uuid.UUID]guest.Bridge
	now     func() time.Time
}

func NewBridgeStore(now func() time.Time) *BridgeStore {
	return &BridgeStore{bridges: make(map[uuid.UUID]guest.Bridge), now: now}
}

func (s *BridgeStore) Save(_ context.Context, b guest.Bridge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.TTL(s.now()) <= 0 {
		return errs.Mark(errs.New("guest bridge already expired"), errs.ErrContinuationExpired)
	}
	if existing, ok := s.bridges[b.TicketID]; ok && !existing.IsExpired(s.now()) {
		return shared.ErrBridgeExists
	}
	s.bridges[b.TicketID] = b
	return nil
}

func (s *BridgeStore) Take(_ context.Context, ticketID uuid.UUID) (guest.Bridge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bridges[ticketID]
	delete(s.bridges, ticketID)
	if !ok || b.IsExpired(s.now()) {
		return guest.Bridge{}, shared.ErrBridgeNotFound
	}
	return b, nil
}

func (s *BridgeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bridges)
}
