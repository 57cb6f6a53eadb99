//go:build unit

package fakes

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"flightshare/internal/domain/ledger"
	"flightshare/internal/infra"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// LedgerStore enforces the unique external reference and the partial unique
// indexes (one pending and one completed entry per offer).
type LedgerStore struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*ledger.Entry
	byRef   map[string]uuid.UUID

	// AfterInsert runs once a new entry is stored, outside the lock.
	AfterInsert func(e *ledger.Entry)
}

func NewLedgerStore(seed ...*ledger.Entry) *LedgerStore {
	s := &LedgerStore{
		entries: make(map[uuid.UUID]*ledger.Entry),
		byRef:   make(map[string]uuid.UUID),
	}
	for _, e := range seed {
		s.entries[e.ID()] = e
		s.byRef[e.ExternalReference().Value()] = e.ID()
	}
	return s
}

func (s *LedgerStore) InsertIfAbsent(_ context.Context, e *ledger.Entry) (*ledger.Entry, bool, error) {
	s.mu.Lock()
	if id, ok := s.byRef[e.ExternalReference().Value()]; ok {
		existing := s.entries[id]
		s.mu.Unlock()
		return existing, false, nil
	}
	if s.findLocked(e.OfferID(), ledger.StatusPending) != nil {
		s.mu.Unlock()
		return nil, false, infra.WrapRepoErr("failed to insert ledger entry",
			&pgconn.PgError{Code: "23505", ConstraintName: "ledger_entries_one_pending_per_offer"})
	}
	s.entries[e.ID()] = e
	s.byRef[e.ExternalReference().Value()] = e.ID()
	s.mu.Unlock()

	if hook := s.AfterInsert; hook != nil {
		hook(e)
	}
	return e, true, nil
}

func (s *LedgerStore) UpdateStatus(_ context.Context, entryID uuid.UUID, u ledger.StatusUpdate) (*ledger.Entry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.entries[entryID]
	if !ok {
		return nil, false, infra.WrapRepoErr("ledger entry not found", nil, infra.KindNotFound)
	}
	if current.Status() != ledger.StatusPending {
		return current, false, nil
	}
	if u.To == ledger.StatusCompleted && s.findLocked(current.OfferID(), ledger.StatusCompleted) != nil {
		return nil, false, infra.WrapRepoErr("failed to update ledger entry status",
			&pgconn.PgError{Code: "23505", ConstraintName: "ledger_entries_one_completed_per_offer"})
	}
	next, err := current.Apply(u)
	if err != nil {
		return nil, false, infra.WrapRepoErr("failed to update ledger entry status", err, infra.KindConstraintViolated)
	}
	s.entries[entryID] = next
	return next, true, nil
}

func (s *LedgerStore) FindByOffer(_ context.Context, offerID uuid.UUID, status ledger.Status) (*ledger.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findLocked(offerID, status), nil
}

func (s *LedgerStore) ListByOffer(_ context.Context, offerID uuid.UUID) ([]*ledger.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*ledger.Entry
	for _, e := range s.entries {
		if e.OfferID() == offerID {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out, nil
}

// Entries returns the stored entries for offerID with the given status, or
// all of them when status is empty.
func (s *LedgerStore) Entries(offerID uuid.UUID, status ledger.Status) []*ledger.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*ledger.Entry
	for _, e := range s.entries {
		if e.OfferID() == offerID && (status == "" || e.Status() == status) {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out
}

// newest first, as FindByOffer orders by created_at DESC
func (s *LedgerStore) findLocked(offerID uuid.UUID, status ledger.Status) *ledger.Entry {
	var found *ledger.Entry
	for _, e := range s.entries {
		if e.OfferID() != offerID || e.Status() != status {
			continue
		}
		if found == nil || e.CreatedAt().After(found.CreatedAt()) {
			found = e
		}
	}
	return found
}

func sortEntries(entries []*ledger.Entry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].CreatedAt().Equal(entries[j].CreatedAt()) {
			return entries[i].CreatedAt().Before(entries[j].CreatedAt())
		}
		a, b := entries[i].ID(), entries[j].ID()
		return bytes.Compare(a[:], b[:]) < 0
	})
}
