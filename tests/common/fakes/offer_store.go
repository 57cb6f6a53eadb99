//go:build unit

// Package fakes holds in-memory stores that honour the same conditional-write
// contracts as the Postgres and Redis implementations.
package fakes

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"flightshare/internal/domain/offer"
	"flightshare/internal/infra"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type OfferStore struct {
	mu     sync.Mutex
	offers map[uuid.UUID]*offer.Offer

	// BeforeUpdate runs ahead of every conditional update, outside the lock,
	// so tests can interleave a competing write.
	BeforeUpdate func(id uuid.UUID, t offer.Transition)
	// UpdateErr, when set, is returned by the next conditional update instead
	// of applying it.
	UpdateErr error

	updates int
}

func NewOfferStore(seed ...*offer.Offer) *OfferStore {
	s := &OfferStore{offers: make(map[uuid.UUID]*offer.Offer)}
	for _, o := range seed {
		s.offers[o.ID()] = o
	}
	return s
}

func (s *OfferStore) Put(o *offer.Offer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offers[o.ID()] = o
}

func (s *OfferStore) Insert(_ context.Context, o *offer.Offer) (*offer.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.offers[o.ID()]; ok {
		return nil, infra.WrapRepoErr("failed to insert offer",
			&pgconn.PgError{Code: "23505", ConstraintName: "offers_pkey"})
	}
	s.offers[o.ID()] = o
	return o, nil
}

func (s *OfferStore) Get(_ context.Context, id uuid.UUID) (*offer.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.offers[id]
	if !ok {
		return nil, infra.WrapRepoErr("offer not found", nil, infra.KindNotFound)
	}
	return o, nil
}

// ConditionalUpdate mirrors the UPDATE ... WHERE status = $from statement.
func (s *OfferStore) ConditionalUpdate(_ context.Context, id uuid.UUID, t offer.Transition) (int64, error) {
	if hook := s.BeforeUpdate; hook != nil {
		hook(id, t)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.UpdateErr; err != nil {
		s.UpdateErr = nil
		return 0, err
	}
	if err := t.Validate(); err != nil {
		return 0, infra.WrapRepoErr("rejected offer transition", err, infra.KindConstraintViolated)
	}

	current, ok := s.offers[id]
	if !ok || current.Status() != t.From {
		return 0, nil
	}
	next, err := current.Apply(t)
	if err != nil {
		if errors.Is(err, offer.ErrSelfAcceptance) {
			return 0, infra.WrapRepoErr("failed to update offer status",
				&pgconn.PgError{Code: "23514", ConstraintName: "offers_acceptor_not_owner"})
		}
		return 0, infra.WrapRepoErr("failed to update offer status", err, infra.KindConstraintViolated)
	}
	s.offers[id] = next
	s.updates++
	return 1, nil
}

func (s *OfferStore) ListOpen(_ context.Context, afterCreatedAt *time.Time, afterID uuid.UUID, limit int) ([]*offer.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var open []*offer.Offer
	for _, o := range s.offers {
		if o.Status() != offer.StatusOpen {
			continue
		}
		if afterCreatedAt != nil && !after(o, *afterCreatedAt, afterID) {
			continue
		}
		open = append(open, o)
	}
	sort.Slice(open, func(i, j int) bool {
		if !open[i].CreatedAt().Equal(open[j].CreatedAt()) {
			return open[i].CreatedAt().Before(open[j].CreatedAt())
		}
		a, b := open[i].ID(), open[j].ID()
		return bytes.Compare(a[:], b[:]) < 0
	})
	if len(open) > limit {
		open = open[:limit]
	}
	return open, nil
}

// Updates counts conditional updates that touched a row.
func (s *OfferStore) Updates() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates
}

func after(o *offer.Offer, at time.Time, id uuid.UUID) bool {
	if o.CreatedAt().Equal(at) {
		oid := o.ID()
		return bytes.Compare(oid[:], id[:]) > 0
	}
	return o.CreatedAt().After(at)
}
