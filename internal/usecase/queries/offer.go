package queries

import (
	"context"
	"time"

	"flightshare/internal/domain/offer"
	"flightshare/internal/infra"
	"flightshare/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrOfferNotFound = errs.NewKind(errs.ErrNotFound, "offer not found")
	ErrInvalidCursor = errs.NewKind(errs.ErrValidation, "invalid cursor")
)

type OfferReadStore interface {
	Get(ctx context.Context, id uuid.UUID) (*offer.Offer, error)
	ListOpen(ctx context.Context, afterCreatedAt *time.Time, afterID uuid.UUID, limit int) ([]*offer.Offer, error)
}

type OfferQueries interface {
	GetByID(ctx context.Context, id uuid.UUID) (*OfferView, error)
	ListOpen(ctx context.Context, after string, limit int) (*OfferPage, error)
}

type offerQueriesImpl struct {
	readStore OfferReadStore
}

func NewOfferQueries(readStore OfferReadStore) OfferQueries {
	return &offerQueriesImpl{readStore: readStore}
}

func (q *offerQueriesImpl) GetByID(ctx context.Context, id uuid.UUID) (*OfferView, error) {
	o, err := q.readStore.Get(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, err
	}
	return NewOfferView(o), nil
}

func (q *offerQueriesImpl) ListOpen(ctx context.Context, after string, limit int) (*OfferPage, error) {
	limit = ValidateLimit(limit)

	var (
		afterAt *time.Time
		afterID uuid.UUID
	)
	if after != "" {
		t, id, err := DecodeAfterCursor(after)
		if err != nil {
			return nil, errs.Wrap(ErrInvalidCursor, err.Error())
		}
		afterAt, afterID = &t, id
	}

	// one extra row tells us whether another page exists
	offers, err := q.readStore.ListOpen(ctx, afterAt, afterID, limit+1)
	if err != nil {
		return nil, err
	}

	page := &OfferPage{Items: make([]*OfferView, 0, min(len(offers), limit))}
	for i, o := range offers {
		if i == limit {
			last := offers[limit-1]
			next := EncodeAfterCursor(last.CreatedAt(), last.ID())
			page.Next = &next
			break
		}
		page.Items = append(page.Items, NewOfferView(o))
	}
	return page, nil
}
