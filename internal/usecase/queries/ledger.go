package queries

import (
	"context"

	"flightshare/internal/domain/ledger"
	"flightshare/internal/domain/principal"
	"flightshare/internal/domain/user"
	"flightshare/internal/infra"
	"flightshare/internal/pkg/errs"

	"github.com/google/uuid"
)

var ErrLedgerAccess = errs.NewKind(errs.ErrForbidden, "ledger access denied")

type LedgerReadStore interface {
	ListByOffer(ctx context.Context, offerID uuid.UUID) ([]*ledger.Entry, error)
}

type LedgerQueries interface {
	ListByOffer(ctx context.Context, offerID uuid.UUID, viewer principal.Authenticated) ([]*LedgerEntryView, error)
}

type ledgerQueriesImpl struct {
	offers  OfferReadStore
	entries LedgerReadStore
}

func NewLedgerQueries(offers OfferReadStore, entries LedgerReadStore) LedgerQueries {
	return &ledgerQueriesImpl{offers: offers, entries: entries}
}

// ListByOffer shows an offer's settlement history to its two parties and to
// administrators.
func (q *ledgerQueriesImpl) ListByOffer(ctx context.Context, offerID uuid.UUID, viewer principal.Authenticated) ([]*LedgerEntryView, error) {
	o, err := q.offers.Get(ctx, offerID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, err
	}
	if !o.IsOwnedBy(viewer.ID) && !o.IsAcceptedBy(viewer.ID) && !viewer.Role.AtLeast(user.RoleAdmin) {
		return nil, ErrLedgerAccess
	}

	entries, err := q.entries.ListByOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}

	views := make([]*LedgerEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, NewLedgerEntryView(e))
	}
	return views, nil
}
