package shared

import (
	"context"
	"time"

	"flightshare/internal/domain/guest"
	"flightshare/internal/domain/ledger"
	"flightshare/internal/domain/offer"
	"flightshare/internal/domain/user"
	"flightshare/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrBridgeNotFound     = errs.New("guest bridge not found")
	ErrBridgeExists       = errs.New("guest bridge already exists")
	ErrGatewayUnavailable = errs.New("payment gateway unavailable")
)

// OfferRepository is the offer store. ConditionalUpdate is the only way an
// offer's status changes: it applies t only while the row's status equals
// t.From and reports how many rows it touched (0 or 1).
type OfferRepository interface {
	Insert(ctx context.Context, o *offer.Offer) (*offer.Offer, error)
	Get(ctx context.Context, id uuid.UUID) (*offer.Offer, error)
	ConditionalUpdate(ctx context.Context, id uuid.UUID, t offer.Transition) (int64, error)
}

// LedgerRepository is the settlement ledger. Entries are keyed by their
// external reference; UpdateStatus only moves pending entries and reports
// whether this call was the one that moved it.
type LedgerRepository interface {
	InsertIfAbsent(ctx context.Context, e *ledger.Entry) (entry *ledger.Entry, inserted bool, err error)
	UpdateStatus(ctx context.Context, entryID uuid.UUID, u ledger.StatusUpdate) (entry *ledger.Entry, updated bool, err error)
	// FindByOffer returns the newest entry in the given status, or nil.
	FindByOffer(ctx context.Context, offerID uuid.UUID, status ledger.Status) (*ledger.Entry, error)
}

type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	FindByEmail(ctx context.Context, email string) (*user.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// BridgeStore holds guest continuation state. Take is an atomic
// read-and-delete; a second Take of the same ticket finds nothing.
type BridgeStore interface {
	Save(ctx context.Context, b guest.Bridge) error
	Take(ctx context.Context, ticketID uuid.UUID) (guest.Bridge, error)
}

// PaymentGateway moves funds. Implementations must deduplicate by
// ExternalReference so a retried charge is never applied twice, and must
// return ErrGatewayUnavailable when the outcome is unknown (timeouts,
// transport errors, 5xx).
type PaymentGateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}
