//go:build unit || e2e

package builder

import (
	"time"

	"flightshare/internal/domain/ledger"
	"flightshare/internal/domain/offer"

	"github.com/google/uuid"
)

type LedgerEntryBuilder struct {
	ID               uuid.UUID
	OfferID          uuid.UUID
	PayerID          uuid.UUID
	RecipientID      uuid.UUID
	Amount           int64
	Fee              int64
	Currency         string
	Method           ledger.PaymentMethod
	Status           ledger.Status
	Reference        string
	GatewayReference *string
	FailureReason    *string
	CreatedAt        time.Time
}

func NewLedgerEntryBuilder() *LedgerEntryBuilder {
	return &LedgerEntryBuilder{
		ID:          uuid.New(),
		OfferID:     uuid.New(),
		PayerID:     uuid.New(),
		RecipientID: uuid.New(),
		Amount:      12500,
		Fee:         625,
		Currency:    "USD",
		Method:      ledger.PaymentMethodCard,
		Status:      ledger.StatusPending,
		Reference:   "stl_" + uuid.NewString(),
		CreatedAt:   time.Date(2026, 10, 1, 9, 5, 0, 0, time.UTC),
	}
}

// ForOffer binds the entry to o with its acceptor as payer.
func (b *LedgerEntryBuilder) ForOffer(o *offer.Offer) *LedgerEntryBuilder {
	b.OfferID = o.ID()
	b.RecipientID = o.OwnerID()
	if id := o.AcceptorID(); id != nil {
		b.PayerID = *id
	}
	b.Amount = o.Price().Amount()
	b.Currency = o.Price().Currency()
	return b
}

func (b *LedgerEntryBuilder) WithReference(ref string) *LedgerEntryBuilder {
	b.Reference = ref
	return b
}

func (b *LedgerEntryBuilder) WithCreatedAt(at time.Time) *LedgerEntryBuilder {
	b.CreatedAt = at
	return b
}

func (b *LedgerEntryBuilder) Completed(gatewayRef string) *LedgerEntryBuilder {
	b.Status = ledger.StatusCompleted
	b.GatewayReference = &gatewayRef
	return b
}

func (b *LedgerEntryBuilder) Failed(reason string) *LedgerEntryBuilder {
	b.Status = ledger.StatusFailed
	b.FailureReason = &reason
	return b
}

func (b *LedgerEntryBuilder) Build() *ledger.Entry {
	ref, err := ledger.NewExternalReference(b.Reference)
	if err != nil {
		panic(err)
	}
	return ledger.ReconstructEntry(
		b.ID, b.OfferID, b.PayerID, b.RecipientID,
		offer.ReconstructMoney(b.Amount, b.Currency),
		offer.ReconstructMoney(b.Fee, b.Currency),
		b.Method, b.Status, ref,
		b.GatewayReference, b.FailureReason,
		b.CreatedAt, b.CreatedAt,
	)
}
