//go:build unit || e2e

package builder

import (
	"encoding/json"
	"time"

	"flightshare/internal/domain/offer"
	reqdto "flightshare/internal/handler/dto/request"
	"flightshare/internal/usecase/queries"

	"github.com/google/uuid"
)

var DefaultItinerary = json.RawMessage(`{"from":"HND","to":"SFO","date":"2026-11-02"}`)

type OfferBuilder struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Amount      int64
	Currency    string
	Itinerary   json.RawMessage
	Status      offer.Status
	AcceptorID  *uuid.UUID
	AcceptedAt  *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
}

func NewOfferBuilder() *OfferBuilder {
	return &OfferBuilder{
		ID:        uuid.New(),
		OwnerID:   uuid.New(),
		Amount:    12500,
		Currency:  "USD",
		Itinerary: DefaultItinerary,
		Status:    offer.StatusOpen,
		CreatedAt: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (b *OfferBuilder) With(mutate func(*OfferBuilder)) *OfferBuilder {
	mutate(b)
	return b
}

func (b *OfferBuilder) WithOwner(ownerID uuid.UUID) *OfferBuilder {
	b.OwnerID = ownerID
	return b
}

func (b *OfferBuilder) WithPrice(amount int64, currency string) *OfferBuilder {
	b.Amount = amount
	b.Currency = currency
	return b
}

func (b *OfferBuilder) WithCreatedAt(at time.Time) *OfferBuilder {
	b.CreatedAt = at
	return b
}

func (b *OfferBuilder) AcceptedBy(acceptorID uuid.UUID) *OfferBuilder {
	at := b.CreatedAt.Add(time.Minute)
	b.Status = offer.StatusAccepted
	b.AcceptorID = &acceptorID
	b.AcceptedAt = &at
	return b
}

func (b *OfferBuilder) Completed(acceptorID uuid.UUID) *OfferBuilder {
	b.AcceptedBy(acceptorID)
	at := b.CreatedAt.Add(2 * time.Minute)
	b.Status = offer.StatusCompleted
	b.CompletedAt = &at
	return b
}

func (b *OfferBuilder) Cancelled() *OfferBuilder {
	b.Status = offer.StatusCancelled
	b.AcceptorID = nil
	b.AcceptedAt = nil
	b.CompletedAt = nil
	return b
}

func (b *OfferBuilder) Build() *offer.Offer {
	return offer.ReconstructOffer(
		b.ID, b.OwnerID,
		offer.ReconstructMoney(b.Amount, b.Currency),
		b.Itinerary,
		b.Status,
		b.AcceptorID, b.AcceptedAt, b.CompletedAt,
		b.CreatedAt, b.CreatedAt,
	)
}

func (b *OfferBuilder) BuildView() *queries.OfferView {
	return queries.NewOfferView(b.Build())
}

func (b *OfferBuilder) BuildCreateDTO() reqdto.CreateOfferRequest {
	return reqdto.CreateOfferRequest{
		RequestedShareAmount: b.Amount,
		Currency:             b.Currency,
		Itinerary:            b.Itinerary,
	}
}
