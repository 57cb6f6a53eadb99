package request

import (
	"encoding/json"
	"strings"

	"flightshare/internal/domain/offer"
	"flightshare/internal/pkg/clock"

	"github.com/google/uuid"
)

type CreateOfferRequest struct {
	// RequestedShareAmount is in minor currency units.
	RequestedShareAmount int64           `json:"requestedShareAmount" binding:"required,gt=0"`
	Currency             string          `json:"currency" binding:"required,len=3"`
	Itinerary            json.RawMessage `json:"itinerary,omitempty"`
}

func (r CreateOfferRequest) ToDomain(clk clock.Clock, ownerID uuid.UUID) (*offer.Offer, error) {
	price, err := offer.NewMoney(r.RequestedShareAmount, strings.ToUpper(r.Currency))
	if err != nil {
		return nil, err
	}
	return offer.NewOffer(clk, ownerID, price, r.Itinerary)
}

// AcceptOfferRequest is optional; the continuation may also arrive as a cookie.
type AcceptOfferRequest struct {
	Continuation string `json:"continuation,omitempty"`
}

type SettleOfferRequest struct {
	PaymentMethod     string `json:"paymentMethod" binding:"required,payment_method"`
	ExternalReference string `json:"externalReference" binding:"omitempty,external_ref"`
}

type ListOffersQuery struct {
	Limit int    `form:"limit" binding:"omitempty,min=1,max=200"`
	After string `form:"after"`
}
