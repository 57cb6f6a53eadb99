package queries

import (
	"encoding/json"
	"time"

	"flightshare/internal/domain/ledger"
	"flightshare/internal/domain/offer"
	"flightshare/internal/domain/user"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type MoneyView struct {
	// Minor is the amount in minor units; Major is the same value as a decimal.
	Minor    int64           `json:"minor"`
	Major    decimal.Decimal `json:"major"`
	Currency string          `json:"currency"`
}

func newMoneyView(m offer.Money) MoneyView {
	return MoneyView{Minor: m.Amount(), Major: m.Decimal(), Currency: m.Currency()}
}

type OfferView struct {
	ID          uuid.UUID       `json:"id"`
	OwnerID     uuid.UUID       `json:"ownerId"`
	Price       MoneyView       `json:"price"`
	Itinerary   json.RawMessage `json:"itinerary"`
	Status      string          `json:"status"`
	AcceptorID  *uuid.UUID      `json:"acceptorId,omitempty"`
	AcceptedAt  *time.Time      `json:"acceptedAt,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func NewOfferView(o *offer.Offer) *OfferView {
	return &OfferView{
		ID:          o.ID(),
		OwnerID:     o.OwnerID(),
		Price:       newMoneyView(o.Price()),
		Itinerary:   o.Itinerary(),
		Status:      o.Status().String(),
		AcceptorID:  o.AcceptorID(),
		AcceptedAt:  o.AcceptedAt(),
		CompletedAt: o.CompletedAt(),
		CreatedAt:   o.CreatedAt(),
		UpdatedAt:   o.UpdatedAt(),
	}
}

type OfferPage struct {
	Items []*OfferView `json:"items"`
	Next  *string      `json:"next,omitempty"`
}

type LedgerEntryView struct {
	ID                uuid.UUID `json:"id"`
	OfferID           uuid.UUID `json:"offerId"`
	PayerID           uuid.UUID `json:"payerId"`
	RecipientID       uuid.UUID `json:"recipientId"`
	Amount            MoneyView `json:"amount"`
	Fee               MoneyView `json:"fee"`
	PaymentMethod     string    `json:"paymentMethod"`
	Status            string    `json:"status"`
	ExternalReference string    `json:"externalReference"`
	GatewayReference  *string   `json:"gatewayReference,omitempty"`
	FailureReason     *string   `json:"failureReason,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func NewLedgerEntryView(e *ledger.Entry) *LedgerEntryView {
	return &LedgerEntryView{
		ID:                e.ID(),
		OfferID:           e.OfferID(),
		PayerID:           e.PayerID(),
		RecipientID:       e.RecipientID(),
		Amount:            newMoneyView(e.Amount()),
		Fee:               newMoneyView(e.Fee()),
		PaymentMethod:     e.PaymentMethod().String(),
		Status:            e.Status().String(),
		ExternalReference: e.ExternalReference().Value(),
		GatewayReference:  e.GatewayReference(),
		FailureReason:     e.FailureReason(),
		CreatedAt:         e.CreatedAt(),
		UpdatedAt:         e.UpdatedAt(),
	}
}

// AuthorizedUserView is the user as seen by the user themself.
type AuthorizedUserView struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	Role        string     `json:"role"`
	DisplayName string     `json:"displayName"`
	LastLogin   *time.Time `json:"lastLogin,omitempty"`
	IsActive    bool       `json:"isActive"`
}

func NewAuthorizedUserView(u *user.User) *AuthorizedUserView {
	return &AuthorizedUserView{
		ID:          u.ID(),
		Email:       u.Email().Value(),
		Role:        u.Role().String(),
		DisplayName: u.DisplayName(),
		LastLogin:   u.LastLogin(),
		IsActive:    u.IsActive(),
	}
}
