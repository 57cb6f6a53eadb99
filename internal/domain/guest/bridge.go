package guest

import (
	"errors"
	"time"

	"flightshare/internal/domain/principal"

	"github.com/google/uuid"
)

var (
	ErrExpired       = errors.New("guest bridge expired")
	ErrInvalidTTL    = errors.New("guest bridge ttl must be positive")
	ErrOfferMismatch = errors.New("guest bridge bound to a different offer")
)

// Bridge binds a guest ticket to the offer it tried to accept so acceptance
// can resume after the guest authenticates. It is single-use.
type Bridge struct {
	TicketID  uuid.UUID `json:"guest_ticket_id"`
	OfferID   uuid.UUID `json:"offer_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func NewBridge(ticket principal.GuestTicket, offerID uuid.UUID, now time.Time, ttl time.Duration) (Bridge, error) {
	if ttl <= 0 {
		return Bridge{}, ErrInvalidTTL
	}
	expiresAt := now.Add(ttl)
	// a ticket that dies earlier caps the bridge
	if !ticket.ExpiresAt.IsZero() && ticket.ExpiresAt.Before(expiresAt) {
		expiresAt = ticket.ExpiresAt
	}
	return Bridge{
		TicketID:  ticket.TemporaryID,
		OfferID:   offerID,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}, nil
}

func (b Bridge) IsExpired(now time.Time) bool {
	return !now.Before(b.ExpiresAt)
}

func (b Bridge) TTL(now time.Time) time.Duration {
	return b.ExpiresAt.Sub(now)
}
