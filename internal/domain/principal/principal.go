// Package principal models who is driving a request: an authenticated user
// or an anonymous, time-boxed guest.
package principal

import (
	"time"

	"flightshare/internal/domain/user"

	"github.com/google/uuid"
)

type Kind string

const (
	KindAuthenticated Kind = "authenticated"
	KindGuest         Kind = "guest"
)

// Principal is either Authenticated or GuestTicket.
type Principal interface {
	Kind() Kind
	// SubjectID is the user id or the temporary guest id, for logging.
	SubjectID() uuid.UUID
	isPrincipal()
}

// Source records which resolution strategy produced an Authenticated principal.
type Source string

const (
	SourceSession Source = "session"
	SourceBearer  Source = "bearer"
	SourceHint    Source = "identity_hint"
)

type Authenticated struct {
	ID     uuid.UUID
	Email  string
	Role   user.Role
	Source Source
}

func (a Authenticated) Kind() Kind           { return KindAuthenticated }
func (a Authenticated) SubjectID() uuid.UUID { return a.ID }
func (Authenticated) isPrincipal()           {}

// GuestTicket is never accepted where an authenticated identity is required.
type GuestTicket struct {
	TemporaryID  uuid.UUID
	ExpiresAt    time.Time
	BoundOfferID *uuid.UUID
}

func NewGuestTicket(now time.Time, ttl time.Duration) GuestTicket {
	return GuestTicket{
		TemporaryID: uuid.New(),
		ExpiresAt:   now.Add(ttl),
	}
}

func (g GuestTicket) Kind() Kind           { return KindGuest }
func (g GuestTicket) SubjectID() uuid.UUID { return g.TemporaryID }
func (GuestTicket) isPrincipal()           {}

func (g GuestTicket) BindTo(offerID uuid.UUID) GuestTicket {
	g.BoundOfferID = &offerID
	return g
}

func (g GuestTicket) IsExpired(now time.Time) bool {
	return !now.Before(g.ExpiresAt)
}

// AsAuthenticated narrows p, reporting false for guests and nil.
func AsAuthenticated(p Principal) (Authenticated, bool) {
	switch v := p.(type) {
	case Authenticated:
		return v, true
	case *Authenticated:
		if v != nil {
			return *v, true
		}
	}
	return Authenticated{}, false
}

func AsGuest(p Principal) (GuestTicket, bool) {
	switch v := p.(type) {
	case GuestTicket:
		return v, true
	case *GuestTicket:
		if v != nil {
			return *v, true
		}
	}
	return GuestTicket{}, false
}
