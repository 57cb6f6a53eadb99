//go:build unit

package principal_test

import (
	"testing"
	"time"

	"flightshare/internal/domain/principal"
	"flightshare/internal/domain/user"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNarrowing(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	authed := principal.Authenticated{ID: uuid.New(), Role: user.RoleMember, Source: principal.SourceBearer}
	ticket := principal.NewGuestTicket(now, 30*time.Minute)

	a, ok := principal.AsAuthenticated(authed)
	assert.True(t, ok)
	assert.Equal(t, authed.ID, a.ID)

	a, ok = principal.AsAuthenticated(&authed)
	assert.True(t, ok)
	assert.Equal(t, authed.ID, a.ID)

	_, ok = principal.AsAuthenticated(ticket)
	assert.False(t, ok, "a guest is never authenticated")
	_, ok = principal.AsAuthenticated(nil)
	assert.False(t, ok)
	_, ok = principal.AsAuthenticated((*principal.Authenticated)(nil))
	assert.False(t, ok)

	g, ok := principal.AsGuest(ticket)
	assert.True(t, ok)
	assert.Equal(t, ticket.TemporaryID, g.SubjectID())
	_, ok = principal.AsGuest(authed)
	assert.False(t, ok)
}

func TestGuestTicket(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	ticket := principal.NewGuestTicket(now, 30*time.Minute)

	assert.Equal(t, principal.KindGuest, ticket.Kind())
	assert.NotEqual(t, uuid.Nil, ticket.TemporaryID)
	assert.False(t, ticket.IsExpired(now.Add(29*time.Minute)))
	assert.True(t, ticket.IsExpired(now.Add(30*time.Minute)))

	offerID := uuid.New()
	bound := ticket.BindTo(offerID)
	assert.Equal(t, offerID, *bound.BoundOfferID)
	assert.Nil(t, ticket.BoundOfferID, "BindTo returns a copy")
}
