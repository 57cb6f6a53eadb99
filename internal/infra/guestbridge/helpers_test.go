//go:build unit || e2e

package guestbridge_test

import (
	"testing"
	"time"

	"flightshare/internal/domain/guest"
	"flightshare/internal/domain/principal"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newBridge(t *testing.T, now time.Time, ttl time.Duration) guest.Bridge {
	t.Helper()
	offerID := uuid.New()
	b, err := guest.NewBridge(principal.NewGuestTicket(now, ttl).BindTo(offerID), offerID, now, ttl)
	require.NoError(t, err)
	return b
}
