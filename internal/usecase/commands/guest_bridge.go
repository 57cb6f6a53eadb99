package commands

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"flightshare/internal/domain/guest"
	"flightshare/internal/domain/principal"
	"flightshare/internal/pkg/clock"
	"flightshare/internal/pkg/errs"
	"flightshare/internal/pkg/jwt"
	"flightshare/internal/usecase/shared"

	"github.com/google/uuid"
)

// ContinuationGrants signs and verifies continuation tokens.
type ContinuationGrants interface {
	IssueContinuation(ticketID, offerID uuid.UUID, issuedAt, expiresAt time.Time) (string, error)
	ParseContinuation(grant string) (jwt.ContinuationClaims, error)
}

type Continuation struct {
	TicketID  uuid.UUID
	OfferID   uuid.UUID
	Token     string
	URL       string
	ExpiresAt time.Time
}

// GuestBridge parks a guest's acceptance until the guest authenticates.
type GuestBridge struct {
	store   shared.BridgeStore
	grants  ContinuationGrants
	clock   clock.Clock
	ttl     time.Duration
	baseURL string
}

func NewGuestBridge(store shared.BridgeStore, grants ContinuationGrants, clk clock.Clock, ttl time.Duration, baseURL string) *GuestBridge {
	return &GuestBridge{
		store:   store,
		grants:  grants,
		clock:   clk,
		ttl:     ttl,
		baseURL: baseURL,
	}
}

func (g *GuestBridge) Issue(ctx context.Context, ticket principal.GuestTicket, offerID uuid.UUID) (*Continuation, error) {
	now := g.clock.Now()
	bridge, err := guest.NewBridge(ticket.BindTo(offerID), offerID, now, g.ttl)
	if err != nil {
		return nil, errs.Wrap(err, "failed to build guest bridge")
	}

	token, err := g.grants.IssueContinuation(bridge.TicketID, offerID, now, bridge.ExpiresAt)
	if err != nil {
		return nil, errs.Wrap(err, "failed to sign continuation")
	}

	if err := g.store.Save(ctx, bridge); err != nil {
		return nil, errs.Wrap(err, "failed to save guest bridge")
	}

	return &Continuation{
		TicketID:  bridge.TicketID,
		OfferID:   offerID,
		Token:     token,
		URL:       g.continuationURL(offerID, token),
		ExpiresAt: bridge.ExpiresAt,
	}, nil
}

// Consume verifies the grant and deletes the bridge it points to. The bridge
// is gone after this call whatever the outcome.
func (g *GuestBridge) Consume(ctx context.Context, grant string) (guest.Bridge, error) {
	claims, err := g.grants.ParseContinuation(grant)
	if err != nil && !jwt.IsExpired(err) {
		return guest.Bridge{}, errs.Wrap(ErrContinuationInvalid, err.Error())
	}

	bridge, takeErr := g.store.Take(ctx, claims.TicketID)
	if err != nil {
		// expired grant: still drop whatever is left of the bridge
		if takeErr != nil && !errs.Is(takeErr, shared.ErrBridgeNotFound) {
			slog.WarnContext(ctx, "failed to discard expired guest bridge",
				"ticket_id", claims.TicketID,
				"error", takeErr.Error())
		}
		return guest.Bridge{}, ErrContinuationExpired
	}
	if takeErr != nil {
		if errs.Is(takeErr, shared.ErrBridgeNotFound) {
			return guest.Bridge{}, ErrContinuationExpired
		}
		return guest.Bridge{}, errs.Wrap(takeErr, "failed to consume guest bridge")
	}

	if bridge.IsExpired(g.clock.Now()) {
		return guest.Bridge{}, ErrContinuationExpired
	}
	if bridge.OfferID != claims.OfferID {
		return guest.Bridge{}, ErrContinuationOffer
	}
	return bridge, nil
}

func (g *GuestBridge) continuationURL(offerID uuid.UUID, token string) string {
	u, err := url.Parse(g.baseURL)
	if err != nil || g.baseURL == "" {
		u = &url.URL{Path: "/login"}
	}
	q := u.Query()
	q.Set("offer_id", offerID.String())
	q.Set("continuation", token)
	u.RawQuery = q.Encode()
	return u.String()
}
