// Package identity resolves request credentials into a principal through an
// ordered chain of strategies.
package identity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"flightshare/internal/domain/principal"
	"flightshare/internal/pkg/clock"
	"flightshare/internal/pkg/errs"
)

var (
	// ErrNotApplicable means the strategy found no credential of its kind.
	ErrNotApplicable = errors.New("credential not present")

	ErrUnauthenticated = errs.NewKind(errs.ErrUnauthenticated, "no credential resolved to a user")
)

// Operation names what the caller is about to do. Only some operations let an
// unresolved caller through as a guest.
type Operation string

const (
	OpAcceptOffer   Operation = "offer.accept"
	OpSettleOffer   Operation = "offer.settle"
	OpCreateOffer   Operation = "offer.create"
	OpCancelOffer   Operation = "offer.cancel"
	OpViewLedger    Operation = "offer.ledger"
	OpCurrentUser   Operation = "user.me"
	OpAdministrator Operation = "admin"
)

func (o Operation) AllowsGuest() bool {
	return o == OpAcceptOffer
}

// AllowsHint reports whether identity hints may authenticate the operation.
// Manual status overrides demand a session or bearer credential.
func (o Operation) AllowsHint() bool {
	return o != OpAdministrator
}

// Credentials are the raw values read off a request. Any may be empty.
type Credentials struct {
	SessionToken string
	BearerToken  string
	IdentityHint string
}

type Strategy interface {
	Source() principal.Source
	// Resolve returns ErrNotApplicable when its credential is absent.
	Resolve(ctx context.Context, creds Credentials) (principal.Authenticated, error)
}

type Resolver struct {
	strategies []Strategy
	clock      clock.Clock
	guestTTL   time.Duration
}

func NewResolver(clk clock.Clock, guestTTL time.Duration, strategies ...Strategy) *Resolver {
	return &Resolver{
		strategies: strategies,
		clock:      clk,
		guestTTL:   guestTTL,
	}
}

// Resolve tries each strategy in order; the first success wins. A failing
// strategy never stops the chain.
func (r *Resolver) Resolve(ctx context.Context, creds Credentials, op Operation) (principal.Principal, error) {
	for _, s := range r.strategies {
		if s.Source() == principal.SourceHint && !op.AllowsHint() {
			continue
		}

		p, err := s.Resolve(ctx, creds)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, ErrNotApplicable) {
			slog.DebugContext(ctx, "credential rejected",
				"source", s.Source(),
				"operation", op,
				"error", err.Error())
		}
	}

	if op.AllowsGuest() {
		return principal.NewGuestTicket(r.clock.Now(), r.guestTTL), nil
	}
	return nil, ErrUnauthenticated
}
