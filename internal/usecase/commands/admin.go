package commands

import (
	"context"
	"log/slog"

	"flightshare/internal/domain/ledger"
	"flightshare/internal/domain/offer"
	"flightshare/internal/domain/principal"
	"flightshare/internal/domain/user"
	"flightshare/internal/infra"
	"flightshare/internal/pkg/clock"
	"flightshare/internal/pkg/errs"
	"flightshare/internal/usecase/shared"

	"github.com/google/uuid"
)

// AdminCommands are manual recovery primitives. Every call needs an
// authenticated admin and is logged with the operator's id.
type AdminCommands interface {
	Reset(ctx context.Context, offerID uuid.UUID, operator principal.Authenticated) (*offer.Offer, error)
	Reconcile(ctx context.Context, offerID uuid.UUID, operator principal.Authenticated) (*ReconcileReport, error)
}

type adminCommandsImpl struct {
	offers     shared.OfferRepository
	ledger     shared.LedgerRepository
	reconciler *Reconciler
	clock      clock.Clock
}

func NewAdminCommands(offers shared.OfferRepository, ledgerRepo shared.LedgerRepository, reconciler *Reconciler, clk clock.Clock) AdminCommands {
	return &adminCommandsImpl{
		offers:     offers,
		ledger:     ledgerRepo,
		reconciler: reconciler,
		clock:      clk,
	}
}

// Reset reopens an accepted offer. The ledger decides: a paid offer is never
// reopened and neither is one with a charge in flight.
func (a *adminCommandsImpl) Reset(ctx context.Context, offerID uuid.UUID, operator principal.Authenticated) (*offer.Offer, error) {
	if !operator.Role.AtLeast(user.RoleAdmin) {
		return nil, ErrInsufficientRole
	}

	o, err := a.offers.Get(ctx, offerID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, errs.Wrap(err, "failed to read offer")
	}
	if o.Status() != offer.StatusAccepted {
		if o.Status() == offer.StatusCompleted {
			return nil, ErrResetSettled
		}
		return nil, ErrOfferNotAccepted
	}

	for _, st := range []ledger.Status{ledger.StatusCompleted, ledger.StatusPending} {
		e, err := a.ledger.FindByOffer(ctx, offerID, st)
		if err != nil {
			return nil, errs.Wrap(err, "failed to read ledger")
		}
		if e == nil {
			continue
		}
		if st == ledger.StatusCompleted {
			return nil, ErrResetSettled
		}
		return nil, ErrResetPending
	}

	n, err := a.offers.ConditionalUpdate(ctx, offerID, offer.ResetTransition(a.clock.Now()))
	if err != nil {
		return nil, errs.Wrap(err, "failed to reset offer")
	}
	if n == 0 {
		return nil, errs.Wrap(ErrAcceptConflict, "offer changed during reset")
	}

	slog.WarnContext(ctx, "offer reset by administrator",
		"offer_id", offerID,
		"operator_id", operator.ID,
		"previous_acceptor_id", o.AcceptorID())

	reset, err := a.offers.Get(ctx, offerID)
	if err != nil {
		return nil, errs.Wrap(err, "failed to read offer")
	}
	return reset, nil
}

func (a *adminCommandsImpl) Reconcile(ctx context.Context, offerID uuid.UUID, operator principal.Authenticated) (*ReconcileReport, error) {
	if !operator.Role.AtLeast(user.RoleAdmin) {
		return nil, ErrInsufficientRole
	}

	slog.InfoContext(ctx, "manual reconciliation requested",
		"offer_id", offerID,
		"operator_id", operator.ID)
	return a.reconciler.Settlement(ctx, offerID)
}
