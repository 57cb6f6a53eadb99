package commands

import (
	"context"
	"log/slog"

	"flightshare/internal/domain/ledger"
	"flightshare/internal/domain/offer"
	"flightshare/internal/infra"
	"flightshare/internal/pkg/clock"
	"flightshare/internal/pkg/errs"
	"flightshare/internal/pkg/telemetry"
	"flightshare/internal/usecase/shared"

	"github.com/google/uuid"
)

// ReconcileAction says what a reconciliation pass did.
type ReconcileAction string

const (
	ActionNone      ReconcileAction = "none"      // postcondition already held
	ActionRetried   ReconcileAction = "retried"   // the partial write was reapplied
	ActionCompleted ReconcileAction = "completed" // offer advanced to match the ledger
	ActionConflict  ReconcileAction = "conflict"  // nothing safe to do
)

type ReconcileReport struct {
	Offer  *offer.Offer
	Action ReconcileAction
}

// Reconciler runs a single corrective pass after a conditional write missed
// or a store constraint fired. It never loops and never moves an offer to a
// state the ledger or the single-acceptor rule does not support.
type Reconciler struct {
	offers      shared.OfferRepository
	ledger      shared.LedgerRepository
	clock       clock.Clock
	instruments *telemetry.Instruments
}

func NewReconciler(offers shared.OfferRepository, ledgerRepo shared.LedgerRepository, clk clock.Clock, instruments *telemetry.Instruments) *Reconciler {
	return &Reconciler{
		offers:      offers,
		ledger:      ledgerRepo,
		clock:       clk,
		instruments: instruments,
	}
}

// Acceptance tries to establish "offer accepted by acceptorID".
func (r *Reconciler) Acceptance(ctx context.Context, offerID, acceptorID uuid.UUID) (*ReconcileReport, error) {
	current, err := r.get(ctx, offerID)
	if err != nil {
		return nil, err
	}

	if current.Status().HoldsAcceptor() {
		if current.IsAcceptedBy(acceptorID) {
			return r.report(ctx, "acceptance", current, ActionNone), nil
		}
		r.instruments.ReconciliationPass(ctx, "acceptance", string(ActionConflict))
		return &ReconcileReport{Offer: current, Action: ActionConflict}, ErrOfferTaken
	}
	if current.Status() != offer.StatusOpen {
		r.instruments.ReconciliationPass(ctx, "acceptance", string(ActionConflict))
		return &ReconcileReport{Offer: current, Action: ActionConflict}, ErrOfferWithdrawn
	}

	n, err := r.offers.ConditionalUpdate(ctx, offerID, offer.AcceptTransition(acceptorID, r.clock.Now()))
	if err != nil {
		slog.WarnContext(ctx, "acceptance retry rejected by store",
			"offer_id", offerID,
			"acceptor_id", acceptorID,
			"error", err.Error())
		return r.conflict(ctx, "acceptance", current, ErrAcceptConflict)
	}

	after, err := r.get(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if after.IsAcceptedBy(acceptorID) {
		if n == 1 {
			return r.report(ctx, "acceptance", after, ActionRetried), nil
		}
		return r.report(ctx, "acceptance", after, ActionNone), nil
	}
	if after.Status().HoldsAcceptor() {
		r.instruments.ReconciliationPass(ctx, "acceptance", string(ActionConflict))
		return &ReconcileReport{Offer: after, Action: ActionConflict}, ErrOfferTaken
	}
	return r.conflict(ctx, "acceptance", after, ErrAcceptConflict)
}

// Settlement brings the offer in line with the ledger: an accepted offer with
// a completed entry is advanced to completed.
func (r *Reconciler) Settlement(ctx context.Context, offerID uuid.UUID) (*ReconcileReport, error) {
	current, err := r.get(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if current.Status() == offer.StatusCompleted {
		return r.report(ctx, "settlement", current, ActionNone), nil
	}

	paid, err := r.ledger.FindByOffer(ctx, offerID, ledger.StatusCompleted)
	if err != nil {
		return nil, errs.Wrap(err, "failed to read ledger during reconciliation")
	}
	if paid == nil {
		// nothing was paid, so the offer's own status stands
		return r.report(ctx, "settlement", current, ActionNone), nil
	}
	if current.Status() != offer.StatusAccepted || !current.IsAcceptedBy(paid.PayerID()) {
		slog.ErrorContext(ctx, "completed ledger entry does not match offer state",
			"offer_id", offerID,
			"offer_status", current.Status(),
			"entry_id", paid.ID(),
			"payer_id", paid.PayerID())
		return r.conflict(ctx, "settlement", current, ErrSettleConflict)
	}

	n, err := r.offers.ConditionalUpdate(ctx, offerID, offer.CompleteTransition(r.clock.Now()))
	if err != nil && !infra.IsKind(err, infra.KindConstraintViolated) && !infra.IsKind(err, infra.KindConflict) {
		return nil, errs.Wrap(err, "failed to complete offer during reconciliation")
	}

	after, getErr := r.get(ctx, offerID)
	if getErr != nil {
		return nil, getErr
	}
	if after.Status() == offer.StatusCompleted {
		if n == 1 {
			return r.report(ctx, "settlement", after, ActionCompleted), nil
		}
		return r.report(ctx, "settlement", after, ActionNone), nil
	}
	return r.conflict(ctx, "settlement", after, ErrSettleConflict)
}

func (r *Reconciler) get(ctx context.Context, offerID uuid.UUID) (*offer.Offer, error) {
	o, err := r.offers.Get(ctx, offerID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, errs.Wrap(err, "failed to read offer during reconciliation")
	}
	return o, nil
}

func (r *Reconciler) report(ctx context.Context, trigger string, o *offer.Offer, action ReconcileAction) *ReconcileReport {
	r.instruments.ReconciliationPass(ctx, trigger, string(action))
	if action != ActionNone {
		slog.InfoContext(ctx, "reconciliation repaired offer",
			"trigger", trigger,
			"offer_id", o.ID(),
			"action", action,
			"status", o.Status())
	}
	return &ReconcileReport{Offer: o, Action: action}
}

func (r *Reconciler) conflict(ctx context.Context, trigger string, o *offer.Offer, cause error) (*ReconcileReport, error) {
	r.instruments.ReconciliationPass(ctx, trigger, string(ActionConflict))
	slog.WarnContext(ctx, "reconciliation could not restore a consistent state",
		"trigger", trigger,
		"offer_id", o.ID(),
		"status", o.Status())
	return &ReconcileReport{Offer: o, Action: ActionConflict}, cause
}
