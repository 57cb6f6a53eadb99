package commands

import (
	"context"
	"log/slog"
	"time"

	"flightshare/internal/domain/ledger"
	"flightshare/internal/domain/offer"
	"flightshare/internal/domain/principal"
	"flightshare/internal/infra"
	"flightshare/internal/pkg/clock"
	"flightshare/internal/pkg/errs"
	"flightshare/internal/pkg/telemetry"
	"flightshare/internal/usecase/shared"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Constraint names the ledger store reports on duplicate keys.
const (
	constraintOnePendingPerOffer   = "ledger_entries_one_pending_per_offer"
	constraintOneCompletedPerOffer = "ledger_entries_one_completed_per_offer"
)

type SettleOutcome string

const (
	OutcomeSettled        SettleOutcome = "settled"
	OutcomeAlreadySettled SettleOutcome = "already_settled"
)

type SettleInput struct {
	OfferID           uuid.UUID
	Principal         principal.Principal
	PaymentMethod     string
	ExternalReference string
}

type SettleResult struct {
	Outcome SettleOutcome
	Offer   *offer.Offer
	Entry   *ledger.Entry
	// Replayed is true when the reference had already been processed.
	Replayed bool
}

type SettlementPolicy struct {
	Fees              offer.FeePolicy
	PendingRetryAfter time.Duration
	GatewayTimeout    time.Duration
}

type SettlementCommands interface {
	Settle(ctx context.Context, in SettleInput) (*SettleResult, error)
}

type settlementCommandsImpl struct {
	offers      shared.OfferRepository
	ledger      shared.LedgerRepository
	gateway     shared.PaymentGateway
	reconciler  *Reconciler
	policy      SettlementPolicy
	clock       clock.Clock
	instruments *telemetry.Instruments
}

func NewSettlementCommands(
	offers shared.OfferRepository,
	ledgerRepo shared.LedgerRepository,
	gateway shared.PaymentGateway,
	reconciler *Reconciler,
	policy SettlementPolicy,
	clk clock.Clock,
	instruments *telemetry.Instruments,
) SettlementCommands {
	return &settlementCommandsImpl{
		offers:      offers,
		ledger:      ledgerRepo,
		gateway:     gateway,
		reconciler:  reconciler,
		policy:      policy,
		clock:       clk,
		instruments: instruments,
	}
}

func (s *settlementCommandsImpl) Settle(ctx context.Context, in SettleInput) (result *SettleResult, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "offer.settle")
	span.SetAttributes(
		attribute.String("offer.id", in.OfferID.String()),
		attribute.String("settlement.reference", in.ExternalReference),
	)
	defer func() {
		outcome := settleLabel(result, err)
		span.SetAttributes(attribute.String("outcome", outcome))
		if err != nil && errs.KindOf(err) == nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		s.instruments.SettleOutcome(ctx, outcome)
	}()

	p, ok := principal.AsAuthenticated(in.Principal)
	if !ok {
		return nil, ErrGuestSettlement
	}
	method, err := ledger.NewPaymentMethod(in.PaymentMethod)
	if err != nil {
		return nil, errs.Wrap(ErrInvalidInput, err.Error())
	}
	ref, err := ledger.NewExternalReference(in.ExternalReference)
	if err != nil {
		return nil, errs.Wrap(ErrInvalidInput, err.Error())
	}

	o, err := s.getOffer(ctx, in.OfferID)
	if err != nil {
		return nil, err
	}
	if err := s.checkSettleable(o, p.ID); err != nil {
		return nil, err
	}

	paid, err := s.ledger.FindByOffer(ctx, o.ID(), ledger.StatusCompleted)
	if err != nil {
		return nil, errs.Wrap(err, "failed to look up completed settlement")
	}
	if paid != nil {
		return s.alreadySettled(ctx, paid, paid.ExternalReference() == ref)
	}
	if o.Status() == offer.StatusCompleted {
		// completed offer without a completed entry
		return nil, s.reconcileFailure(ctx, o.ID())
	}

	now := s.clock.Now()
	price := o.Price()
	pending := ledger.NewPendingEntry(ledger.PendingParams{
		OfferID:           o.ID(),
		PayerID:           p.ID,
		RecipientID:       o.OwnerID(),
		Amount:            price,
		Fee:               s.policy.Fees.Fee(price),
		PaymentMethod:     method,
		ExternalReference: ref,
		At:                now,
	})

	entry, inserted, err := s.ledger.InsertIfAbsent(ctx, pending)
	if err != nil {
		if infra.IsKind(err, infra.KindDuplicateKey) && infra.ConstraintOf(err) == constraintOnePendingPerOffer {
			return nil, ErrSettlementInProgress
		}
		return nil, errs.Wrap(err, "failed to record settlement attempt")
	}

	if !inserted {
		return s.replay(ctx, entry, o, p.ID)
	}

	// another attempt may have completed between the lookup and the insert
	if paid, err := s.ledger.FindByOffer(ctx, o.ID(), ledger.StatusCompleted); err != nil {
		return nil, errs.Wrap(err, "failed to re-check completed settlement")
	} else if paid != nil {
		s.abandon(ctx, entry, "offer already settled")
		return s.alreadySettled(ctx, paid, false)
	}
	// an administrative reset may have reopened the offer meanwhile
	if current, err := s.getOffer(ctx, o.ID()); err != nil {
		return nil, err
	} else if !current.IsAcceptedBy(p.ID) || current.Status() != offer.StatusAccepted {
		s.abandon(ctx, entry, "offer no longer accepted by payer")
		return nil, ErrOfferNotAccepted
	}

	return s.charge(ctx, entry)
}

func (s *settlementCommandsImpl) checkSettleable(o *offer.Offer, payerID uuid.UUID) error {
	err := o.CheckSettleable(payerID)
	switch {
	case err == nil:
		return nil
	case errs.Is(err, offer.ErrNotAccepted):
		return ErrOfferNotAccepted
	case errs.Is(err, offer.ErrNotAcceptor):
		return ErrNotAcceptor
	default:
		return errs.Wrap(err, "offer cannot be settled")
	}
}

// replay answers a reference that was seen before without charging twice.
func (s *settlementCommandsImpl) replay(ctx context.Context, entry *ledger.Entry, o *offer.Offer, payerID uuid.UUID) (*SettleResult, error) {
	if entry.OfferID() != o.ID() || entry.PayerID() != payerID {
		return nil, ErrReferenceReused
	}

	switch entry.Status() {
	case ledger.StatusCompleted:
		return s.alreadySettled(ctx, entry, true)
	case ledger.StatusFailed:
		return nil, declined(entry)
	}

	age := entry.PendingFor(s.clock.Now())
	if age < s.policy.PendingRetryAfter {
		slog.InfoContext(ctx, "settlement attempt still in flight",
			"offer_id", o.ID(),
			"reference", entry.ExternalReference().Value(),
			"pending_for", age.String())
		return nil, ErrSettlementInProgress
	}

	slog.InfoContext(ctx, "re-driving stale pending settlement",
		"offer_id", o.ID(),
		"entry_id", entry.ID(),
		"reference", entry.ExternalReference().Value(),
		"pending_for", age.String())
	return s.charge(ctx, entry)
}

// charge calls the gateway for a pending entry and records the result:
// ledger first, then the offer.
func (s *settlementCommandsImpl) charge(ctx context.Context, entry *ledger.Entry) (*SettleResult, error) {
	callCtx := ctx
	if s.policy.GatewayTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.policy.GatewayTimeout)
		defer cancel()
	}

	res, err := s.gateway.Charge(callCtx, shared.ChargeRequest{
		Amount:            entry.Amount().Amount(),
		Fee:               entry.Fee().Amount(),
		Currency:          entry.Amount().Currency(),
		Method:            entry.PaymentMethod().String(),
		ExternalReference: entry.ExternalReference().Value(),
		Description:       "offer " + entry.OfferID().String(),
	})
	if err != nil {
		// outcome unknown: the entry stays pending for a same-reference retry
		slog.WarnContext(ctx, "payment gateway did not answer; settlement left pending",
			"offer_id", entry.OfferID(),
			"reference", entry.ExternalReference().Value(),
			"error", err.Error())
		return nil, errs.Wrapf(ErrGatewayUnreachable, "reference %s", entry.ExternalReference().Value())
	}

	now := s.clock.Now()
	if !res.Approved {
		var gwRef *string
		if res.GatewayReference != "" {
			gwRef = &res.GatewayReference
		}
		failed, _, err := s.ledger.UpdateStatus(ctx, entry.ID(), ledger.Fail(res.DeclineReason, gwRef, now))
		if err != nil {
			return nil, errs.Wrap(err, "failed to record declined settlement")
		}
		if failed.Status() == ledger.StatusCompleted {
			// a concurrent re-drive already recorded success for this reference
			return s.finish(ctx, failed, false)
		}
		return nil, declined(failed)
	}

	completed, _, err := s.ledger.UpdateStatus(ctx, entry.ID(), ledger.Complete(res.GatewayReference, now))
	if err != nil {
		if infra.IsKind(err, infra.KindDuplicateKey) && infra.ConstraintOf(err) == constraintOneCompletedPerOffer {
			slog.ErrorContext(ctx, "gateway approved a charge for an offer that is already paid",
				"offer_id", entry.OfferID(),
				"reference", entry.ExternalReference().Value(),
				"gateway_reference", res.GatewayReference)
			return nil, errs.Wrap(ErrSettleConflict, "offer already has a completed settlement")
		}
		return nil, errs.Wrap(err, "failed to record completed settlement")
	}
	if completed.Status() == ledger.StatusFailed {
		return nil, declined(completed)
	}
	return s.finish(ctx, completed, false)
}

// finish advances the offer once the ledger says it is paid.
func (s *settlementCommandsImpl) finish(ctx context.Context, entry *ledger.Entry, replayed bool) (*SettleResult, error) {
	n, err := s.offers.ConditionalUpdate(ctx, entry.OfferID(), offer.CompleteTransition(s.clock.Now()))
	if err == nil && n == 1 {
		o, getErr := s.getOffer(ctx, entry.OfferID())
		if getErr != nil {
			return nil, getErr
		}
		return &SettleResult{Outcome: OutcomeSettled, Offer: o, Entry: entry, Replayed: replayed}, nil
	}
	if err != nil {
		slog.WarnContext(ctx, "offer completion rejected by store; reconciling",
			"offer_id", entry.OfferID(),
			"error", err.Error())
	}

	report, recErr := s.reconciler.Settlement(ctx, entry.OfferID())
	if recErr != nil {
		return nil, recErr
	}
	return &SettleResult{Outcome: OutcomeSettled, Offer: report.Offer, Entry: entry, Replayed: replayed}, nil
}

func (s *settlementCommandsImpl) alreadySettled(ctx context.Context, paid *ledger.Entry, replayed bool) (*SettleResult, error) {
	report, err := s.reconciler.Settlement(ctx, paid.OfferID())
	if err != nil {
		return nil, err
	}
	return &SettleResult{Outcome: OutcomeAlreadySettled, Offer: report.Offer, Entry: paid, Replayed: replayed}, nil
}

// abandon fails a pending entry that must not reach the gateway.
func (s *settlementCommandsImpl) abandon(ctx context.Context, entry *ledger.Entry, reason string) {
	if _, _, err := s.ledger.UpdateStatus(ctx, entry.ID(), ledger.Fail(reason, nil, s.clock.Now())); err != nil {
		slog.WarnContext(ctx, "failed to abandon pending settlement",
			"entry_id", entry.ID(),
			"error", err.Error())
	}
}

func (s *settlementCommandsImpl) reconcileFailure(ctx context.Context, offerID uuid.UUID) error {
	_, err := s.reconciler.Settlement(ctx, offerID)
	if err != nil {
		return err
	}
	return ErrSettleConflict
}

func (s *settlementCommandsImpl) getOffer(ctx context.Context, offerID uuid.UUID) (*offer.Offer, error) {
	o, err := s.offers.Get(ctx, offerID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, errs.Wrap(err, "failed to read offer")
	}
	return o, nil
}

func declined(entry *ledger.Entry) error {
	reason := "declined"
	if r := entry.FailureReason(); r != nil && *r != "" {
		reason = *r
	}
	return errs.Wrapf(ErrPaymentDeclined, "reference %s: %s", entry.ExternalReference().Value(), reason)
}

func settleLabel(result *SettleResult, err error) string {
	if err != nil {
		return errs.CodeOf(err)
	}
	if result.Replayed {
		return "replayed"
	}
	return string(result.Outcome)
}
