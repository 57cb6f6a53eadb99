package commands

import (
	"context"
	"log/slog"

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

type AcceptOutcome string

const (
	OutcomeAccepted              AcceptOutcome = "accepted"
	OutcomePendingAuthentication AcceptOutcome = "pending_authentication"
)

type AcceptResult struct {
	Outcome AcceptOutcome
	// Offer is set when accepted.
	Offer *offer.Offer
	// Replayed marks an acceptance this principal already held.
	Replayed bool
	// Continuation is set when the caller must authenticate first.
	Continuation *Continuation
}

type AcceptInput struct {
	OfferID   uuid.UUID
	Principal principal.Principal
	// ContinuationToken resumes a guest acceptance. Optional.
	ContinuationToken string
}

type AcceptanceCommands interface {
	Accept(ctx context.Context, in AcceptInput) (*AcceptResult, error)
}

type acceptanceCommandsImpl struct {
	offers      shared.OfferRepository
	bridge      *GuestBridge
	reconciler  *Reconciler
	clock       clock.Clock
	instruments *telemetry.Instruments
}

func NewAcceptanceCommands(
	offers shared.OfferRepository,
	bridge *GuestBridge,
	reconciler *Reconciler,
	clk clock.Clock,
	instruments *telemetry.Instruments,
) AcceptanceCommands {
	return &acceptanceCommandsImpl{
		offers:      offers,
		bridge:      bridge,
		reconciler:  reconciler,
		clock:       clk,
		instruments: instruments,
	}
}

func (a *acceptanceCommandsImpl) Accept(ctx context.Context, in AcceptInput) (result *AcceptResult, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "offer.accept")
	span.SetAttributes(
		attribute.String("offer.id", in.OfferID.String()),
		attribute.Bool("continuation", in.ContinuationToken != ""),
	)
	defer func() {
		outcome := outcomeLabel(result, err)
		span.SetAttributes(attribute.String("outcome", outcome))
		if err != nil && errs.KindOf(err) == nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
		a.instruments.AcceptOutcome(ctx, outcome)
	}()

	if in.Principal == nil {
		return nil, errs.Mark(errs.New("no principal for acceptance"), errs.ErrUnauthenticated)
	}

	if ticket, ok := principal.AsGuest(in.Principal); ok {
		return a.acceptAsGuest(ctx, ticket, in.OfferID)
	}

	p, _ := principal.AsAuthenticated(in.Principal)
	if in.ContinuationToken != "" {
		bridge, err := a.bridge.Consume(ctx, in.ContinuationToken)
		if err != nil {
			return nil, err
		}
		if bridge.OfferID != in.OfferID {
			return nil, ErrContinuationOffer
		}
		slog.InfoContext(ctx, "resuming guest acceptance",
			"offer_id", in.OfferID,
			"ticket_id", bridge.TicketID,
			"user_id", p.ID)
	}

	return a.acceptAsUser(ctx, p, in.OfferID)
}

// acceptAsGuest parks the acceptance; the offer is never touched.
func (a *acceptanceCommandsImpl) acceptAsGuest(ctx context.Context, ticket principal.GuestTicket, offerID uuid.UUID) (*AcceptResult, error) {
	o, err := a.get(ctx, offerID)
	if err != nil {
		return nil, err
	}
	switch o.Status() {
	case offer.StatusOpen:
	case offer.StatusCancelled:
		return nil, ErrOfferWithdrawn
	default:
		return nil, ErrOfferTaken
	}

	cont, err := a.bridge.Issue(ctx, ticket, offerID)
	if err != nil {
		return nil, err
	}
	return &AcceptResult{Outcome: OutcomePendingAuthentication, Continuation: cont}, nil
}

func (a *acceptanceCommandsImpl) acceptAsUser(ctx context.Context, p principal.Authenticated, offerID uuid.UUID) (*AcceptResult, error) {
	o, err := a.get(ctx, offerID)
	if err != nil {
		return nil, err
	}
	// owners are rejected before status is even considered
	if o.IsOwnedBy(p.ID) {
		return nil, ErrSelfAcceptance
	}
	if o.Status() == offer.StatusCancelled {
		return nil, ErrOfferWithdrawn
	}

	n, err := a.offers.ConditionalUpdate(ctx, offerID, offer.AcceptTransition(p.ID, a.clock.Now()))
	if err != nil {
		if !infra.IsKind(err, infra.KindConstraintViolated) && !infra.IsKind(err, infra.KindConflict) {
			return nil, errs.Wrap(err, "failed to accept offer")
		}
		slog.WarnContext(ctx, "store rejected acceptance; reconciling",
			"offer_id", offerID,
			"user_id", p.ID,
			"constraint", infra.ConstraintOf(err))
		return a.reconcile(ctx, offerID, p.ID)
	}
	if n == 1 {
		accepted, err := a.get(ctx, offerID)
		if err != nil {
			return nil, err
		}
		return &AcceptResult{Outcome: OutcomeAccepted, Offer: accepted}, nil
	}

	current, err := a.get(ctx, offerID)
	if err != nil {
		return nil, err
	}
	switch {
	case current.IsAcceptedBy(p.ID):
		return &AcceptResult{Outcome: OutcomeAccepted, Offer: current, Replayed: true}, nil
	case current.Status().HoldsAcceptor():
		return nil, ErrOfferTaken
	case current.Status() == offer.StatusCancelled:
		return nil, ErrOfferWithdrawn
	}

	// still open after a missed write
	return a.reconcile(ctx, offerID, p.ID)
}

func (a *acceptanceCommandsImpl) reconcile(ctx context.Context, offerID, acceptorID uuid.UUID) (*AcceptResult, error) {
	report, err := a.reconciler.Acceptance(ctx, offerID, acceptorID)
	if err != nil {
		return nil, err
	}
	return &AcceptResult{
		Outcome:  OutcomeAccepted,
		Offer:    report.Offer,
		Replayed: report.Action == ActionNone,
	}, nil
}

func (a *acceptanceCommandsImpl) get(ctx context.Context, offerID uuid.UUID) (*offer.Offer, error) {
	o, err := a.offers.Get(ctx, offerID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, errs.Wrap(err, "failed to read offer")
	}
	return o, nil
}

func outcomeLabel(result *AcceptResult, err error) string {
	if err != nil {
		return errs.CodeOf(err)
	}
	if result.Replayed {
		return "replayed"
	}
	return string(result.Outcome)
}
