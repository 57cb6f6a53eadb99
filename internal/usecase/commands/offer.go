package commands

import (
	"context"
	"log/slog"

	"flightshare/internal/domain/offer"
	"flightshare/internal/domain/principal"
	reqdto "flightshare/internal/handler/dto/request"
	"flightshare/internal/infra"
	"flightshare/internal/pkg/clock"
	"flightshare/internal/pkg/errs"
	"flightshare/internal/usecase/shared"

	"github.com/google/uuid"
)

type OfferCommands interface {
	Create(ctx context.Context, owner principal.Authenticated, req reqdto.CreateOfferRequest) (*offer.Offer, error)
	Cancel(ctx context.Context, offerID uuid.UUID, owner principal.Authenticated) (*offer.Offer, error)
}

type offerCommandsImpl struct {
	offers shared.OfferRepository
	clock  clock.Clock
}

func NewOfferCommands(offers shared.OfferRepository, clk clock.Clock) OfferCommands {
	return &offerCommandsImpl{
		offers: offers,
		clock:  clk,
	}
}

func (c *offerCommandsImpl) Create(ctx context.Context, owner principal.Authenticated, req reqdto.CreateOfferRequest) (*offer.Offer, error) {
	o, err := req.ToDomain(c.clock, owner.ID)
	if err != nil {
		return nil, errs.Wrap(ErrInvalidInput, err.Error())
	}

	created, err := c.offers.Insert(ctx, o)
	if err != nil {
		if infra.IsKind(err, infra.KindForeignKeyViolated) {
			return nil, errs.Mark(errs.Wrap(err, "owner does not exist"), errs.ErrUnauthenticated)
		}
		return nil, errs.Wrap(err, "failed to create offer")
	}

	slog.InfoContext(ctx, "offer created",
		"offer_id", created.ID(),
		"owner_id", owner.ID,
		"amount", created.Price().Amount(),
		"currency", created.Price().Currency())
	return created, nil
}

// Cancel withdraws an open offer. Accepted offers stay with their acceptor.
func (c *offerCommandsImpl) Cancel(ctx context.Context, offerID uuid.UUID, owner principal.Authenticated) (*offer.Offer, error) {
	o, err := c.offers.Get(ctx, offerID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, errs.Wrap(err, "failed to read offer")
	}
	if !o.IsOwnedBy(owner.ID) {
		return nil, ErrNotOwner
	}
	if o.Status() == offer.StatusCancelled {
		return o, nil
	}

	n, err := c.offers.ConditionalUpdate(ctx, offerID, offer.CancelTransition(c.clock.Now()))
	if err != nil {
		return nil, errs.Wrap(err, "failed to cancel offer")
	}

	current, err := c.offers.Get(ctx, offerID)
	if err != nil {
		return nil, errs.Wrap(err, "failed to read offer")
	}
	if n == 0 && current.Status() != offer.StatusCancelled {
		return nil, ErrOfferNotOpen
	}
	return current, nil
}
