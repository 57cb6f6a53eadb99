package offer

import (
	"encoding/json"
	"errors"
	"time"

	"flightshare/internal/pkg/clock"

	"github.com/google/uuid"
)

var (
	ErrInvalidStatus      = errors.New("invalid offer status")
	ErrInvalidPrice       = errors.New("requested share amount must be positive")
	ErrInvalidCurrency    = errors.New("invalid currency code")
	ErrInvalidFeeRate     = errors.New("fee rate must be in [0, 1)")
	ErrInvalidItinerary   = errors.New("itinerary must be a JSON object")
	ErrSelfAcceptance     = errors.New("owner cannot accept own offer")
	ErrNotOpen            = errors.New("offer is not open")
	ErrNotAccepted        = errors.New("offer is not accepted")
	ErrIllegalTransition  = errors.New("illegal offer status transition")
	ErrAcceptorRequired   = errors.New("acceptor required for accepted offer")
	ErrNotOwner           = errors.New("principal is not the offer owner")
	ErrNotAcceptor        = errors.New("principal is not the offer acceptor")
	ErrCompletedImmutable = errors.New("completed offer is immutable")
)

type Offer struct {
	id          uuid.UUID
	ownerID     uuid.UUID
	price       Money
	itinerary   json.RawMessage
	status      Status
	acceptorID  *uuid.UUID
	acceptedAt  *time.Time
	completedAt *time.Time
	createdAt   time.Time
	updatedAt   time.Time
}

// NewOffer creates an open offer posted by ownerID. The itinerary is opaque
// route/date payload and is stored as given.
func NewOffer(clk clock.Clock, ownerID uuid.UUID, price Money, itinerary json.RawMessage) (*Offer, error) {
	if len(itinerary) == 0 {
		itinerary = json.RawMessage(`{}`)
	}
	var probe map[string]any
	if err := json.Unmarshal(itinerary, &probe); err != nil {
		return nil, ErrInvalidItinerary
	}

	now := clk.Now()
	return &Offer{
		id:        uuid.New(),
		ownerID:   ownerID,
		price:     price,
		itinerary: itinerary,
		status:    StatusOpen,
		createdAt: now,
		updatedAt: now,
	}, nil
}

func ReconstructOffer(
	id, ownerID uuid.UUID,
	price Money,
	itinerary json.RawMessage,
	status Status,
	acceptorID *uuid.UUID,
	acceptedAt, completedAt *time.Time,
	createdAt, updatedAt time.Time,
) *Offer {
	return &Offer{
		id:          id,
		ownerID:     ownerID,
		price:       price,
		itinerary:   itinerary,
		status:      status,
		acceptorID:  acceptorID,
		acceptedAt:  acceptedAt,
		completedAt: completedAt,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (o *Offer) ID() uuid.UUID              { return o.id }
func (o *Offer) OwnerID() uuid.UUID         { return o.ownerID }
func (o *Offer) Price() Money               { return o.price }
func (o *Offer) Itinerary() json.RawMessage { return o.itinerary }
func (o *Offer) Status() Status             { return o.status }
func (o *Offer) AcceptorID() *uuid.UUID     { return o.acceptorID }
func (o *Offer) AcceptedAt() *time.Time     { return o.acceptedAt }
func (o *Offer) CompletedAt() *time.Time    { return o.completedAt }
func (o *Offer) CreatedAt() time.Time       { return o.createdAt }
func (o *Offer) UpdatedAt() time.Time       { return o.updatedAt }

func (o *Offer) IsOwnedBy(id uuid.UUID) bool {
	return o.ownerID == id
}

func (o *Offer) IsAcceptedBy(id uuid.UUID) bool {
	return o.acceptorID != nil && *o.acceptorID == id
}

// CheckAcceptable is the application-side guard in front of the store's
// conditional update. Self-acceptance is rejected whatever the status is.
func (o *Offer) CheckAcceptable(principalID uuid.UUID) error {
	if o.IsOwnedBy(principalID) {
		return ErrSelfAcceptance
	}
	if o.status != StatusOpen {
		return ErrNotOpen
	}
	return nil
}

func (o *Offer) CheckSettleable(principalID uuid.UUID) error {
	if o.status != StatusAccepted && o.status != StatusCompleted {
		return ErrNotAccepted
	}
	if !o.IsAcceptedBy(principalID) {
		return ErrNotAcceptor
	}
	return nil
}

// Transition describes a conditional status change: it only applies to a row
// whose current status equals From.
type Transition struct {
	From       Status
	To         Status
	AcceptorID *uuid.UUID
	At         time.Time
}

func AcceptTransition(acceptorID uuid.UUID, at time.Time) Transition {
	return Transition{From: StatusOpen, To: StatusAccepted, AcceptorID: &acceptorID, At: at}
}

func CompleteTransition(at time.Time) Transition {
	return Transition{From: StatusAccepted, To: StatusCompleted, At: at}
}

func CancelTransition(at time.Time) Transition {
	return Transition{From: StatusOpen, To: StatusCancelled, At: at}
}

func ResetTransition(at time.Time) Transition {
	return Transition{From: StatusAccepted, To: StatusOpen, At: at}
}

func (t Transition) Validate() error {
	if !CanTransition(t.From, t.To) {
		return ErrIllegalTransition
	}
	if t.To == StatusAccepted && t.AcceptorID == nil {
		return ErrAcceptorRequired
	}
	return nil
}

// Apply returns the offer as it looks after t. It performs the same field
// updates as the store's conditional update and is what in-memory stores use.
func (o *Offer) Apply(t Transition) (*Offer, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if o.status == StatusCompleted {
		return nil, ErrCompletedImmutable
	}
	if o.status != t.From {
		return nil, ErrIllegalTransition
	}
	if t.To == StatusAccepted && o.IsOwnedBy(*t.AcceptorID) {
		return nil, ErrSelfAcceptance
	}

	next := *o
	next.status = t.To
	next.updatedAt = t.At
	switch t.To {
	case StatusAccepted:
		id := *t.AcceptorID
		at := t.At
		next.acceptorID = &id
		next.acceptedAt = &at
	case StatusCompleted:
		at := t.At
		next.completedAt = &at
	case StatusOpen:
		next.acceptorID = nil
		next.acceptedAt = nil
	}
	return &next, nil
}
