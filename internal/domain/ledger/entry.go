package ledger

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"flightshare/internal/domain/offer"

	"github.com/google/uuid"
)

var (
	ErrInvalidStatus        = errors.New("invalid ledger status")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidReference     = errors.New("invalid external reference")
	ErrIllegalTransition    = errors.New("illegal ledger status transition")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

func NewStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusPending, StatusCompleted, StatusFailed:
		return st, nil
	}
	return "", ErrInvalidStatus
}

func (s Status) String() string { return string(s) }

// Only pending entries move; completed and failed are final.
func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusPending && (next == StatusCompleted || next == StatusFailed)
}

type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
	PaymentMethodWallet       PaymentMethod = "wallet"
)

func NewPaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case PaymentMethodCard, PaymentMethodBankTransfer, PaymentMethodWallet:
		return m, nil
	}
	return "", ErrInvalidPaymentMethod
}

func (m PaymentMethod) String() string { return string(m) }

var referenceRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.:\-]{0,127}$`)

// ExternalReference is the idempotency key of one settlement attempt.
type ExternalReference struct {
	value string
}

func NewExternalReference(s string) (ExternalReference, error) {
	s = strings.TrimSpace(s)
	if !referenceRegex.MatchString(s) {
		return ExternalReference{}, ErrInvalidReference
	}
	return ExternalReference{value: s}, nil
}

func (r ExternalReference) Value() string { return r.value }

type Entry struct {
	id                uuid.UUID
	offerID           uuid.UUID
	payerID           uuid.UUID
	recipientID       uuid.UUID
	amount            offer.Money
	fee               offer.Money
	paymentMethod     PaymentMethod
	status            Status
	externalReference ExternalReference
	gatewayReference  *string
	failureReason     *string
	createdAt         time.Time
	updatedAt         time.Time
}

type PendingParams struct {
	OfferID           uuid.UUID
	PayerID           uuid.UUID
	RecipientID       uuid.UUID
	Amount            offer.Money
	Fee               offer.Money
	PaymentMethod     PaymentMethod
	ExternalReference ExternalReference
	At                time.Time
}

func NewPendingEntry(p PendingParams) *Entry {
	return &Entry{
		id:                uuid.New(),
		offerID:           p.OfferID,
		payerID:           p.PayerID,
		recipientID:       p.RecipientID,
		amount:            p.Amount,
		fee:               p.Fee,
		paymentMethod:     p.PaymentMethod,
		status:            StatusPending,
		externalReference: p.ExternalReference,
		createdAt:         p.At,
		updatedAt:         p.At,
	}
}

func ReconstructEntry(
	id, offerID, payerID, recipientID uuid.UUID,
	amount, fee offer.Money,
	method PaymentMethod,
	status Status,
	ref ExternalReference,
	gatewayRef, failureReason *string,
	createdAt, updatedAt time.Time,
) *Entry {
	return &Entry{
		id:                id,
		offerID:           offerID,
		payerID:           payerID,
		recipientID:       recipientID,
		amount:            amount,
		fee:               fee,
		paymentMethod:     method,
		status:            status,
		externalReference: ref,
		gatewayReference:  gatewayRef,
		failureReason:     failureReason,
		createdAt:         createdAt,
		updatedAt:         updatedAt,
	}
}

func (e *Entry) ID() uuid.UUID                        { return e.id }
func (e *Entry) OfferID() uuid.UUID                   { return e.offerID }
func (e *Entry) PayerID() uuid.UUID                   { return e.payerID }
func (e *Entry) RecipientID() uuid.UUID               { return e.recipientID }
func (e *Entry) Amount() offer.Money                  { return e.amount }
func (e *Entry) Fee() offer.Money                     { return e.fee }
func (e *Entry) PaymentMethod() PaymentMethod         { return e.paymentMethod }
func (e *Entry) Status() Status                       { return e.status }
func (e *Entry) ExternalReference() ExternalReference { return e.externalReference }
func (e *Entry) GatewayReference() *string            { return e.gatewayReference }
func (e *Entry) FailureReason() *string               { return e.failureReason }
func (e *Entry) CreatedAt() time.Time                 { return e.createdAt }
func (e *Entry) UpdatedAt() time.Time                 { return e.updatedAt }

// StatusUpdate is a conditional ledger change from pending to a final status.
type StatusUpdate struct {
	To               Status
	GatewayReference *string
	FailureReason    *string
	At               time.Time
}

func Complete(gatewayRef string, at time.Time) StatusUpdate {
	return StatusUpdate{To: StatusCompleted, GatewayReference: &gatewayRef, At: at}
}

func Fail(reason string, gatewayRef *string, at time.Time) StatusUpdate {
	return StatusUpdate{To: StatusFailed, GatewayReference: gatewayRef, FailureReason: &reason, At: at}
}

// Apply mirrors the store's conditional update for in-memory stores.
func (e *Entry) Apply(u StatusUpdate) (*Entry, error) {
	if !e.status.CanTransitionTo(u.To) {
		return nil, ErrIllegalTransition
	}
	next := *e
	next.status = u.To
	if u.GatewayReference != nil {
		next.gatewayReference = u.GatewayReference
	}
	next.failureReason = u.FailureReason
	next.updatedAt = u.At
	return &next, nil
}

// PendingFor reports how long a pending entry has been outstanding.
func (e *Entry) PendingFor(now time.Time) time.Duration {
	if e.status != StatusPending {
		return 0
	}
	return now.Sub(e.createdAt)
}
