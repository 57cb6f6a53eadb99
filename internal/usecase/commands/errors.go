package commands

import (
	"flightshare/internal/pkg/errs"
)

// Each sentinel carries one taxonomy kind so the handler layer can map both
// the specific error and its kind.
var (
	ErrOfferNotFound = errs.NewKind(errs.ErrNotFound, "offer not found")

	ErrSelfAcceptance    = errs.NewKind(errs.ErrInvalidState, "owner cannot accept their own offer")
	ErrOfferTaken        = errs.NewKind(errs.ErrAlreadyTaken, "offer already accepted by another principal")
	ErrOfferWithdrawn    = errs.NewKind(errs.ErrInvalidState, "offer was cancelled")
	ErrAcceptConflict    = errs.NewKind(errs.ErrConflict, "offer acceptance could not be reconciled")
	ErrContinuationOffer = errs.NewKind(errs.ErrInvalidState, "continuation belongs to a different offer")

	ErrContinuationExpired = errs.NewKind(errs.ErrContinuationExpired, "continuation expired or already used")
	ErrContinuationInvalid = errs.NewKind(errs.ErrValidation, "continuation token is invalid")

	ErrGuestSettlement      = errs.NewKind(errs.ErrUnauthenticated, "settlement requires an authenticated principal")
	ErrOfferNotAccepted     = errs.NewKind(errs.ErrInvalidState, "offer is not accepted")
	ErrNotAcceptor          = errs.NewKind(errs.ErrInvalidState, "only the acceptor may settle the offer")
	ErrReferenceReused      = errs.NewKind(errs.ErrInvalidState, "external reference belongs to a different settlement")
	ErrSettlementInProgress = errs.NewKind(errs.ErrConflict, "a settlement attempt for this offer is in progress")
	ErrPaymentDeclined      = errs.NewKind(errs.ErrGatewayFailure, "payment declined")
	ErrGatewayUnreachable   = errs.NewKind(errs.ErrGatewayFailure, "payment gateway unreachable; settlement left pending")
	ErrSettleConflict       = errs.NewKind(errs.ErrConflict, "settlement could not be reconciled")

	ErrNotOwner         = errs.NewKind(errs.ErrForbidden, "only the owner may change this offer")
	ErrOfferNotOpen     = errs.NewKind(errs.ErrInvalidState, "offer is not open")
	ErrInsufficientRole = errs.NewKind(errs.ErrForbidden, "operation requires an administrator")
	ErrResetSettled     = errs.NewKind(errs.ErrAlreadySettled, "offer has a completed settlement and cannot be reset")
	ErrResetPending     = errs.NewKind(errs.ErrConflict, "offer has a pending settlement and cannot be reset")
	ErrInvalidInput     = errs.NewKind(errs.ErrValidation, "invalid input")
)
