package errs

import "errors"

// Error taxonomy shared by the offer lifecycle. Concrete errors raised by the
// usecase layer are marked with exactly one of these kinds.
var (
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrAlreadyTaken        = errors.New("offer already taken")
	ErrContinuationExpired = errors.New("continuation expired")
	ErrConflict            = errors.New("conflict")
	ErrAlreadySettled      = errors.New("offer already settled")
	ErrGatewayFailure      = errors.New("payment gateway failure")
	ErrInvalidState        = errors.New("invalid state")
)

// Supporting kinds outside the lifecycle taxonomy.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation failed")
)

// Kinds is ordered: the first match wins in KindOf.
var Kinds = []error{
	ErrUnauthenticated,
	ErrAlreadyTaken,
	ErrContinuationExpired,
	ErrAlreadySettled,
	ErrGatewayFailure,
	ErrInvalidState,
	ErrConflict,
	ErrNotFound,
	ErrForbidden,
	ErrValidation,
}

var kindCodes = map[error]string{
	ErrUnauthenticated:     "unauthenticated",
	ErrAlreadyTaken:        "already_taken",
	ErrContinuationExpired: "continuation_expired",
	ErrConflict:            "conflict",
	ErrAlreadySettled:      "already_settled",
	ErrGatewayFailure:      "gateway_failure",
	ErrInvalidState:        "invalid_state",
	ErrNotFound:            "not_found",
	ErrForbidden:           "forbidden",
	ErrValidation:          "validation_failed",
}

// CodeOf returns the machine-readable code of err's kind, or "internal".
func CodeOf(err error) string {
	if k := KindOf(err); k != nil {
		return kindCodes[k]
	}
	return "internal"
}

type kindedError struct {
	msg  string
	kind error
}

func (e *kindedError) Error() string { return e.msg }

func (e *kindedError) Is(target error) bool { return target == e.kind }

// NewKind creates a sentinel that matches both itself and kind under Is.
// Sentinels sharing a kind stay distinguishable from each other, which a
// plain Mark would not give.
func NewKind(kind error, msg string) error {
	return &kindedError{msg: msg, kind: kind}
}
