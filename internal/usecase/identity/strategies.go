package identity

import (
	"context"
	"strings"

	"flightshare/internal/domain/principal"
	"flightshare/internal/pkg/errs"
	"flightshare/internal/pkg/jwt"
	"flightshare/internal/usecase/shared"
)

var (
	ErrHintMismatch = errs.New("identity hint does not match the user record")
	ErrUserInactive = errs.New("user inactive")
)

type SessionStrategy struct {
	tokens TokenVerifier
}

func NewSessionStrategy(tokens TokenVerifier) *SessionStrategy {
	return &SessionStrategy{tokens: tokens}
}

func (s *SessionStrategy) Source() principal.Source { return principal.SourceSession }

func (s *SessionStrategy) Resolve(_ context.Context, creds Credentials) (principal.Authenticated, error) {
	if creds.SessionToken == "" {
		return principal.Authenticated{}, ErrNotApplicable
	}
	claims, err := s.tokens.ValidateTyped(creds.SessionToken, jwt.TokenTypeAccess)
	if err != nil {
		return principal.Authenticated{}, err
	}
	return principalFromClaims(claims, principal.SourceSession)
}

type BearerStrategy struct {
	tokens TokenVerifier
}

func NewBearerStrategy(tokens TokenVerifier) *BearerStrategy {
	return &BearerStrategy{tokens: tokens}
}

func (s *BearerStrategy) Source() principal.Source { return principal.SourceBearer }

func (s *BearerStrategy) Resolve(_ context.Context, creds Credentials) (principal.Authenticated, error) {
	token := strings.TrimSpace(creds.BearerToken)
	if token == "" {
		return principal.Authenticated{}, ErrNotApplicable
	}
	claims, err := s.tokens.ValidateTyped(token, jwt.TokenTypeAccess)
	if err != nil {
		return principal.Authenticated{}, err
	}
	return principalFromClaims(claims, principal.SourceBearer)
}

// HintStrategy accepts a signed identity hint only after cross-checking it
// against the stored user: the user must exist, be active and still own the
// email the hint was issued for.
type HintStrategy struct {
	tokens TokenVerifier
	users  shared.UserRepository
}

func NewHintStrategy(tokens TokenVerifier, users shared.UserRepository) *HintStrategy {
	return &HintStrategy{tokens: tokens, users: users}
}

func (s *HintStrategy) Source() principal.Source { return principal.SourceHint }

func (s *HintStrategy) Resolve(ctx context.Context, creds Credentials) (principal.Authenticated, error) {
	if creds.IdentityHint == "" {
		return principal.Authenticated{}, ErrNotApplicable
	}
	claims, err := s.tokens.ValidateTyped(creds.IdentityHint, jwt.TokenTypeHint)
	if err != nil {
		return principal.Authenticated{}, err
	}

	u, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return principal.Authenticated{}, errs.Wrap(err, "identity hint cross-check")
	}
	if !u.IsActive() {
		return principal.Authenticated{}, ErrUserInactive
	}
	if claims.Email == "" || !u.MatchesEmail(claims.Email) {
		return principal.Authenticated{}, ErrHintMismatch
	}

	// role comes from the record, not the hint
	return principal.Authenticated{
		ID:     u.ID(),
		Email:  u.Email().Value(),
		Role:   u.Role(),
		Source: principal.SourceHint,
	}, nil
}
