package commands

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"flightshare/internal/domain/user"
	reqdto "flightshare/internal/handler/dto/request"
	"flightshare/internal/infra"
	"flightshare/internal/pkg/clock"
	"flightshare/internal/pkg/errs"
	"flightshare/internal/pkg/jwt"
	"flightshare/internal/pkg/password"
	"flightshare/internal/usecase/shared"
)

var (
	ErrUserNotFound         = errs.NewKind(errs.ErrUnauthenticated, "user not found")
	ErrInvalidCredentials   = errs.NewKind(errs.ErrUnauthenticated, "invalid credentials")
	ErrUserInactive         = errs.NewKind(errs.ErrForbidden, "user inactive")
	ErrAuthenticationFailed = errs.NewKind(errs.ErrUnauthenticated, "authentication failed")
	ErrTokenGeneration      = errs.New("token generation failed")
	ErrTokenValidation      = errs.NewKind(errs.ErrUnauthenticated, "token validation failed")
)

type LoginResult struct {
	User      *user.User
	TokenPair *TokenPair
	// IdentityHint lets cookie-less clients identify themselves; it is
	// cross-checked against the user record on every use.
	IdentityHint string
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenIssuer is the subset of the jwt service the auth commands need.
type TokenIssuer interface {
	GenerateAccessToken(userID uuid.UUID, role user.Role) (string, error)
	GenerateRefreshToken(userID uuid.UUID, role user.Role) (string, error)
	GenerateIdentityHint(userID uuid.UUID, role user.Role, email string) (string, error)
	ValidateTyped(tokenString string, typ jwt.TokenType) (*jwt.Claims, error)
}

type AuthCommands interface {
	Login(ctx context.Context, req reqdto.LoginRequest) (*LoginResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error)
}

type authCommandsImpl struct {
	users  shared.UserRepository
	tokens TokenIssuer
	clock  clock.Clock
}

func NewAuthCommands(users shared.UserRepository, tokens TokenIssuer, clk clock.Clock) AuthCommands {
	return &authCommandsImpl{
		users:  users,
		tokens: tokens,
		clock:  clk,
	}
}

func (a *authCommandsImpl) Login(ctx context.Context, req reqdto.LoginRequest) (*LoginResult, error) {
	credentials, err := req.ToDomain()
	if err != nil {
		return nil, errs.Wrap(ErrAuthenticationFailed, err.Error())
	}

	u, err := a.validateUser(ctx, credentials)
	if err != nil {
		return nil, err
	}

	pair, err := a.issuePair(u.ID(), u.Role())
	if err != nil {
		return nil, err
	}

	hint, err := a.tokens.GenerateIdentityHint(u.ID(), u.Role(), u.Email().Value())
	if err != nil {
		return nil, errs.Mark(err, ErrTokenGeneration)
	}

	if updateErr := a.users.UpdateLastLogin(ctx, u.ID(), a.clock.Now()); updateErr != nil {
		// login already succeeded
		slog.Warn("failed to update last login", "user_id", u.ID(), "error", updateErr.Error())
	}

	return &LoginResult{
		User:         u,
		TokenPair:    pair,
		IdentityHint: hint,
	}, nil
}

func (a *authCommandsImpl) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := a.tokens.ValidateTyped(refreshToken, jwt.TokenTypeRefresh)
	if err != nil {
		return nil, errs.Wrap(ErrTokenValidation, err.Error())
	}

	// Validate user still exists and is active; the role is re-read too
	u, err := a.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, errs.Wrap(err, "failed to load user for refresh")
	}
	if !u.IsActive() {
		return nil, ErrUserInactive
	}

	return a.issuePair(u.ID(), u.Role())
}

func (a *authCommandsImpl) issuePair(userID uuid.UUID, role user.Role) (*TokenPair, error) {
	accessToken, err := a.tokens.GenerateAccessToken(userID, role)
	if err != nil {
		return nil, errs.Mark(err, ErrTokenGeneration)
	}
	refreshToken, err := a.tokens.GenerateRefreshToken(userID, role)
	if err != nil {
		return nil, errs.Mark(err, ErrTokenGeneration)
	}
	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (a *authCommandsImpl) validateUser(ctx context.Context, credentials user.Credentials) (*user.User, error) {
	u, err := a.users.FindByEmail(ctx, credentials.Email().Value())
	if err != nil {
		// Same error and similar timing as a password mismatch to prevent user enumeration
		password.CompareDummy(credentials.Password().Value())
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, errs.Wrap(err, "failed to load user")
	}

	if !u.IsActive() {
		return nil, ErrUserInactive
	}

	if err := password.Compare(u.PasswordHash(), credentials.Password().Value()); err != nil {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}
