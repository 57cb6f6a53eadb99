package identity

import (
	"flightshare/internal/domain/principal"
	"flightshare/internal/domain/user"
	"flightshare/internal/pkg/jwt"
)

// TokenVerifier checks signed tokens issued by the identity provider.
type TokenVerifier interface {
	ValidateTyped(tokenString string, typ jwt.TokenType) (*jwt.Claims, error)
}

// principalFromClaims turns verified access-token claims into a principal.
func principalFromClaims(claims *jwt.Claims, source principal.Source) (principal.Authenticated, error) {
	role, err := user.NewRole(claims.Role)
	if err != nil {
		return principal.Authenticated{}, err
	}
	return principal.Authenticated{
		ID:     claims.UserID,
		Email:  claims.Email,
		Role:   role,
		Source: source,
	}, nil
}
