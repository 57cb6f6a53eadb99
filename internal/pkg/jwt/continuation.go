package jwt

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const continuationAudience = "offer-continuation"

// ContinuationClaims are the verified contents of a guest continuation grant.
type ContinuationClaims struct {
	TicketID  uuid.UUID
	OfferID   uuid.UUID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type continuationClaims struct {
	jwt.RegisteredClaims
	TicketID string `json:"ticket_id"`
	OfferID  string `json:"offer_id"`
}

func (s *Service) IssueContinuation(ticketID, offerID uuid.UUID, issuedAt, expiresAt time.Time) (string, error) {
	claims := continuationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{continuationAudience},
			ID:        ticketID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		TicketID: ticketID.String(),
		OfferID:  offerID.String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// ParseContinuation verifies the signature and the binding claims. Expiry is
// checked here against the service clock so callers can tell an expired grant
// (ErrExpiredToken) from a forged one (ErrInvalidToken).
func (s *Service) ParseContinuation(grant string) (ContinuationClaims, error) {
	grant = strings.TrimSpace(grant)
	if grant == "" {
		return ContinuationClaims{}, ErrInvalidToken
	}

	var parsed continuationClaims
	_, err := jwt.ParseWithClaims(grant, &parsed, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return ContinuationClaims{}, ErrInvalidToken
	}

	if s.issuer != "" && parsed.Issuer != s.issuer {
		return ContinuationClaims{}, ErrInvalidToken
	}
	if !audienceContains(parsed.Audience, continuationAudience) {
		return ContinuationClaims{}, ErrInvalidToken
	}
	if parsed.ExpiresAt == nil {
		return ContinuationClaims{}, ErrInvalidToken
	}

	ticketID, err := uuid.Parse(parsed.TicketID)
	if err != nil || parsed.ID != parsed.TicketID {
		return ContinuationClaims{}, ErrInvalidToken
	}
	offerID, err := uuid.Parse(parsed.OfferID)
	if err != nil {
		return ContinuationClaims{}, ErrInvalidToken
	}

	claims := ContinuationClaims{
		TicketID:  ticketID,
		OfferID:   offerID,
		ExpiresAt: parsed.ExpiresAt.Time.UTC(),
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}

	if !claims.ExpiresAt.After(s.now().UTC()) {
		return claims, ErrExpiredToken
	}
	return claims, nil
}

func IsExpired(err error) bool {
	return errors.Is(err, ErrExpiredToken)
}

func audienceContains(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
