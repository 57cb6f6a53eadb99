//go:build unit || e2e

package authtest

import (
	"testing"
	"time"

	"flightshare/internal/domain/user"
	"flightshare/internal/pkg/config"
	"flightshare/internal/pkg/jwt"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// JWTHelper mints tokens signed like the running app's.
type JWTHelper struct {
	cfg config.JWTConfig
}

func NewJWTHelper(cfg config.JWTConfig) *JWTHelper {
	return &JWTHelper{cfg: cfg}
}

func (h *JWTHelper) service(t *testing.T, access time.Duration, opts ...jwt.Option) *jwt.Service {
	t.Helper()
	refresh, err := time.ParseDuration(h.cfg.RefreshTokenDuration)
	require.NoError(t, err)
	opts = append([]jwt.Option{jwt.WithIssuer(h.cfg.Issuer)}, opts...)
	return jwt.NewService(h.cfg.Secret, access, refresh, opts...)
}

func (h *JWTHelper) GenerateToken(t *testing.T, userID uuid.UUID, role user.Role) string {
	t.Helper()
	access, err := time.ParseDuration(h.cfg.AccessTokenDuration)
	require.NoError(t, err)
	token, err := h.service(t, access).GenerateAccessToken(userID, role)
	require.NoError(t, err)
	return token
}

func (h *JWTHelper) GenerateHint(t *testing.T, userID uuid.UUID, role user.Role, email string) string {
	t.Helper()
	access, err := time.ParseDuration(h.cfg.AccessTokenDuration)
	require.NoError(t, err)
	token, err := h.service(t, access).GenerateIdentityHint(userID, role, email)
	require.NoError(t, err)
	return token
}

// CreateExpiredToken signs a token whose clock ran an hour ahead of its expiry.
func (h *JWTHelper) CreateExpiredToken(t *testing.T, userID uuid.UUID, role user.Role) string {
	t.Helper()
	past := func() time.Time { return time.Now().Add(-time.Hour) }
	token, err := h.service(t, time.Minute, jwt.WithNow(past)).GenerateAccessToken(userID, role)
	require.NoError(t, err)
	return token
}
