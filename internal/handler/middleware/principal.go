package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"flightshare/internal/domain/principal"
	"flightshare/internal/domain/user"
	"flightshare/internal/handler/httperr"
	"flightshare/internal/pkg/cookie"
	"flightshare/internal/pkg/errs"
	"flightshare/internal/usecase/identity"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// IdentityHintHeader carries a signed hint for clients without cookies.
const IdentityHintHeader = "X-Identity-Hint"

const (
	ctxPrincipalKey = "principal"
	ctxClaimsKey    = "jwt_claims"
)

type PrincipalMiddleware struct {
	resolver   *identity.Resolver
	allowHints bool
}

func NewPrincipalMiddleware(resolver *identity.Resolver, allowHints bool) *PrincipalMiddleware {
	return &PrincipalMiddleware{
		resolver:   resolver,
		allowHints: allowHints,
	}
}

// Resolve puts the request's principal in the context. For operations that
// do not allow guests an unresolved request is rejected with 401.
func (m *PrincipalMiddleware) Resolve(op identity.Operation) gin.HandlerFunc {
	return func(c *gin.Context) {
		creds := m.credentials(c)

		p, err := m.resolver.Resolve(c.Request.Context(), creds, op)
		if err != nil {
			slog.WarnContext(c.Request.Context(), "principal resolution failed",
				"operation", op,
				"has_session", creds.SessionToken != "",
				"has_bearer", creds.BearerToken != "",
				"has_hint", creds.IdentityHint != "")
			httperr.AbortWithError(c, http.StatusUnauthorized, err, errs.CodeOf(err), "Authentication required", nil)
			return
		}

		c.Set(ctxPrincipalKey, p)
		claims := map[string]any{
			"user_id": p.SubjectID().String(),
			"kind":    string(p.Kind()),
		}
		if a, ok := principal.AsAuthenticated(p); ok {
			claims["role"] = string(a.Role)
			claims["source"] = string(a.Source)
		}
		c.Set(ctxClaimsKey, claims)
		c.Next()
	}
}

func (m *PrincipalMiddleware) RequireRoleAtLeast(minRole user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := GetAuthenticated(c)
		if !ok {
			// Unexpected: must run after Resolve
			httperr.AbortWithError(c, http.StatusInternalServerError,
				errs.New("role check without a resolved principal"), "internal", "Internal server error", nil)
			return
		}
		if !p.Role.AtLeast(minRole) {
			httperr.AbortWithError(c, http.StatusForbidden,
				errs.Newf("role %s below %s", p.Role, minRole), "forbidden", "Insufficient permissions", nil)
			return
		}
		c.Next()
	}
}

func (m *PrincipalMiddleware) credentials(c *gin.Context) identity.Credentials {
	creds := identity.Credentials{
		SessionToken: cookie.GetAccessToken(c),
	}
	if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		creds.BearerToken = strings.TrimSpace(authHeader[len("Bearer "):])
	}
	if m.allowHints {
		creds.IdentityHint = strings.TrimSpace(c.GetHeader(IdentityHintHeader))
	}
	return creds
}

func GetPrincipal(c *gin.Context) (principal.Principal, bool) {
	v, exists := c.Get(ctxPrincipalKey)
	if !exists {
		return nil, false
	}
	p, ok := v.(principal.Principal)
	return p, ok
}

// GetAuthenticated reports false for guests.
func GetAuthenticated(c *gin.Context) (principal.Authenticated, bool) {
	p, ok := GetPrincipal(c)
	if !ok {
		return principal.Authenticated{}, false
	}
	return principal.AsAuthenticated(p)
}

func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	p, ok := GetAuthenticated(c)
	if !ok {
		return uuid.Nil, false
	}
	return p.ID, true
}
