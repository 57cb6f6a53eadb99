package api

import (
	"net/http"
	"time"

	reqdto "flightshare/internal/handler/dto/request"
	resdto "flightshare/internal/handler/dto/response"
	"flightshare/internal/handler/httperr"
	"flightshare/internal/handler/middleware"
	"flightshare/internal/pkg/config"
	"flightshare/internal/pkg/cookie"
	"flightshare/internal/pkg/errs"
	"flightshare/internal/usecase/commands"
	"flightshare/internal/usecase/queries"

	"github.com/gin-gonic/gin"
)

// TokenLifetimes sizes the session cookies.
type TokenLifetimes interface {
	AccessTokenDuration() time.Duration
	RefreshTokenDuration() time.Duration
}

type AuthHandler struct {
	authCommands commands.AuthCommands
	userQueries  queries.UserQueries
	lifetimes    TokenLifetimes
	cookieCfg    config.CookieConfig
}

func NewAuthHandler(authCommands commands.AuthCommands, userQueries queries.UserQueries, lifetimes TokenLifetimes, cfg config.Config) *AuthHandler {
	return &AuthHandler{
		authCommands: authCommands,
		userQueries:  userQueries,
		lifetimes:    lifetimes,
		cookieCfg:    cfg.Cookie,
	}
}

// @Summary User login
// @Description Login with email and password. Sets session cookies and returns an identity hint for clients that cannot keep cookies.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body reqdto.LoginRequest true "Login request"
// @Success 200 {object} resdto.LoginResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req reqdto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "validation_failed", "Invalid request format", nil)
		return
	}

	result, err := h.authCommands.Login(c.Request.Context(), req)
	if err != nil {
		switch {
		case errs.Is(err, commands.ErrInvalidCredentials), errs.Is(err, commands.ErrUserNotFound):
			httperr.AbortWithError(c, http.StatusUnauthorized, err, "invalid_credentials", "Invalid email or password", nil)
		case errs.Is(err, commands.ErrUserInactive):
			httperr.AbortWithError(c, http.StatusForbidden, err, "user_inactive", "Account is inactive", nil)
		case errs.Is(err, commands.ErrAuthenticationFailed):
			httperr.AbortWithError(c, http.StatusBadRequest, err, "validation_failed", "Invalid request data", nil)
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "internal", "Internal server error", nil)
		}
		return
	}

	cookie.SetTokenCookies(c, h.cookieCfg,
		result.TokenPair.AccessToken, result.TokenPair.RefreshToken,
		h.lifetimes.AccessTokenDuration(), h.lifetimes.RefreshTokenDuration())

	c.JSON(http.StatusOK, resdto.LoginResponse{
		AccessToken:  result.TokenPair.AccessToken,
		IdentityHint: result.IdentityHint,
		User:         queries.NewAuthorizedUserView(result.User),
	})
}

// @Summary Refresh session
// @Description Exchange a refresh token (body or cookie) for a new token pair
// @Tags auth
// @Accept json
// @Produce json
// @Param request body reqdto.RefreshRequest false "Refresh request"
// @Success 200 {object} resdto.RefreshResponse
// @Failure 401 {object} httperr.Response
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req reqdto.RefreshRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.AbortWithError(c, http.StatusBadRequest, err, "validation_failed", "Invalid request format", nil)
			return
		}
	}
	refreshToken := req.RefreshToken
	if refreshToken == "" {
		refreshToken = cookie.GetRefreshToken(c)
	}
	if refreshToken == "" {
		httperr.AbortWithError(c, http.StatusUnauthorized, commands.ErrTokenValidation, "unauthenticated", "Refresh token required", nil)
		return
	}

	pair, err := h.authCommands.RefreshToken(c.Request.Context(), refreshToken)
	if err != nil {
		switch {
		case errs.Is(err, commands.ErrUserInactive):
			httperr.AbortWithError(c, http.StatusForbidden, err, "user_inactive", "Account is inactive", nil)
		case errs.Is(err, errs.ErrUnauthenticated):
			cookie.ClearTokenCookies(c, h.cookieCfg)
			httperr.AbortWithError(c, http.StatusUnauthorized, err, "unauthenticated", "Invalid or expired refresh token", nil)
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "internal", "Internal server error", nil)
		}
		return
	}

	cookie.SetTokenCookies(c, h.cookieCfg, pair.AccessToken, pair.RefreshToken,
		h.lifetimes.AccessTokenDuration(), h.lifetimes.RefreshTokenDuration())
	c.JSON(http.StatusOK, resdto.RefreshResponse{AccessToken: pair.AccessToken})
}

// @Summary User logout
// @Description Clear session cookies
// @Tags auth
// @Security BearerAuth
// @Success 204 "No Content"
// @Failure 401 {object} httperr.Response
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	// Tokens are stateless; expiring the cookies is all the server can do.
	cookie.ClearTokenCookies(c, h.cookieCfg)
	cookie.ClearContinuation(c, h.cookieCfg)
	c.Status(http.StatusNoContent)
}

// @Summary Get current user
// @Description Get current authenticated user information
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} queries.AuthorizedUserView
// @Failure 401 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithError(c, http.StatusUnauthorized, errs.ErrUnauthenticated, "unauthenticated", "User not authenticated", nil)
		return
	}

	view, err := h.userQueries.GetCurrentUser(c.Request.Context(), userID)
	if err != nil {
		switch {
		case errs.Is(err, queries.ErrUserNotFound):
			httperr.AbortWithError(c, http.StatusNotFound, err, "not_found", "User not found", nil)
		case errs.Is(err, queries.ErrUserInactive):
			httperr.AbortWithError(c, http.StatusForbidden, err, "user_inactive", "Account is inactive", nil)
		default:
			httperr.AbortWithError(c, http.StatusInternalServerError, err, "internal", "Internal server error", nil)
		}
		return
	}

	c.JSON(http.StatusOK, view)
}
