package cookie

import (
	"net/http"
	"time"

	"flightshare/internal/pkg/config"

	"github.com/gin-gonic/gin"
)

const (
	AccessTokenCookieName  = "access_token"
	RefreshTokenCookieName = "refresh_token"
	// ContinuationCookieName carries a guest continuation grant through the
	// external login flow so the browser can resume acceptance afterwards.
	ContinuationCookieName = "offer_continuation"
)

func SetTokenCookies(c *gin.Context, cfg config.CookieConfig, accessToken, refreshToken string, accessExpiry, refreshExpiry time.Duration) {
	set(c, cfg, AccessTokenCookieName, accessToken, int(accessExpiry.Seconds()))
	set(c, cfg, RefreshTokenCookieName, refreshToken, int(refreshExpiry.Seconds()))
}

func ClearTokenCookies(c *gin.Context, cfg config.CookieConfig) {
	set(c, cfg, AccessTokenCookieName, "", -1)
	set(c, cfg, RefreshTokenCookieName, "", -1)
}

func SetContinuation(c *gin.Context, cfg config.CookieConfig, grant string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge <= 0 {
		return
	}
	set(c, cfg, ContinuationCookieName, grant, maxAge)
}

func ClearContinuation(c *gin.Context, cfg config.CookieConfig) {
	set(c, cfg, ContinuationCookieName, "", -1)
}

func GetAccessToken(c *gin.Context) string {
	token, _ := c.Cookie(AccessTokenCookieName)
	return token
}

func GetRefreshToken(c *gin.Context) string {
	token, _ := c.Cookie(RefreshTokenCookieName)
	return token
}

func GetContinuation(c *gin.Context) string {
	grant, _ := c.Cookie(ContinuationCookieName)
	return grant
}

func set(c *gin.Context, cfg config.CookieConfig, name, value string, maxAge int) {
	c.SetSameSite(getSameSite(cfg.SameSite))
	c.SetCookie(
		name,
		value,
		maxAge,
		"/",
		cfg.Domain,
		cfg.Secure,
		true, // HttpOnly
	)
}

func getSameSite(sameSite string) http.SameSite {
	switch sameSite {
	case "Strict":
		return http.SameSiteStrictMode
	case "Lax":
		return http.SameSiteLaxMode
	case "None":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
