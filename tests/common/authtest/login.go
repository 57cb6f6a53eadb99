//go:build unit || e2e

package authtest

import (
	"net/http"
	"testing"

	"flightshare/internal/handler/dto/request"
	resdto "flightshare/internal/handler/dto/response"
	"flightshare/internal/pkg/cookie"
	"flightshare/tests/common/dbtest"
	"flightshare/tests/common/httptest"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Session is what a successful login hands back to the client.
type Session struct {
	UserID       uuid.UUID
	AccessToken  string
	IdentityHint string
	Cookies      []*http.Cookie
}

func LoginUser(t *testing.T, router *gin.Engine, email, password string) Session {
	t.Helper()

	w := httptest.PerformRequest(t, router, http.MethodPost, "/api/auth/login",
		request.LoginRequest{Email: email, Password: password}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res resdto.LoginResponse
	httptest.AssertSuccessResponse(t, w, http.StatusOK, &res)

	accessCookie := httptest.ExtractCookie(w, cookie.AccessTokenCookieName)
	require.NotNil(t, accessCookie, "Access token not found in cookies")
	require.NotEmpty(t, accessCookie.Value, "Access token cookie is empty")

	return Session{
		UserID:       res.User.ID,
		AccessToken:  accessCookie.Value,
		IdentityHint: res.IdentityHint,
		Cookies:      w.Result().Cookies(),
	}
}

func CreateAndLogin(t *testing.T, db dbtest.DBLike, router *gin.Engine, email, role string) Session {
	t.Helper()
	dbtest.CreateTestUser(t, db, email, role)
	return LoginUser(t, router, email, dbtest.DefaultPassword)
}

func LogoutUser(t *testing.T, router *gin.Engine, s Session) {
	t.Helper()

	w := httptest.Perform(t, router, http.MethodPost, "/api/auth/logout", nil, httptest.WithCookies(s.Cookies...))
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
}
