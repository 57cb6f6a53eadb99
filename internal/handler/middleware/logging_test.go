//go:build unit

package middleware_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"flightshare/internal/handler/middleware"
	"flightshare/internal/usecase/identity"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLogger(t *testing.T) {
	h := newPrincipalHarness(true)

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := gin.New()
	r.Use(middleware.RequestLogger(logger))
	r.POST("/offers/:id/accept", h.mw.Resolve(identity.OpAcceptOffer), func(c *gin.Context) {
		c.Status(http.StatusAccepted)
	})

	lastLine := func(t *testing.T) map[string]any {
		t.Helper()
		lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
		var entry map[string]any
		require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
		return entry
	}

	t.Run("正常系: 受け取ったリクエストIDを引き継ぐ", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/offers/42/accept", nil)
		req.Header.Set(middleware.RequestIDHeader, "req-123")

		w, _ := serve(r, req)

		assert.Equal(t, "req-123", w.Header().Get(middleware.RequestIDHeader))
		entry := lastLine(t)
		assert.Equal(t, "req-123", entry["request_id"])
		assert.Equal(t, "/offers/:id/accept", entry["route"])
		assert.Equal(t, float64(http.StatusAccepted), entry["status"])
		assert.Equal(t, "guest", entry["principal_kind"])
	})

	t.Run("正常系: なければ採番し認証情報も記録する", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/offers/42/accept", nil)
		req.Header.Set("Authorization", "Bearer "+h.access(h.member))

		w, _ := serve(r, req)

		id := w.Header().Get(middleware.RequestIDHeader)
		assert.NotEmpty(t, id)
		entry := lastLine(t)
		assert.Equal(t, id, entry["request_id"])
		assert.Equal(t, "authenticated", entry["principal_kind"])
		assert.Equal(t, "bearer", entry["credential"])
		assert.Equal(t, "member", entry["role"])
	})
}
