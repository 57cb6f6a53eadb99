package middleware

import (
	"log/slog"
	"slices"

	"flightshare/internal/pkg/config"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Headers the API reads or writes on top of whatever the deployment configures.
var (
	apiRequestHeaders  = []string{IdentityHintHeader, "Idempotency-Key", RequestIDHeader}
	apiResponseHeaders = []string{RequestIDHeader, "Idempotency-Key", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"}
)

func NewCORSMiddleware(cfg config.CORSConfig) gin.HandlerFunc {
	allow := slices.Compact(slices.Sorted(slices.Values(slices.Concat(cfg.AllowHeaders, apiRequestHeaders))))
	expose := slices.Compact(slices.Sorted(slices.Values(slices.Concat(cfg.ExposeHeaders, apiResponseHeaders))))

	slog.Info("CORS middleware initialized",
		"allow_origins", cfg.AllowOrigins,
		"allow_credentials", cfg.AllowCredentials)

	return cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     cfg.AllowMethods,
		AllowHeaders:     allow,
		ExposeHeaders:    expose,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})
}
