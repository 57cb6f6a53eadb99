package middleware

import (
	"log/slog"
	"net/http"
	"strconv"

	"flightshare/internal/handler/httperr"
	"flightshare/internal/pkg/config"
	"flightshare/internal/pkg/errs"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

var errRateLimited = errs.New("rate limit exceeded")

type RateLimiter struct {
	limiter *limiter.Limiter
	enabled bool
}

func NewRateLimiter(cfg config.RateLimitConfig) (*RateLimiter, error) {
	rate, err := limiter.NewRateFromFormatted(cfg.Rate)
	if err != nil {
		return nil, errs.Wrapf(err, "invalid rate limit %q", cfg.Rate)
	}
	return &RateLimiter{
		limiter: limiter.New(memory.NewStore(), rate),
		enabled: cfg.Enabled,
	}, nil
}

// PerClient limits by client IP. Store failures let the request through.
func (r *RateLimiter) PerClient() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.enabled {
			c.Next()
			return
		}

		ip := c.ClientIP()
		lctx, err := r.limiter.Get(c.Request.Context(), ip)
		if err != nil {
			slog.ErrorContext(c.Request.Context(), "rate limit lookup failed", "ip", ip, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			slog.WarnContext(c.Request.Context(), "rate limit exceeded",
				"ip", ip, "path", c.FullPath(), "limit", lctx.Limit)
			httperr.AbortWithError(c, http.StatusTooManyRequests, errRateLimited,
				"rate_limited", "Too many requests. Please try again later.", nil)
			return
		}
		c.Next()
	}
}
