package middleware

import (
	"log/slog"
	"net/http"

	"flightshare/internal/handler/httperr"
	"flightshare/internal/pkg/errs"

	"github.com/gin-gonic/gin"
)

func internalError() httperr.Response {
	resp := httperr.Response{Status: http.StatusInternalServerError}
	resp.Error.Code = "internal"
	resp.Error.Message = "Internal server error"
	return resp
}

// ErrorHandler renders errors recorded with c.Error when the handler wrote nothing.
// The most recent public error wins; private errors never reach the client.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}
		for i := len(c.Errors) - 1; i >= 0; i-- {
			err := c.Errors[i]
			if !err.IsType(gin.ErrorTypePublic) {
				continue
			}
			if resp, ok := err.Meta.(httperr.Response); ok {
				c.JSON(resp.Status, resp)
				return
			}
		}

		last := c.Errors.Last().Err
		slog.ErrorContext(c.Request.Context(), "unhandled request error",
			"path", c.Request.URL.Path,
			"request_id", GetRequestID(c),
			"error", last.Error(),
			"stack", errs.ExtractStackLines(last, 8))
		c.JSON(http.StatusInternalServerError, internalError())
	}
}

func CustomRecovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.ErrorContext(c.Request.Context(), "recovered from panic",
					"panic", rec,
					"path", c.Request.URL.Path,
					"request_id", GetRequestID(c))
				c.AbortWithStatusJSON(http.StatusInternalServerError, internalError())
			}
		}()
		c.Next()
	}
}
