package httperr

import (
	"net/http"

	"flightshare/internal/pkg/errs"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Status int `json:"-"`
	Error  struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	Detail any `json:"detail,omitempty"`
}

// preserves original error for future monitoring
func AbortWithError(c *gin.Context, status int, err error, code, msg string, detail any) {
	if err == nil {
		panic("AbortWithError: err cannot be nil")
	}

	resp := Response{Status: status}
	resp.Error.Code = code
	resp.Error.Message = msg
	resp.Detail = detail

	_ = c.Error(&gin.Error{
		Err:  err,
		Type: gin.ErrorTypePublic,
		Meta: resp,
	})
	c.AbortWithStatusJSON(status, resp)
}

// Abort responds with the status and code derived from err's kind.
func Abort(c *gin.Context, err error, msg string) {
	AbortWithError(c, StatusOf(err), err, errs.CodeOf(err), msg, nil)
}

// StatusOf maps the error taxonomy onto HTTP. Race outcomes (already taken,
// conflicts) are 4xx so clients treat them as answers, not outages.
func StatusOf(err error) int {
	switch errs.KindOf(err) {
	case errs.ErrUnauthenticated:
		return http.StatusUnauthorized
	case errs.ErrAlreadyTaken, errs.ErrConflict, errs.ErrAlreadySettled:
		return http.StatusConflict
	case errs.ErrContinuationExpired:
		return http.StatusGone
	case errs.ErrGatewayFailure:
		return http.StatusPaymentRequired
	case errs.ErrInvalidState:
		return http.StatusUnprocessableEntity
	case errs.ErrNotFound:
		return http.StatusNotFound
	case errs.ErrForbidden:
		return http.StatusForbidden
	case errs.ErrValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
