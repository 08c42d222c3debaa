package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-gin-gorm-users/internal/domain"
)

// KeyRequestID is where middleware.RequestID stores the id on the gin context.
const KeyRequestID = "X-Request-ID"

type Resp struct {
	Success   bool                `json:"success"`
	Data      any                 `json:"data,omitempty"`
	Message   string              `json:"message,omitempty"`
	Error     string              `json:"error,omitempty"`
	Details   []domain.FieldError `json:"details,omitempty"`
	RequestID string              `json:"requestId,omitempty"`
}

func OK(data any) Resp { return Resp{Success: true, Data: data} }

func OKMsg(data any, msg string) Resp { return Resp{Success: true, Data: data, Message: msg} }

func Error(status int, customMsg string) Resp {
	msg := customMsg
	if msg == "" {
		msg = StatusText(status)
	}
	return Resp{Success: false, Error: msg}
}

// JSON writes r with status and stamps the request id.
func JSON(c *gin.Context, status int, r Resp) {
	r.RequestID = c.GetString(KeyRequestID)
	c.JSON(status, r)
}

// Abort is JSON followed by gin's abort, for middleware.
func Abort(c *gin.Context, status int, customMsg string) {
	r := Error(status, customMsg)
	r.RequestID = c.GetString(KeyRequestID)
	c.AbortWithStatusJSON(status, r)
}

// FromError maps a domain error onto its status and envelope. Anything unrecognised is a 500
// whose body carries no detail; expected reports whether err was a known domain kind.
func FromError(err error) (status int, r Resp, expected bool) {
	var de *domain.Error
	msg := ""
	if errors.As(err, &de) {
		msg = de.Msg
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		r = Error(http.StatusBadRequest, msg)
		r.Details = domain.FieldsOf(err)
		return http.StatusBadRequest, r, true
	case errors.Is(err, domain.ErrAuth):
		return http.StatusUnauthorized, Error(http.StatusUnauthorized, msg), true
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, Error(http.StatusNotFound, msg), true
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, Error(http.StatusConflict, msg), true
	default:
		// storage and unknown failures share one opaque body
		return http.StatusInternalServerError, Error(http.StatusInternalServerError, ""), false
	}
}
