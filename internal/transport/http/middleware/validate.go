package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"go-gin-gorm-users/internal/domain"
	resp "go-gin-gorm-users/internal/transport/http/response"
	"go-gin-gorm-users/internal/validate"
)

const KeyInput = "input"

type normalizer interface{ Normalize() }

// ValidateBody binds the JSON body into a T, trims it and checks its validate tags. Every
// violation is reported at once; on success the *T is stored under KeyInput.
func ValidateBody[T any]() gin.HandlerFunc {
	return func(c *gin.Context) {
		in := new(T)
		if err := c.ShouldBindJSON(in); err != nil {
			abortBind(c, err)
			return
		}
		if ok := Check(c, in); !ok {
			return
		}
		c.Set(KeyInput, in)
		c.Next()
	}
}

// Check normalizes and validates in, aborting with 400 on failure.
func Check(c *gin.Context, in any) bool {
	if n, ok := in.(normalizer); ok {
		n.Normalize()
	}
	if fields := validate.Struct(in); len(fields) > 0 {
		abortValidation(c, "validation failed", fields...)
		return false
	}
	return true
}

// Input returns the value stored by ValidateBody[T].
func Input[T any](c *gin.Context) (*T, bool) {
	v, ok := c.Get(KeyInput)
	if !ok {
		return nil, false
	}
	in, ok := v.(*T)
	return in, ok
}

// BindError converts a binding failure into a domain validation error.
func BindError(err error) error {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.Is(err, io.EOF):
		return domain.Validation("request body is required")
	case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
		return domain.Validation("malformed JSON")
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "body"
		}
		return domain.Validation("validation failed", domain.FieldError{
			Field:   field,
			Rule:    "type",
			Param:   typeErr.Type.String(),
			Message: "must be of type " + typeErr.Type.String(),
		})
	default:
		return domain.Validation("invalid request: " + err.Error())
	}
}

func abortBind(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		abortTooLarge(c)
		return
	}
	status, r, _ := resp.FromError(BindError(err))
	r.RequestID = c.GetString(KeyRequestID)
	c.AbortWithStatusJSON(status, r)
}

func abortValidation(c *gin.Context, msg string, fields ...domain.FieldError) {
	status, r, _ := resp.FromError(domain.Validation(msg, fields...))
	r.RequestID = c.GetString(KeyRequestID)
	c.AbortWithStatusJSON(status, r)
}

func abortTooLarge(c *gin.Context) {
	resp.Abort(c, http.StatusRequestEntityTooLarge, "")
}
