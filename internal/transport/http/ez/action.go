package ez

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-gorm-users/internal/domain"
	mdw "go-gin-gorm-users/internal/transport/http/middleware"
	resp "go-gin-gorm-users/internal/transport/http/response"
)

type Binder string

const (
	BindJSON  Binder = "json"  // validated JSON body
	BindQuery Binder = "query" // ?a=b, normalized and validated
	BindNone  Binder = "none"  // handler reads c.Param itself
)

// Action declares one endpoint: I is the input, O the data of a successful envelope.
type Action[I any, O any] struct {
	Method  string
	Path    string
	Binder  Binder
	Status  int    // success status, 200 when zero
	Message string // optional success message
	Guards  []gin.HandlerFunc
	Handler func(c *gin.Context, in *I) (O, error)
}

type EZ struct {
	g   *gin.RouterGroup
	log *zap.Logger
}

func New(g *gin.RouterGroup, l *zap.Logger) EZ { return EZ{g: g, log: l} }

// Register mounts a on e's group behind its guards.
func Register[I any, O any](e EZ, a Action[I, O]) {
	chain := append([]gin.HandlerFunc{}, a.Guards...)
	if a.Binder == BindJSON {
		chain = append(chain, mdw.ValidateBody[I]())
	}
	chain = append(chain, func(c *gin.Context) {
		in, ok := bind[I](c, a.Binder)
		if !ok {
			return
		}
		out, err := a.Handler(c, in)
		if err != nil {
			Fail(c, e.log, err)
			return
		}
		status := a.Status
		if status == 0 {
			status = http.StatusOK
		}
		resp.JSON(c, status, resp.OKMsg(out, a.Message))
	})

	e.g.Handle(strings.ToUpper(a.Method), a.Path, chain...)
}

func bind[I any](c *gin.Context, b Binder) (*I, bool) {
	switch b {
	case BindJSON:
		in, ok := mdw.Input[I](c)
		if !ok {
			// ValidateBody always runs first for BindJSON
			Fail(c, nil, errors.New("validated input missing"))
		}
		return in, ok
	case BindQuery:
		in := new(I)
		if err := c.ShouldBindQuery(in); err != nil {
			Fail(c, nil, domain.Validation("invalid query parameters"))
			return nil, false
		}
		return in, mdw.Check(c, in)
	default:
		return new(I), true
	}
}

// Fail renders err as an envelope. Unexpected errors are logged with their cause and
// answered with a bare 500.
func Fail(c *gin.Context, l *zap.Logger, err error) {
	status, body, expected := resp.FromError(err)
	if !expected {
		if l == nil {
			l = zap.L()
		}
		fields := []zap.Field{
			zap.String("rid", c.GetString(mdw.KeyRequestID)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		}
		var de *domain.Error
		if errors.As(err, &de) && de.Err != nil {
			fields = append(fields, zap.NamedError("cause", de.Err))
		}
		l.Error("request failed", fields...)
	}
	body.RequestID = c.GetString(mdw.KeyRequestID)
	c.AbortWithStatusJSON(status, body)
}

// ParamID parses a positive integer path parameter.
func ParamID(c *gin.Context, name string) (uint, error) {
	raw := c.Param(name)
	n, err := strconv.ParseUint(raw, 10, strconv.IntSize)
	if err != nil || n == 0 {
		return 0, domain.Validation("invalid "+name, domain.FieldError{
			Field: name, Rule: "numeric", Message: "must be a positive integer",
		})
	}
	return uint(n), nil
}
