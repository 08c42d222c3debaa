package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"go-gin-gorm-users/internal/core/config"
	"go-gin-gorm-users/internal/core/server"
	mdw "go-gin-gorm-users/internal/transport/http/middleware"
	resp "go-gin-gorm-users/internal/transport/http/response"
)

// newEngine carries the middleware both binaries share.
func newEngine(cfg *config.Config, l *zap.Logger, tracing bool) *gin.Engine {
	r := server.NewRouter(server.Options{
		Name:        cfg.App.Name,
		Mode:        server.GinMode(cfg.App.Env),
		CORSOrigins: cfg.App.HTTP.CORSOrigins,
		Tracing:     tracing,
	})

	lim := cfg.Limit
	r.Use(
		mdw.RequestID(),
		mdw.AccessLog(l),
		mdw.Recovery(l),
		mdw.Metrics(),
		mdw.RateLimit(rate.Limit(lim.RPS), lim.Burst),
		mdw.RateLimitPerIP(rate.Limit(lim.PerIPRPS), lim.PerIPBurst),
		mdw.ConcurrencyLimit(lim.MaxConcurrent),
		mdw.MaxBodyBytes(cfg.App.HTTP.MaxBodyBytes),
		mdw.Timeout(cfg.App.HTTP.RequestTimeout()),
	)

	r.NoRoute(func(c *gin.Context) { resp.Abort(c, http.StatusNotFound, "route not found") })
	r.NoMethod(func(c *gin.Context) { resp.Abort(c, http.StatusMethodNotAllowed, "") })
	return r
}
