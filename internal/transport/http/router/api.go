package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-gorm-users/internal/core/config"
	"go-gin-gorm-users/internal/core/limiter"
	"go-gin-gorm-users/internal/transport/http/handler"
	mdw "go-gin-gorm-users/internal/transport/http/middleware"
)

type APIDeps struct {
	Cfg     *config.Config
	Log     *zap.Logger
	Users   handler.UserService
	Auth    handler.AuthService
	Tokens  mdw.TokenParser
	Login   limiter.Limiter // login attempts per client IP
	Tracing bool
}

func NewAPIEngine(d APIDeps) *gin.Engine {
	r := newEngine(d.Cfg, d.Log, d.Tracing)

	sys := handler.NewSystemHandler(d.Cfg.App.Name, d.Users)
	r.GET("/", sys.Index(r.Routes))
	r.GET("/health", sys.Health)
	r.GET("/metrics", mdw.MetricsHandler())

	var writes []gin.HandlerFunc
	if d.Cfg.User.RequireAuthForWrites {
		writes = append(writes, mdw.AuthJWT(d.Tokens, ""))
	}

	reg := NewRegistry(
		&authModule{
			h:        handler.NewAuthHandler(d.Auth),
			throttle: mdw.Throttle(d.Login, d.Log, nil),
			session:  mdw.AuthJWT(d.Tokens, ""),
			log:      d.Log,
		},
		&usersModule{
			users:  handler.NewUserHandler(d.Users),
			admin:  handler.NewAdminHandler(d.Users),
			writes: writes,
			log:    d.Log,
		},
	)
	reg.MountAPI(r.Group("/api/v1"))
	return r
}
