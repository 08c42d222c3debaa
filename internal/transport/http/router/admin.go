package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-gorm-users/internal/core/config"
	"go-gin-gorm-users/internal/domain"
	"go-gin-gorm-users/internal/transport/http/handler"
	mdw "go-gin-gorm-users/internal/transport/http/middleware"
)

type AdminDeps struct {
	Cfg     *config.Config
	Log     *zap.Logger
	Users   handler.UserService
	Tokens  mdw.TokenParser
	Tracing bool
}

func NewAdminEngine(d AdminDeps) *gin.Engine {
	r := newEngine(d.Cfg, d.Log, d.Tracing)

	sys := handler.NewSystemHandler(d.Cfg.App.Name+"-admin", d.Users)
	r.GET("/health", sys.Health)
	r.GET("/metrics", mdw.MetricsHandler())

	// 管理端 v1（统一要求 admin 角色）
	admin := r.Group("/admin/v1")
	admin.Use(mdw.AuthJWT(d.Tokens, domain.RoleAdmin))

	NewRegistry(&usersModule{
		users: handler.NewUserHandler(d.Users),
		admin: handler.NewAdminHandler(d.Users),
		log:   d.Log,
	}).MountAdmin(admin)
	return r
}
