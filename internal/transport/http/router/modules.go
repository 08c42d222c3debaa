package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"go-gin-gorm-users/internal/core/auth"
	"go-gin-gorm-users/internal/domain"
	"go-gin-gorm-users/internal/service"
	"go-gin-gorm-users/internal/transport/http/ez"
	"go-gin-gorm-users/internal/transport/http/handler"
)

// usersModule mounts /users on the public API and the user management routes on the admin API.
type usersModule struct {
	users  *handler.UserHandler
	admin  *handler.AdminHandler
	writes []gin.HandlerFunc // guards for POST/PUT/DELETE
	log    *zap.Logger
}

func (m *usersModule) Priority() int { return 20 }

func (m *usersModule) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g.Group("/users"), m.log)
	h := m.users

	ez.Register(e, ez.Action[handler.ListQuery, service.ListResult]{
		Method: http.MethodGet, Path: "", Binder: ez.BindQuery, Handler: h.List,
	})
	ez.Register(e, ez.Action[handler.SearchQuery, service.SearchResult]{
		Method: http.MethodGet, Path: "/search", Binder: ez.BindQuery, Handler: h.Search,
	})
	ez.Register(e, ez.Action[struct{}, domain.Stats]{
		Method: http.MethodGet, Path: "/stats", Binder: ez.BindNone, Handler: h.Stats,
	})
	ez.Register(e, ez.Action[struct{}, *domain.User]{
		Method: http.MethodGet, Path: "/:id", Binder: ez.BindNone, Handler: h.Get,
	})
	ez.Register(e, ez.Action[domain.CreateUserInput, *domain.User]{
		Method: http.MethodPost, Path: "", Binder: ez.BindJSON,
		Status: http.StatusCreated, Message: "user created",
		Guards: m.writes, Handler: h.Create,
	})
	ez.Register(e, ez.Action[domain.UpdateUserInput, *domain.User]{
		Method: http.MethodPut, Path: "/:id", Binder: ez.BindJSON,
		Message: "user updated", Guards: m.writes, Handler: h.Update,
	})
	ez.Register(e, ez.Action[struct{}, any]{
		Method: http.MethodDelete, Path: "/:id", Binder: ez.BindNone,
		Message: "user deleted", Guards: m.writes, Handler: h.Delete,
	})
}

// 分组已走 AuthJWT("admin")，这里不再重复校验
func (m *usersModule) MountAdmin(g *gin.RouterGroup) {
	e := ez.New(g.Group("/users"), m.log)
	h := m.admin

	ez.Register(e, ez.Action[handler.ListQuery, service.ListResult]{
		Method: http.MethodGet, Path: "", Binder: ez.BindQuery, Handler: h.ListUsers,
	})
	ez.Register(e, ez.Action[struct{}, domain.Stats]{
		Method: http.MethodGet, Path: "/stats", Binder: ez.BindNone, Handler: h.Stats,
	})
	ez.Register(e, ez.Action[domain.RoleInput, *domain.User]{
		Method: http.MethodPut, Path: "/:id/role", Binder: ez.BindJSON,
		Message: "role updated", Handler: h.SetRole,
	})
}

type authModule struct {
	h        *handler.AuthHandler
	throttle gin.HandlerFunc // login attempts per client
	session  gin.HandlerFunc // AuthJWT for /auth/me
	log      *zap.Logger
}

func (m *authModule) Priority() int { return 10 }

func (m *authModule) MountAPI(g *gin.RouterGroup) {
	e := ez.New(g.Group("/auth"), m.log)

	ez.Register(e, ez.Action[domain.RegisterInput, service.AuthResult]{
		Method: http.MethodPost, Path: "/register", Binder: ez.BindJSON,
		Status: http.StatusCreated, Message: "user registered", Handler: m.h.Register,
	})
	ez.Register(e, ez.Action[domain.LoginInput, service.AuthResult]{
		Method: http.MethodPost, Path: "/login", Binder: ez.BindJSON,
		Message: "login successful", Guards: []gin.HandlerFunc{m.throttle}, Handler: m.h.Login,
	})
	ez.Register(e, ez.Action[struct{}, *auth.Claims]{
		Method: http.MethodGet, Path: "/verify", Binder: ez.BindNone, Handler: m.h.Verify,
	})
	ez.Register(e, ez.Action[struct{}, handler.MeOut]{
		Method: http.MethodGet, Path: "/me", Binder: ez.BindNone,
		Guards: []gin.HandlerFunc{m.session}, Handler: m.h.Me,
	})
}
