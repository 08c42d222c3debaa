package handler

import (
	"github.com/gin-gonic/gin"

	"go-gin-gorm-users/internal/domain"
	"go-gin-gorm-users/internal/service"
	"go-gin-gorm-users/internal/transport/http/ez"
)

// AdminHandler serves /admin/v1; the group guard has already checked the admin role.
type AdminHandler struct{ svc UserService }

func NewAdminHandler(svc UserService) *AdminHandler { return &AdminHandler{svc: svc} }

func (h *AdminHandler) ListUsers(c *gin.Context, in *ListQuery) (service.ListResult, error) {
	return h.svc.List(c.Request.Context(), in.Page, in.Limit)
}

func (h *AdminHandler) Stats(c *gin.Context, _ *struct{}) (domain.Stats, error) {
	return h.svc.Stats(c.Request.Context())
}

func (h *AdminHandler) SetRole(c *gin.Context, in *domain.RoleInput) (*domain.User, error) {
	id, err := ez.ParamID(c, "id")
	if err != nil {
		return nil, err
	}
	return h.svc.SetRole(c.Request.Context(), id, in.Role)
}
