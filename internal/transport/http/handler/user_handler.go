package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"go-gin-gorm-users/internal/domain"
	"go-gin-gorm-users/internal/service"
	"go-gin-gorm-users/internal/transport/http/ez"
)

type UserService interface {
	List(ctx context.Context, page, limit int) (service.ListResult, error)
	Search(ctx context.Context, term string, page, limit int) (service.SearchResult, error)
	Get(ctx context.Context, id uint) (*domain.User, error)
	Create(ctx context.Context, in domain.CreateUserInput) (*domain.User, error)
	Update(ctx context.Context, id uint, in domain.UpdateUserInput) (*domain.User, error)
	Delete(ctx context.Context, id uint) error
	Stats(ctx context.Context) (domain.Stats, error)
	SetRole(ctx context.Context, id uint, role string) (*domain.User, error)
	Ping(ctx context.Context) error
}

type ListQuery struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

type SearchQuery struct {
	Q     string `form:"q"`
	Page  int    `form:"page"`
	Limit int    `form:"limit"`
}

type UserHandler struct{ svc UserService }

func NewUserHandler(svc UserService) *UserHandler { return &UserHandler{svc: svc} }

func (h *UserHandler) List(c *gin.Context, in *ListQuery) (service.ListResult, error) {
	return h.svc.List(c.Request.Context(), in.Page, in.Limit)
}

func (h *UserHandler) Search(c *gin.Context, in *SearchQuery) (service.SearchResult, error) {
	return h.svc.Search(c.Request.Context(), in.Q, in.Page, in.Limit)
}

func (h *UserHandler) Get(c *gin.Context, _ *struct{}) (*domain.User, error) {
	id, err := ez.ParamID(c, "id")
	if err != nil {
		return nil, err
	}
	return h.svc.Get(c.Request.Context(), id)
}

func (h *UserHandler) Create(c *gin.Context, in *domain.CreateUserInput) (*domain.User, error) {
	return h.svc.Create(c.Request.Context(), *in)
}

func (h *UserHandler) Update(c *gin.Context, in *domain.UpdateUserInput) (*domain.User, error) {
	id, err := ez.ParamID(c, "id")
	if err != nil {
		return nil, err
	}
	return h.svc.Update(c.Request.Context(), id, *in)
}

// Delete answers with an envelope that carries only a message.
func (h *UserHandler) Delete(c *gin.Context, _ *struct{}) (any, error) {
	id, err := ez.ParamID(c, "id")
	if err != nil {
		return nil, err
	}
	return nil, h.svc.Delete(c.Request.Context(), id)
}

func (h *UserHandler) Stats(c *gin.Context, _ *struct{}) (domain.Stats, error) {
	return h.svc.Stats(c.Request.Context())
}
