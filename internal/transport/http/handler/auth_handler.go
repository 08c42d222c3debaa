package handler

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"go-gin-gorm-users/internal/core/auth"
	"go-gin-gorm-users/internal/domain"
	"go-gin-gorm-users/internal/service"
	mdw "go-gin-gorm-users/internal/transport/http/middleware"
)

type AuthService interface {
	Register(ctx context.Context, in domain.RegisterInput) (service.AuthResult, error)
	Login(ctx context.Context, email, password string) (service.AuthResult, error)
	VerifyToken(token string) (*auth.Claims, error)
	Me(ctx context.Context, uid uint) (*domain.User, error)
}

// one message for unknown email and wrong password
var errBadCredentials = domain.Unauthorized("invalid email or password")

type MeOut struct {
	User *domain.User `json:"user"`
}

type AuthHandler struct{ svc AuthService }

func NewAuthHandler(svc AuthService) *AuthHandler { return &AuthHandler{svc: svc} }

func (h *AuthHandler) Register(c *gin.Context, in *domain.RegisterInput) (service.AuthResult, error) {
	return h.svc.Register(c.Request.Context(), *in)
}

func (h *AuthHandler) Login(c *gin.Context, in *domain.LoginInput) (service.AuthResult, error) {
	res, err := h.svc.Login(c.Request.Context(), in.Email, in.Password)
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrAuth) {
		return service.AuthResult{}, errBadCredentials
	}
	return res, err
}

func (h *AuthHandler) Verify(c *gin.Context, _ *struct{}) (*auth.Claims, error) {
	tok, ok := mdw.BearerToken(c)
	if !ok {
		return nil, domain.Unauthorized("missing token")
	}
	return h.svc.VerifyToken(tok)
}

func (h *AuthHandler) Me(c *gin.Context, _ *struct{}) (MeOut, error) {
	claims, ok := mdw.ClaimsFrom(c)
	if !ok {
		return MeOut{}, domain.Unauthorized("missing token")
	}
	u, err := h.svc.Me(c.Request.Context(), claims.UserID)
	if err != nil {
		return MeOut{}, err
	}
	return MeOut{User: u}, nil
}
