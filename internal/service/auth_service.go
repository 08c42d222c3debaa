package service

import (
	"context"
	"errors"
	"fmt"

	"go-gin-gorm-users/internal/core/auth"
	"go-gin-gorm-users/internal/domain"
)

type Tokens interface {
	Issue(uid uint, email, role string) (string, error)
	Parse(token string) (*auth.Claims, error)
}

type Hasher interface {
	Hash(pw string) (string, error)
	Check(pw, hashed string) bool
	Burn(pw string)
}

type AuthResult struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type AuthService struct {
	repo   domain.UserRepository
	tokens Tokens
	hasher Hasher
}

func NewAuthService(repo domain.UserRepository, tokens Tokens, hasher Hasher) *AuthService {
	return &AuthService{repo: repo, tokens: tokens, hasher: hasher}
}

func (s *AuthService) Register(ctx context.Context, in domain.RegisterInput) (AuthResult, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}
	u := &domain.User{
		Name:         in.Name,
		Email:        in.Email,
		Age:          in.Age,
		Role:         domain.RoleUser,
		PasswordHash: hash,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return AuthResult{}, err
	}
	return s.issue(u)
}

// Login fails with NotFound for an unknown or inactive email and with ErrAuth for a wrong
// password. Both paths cost one bcrypt comparison.
func (s *AuthService) Login(ctx context.Context, email, password string) (AuthResult, error) {
	u, err := s.repo.GetByEmail(ctx, email)
	if errors.Is(err, domain.ErrNotFound) {
		s.hasher.Burn(password)
		return AuthResult{}, domain.NotFound("user not found")
	}
	if err != nil {
		return AuthResult{}, err
	}
	if !s.hasher.Check(password, u.PasswordHash) {
		return AuthResult{}, domain.Unauthorized("invalid credentials")
	}
	return s.issue(u)
}

func (s *AuthService) issue(u *domain.User) (AuthResult, error) {
	tok, err := s.tokens.Issue(u.ID, u.Email, u.Role)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}
	return AuthResult{Token: tok, User: *u}, nil
}

func (s *AuthService) VerifyToken(token string) (*auth.Claims, error) {
	c, err := s.tokens.Parse(token)
	switch {
	case err == nil:
		return c, nil
	case errors.Is(err, auth.ErrExpiredToken):
		return nil, &domain.Error{Kind: domain.ErrAuth, Msg: "token expired", Err: err}
	default:
		return nil, &domain.Error{Kind: domain.ErrAuth, Msg: "invalid token", Err: err}
	}
}

// Me returns the profile behind a verified token.
func (s *AuthService) Me(ctx context.Context, uid uint) (*domain.User, error) {
	return s.repo.GetByID(ctx, uid)
}

// EnsureAdmin creates the bootstrap admin, or promotes an existing account with that email.
// It reports whether anything was written.
func (s *AuthService) EnsureAdmin(ctx context.Context, name, email, password string) (bool, error) {
	existing, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role == domain.RoleAdmin {
			return false, nil
		}
		if _, err := s.repo.SetRole(ctx, existing.ID, domain.RoleAdmin); err != nil {
			return false, err
		}
		return true, nil
	case !errors.Is(err, domain.ErrNotFound):
		return false, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	u := &domain.User{Name: name, Email: email, Role: domain.RoleAdmin, PasswordHash: hash}
	err = s.repo.Create(ctx, u)
	if errors.Is(err, domain.ErrConflict) {
		// soft-deleted row keeps the email reserved, or another instance won the race
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
