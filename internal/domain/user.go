package domain

import (
	"context"
	"strings"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Age          *int      `json:"age"`
	Role         string    `json:"role"` // "user"/"admin"
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CreateUserInput is the body of POST /users.
type CreateUserInput struct {
	Name  string `json:"name"  validate:"required,min=2,max=100"`
	Email string `json:"email" validate:"required,max=255,simple_email"`
	Age   *int   `json:"age"   validate:"omitempty,gte=0,lte=150"`
}

func (in *CreateUserInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
}

// UpdateUserInput carries a partial update; nil fields are left untouched.
type UpdateUserInput struct {
	Name  *string `json:"name"  validate:"omitempty,min=2,max=100"`
	Email *string `json:"email" validate:"omitempty,max=255,simple_email"`
	Age   *int    `json:"age"   validate:"omitempty,gte=0,lte=150"`
}

func (in *UpdateUserInput) Normalize() {
	if in.Name != nil {
		s := strings.TrimSpace(*in.Name)
		in.Name = &s
	}
	if in.Email != nil {
		s := strings.TrimSpace(*in.Email)
		in.Email = &s
	}
}

func (in UpdateUserInput) Empty() bool {
	return in.Name == nil && in.Email == nil && in.Age == nil
}

type RegisterInput struct {
	Name     string `json:"name"     validate:"required,min=2,max=100"`
	Email    string `json:"email"    validate:"required,max=255,simple_email"`
	Password string `json:"password" validate:"required,min=6,bcrypt_len"`
	Age      *int   `json:"age"      validate:"omitempty,gte=0,lte=150"`
}

func (in *RegisterInput) Normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
}

type LoginInput struct {
	Email    string `json:"email"    validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (in *LoginInput) Normalize() { in.Email = strings.TrimSpace(in.Email) }

type RoleInput struct {
	Role string `json:"role" validate:"required,oneof=user admin"`
}

func (in *RoleInput) Normalize() { in.Role = strings.ToLower(strings.TrimSpace(in.Role)) }

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

func (p Page) Offset() int { return (p.Page - 1) * p.Limit }

type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int   `json:"pages"`
}

func NewPagination(p Page, total int64) Pagination {
	pages := 0
	if p.Limit > 0 {
		pages = int((total + int64(p.Limit) - 1) / int64(p.Limit))
	}
	return Pagination{Page: p.Page, Limit: p.Limit, Total: total, Pages: pages}
}

type Stats struct {
	TotalUsers  int64   `json:"totalUsers"`
	AverageAge  float64 `json:"averageAge"`
	RecentUsers int64   `json:"recentUsers"`
	AdminUsers  int64   `json:"adminUsers"`
}

type DeleteMode string

const (
	SoftDelete DeleteMode = "soft"
	HardDelete DeleteMode = "hard"
)

// FoldASCII lower-cases A-Z and leaves every other rune alone, the way SQLite's LOWER() does.
// Search folds with it on both sides so every repository matches the same rows.
func FoldASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

func (m DeleteMode) Valid() bool { return m == SoftDelete || m == HardDelete }

// UserRepository reads only active users; inactive rows are invisible to every method but Create.
type UserRepository interface {
	List(ctx context.Context, p Page) ([]User, int64, error)
	Search(ctx context.Context, term string, p Page) ([]User, int64, error)
	GetByID(ctx context.Context, id uint) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, id uint, in UpdateUserInput) (*User, error)
	Delete(ctx context.Context, id uint) (bool, error)
	Stats(ctx context.Context, since time.Time) (Stats, error)
	SetRole(ctx context.Context, id uint, role string) (*User, error)
	Ping(ctx context.Context) error
}
