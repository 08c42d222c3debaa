package user

import (
	"time"

	"go-gin-gorm-users/internal/domain"
)

// UserModel is the row layout of the users table.
type UserModel struct {
	ID           uint    `gorm:"primaryKey;autoIncrement"`
	Name         string  `gorm:"size:100;not null"`
	Email        string  `gorm:"uniqueIndex;size:255;not null"`
	PasswordHash *string `gorm:"column:password;size:100"`
	Age          *int
	Role         string `gorm:"size:16;not null;default:user"`
	IsActive     bool   `gorm:"not null;default:true;index"`

	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (UserModel) TableName() string { return "users" }

func (m *UserModel) GetID() uint { return m.ID }

func FromDomain(u *domain.User) UserModel {
	m := UserModel{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Age:       u.Age,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	if u.PasswordHash != "" {
		h := u.PasswordHash
		m.PasswordHash = &h
	}
	return m
}

func (m UserModel) ToDomain() domain.User {
	u := domain.User{
		ID:        m.ID,
		Name:      m.Name,
		Email:     m.Email,
		Age:       m.Age,
		Role:      m.Role,
		IsActive:  m.IsActive,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.PasswordHash != nil {
		u.PasswordHash = *m.PasswordHash
	}
	return u
}

// SampleUsers are the demo rows inserted when db.seed is enabled.
func SampleUsers() []UserModel {
	age := func(n int) *int { return &n }
	return []UserModel{
		{Name: "John Doe", Email: "john@example.com", Age: age(30), Role: domain.RoleUser, IsActive: true},
		{Name: "Jane Smith", Email: "jane@example.com", Age: age(25), Role: domain.RoleUser, IsActive: true},
		{Name: "Bob Johnson", Email: "bob@example.com", Age: age(35), Role: domain.RoleUser, IsActive: true},
	}
}
