package service

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"go-gin-gorm-users/internal/domain"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
	StatsWindow  = 7 * 24 * time.Hour
	StatsTimeout = 10 * time.Second
)

type UserConfig struct {
	DefaultLimit int
	MaxLimit     int
	StatsWindow  time.Duration
}

type ListResult struct {
	Users      []domain.User     `json:"users"`
	Pagination domain.Pagination `json:"pagination"`
}

type SearchResult struct {
	Users      []domain.User     `json:"users"`
	Query      string            `json:"query"`
	Pagination domain.Pagination `json:"pagination"`
}

type UserService struct {
	repo domain.UserRepository
	cfg  UserConfig
	now  func() time.Time
	sf   singleflight.Group
}

func NewUserService(repo domain.UserRepository, cfg UserConfig) *UserService {
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = MaxLimit
	}
	if cfg.DefaultLimit <= 0 || cfg.DefaultLimit > cfg.MaxLimit {
		cfg.DefaultLimit = min(DefaultLimit, cfg.MaxLimit)
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = StatsWindow
	}
	return &UserService{repo: repo, cfg: cfg, now: time.Now}
}

// page applies defaults to non-positive values and caps limit.
func (s *UserService) page(page, limit int) domain.Page {
	if page <= 0 {
		page = DefaultPage
	}
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}
	return domain.Page{Page: page, Limit: limit}
}

func (s *UserService) List(ctx context.Context, page, limit int) (ListResult, error) {
	p := s.page(page, limit)
	users, total, err := s.repo.List(ctx, p)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Users: nonNil(users), Pagination: domain.NewPagination(p, total)}, nil
}

func (s *UserService) Search(ctx context.Context, term string, page, limit int) (SearchResult, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return SearchResult{}, domain.Validation("search term is required",
			domain.FieldError{Field: "q", Rule: "required", Message: "is required"})
	}
	p := s.page(page, limit)
	users, total, err := s.repo.Search(ctx, term, p)
	if err != nil {
		return SearchResult{}, err
	}
	return SearchResult{Users: nonNil(users), Query: term, Pagination: domain.NewPagination(p, total)}, nil
}

func (s *UserService) Get(ctx context.Context, id uint) (*domain.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *UserService) Create(ctx context.Context, in domain.CreateUserInput) (*domain.User, error) {
	u := &domain.User{Name: in.Name, Email: in.Email, Age: in.Age, Role: domain.RoleUser}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) Update(ctx context.Context, id uint, in domain.UpdateUserInput) (*domain.User, error) {
	if in.Empty() {
		return nil, domain.Validation("at least one of name, email, age is required")
	}
	return s.repo.Update(ctx, id, in)
}

// Delete reports NotFound when no active user had the id.
func (s *UserService) Delete(ctx context.Context, id uint) error {
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return domain.NotFound("user not found")
	}
	return nil
}

// Stats collapses concurrent callers into one store query. The query is detached from any
// single caller and bounded by StatsTimeout; each caller still stops waiting when its own
// context ends.
func (s *UserService) Stats(ctx context.Context) (domain.Stats, error) {
	if err := ctx.Err(); err != nil {
		return domain.Stats{}, domain.Storage("storage timeout", err)
	}
	since := s.now().Add(-s.cfg.StatsWindow)
	ch := s.sf.DoChan("stats", func() (any, error) {
		qctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), StatsTimeout)
		defer cancel()
		return s.repo.Stats(qctx, since)
	})

	select {
	case <-ctx.Done():
		return domain.Stats{}, domain.Storage("storage timeout", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return domain.Stats{}, res.Err
		}
		return res.Val.(domain.Stats), nil
	}
}

func (s *UserService) SetRole(ctx context.Context, id uint, role string) (*domain.User, error) {
	if role != domain.RoleUser && role != domain.RoleAdmin {
		return nil, domain.Validation("invalid role",
			domain.FieldError{Field: "role", Rule: "oneof", Param: "user admin", Message: "must be one of user, admin"})
	}
	return s.repo.SetRole(ctx, id, role)
}

func (s *UserService) Ping(ctx context.Context) error { return s.repo.Ping(ctx) }

func nonNil(us []domain.User) []domain.User {
	if us == nil {
		return []domain.User{}
	}
	return us
}
