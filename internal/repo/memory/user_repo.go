package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go-gin-gorm-users/internal/domain"
)

type Option func(*UserRepo)

func WithDeleteMode(m domain.DeleteMode) Option {
	return func(r *UserRepo) {
		if m.Valid() {
			r.deleteMode = m
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *UserRepo) { r.now = now }
}

// UserRepo keeps users in process memory. Emails stay reserved after a soft delete,
// matching the unique index of the SQL store.
type UserRepo struct {
	mu      sync.RWMutex
	items   map[uint]domain.User
	byEmail map[string]uint
	nextID  uint

	deleteMode domain.DeleteMode
	now        func() time.Time
}

var _ domain.UserRepository = (*UserRepo)(nil)

func NewUserRepo(opts ...Option) *UserRepo {
	r := &UserRepo{
		items:      make(map[uint]domain.User),
		byEmail:    make(map[string]uint),
		deleteMode: domain.SoftDelete,
		now:        time.Now,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *UserRepo) List(ctx context.Context, p domain.Page) ([]domain.User, int64, error) {
	return r.page(ctx, p, func(domain.User) bool { return true })
}

func (r *UserRepo) Search(ctx context.Context, term string, p domain.Page) ([]domain.User, int64, error) {
	term = domain.FoldASCII(term)
	return r.page(ctx, p, func(u domain.User) bool {
		return strings.Contains(domain.FoldASCII(u.Name), term) ||
			strings.Contains(domain.FoldASCII(u.Email), term)
	})
}

func (r *UserRepo) page(ctx context.Context, p domain.Page, match func(domain.User) bool) ([]domain.User, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, domain.Storage("storage timeout", err)
	}

	r.mu.RLock()
	hits := make([]domain.User, 0, len(r.items))
	for _, u := range r.items {
		if u.IsActive && match(u) {
			hits = append(hits, u)
		}
	}
	r.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if !hits[i].CreatedAt.Equal(hits[j].CreatedAt) {
			return hits[i].CreatedAt.After(hits[j].CreatedAt)
		}
		return hits[i].ID > hits[j].ID
	})

	total := int64(len(hits))
	start := p.Offset()
	if start < 0 || start >= len(hits) || p.Limit <= 0 {
		return []domain.User{}, total, nil
	}
	end := start + p.Limit
	if end > len(hits) {
		end = len(hits)
	}
	return hits[start:end], total, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Storage("storage timeout", err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok || !u.IsActive {
		return nil, domain.NotFound("user not found")
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Storage("storage timeout", err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[email]
	if !ok || !r.items[id].IsActive {
		return nil, domain.NotFound("user not found")
	}
	u := r.items[id]
	return &u, nil
}

func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	if err := ctx.Err(); err != nil {
		return domain.Storage("storage timeout", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.byEmail[u.Email]; taken {
		return domain.Conflict("email already exists")
	}

	r.nextID++
	now := r.now().UTC()
	u.ID = r.nextID
	u.CreatedAt, u.UpdatedAt = now, now
	u.IsActive = true
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	r.items[u.ID] = *u
	r.byEmail[u.Email] = u.ID
	return nil
}

func (r *UserRepo) Update(ctx context.Context, id uint, in domain.UpdateUserInput) (*domain.User, error) {
	return r.mutate(ctx, id, func(u *domain.User) error {
		if in.Email != nil && *in.Email != u.Email {
			if _, taken := r.byEmail[*in.Email]; taken {
				return domain.Conflict("email already exists")
			}
			delete(r.byEmail, u.Email)
			r.byEmail[*in.Email] = u.ID
			u.Email = *in.Email
		}
		if in.Name != nil {
			u.Name = *in.Name
		}
		if in.Age != nil {
			age := *in.Age
			u.Age = &age
		}
		return nil
	})
}

func (r *UserRepo) SetRole(ctx context.Context, id uint, role string) (*domain.User, error) {
	return r.mutate(ctx, id, func(u *domain.User) error {
		u.Role = role
		return nil
	})
}

func (r *UserRepo) mutate(ctx context.Context, id uint, fn func(*domain.User) error) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.Storage("storage timeout", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok || !u.IsActive {
		return nil, domain.NotFound("user not found")
	}
	if err := fn(&u); err != nil {
		return nil, err
	}
	u.UpdatedAt = r.now().UTC()
	r.items[id] = u
	return &u, nil
}

func (r *UserRepo) Delete(ctx context.Context, id uint) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, domain.Storage("storage timeout", err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok || !u.IsActive {
		return false, nil
	}
	if r.deleteMode == domain.HardDelete {
		delete(r.items, id)
		delete(r.byEmail, u.Email)
		return true, nil
	}
	u.IsActive = false
	u.UpdatedAt = r.now().UTC()
	r.items[id] = u
	return true, nil
}

func (r *UserRepo) Stats(ctx context.Context, since time.Time) (domain.Stats, error) {
	if err := ctx.Err(); err != nil {
		return domain.Stats{}, domain.Storage("storage timeout", err)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var (
		s       domain.Stats
		ageSum  int
		ageSeen int
	)
	for _, u := range r.items {
		if !u.IsActive {
			continue
		}
		s.TotalUsers++
		if u.Age != nil {
			ageSum += *u.Age
			ageSeen++
		}
		if !u.CreatedAt.Before(since) {
			s.RecentUsers++
		}
		if u.Role == domain.RoleAdmin {
			s.AdminUsers++
		}
	}
	if ageSeen > 0 {
		s.AverageAge = float64(ageSum) / float64(ageSeen)
	}
	return s, nil
}

func (r *UserRepo) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return domain.Storage("storage timeout", err)
	}
	return nil
}
