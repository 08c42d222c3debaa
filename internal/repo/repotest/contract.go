// Package repotest holds the behavioural suite every domain.UserRepository must pass.
package repotest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"go-gin-gorm-users/internal/domain"
)

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type Options struct {
	DeleteMode domain.DeleteMode
	Now        func() time.Time
}

// Factory returns an empty repository configured with opts.
type Factory func(t *testing.T, opts Options) domain.UserRepository

func intp(n int) *int       { return &n }
func strp(s string) *string { return &s }

func mustCreate(t *testing.T, r domain.UserRepository, name, email string, age *int) domain.User {
	t.Helper()
	u := domain.User{Name: name, Email: email, Age: age}
	if err := r.Create(context.Background(), &u); err != nil {
		t.Fatalf("create %s: %v", email, err)
	}
	return u
}

func Run(t *testing.T, newRepo Factory) {
	t.Run("create assigns ids and echoes email", func(t *testing.T) {
		r := newRepo(t, Options{Now: NewClock().Now})
		a := mustCreate(t, r, "Mixed Case", "Mixed.Case@Example.com", nil)
		b := mustCreate(t, r, "Other", "other@example.com", intp(20))

		if a.ID == 0 || b.ID == 0 || a.ID == b.ID {
			t.Fatalf("ids not unique: %d, %d", a.ID, b.ID)
		}
		got, err := r.GetByID(context.Background(), a.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Email != "Mixed.Case@Example.com" || got.Role != domain.RoleUser || !got.IsActive {
			t.Fatalf("unexpected user: %+v", got)
		}
		if got.Age != nil {
			t.Fatalf("age = %v, want nil", *got.Age)
		}
	})

	t.Run("duplicate email conflicts and keeps first", func(t *testing.T) {
		r := newRepo(t, Options{Now: NewClock().Now})
		first := mustCreate(t, r, "First", "dup@example.com", intp(30))

		err := r.Create(context.Background(), &domain.User{Name: "Second", Email: "dup@example.com"})
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("got %v, want ErrConflict", err)
		}

		got, err := r.GetByID(context.Background(), first.ID)
		if err != nil || got.Name != "First" {
			t.Fatalf("first user changed: %+v, %v", got, err)
		}
		_, total, _ := r.List(context.Background(), domain.Page{Page: 1, Limit: 10})
		if total != 1 {
			t.Fatalf("total = %d, want 1", total)
		}
	})

	t.Run("list paginates newest first", func(t *testing.T) {
		clock := NewClock()
		r := newRepo(t, Options{Now: clock.Now})
		for i := 1; i <= 25; i++ {
			mustCreate(t, r, fmt.Sprintf("User %02d", i), fmt.Sprintf("u%02d@example.com", i), nil)
			clock.Advance(time.Second)
		}

		users, total, err := r.List(context.Background(), domain.Page{Page: 1, Limit: 10})
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if total != 25 || len(users) != 10 {
			t.Fatalf("total=%d len=%d, want 25/10", total, len(users))
		}
		if users[0].Email != "u25@example.com" || users[9].Email != "u16@example.com" {
			t.Fatalf("order wrong: first=%s last=%s", users[0].Email, users[9].Email)
		}
		if pg := domain.NewPagination(domain.Page{Page: 1, Limit: 10}, total); pg.Pages != 3 {
			t.Fatalf("pages = %d, want 3", pg.Pages)
		}

		last, _, err := r.List(context.Background(), domain.Page{Page: 3, Limit: 10})
		if err != nil || len(last) != 5 || last[4].Email != "u01@example.com" {
			t.Fatalf("page 3: len=%d err=%v", len(last), err)
		}
		beyond, total, err := r.List(context.Background(), domain.Page{Page: 4, Limit: 10})
		if err != nil || len(beyond) != 0 || total != 25 {
			t.Fatalf("page 4: len=%d total=%d err=%v", len(beyond), total, err)
		}
	})

	t.Run("equal timestamps order by id", func(t *testing.T) {
		r := newRepo(t, Options{Now: NewClock().Now})
		a := mustCreate(t, r, "Same A", "a@same.io", nil)
		b := mustCreate(t, r, "Same B", "b@same.io", nil)

		users, _, err := r.List(context.Background(), domain.Page{Page: 1, Limit: 10})
		if err != nil || len(users) != 2 {
			t.Fatalf("list: %v", err)
		}
		if users[0].ID != b.ID || users[1].ID != a.ID {
			t.Fatalf("got ids %d,%d want %d,%d", users[0].ID, users[1].ID, b.ID, a.ID)
		}
	})

	t.Run("search is case insensitive over name and email", func(t *testing.T) {
		r := newRepo(t, Options{Now: NewClock().Now})
		mustCreate(t, r, "John Doe", "john@example.com", intp(30))
		mustCreate(t, r, "Jane Smith", "jane@example.com", intp(25))
		mustCreate(t, r, "Bob Johnson", "bob@example.com", intp(35))
		mustCreate(t, r, "Carl", "carl@JOHNNY.io", nil)
		mustCreate(t, r, "JOSÉ Álvarez", "jalvarez@example.org", nil)

		tests := []struct {
			term string
			want int64
		}{
			{"john", 3},
			{"JOHN", 3},
			{"smith", 1},
			{"example.com", 3},
			{"zzz", 0},
			{"%", 0},
			{"_", 0},
			// only A-Z fold; accented letters must match case exactly
			{"josÉ", 1},
			{"JOSÉ ÁLVAREZ", 1},
			{"josé", 0},
			{"álvarez", 0},
		}
		for _, tt := range tests {
			users, total, err := r.Search(context.Background(), tt.term, domain.Page{Page: 1, Limit: 10})
			if err != nil {
				t.Fatalf("search %q: %v", tt.term, err)
			}
			if total != tt.want || int64(len(users)) != tt.want {
				t.Fatalf("search %q: total=%d len=%d, want %d", tt.term, total, len(users), tt.want)
			}
		}
	})

	t.Run("soft delete hides user everywhere", func(t *testing.T) {
		r := newRepo(t, Options{DeleteMode: domain.SoftDelete, Now: NewClock().Now})
		gone := mustCreate(t, r, "John Doe", "john@example.com", intp(30))
		mustCreate(t, r, "Jane Smith", "jane@example.com", intp(20))
		ctx := context.Background()

		ok, err := r.Delete(ctx, gone.ID)
		if err != nil || !ok {
			t.Fatalf("delete: ok=%v err=%v", ok, err)
		}
		if _, err := r.GetByID(ctx, gone.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("get after delete: %v", err)
		}
		if _, err := r.GetByEmail(ctx, gone.Email); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("get by email after delete: %v", err)
		}
		if _, total, _ := r.List(ctx, domain.Page{Page: 1, Limit: 10}); total != 1 {
			t.Fatalf("list total = %d, want 1", total)
		}
		if _, total, _ := r.Search(ctx, "john", domain.Page{Page: 1, Limit: 10}); total != 0 {
			t.Fatalf("search total = %d, want 0", total)
		}
		if s, _ := r.Stats(ctx, time.Time{}); s.TotalUsers != 1 || s.AverageAge != 20 {
			t.Fatalf("stats after delete: %+v", s)
		}
		if _, err := r.Update(ctx, gone.ID, domain.UpdateUserInput{Age: intp(1)}); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("update after delete: %v", err)
		}
		if ok, err := r.Delete(ctx, gone.ID); err != nil || ok {
			t.Fatalf("second delete: ok=%v err=%v", ok, err)
		}
		err = r.Create(ctx, &domain.User{Name: "Again", Email: "john@example.com"})
		if !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("email should stay reserved, got %v", err)
		}
	})

	t.Run("hard delete frees the email", func(t *testing.T) {
		r := newRepo(t, Options{DeleteMode: domain.HardDelete, Now: NewClock().Now})
		u := mustCreate(t, r, "John Doe", "john@example.com", nil)
		ctx := context.Background()

		if ok, err := r.Delete(ctx, u.ID); err != nil || !ok {
			t.Fatalf("delete: ok=%v err=%v", ok, err)
		}
		if ok, _ := r.Delete(ctx, u.ID); ok {
			t.Fatal("second delete reported a row")
		}
		again := mustCreate(t, r, "John Again", "john@example.com", nil)
		if again.ID == u.ID {
			t.Fatalf("id %d reused", again.ID)
		}
	})

	t.Run("delete unknown id", func(t *testing.T) {
		r := newRepo(t, Options{Now: NewClock().Now})
		if ok, err := r.Delete(context.Background(), 999); err != nil || ok {
			t.Fatalf("ok=%v err=%v", ok, err)
		}
	})

	t.Run("partial update keeps untouched fields", func(t *testing.T) {
		clock := NewClock()
		r := newRepo(t, Options{Now: clock.Now})
		u := mustCreate(t, r, "John Doe", "john@example.com", intp(30))
		mustCreate(t, r, "Jane Smith", "jane@example.com", nil)
		clock.Advance(time.Minute)
		ctx := context.Background()

		got, err := r.Update(ctx, u.ID, domain.UpdateUserInput{Age: intp(40)})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if got.Name != "John Doe" || got.Email != "john@example.com" || got.Age == nil || *got.Age != 40 {
			t.Fatalf("unexpected user: %+v", got)
		}
		if !got.UpdatedAt.After(got.CreatedAt) {
			t.Fatalf("updatedAt %v not after createdAt %v", got.UpdatedAt, got.CreatedAt)
		}

		got, err = r.Update(ctx, u.ID, domain.UpdateUserInput{Name: strp("Johnny"), Email: strp("johnny@example.com")})
		if err != nil || got.Name != "Johnny" || got.Email != "johnny@example.com" || *got.Age != 40 {
			t.Fatalf("second update: %+v, %v", got, err)
		}
		if _, err := r.GetByEmail(ctx, "johnny@example.com"); err != nil {
			t.Fatalf("lookup by new email: %v", err)
		}

		if _, err := r.Update(ctx, u.ID, domain.UpdateUserInput{Email: strp("jane@example.com")}); !errors.Is(err, domain.ErrConflict) {
			t.Fatalf("taken email: got %v, want ErrConflict", err)
		}
		if _, err := r.Update(ctx, 999, domain.UpdateUserInput{Age: intp(1)}); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("unknown id: got %v, want ErrNotFound", err)
		}
	})

	t.Run("get by email returns the hash", func(t *testing.T) {
		r := newRepo(t, Options{Now: NewClock().Now})
		u := domain.User{Name: "Hash", Email: "hash@example.com", PasswordHash: "$2a$04$abc"}
		if err := r.Create(context.Background(), &u); err != nil {
			t.Fatalf("create: %v", err)
		}
		got, err := r.GetByEmail(context.Background(), "hash@example.com")
		if err != nil || got.PasswordHash != "$2a$04$abc" || got.ID != u.ID {
			t.Fatalf("got %+v, %v", got, err)
		}
		if _, err := r.GetByEmail(context.Background(), "HASH@example.com"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("email lookup should be exact, got %v", err)
		}
	})

	t.Run("set role", func(t *testing.T) {
		r := newRepo(t, Options{Now: NewClock().Now})
		u := mustCreate(t, r, "Role", "role@example.com", nil)
		got, err := r.SetRole(context.Background(), u.ID, domain.RoleAdmin)
		if err != nil || got.Role != domain.RoleAdmin {
			t.Fatalf("got %+v, %v", got, err)
		}
		if _, err := r.SetRole(context.Background(), 999, domain.RoleAdmin); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("unknown id: %v", err)
		}
	})

	t.Run("stats", func(t *testing.T) {
		clock := NewClock()
		r := newRepo(t, Options{Now: clock.Now})
		ctx := context.Background()

		empty, err := r.Stats(ctx, clock.Now())
		if err != nil || empty != (domain.Stats{}) {
			t.Fatalf("empty stats: %+v, %v", empty, err)
		}

		mustCreate(t, r, "Old", "old@example.com", intp(30))
		clock.Advance(10 * 24 * time.Hour)
		admin := mustCreate(t, r, "Admin", "admin@example.com", intp(25))
		mustCreate(t, r, "NoAge", "noage@example.com", nil)
		gone := mustCreate(t, r, "Gone", "gone@example.com", intp(100))
		if _, err := r.SetRole(ctx, admin.ID, domain.RoleAdmin); err != nil {
			t.Fatalf("set role: %v", err)
		}
		if _, err := r.Delete(ctx, gone.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}

		s, err := r.Stats(ctx, clock.Now().Add(-7*24*time.Hour))
		if err != nil {
			t.Fatalf("stats: %v", err)
		}
		if s.TotalUsers != 3 || s.RecentUsers != 2 || s.AdminUsers != 1 {
			t.Fatalf("unexpected counts: %+v", s)
		}
		if math.Abs(s.AverageAge-27.5) > 1e-9 {
			t.Fatalf("averageAge = %v, want 27.5", s.AverageAge)
		}
	})

	t.Run("canceled context is a storage error", func(t *testing.T) {
		r := newRepo(t, Options{Now: NewClock().Now})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, _, err := r.List(ctx, domain.Page{Page: 1, Limit: 10}); !errors.Is(err, domain.ErrStorage) {
			t.Fatalf("got %v, want ErrStorage", err)
		}
	})
}
