package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go-gin-gorm-users/internal/domain"
	"go-gin-gorm-users/internal/repo/memory"
	"go-gin-gorm-users/internal/service"
)

// fakeUserRepo falls back to the in-memory repo for every method without an override.
type fakeUserRepo struct {
	*memory.UserRepo
	listFn  func(ctx context.Context, p domain.Page) ([]domain.User, int64, error)
	statsFn func(ctx context.Context, since time.Time) (domain.Stats, error)
}

func newFakeRepo() *fakeUserRepo { return &fakeUserRepo{UserRepo: memory.NewUserRepo()} }

func (f *fakeUserRepo) List(ctx context.Context, p domain.Page) ([]domain.User, int64, error) {
	if f.listFn != nil {
		return f.listFn(ctx, p)
	}
	return f.UserRepo.List(ctx, p)
}

func (f *fakeUserRepo) Stats(ctx context.Context, since time.Time) (domain.Stats, error) {
	if f.statsFn != nil {
		return f.statsFn(ctx, since)
	}
	return f.UserRepo.Stats(ctx, since)
}

func intp(n int) *int       { return &n }
func strp(s string) *string { return &s }

func TestUserService_ListPageDefaults(t *testing.T) {
	tests := []struct {
		name        string
		page, limit int
		want        domain.Page
	}{
		{"zero values", 0, 0, domain.Page{Page: 1, Limit: 10}},
		{"negative values", -3, -1, domain.Page{Page: 1, Limit: 10}},
		{"explicit", 2, 5, domain.Page{Page: 2, Limit: 5}},
		{"limit capped", 1, 1000, domain.Page{Page: 1, Limit: 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got domain.Page
			repo := newFakeRepo()
			repo.listFn = func(_ context.Context, p domain.Page) ([]domain.User, int64, error) {
				got = p
				return nil, 25, nil
			}
			svc := service.NewUserService(repo, service.UserConfig{})

			res, err := svc.List(context.Background(), tt.page, tt.limit)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if got != tt.want {
				t.Fatalf("repo saw %+v, want %+v", got, tt.want)
			}
			if res.Users == nil {
				t.Fatal("users should be an empty slice, not nil")
			}
			if res.Pagination.Total != 25 || res.Pagination.Page != tt.want.Page || res.Pagination.Limit != tt.want.Limit {
				t.Fatalf("unexpected pagination: %+v", res.Pagination)
			}
		})
	}
}

func TestUserService_ListTwentyFiveUsers(t *testing.T) {
	ctx := context.Background()
	svc := service.NewUserService(memory.NewUserRepo(), service.UserConfig{})
	for i := 0; i < 25; i++ {
		in := domain.CreateUserInput{Name: fmt.Sprintf("User %d", i), Email: fmt.Sprintf("u%d@example.com", i)}
		if _, err := svc.Create(ctx, in); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	res, err := svc.List(ctx, 1, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(res.Users) != 10 || res.Pagination.Pages != 3 || res.Pagination.Total != 25 {
		t.Fatalf("len=%d pagination=%+v", len(res.Users), res.Pagination)
	}
}

func TestUserService_ConfiguredMaxLimit(t *testing.T) {
	var got domain.Page
	repo := newFakeRepo()
	repo.listFn = func(_ context.Context, p domain.Page) ([]domain.User, int64, error) {
		got = p
		return nil, 0, nil
	}
	svc := service.NewUserService(repo, service.UserConfig{MaxLimit: 5})

	if _, err := svc.List(context.Background(), 1, 50); err != nil {
		t.Fatalf("list: %v", err)
	}
	if got.Limit != 5 {
		t.Fatalf("limit = %d, want 5", got.Limit)
	}
	if _, err := svc.List(context.Background(), 1, 0); err != nil {
		t.Fatalf("list: %v", err)
	}
	if got.Limit != 5 {
		t.Fatalf("default limit = %d, want 5 when max is 5", got.Limit)
	}
}

func TestUserService_Search(t *testing.T) {
	ctx := context.Background()
	svc := service.NewUserService(memory.NewUserRepo(), service.UserConfig{})
	if _, err := svc.Create(ctx, domain.CreateUserInput{Name: "John Doe", Email: "john@example.com"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	for _, term := range []string{"", "   "} {
		if _, err := svc.Search(ctx, term, 1, 10); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("term %q: got %v, want ErrValidation", term, err)
		}
	}

	res, err := svc.Search(ctx, "  john ", 0, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if res.Query != "john" || len(res.Users) != 1 || res.Pagination.Total != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}

	res, err = svc.Search(ctx, "nobody", 1, 10)
	if err != nil || len(res.Users) != 0 || res.Users == nil {
		t.Fatalf("unmatched search: %+v, %v", res, err)
	}
}

func TestUserService_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	svc := service.NewUserService(memory.NewUserRepo(), service.UserConfig{})
	u, err := svc.Create(ctx, domain.CreateUserInput{Name: "John Doe", Email: "john@example.com", Age: intp(30)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Update(ctx, u.ID, domain.UpdateUserInput{}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("empty patch: got %v, want ErrValidation", err)
	}
	got, err := svc.Update(ctx, u.ID, domain.UpdateUserInput{Name: strp("John Q")})
	if err != nil || got.Name != "John Q" || *got.Age != 30 {
		t.Fatalf("update: %+v, %v", got, err)
	}

	if err := svc.Delete(ctx, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.Delete(ctx, u.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("second delete: got %v, want ErrNotFound", err)
	}
	if _, err := svc.Get(ctx, u.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("get deleted: got %v, want ErrNotFound", err)
	}
}

func TestUserService_SetRole(t *testing.T) {
	ctx := context.Background()
	svc := service.NewUserService(memory.NewUserRepo(), service.UserConfig{})
	u, _ := svc.Create(ctx, domain.CreateUserInput{Name: "Role", Email: "role@example.com"})

	if _, err := svc.SetRole(ctx, u.ID, "root"); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}
	got, err := svc.SetRole(ctx, u.ID, domain.RoleAdmin)
	if err != nil || got.Role != domain.RoleAdmin {
		t.Fatalf("set role: %+v, %v", got, err)
	}
}

func TestUserService_StatsWindow(t *testing.T) {
	var since time.Time
	repo := newFakeRepo()
	repo.statsFn = func(_ context.Context, s time.Time) (domain.Stats, error) {
		since = s
		return domain.Stats{TotalUsers: 3}, nil
	}
	svc := service.NewUserService(repo, service.UserConfig{})

	before := time.Now()
	st, err := svc.Stats(context.Background())
	if err != nil || st.TotalUsers != 3 {
		t.Fatalf("stats: %+v, %v", st, err)
	}
	want := before.Add(-7 * 24 * time.Hour)
	if d := since.Sub(want); d < 0 || d > time.Second {
		t.Fatalf("since = %v, want about %v", since, want)
	}
}

func TestUserService_StatsCoalescesConcurrentCallers(t *testing.T) {
	const n = 10
	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})

	repo := newFakeRepo()
	repo.statsFn = func(context.Context, time.Time) (domain.Stats, error) {
		if calls.Add(1) == 1 {
			close(entered)
		}
		<-release
		return domain.Stats{TotalUsers: 7}, nil
	}
	svc := service.NewUserService(repo, service.UserConfig{})

	var wg sync.WaitGroup
	results := make([]domain.Stats, n)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = svc.Stats(context.Background())
	}()
	<-entered
	for i := 1; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = svc.Stats(context.Background())
		}(i)
	}
	time.Sleep(100 * time.Millisecond)
	close(release)
	wg.Wait()

	if c := calls.Load(); c >= n {
		t.Fatalf("store queried %d times for %d callers", c, n)
	}
	for i, r := range results {
		if r.TotalUsers != 7 {
			t.Fatalf("caller %d got %+v", i, r)
		}
	}
}

func TestUserService_StatsSurvivesFirstCallerLeaving(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var queryErr atomic.Value

	repo := newFakeRepo()
	repo.statsFn = func(ctx context.Context, _ time.Time) (domain.Stats, error) {
		close(entered)
		<-release
		if err := ctx.Err(); err != nil {
			queryErr.Store(err)
			return domain.Stats{}, domain.Storage("storage timeout", err)
		}
		if _, ok := ctx.Deadline(); !ok {
			return domain.Stats{}, errors.New("stats query has no deadline")
		}
		return domain.Stats{TotalUsers: 5}, nil
	}
	svc := service.NewUserService(repo, service.UserConfig{})

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Stats(firstCtx)
		firstErr <- err
	}()
	<-entered

	second := make(chan domain.Stats, 1)
	go func() {
		st, _ := svc.Stats(context.Background())
		second <- st
	}()
	time.Sleep(50 * time.Millisecond)

	// the first client disconnects while the shared query is running
	cancelFirst()
	if err := <-firstErr; !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("first caller: %v, want ErrStorage", err)
	}
	close(release)

	if st := <-second; st.TotalUsers != 5 {
		t.Fatalf("second caller got %+v, query err %v", st, queryErr.Load())
	}
}

func TestUserService_StatsCanceledContext(t *testing.T) {
	repo := newFakeRepo()
	repo.statsFn = func(context.Context, time.Time) (domain.Stats, error) {
		t.Error("store must not be queried for a canceled caller")
		return domain.Stats{}, nil
	}
	svc := service.NewUserService(repo, service.UserConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Stats(ctx); !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("got %v, want ErrStorage", err)
	}
}

func TestUserService_StorageErrorsPropagate(t *testing.T) {
	repo := newFakeRepo()
	repo.listFn = func(context.Context, domain.Page) ([]domain.User, int64, error) {
		return nil, 0, domain.Storage("storage failure", errors.New("connection reset"))
	}
	svc := service.NewUserService(repo, service.UserConfig{})

	if _, err := svc.List(context.Background(), 1, 10); !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("got %v, want ErrStorage", err)
	}
}
