package repo_test

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-gin-gorm-users/internal/core/database"
	"go-gin-gorm-users/internal/domain"
	"go-gin-gorm-users/internal/feature/user"
	"go-gin-gorm-users/internal/repo"
	"go-gin-gorm-users/internal/repo/repotest"
)

func openSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewGorm(database.Opts{Driver: "sqlite", LogLevel: "silent"}, zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestUserRepo_Contract(t *testing.T) {
	repotest.Run(t, func(t *testing.T, o repotest.Options) domain.UserRepository {
		return repo.NewUserRepo(openSQLite(t), repo.WithDeleteMode(o.DeleteMode), repo.WithClock(o.Now))
	})
}

func TestUserRepo_SeedSkipsTakenEmails(t *testing.T) {
	ctx := context.Background()
	r := repo.NewUserRepo(openSQLite(t))

	n, err := r.Seed(ctx, user.SampleUsers())
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if n != 3 {
		t.Fatalf("seeded %d rows, want 3", n)
	}

	n, err = r.Seed(ctx, user.SampleUsers())
	if err != nil {
		t.Fatalf("reseed: %v", err)
	}
	if n != 0 {
		t.Fatalf("reseed wrote %d rows, want 0", n)
	}

	users, total, err := r.Search(ctx, "john", domain.Page{Page: 1, Limit: 10})
	if err != nil || total != 2 || len(users) != 2 {
		t.Fatalf("search after seed: total=%d err=%v", total, err)
	}
}

func TestUserRepo_PasswordColumnIsNullable(t *testing.T) {
	ctx := context.Background()
	db := openSQLite(t)
	r := repo.NewUserRepo(db)

	u := domain.User{Name: "No Pass", Email: "nopass@example.com"}
	if err := r.Create(ctx, &u); err != nil {
		t.Fatalf("create: %v", err)
	}

	var nulls int64
	if err := db.Raw("SELECT COUNT(*) FROM users WHERE password IS NULL").Scan(&nulls).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if nulls != 1 {
		t.Fatalf("rows with null password = %d, want 1", nulls)
	}
}
