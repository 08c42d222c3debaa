package database_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"go-gin-gorm-users/internal/core/database"
	"go-gin-gorm-users/internal/domain"
)

type note struct {
	ID   uint   `gorm:"primaryKey"`
	Slug string `gorm:"uniqueIndex;size:64"`
}

func (n *note) GetID() uint { return n.ID }

func newGateway(t *testing.T) *database.Gateway {
	t.Helper()
	db, err := database.NewGorm(database.Opts{Driver: "sqlite", LogLevel: "silent"}, zap.NewNop())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&note{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return database.NewGateway(db)
}

func TestGateway_InsertQueryExecute(t *testing.T) {
	ctx := context.Background()
	gw := newGateway(t)

	res, err := gw.Insert(ctx, &note{Slug: "a"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if res.InsertedID == 0 || res.RowsAffected != 1 {
		t.Fatalf("unexpected insert result: %+v", res)
	}

	_, err = gw.Insert(ctx, &note{Slug: "a"})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("duplicate insert: got %v, want conflict", err)
	}

	var count int64
	if err := gw.Query(ctx, &count, "SELECT COUNT(*) FROM notes"); err != nil {
		t.Fatalf("query: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}

	ex, err := gw.Execute(ctx, "DELETE FROM notes WHERE id = ?", res.InsertedID)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if ex.RowsAffected != 1 {
		t.Fatalf("rows affected = %d, want 1", ex.RowsAffected)
	}

	if err := gw.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestGateway_CanceledContextIsStorageError(t *testing.T) {
	gw := newGateway(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gw.Execute(ctx, "DELETE FROM notes")
	if !errors.Is(err, domain.ErrStorage) {
		t.Fatalf("got %v, want storage error", err)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"pg unique", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"}), domain.ErrConflict},
		{"mysql duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}, domain.ErrConflict},
		{"sqlite unique", errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)"), domain.ErrConflict},
		{"pg canceled", &pgconn.PgError{Code: "57014"}, domain.ErrStorage},
		{"deadline", context.DeadlineExceeded, domain.ErrStorage},
		{"other", errors.New("connection refused"), domain.ErrStorage},
		{"domain passthrough", domain.NotFound("user not found"), domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := database.Classify(tt.err)
			if !errors.Is(got, tt.want) {
				t.Fatalf("Classify(%v) = %v, want kind %v", tt.err, got, tt.want)
			}
		})
	}

	if database.Classify(nil) != nil {
		t.Fatalf("Classify(nil) should be nil")
	}
}

func TestClassify_HidesDriverText(t *testing.T) {
	err := database.Classify(errors.New(`pq: relation "users" does not exist`))
	if err.Error() != "storage failure" {
		t.Fatalf("driver text leaked: %q", err.Error())
	}
}
