package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"go-gin-gorm-users/internal/domain"
)

var (
	dbQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Store operation latency by logical op.",
			Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1, 2, 5},
		}, []string{"op", "status"},
	)
	dbErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Subsystem: "db", Name: "errors_total", Help: "Store errors by logical op and class."},
		[]string{"op", "class"},
	)
)

func init() { prometheus.MustRegister(dbQueryDuration, dbErrorsTotal) }

// Result reports the outcome of a write statement.
type Result struct {
	InsertedID   uint
	RowsAffected int64
}

// Identifiable rows expose their primary key after insert.
type Identifiable interface{ GetID() uint }

// Gateway runs parameterized statements against the store and translates driver failures into
// domain errors. Every call inherits the caller's context deadline.
type Gateway struct{ db *gorm.DB }

func NewGateway(db *gorm.DB) *Gateway { return &Gateway{db: db} }

// Session exposes the query builder for statements the raw helpers don't cover.
func (g *Gateway) Session(ctx context.Context) *gorm.DB { return g.db.WithContext(ctx) }

func (g *Gateway) Query(ctx context.Context, dest any, sql string, args ...any) error {
	return Classify(g.db.WithContext(ctx).Raw(sql, args...).Scan(dest).Error)
}

func (g *Gateway) Execute(ctx context.Context, sql string, args ...any) (Result, error) {
	res := g.db.WithContext(ctx).Exec(sql, args...)
	if res.Error != nil {
		return Result{}, Classify(res.Error)
	}
	return Result{RowsAffected: res.RowsAffected}, nil
}

func (g *Gateway) Insert(ctx context.Context, row Identifiable) (Result, error) {
	res := g.db.WithContext(ctx).Create(row)
	if res.Error != nil {
		return Result{}, Classify(res.Error)
	}
	return Result{InsertedID: row.GetID(), RowsAffected: res.RowsAffected}, nil
}

func (g *Gateway) Ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return Classify(err)
	}
	return Classify(sqlDB.PingContext(ctx))
}

// Observe records latency and error class of one logical store operation.
func (g *Gateway) Observe(op string, fn func() error) error {
	start := time.Now()
	err := fn()
	status := "ok"
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		status = "error"
		dbErrorsTotal.WithLabelValues(op, classOf(err)).Inc()
	}
	dbQueryDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
	return err
}

// Classify maps a driver or gorm error onto the domain taxonomy.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &domain.Error{Kind: domain.ErrNotFound, Msg: "record not found", Err: err}
	case IsDuplicateKey(err):
		return &domain.Error{Kind: domain.ErrConflict, Msg: "duplicate key", Err: err}
	case isTimeout(err):
		return domain.Storage("storage timeout", err)
	default:
		return domain.Storage("storage failure", err)
	}
}

func IsDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint failed") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "57014"
}

func classOf(err error) string {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, domain.ErrConflict):
		return "unique_violation"
	case errors.As(err, &pgErr):
		return "pg_" + pgErr.Code
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	}
	if strings.Contains(strings.ToLower(err.Error()), "connection") {
		return "connection"
	}
	return "unknown"
}
