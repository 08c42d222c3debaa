package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"go-gin-gorm-users/internal/core/database"
	"go-gin-gorm-users/internal/domain"
	"go-gin-gorm-users/internal/feature/user"
)

var (
	errUserNotFound = domain.NotFound("user not found")
	errEmailTaken   = domain.Conflict("email already exists")
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

type UserRepo struct {
	gw         *database.Gateway
	deleteMode domain.DeleteMode
	now        func() time.Time
	searchSQL  string
}

var _ domain.UserRepository = (*UserRepo)(nil)

func NewUserRepo(db *gorm.DB, opts ...Option) *UserRepo {
	r := &UserRepo{
		gw:         database.NewGateway(db),
		deleteMode: domain.SoftDelete,
		now:        time.Now,
		searchSQL:  searchClause(db.Dialector.Name()),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *UserRepo) List(ctx context.Context, p domain.Page) ([]domain.User, int64, error) {
	return r.page(ctx, "user_list", p, func(tx *gorm.DB) *gorm.DB { return tx })
}

func (r *UserRepo) Search(ctx context.Context, term string, p domain.Page) ([]domain.User, int64, error) {
	pat := "%" + escapeLike(domain.FoldASCII(term)) + "%"
	return r.page(ctx, "user_search", p, func(tx *gorm.DB) *gorm.DB {
		return tx.Where(r.searchSQL, pat, pat)
	})
}

// page runs count and fetch over the same filter. The chain is rebuilt for each statement,
// a gorm chain must not be reused after Count.
func (r *UserRepo) page(ctx context.Context, op string, p domain.Page, scope func(*gorm.DB) *gorm.DB) ([]domain.User, int64, error) {
	var (
		rows  []user.UserModel
		total int64
	)
	base := func() *gorm.DB {
		return scope(r.gw.Session(ctx).Model(&user.UserModel{}).Where("is_active = ?", true))
	}
	err := r.gw.Observe(op, func() error {
		if err := base().Count(&total).Error; err != nil {
			return database.Classify(err)
		}
		if total == 0 {
			return nil
		}
		return database.Classify(base().
			Order("created_at DESC").Order("id DESC").
			Offset(p.Offset()).Limit(p.Limit).
			Find(&rows).Error)
	})
	if err != nil {
		return nil, 0, err
	}

	out := make([]domain.User, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.ToDomain())
	}
	return out, total, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	return r.first(ctx, "user_get", "id = ? AND is_active = ?", id, true)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, "user_get_by_email", "email = ? AND is_active = ?", email, true)
}

func (r *UserRepo) first(ctx context.Context, op, where string, args ...any) (*domain.User, error) {
	var m user.UserModel
	err := r.gw.Observe(op, func() error {
		return database.Classify(r.gw.Session(ctx).Where(where, args...).Take(&m).Error)
	})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, errUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u := m.ToDomain()
	return &u, nil
}

// Create inserts u and fills in ID and timestamps. A taken email surfaces from the unique index.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	now := r.now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	u.IsActive = true
	if u.Role == "" {
		u.Role = domain.RoleUser
	}

	m := user.FromDomain(u)
	var res database.Result
	err := r.gw.Observe("user_create", func() (err error) {
		res, err = r.gw.Insert(ctx, &m)
		return err
	})
	if errors.Is(err, domain.ErrConflict) {
		return errEmailTaken
	}
	if err != nil {
		return err
	}
	u.ID = res.InsertedID
	return nil
}

func (r *UserRepo) Update(ctx context.Context, id uint, in domain.UpdateUserInput) (*domain.User, error) {
	fields := map[string]any{"updated_at": r.now().UTC()}
	if in.Name != nil {
		fields["name"] = *in.Name
	}
	if in.Email != nil {
		fields["email"] = *in.Email
	}
	if in.Age != nil {
		fields["age"] = *in.Age
	}
	if err := r.updates(ctx, "user_update", id, fields); err != nil {
		return nil, err
	}
	// MySQL reports zero affected rows for a no-op write, so existence is decided by the read.
	return r.GetByID(ctx, id)
}

func (r *UserRepo) SetRole(ctx context.Context, id uint, role string) (*domain.User, error) {
	fields := map[string]any{"role": role, "updated_at": r.now().UTC()}
	if err := r.updates(ctx, "user_set_role", id, fields); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *UserRepo) updates(ctx context.Context, op string, id uint, fields map[string]any) error {
	err := r.gw.Observe(op, func() error {
		return database.Classify(r.gw.Session(ctx).
			Model(&user.UserModel{}).
			Where("id = ? AND is_active = ?", id, true).
			Updates(fields).Error)
	})
	if errors.Is(err, domain.ErrConflict) {
		return errEmailTaken
	}
	return err
}

// Delete deactivates (soft) or removes (hard) an active user and reports whether a row changed.
func (r *UserRepo) Delete(ctx context.Context, id uint) (bool, error) {
	var res database.Result
	err := r.gw.Observe("user_delete", func() (err error) {
		if r.deleteMode == domain.HardDelete {
			res, err = r.gw.Execute(ctx, `DELETE FROM users WHERE id = ? AND is_active = ?`, id, true)
			return err
		}
		res, err = r.gw.Execute(ctx,
			`UPDATE users SET is_active = ?, updated_at = ? WHERE id = ? AND is_active = ?`,
			false, r.now().UTC(), id, true)
		return err
	})
	if err != nil {
		return false, err
	}
	return res.RowsAffected > 0, nil
}

type statsRow struct {
	TotalUsers  int64
	AverageAge  sql.NullFloat64
	RecentUsers sql.NullInt64
	AdminUsers  sql.NullInt64
}

const statsSQL = `SELECT
	COUNT(*) AS total_users,
	AVG(age) AS average_age,
	SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END) AS recent_users,
	SUM(CASE WHEN role = ? THEN 1 ELSE 0 END) AS admin_users
FROM users
WHERE is_active = ?`

func (r *UserRepo) Stats(ctx context.Context, since time.Time) (domain.Stats, error) {
	var row statsRow
	err := r.gw.Observe("user_stats", func() error {
		return r.gw.Query(ctx, &row, statsSQL, since.UTC(), domain.RoleAdmin, true)
	})
	if err != nil {
		return domain.Stats{}, err
	}
	return domain.Stats{
		TotalUsers:  row.TotalUsers,
		AverageAge:  row.AverageAge.Float64,
		RecentUsers: row.RecentUsers.Int64,
		AdminUsers:  row.AdminUsers.Int64,
	}, nil
}

func (r *UserRepo) Ping(ctx context.Context) error { return r.gw.Ping(ctx) }

// Seed inserts rows whose email is not taken yet and returns how many were written.
func (r *UserRepo) Seed(ctx context.Context, rows []user.UserModel) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	now := r.now().UTC()
	for i := range rows {
		rows[i].CreatedAt, rows[i].UpdatedAt = now, now
		rows[i].IsActive = true
		if rows[i].Role == "" {
			rows[i].Role = domain.RoleUser
		}
	}
	var n int64
	err := r.gw.Observe("user_seed", func() error {
		res := r.gw.Session(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
		n = res.RowsAffected
		return database.Classify(res.Error)
	})
	return n, err
}

// Migrate creates or alters the users table to match UserModel.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).AutoMigrate(&user.UserModel{}); err != nil {
		return database.Classify(err)
	}
	return nil
}

// searchClause folds A-Z only, like domain.FoldASCII. SQLite's LOWER already does that;
// Postgres' LOWER folds every letter, so it gets TRANSLATE instead. MySQL follows the
// column collation.
func searchClause(dialect string) string {
	fold := "LOWER(%s)"
	if dialect == "postgres" {
		fold = "TRANSLATE(%s, 'ABCDEFGHIJKLMNOPQRSTUVWXYZ', 'abcdefghijklmnopqrstuvwxyz')"
	}
	col := func(name string) string { return fmt.Sprintf(fold, name) }
	return "(" + col("name") + " LIKE ? ESCAPE '!' OR " + col("email") + " LIKE ? ESCAPE '!')"
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

func escapeLike(s string) string { return likeEscaper.Replace(s) }
