package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-gin-gorm-users/internal/core/auth"
	"go-gin-gorm-users/internal/core/config"
	"go-gin-gorm-users/internal/core/database"
	"go-gin-gorm-users/internal/core/limiter"
	"go-gin-gorm-users/internal/core/tracing"
	"go-gin-gorm-users/internal/domain"
	"go-gin-gorm-users/internal/feature/user"
	"go-gin-gorm-users/internal/repo"
	"go-gin-gorm-users/internal/repo/memory"
	"go-gin-gorm-users/internal/service"
	"go-gin-gorm-users/pkg/utils"
)

// App is everything both binaries share: storage, services and the token signer.
type App struct {
	Cfg     *config.Config
	Log     *zap.Logger
	Repo    domain.UserRepository
	Users   *service.UserService
	Auth    *service.AuthService
	JWT     *auth.JWTer
	Login   limiter.Limiter
	Tracing bool

	closers []func(context.Context) error
}

// New opens the store (migrating and seeding when configured), builds the services and
// bootstraps the admin account. Close releases what New opened.
func New(ctx context.Context, cfg *config.Config, l *zap.Logger) (*App, error) {
	a := &App{Cfg: cfg, Log: l}

	if err := a.openRepo(ctx); err != nil {
		_ = a.Close(ctx)
		return nil, err
	}

	a.JWT = &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    cfg.JWT.TTL(),
		Leeway: cfg.JWT.Leeway(),
	}
	a.Users = service.NewUserService(a.Repo, service.UserConfig{
		DefaultLimit: cfg.User.DefaultLimit,
		MaxLimit:     cfg.User.MaxLimit,
		StatsWindow:  cfg.User.StatsWindow(),
	})
	a.Auth = service.NewAuthService(a.Repo, a.JWT, utils.PasswordHasher{Cost: cfg.User.BcryptCost})
	a.Login = a.loginLimiter(ctx)

	if cfg.Trace.Enable {
		shutdown, err := tracing.Init(ctx, tracing.Options{
			ServiceName: cfg.App.Name,
			Env:         cfg.App.Env,
			Endpoint:    cfg.Trace.Endpoint,
			SampleRatio: cfg.Trace.SampleRatio,
		})
		if err != nil {
			// spans are optional, serving is not
			l.Warn("tracing disabled", zap.Error(err))
		} else {
			a.Tracing = true
			a.closers = append(a.closers, shutdown)
		}
	}

	if adm := cfg.User.Admin; adm.Email != "" {
		created, err := a.Auth.EnsureAdmin(ctx, adm.Name, adm.Email, adm.Password)
		if err != nil {
			_ = a.Close(ctx)
			return nil, fmt.Errorf("ensure admin: %w", err)
		}
		l.Info("admin account checked", zap.String("email", adm.Email), zap.Bool("written", created))
	}
	return a, nil
}

func (a *App) openRepo(ctx context.Context) error {
	cfg := a.Cfg
	mode := domain.DeleteMode(cfg.User.DeleteMode)

	if cfg.DB.Driver == "memory" {
		r := memory.NewUserRepo(memory.WithDeleteMode(mode))
		a.Repo = r
		if cfg.DB.Seed {
			n := 0
			for _, m := range user.SampleUsers() {
				u := m.ToDomain()
				if err := r.Create(ctx, &u); err == nil {
					n++
				} else if !errors.Is(err, domain.ErrConflict) {
					return fmt.Errorf("seed: %w", err)
				}
			}
			a.Log.Info("sample users seeded", zap.Int("inserted", n))
		}
		a.Log.Info("using in-memory store, data is lost on exit")
		return nil
	}

	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		Username:           cfg.DB.Username,
		Password:           cfg.DB.Password,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	}, a.Log)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	a.closers = append(a.closers, closeDB(db))
	a.Log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := repo.Migrate(ctx, db); err != nil {
			return fmt.Errorf("automigrate: %w", err)
		}
		a.Log.Info("automigrate done")
	}

	r := repo.NewUserRepo(db, repo.WithDeleteMode(mode))
	a.Repo = r
	if cfg.DB.Seed {
		n, err := r.Seed(ctx, user.SampleUsers())
		if err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		a.Log.Info("sample users seeded", zap.Int64("inserted", n))
	}
	return nil
}

// loginLimiter prefers Redis so every instance shares one window; without it each process
// counts on its own.
func (a *App) loginLimiter(ctx context.Context) limiter.Limiter {
	lim := a.Cfg.Limit
	if a.Cfg.Redis.Addr == "" {
		return limiter.NewMemory(lim.LoginAttempts, lim.LoginWindow())
	}

	rdb := limiter.NewClient(a.Cfg.Redis.Addr, a.Cfg.Redis.Password, a.Cfg.Redis.DB)
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		a.Log.Warn("redis unreachable, login throttle is per process",
			zap.String("addr", a.Cfg.Redis.Addr), zap.Error(err))
		return limiter.NewMemory(lim.LoginAttempts, lim.LoginWindow())
	}
	a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
	a.Log.Info("redis connected", zap.String("addr", a.Cfg.Redis.Addr))
	return limiter.NewRedis(rdb, a.Cfg.App.Name+":login:", lim.LoginAttempts, lim.LoginWindow())
}

// Close runs the closers in reverse order and joins their errors.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func closeDB(db *gorm.DB) func(context.Context) error {
	return func(context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
}
