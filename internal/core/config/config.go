package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"go-gin-gorm-users/internal/domain"
	"go-gin-gorm-users/pkg/utils"
)

const (
	DefaultPath = "./configs/config.local.yaml"
	devSecret   = "dev-secret-change-me"
)

type HTTP struct {
	Host              string
	Port              int
	ReadTimeoutSec    int
	WriteTimeoutSec   int
	IdleTimeoutSec    int
	RequestTimeoutSec int
	MaxBodyBytes      int64
	CORSOrigins       []string `mapstructure:"corsOrigins"`
}

type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name  string
	Env   string // dev | test | prod
	HTTP  HTTP
	Admin AdminHTTP
}

type LogFile struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type Log struct {
	Level string
	JSON  bool
	File  LogFile
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int
	LeewaySec         int
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string // postgres | mysql | sqlite | memory
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	Seed               bool
	LogLevel           string
}

type SeedAdmin struct {
	Name     string
	Email    string
	Password string
}

type User struct {
	RequireAuthForWrites bool
	DeleteMode           string
	DefaultLimit         int
	MaxLimit             int
	StatsWindowDays      int
	BcryptCost           int
	Admin                SeedAdmin
}

type Limit struct {
	RPS            float64
	Burst          int
	PerIPRPS       float64 `mapstructure:"perIpRps"`
	PerIPBurst     int     `mapstructure:"perIpBurst"`
	MaxConcurrent  int64
	LoginAttempts  int
	LoginWindowSec int
}

type Trace struct {
	Enable      bool
	Endpoint    string
	SampleRatio float64
}

type Config struct {
	App   App
	Log   Log
	JWT   JWT
	DB    DB
	User  User
	Redis Redis `mapstructure:"redis"`
	Limit Limit
	Trace Trace
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "users-api")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readTimeoutSec", 5)
	v.SetDefault("app.http.writeTimeoutSec", 15)
	v.SetDefault("app.http.idleTimeoutSec", 60)
	v.SetDefault("app.http.requestTimeoutSec", 10)
	v.SetDefault("app.http.maxBodyBytes", 1<<20)
	v.SetDefault("app.http.corsOrigins", []string{})
	v.SetDefault("app.admin.host", "127.0.0.1")
	v.SetDefault("app.admin.port", 8081)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
	v.SetDefault("log.file.enable", false)
	v.SetDefault("log.file.filename", "logs/app.log")
	v.SetDefault("log.file.maxSizeMB", 100)
	v.SetDefault("log.file.maxBackups", 7)
	v.SetDefault("log.file.maxAgeDays", 30)
	v.SetDefault("log.file.compress", true)

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "users-api")
	v.SetDefault("jwt.accessTokenTTLMin", 24*60)
	v.SetDefault("jwt.leewaySec", 30)

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "file:users.db?_pragma=busy_timeout(5000)")
	v.SetDefault("db.username", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.maxOpenConns", 20)
	v.SetDefault("db.maxIdleConns", 10)
	v.SetDefault("db.connMaxLifetimeMin", 30)
	v.SetDefault("db.autoMigrate", true)
	v.SetDefault("db.seed", false)
	v.SetDefault("db.logLevel", "warn")

	v.SetDefault("user.requireAuthForWrites", true)
	v.SetDefault("user.deleteMode", string(domain.SoftDelete))
	v.SetDefault("user.defaultLimit", 10)
	v.SetDefault("user.maxLimit", 100)
	v.SetDefault("user.statsWindowDays", 7)
	v.SetDefault("user.bcryptCost", 12)
	v.SetDefault("user.admin.name", "Administrator")
	v.SetDefault("user.admin.email", "")
	v.SetDefault("user.admin.password", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("limit.rps", 200)
	v.SetDefault("limit.burst", 400)
	v.SetDefault("limit.perIpRps", 20)
	v.SetDefault("limit.perIpBurst", 40)
	v.SetDefault("limit.maxConcurrent", 300)
	v.SetDefault("limit.loginAttempts", 5)
	v.SetDefault("limit.loginWindowSec", 60)

	v.SetDefault("trace.enable", false)
	v.SetDefault("trace.endpoint", "localhost:4317")
	v.SetDefault("trace.sampleRatio", 1.0)
}

// Load reads path (falling back to CONFIG_PATH, then DefaultPath), applies APP_* environment
// overrides and validates the result. A missing file leaves defaults and environment in charge.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = DefaultPath
		}
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.JWT.Secret == "" {
		c.JWT.Secret = devSecret
	}
	return &c, nil
}

// MustLoad is Load for main packages.
func MustLoad(path string) *Config {
	c, err := Load(path)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return c
}

func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if c.JWT.Secret == "" && c.App.Env != "dev" {
		add("jwt.secret is required when app.env=%q", c.App.Env)
	}
	if c.JWT.AccessTokenTTLMin <= 0 {
		add("jwt.accessTokenTTLMin must be positive")
	}
	switch c.DB.Driver {
	case "postgres", "mysql", "sqlite", "memory":
	default:
		add("db.driver %q is not one of postgres, mysql, sqlite, memory", c.DB.Driver)
	}
	if !domain.DeleteMode(c.User.DeleteMode).Valid() {
		add("user.deleteMode %q is not one of soft, hard", c.User.DeleteMode)
	}
	if c.User.MaxLimit <= 0 {
		add("user.maxLimit must be positive")
	}
	if c.User.DefaultLimit <= 0 || c.User.DefaultLimit > c.User.MaxLimit {
		add("user.defaultLimit must be between 1 and user.maxLimit")
	}
	if c.User.BcryptCost < 4 || c.User.BcryptCost > 31 {
		add("user.bcryptCost must be between 4 and 31")
	}
	if (c.User.Admin.Email == "") != (c.User.Admin.Password == "") {
		add("user.admin.email and user.admin.password must be set together")
	}
	if len(c.User.Admin.Password) > utils.MaxPasswordBytes {
		add("user.admin.password must be at most %d bytes", utils.MaxPasswordBytes)
	}
	for name, port := range map[string]int{"app.http.port": c.App.HTTP.Port, "app.admin.port": c.App.Admin.Port} {
		if port <= 0 || port > 65535 {
			add("%s %d out of range", name, port)
		}
	}
	if c.Limit.LoginAttempts <= 0 || c.Limit.LoginWindowSec <= 0 {
		add("limit.loginAttempts and limit.loginWindowSec must be positive")
	}
	return errors.Join(errs...)
}

func (h HTTP) RequestTimeout() time.Duration {
	return time.Duration(h.RequestTimeoutSec) * time.Second
}

func (j JWT) TTL() time.Duration    { return time.Duration(j.AccessTokenTTLMin) * time.Minute }
func (j JWT) Leeway() time.Duration { return time.Duration(j.LeewaySec) * time.Second }

func (u User) StatsWindow() time.Duration {
	return time.Duration(u.StatsWindowDays) * 24 * time.Hour
}

func (l Limit) LoginWindow() time.Duration {
	return time.Duration(l.LoginWindowSec) * time.Second
}
