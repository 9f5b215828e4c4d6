package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App    AppConfig
	DB     DBConfig
	Redis  RedisConfig
	Cache  CacheConfig
	Clicks ClicksConfig
	Admin  AdminConfig
	CORS   CORSConfig
}

type AppConfig struct {
	Port        string
	Env         string
	MetricsPort string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	MaxConns int32
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// CacheConfig TTL относится к Redis, LocalTTL к процессному кэшу.
// Процессный кэш не инвалидируется между репликами, поэтому его TTL короткий.
type CacheConfig struct {
	TTL           time.Duration
	LocalEnabled  bool
	LocalMaxItems int64
	LocalTTL      time.Duration
}

type ClicksConfig struct {
	Workers int
	Buffer  int
}

type AdminConfig struct {
	Password     string
	PasswordHash string // bcrypt, приоритетнее Password
	TokenSecret  string
	TokenTTL     time.Duration
	RequireToken bool
}

type CORSConfig struct {
	AllowedOrigins string
}

// Load читает .env из рабочей директории и переменные окружения
func Load() (*Config, error) {
	return LoadFrom(".env")
}

// LoadFrom читает указанный env-файл (если он есть) и переменные окружения.
// Переменные окружения имеют приоритет над файлом.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	cfg.App.Port = v.GetString("APP_PORT")
	cfg.App.Env = v.GetString("APP_ENV")
	cfg.App.MetricsPort = v.GetString("METRICS_PORT")

	cfg.DB.Host = v.GetString("DB_HOST")
	cfg.DB.Port = v.GetString("DB_PORT")
	cfg.DB.User = v.GetString("DB_USER")
	cfg.DB.Password = v.GetString("DB_PASSWORD")
	cfg.DB.Name = v.GetString("DB_NAME")
	cfg.DB.MaxConns = v.GetInt32("DB_MAX_CONNS")

	cfg.Redis.Enabled = v.GetBool("REDIS_ENABLED")
	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetString("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")

	cfg.Cache.TTL = v.GetDuration("CACHE_TTL")
	cfg.Cache.LocalEnabled = v.GetBool("LOCAL_CACHE_ENABLED")
	cfg.Cache.LocalMaxItems = v.GetInt64("LOCAL_CACHE_MAX_ITEMS")
	cfg.Cache.LocalTTL = v.GetDuration("LOCAL_CACHE_TTL")

	cfg.Clicks.Workers = v.GetInt("CLICK_WORKERS")
	cfg.Clicks.Buffer = v.GetInt("CLICK_BUFFER")

	cfg.Admin.Password = v.GetString("ADMIN_PASSWORD")
	cfg.Admin.PasswordHash = v.GetString("ADMIN_PASSWORD_HASH")
	cfg.Admin.TokenSecret = v.GetString("ADMIN_TOKEN_SECRET")
	cfg.Admin.TokenTTL = v.GetDuration("ADMIN_TOKEN_TTL")
	cfg.Admin.RequireToken = v.GetBool("ADMIN_REQUIRE_TOKEN")

	cfg.CORS.AllowedOrigins = strings.TrimSpace(v.GetString("ALLOWED_ORIGINS"))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("METRICS_PORT", "9090")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_MAX_CONNS", 25)
	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL", 24*time.Hour)
	v.SetDefault("LOCAL_CACHE_ENABLED", true)
	v.SetDefault("LOCAL_CACHE_MAX_ITEMS", 10000)
	v.SetDefault("LOCAL_CACHE_TTL", 5*time.Minute)
	v.SetDefault("CLICK_WORKERS", 3)
	v.SetDefault("CLICK_BUFFER", 1000)
	v.SetDefault("ADMIN_TOKEN_TTL", 12*time.Hour)
	v.SetDefault("ADMIN_REQUIRE_TOKEN", false)
	v.SetDefault("ALLOWED_ORIGINS", "*")
}

// Validate проверяет согласованность конфигурации
func (c *Config) Validate() error {
	if c.Admin.RequireToken && c.Admin.TokenSecret == "" {
		return errors.New("ADMIN_REQUIRE_TOKEN requires ADMIN_TOKEN_SECRET")
	}
	if c.Clicks.Workers <= 0 {
		return fmt.Errorf("CLICK_WORKERS must be positive, got %d", c.Clicks.Workers)
	}
	if c.Clicks.Buffer <= 0 {
		return fmt.Errorf("CLICK_BUFFER must be positive, got %d", c.Clicks.Buffer)
	}
	if c.Cache.LocalEnabled && c.Cache.LocalMaxItems <= 0 {
		return fmt.Errorf("LOCAL_CACHE_MAX_ITEMS must be positive, got %d", c.Cache.LocalMaxItems)
	}
	if c.Cache.LocalEnabled && c.Cache.LocalTTL <= 0 {
		return fmt.Errorf("LOCAL_CACHE_TTL must be positive, got %s", c.Cache.LocalTTL)
	}
	return nil
}

// DSN строка подключения для pgxpool
func (c DBConfig) DSN() string {
	return c.url("postgres")
}

// MigrationURL строка подключения для драйвера pgx/v5 в golang-migrate
func (c DBConfig) MigrationURL() string {
	return c.url("pgx5")
}

func (c DBConfig) url(scheme string) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}
