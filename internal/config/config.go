// Package config loads application configuration from defaults, an optional YAML file,
// a .env file and environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes structured environment variables. Nested keys are
// separated by a double underscore: ACCOUNT_GARDEN_DATABASE__MAX_OPEN_CONNS.
const EnvPrefix = "ACCOUNT_GARDEN_"

// Authentication strategies.
const (
	StrategyToken   = "token"
	StrategySession = "session"
)

// Session store backends.
const (
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// DefaultJWTSecret is the development placeholder; it is rejected in production.
const DefaultJWTSecret = "change-me-in-production"

// Config is the root application configuration.
type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Log       LogConfig       `koanf:"log"`
	Auth      AuthConfig      `koanf:"auth"`
	JWT       JWTConfig       `koanf:"jwt"`
	Session   SessionConfig   `koanf:"session"`
	CORS      CORSConfig      `koanf:"cors"`
	Bootstrap BootstrapConfig `koanf:"bootstrap"`
}

// AppConfig contains general application settings.
type AppConfig struct {
	Env string `koanf:"env"`
}

// IsProduction reports whether internals must be hidden from error pages.
func (c AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              string        `koanf:"port"`
	MetricsPort       string        `koanf:"metrics_port"`
	ReadTimeout       time.Duration `koanf:"read_timeout"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	WriteTimeout      time.Duration `koanf:"write_timeout"`
	IdleTimeout       time.Duration `koanf:"idle_timeout"`
}

// DatabaseConfig contains PostgreSQL settings.
// URL takes precedence over the individual connection parameters.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	User            string        `koanf:"user"`
	Password        string        `koanf:"password"`
	Name            string        `koanf:"name"`
	SSLMode         string        `koanf:"sslmode"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `koanf:"connect_timeout"`
	ConnectAttempts int           `koanf:"connect_attempts"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// DSN returns the connection URL.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	if c.SSLMode != "" {
		q := url.Values{}
		q.Set("sslmode", c.SSLMode)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// RedisConfig contains Redis settings used by the redis session store.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// AuthConfig selects how authenticated identity is carried between requests.
type AuthConfig struct {
	Strategy string `koanf:"strategy"`
}

// JWTConfig contains bearer token settings.
type JWTConfig struct {
	SecretKey           string        `koanf:"secret_key"`
	AccessTokenDuration time.Duration `koanf:"access_token_duration"`
}

// SessionConfig contains server-side session settings.
type SessionConfig struct {
	Store      string        `koanf:"store"`
	CookieName string        `koanf:"cookie_name"`
	TTL        time.Duration `koanf:"ttl"`
	Secure     bool          `koanf:"secure"`
	Domain     string        `koanf:"domain"`
	KeyPrefix  string        `koanf:"key_prefix"`
}

// CORSConfig contains CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// BootstrapConfig describes an admin account created at startup when missing.
type BootstrapConfig struct {
	AdminName     string `koanf:"admin_name"`
	AdminEmail    string `koanf:"admin_email"`
	AdminPassword string `koanf:"admin_password"`
}

var defaults = map[string]interface{}{
	"app.env": "development",

	"server.host":                "0.0.0.0",
	"server.port":                "3000",
	"server.metrics_port":        "9090",
	"server.read_timeout":        15 * time.Second,
	"server.read_header_timeout": 5 * time.Second,
	"server.write_timeout":       15 * time.Second,
	"server.idle_timeout":        60 * time.Second,

	"database.host":              "localhost",
	"database.port":              5432,
	"database.user":              "postgres",
	"database.name":              "postgres",
	"database.sslmode":           "disable",
	"database.max_open_conns":    10,
	"database.max_idle_conns":    2,
	"database.conn_max_lifetime": 30 * time.Minute,
	"database.connect_timeout":   30 * time.Second,
	"database.connect_attempts":  5,
	"database.auto_migrate":      true,

	"redis.addr": "localhost:6379",

	"log.level":  "info",
	"log.format": "json",

	"auth.strategy": StrategyToken,

	"jwt.secret_key":            DefaultJWTSecret,
	"jwt.access_token_duration": time.Hour,

	"session.store":       SessionStoreMemory,
	"session.cookie_name": "sid",
	"session.ttl":         24 * time.Hour,
	"session.key_prefix":  "session:",

	"bootstrap.admin_name": "Administrator",
}

// legacyEnv maps unprefixed variable names (PORT, DB_HOST, ...) to config keys.
var legacyEnv = map[string]string{
	"PORT":         "server.port",
	"DATABASE_URL": "database.url",
	"DB_HOST":      "database.host",
	"DB_PORT":      "database.port",
	"DB_USER":      "database.user",
	"DB_PASSWORD":  "database.password",
	"DB_NAME":      "database.name",
	"JWT_SECRET":   "jwt.secret_key",
	"REDIS_ADDR":   "redis.addr",
	"NODE_ENV":     "app.env",
	"APP_ENV":      "app.env",
}

// Load builds the configuration. path may be empty; a missing .env file is ignored.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("set default %s: %w", key, err)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	legacy := env.ProviderWithValue("", ".", func(key, value string) (string, interface{}) {
		mapped, ok := legacyEnv[key]
		if !ok || value == "" {
			return "", nil
		}
		return mapped, value
	})
	if err := k.Load(legacy, nil); err != nil {
		return nil, fmt.Errorf("load legacy environment: %w", err)
	}

	structured := env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	})
	if err := k.Load(structured, nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks settings that would otherwise fail late at request time.
func (c *Config) Validate() error {
	switch c.Auth.Strategy {
	case StrategyToken:
		if c.JWT.SecretKey == "" {
			return errors.New("jwt.secret_key is required for the token strategy")
		}
		if c.App.IsProduction() && c.JWT.SecretKey == DefaultJWTSecret {
			return errors.New("jwt.secret_key must be changed in production")
		}
		if c.JWT.AccessTokenDuration <= 0 {
			return errors.New("jwt.access_token_duration must be positive")
		}
	case StrategySession:
		switch c.Session.Store {
		case SessionStoreMemory:
		case SessionStoreRedis:
			if c.Redis.Addr == "" {
				return errors.New("redis.addr is required for the redis session store")
			}
		default:
			return fmt.Errorf("unknown session.store %q", c.Session.Store)
		}
		if c.Session.TTL <= 0 {
			return errors.New("session.ttl must be positive")
		}
		if c.Session.CookieName == "" {
			return errors.New("session.cookie_name is required")
		}
	default:
		return fmt.Errorf("unknown auth.strategy %q", c.Auth.Strategy)
	}

	if c.Bootstrap.AdminEmail != "" && c.Bootstrap.AdminPassword == "" {
		return errors.New("bootstrap.admin_password is required when bootstrap.admin_email is set")
	}

	return nil
}

// LookupEnv reports whether any configuration variable is present in the environment.
// Used by the CLI to warn when running purely on defaults.
func LookupEnv() bool {
	for name := range legacyEnv {
		if _, ok := os.LookupEnv(name); ok {
			return true
		}
	}
	for _, kv := range os.Environ() {
		if strings.HasPrefix(kv, EnvPrefix) {
			return true
		}
	}
	return false
}
