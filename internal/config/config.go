package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingJWTSecret is returned by LoadConfig when JWT_SECRET is not set.
// The access-token codec cannot run without it, so callers treat it as fatal.
var ErrMissingJWTSecret = errors.New("JWT_SECRET is required")

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Session   SessionConfig
	MongoDB   MongoDBConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Routes    RoutesConfig
	Demo      DemoConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// IsProduction reports whether cookies must carry the Secure attribute.
func (s ServerConfig) IsProduction() bool {
	return strings.EqualFold(s.Environment, "production")
}

// SessionConfig selects the refresh-token store backend.
type SessionConfig struct {
	Store       string // memory | redis | mongo | postgres
	RedisPrefix string
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type PostgresConfig struct {
	URL string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port for the redis client.
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret string
}

type RateLimitConfig struct {
	Enabled       bool
	UseRedis      bool
	RPS           float64
	Burst         int
	WindowSeconds int
}

// RoutesConfig drives the RouteGate classification lists.
type RoutesConfig struct {
	Public    []string
	Protected []string
	Landing   string
	Login     string
}

// DemoConfig seeds a user into the in-memory user store on startup.
type DemoConfig struct {
	Email    string
	Password string
	Name     string
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "5001")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_ENVIRONMENT", "development")
	v.SetDefault("SESSION_STORE", "memory")
	v.SetDefault("SESSION_REDIS_PREFIX", "refresh:")
	v.SetDefault("MONGODB_DATABASE", "facturador")
	v.SetDefault("MONGODB_TIMEOUT", 10)
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("RATE_LIMIT_ENABLED", true)
	v.SetDefault("RATE_LIMIT_USE_REDIS", false)
	v.SetDefault("RATE_LIMIT_RPS", 1.0)
	v.SetDefault("RATE_LIMIT_BURST", 5)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("ROUTES_PUBLIC", "/login,/register")
	v.SetDefault("ROUTES_PROTECTED", "/dashboard,/clients,/sellers,/stores,/price-lists,/categories,/invoices,/settings")
	v.SetDefault("ROUTES_LANDING", "/dashboard")
	v.SetDefault("ROUTES_LOGIN", "/login")
	v.SetDefault("DEMO_USER_NAME", "Demo")

	cfg := &Config{
		Server: ServerConfig{
			Port:         v.GetString("SERVER_PORT"),
			Host:         v.GetString("SERVER_HOST"),
			Environment:  v.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Session: SessionConfig{
			Store:       strings.ToLower(strings.TrimSpace(v.GetString("SESSION_STORE"))),
			RedisPrefix: v.GetString("SESSION_REDIS_PREFIX"),
		},
		MongoDB: MongoDBConfig{
			URI:      v.GetString("MONGODB_URI"),
			Database: v.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(v.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Postgres: PostgresConfig{
			URL: v.GetString("POSTGRES_URL"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
		},
		RateLimit: RateLimitConfig{
			Enabled:       v.GetBool("RATE_LIMIT_ENABLED"),
			UseRedis:      v.GetBool("RATE_LIMIT_USE_REDIS"),
			RPS:           v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         v.GetInt("RATE_LIMIT_BURST"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Routes: RoutesConfig{
			Public:    splitList(v.GetString("ROUTES_PUBLIC")),
			Protected: splitList(v.GetString("ROUTES_PROTECTED")),
			Landing:   v.GetString("ROUTES_LANDING"),
			Login:     v.GetString("ROUTES_LOGIN"),
		},
		Demo: DemoConfig{
			Email:    v.GetString("DEMO_USER_EMAIL"),
			Password: os.Getenv("DEMO_USER_PASSWORD"),
			Name:     v.GetString("DEMO_USER_NAME"),
		},
	}

	if cfg.JWT.Secret == "" {
		return nil, ErrMissingJWTSecret
	}

	return cfg, nil
}

func splitList(raw string) []string {
	out := []string{}
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
