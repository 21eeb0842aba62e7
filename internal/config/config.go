package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	API       APIConfig
	Session   SessionConfig
	Redis     RedisConfig
	Database  DatabaseConfig
	Telemetry TelemetryConfig
	Console   ConsoleConfig
}

type ServerConfig struct {
	Port         string
	CORSOrigins  string
	CookieSecure bool
}

// APIConfig points at the upstream REST backend the console drives.
type APIConfig struct {
	BaseURL string
	Timeout time.Duration
}

type SessionConfig struct {
	Backend string // "memory" or "redis"
	TTL     time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type DatabaseConfig struct {
	Driver     string // "postgres" or "sqlite"
	Host       string
	User       string
	Password   string
	Name       string
	Port       string
	SSLMode    string
	SQLitePath string
}

type TelemetryConfig struct {
	ServiceName  string
	OTLPEndpoint string
}

// ConsoleConfig holds the timings of page-level state kept by the console.
type ConsoleConfig struct {
	BannerTTL   time.Duration
	ConfirmTTL  time.Duration
	PageIdleTTL time.Duration
}

// Load reads .env (when present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	apiTimeout, err := getEnvDuration("API_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid API_TIMEOUT: %w", err)
	}
	sessionTTL, err := getEnvDuration("SESSION_TTL", 12*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	bannerTTL, err := getEnvDuration("BANNER_TTL", 3*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid BANNER_TTL: %w", err)
	}
	confirmTTL, err := getEnvDuration("CONFIRM_TTL", 2*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid CONFIRM_TTL: %w", err)
	}
	pageIdleTTL, err := getEnvDuration("PAGE_IDLE_TTL", 30*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid PAGE_IDLE_TTL: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			CORSOrigins:  getEnv("CORS_ORIGINS", "*"),
			CookieSecure: getEnv("COOKIE_SECURE", "false") == "true",
		},
		API: APIConfig{
			BaseURL: strings.TrimRight(getEnv("API_BASE_URL", ""), "/"),
			Timeout: apiTimeout,
		},
		Session: SessionConfig{
			Backend: getEnv("SESSION_BACKEND", "memory"),
			TTL:     sessionTTL,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Database: DatabaseConfig{
			Driver:     getEnv("DB_DRIVER", "postgres"),
			Host:       getEnv("DB_HOST", "localhost"),
			User:       getEnv("DB_USER", "postgres"),
			Password:   getEnv("DB_PASSWORD", ""),
			Name:       getEnv("DB_NAME", "survey_console"),
			Port:       getEnv("DB_PORT", "5432"),
			SSLMode:    getEnv("DB_SSLMODE", "disable"),
			SQLitePath: getEnv("SQLITE_PATH", "console.db"),
		},
		Telemetry: TelemetryConfig{
			ServiceName:  getEnv("SERVICE_NAME", "survey-console"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		},
		Console: ConsoleConfig{
			BannerTTL:   bannerTTL,
			ConfirmTTL:  confirmTTL,
			PageIdleTTL: pageIdleTTL,
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return ":" + c.Server.Port
}

func (c *Config) Validate() error {
	var missing []string
	if c.API.BaseURL == "" {
		missing = append(missing, "API_BASE_URL")
	}
	if c.Session.Backend == "redis" && c.Redis.Addr == "" {
		missing = append(missing, "REDIS_ADDR")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	switch c.Session.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported SESSION_BACKEND %q", c.Session.Backend)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}
