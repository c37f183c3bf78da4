package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DevJWTSecret signs sessions when JWT_SECRET is unset. It is public, so
// Validate refuses it in prod.
const DevJWTSecret = "dev-secret-change-me"

var ErrInsecureJWTSecret = errors.New("JWT_SECRET must be set to a private value when APP_ENV=prod")

type Config struct {
	Env  string
	Port int

	// storage
	DBDriver   string
	DBURL      string
	SQLitePath string

	// sessions
	JWTSecret     string
	JWTTTL        time.Duration
	ResetTokenTTL time.Duration
	BcryptCost    int

	// absolute origin used to build reset links; falls back to the request host
	PublicBaseURL string

	AdminEmail    string
	AdminPassword string
	AdminName     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RateLimitAuthRequests int
	RateLimitWindow       time.Duration

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	// worker
	SweepInterval    time.Duration
	WorkerHealthPort int

	OTLPEndpoint       string
	TraceSampleRatio   float64
	CORSAllowedOrigins []string
}

// CookieSecure reports whether session cookies must carry the Secure flag.
func (c Config) CookieSecure() bool {
	return c.Env == "prod"
}

// Validate rejects settings the API must not serve with.
func (c Config) Validate() error {
	if c.Env == "prod" {
		secret := strings.TrimSpace(c.JWTSecret)
		if secret == "" || secret == DevJWTSecret {
			return ErrInsecureJWTSecret
		}
	}

	return nil
}

func Load() Config {
	// .env is optional; real environment variables always win
	_ = godotenv.Load()

	return Config{
		Env:  getEnv("APP_ENV", "dev"),
		Port: getEnvInt("PORT", 5000),

		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBURL:      buildDBURL(),
		SQLitePath: getEnv("SQLITE_PATH", "data/devcamper.db"),

		JWTSecret:     getEnv("JWT_SECRET", DevJWTSecret),
		JWTTTL:        getEnvDuration("JWT_TTL", 30*24*time.Hour),
		ResetTokenTTL: getEnvDuration("RESET_TOKEN_TTL", 10*time.Minute),
		BcryptCost:    getEnvInt("BCRYPT_COST", 10),

		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),

		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminName:     getEnv("ADMIN_NAME", "Admin"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		RateLimitAuthRequests: getEnvInt("RATE_LIMIT_AUTH_REQUESTS", 10),
		RateLimitWindow:       getEnvDuration("RATE_LIMIT_WINDOW", 10*time.Minute),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		MailFrom:     getEnv("MAIL_FROM", "noreply@devcamper.io"),

		SweepInterval:    getEnvDuration("SWEEP_INTERVAL", 5*time.Minute),
		WorkerHealthPort: getEnvInt("WORKER_HEALTH_PORT", 8081),

		OTLPEndpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		TraceSampleRatio:   getEnvFloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}
}

func buildDBURL() string {
	if url := getEnv("DATABASE_URL", ""); url != "" {
		return url
	}

	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "devcamper")
	pass := getEnv("DB_PASSWORD", "devcamper")
	name := getEnv("DB_NAME", "devcamper")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

// WithTimeout bounds a store call made on behalf of a request.
func WithTimeout(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			slog.Warn("invalid integer in environment, using default", "key", key, "value", v)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("invalid number in environment, using default", "key", key, "value", v)
		return fallback
	}

	return f
}

// durations accept Go syntax ("15m") or a bare number of days ("30"), the
// latter matching how cookie lifetimes are usually configured.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	if days, err := strconv.Atoi(v); err == nil {
		return time.Duration(days) * 24 * time.Hour
	}

	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("invalid duration in environment, using default", "key", key, "value", v)
		return fallback
	}

	return d
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}

	return out
}
