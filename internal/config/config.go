package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Storage      StorageConfig
	RateLimit    RateLimitConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	CORSAllowOrigins      string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
	BootstrapAdmin        BootstrapAdmin
}

// BootstrapAdmin describes the ADMIN account ensured at startup.
type BootstrapAdmin struct {
	Name     string
	Email    string
	Password string
}

// Enabled reports whether a bootstrap admin was configured.
func (b BootstrapAdmin) Enabled() bool {
	return strings.TrimSpace(b.Email) != "" && b.Password != ""
}

// NotificationConfig holds outbound mail and event forwarding settings.
type NotificationConfig struct {
	SMTPHost      string
	SMTPPort      string
	SMTPUsername  string
	SMTPPassword  string
	EmailFrom     string
	EmailFromName string
	Workers       int
	QueueSize     int
	AMQPURL       string
	AMQPQueue     string
}

// StorageConfig holds MinIO settings for image uploads.
type StorageConfig struct {
	Endpoint       string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
	PublicURL      string
	UploadMaxBytes int64
}

// Enabled reports whether object storage is configured.
func (s StorageConfig) Enabled() bool {
	return s.Endpoint != "" && s.AccessKey != "" && s.SecretKey != ""
}

// RateLimitConfig bounds issue creation per user.
type RateLimitConfig struct {
	IssuesPerDay int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "civic-issue-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			CORSAllowOrigins:      getEnv("CORS_ALLOW_ORIGINS", "*"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60*24),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
			BootstrapAdmin: BootstrapAdmin{
				Name:     getEnv("BOOTSTRAP_ADMIN_NAME", "Administrator"),
				Email:    os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
				Password: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
			},
		},
		Notification: NotificationConfig{
			SMTPHost:      os.Getenv("SMTP_HOST"),
			SMTPPort:      getEnv("SMTP_PORT", "587"),
			SMTPUsername:  os.Getenv("SMTP_USERNAME"),
			SMTPPassword:  os.Getenv("SMTP_PASSWORD"),
			EmailFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
			EmailFromName: getEnv("SMTP_FROM_NAME", "Civic Issues"),
			Workers:       getEnvAsInt("NOTIFY_WORKERS", 2),
			QueueSize:     getEnvAsInt("NOTIFY_QUEUE_SIZE", 256),
			AMQPURL:       os.Getenv("AMQP_URL"),
			AMQPQueue:     getEnv("AMQP_QUEUE", "issue_events"),
		},
		Storage: StorageConfig{
			Endpoint:       os.Getenv("MINIO_ENDPOINT"),
			AccessKey:      os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey:      os.Getenv("MINIO_SECRET_KEY"),
			Bucket:         getEnv("MINIO_BUCKET", "issue-images"),
			UseSSL:         getEnvAsBool("MINIO_USE_SSL", false),
			PublicURL:      os.Getenv("MINIO_PUBLIC_URL"),
			UploadMaxBytes: int64(getEnvAsInt("UPLOAD_MAX_BYTES", 5<<20)),
		},
		RateLimit: RateLimitConfig{
			IssuesPerDay: getEnvAsInt("ISSUE_RATE_LIMIT_PER_DAY", 0),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
