package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

const devSigningKey = "dev-secret-key-change-in-production"

// Server captures process level configuration.
type Server struct {
	Addr              string
	Environment       string
	AdminToken        string
	SessionSigningKey string
	RequestTimeout    time.Duration
	ShutdownTimeout   time.Duration

	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	Activity  ActivityConfig
	Peruri    PeruriConfig
	Storage   StorageConfig
	RateLimit RateLimitConfig
}

// DatabaseConfig holds PostgreSQL pool settings.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	RunMigrations   bool
}

// RedisConfig holds Redis connection settings. An empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds broker settings. Empty brokers disable the outbox worker.
type KafkaConfig struct {
	Brokers string
	Acks    string
}

// ActivityConfig tunes the activity log pipeline.
type ActivityConfig struct {
	Topic        string
	BufferSize   int
	PollInterval time.Duration
	Retention    time.Duration
}

// PeruriConfig holds the gateway credentials and per-operation timeouts.
type PeruriConfig struct {
	BaseURL             string
	APIKey              string
	SystemID            string
	TokenTTL            time.Duration // used when the token carries no usable expiry
	TokenTimeout        time.Duration
	CheckTimeout        time.Duration
	KYCTimeout          time.Duration
	RegistrationTimeout time.Duration
}

// StorageConfig describes the file storage collaborator.
type StorageConfig struct {
	PublicBaseURL string
	SigningKey    string
	URLTTL        time.Duration
	MaxFileBytes  int64
}

// RateLimitConfig caps KYC and registration submissions per user.
type RateLimitConfig struct {
	Disabled    bool
	Submissions int
	Window      time.Duration
}

// IsProduction reports whether the service runs with production safeguards.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:              getEnv("ESIGN_ADDR", ":8080"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		AdminToken:        os.Getenv("ADMIN_API_TOKEN"),
		SessionSigningKey: getEnv("SESSION_SIGNING_KEY", devSigningKey),
		RequestTimeout:    getDuration("ESIGN_REQUEST_TIMEOUT", 60*time.Second),
		ShutdownTimeout:   getDuration("ESIGN_SHUTDOWN_TIMEOUT", 15*time.Second),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
			RunMigrations:   getBool("DATABASE_MIGRATE", true),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: os.Getenv("KAFKA_BROKERS"),
			Acks:    getEnv("KAFKA_ACKS", "all"),
		},
		Activity: ActivityConfig{
			Topic:        getEnv("ACTIVITY_TOPIC", "esign.activity.events"),
			BufferSize:   getInt("ACTIVITY_BUFFER_SIZE", 1000),
			PollInterval: getDuration("ACTIVITY_POLL_INTERVAL", 500*time.Millisecond),
			Retention:    getDuration("ACTIVITY_RETENTION", 7*24*time.Hour),
		},
		Peruri: PeruriConfig{
			BaseURL:             os.Getenv("PERURI_BASE_URL"),
			APIKey:              os.Getenv("PERURI_API_KEY"),
			SystemID:            os.Getenv("PERURI_SYSTEM_ID"),
			TokenTTL:            getDuration("PERURI_TOKEN_TTL", 30*time.Minute),
			TokenTimeout:        getDuration("PERURI_TOKEN_TIMEOUT", 10*time.Second),
			CheckTimeout:        getDuration("PERURI_CHECK_TIMEOUT", 15*time.Second),
			KYCTimeout:          getDuration("PERURI_KYC_TIMEOUT", 30*time.Second),
			RegistrationTimeout: getDuration("PERURI_REGISTRATION_TIMEOUT", 30*time.Second),
		},
		Storage: StorageConfig{
			PublicBaseURL: os.Getenv("STORAGE_PUBLIC_URL"),
			SigningKey:    getEnv("STORAGE_SIGNING_KEY", devSigningKey),
			URLTTL:        getDuration("STORAGE_URL_TTL", 5*time.Minute),
			MaxFileBytes:  int64(getInt("STORAGE_MAX_FILE_BYTES", 10<<20)),
		},
		RateLimit: RateLimitConfig{
			Disabled:    getBool("RATELIMIT_DISABLED", false),
			Submissions: getInt("RATELIMIT_KYC_SUBMISSIONS", 5),
			Window:      getDuration("RATELIMIT_KYC_WINDOW", 15*time.Minute),
		},
	}
}

// Validate reports every missing or unsafe setting at once.
func (s Server) Validate() error {
	var errs []error
	if s.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if s.Peruri.BaseURL == "" {
		errs = append(errs, errors.New("PERURI_BASE_URL is required"))
	}
	if s.Peruri.APIKey == "" {
		errs = append(errs, errors.New("PERURI_API_KEY is required"))
	}
	if s.Peruri.SystemID == "" {
		errs = append(errs, errors.New("PERURI_SYSTEM_ID is required"))
	}
	for name, d := range map[string]time.Duration{
		"PERURI_TOKEN_TIMEOUT":        s.Peruri.TokenTimeout,
		"PERURI_CHECK_TIMEOUT":        s.Peruri.CheckTimeout,
		"PERURI_KYC_TIMEOUT":          s.Peruri.KYCTimeout,
		"PERURI_REGISTRATION_TIMEOUT": s.Peruri.RegistrationTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if s.IsProduction() {
		if s.SessionSigningKey == devSigningKey {
			errs = append(errs, errors.New("SESSION_SIGNING_KEY must be set in production"))
		}
		if s.Storage.SigningKey == devSigningKey {
			errs = append(errs, errors.New("STORAGE_SIGNING_KEY must be set in production"))
		}
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
