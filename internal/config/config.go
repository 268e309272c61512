package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultJWTSecret is only acceptable outside production
const DefaultJWTSecret = "dev-secret-change-me"

// Storage backends
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

type Config struct {
	Port      int
	LogLevel  string
	Env       string
	Storage   string
	DB        DBConfig
	Kafka     KafkaConfig
	Auth      AuthConfig
	Payment   PaymentConfig
	Outbox    OutboxConfig
	RateLimit RateLimitConfig
}

// DBConfig holds the database configuration
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// KafkaConfig holds the broker settings. No brokers means events are only logged.
type KafkaConfig struct {
	Brokers       []string
	OrdersTopic   string
	ConsumerGroup string
}

// AuthConfig holds token signing settings
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	// AdminEmail and AdminPassword seed the first admin account when both are set
	AdminEmail    string
	AdminPassword string
}

// PaymentConfig points at the payment provider. An empty BaseURL disables card payments.
type PaymentConfig struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	Currency   string
	SuccessURL string
	CancelURL  string
}

// OutboxConfig tunes the outbox and dead letter processors
type OutboxConfig struct {
	PollInterval    time.Duration
	BatchSize       int
	MaxRetries      int
	DLQPollInterval time.Duration
}

// RateLimitConfig tunes the request rate limiters
type RateLimitConfig struct {
	GlobalMaxTokens   float64
	GlobalMaxRate     float64
	GlobalMinRate     float64
	LoadThreshold     float64
	IPMaxTokens       float64
	IPRefillRate      float64
	EndpointMaxTokens float64
	EndpointRate      float64
	TrustForwardedFor bool
}

// getEnv retrieves the value of an environment variable or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}

	return defaultValue
}

type parser struct {
	errs []error
}

func (p *parser) int(key, def string) int {
	v, err := strconv.Atoi(getEnv(key, def))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", key, err))
	}
	return v
}

func (p *parser) float(key, def string) float64 {
	v, err := strconv.ParseFloat(getEnv(key, def), 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", key, err))
	}
	return v
}

func (p *parser) bool(key, def string) bool {
	v, err := strconv.ParseBool(getEnv(key, def))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", key, err))
	}
	return v
}

func (p *parser) duration(key, def string) time.Duration {
	v, err := time.ParseDuration(getEnv(key, def))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid %s: %w", key, err))
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Load reads the configuration from environment variables and returns a Config struct.
func Load() (*Config, error) {
	p := &parser{}

	cfg := &Config{
		Port:     p.int("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Env:      getEnv("APP_ENV", "development"),
		Storage:  strings.ToLower(getEnv("STORAGE", StoragePostgres)),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     p.int("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "garments"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers:       splitList(getEnv("KAFKA_BROKERS", "")),
			OrdersTopic:   getEnv("KAFKA_ORDERS_TOPIC", "garment-orders"),
			ConsumerGroup: getEnv("KAFKA_CONSUMER_GROUP", "garment-order-notifier"),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", DefaultJWTSecret),
			TokenTTL:      p.duration("JWT_TTL", "24h"),
			AdminEmail:    getEnv("ADMIN_EMAIL", ""),
			AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		},
		Payment: PaymentConfig{
			BaseURL:    strings.TrimRight(getEnv("PAYMENT_BASE_URL", ""), "/"),
			APIKey:     getEnv("PAYMENT_API_KEY", ""),
			Timeout:    p.duration("PAYMENT_TIMEOUT", "10s"),
			Currency:   strings.ToLower(getEnv("PAYMENT_CURRENCY", "usd")),
			SuccessURL: getEnv("PAYMENT_SUCCESS_URL", "http://localhost:3000/payment/success"),
			CancelURL:  getEnv("PAYMENT_CANCEL_URL", "http://localhost:3000/payment/cancel"),
		},
		Outbox: OutboxConfig{
			PollInterval:    p.duration("OUTBOX_POLL_INTERVAL", "5s"),
			BatchSize:       p.int("OUTBOX_BATCH_SIZE", "10"),
			MaxRetries:      p.int("OUTBOX_MAX_RETRIES", "3"),
			DLQPollInterval: p.duration("OUTBOX_DLQ_POLL_INTERVAL", "30s"),
		},
		RateLimit: RateLimitConfig{
			GlobalMaxTokens:   p.float("RATE_LIMIT_GLOBAL_TOKENS", "200"),
			GlobalMaxRate:     p.float("RATE_LIMIT_GLOBAL_RATE", "100"),
			GlobalMinRate:     p.float("RATE_LIMIT_GLOBAL_MIN_RATE", "20"),
			LoadThreshold:     p.float("RATE_LIMIT_LOAD_THRESHOLD", "0.8"),
			IPMaxTokens:       p.float("RATE_LIMIT_IP_TOKENS", "50"),
			IPRefillRate:      p.float("RATE_LIMIT_IP_RATE", "10"),
			EndpointMaxTokens: p.float("RATE_LIMIT_ENDPOINT_TOKENS", "100"),
			EndpointRate:      p.float("RATE_LIMIT_ENDPOINT_RATE", "50"),
			TrustForwardedFor: p.bool("RATE_LIMIT_TRUST_FORWARDED_FOR", "false"),
		},
	}

	if len(p.errs) > 0 {
		return nil, errors.Join(p.errs...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	switch c.Storage {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("invalid STORAGE %q: want %s or %s", c.Storage, StoragePostgres, StorageMemory)
	}

	if c.IsProduction() && c.Auth.JWTSecret == DefaultJWTSecret {
		return errors.New("JWT_SECRET must be set in production")
	}

	if c.Auth.TokenTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}

	if c.Outbox.BatchSize < 1 || c.Outbox.PollInterval <= 0 {
		return errors.New("OUTBOX_BATCH_SIZE and OUTBOX_POLL_INTERVAL must be positive")
	}

	return nil
}

// IsProduction reports whether APP_ENV is production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// KafkaEnabled reports whether brokers are configured
func (c *Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}

// PaymentsEnabled reports whether a payment provider is configured
func (c *Config) PaymentsEnabled() bool {
	return c.Payment.BaseURL != ""
}

// GetDBConnString returns the database connection string
func (c *Config) GetDBConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode)
}
