package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Stripe   StripeConfig
	Email    EmailConfig
	AWS      AWSConfig
	Worker   WorkerConfig
	Internal InternalConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
	BaseURL            string // public base URL for checkout redirects
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// StripeConfig holds the Stripe API key, webhook secret, and the price IDs
// for each product at full and discounted price.
type StripeConfig struct {
	SecretKey      string
	WebhookSecret  string
	SuccessURL     string
	CancelURL      string
	Prices         map[string]string // product code -> price ID
	DiscountPrices map[string]string // product code -> discounted price ID
}

// EmailConfig for the transactional email provider. When APIToken is empty
// the worker falls back to log-only delivery.
type EmailConfig struct {
	FromAddress string
	FromName    string
	APIToken    string
	APIURL      string
}

// AWSConfig holds AWS credentials and the workbook assets bucket.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	WorkbooksBucket      string
	PresignExpireMinutes int
}

// WorkerConfig holds email dispatcher settings.
type WorkerConfig struct {
	TickInterval time.Duration // how often due schedules are scanned
	BatchSize    int           // max schedules claimed per tick
	SendTimeout  time.Duration // per-email send timeout
}

// InternalConfig holds the shared secret for internal-only endpoints.
type InternalConfig struct {
	Secret string
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "30"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	jwtExpire, _ := strconv.Atoi(getEnv("JWT_EXPIRE_HOURS", "24"))

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			BaseURL:            getEnv("BASE_URL", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", "postgres://localhost:5432/funnel?sslmode=disable"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "funnel"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: jwtExpire,
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			SuccessURL:    getEnv("STRIPE_SUCCESS_URL", ""),
			CancelURL:     getEnv("STRIPE_CANCEL_URL", ""),
			Prices: map[string]string{
				"workbook":    getEnv("STRIPE_PRICE_WORKBOOK", ""),
				"bundle":      getEnv("STRIPE_PRICE_BUNDLE", ""),
				"masterclass": getEnv("STRIPE_PRICE_MASTERCLASS", ""),
			},
			DiscountPrices: map[string]string{
				"workbook":    getEnv("STRIPE_PRICE_WORKBOOK_DISCOUNT", ""),
				"bundle":      getEnv("STRIPE_PRICE_BUNDLE_DISCOUNT", ""),
				"masterclass": getEnv("STRIPE_PRICE_MASTERCLASS_DISCOUNT", ""),
			},
		},
		Email: EmailConfig{
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "hello@inkwellfunnel.com"),
			FromName:    getEnv("EMAIL_FROM_NAME", "Inkwell"),
			APIToken:    getEnv("EMAIL_API_TOKEN", ""),
			APIURL:      getEnv("EMAIL_API_URL", "https://api.postmarkapp.com/email"),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			WorkbooksBucket:      getEnv("AWS_S3_WORKBOOKS_BUCKET", "inkwell-workbooks"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Worker: WorkerConfig{
			TickInterval: getEnvDuration("WORKER_TICK_INTERVAL", time.Minute),
			BatchSize:    getEnvInt("WORKER_BATCH_SIZE", 50),
			SendTimeout:  getEnvDuration("WORKER_SEND_TIMEOUT", 15*time.Second),
		},
		Internal: InternalConfig{
			Secret: getEnv("INTERNAL_API_SECRET", ""),
		},
	}

	if cfg.Stripe.SuccessURL == "" {
		cfg.Stripe.SuccessURL = cfg.Server.BaseURL + "/payment/success?session_id={CHECKOUT_SESSION_ID}"
	}
	if cfg.Stripe.CancelURL == "" {
		cfg.Stripe.CancelURL = cfg.Server.BaseURL + "/payment/cancelled"
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
