package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Logging     LoggingConfig
	Auth        AuthConfig
	Payment     PaymentConfig
	Fees        FeesConfig
	Upload      UploadConfig
	Email       EmailConfig
	RateLimit   RateLimitConfig
	CORS        CORSConfig
	Tracing     TracingConfig
	Jobs        JobsConfig
	Environment string
}

type ServerConfig struct {
	Host    string
	Port    int
	BaseURL string
}

type DatabaseConfig struct {
	URL            string
	MaxConnections int
	MigrateOnStart bool
}

type LoggingConfig struct {
	Level  string
	Format string
}

// AuthConfig holds the settings used to verify Firebase ID tokens.
type AuthConfig struct {
	FirebaseProjectID string
}

// PaymentConfig configures the Razorpay gateway.
type PaymentConfig struct {
	KeyID     string
	KeySecret string
	Currency  string
}

// FeesConfig holds registration fees in whole rupees.
type FeesConfig struct {
	Nitrutsav  int `yaml:"nitrutsav"`
	MunCollege int `yaml:"mun_college"`
	MunSchool  int `yaml:"mun_school"`
}

// UploadConfig configures the Cloudinary media host.
type UploadConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
	MaxBytes  int64
}

// EmailConfig configures Resend delivery. AdminLoginURL is linked from the
// admin approval email.
type EmailConfig struct {
	Enabled       bool
	From          string
	ReplyTo       string
	ResendAPIKey  string
	AdminLoginURL string
}

// RateLimitRule is a fixed-window limit: at most Limit requests per Window.
type RateLimitRule struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

type RateLimitConfig struct {
	Store             string
	TrustedProxyCIDRs []string
	Registration      RateLimitRule
	Payment           RateLimitRule
	Check             RateLimitRule
	Upload            RateLimitRule
	Auth              RateLimitRule
}

type CORSConfig struct {
	AllowAllOrigins bool
	AllowedOrigins  []string
}

type TracingConfig struct {
	Enabled      bool
	Exporter     string
	ServiceName  string
	OTLPEndpoint string
	SampleRate   float64
}

type JobsConfig struct {
	Enabled           bool
	EmailMaxAttempts  int
	RateLimitCleanup  time.Duration
	MaxWorkersDefault int
}

func Load() (Config, error) {
	env := getEnv("ENVIRONMENT", "development")
	cfg := Config{
		Server: ServerConfig{
			Host:    getEnv("SERVER_HOST", "0.0.0.0"),
			Port:    getEnvInt("SERVER_PORT", 8080),
			BaseURL: getEnv("SERVER_BASE_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConnections: getEnvInt("DATABASE_MAX_CONNECTIONS", 25),
			MigrateOnStart: getEnvBool("DATABASE_MIGRATE_ON_START", false),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			FirebaseProjectID: getEnv("FIREBASE_PROJECT_ID", ""),
		},
		Payment: PaymentConfig{
			KeyID:     getEnv("RAZORPAY_KEY_ID", ""),
			KeySecret: getEnv("RAZORPAY_KEY_SECRET", ""),
			Currency:  getEnv("PAYMENT_CURRENCY", "INR"),
		},
		Fees: FeesConfig{
			Nitrutsav:  getEnvInt("FEE_NITRUTSAV", 499),
			MunCollege: getEnvInt("FEE_MUN_COLLEGE", 1500),
			MunSchool:  getEnvInt("FEE_MUN_SCHOOL", 1000),
		},
		Upload: UploadConfig{
			CloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
			APIKey:    getEnv("CLOUDINARY_API_KEY", ""),
			APISecret: getEnv("CLOUDINARY_API_SECRET", ""),
			Folder:    getEnv("CLOUDINARY_FOLDER", "nitrutsav-2026"),
			MaxBytes:  int64(getEnvInt("UPLOAD_MAX_BYTES", 5<<20)),
		},
		Email: EmailConfig{
			Enabled:       getEnvBool("EMAIL_ENABLED", false),
			From:          getEnv("EMAIL_FROM", "NITRUTSAV <noreply@nitrutsav.in>"),
			ReplyTo:       getEnv("EMAIL_REPLY_TO", ""),
			ResendAPIKey:  getEnv("RESEND_API_KEY", ""),
			AdminLoginURL: getEnv("ADMIN_LOGIN_URL", "https://nitrutsav.in/admin/login"),
		},
		RateLimit: RateLimitConfig{
			Store:             strings.ToLower(getEnv("RATE_LIMIT_STORE", "memory")),
			TrustedProxyCIDRs: getEnvList("RATE_LIMIT_TRUSTED_PROXIES"),
			Registration:      getEnvRule("RATE_LIMIT_REGISTRATION", RateLimitRule{Limit: 5, Window: time.Minute}),
			Payment:           getEnvRule("RATE_LIMIT_PAYMENT", RateLimitRule{Limit: 10, Window: time.Minute}),
			Check:             getEnvRule("RATE_LIMIT_CHECK", RateLimitRule{Limit: 30, Window: time.Minute}),
			Upload:            getEnvRule("RATE_LIMIT_UPLOAD", RateLimitRule{Limit: 10, Window: time.Minute}),
			Auth:              getEnvRule("RATE_LIMIT_AUTH", RateLimitRule{Limit: 10, Window: time.Minute}),
		},
		CORS: CORSConfig{
			AllowAllOrigins: env == "development" || env == "test",
			AllowedOrigins:  getEnvList("CORS_ALLOWED_ORIGINS"),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvBool("TRACING_ENABLED", false),
			Exporter:     getEnv("TRACING_EXPORTER", "stdout"),
			ServiceName:  getEnv("TRACING_SERVICE_NAME", "zucchini-server"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRate:   getEnvFloat("TRACING_SAMPLE_RATE", 1.0),
		},
		Jobs: JobsConfig{
			Enabled:           getEnvBool("JOBS_ENABLED", true),
			EmailMaxAttempts:  getEnvInt("JOB_RETRY_EMAIL", 5),
			RateLimitCleanup:  time.Duration(getEnvInt("JOB_RATE_LIMIT_CLEANUP_MINUTES", 10)) * time.Minute,
			MaxWorkersDefault: getEnvInt("JOB_MAX_WORKERS", 10),
		},
		Environment: env,
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first missing or inconsistent setting.
func (c Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Auth.FirebaseProjectID == "" {
		return fmt.Errorf("FIREBASE_PROJECT_ID is required")
	}
	if c.Payment.KeyID == "" || c.Payment.KeySecret == "" {
		return fmt.Errorf("RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required")
	}
	if c.Environment == "production" && len(c.CORS.AllowedOrigins) == 0 {
		return fmt.Errorf("CORS_ALLOWED_ORIGINS is required in production")
	}
	switch c.RateLimit.Store {
	case "memory", "postgres":
	default:
		return fmt.Errorf("RATE_LIMIT_STORE must be 'memory' or 'postgres', got %q", c.RateLimit.Store)
	}
	if c.Fees.Nitrutsav < 0 || c.Fees.MunCollege < 0 || c.Fees.MunSchool < 0 {
		return fmt.Errorf("fees must not be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// getEnvRule parses "<limit>/<window>", e.g. "5/1m".
func getEnvRule(key string, fallback RateLimitRule) RateLimitRule {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	limitPart, windowPart, ok := strings.Cut(value, "/")
	if !ok {
		return fallback
	}
	limit, err := strconv.Atoi(strings.TrimSpace(limitPart))
	if err != nil || limit < 0 {
		return fallback
	}
	window, err := time.ParseDuration(strings.TrimSpace(windowPart))
	if err != nil || window <= 0 {
		return fallback
	}
	return RateLimitRule{Limit: limit, Window: window}
}
