package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// AuthConfig holds the reference credentials of the mock login gate and its cosmetic delay.
// These values are not secrets: the gate is not a security boundary.
type AuthConfig struct {
	Username     string
	Password     string
	Email        string
	LoginDelay   time.Duration
	CookieSecure bool
	RatePerMin   int
}

// WebConfig holds settings of the vault UI server and of any API client.
type WebConfig struct {
	Port        string
	APIBaseURL  string
	HTTPTimeout time.Duration
}

// AppConfig is the centralized configuration struct for all binaries.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string
	Port     string
	Database DatabaseConfig
	MinIO    MinIOConfig
	Web      WebConfig
	Auth     AuthConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Web: WebConfig{
			Port:        getEnv("WEB_PORT", "3000"),
			APIBaseURL:  getEnv("VAULT_API_URL", "http://localhost:8080/api"),
			HTTPTimeout: getEnvDuration("VAULT_HTTP_TIMEOUT", 30*time.Second),
		},
		Auth: AuthConfig{
			Username:     getEnv("AUTH_USERNAME", "admin"),
			Password:     getEnv("AUTH_PASSWORD", "admin123"),
			Email:        getEnv("AUTH_EMAIL", "admin@documentvault.com"),
			LoginDelay:   getEnvDuration("AUTH_LOGIN_DELAY", time.Second),
			CookieSecure: getEnvBool("AUTH_COOKIE_SECURE", false),
			RatePerMin:   getEnvInt("LOGIN_RATE_PER_MIN", 30),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

// getEnvDuration accepts Go duration strings ("1500ms", "2s"); a zero value is allowed.
func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil && d >= 0 {
			return d
		}
	}
	return def
}
