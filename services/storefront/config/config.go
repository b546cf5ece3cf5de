package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	awspkg "github.com/dailykart/dailykart/pkg/aws"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config holds the storefront settings.
type Config struct {
	Port                string
	Environment         string
	CatalogServiceURL   string
	BackendTimeout      time.Duration
	RequestTimeout      time.Duration
	RedisURL            string
	RedisURLSecretName  string
	SessionTTL          time.Duration
	SessionCookieSecure bool
	CatalogCacheTTL     time.Duration
	AdminStaleTime      time.Duration
	WhatsAppNumber      string
	AllowedOrigins      string
	CloudWatchEnabled   bool
	AWS                 awspkg.Options
	S3                  awspkg.S3Options
}

// Load reads .env (when present) and the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		zap.L().Debug("No .env file found, using environment variables")
	}

	return Config{
		Port:                getEnv("PORT", "8080"),
		Environment:         getEnv("ENVIRONMENT", "development"),
		CatalogServiceURL:   getEnv("CATALOG_SERVICE_URL", "http://localhost:8081"),
		BackendTimeout:      getDuration("BACKEND_TIMEOUT", 10*time.Second),
		RequestTimeout:      getDuration("REQUEST_TIMEOUT", 30*time.Second),
		RedisURL:            os.Getenv("REDIS_URL"),
		RedisURLSecretName:  os.Getenv("REDIS_URL_SECRET_NAME"),
		SessionTTL:          getDuration("SESSION_TTL", 12*time.Hour),
		SessionCookieSecure: getBool("SESSION_COOKIE_SECURE", false),
		CatalogCacheTTL:     getDuration("CATALOG_CACHE_TTL", 30*time.Second),
		AdminStaleTime:      getDuration("ADMIN_STATUS_STALE_TIME", 60*time.Second),
		WhatsAppNumber:      getEnv("WHATSAPP_NUMBER", "919897743469"),
		AllowedOrigins:      getEnv("ALLOWED_ORIGINS", "http://localhost:8080"),
		CloudWatchEnabled:   getBool("CLOUDWATCH_ENABLED", false),
		AWS:                 awspkg.OptionsFromEnv(),
		S3: awspkg.S3Options{
			Bucket:    os.Getenv("AWS_S3_BUCKET"),
			Prefix:    getEnv("AWS_S3_PREFIX", "products"),
			Endpoint:  os.Getenv("AWS_S3_ENDPOINT"),
			CDNDomain: os.Getenv("AWS_CLOUDFRONT_DOMAIN"),
		},
	}
}

// NeedsAWS reports whether any AWS backed feature is switched on.
func (c Config) NeedsAWS() bool {
	return c.CloudWatchEnabled || c.S3.Bucket != "" || c.RedisURLSecretName != ""
}

// ResolveSecrets replaces values that live in Secrets Manager.
func (c *Config) ResolveSecrets(ctx context.Context, sm *awspkg.SecretsClient) error {
	if c.RedisURLSecretName == "" {
		return nil
	}
	v, err := sm.Resolve(ctx, c.RedisURLSecretName, c.RedisURL)
	if err != nil {
		return fmt.Errorf("resolve redis url: %w", err)
	}
	c.RedisURL = v
	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		zap.L().Warn("Invalid duration, using default", zap.String("key", key), zap.String("value", val))
		return defaultVal
	}
	return d
}

func getBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}
