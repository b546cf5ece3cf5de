package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	awspkg "github.com/dailykart/dailykart/pkg/aws"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Storage backends.
const (
	StoreMemory   = "memory"
	StoreDynamoDB = "dynamodb"
)

// Config holds all environment variables for the catalog-service.
type Config struct {
	Port              string
	Environment       string
	JWTSecret         string
	TokenTTL          time.Duration
	AdminUsername     string
	AdminPassword     string
	AdminPasswordHash string
	Store             string
	ProductsTable     string
	SeedFile          string
	RequestTimeout    time.Duration
	AllowedOrigins    string
	UseSecrets        bool
	CloudWatchEnabled bool
	AWS               awspkg.Options
}

// Load reads .env (when present) and the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		zap.L().Debug("No .env file found, using environment variables")
	}

	return Config{
		Port:              getEnv("PORT", "8081"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		TokenTTL:          getDuration("ADMIN_TOKEN_TTL", 12*time.Hour),
		AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
		AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		Store:             strings.ToLower(getEnv("CATALOG_STORE", StoreMemory)),
		ProductsTable:     getEnv("DDB_TABLE_PRODUCTS", "Products"),
		SeedFile:          os.Getenv("SEED_FILE"),
		RequestTimeout:    getDuration("REQUEST_TIMEOUT", 30*time.Second),
		AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "http://localhost:8080"),
		UseSecrets:        getBool("AWS_USE_SECRETS", false),
		CloudWatchEnabled: getBool("CLOUDWATCH_ENABLED", false),
		AWS:               awspkg.OptionsFromEnv(),
	}
}

// NeedsAWS reports whether any AWS backed feature is switched on.
func (c Config) NeedsAWS() bool {
	return c.Store == StoreDynamoDB || c.UseSecrets || c.CloudWatchEnabled
}

// ResolveSecrets reads the JWT secret and admin password hash from Secrets
// Manager, keeping the environment values as fallback.
func (c *Config) ResolveSecrets(ctx context.Context, sm *awspkg.SecretsClient) error {
	if !c.UseSecrets {
		return nil
	}
	secret, err := sm.Resolve(ctx, "catalog/JWT_SECRET", c.JWTSecret)
	if err != nil {
		return fmt.Errorf("resolve jwt secret: %w", err)
	}
	c.JWTSecret = secret

	hash, err := sm.Resolve(ctx, "catalog/ADMIN_PASSWORD_HASH", c.AdminPasswordHash)
	if err != nil {
		return fmt.Errorf("resolve admin password hash: %w", err)
	}
	c.AdminPasswordHash = hash
	return nil
}

// Validate checks the settings the service cannot start without.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.AdminPasswordHash == "" && c.AdminPassword == "" {
		return fmt.Errorf("ADMIN_PASSWORD_HASH or ADMIN_PASSWORD is required")
	}
	if c.Store != StoreMemory && c.Store != StoreDynamoDB {
		return fmt.Errorf("CATALOG_STORE must be %q or %q", StoreMemory, StoreDynamoDB)
	}
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
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return b
}
