package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	domainconfig "catalog/domain/config"
)

// Storage backends
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
	BackendDynamoDB = "dynamodb"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerPort  string
	Environment string

	// Database configuration
	DatabaseURL    string
	DBMaxConns     int32
	MigrateOnStart bool

	// Backends
	StorageBackend      string
	SlugRegistryBackend string

	// AWS configuration
	AWSRegion         string
	DynamoDBSlugTable string
	EventBusName      string
	EventSource       string

	// Cache configuration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	SlugCacheTTL  time.Duration

	// Lambda configuration
	IsLambda bool

	// Logging
	LogLevel string

	// Domain overrides
	DescendantCap      int
	DeleteGracePeriod  time.Duration
	CORSAllowedOrigins []string

	// Feature flags
	EnableEvents     bool
	EnableMetrics    bool
	EnableTracing    bool
	MetricsNamespace string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	domain := domainconfig.DefaultDomainConfig()

	cfg := &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		DBMaxConns:     int32(getEnvInt("DB_MAX_CONNS", 10)),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", false),

		StorageBackend:      getEnv("STORAGE_BACKEND", BackendPostgres),
		SlugRegistryBackend: getEnv("SLUG_REGISTRY_BACKEND", BackendPostgres),

		AWSRegion:         getEnv("AWS_REGION", "us-west-2"),
		DynamoDBSlugTable: getEnv("DYNAMODB_SLUG_TABLE", "catalog-slugs"),
		EventBusName:      getEnv("EVENT_BUS_NAME", "catalog-events"),
		EventSource:       getEnv("EVENT_SOURCE", "catalog.categories"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		SlugCacheTTL:  getEnvDuration("SLUG_CACHE_TTL", 5*time.Minute),

		IsLambda: os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "",

		LogLevel: getEnv("LOG_LEVEL", "info"),

		DescendantCap:      getEnvInt("DESCENDANT_CAP", domain.DescendantCap),
		DeleteGracePeriod:  time.Duration(getEnvInt("DELETE_GRACE_PERIOD_HOURS", int(domain.DeletionGracePeriod/time.Hour))) * time.Hour,
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		EnableEvents:     getEnvBool("ENABLE_EVENTS", false),
		EnableMetrics:    getEnvBool("ENABLE_METRICS", false),
		EnableTracing:    getEnvBool("ENABLE_TRACING", false),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "Catalog"),
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.StorageBackend {
	case BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be postgres or memory, got %q", c.StorageBackend)
	}
	switch c.SlugRegistryBackend {
	case BackendPostgres, BackendMemory, BackendDynamoDB:
	default:
		return fmt.Errorf("SLUG_REGISTRY_BACKEND must be postgres, dynamodb or memory, got %q", c.SlugRegistryBackend)
	}
	if c.SlugRegistryBackend == BackendPostgres && c.StorageBackend != BackendPostgres {
		return fmt.Errorf("SLUG_REGISTRY_BACKEND=postgres requires STORAGE_BACKEND=postgres")
	}
	if c.StorageBackend == BackendPostgres && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required for the postgres backend")
	}
	if c.SlugRegistryBackend == BackendDynamoDB && c.DynamoDBSlugTable == "" {
		return fmt.Errorf("DYNAMODB_SLUG_TABLE is required for the dynamodb registry")
	}
	if c.EnableEvents && c.EventBusName == "" {
		return fmt.Errorf("EVENT_BUS_NAME is required when events are enabled")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}

	return c.DomainConfig().Validate()
}

// DomainConfig returns the domain limits for the environment with the
// configured overrides applied.
func (c *Config) DomainConfig() *domainconfig.DomainConfig {
	domain := domainconfig.LoadDomainConfig(c.Environment)
	if c.DescendantCap != 0 {
		domain.DescendantCap = c.DescendantCap
	}
	if c.DeleteGracePeriod != 0 {
		domain.DeletionGracePeriod = c.DeleteGracePeriod
	}
	return domain
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// ListenAddress is the HTTP listen address
func (c *Config) ListenAddress() string {
	return ":" + c.ServerPort
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
