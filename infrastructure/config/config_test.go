package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/catalog")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddress())
	assert.Equal(t, BackendPostgres, cfg.StorageBackend)
	assert.Equal(t, BackendPostgres, cfg.SlugRegistryBackend)
	assert.Equal(t, int32(10), cfg.DBMaxConns)
	assert.Equal(t, 5*time.Minute, cfg.SlugCacheTTL)
	assert.Equal(t, []string{"*"}, cfg.CORSAllowedOrigins)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("SLUG_REGISTRY_BACKEND", "dynamodb")
	t.Setenv("DYNAMODB_SLUG_TABLE", "slugs")
	t.Setenv("DESCENDANT_CAP", "25")
	t.Setenv("DELETE_GRACE_PERIOD_HOURS", "48")
	t.Setenv("SLUG_CACHE_TTL", "30s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("ENABLE_EVENTS", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, 30*time.Second, cfg.SlugCacheTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)

	domain := cfg.DomainConfig()
	assert.Equal(t, 25, domain.DescendantCap)
	assert.Equal(t, 48*time.Hour, domain.DeletionGracePeriod)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			StorageBackend:      BackendMemory,
			SlugRegistryBackend: BackendMemory,
			DBMaxConns:          1,
		}
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{"memory", func(c *Config) {}, true},
		{"unknown storage", func(c *Config) { c.StorageBackend = "sqlite" }, false},
		{"postgres registry needs postgres store", func(c *Config) { c.SlugRegistryBackend = BackendPostgres }, false},
		{"postgres needs url", func(c *Config) {
			c.StorageBackend = BackendPostgres
			c.SlugRegistryBackend = BackendPostgres
		}, false},
		{"events need bus", func(c *Config) { c.EnableEvents = true }, false},
		{"cap must be positive", func(c *Config) { c.DescendantCap = -1 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
