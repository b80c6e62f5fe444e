package config

import (
	"fmt"
	"time"
)

// DomainConfig holds all configurable business rules and constraints
type DomainConfig struct {
	// Cascade limits
	DescendantCap int

	// Deletion
	DeletionGracePeriod time.Duration

	// Category constraints
	MaxNameLength  int
	MaxSlugLength  int
	MaxLabelLength int
	MaxDepth       int
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		DescendantCap:       100,
		DeletionGracePeriod: 24 * time.Hour,
		MaxNameLength:       200,
		MaxSlugLength:       255,
		MaxLabelLength:      255,
		MaxDepth:            32,
	}
}

// DevelopmentDomainConfig shortens the grace period for local work.
func DevelopmentDomainConfig() *DomainConfig {
	config := DefaultDomainConfig()
	config.DeletionGracePeriod = time.Hour
	return config
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "development", "local":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// Validate checks if the configuration is valid
func (c *DomainConfig) Validate() error {
	if c.DescendantCap < 1 {
		return fmt.Errorf("descendant cap must be at least 1, got %d", c.DescendantCap)
	}
	if c.DeletionGracePeriod < 0 {
		return fmt.Errorf("deletion grace period cannot be negative")
	}
	if c.MaxSlugLength < 1 || c.MaxNameLength < 1 || c.MaxLabelLength < 1 {
		return fmt.Errorf("length limits must be positive")
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("max depth must be at least 1")
	}
	return nil
}
