package valueobjects

import (
	"strings"
	"unicode/utf8"

	"catalog/domain/config"
	"catalog/pkg/errors"
)

// CategoryName is a trimmed, bounded, non-empty display name.
type CategoryName struct {
	value string
}

// NewCategoryName creates a name using the default limits.
func NewCategoryName(name string) (CategoryName, error) {
	return NewCategoryNameWithConfig(name, config.DefaultDomainConfig())
}

// NewCategoryNameWithConfig creates a name using cfg limits.
func NewCategoryNameWithConfig(name string, cfg *config.DomainConfig) (CategoryName, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return CategoryName{}, errors.ErrInvalidCategoryName.New().WithDetail("reason", "required")
	}
	if utf8.RuneCountInString(trimmed) > cfg.MaxNameLength {
		return CategoryName{}, errors.ErrInvalidCategoryName.New().
			WithDetail("reason", "too_long").
			WithDetail("max_length", cfg.MaxNameLength)
	}
	return CategoryName{value: trimmed}, nil
}

// String returns the name
func (n CategoryName) String() string {
	return n.value
}

// Equals compares names case-insensitively, matching the sibling
// uniqueness rule enforced by storage.
func (n CategoryName) Equals(other CategoryName) bool {
	return strings.EqualFold(n.value, other.value)
}

// Key is the normalized form used for sibling uniqueness lookups.
func (n CategoryName) Key() string {
	return strings.ToLower(n.value)
}
