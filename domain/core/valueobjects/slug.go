package valueobjects

import (
	"encoding/json"
	"regexp"
	"strings"

	"catalog/domain/config"
	"catalog/pkg/errors"
)

var (
	slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

	slugStrip   = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugHyphens = regexp.MustCompile(`-{2,}`)
	slugSpaces  = regexp.MustCompile(`\s+`)
)

// Slug is a validated URL-safe identifier.
type Slug struct {
	value string
}

// NewSlug validates s against the default length limit.
func NewSlug(s string) (Slug, error) {
	return NewSlugWithConfig(s, config.DefaultDomainConfig())
}

// NewSlugWithConfig validates s. Blank input is EMPTY_SLUG, input longer
// than the limit is SLUG_TOO_LONG, anything else not matching the pattern
// is INVALID_SLUG_FORMAT.
func NewSlugWithConfig(s string, cfg *config.DomainConfig) (Slug, error) {
	if strings.TrimSpace(s) == "" {
		return Slug{}, errors.ErrEmptySlug.New()
	}
	if len(s) > cfg.MaxSlugLength {
		return Slug{}, errors.ErrSlugTooLong.New().
			WithDetail("max_length", cfg.MaxSlugLength).
			WithDetail("length", len(s))
	}
	if !slugPattern.MatchString(s) {
		return Slug{}, errors.ErrInvalidSlugFormat.New().WithDetail("slug", s)
	}
	return Slug{value: s}, nil
}

// SlugFromName derives a slug from a display name, e.g.
// "Garden Roses & Tulips" becomes "garden-roses-tulips".
func SlugFromName(name string, cfg *config.DomainConfig) (Slug, error) {
	result := strings.ToLower(strings.TrimSpace(name))
	result = slugStrip.ReplaceAllString(result, "")
	result = slugSpaces.ReplaceAllString(result, "-")
	result = slugHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	if len(result) > cfg.MaxSlugLength {
		result = strings.TrimRight(result[:cfg.MaxSlugLength], "-")
	}
	return NewSlugWithConfig(result, cfg)
}

// String returns the slug value
func (s Slug) String() string {
	return s.value
}

// Equals checks if two slugs are equal
func (s Slug) Equals(other Slug) bool {
	return s.value == other.value
}

// IsZero checks if the slug is the zero value
func (s Slug) IsZero() bool {
	return s.value == ""
}

// MarshalJSON implements json.Marshaler
func (s Slug) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.value)
}

// UnmarshalJSON implements json.Unmarshaler
func (s *Slug) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := NewSlug(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
