package valueobjects

import (
	"strconv"

	"catalog/pkg/errors"
)

// CategoryID is the surrogate key of a category.
type CategoryID struct {
	value int64
}

// NewCategoryID rejects non-positive ids.
func NewCategoryID(id int64) (CategoryID, error) {
	if id <= 0 {
		return CategoryID{}, errors.ErrInvalidCategoryID.New().WithDetail("category_id", id)
	}
	return CategoryID{value: id}, nil
}

// Int64 returns the raw id
func (id CategoryID) Int64() int64 {
	return id.value
}

// Label is the path label for this category.
func (id CategoryID) Label() string {
	return strconv.FormatInt(id.value, 10)
}

// String returns the string representation of the CategoryID
func (id CategoryID) String() string {
	return id.Label()
}

// Equals checks if two CategoryIDs are equal
func (id CategoryID) Equals(other CategoryID) bool {
	return id.value == other.value
}

// IsZero checks if the CategoryID is the zero value
func (id CategoryID) IsZero() bool {
	return id.value == 0
}

// RowVersion is the opaque optimistic concurrency token assigned by storage.
// Business logic only compares it for equality.
type RowVersion struct {
	token string
}

// NewRowVersion wraps a storage-issued token.
func NewRowVersion(token string) RowVersion {
	return RowVersion{token: token}
}

// String returns the token
func (v RowVersion) String() string {
	return v.token
}

// Matches reports whether a caller-supplied token equals this version.
func (v RowVersion) Matches(token string) bool {
	return v.token != "" && v.token == token
}

// Equals checks token equality
func (v RowVersion) Equals(other RowVersion) bool {
	return v.token == other.token
}

// IsZero checks if the version is unset
func (v RowVersion) IsZero() bool {
	return v.token == ""
}

// EntityType names the kind of entity a slug points at.
type EntityType string

const (
	EntityTypeCategory EntityType = "Category"
	EntityTypeProduct  EntityType = "Product"
)

// IsValid checks the entity type is known
func (t EntityType) IsValid() bool {
	return t == EntityTypeCategory || t == EntityTypeProduct
}
