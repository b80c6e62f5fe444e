package valueobjects

import (
	"encoding/json"
	"regexp"
	"strings"

	"catalog/pkg/errors"
)

const pathSeparator = "."

var labelPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// maxLabelLength matches the ltree label limit used by the Postgres store.
const maxLabelLength = 255

// HierarchicalPath is an immutable materialized path, e.g. "1.7.42".
// Labels are stable per-category values and never display slugs.
type HierarchicalPath struct {
	labels []string
}

// NewRootPath returns a single-label path.
func NewRootPath(label string) (HierarchicalPath, error) {
	if err := validateLabel(label); err != nil {
		return HierarchicalPath{}, err
	}
	return HierarchicalPath{labels: []string{label}}, nil
}

// ParsePath parses a dotted path.
func ParsePath(s string) (HierarchicalPath, error) {
	if s == "" {
		return HierarchicalPath{}, errors.ErrInvalidPath.New().WithDetail("path", s)
	}
	labels := strings.Split(s, pathSeparator)
	for _, label := range labels {
		if err := validateLabel(label); err != nil {
			return HierarchicalPath{}, err
		}
	}
	return HierarchicalPath{labels: labels}, nil
}

// MustParsePath is ParsePath that panics, for tests and constants.
func MustParsePath(s string) HierarchicalPath {
	p, err := ParsePath(s)
	if err != nil {
		panic(err)
	}
	return p
}

func validateLabel(label string) error {
	if label == "" || len(label) > maxLabelLength || !labelPattern.MatchString(label) {
		return errors.ErrInvalidPath.New().WithDetail("label", label)
	}
	return nil
}

// Child returns a new path with label appended.
func (p HierarchicalPath) Child(label string) (HierarchicalPath, error) {
	if err := validateLabel(label); err != nil {
		return HierarchicalPath{}, err
	}
	labels := make([]string, len(p.labels), len(p.labels)+1)
	copy(labels, p.labels)
	return HierarchicalPath{labels: append(labels, label)}, nil
}

// UnderParent builds the path for label below parent, or a root path when
// parent is nil.
func UnderParent(parent *HierarchicalPath, label string) (HierarchicalPath, error) {
	if parent == nil || parent.IsZero() {
		return NewRootPath(label)
	}
	return parent.Child(label)
}

// NLevel returns the number of labels.
func (p HierarchicalPath) NLevel() int {
	return len(p.labels)
}

// Depth is zero for roots.
func (p HierarchicalPath) Depth() int {
	if len(p.labels) == 0 {
		return 0
	}
	return len(p.labels) - 1
}

// Label returns the trailing label.
func (p HierarchicalPath) Label() string {
	if len(p.labels) == 0 {
		return ""
	}
	return p.labels[len(p.labels)-1]
}

// Labels returns a copy of the label sequence.
func (p HierarchicalPath) Labels() []string {
	out := make([]string, len(p.labels))
	copy(out, p.labels)
	return out
}

// Parent returns the path without its trailing label. ok is false for roots.
func (p HierarchicalPath) Parent() (HierarchicalPath, bool) {
	if len(p.labels) < 2 {
		return HierarchicalPath{}, false
	}
	return HierarchicalPath{labels: p.labels[:len(p.labels)-1]}, true
}

// IsDescendantOf is descendant-or-self: other's labels are a prefix of p's.
func (p HierarchicalPath) IsDescendantOf(other HierarchicalPath) bool {
	if other.IsZero() || len(other.labels) > len(p.labels) {
		return false
	}
	for i, label := range other.labels {
		if p.labels[i] != label {
			return false
		}
	}
	return true
}

// IsStrictDescendantOf excludes p == other.
func (p HierarchicalPath) IsStrictDescendantOf(other HierarchicalPath) bool {
	return len(p.labels) > len(other.labels) && p.IsDescendantOf(other)
}

// IsAncestorOf is ancestor-or-self.
func (p HierarchicalPath) IsAncestorOf(other HierarchicalPath) bool {
	return other.IsDescendantOf(p)
}

// Rebase replaces the oldPrefix portion of p with newPrefix, keeping the
// trailing labels and their relative depth.
func (p HierarchicalPath) Rebase(oldPrefix, newPrefix HierarchicalPath) (HierarchicalPath, error) {
	if !p.IsDescendantOf(oldPrefix) {
		return HierarchicalPath{}, errors.ErrInvalidPath.New().
			WithDetail("path", p.String()).
			WithDetail("prefix", oldPrefix.String())
	}
	suffix := p.labels[len(oldPrefix.labels):]
	labels := make([]string, 0, len(newPrefix.labels)+len(suffix))
	labels = append(labels, newPrefix.labels...)
	labels = append(labels, suffix...)
	return HierarchicalPath{labels: labels}, nil
}

// String returns the dotted representation.
func (p HierarchicalPath) String() string {
	return strings.Join(p.labels, pathSeparator)
}

// Equals checks label-wise equality.
func (p HierarchicalPath) Equals(other HierarchicalPath) bool {
	if len(p.labels) != len(other.labels) {
		return false
	}
	for i := range p.labels {
		if p.labels[i] != other.labels[i] {
			return false
		}
	}
	return true
}

// IsZero checks if the path is the zero value
func (p HierarchicalPath) IsZero() bool {
	return len(p.labels) == 0
}

// MarshalJSON implements json.Marshaler
func (p HierarchicalPath) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (p *HierarchicalPath) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParsePath(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
