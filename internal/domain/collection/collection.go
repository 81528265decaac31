package collection

import (
	"fmt"
	"regexp"

	"github.com/kailas-cloud/indexsync/internal/domain/collection/field"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)

// Schema is a generated collection schema. It is derived from type descriptors
// on every call and never hand-edited; the cluster holds the applied version.
type Schema struct {
	Name                string        `json:"name"`
	Fields              []field.Field `json:"fields"`
	DefaultSortingField string        `json:"default_sorting_field,omitempty"`
	EnableNestedFields  bool          `json:"enable_nested_fields,omitempty"`
}

// ValidateName checks a collection name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("collection name is required")
	}
	if len(name) > 128 {
		return fmt.Errorf("collection name too long (max 128)")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("collection name %q must be alphanumeric with dots, underscores and hyphens", name)
	}
	return nil
}

// Validate checks name, field uniqueness and the default sorting field.
func (s Schema) Validate() error {
	if err := ValidateName(s.Name); err != nil {
		return err
	}
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if seen[f.Name] {
			return fmt.Errorf("duplicate field name: %s", f.Name)
		}
		seen[f.Name] = true
	}
	if s.DefaultSortingField != "" {
		f, ok := s.FieldByName(s.DefaultSortingField)
		if !ok {
			return fmt.Errorf("default sorting field %q is not a schema field", s.DefaultSortingField)
		}
		if f.Optional {
			return fmt.Errorf("default sorting field %q must not be optional", s.DefaultSortingField)
		}
	}
	return nil
}

// FieldByName looks up a field by name.
func (s Schema) FieldByName(name string) (field.Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return field.Field{}, false
}

// Info is a collection as reported by the engine.
type Info struct {
	Schema
	NumDocuments int64 `json:"num_documents"`
	CreatedAt    int64 `json:"created_at,omitempty"`
}
