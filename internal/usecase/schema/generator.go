package schema

import (
	"github.com/kailas-cloud/indexsync/internal/domain"
	"github.com/kailas-cloud/indexsync/internal/domain/collection"
	"github.com/kailas-cloud/indexsync/internal/domain/collection/field"
	"github.com/kailas-cloud/indexsync/internal/registry"
)

// Generator derives collection schemas from registered descriptors.
// Schemas are built fresh on every call.
type Generator struct {
	reg Registry
}

// New creates a schema generator.
func New(reg Registry) *Generator {
	return &Generator{reg: reg}
}

// Generate builds the schema of a registered entity.
func (g *Generator) Generate(entity string) (collection.Schema, error) {
	d, ok := g.reg.Lookup(entity)
	if !ok {
		return collection.Schema{}, domain.NewConfigurationError("entity %q is not indexable", entity)
	}
	return FromDescriptor(d)
}

// FromDescriptor lists reflected fields in declaration order followed by nested
// fragments in configuration order. The result is validated as a whole, so a
// fragment shadowing a reflected field is a configuration error.
func FromDescriptor(d *registry.Descriptor) (collection.Schema, error) {
	s := collection.Schema{
		Name:               d.Collection,
		Fields:             make([]field.Field, 0, len(d.Fields)+len(d.NestedFields)),
		EnableNestedFields: d.EnableNestedFields,
	}
	for _, f := range d.Fields {
		sf, err := field.New(f.Name, f.Type, f.Facet, f.Optional, f.Sort)
		if err != nil {
			return collection.Schema{}, domain.NewConfigurationError("%s: %v", d.Collection, err)
		}
		s.Fields = append(s.Fields, sf)
	}
	for _, nf := range d.NestedFields {
		sf, err := field.New(nf.Name, nf.Type, nf.Facet, nf.Optional, nf.Sort)
		if err != nil {
			return collection.Schema{}, domain.NewConfigurationError("%s: nested field: %v", d.Collection, err)
		}
		s.Fields = append(s.Fields, sf)
	}

	if name := d.DefaultSortingField; name != "" {
		f, ok := d.FieldByName(name)
		if !ok {
			return collection.Schema{}, domain.NewConfigurationError(
				"%s: default sorting field %q is not an indexed field", d.Collection, name)
		}
		if f.Optional {
			return collection.Schema{}, domain.NewConfigurationError(
				"%s: default sorting field %q must not be optional", d.Collection, name)
		}
		s.DefaultSortingField = name
	}

	if err := s.Validate(); err != nil {
		return collection.Schema{}, domain.NewConfigurationError("%s: %v", d.Collection, err)
	}
	return s, nil
}
