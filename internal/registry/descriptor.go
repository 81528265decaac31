package registry

import (
	"reflect"
	"strings"

	"github.com/kailas-cloud/indexsync/internal/domain/collection/field"
	"github.com/kailas-cloud/indexsync/internal/domain/synonym"
)

// Indexable describes how a type maps onto a collection.
type Indexable struct {
	// Entity is the registry key used by config and the CLI. Defaults to the
	// lower-cased type name.
	Entity     string
	Collection string
	// Normalizer names a zero-argument method returning the document mapping.
	Normalizer string
	// NormalizeFunc replaces Normalizer for types that cannot carry the method.
	NormalizeFunc       func(obj any) (any, error)
	DefaultSortingField string
	EnableNestedFields  bool
	NestedFields        []NestedField
	Synonyms            []synonym.Synonym
}

// NestedField is a schema fragment such as {Name: "category.name", Type: string}.
// Method optionally names a chain like "Category->Name".
type NestedField struct {
	Name     string     `json:"name"`
	Type     field.Type `json:"type"`
	Facet    bool       `json:"facet,omitempty"`
	Optional bool       `json:"optional,omitempty"`
	Sort     bool       `json:"sort,omitempty"`
	Method   string     `json:"method,omitempty"`
}

// Field is a resolved field descriptor.
type Field struct {
	Name     string
	GoName   string
	Declared field.Type
	// Type is Declared with auto resolved from the Go type.
	Type     field.Type
	Facet    bool
	Optional bool
	Sort     bool
	Static   reflect.Type

	get Getter
}

// Get reads the field's current value from v.
func (f Field) Get(v reflect.Value) (reflect.Value, error) { return f.get(v) }

// NestedKey is one configured key of a nested object.
type NestedKey struct {
	Key    string
	Method string

	get Getter
}

// Resolve reads the key from item. ok is false when the item has no accessor
// for the key and no chain is configured.
func (k NestedKey) Resolve(r *Registry, item reflect.Value) (reflect.Value, bool, error) {
	item = Indirect(item)
	if !item.IsValid() {
		return reflect.Value{}, true, nil
	}
	if k.get != nil {
		v, err := k.get(item)
		return v, true, err
	}
	ti := r.TypeInfo(item.Type())
	if k.Method != "" {
		g, err := ti.Chain(r, k.Method)
		if err != nil {
			return reflect.Value{}, true, err
		}
		v, err := g(item)
		return v, true, err
	}
	g := ti.Key(k.Key)
	if g == nil {
		return reflect.Value{}, false, nil
	}
	v, err := g(item)
	return v, true, err
}

// Descriptor is a registered indexable type.
type Descriptor struct {
	Indexable

	Type   reflect.Type
	Fields []Field

	info      *TypeInfo
	normalize func(reflect.Value) (any, error)
	nested    map[string][]NestedKey
}

// HasIdentity reports whether the type exposes an identity.
func (d *Descriptor) HasIdentity() bool { return d.info.HasIdentity() }

// Identity returns the identity of v. ok is false when unset.
func (d *Descriptor) Identity(v reflect.Value) (string, bool) { return d.info.Identity(v) }

// HasCustomNormalizer reports whether a normalizer method or func is configured.
func (d *Descriptor) HasCustomNormalizer() bool { return d.normalize != nil }

// CustomNormalize runs the configured normalizer.
func (d *Descriptor) CustomNormalize(v reflect.Value) (any, error) { return d.normalize(v) }

// Nested returns the configured keys for a field, in configuration order.
func (d *Descriptor) Nested(fieldName string) ([]NestedKey, bool) {
	keys, ok := d.nested[fieldName]
	return keys, ok
}

// FieldByName looks up a reflected field by effective name.
func (d *Descriptor) FieldByName(name string) (Field, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// elemType strips pointers and one level of slice/array.
func elemType(t reflect.Type) reflect.Type {
	t = baseType(t)
	if t.Kind() == reflect.Slice || t.Kind() == reflect.Array {
		t = baseType(t.Elem())
	}
	return t
}

func splitNested(name string) (string, string, bool) {
	parent, key, ok := strings.Cut(name, ".")
	if !ok || parent == "" || key == "" {
		return "", "", false
	}
	return parent, key, true
}
