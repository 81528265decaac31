// Package normalize turns live domain objects into index documents.
package normalize

import (
	"fmt"
	"reflect"
	"time"

	"github.com/kailas-cloud/indexsync/internal/domain"
	"github.com/kailas-cloud/indexsync/internal/domain/document"
	"github.com/kailas-cloud/indexsync/internal/registry"
)

var timeType = reflect.TypeFor[time.Time]()

// Normalizer reads objects against their registered descriptors.
type Normalizer struct {
	reg *registry.Registry
}

// New creates a normalizer over reg.
func New(reg *registry.Registry) *Normalizer {
	return &Normalizer{reg: reg}
}

// Normalize builds the index document of obj. ok is false when obj is not
// indexable or has no identity yet; neither case is an error.
func (n *Normalizer) Normalize(obj any) (document.Normalized, bool, error) {
	d, found := n.reg.LookupValue(obj)
	if !found {
		return document.Normalized{}, false, nil
	}
	v := reflect.ValueOf(obj)
	if !registry.Indirect(v).IsValid() {
		return document.Normalized{}, false, nil
	}

	var (
		doc document.Document
		err error
	)
	if d.HasCustomNormalizer() {
		doc, err = n.custom(d, v)
	} else {
		doc, err = n.fields(d, v)
	}
	if err != nil {
		return document.Normalized{}, false, err
	}

	id, ok := d.Identity(v)
	if !ok {
		return document.Normalized{}, false, nil
	}
	doc["id"] = id
	return document.Normalized{Collection: d.Collection, Document: doc}, true, nil
}

// Document is Normalize without the collection envelope.
func (n *Normalizer) Document(obj any) (document.Document, bool, error) {
	nd, ok, err := n.Normalize(obj)
	return nd.Document, ok, err
}

func (n *Normalizer) custom(d *registry.Descriptor, v reflect.Value) (document.Document, error) {
	out, err := d.CustomNormalize(v)
	if err != nil {
		return nil, fmt.Errorf("normalize %s: %w", d.Entity, err)
	}
	switch m := out.(type) {
	case document.Document:
		return copyMap(m), nil
	case map[string]any:
		return copyMap(m), nil
	}

	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String || rv.IsNil() {
		return nil, domain.NewLogicError("normalizer of %s returned %T, want a key-value map", d.Entity, out)
	}
	doc := make(document.Document, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		doc[iter.Key().String()] = iter.Value().Interface()
	}
	return doc, nil
}

func copyMap(m map[string]any) document.Document {
	if m == nil {
		return document.Document{}
	}
	doc := make(document.Document, len(m)+1)
	for k, v := range m {
		doc[k] = v
	}
	return doc
}

func (n *Normalizer) fields(d *registry.Descriptor, v reflect.Value) (document.Document, error) {
	doc := make(document.Document, len(d.Fields)+1)
	for _, f := range d.Fields {
		raw, err := f.Get(v)
		if err != nil {
			return nil, fmt.Errorf("normalize %s.%s: %w", d.Entity, f.Name, err)
		}
		val, err := n.format(d, f, raw)
		if err != nil {
			return nil, fmt.Errorf("normalize %s.%s: %w", d.Entity, f.Name, err)
		}
		doc[f.Name] = val
	}
	return doc, nil
}

func (n *Normalizer) format(d *registry.Descriptor, f registry.Field, raw reflect.Value) (any, error) {
	v := registry.Indirect(raw)
	if !v.IsValid() {
		return nil, nil
	}
	if v.Type() == timeType {
		return v.Interface().(time.Time).Unix(), nil
	}

	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return nil, nil
		}
		if !structured(v.Type().Elem()) {
			return v.Interface(), nil
		}
		items := make([]any, 0, v.Len())
		for i := range v.Len() {
			item, err := n.nested(d, f.Name, v.Index(i))
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	case reflect.Struct:
		if f.Type.IsGenericString() {
			ti := n.reg.TypeInfo(v.Type())
			if ti.HasIdentity() {
				if id, ok := ti.Identity(v); ok {
					return id, nil
				}
				return nil, nil
			}
		}
		return n.nested(d, f.Name, v)
	}
	return v.Interface(), nil
}

// structured reports whether slice elements need per-item normalization:
// related objects and timestamps. Scalars pass through as-is.
func structured(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer:
		return structured(t.Elem())
	case reflect.Interface, reflect.Struct:
		return true
	}
	return false
}

// nested builds the object for one related item: configured keys when the
// field has nested configuration, else the {id, name?} summary.
func (n *Normalizer) nested(d *registry.Descriptor, fieldName string, item reflect.Value) (any, error) {
	item = registry.Indirect(item)
	if !item.IsValid() {
		return nil, nil
	}
	if item.Type() == timeType {
		return item.Interface().(time.Time).Unix(), nil
	}
	if item.Kind() != reflect.Struct {
		return item.Interface(), nil
	}
	ti := n.reg.TypeInfo(item.Type())

	keys, configured := d.Nested(fieldName)
	if !configured {
		if !ti.HasIdentity() {
			return nil, nil
		}
		obj := map[string]any{"id": nil}
		if id, ok := ti.Identity(item); ok {
			obj["id"] = id
		}
		name, has, err := ti.Name(item)
		if err != nil {
			return nil, err
		}
		if has {
			obj["name"] = plain(name)
		}
		return obj, nil
	}

	obj := make(map[string]any, len(keys)+1)
	if id, ok := ti.Identity(item); ok {
		obj["id"] = id
	}
	for _, k := range keys {
		val, found, err := k.Resolve(n.reg, item)
		if err != nil {
			return nil, err
		}
		if !found {
			obj[k.Key] = nil
			continue
		}
		obj[k.Key] = plain(val)
	}
	return obj, nil
}

func plain(v reflect.Value) any {
	v = registry.Indirect(v)
	if !v.IsValid() {
		return nil
	}
	if v.Type() == timeType {
		return v.Interface().(time.Time).Unix()
	}
	return v.Interface()
}
