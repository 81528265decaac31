// Package registry holds indexable type descriptors. Struct tags are read once at
// registration and resolved into accessor functions.
package registry

import (
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/kailas-cloud/indexsync/internal/domain"
	"github.com/kailas-cloud/indexsync/internal/domain/collection/field"
)

var timeType = reflect.TypeFor[time.Time]()

// Registry maps entity names and Go types to descriptors.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]*Descriptor
	types    map[reflect.Type]*Descriptor
	order    []string

	infoMu sync.Mutex
	infos  map[reflect.Type]*TypeInfo
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		entities: map[string]*Descriptor{},
		types:    map[reflect.Type]*Descriptor{},
		infos:    map[reflect.Type]*TypeInfo{},
	}
}

// Register registers T with ix.
func Register[T any](r *Registry, ix Indexable) (*Descriptor, error) {
	return r.RegisterType(reflect.TypeFor[T](), ix)
}

// RegisterType registers t (a struct or pointer to struct).
func (r *Registry) RegisterType(t reflect.Type, ix Indexable) (*Descriptor, error) {
	t = baseType(t)
	if t.Kind() != reflect.Struct {
		return nil, typeError(t, "not a struct")
	}
	if strings.TrimSpace(ix.Collection) == "" {
		return nil, typeError(t, "collection name is required")
	}
	entity := ix.Entity
	if entity == "" {
		entity = strings.ToLower(t.Name())
	}

	d := &Descriptor{Indexable: ix, Type: t, info: r.TypeInfo(t)}
	d.Entity = entity

	if err := r.resolveFields(d); err != nil {
		return nil, err
	}
	if err := r.resolveNormalizer(d); err != nil {
		return nil, err
	}
	if err := r.resolveNested(d); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.entities[entity]; dup {
		return nil, domain.NewConfigurationError("entity %q is already registered", entity)
	}
	if _, dup := r.types[t]; dup {
		return nil, typeError(t, "already registered")
	}
	for _, other := range r.entities {
		if other.Collection == ix.Collection {
			return nil, domain.NewConfigurationError("collection %q is already used by %s", ix.Collection, other.Type)
		}
	}
	r.entities[entity] = d
	r.types[t] = d
	r.order = append(r.order, entity)
	return d, nil
}

func (r *Registry) resolveFields(d *Descriptor) error {
	t := d.Type
	for i := range t.NumField() {
		sf := t.Field(i)
		tag, tagged, err := parseTag(sf)
		if err != nil {
			return err
		}
		if !tagged || tag.skip || !sf.IsExported() {
			continue
		}
		name := effectiveName(sf, tag.name)
		if tag.id || strings.EqualFold(name, "id") {
			continue
		}

		f := Field{
			Name: name, GoName: sf.Name, Declared: tag.typ,
			Facet: tag.facet, Optional: tag.optional, Sort: tag.sort,
			Static: sf.Type, get: indexGetter(sf.Index),
		}
		if tag.getter != "" {
			g, rt, ok := methodGetter(t, tag.getter)
			if !ok {
				return typeError(t, "getter %q for field %s does not exist", tag.getter, sf.Name)
			}
			f.get, f.Static = g, rt
		}
		f.Type = f.Declared
		if f.Type == field.Auto || f.Type == "" {
			f.Type = field.Detect(f.Static)
		}
		if _, dup := d.FieldByName(name); dup {
			return typeError(t, "duplicate field name %q", name)
		}
		d.Fields = append(d.Fields, f)

		if et := elemType(f.Static); et.Kind() == reflect.Struct && et != timeType {
			r.TypeInfo(et)
		}
	}
	return nil
}

func (r *Registry) resolveNormalizer(d *Descriptor) error {
	switch {
	case d.NormalizeFunc != nil:
		fn := d.NormalizeFunc
		d.normalize = func(v reflect.Value) (any, error) { return fn(addr(Indirect(v)).Interface()) }
	case d.Normalizer != "":
		g, _, ok := methodGetter(d.Type, d.Normalizer)
		if !ok {
			return typeError(d.Type, "normalizer method %q does not exist", d.Normalizer)
		}
		d.normalize = func(v reflect.Value) (any, error) {
			out, err := g(v)
			if err != nil || !out.IsValid() {
				return nil, err
			}
			return out.Interface(), nil
		}
	}
	return nil
}

func (r *Registry) resolveNested(d *Descriptor) error {
	d.nested = map[string][]NestedKey{}
	for _, nf := range d.NestedFields {
		if nf.Name == "" || !nf.Type.IsValid() || nf.Type == field.Auto {
			return typeError(d.Type, "nested field %q needs a name and a concrete type", nf.Name)
		}
		parent, key, ok := splitNested(nf.Name)
		if !ok {
			continue
		}
		k := NestedKey{Key: key, Method: nf.Method}
		if nf.Method != "" {
			if pf, found := d.FieldByName(parent); found {
				g, err := r.chain(elemType(pf.Static), splitChain(nf.Method))
				if err != nil {
					return err
				}
				k.get = g
			}
		}
		d.nested[parent] = append(d.nested[parent], k)
	}
	return nil
}

// TypeInfo returns the cached accessors of t, resolving them on first use.
func (r *Registry) TypeInfo(t reflect.Type) *TypeInfo {
	t = baseType(t)
	r.infoMu.Lock()
	defer r.infoMu.Unlock()
	if ti, ok := r.infos[t]; ok {
		return ti
	}
	ti := newTypeInfo(t)
	r.infos[t] = ti
	return ti
}

// Lookup finds a descriptor by entity name.
func (r *Registry) Lookup(entity string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.entities[entity]
	return d, ok
}

// LookupType finds a descriptor by Go type. Pointers are dereferenced.
func (r *Registry) LookupType(t reflect.Type) (*Descriptor, bool) {
	if t == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.types[baseType(t)]
	return d, ok
}

// LookupValue finds the descriptor of obj's dynamic type.
func (r *Registry) LookupValue(obj any) (*Descriptor, bool) {
	return r.LookupType(reflect.TypeOf(obj))
}

// Descriptors returns all descriptors in registration order.
func (r *Registry) Descriptors() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Descriptor, 0, len(r.order))
	for _, e := range r.order {
		out = append(out, r.entities[e])
	}
	return out
}

// Entities returns the registered entity names in registration order.
func (r *Registry) Entities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}
