package registry

import (
	"reflect"
	"strings"
	"sync"

	"github.com/kailas-cloud/indexsync/internal/domain/document"
)

// ChainSeparator splits a method chain such as "Category->Name".
const ChainSeparator = "->"

// Getter reads a value from an object. The zero Value means null.
type Getter func(v reflect.Value) (reflect.Value, error)

var (
	errorType      = reflect.TypeFor[error]()
	identifierType = reflect.TypeFor[Identifier]()
)

// Identifier lets a type supply its own identity. ok is false while unset.
type Identifier interface {
	IndexID() (string, bool)
}

// Indirect unwraps interfaces and pointers. Nil yields the zero Value.
func Indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func baseType(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// addr returns a pointer to v so pointer-receiver methods are callable.
func addr(v reflect.Value) reflect.Value {
	if v.Kind() == reflect.Pointer {
		return v
	}
	if v.CanAddr() {
		return v.Addr()
	}
	p := reflect.New(v.Type())
	p.Elem().Set(v)
	return p
}

func isAccessor(mt reflect.Type) bool {
	// mt includes the receiver.
	if mt.NumIn() != 1 {
		return false
	}
	return mt.NumOut() == 1 || (mt.NumOut() == 2 && mt.Out(1) == errorType)
}

// methodGetter resolves a zero-argument method on t or *t.
func methodGetter(t reflect.Type, name string) (Getter, reflect.Type, bool) {
	bt := baseType(t)
	if bt.Kind() == reflect.Interface {
		m, ok := bt.MethodByName(name)
		if !ok || m.Type.NumIn() != 0 || (m.Type.NumOut() != 1 && !(m.Type.NumOut() == 2 && m.Type.Out(1) == errorType)) {
			return nil, nil, false
		}
		return func(v reflect.Value) (reflect.Value, error) {
			v = Indirect(v)
			if !v.IsValid() {
				return reflect.Value{}, nil
			}
			return call(v.MethodByName(name))
		}, m.Type.Out(0), true
	}

	m, ok := reflect.PointerTo(bt).MethodByName(name)
	if !ok || !isAccessor(m.Type) {
		return nil, nil, false
	}
	idx := m.Index
	return func(v reflect.Value) (reflect.Value, error) {
		v = Indirect(v)
		if !v.IsValid() {
			return reflect.Value{}, nil
		}
		return call(addr(v).Method(idx))
	}, m.Type.Out(0), true
}

func call(m reflect.Value) (reflect.Value, error) {
	out := m.Call(nil)
	if len(out) == 2 && !out[1].IsNil() {
		return reflect.Value{}, out[1].Interface().(error)
	}
	return out[0], nil
}

// fieldGetter resolves an exported struct field by Go name.
func fieldGetter(t reflect.Type, name string) (Getter, reflect.Type, bool) {
	bt := baseType(t)
	if bt.Kind() != reflect.Struct {
		return nil, nil, false
	}
	sf, ok := bt.FieldByName(name)
	if !ok || !sf.IsExported() {
		return nil, nil, false
	}
	return indexGetter(sf.Index), sf.Type, true
}

func indexGetter(index []int) Getter {
	return func(v reflect.Value) (reflect.Value, error) {
		v = Indirect(v)
		if !v.IsValid() {
			return reflect.Value{}, nil
		}
		return v.FieldByIndex(index), nil
	}
}

// member resolves a method first, then an exported field.
func member(t reflect.Type, name string) (Getter, reflect.Type, bool) {
	if g, rt, ok := methodGetter(t, name); ok {
		return g, rt, true
	}
	return fieldGetter(t, name)
}

// TypeInfo holds resolved accessors for one type. It is built once per type and cached.
type TypeInfo struct {
	Type reflect.Type

	id   func(v reflect.Value) (string, bool)
	name Getter

	mu     sync.Mutex
	keys   map[string]Getter
	chains map[string]Getter
}

func newTypeInfo(t reflect.Type) *TypeInfo {
	ti := &TypeInfo{Type: t, keys: map[string]Getter{}, chains: map[string]Getter{}}
	ti.id = resolveIdentity(t)
	ti.name = conventional(t, "name")
	return ti
}

// HasIdentity reports whether the type exposes an identity accessor.
func (ti *TypeInfo) HasIdentity() bool { return ti.id != nil }

// Identity returns the identity of v. ok is false when unset or absent.
func (ti *TypeInfo) Identity(v reflect.Value) (string, bool) {
	if ti.id == nil {
		return "", false
	}
	return ti.id(v)
}

// Name reads the conventional name accessor. ok is false when the type has none.
func (ti *TypeInfo) Name(v reflect.Value) (reflect.Value, bool, error) {
	if ti.name == nil {
		return reflect.Value{}, false, nil
	}
	out, err := ti.name(v)
	return out, true, err
}

// Key returns the conventional accessor for key (Get<Key>, <Key> method, <Key> field),
// or nil when the type has none.
func (ti *TypeInfo) Key(key string) Getter {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	if g, ok := ti.keys[key]; ok {
		return g
	}
	g := conventional(ti.Type, key)
	ti.keys[key] = g
	return g
}

// Chain resolves a "A->B" method chain against this type.
func (ti *TypeInfo) Chain(r *Registry, chain string) (Getter, error) {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	if g, ok := ti.chains[chain]; ok {
		return g, nil
	}
	g, err := r.chain(ti.Type, splitChain(chain))
	if err != nil {
		return nil, err
	}
	ti.chains[chain] = g
	return g, nil
}

func splitChain(chain string) []string {
	segs := strings.Split(chain, ChainSeparator)
	for i := range segs {
		segs[i] = strings.TrimSpace(segs[i])
	}
	return segs
}

func conventional(t reflect.Type, key string) Getter {
	p := pascal(key)
	for _, name := range []string{"Get" + p, p} {
		if g, _, ok := methodGetter(t, name); ok {
			return g
		}
	}
	if g, _, ok := fieldGetter(t, p); ok {
		return g
	}
	if bt := baseType(t); bt.Kind() == reflect.Struct {
		for i := range bt.NumField() {
			sf := bt.Field(i)
			if sf.IsExported() && effectiveName(sf, "") == key {
				return indexGetter(sf.Index)
			}
		}
	}
	return nil
}

// resolveIdentity picks Identifier, then an id-tagged or id-named field, then GetID/ID.
func resolveIdentity(t reflect.Type) func(reflect.Value) (string, bool) {
	bt := baseType(t)
	if bt.Kind() == reflect.Interface {
		return nil
	}
	if reflect.PointerTo(bt).Implements(identifierType) {
		return func(v reflect.Value) (string, bool) {
			v = Indirect(v)
			if !v.IsValid() {
				return "", false
			}
			return addr(v).Interface().(Identifier).IndexID()
		}
	}
	if bt.Kind() == reflect.Struct {
		if idx, ok := identityField(bt); ok {
			return identityFrom(indexGetter(idx))
		}
	}
	for _, name := range []string{"GetID", "ID", "GetId", "Id"} {
		if g, _, ok := methodGetter(bt, name); ok {
			return identityFrom(g)
		}
	}
	return nil
}

func identityField(bt reflect.Type) ([]int, bool) {
	var byName []int
	for i := range bt.NumField() {
		sf := bt.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag, _, err := parseTag(sf)
		if err == nil && tag.id {
			return sf.Index, true
		}
		if byName == nil && strings.EqualFold(effectiveName(sf, tag.name), "id") {
			byName = sf.Index
		}
	}
	return byName, byName != nil
}

// identityFrom treats zero values and nil pointers as unset.
func identityFrom(g Getter) func(reflect.Value) (string, bool) {
	return func(v reflect.Value) (string, bool) {
		out, err := g(v)
		if err != nil || !out.IsValid() {
			return "", false
		}
		out = Indirect(out)
		if !out.IsValid() || out.IsZero() {
			return "", false
		}
		return document.IDString(out.Interface()), true
	}
}

// chain builds a getter for segs starting at t. Interface-typed links are
// resolved on first use per dynamic type.
func (r *Registry) chain(t reflect.Type, segs []string) (Getter, error) {
	if len(segs) == 0 {
		return func(v reflect.Value) (reflect.Value, error) { return v, nil }, nil
	}
	if baseType(t).Kind() == reflect.Interface {
		if _, _, ok := methodGetter(t, segs[0]); !ok {
			return r.dynamicChain(segs), nil
		}
	}
	get, next, ok := member(t, segs[0])
	if !ok {
		return nil, typeError(t, "method %q does not exist", segs[0])
	}
	rest, err := r.chain(next, segs[1:])
	if err != nil {
		return nil, err
	}
	return func(v reflect.Value) (reflect.Value, error) {
		out, err := get(v)
		if err != nil {
			return reflect.Value{}, err
		}
		if !Indirect(out).IsValid() {
			return reflect.Value{}, nil
		}
		return rest(out)
	}, nil
}

func (r *Registry) dynamicChain(segs []string) Getter {
	joined := strings.Join(segs, ChainSeparator)
	return func(v reflect.Value) (reflect.Value, error) {
		v = Indirect(v)
		if !v.IsValid() {
			return reflect.Value{}, nil
		}
		g, err := r.TypeInfo(v.Type()).Chain(r, joined)
		if err != nil {
			return reflect.Value{}, err
		}
		return g(v)
	}
}
