package field

import (
	"fmt"
	"reflect"
)

// Type is the index type of a field.
type Type string

// Field type constants.
const (
	String      Type = "string"
	StringArray Type = "string[]"
	Int32       Type = "int32"
	Int32Array  Type = "int32[]"
	Int64       Type = "int64"
	Int64Array  Type = "int64[]"
	Float       Type = "float"
	FloatArray  Type = "float[]"
	Bool        Type = "bool"
	BoolArray   Type = "bool[]"
	Object      Type = "object"
	ObjectArray Type = "object[]"
	// Auto is the sentinel for "infer from the property's declared type".
	Auto Type = "auto"
)

var known = map[Type]bool{
	String: true, StringArray: true, Int32: true, Int32Array: true,
	Int64: true, Int64Array: true, Float: true, FloatArray: true,
	Bool: true, BoolArray: true, Object: true, ObjectArray: true, Auto: true,
}

// IsValid reports whether t is a supported field type.
func (t Type) IsValid() bool { return known[t] }

// IsGenericString reports whether a related object in a field of this type
// collapses to its identity string.
func (t Type) IsGenericString() bool { return t == String || t == Auto }

// IsNumeric reports whether the type is a scalar number.
func (t Type) IsNumeric() bool { return t == Int32 || t == Int64 || t == Float }

// IsArray reports whether the type holds a list of values.
func (t Type) IsArray() bool {
	switch t {
	case StringArray, Int32Array, Int64Array, FloatArray, BoolArray, ObjectArray:
		return true
	}
	return false
}

// Detect maps a Go type onto an index type. The mapping is fixed:
// string -> string, integers -> int32, floats -> float, bool -> bool,
// slices and arrays -> string[], anything else -> string.
func Detect(t reflect.Type) Type {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return String
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Int32
	case reflect.Float32, reflect.Float64:
		return Float
	case reflect.Bool:
		return Bool
	case reflect.Slice, reflect.Array:
		return StringArray
	default:
		return String
	}
}

// Field is one entry of a collection schema.
type Field struct {
	Name     string `json:"name"`
	Type     Type   `json:"type"`
	Facet    bool   `json:"facet"`
	Optional bool   `json:"optional"`
	Sort     bool   `json:"sort"`
}

// New validates and creates a Field. Auto must be resolved before calling New.
func New(name string, ft Type, facet, optional, sort bool) (Field, error) {
	if name == "" {
		return Field{}, fmt.Errorf("field name is required")
	}
	if ft == Auto || !ft.IsValid() {
		return Field{}, fmt.Errorf("invalid field type %q for %q", ft, name)
	}
	return Field{Name: name, Type: ft, Facet: facet, Optional: optional, Sort: sort}, nil
}
