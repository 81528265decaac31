package registry

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/kailas-cloud/indexsync/internal/domain"
	"github.com/kailas-cloud/indexsync/internal/domain/collection/field"
)

// TagKey is the struct tag read at registration.
const TagKey = "index"

// fieldTag is a parsed `index:"name,type=T,facet,optional,sort,getter=M,id"` tag.
type fieldTag struct {
	name     string
	typ      field.Type
	facet    bool
	optional bool
	sort     bool
	getter   string
	id       bool
	skip     bool
}

func parseTag(sf reflect.StructField) (fieldTag, bool, error) {
	raw, ok := sf.Tag.Lookup(TagKey)
	if !ok {
		return fieldTag{}, false, nil
	}
	if raw == "-" {
		return fieldTag{skip: true}, true, nil
	}

	parts := strings.Split(raw, ",")
	t := fieldTag{name: strings.TrimSpace(parts[0]), typ: field.Auto}
	for _, p := range parts[1:] {
		opt := strings.TrimSpace(p)
		key, val, hasVal := strings.Cut(opt, "=")
		switch {
		case opt == "facet":
			t.facet = true
		case opt == "optional":
			t.optional = true
		case opt == "sort":
			t.sort = true
		case opt == "id":
			t.id = true
		case key == "type" && hasVal:
			t.typ = field.Type(val)
			if !t.typ.IsValid() {
				return fieldTag{}, true, domain.NewConfigurationError("field %s: unknown type %q", sf.Name, val)
			}
		case key == "getter" && hasVal && val != "":
			t.getter = val
		case opt == "":
		default:
			return fieldTag{}, true, domain.NewConfigurationError("field %s: unknown tag option %q", sf.Name, opt)
		}
	}
	return t, true, nil
}

// effectiveName resolves tag name, then json name, then the Go field name.
func effectiveName(sf reflect.StructField, tagName string) string {
	if tagName != "" {
		return tagName
	}
	if js, ok := sf.Tag.Lookup("json"); ok {
		if n, _, _ := strings.Cut(js, ","); n != "" && n != "-" {
			return n
		}
	}
	return sf.Name
}

// pascal turns "created_at" or "name" into "CreatedAt" / "Name".
func pascal(key string) string {
	var b strings.Builder
	up := true
	for _, r := range key {
		if r == '_' || r == '-' || r == '.' {
			up = true
			continue
		}
		if up && r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		up = false
		b.WriteRune(r)
	}
	return b.String()
}

func typeError(t reflect.Type, format string, args ...any) error {
	return domain.NewConfigurationError("%s: %s", t, fmt.Sprintf(format, args...))
}
