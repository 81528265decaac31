package redis

import (
	"errors"
	"strconv"
	"strings"

	"github.com/kailas-cloud/indexsync/internal/domain/collection"
	"github.com/kailas-cloud/indexsync/internal/domain/collection/field"
)

type ftFieldType int

const (
	ftNumeric ftFieldType = iota
	ftTag
	ftText
)

// ftField is one attribute of an FT index over JSON documents.
type ftField struct {
	Path     string
	Alias    string
	Type     ftFieldType
	Sortable bool
}

// ftIndex is a complete FT.CREATE definition.
type ftIndex struct {
	Name     string
	Prefixes []string
	Fields   []ftField
}

// indexFromSchema maps a collection schema onto RediSearch attributes.
// Object fields are stored but not indexed. The id is always indexed as a tag.
func indexFromSchema(name, prefix string, s collection.Schema) ftIndex {
	idx := ftIndex{
		Name:     name,
		Prefixes: []string{prefix},
		Fields:   []ftField{{Path: "$.id", Alias: "id", Type: ftTag}},
	}
	for _, f := range s.Fields {
		ff, ok := ftFieldFor(f)
		if !ok {
			continue
		}
		idx.Fields = append(idx.Fields, ff)
	}
	return idx
}

func ftFieldFor(f field.Field) (ftField, bool) {
	ff := ftField{Path: jsonPath(f), Alias: f.Name, Sortable: f.Sort}
	switch f.Type {
	case field.String:
		ff.Type = ftText
		if f.Facet {
			ff.Type = ftTag
		}
	case field.StringArray, field.Bool, field.BoolArray:
		ff.Type = ftTag
	case field.Int32, field.Int64, field.Float, field.Int32Array, field.Int64Array, field.FloatArray:
		ff.Type = ftNumeric
	default:
		return ftField{}, false
	}
	return ff, true
}

// jsonPath turns "labels.name" into "$.labels[*].name" for array types.
func jsonPath(f field.Field) string {
	if !f.Type.IsArray() {
		return "$." + f.Name
	}
	if parent, child, ok := strings.Cut(f.Name, "."); ok {
		return "$." + parent + "[*]." + child
	}
	return "$." + f.Name + "[*]"
}

func (idx ftIndex) args() ([]string, error) {
	if idx.Name == "" {
		return nil, errors.New("index name is required")
	}
	if len(idx.Fields) == 0 {
		return nil, errors.New("at least one field is required")
	}

	args := []string{idx.Name, "ON", "JSON"}
	if len(idx.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(idx.Prefixes)))
		args = append(args, idx.Prefixes...)
	}
	args = append(args, "SCHEMA")

	seen := make(map[string]bool, len(idx.Fields))
	for _, f := range idx.Fields {
		if seen[f.Alias] {
			return nil, errors.New("duplicate field name: " + f.Alias)
		}
		seen[f.Alias] = true
		args = append(args, f.args()...)
	}
	return args, nil
}

func (f ftField) args() []string {
	args := []string{f.Path, "AS", f.Alias}
	switch f.Type {
	case ftNumeric:
		args = append(args, "NUMERIC")
	case ftText:
		args = append(args, "TEXT")
	case ftTag:
		args = append(args, "TAG", "SEPARATOR", "|")
	}
	if f.Sortable {
		args = append(args, "SORTABLE")
	}
	return args
}
