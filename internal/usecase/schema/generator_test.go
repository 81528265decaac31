package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/kailas-cloud/indexsync/internal/domain"
	"github.com/kailas-cloud/indexsync/internal/domain/collection/field"
	"github.com/kailas-cloud/indexsync/internal/registry"
)

type article struct {
	ID      int      `index:"id"`
	Title   string   `index:"title"`
	Views   int      `index:"views,sort"`
	Score   float32  `index:"score"`
	Draft   bool     `index:"draft,facet"`
	Tags    []string `index:"tags"`
	Summary string   `index:"summary,optional"`
	Body    string
}

func newGenerator(t *testing.T, ix registry.Indexable) *Generator {
	t.Helper()
	r := registry.New()
	if _, err := registry.Register[article](r, ix); err != nil {
		t.Fatalf("register: %v", err)
	}
	return New(r)
}

func TestGenerate_Fields(t *testing.T) {
	g := newGenerator(t, registry.Indexable{
		Collection:          "articles",
		DefaultSortingField: "views",
		EnableNestedFields:  true,
		NestedFields: []registry.NestedField{
			{Name: "author.name", Type: field.String, Optional: true},
			{Name: "author.country", Type: field.String, Facet: true},
		},
	})

	s, err := g.Generate("article")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Name != "articles" || s.DefaultSortingField != "views" || !s.EnableNestedFields {
		t.Errorf("schema header = %+v", s)
	}

	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	want := "title,views,score,draft,tags,summary,author.name,author.country"
	if strings.Join(names, ",") != want {
		t.Errorf("field order = %v, want %s", names, want)
	}

	types := map[string]field.Type{}
	for _, f := range s.Fields {
		types[f.Name] = f.Type
	}
	if types["title"] != field.String || types["views"] != field.Int32 ||
		types["score"] != field.Float || types["draft"] != field.Bool || types["tags"] != field.StringArray {
		t.Errorf("auto types = %v", types)
	}
	if !s.Fields[7].Facet || !s.Fields[6].Optional {
		t.Errorf("nested fragments must keep their flags: %+v", s.Fields[6:])
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	g := newGenerator(t, registry.Indexable{Collection: "articles"})

	a, err := g.Generate("article")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := g.Generate("article")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if !bytes.Equal(ja, jb) {
		t.Errorf("schemas differ:\n%s\n%s", ja, jb)
	}
	if strings.Contains(string(ja), `"id"`) {
		t.Errorf("identity must not be a schema field: %s", ja)
	}
	if strings.Contains(string(ja), "default_sorting_field") || strings.Contains(string(ja), "enable_nested_fields") {
		t.Errorf("unset options must be omitted: %s", ja)
	}
}

func TestGenerate_OptionalDefaultSort(t *testing.T) {
	g := newGenerator(t, registry.Indexable{Collection: "articles", DefaultSortingField: "summary"})

	_, err := g.Generate("article")
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), "summary") {
		t.Errorf("error should name the field: %v", err)
	}
}

func TestGenerate_MissingDefaultSort(t *testing.T) {
	g := newGenerator(t, registry.Indexable{Collection: "articles", DefaultSortingField: "body"})

	if _, err := g.Generate("article"); !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestGenerate_NotIndexable(t *testing.T) {
	g := New(registry.New())

	if _, err := g.Generate("ghost"); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestGenerate_NestedFragmentShadowsField(t *testing.T) {
	g := newGenerator(t, registry.Indexable{
		Collection:   "articles",
		NestedFields: []registry.NestedField{{Name: "title", Type: field.String}},
	})

	_, err := g.Generate("article")
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), "duplicate field name: title") {
		t.Errorf("error should name the duplicate: %v", err)
	}
}

func TestGenerate_InvalidCollectionName(t *testing.T) {
	g := newGenerator(t, registry.Indexable{Collection: "my articles"})

	_, err := g.Generate("article")
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), "my articles") {
		t.Errorf("error should name the collection: %v", err)
	}
}
