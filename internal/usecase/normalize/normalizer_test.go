package normalize

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/kailas-cloud/indexsync/internal/domain"
	"github.com/kailas-cloud/indexsync/internal/domain/collection/field"
	"github.com/kailas-cloud/indexsync/internal/registry"
)

type category struct {
	ID   int64 `index:"id"`
	name string
}

func (c *category) GetName() string { return c.name }

type label struct {
	ID    string
	Name  string
	Group *category
}

type product struct {
	ID        int       `index:"id"`
	Name      string    `index:"name"`
	Price     float64   `index:"price"`
	Tags      []string  `index:"tags"`
	Category  *category `index:"category"`
	Owner     *category `index:"owner,type=object"`
	Labels    []label   `index:"labels,type=object[]"`
	CreatedAt time.Time `index:"created_at"`
	Notes     *string   `index:"notes,optional"`
	Internal  string
}

type book struct {
	ID    int
	title string
}

func (b book) Title() string { return b.title }

type widget struct{ ID int }

type shelf struct {
	ID    int   `index:"id"`
	Items []any `index:"items,type=object[]"`
}

type custom struct {
	ID   string `index:"id"`
	Body string `index:"body"`
}

func (c *custom) Document() map[string]any {
	return map[string]any{"body": "custom:" + c.Body, "id": "ignored"}
}

type broken struct {
	ID int `index:"id"`
}

func (b *broken) Document() string { return "nope" }

type event struct {
	ID        int          `index:"id"`
	Dates     []time.Time  `index:"dates"`
	Reminders []*time.Time `index:"reminders"`
	Window    [2]time.Time `index:"window"`
}

type anonymous struct {
	Title string `index:"title"`
}

func newNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	r := registry.New()
	mustRegister(t, func() error {
		_, err := registry.Register[product](r, registry.Indexable{
			Collection: "products",
			NestedFields: []registry.NestedField{
				{Name: "labels.name", Type: field.String},
				{Name: "labels.group", Type: field.String, Method: "Group->GetName"},
			},
		})
		return err
	})
	mustRegister(t, func() error {
		_, err := registry.Register[shelf](r, registry.Indexable{
			Collection:   "shelves",
			NestedFields: []registry.NestedField{{Name: "items.title", Type: field.String, Method: "Title"}},
		})
		return err
	})
	mustRegister(t, func() error {
		_, err := registry.Register[custom](r, registry.Indexable{Collection: "custom", Normalizer: "Document"})
		return err
	})
	mustRegister(t, func() error {
		_, err := registry.Register[broken](r, registry.Indexable{Collection: "broken", Normalizer: "Document"})
		return err
	})
	mustRegister(t, func() error {
		_, err := registry.Register[event](r, registry.Indexable{Collection: "events"})
		return err
	})
	mustRegister(t, func() error {
		_, err := registry.Register[anonymous](r, registry.Indexable{Collection: "anonymous"})
		return err
	})
	return New(r)
}

func mustRegister(t *testing.T, fn func() error) {
	t.Helper()
	if err := fn(); err != nil {
		t.Fatalf("register: %v", err)
	}
}

func TestNormalize_Scalars(t *testing.T) {
	n := newNormalizer(t)
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	p := &product{
		ID: 42, Name: "Desk lamp", Price: 19.5, Tags: []string{"home", "light"},
		CreatedAt: created, Internal: "secret",
	}

	got, ok, err := n.Normalize(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected a document")
	}
	if got.Collection != "products" {
		t.Errorf("collection = %q", got.Collection)
	}
	doc := got.Document
	if doc["id"] != "42" {
		t.Errorf("id = %#v, want \"42\"", doc["id"])
	}
	if doc["name"] != "Desk lamp" || doc["price"] != 19.5 {
		t.Errorf("scalars = %v", doc)
	}
	if !reflect.DeepEqual(doc["tags"], []string{"home", "light"}) {
		t.Errorf("tags = %#v", doc["tags"])
	}
	if doc["created_at"] != created.Unix() {
		t.Errorf("created_at = %#v, want %d", doc["created_at"], created.Unix())
	}
	for _, key := range []string{"category", "owner", "labels", "notes"} {
		v, present := doc[key]
		if !present {
			t.Errorf("field %q missing", key)
		}
		if v != nil {
			t.Errorf("field %q = %#v, want nil", key, v)
		}
	}
	if _, present := doc["Internal"]; present {
		t.Error("untagged fields must not be emitted")
	}
	if len(doc) != 9 {
		t.Errorf("document has %d keys: %v", len(doc), doc)
	}
}

func TestNormalize_TimeCollections(t *testing.T) {
	n := newNormalizer(t)
	first := time.Unix(1700000000, 0)
	second := time.Unix(1700086400, 0).In(time.FixedZone("CET", 3600))

	got, ok, err := n.Normalize(&event{
		ID:        1,
		Dates:     []time.Time{first, second},
		Reminders: []*time.Time{&first, nil},
		Window:    [2]time.Time{first, second},
	})
	if err != nil || !ok {
		t.Fatalf("Normalize() = ok %v, err %v", ok, err)
	}

	want := []any{int64(1700000000), int64(1700086400)}
	if !reflect.DeepEqual(got.Document["dates"], want) {
		t.Errorf("dates = %#v, want %#v", got.Document["dates"], want)
	}
	if !reflect.DeepEqual(got.Document["window"], want) {
		t.Errorf("window = %#v, want %#v", got.Document["window"], want)
	}
	if r := []any{int64(1700000000), nil}; !reflect.DeepEqual(got.Document["reminders"], r) {
		t.Errorf("reminders = %#v, want %#v", got.Document["reminders"], r)
	}
}

func TestNormalize_UnsetIdentity(t *testing.T) {
	n := newNormalizer(t)

	_, ok, err := n.Normalize(&product{Name: "Draft", Price: 1})
	if err != nil || ok {
		t.Errorf("Normalize() = ok %v, err %v; want none", ok, err)
	}
	_, ok, err = n.Normalize(&anonymous{Title: "x"})
	if err != nil || ok {
		t.Errorf("type without identity: ok %v, err %v", ok, err)
	}
	var nilProduct *product
	if _, ok, _ := n.Normalize(nilProduct); ok {
		t.Error("nil pointer must normalize to none")
	}
}

func TestNormalize_NotIndexable(t *testing.T) {
	n := newNormalizer(t)
	if _, ok, err := n.Normalize(struct{ ID int }{ID: 1}); ok || err != nil {
		t.Errorf("unregistered type: ok %v, err %v", ok, err)
	}
}

func TestNormalize_Related(t *testing.T) {
	n := newNormalizer(t)
	lamps := &category{ID: 3, name: "Lamps"}
	p := product{
		ID:       7,
		Category: lamps,
		Owner:    &category{ID: 9, name: "Ops"},
		Labels: []label{
			{ID: "l1", Name: "red", Group: lamps},
			{ID: "l2", Name: "blue"},
			{ID: "l3", Name: "green", Group: &category{ID: 4, name: "Outdoor"}},
		},
	}

	got, ok, err := n.Normalize(p)
	if err != nil || !ok {
		t.Fatalf("Normalize() ok %v err %v", ok, err)
	}
	doc := got.Document
	if doc["category"] != "3" {
		t.Errorf("category = %#v, want related id", doc["category"])
	}
	wantOwner := map[string]any{"id": "9", "name": "Ops"}
	if !reflect.DeepEqual(doc["owner"], wantOwner) {
		t.Errorf("owner = %#v, want %#v", doc["owner"], wantOwner)
	}
	wantLabels := []any{
		map[string]any{"id": "l1", "name": "red", "group": "Lamps"},
		map[string]any{"id": "l2", "name": "blue", "group": nil},
		map[string]any{"id": "l3", "name": "green", "group": "Outdoor"},
	}
	if !reflect.DeepEqual(doc["labels"], wantLabels) {
		t.Errorf("labels = %#v\nwant %#v", doc["labels"], wantLabels)
	}
}

func TestNormalize_DynamicChain(t *testing.T) {
	n := newNormalizer(t)

	got, ok, err := n.Normalize(&shelf{ID: 1, Items: []any{book{ID: 5, title: "Dune"}, &book{ID: 6, title: "Emma"}}})
	if err != nil || !ok {
		t.Fatalf("Normalize() ok %v err %v", ok, err)
	}
	want := []any{
		map[string]any{"id": "5", "title": "Dune"},
		map[string]any{"id": "6", "title": "Emma"},
	}
	if !reflect.DeepEqual(got.Document["items"], want) {
		t.Errorf("items = %#v", got.Document["items"])
	}

	_, _, err = n.Normalize(&shelf{ID: 2, Items: []any{widget{ID: 1}}})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("missing chain method: got %v, want configuration error", err)
	}
}

func TestNormalize_CustomNormalizer(t *testing.T) {
	n := newNormalizer(t)

	got, ok, err := n.Normalize(&custom{ID: "c1", Body: "text"})
	if err != nil || !ok {
		t.Fatalf("Normalize() ok %v err %v", ok, err)
	}
	if got.Document["body"] != "custom:text" {
		t.Errorf("body = %#v", got.Document["body"])
	}
	if got.Document["id"] != "c1" {
		t.Errorf("id = %#v, identity must win over the mapping", got.Document["id"])
	}

	_, _, err = n.Normalize(&broken{ID: 1})
	if !errors.Is(err, domain.ErrLogic) {
		t.Errorf("non-map normalizer result: got %v, want logic error", err)
	}
}
