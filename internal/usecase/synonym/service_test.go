package synonym

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/kailas-cloud/indexsync/internal/domain"
	domsyn "github.com/kailas-cloud/indexsync/internal/domain/synonym"
	"github.com/kailas-cloud/indexsync/internal/registry"
)

// --- Mocks ---

type memStore struct {
	data    map[string]map[string]domsyn.Synonym
	upserts int
	failOn  string
}

func newMemStore() *memStore { return &memStore{data: map[string]map[string]domsyn.Synonym{}} }

func (m *memStore) UpsertSynonym(_ context.Context, c string, s domsyn.Synonym) error {
	if c == m.failOn {
		return errors.New("node unavailable")
	}
	m.upserts++
	if m.data[c] == nil {
		m.data[c] = map[string]domsyn.Synonym{}
	}
	s.Collection = ""
	m.data[c][s.ID] = s
	return nil
}

func (m *memStore) ListSynonyms(_ context.Context, c string) ([]domsyn.Synonym, error) {
	out := make([]domsyn.Synonym, 0, len(m.data[c]))
	for _, s := range m.data[c] {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) DeleteSynonym(_ context.Context, c, id string) error {
	if _, ok := m.data[c][id]; !ok {
		return &domain.ClusterError{Kind: domain.ErrNotFound, Op: "delete_synonym"}
	}
	delete(m.data[c], id)
	return nil
}

type product struct {
	ID   int    `index:"id"`
	Name string `index:"name"`
}

type category struct {
	ID   int    `index:"id"`
	Name string `index:"name"`
}

func newCatalog(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()
	if _, err := registry.Register[product](r, registry.Indexable{
		Collection: "products",
		Synonyms:   []domsyn.Synonym{{ID: "lamp", Synonyms: []string{"lamp", "light"}}},
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := registry.Register[category](r, registry.Indexable{Collection: "categories"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	return r
}

var configured = []domsyn.Synonym{
	{ID: "tv", Root: "tv", Synonyms: []string{"television", "telly"}},
	{ID: "sofa", Synonyms: []string{"sofa", "couch"}, Collection: "products"},
}

// --- Tests ---

func TestPlan(t *testing.T) {
	svc := New(newMemStore(), newCatalog(t), configured, nil)
	plan := svc.Plan()

	if len(plan) != 2 || plan[0].Collection != "categories" || plan[1].Collection != "products" {
		t.Fatalf("plan = %+v", plan)
	}
	ids := func(list []domsyn.Synonym) []string {
		out := make([]string, len(list))
		for i, s := range list {
			out[i] = s.ID
		}
		return out
	}
	if got := ids(plan[0].Synonyms); !reflect.DeepEqual(got, []string{"tv"}) {
		t.Errorf("categories = %v", got)
	}
	if got := ids(plan[1].Synonyms); !reflect.DeepEqual(got, []string{"lamp", "tv", "sofa"}) {
		t.Errorf("products = %v", got)
	}
}

func TestApply_Idempotent(t *testing.T) {
	store := newMemStore()
	svc := New(store, newCatalog(t), configured, nil)
	ctx := context.Background()

	first, err := svc.Apply(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	before, _ := svc.List(ctx, "products")

	second, err := svc.Apply(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after, _ := svc.List(ctx, "products")

	if first != second || first.Applied != 4 {
		t.Errorf("apply results = %+v, %+v", first, second)
	}
	if len(after) != 3 || !reflect.DeepEqual(before, after) {
		t.Errorf("stored definitions changed:\n%v\n%v", before, after)
	}
}

func TestApply_ContinuesAfterFailure(t *testing.T) {
	store := newMemStore()
	store.failOn = "categories"
	svc := New(store, newCatalog(t), configured, nil)

	res, err := svc.Apply(context.Background())
	if err == nil {
		t.Fatal("expected joined error")
	}
	if res.Applied != 3 || res.Failed != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestUpsert(t *testing.T) {
	store := newMemStore()
	svc := New(store, newCatalog(t), nil, nil)
	ctx := context.Background()
	syn := domsyn.Synonym{ID: "mug", Synonyms: []string{"mug", "cup"}}

	if err := svc.Upsert(ctx, "products", syn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Upsert(ctx, "products", syn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	list, _ := svc.List(ctx, "products")
	if len(list) != 1 || !list[0].Equal(syn) || list[0].Collection != "products" {
		t.Errorf("list = %+v", list)
	}

	if err := svc.Upsert(ctx, "", syn); err != nil {
		t.Fatalf("global upsert: %v", err)
	}
	if len(store.data["categories"]) != 1 {
		t.Errorf("global upsert must reach every collection: %v", store.data)
	}

	err := svc.Upsert(ctx, "products", domsyn.Synonym{ID: "empty"})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	store := newMemStore()
	svc := New(store, newCatalog(t), nil, nil)
	ctx := context.Background()
	_ = svc.Upsert(ctx, "products", domsyn.Synonym{ID: "mug", Synonyms: []string{"mug", "cup"}})

	if err := svc.Delete(ctx, "", "mug"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.Delete(ctx, "", "mug"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("second delete: got %v, want not found", err)
	}
	if err := svc.Delete(ctx, "products", ""); !errors.Is(err, domain.ErrConfiguration) {
		t.Errorf("empty id: got %v", err)
	}
}
