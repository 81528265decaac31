// Package catalog is the sample indexable domain: products and their categories.
package catalog

import (
	"time"

	"github.com/kailas-cloud/indexsync/internal/domain"
	"github.com/kailas-cloud/indexsync/internal/domain/collection/field"
	"github.com/kailas-cloud/indexsync/internal/domain/synonym"
	"github.com/kailas-cloud/indexsync/internal/registry"
)

// Entity names.
const (
	EntityProduct  = "product"
	EntityCategory = "category"
)

// Category groups products. Categories may nest.
type Category struct {
	ID     int64     `index:"id" json:"id"`
	Name   string    `index:"name,facet" json:"name"`
	Parent *Category `index:"parent_id,optional" json:"parent,omitempty"`

	parentID int64
}

// Label is a free-form product marker.
type Label struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Product is a sellable item.
type Product struct {
	ID          int64     `index:"id" json:"id"`
	Name        string    `index:"name" json:"name"`
	Description string    `index:"description,optional" json:"description"`
	Price       float64   `index:"price,sort" json:"price"`
	Stock       int       `index:"stock" json:"stock"`
	Tags        []string  `index:"tags,facet" json:"tags"`
	Category    *Category `index:"category,type=object,optional" json:"category,omitempty"`
	Labels      []Label   `index:"labels,type=object[],optional" json:"labels"`
	CreatedAt   time.Time `index:"created_at,type=int64" json:"created_at"`

	categoryID int64
}

// ProductIndex describes the products collection.
var ProductIndex = registry.Indexable{
	Entity:              EntityProduct,
	Collection:          "products",
	DefaultSortingField: "price",
	EnableNestedFields:  true,
	NestedFields: []registry.NestedField{
		{Name: "category.name", Type: field.String, Facet: true, Optional: true},
		{Name: "category.parent", Type: field.String, Optional: true, Method: "Parent->Name"},
		{Name: "labels.name", Type: field.StringArray, Facet: true, Optional: true},
	},
	Synonyms: []synonym.Synonym{
		{ID: "lighting", Synonyms: []string{"lamp", "light", "luminaire"}},
	},
}

// CategoryIndex describes the categories collection.
var CategoryIndex = registry.Indexable{
	Entity:     EntityCategory,
	Collection: "categories",
}

// Register adds the catalog types to r. When entities is non-empty only the
// listed ones are registered and an unknown name is a configuration error.
func Register(r *registry.Registry, entities ...string) error {
	register := map[string]func() error{
		EntityProduct: func() error {
			_, err := registry.Register[Product](r, ProductIndex)
			return err //nolint:wrapcheck // already a configuration error naming the type
		},
		EntityCategory: func() error {
			_, err := registry.Register[Category](r, CategoryIndex)
			return err //nolint:wrapcheck // already a configuration error naming the type
		},
	}
	if len(entities) == 0 {
		entities = []string{EntityProduct, EntityCategory}
	}
	for _, e := range entities {
		fn, ok := register[e]
		if !ok {
			return domain.NewConfigurationError("indexable entity %q is not part of the catalog", e)
		}
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}
