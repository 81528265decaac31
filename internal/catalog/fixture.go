package catalog

import (
	"context"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
)

// Saver persists one object of an entity.
type Saver interface {
	Save(ctx context.Context, entity string, obj any) error
}

// Fixture is a YAML catalog snapshot. Categories reference their parent and
// products their category by id.
type Fixture struct {
	Categories []CategoryRecord `yaml:"categories"`
	Products   []ProductRecord  `yaml:"products"`
}

// CategoryRecord is one category row of a fixture.
type CategoryRecord struct {
	ID     int64  `yaml:"id"`
	Name   string `yaml:"name"`
	Parent int64  `yaml:"parent"`
}

// ProductRecord is one product row of a fixture.
type ProductRecord struct {
	ID          int64     `yaml:"id"`
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Price       float64   `yaml:"price"`
	Stock       int       `yaml:"stock"`
	Tags        []string  `yaml:"tags"`
	Category    int64     `yaml:"category"`
	Labels      []Label   `yaml:"labels"`
	CreatedAt   time.Time `yaml:"created_at"`
}

// DecodeFixture reads a fixture document.
func DecodeFixture(r io.Reader) (Fixture, error) {
	var f Fixture
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return Fixture{}, fmt.Errorf("decode fixture: %w", err)
	}
	return f, nil
}

// Build resolves references and returns categories then products, ready to save.
func (f Fixture) Build() ([]*Category, []*Product, error) {
	cats := make(map[int64]*Category, len(f.Categories))
	ordered := make([]*Category, 0, len(f.Categories))
	for _, r := range f.Categories {
		if r.ID == 0 {
			return nil, nil, fmt.Errorf("category %q: id is required", r.Name)
		}
		c := &Category{ID: r.ID, Name: r.Name, parentID: r.Parent}
		cats[r.ID] = c
		ordered = append(ordered, c)
	}
	for _, c := range ordered {
		if c.parentID == 0 {
			continue
		}
		p, ok := cats[c.parentID]
		if !ok {
			return nil, nil, fmt.Errorf("category %d: unknown parent %d", c.ID, c.parentID)
		}
		c.Parent = p
	}

	products := make([]*Product, 0, len(f.Products))
	for _, r := range f.Products {
		if r.ID == 0 {
			return nil, nil, fmt.Errorf("product %q: id is required", r.Name)
		}
		p := &Product{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			Price:       r.Price,
			Stock:       r.Stock,
			Tags:        r.Tags,
			Labels:      r.Labels,
			CreatedAt:   r.CreatedAt,
			categoryID:  r.Category,
		}
		if r.Category != 0 {
			c, ok := cats[r.Category]
			if !ok {
				return nil, nil, fmt.Errorf("product %d: unknown category %d", r.ID, r.Category)
			}
			p.Category = c
		}
		if p.CreatedAt.IsZero() {
			p.CreatedAt = time.Now().UTC().Truncate(time.Second)
		}
		products = append(products, p)
	}
	return ordered, products, nil
}

// Seed saves every fixture object through s and returns how many were written.
func Seed(ctx context.Context, s Saver, f Fixture) (int, error) {
	cats, products, err := f.Build()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, c := range cats {
		if err := s.Save(ctx, EntityCategory, c); err != nil {
			return n, fmt.Errorf("save category %d: %w", c.ID, err)
		}
		n++
	}
	for _, p := range products {
		if err := s.Save(ctx, EntityProduct, p); err != nil {
			return n, fmt.Errorf("save product %d: %w", p.ID, err)
		}
		n++
	}
	return n, nil
}
