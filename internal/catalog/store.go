package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/indexsync/internal/repository/entity"
)

var ddl = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		parent_id BIGINT NULL REFERENCES categories(id)
	)`,
	`CREATE TABLE IF NOT EXISTS labels (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price DOUBLE PRECISION NOT NULL,
		stock INTEGER NOT NULL DEFAULT 0,
		tags TEXT NOT NULL DEFAULT '',
		category_id BIGINT NULL REFERENCES categories(id),
		created_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS product_labels (
		product_id BIGINT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		label_id BIGINT NOT NULL REFERENCES labels(id),
		position INTEGER NOT NULL,
		PRIMARY KEY (product_id, label_id)
	)`,
}

// Migrate creates the catalog tables.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range ddl {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate catalog: %w", err)
		}
	}
	return nil
}

// Mappings returns the repository mappings of the catalog entities.
func Mappings() []entity.Mapping {
	return []entity.Mapping{productMapping(), categoryMapping()}
}

func productMapping() entity.Mapping {
	return entity.Mapping{
		Entity: EntityProduct,
		Query: `SELECT id, name, description, price, stock, tags, category_id, created_at
			FROM products ORDER BY id`,
		Scan:    scanProduct,
		Hydrate: hydrateProducts,
		Exists:  "SELECT 1 FROM products WHERE id = ?",
		Write:   writeProduct,
		Delete: func(ctx context.Context, tx entity.Execer, obj any) error {
			p := obj.(*Product)
			if _, err := tx.ExecContext(ctx, "DELETE FROM product_labels WHERE product_id = ?", p.ID); err != nil {
				return err //nolint:wrapcheck // wrapped by the repository
			}
			_, err := tx.ExecContext(ctx, "DELETE FROM products WHERE id = ?", p.ID)
			return err //nolint:wrapcheck // wrapped by the repository
		},
		ID: func(obj any) any { return obj.(*Product).ID },
	}
}

func categoryMapping() entity.Mapping {
	return entity.Mapping{
		Entity: EntityCategory,
		Query:  "SELECT id, name, parent_id FROM categories ORDER BY id",
		Scan: func(rows *sql.Rows) (any, error) {
			c := &Category{}
			var parent sql.NullInt64
			if err := rows.Scan(&c.ID, &c.Name, &parent); err != nil {
				return nil, err //nolint:wrapcheck // wrapped by the repository
			}
			c.parentID = parent.Int64
			return c, nil
		},
		Hydrate: func(_ context.Context, _ entity.Querier, objs []any) error {
			byID := make(map[int64]*Category, len(objs))
			for _, o := range objs {
				c := o.(*Category)
				byID[c.ID] = c
			}
			for _, c := range byID {
				c.Parent = byID[c.parentID]
			}
			return nil
		},
		Exists: "SELECT 1 FROM categories WHERE id = ?",
		Write: func(ctx context.Context, tx entity.Execer, obj any) error {
			return upsertCategory(ctx, tx, obj.(*Category))
		},
		Delete: func(ctx context.Context, tx entity.Execer, obj any) error {
			_, err := tx.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", obj.(*Category).ID)
			return err //nolint:wrapcheck // wrapped by the repository
		},
		ID: func(obj any) any { return obj.(*Category).ID },
	}
}

func scanProduct(rows *sql.Rows) (any, error) {
	p := &Product{}
	var (
		tags     string
		category sql.NullInt64
		created  int64
	)
	if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &tags, &category, &created); err != nil {
		return nil, err //nolint:wrapcheck // wrapped by the repository
	}
	if tags != "" {
		p.Tags = strings.Split(tags, ",")
	}
	p.categoryID = category.Int64
	p.CreatedAt = time.Unix(created, 0).UTC()
	return p, nil
}

func hydrateProducts(ctx context.Context, q entity.Querier, objs []any) error {
	cats, err := loadCategories(ctx, q)
	if err != nil {
		return err
	}
	byID := make(map[int64]*Product, len(objs))
	for _, o := range objs {
		p := o.(*Product)
		p.Category = cats[p.categoryID]
		byID[p.ID] = p
	}

	rows, err := q.QueryContext(ctx, `SELECT pl.product_id, l.id, l.name
		FROM product_labels pl JOIN labels l ON l.id = pl.label_id
		ORDER BY pl.product_id, pl.position`)
	if err != nil {
		return fmt.Errorf("query labels: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			pid int64
			l   Label
		)
		if err := rows.Scan(&pid, &l.ID, &l.Name); err != nil {
			return fmt.Errorf("scan label: %w", err)
		}
		if p, ok := byID[pid]; ok {
			p.Labels = append(p.Labels, l)
		}
	}
	return rows.Err() //nolint:wrapcheck // wrapped by the repository
}

func loadCategories(ctx context.Context, q entity.Querier) (map[int64]*Category, error) {
	rows, err := q.QueryContext(ctx, "SELECT id, name, parent_id FROM categories")
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	out := map[int64]*Category{}
	for rows.Next() {
		c := &Category{}
		var parent sql.NullInt64
		if err := rows.Scan(&c.ID, &c.Name, &parent); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.parentID = parent.Int64
		out[c.ID] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	for _, c := range out {
		c.Parent = out[c.parentID]
	}
	return out, nil
}

func writeProduct(ctx context.Context, tx entity.Execer, obj any) error {
	p := obj.(*Product)
	var category any
	if p.Category != nil {
		if err := upsertCategory(ctx, tx, p.Category); err != nil {
			return err
		}
		category = p.Category.ID
	}

	_, err := tx.ExecContext(ctx, `INSERT INTO products
		(id, name, description, price, stock, tags, category_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, description = excluded.description, price = excluded.price,
			stock = excluded.stock, tags = excluded.tags, category_id = excluded.category_id,
			created_at = excluded.created_at`,
		p.ID, p.Name, p.Description, p.Price, p.Stock, strings.Join(p.Tags, ","), category, p.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("upsert product: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM product_labels WHERE product_id = ?", p.ID); err != nil {
		return fmt.Errorf("clear labels: %w", err)
	}
	for i, l := range p.Labels {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO labels (id, name) VALUES (?, ?) ON CONFLICT (id) DO UPDATE SET name = excluded.name",
			l.ID, l.Name); err != nil {
			return fmt.Errorf("upsert label: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO product_labels (product_id, label_id, position) VALUES (?, ?, ?)",
			p.ID, l.ID, i); err != nil {
			return fmt.Errorf("link label: %w", err)
		}
	}
	return nil
}

func upsertCategory(ctx context.Context, tx entity.Execer, c *Category) error {
	var parent any
	if c.Parent != nil {
		if err := upsertCategory(ctx, tx, c.Parent); err != nil {
			return err
		}
		parent = c.Parent.ID
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO categories (id, name, parent_id) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, parent_id = excluded.parent_id`,
		c.ID, c.Name, parent)
	if err != nil {
		return fmt.Errorf("upsert category %d: %w", c.ID, err)
	}
	return nil
}
