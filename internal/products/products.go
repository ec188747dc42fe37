package products

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

func (c *Conf) InsertProduct(ctx context.Context, np NewProduct) (Product, error) {
	query := `
		INSERT INTO products (id, name, image, category_id, price, stock, description, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, NOW(), NOW())
		RETURNING id, name, image, COALESCE(category_id, ''), price, stock, description, created_at, updated_at
	`
	var p Product
	err := c.db.QueryRowContext(ctx, query,
		uuid.NewString(), np.Name, np.Image, np.CategoryID, np.Price, np.Stock, np.Description).
		Scan(&p.ID, &p.Name, &p.Image, &p.CategoryID, &p.Price, &p.Stock, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, fmt.Errorf("failed to insert product: %w", err)
	}
	return p, nil
}

func (c *Conf) GetProductByID(ctx context.Context, id string) (Product, error) {
	query := `
		SELECT id, name, image, COALESCE(category_id, ''), price, stock, description, created_at, updated_at
		FROM products
		WHERE id = $1
	`
	var p Product
	err := c.db.QueryRowContext(ctx, query, id).
		Scan(&p.ID, &p.Name, &p.Image, &p.CategoryID, &p.Price, &p.Stock, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

// ListProducts returns a page of products, optionally filtered by a
// case-insensitive name search.
func (c *Conf) ListProducts(ctx context.Context, search string, limit, offset int) ([]Product, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, name, image, COALESCE(category_id, ''), price, stock, description, created_at, updated_at
		FROM products
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%')
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := c.db.QueryContext(ctx, query, search, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var list []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Image, &p.CategoryID, &p.Price, &p.Stock, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}
	return list, nil
}

func (c *Conf) UpdateProduct(ctx context.Context, id string, np NewProduct) (Product, error) {
	query := `
		UPDATE products
		SET name = $2, image = $3, category_id = NULLIF($4, ''), price = $5, stock = $6,
		    description = $7, updated_at = NOW()
		WHERE id = $1
		RETURNING id, name, image, COALESCE(category_id, ''), price, stock, description, created_at, updated_at
	`
	var p Product
	err := c.db.QueryRowContext(ctx, query, id, np.Name, np.Image, np.CategoryID, np.Price, np.Stock, np.Description).
		Scan(&p.ID, &p.Name, &p.Image, &p.CategoryID, &p.Price, &p.Stock, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}

func (c *Conf) DeleteProduct(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
