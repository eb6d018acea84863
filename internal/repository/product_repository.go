package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jlkwl/supermarket/internal/domain"
)

// ProductRepository is the non-locking catalog path: browse, search and the
// admin inventory CRUD. Stock reads here are snapshot reads and may be stale
// relative to concurrent checkouts.
type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, product_name, category, price, quantity, image_url, created_at`

// ListFiltered returns products matching an optional search term (name or
// category substring) and an optional exact category.
func (r *ProductRepository) ListFiltered(ctx context.Context, search, category string) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE 1=1`
	var args []any

	if search != "" {
		args = append(args, "%"+search+"%")
		pos := fmt.Sprintf("$%d", len(args))
		query += ` AND (product_name ILIKE ` + pos + ` OR category ILIKE ` + pos + `)`
	}
	if category != "" && category != "All" {
		args = append(args, category)
		query += fmt.Sprintf(` AND category = $%d`, len(args))
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	return scanProducts(rows)
}

func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := r.db.QueryRowContext(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`, id).Scan(
		&p.ID, &p.Name, &p.Category, &p.Price, &p.Quantity, &p.ImageURL, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product %d: %w", id, err)
	}
	return &p, nil
}

func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO products (product_name, category, price, quantity, image_url)
		 VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		p.Name, p.Category, p.Price, p.Quantity, p.ImageURL).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert product: %w", err)
	}
	return id, nil
}

func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET product_name = $1, category = $2, price = $3, quantity = $4, image_url = $5
		 WHERE id = $6`,
		p.Name, p.Category, p.Price, p.Quantity, p.ImageURL, p.ID)
	if err != nil {
		return fmt.Errorf("update product %d: %w", p.ID, err)
	}
	return requireAffected(res, ErrProductNotFound)
}

func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	return requireAffected(res, ErrProductNotFound)
}

// SetStock overwrites the available quantity. Admin restock path; checkouts
// decrement through the stock ledger instead.
func (r *ProductRepository) SetStock(ctx context.Context, id int64, quantity int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET quantity = $1 WHERE id = $2`, quantity, id)
	if err != nil {
		return fmt.Errorf("set stock for product %d: %w", id, err)
	}
	return requireAffected(res, ErrProductNotFound)
}

func scanProducts(rows *sql.Rows) ([]domain.Product, error) {
	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Quantity, &p.ImageURL, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return products, nil
}

func requireAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
