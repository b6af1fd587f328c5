package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/funing-shop/internal/domain/product"
)

const (
	productColumns = `id, code, name, description, quantity, price, image_url, type, created_at`

	createProductSQL = `INSERT INTO products (code, name, description, quantity, price, image_url, type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products
		WHERE $1 = '' OR strpos(lower(type), lower($1)) > 0
		ORDER BY id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	updateProductSQL = `UPDATE products
		SET name = $2, description = $3, quantity = $4, price = $5, image_url = $6, type = $7
		WHERE code = $1`

	upsertProductSQL = `INSERT INTO products (code, name, description, quantity, price, image_url, type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (code) DO UPDATE
		SET name = EXCLUDED.name, description = EXCLUDED.description, quantity = EXCLUDED.quantity,
			price = EXCLUDED.price, image_url = EXCLUDED.image_url, type = EXCLUDED.type`

	productsCodeKey = "products_code_key"
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	querier
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{querier{pool: pool}}
}

// Create inserts a product. Returns product.ErrCodeTaken for a duplicate code.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) (int64, error) {
	var id int64
	err := r.db(ctx).QueryRow(ctx, createProductSQL,
		p.Code, p.Name, p.Description, p.Quantity, p.Price, p.ImageURL, p.Type,
	).Scan(&id)
	if err != nil {
		if violates(err, codeUniqueViolation, productsCodeKey) {
			return 0, product.ErrCodeTaken
		}
		return 0, fmt.Errorf("creating product %q: %w", p.Code, err)
	}
	return id, nil
}

// List returns products ordered by id, filtered by a case-insensitive type
// substring when typeFilter is not empty.
func (r *ProductRepository) List(ctx context.Context, typeFilter string) ([]product.Product, error) {
	rows, err := r.db(ctx).Query(ctx, listProductsSQL, typeFilter)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	rows, err := r.db(ctx).Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %d: %w", id, err)
	}
	return &p, nil
}

// UpdateByCode overwrites the product with p.Code.
func (r *ProductRepository) UpdateByCode(ctx context.Context, p *product.Product) error {
	tag, err := r.db(ctx).Exec(ctx, updateProductSQL,
		p.Code, p.Name, p.Description, p.Quantity, p.Price, p.ImageURL, p.Type,
	)
	if err != nil {
		return fmt.Errorf("updating product %q: %w", p.Code, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// Upsert inserts products or refreshes existing rows with the same code.
func (r *ProductRepository) Upsert(ctx context.Context, products []product.Product) error {
	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(upsertProductSQL, p.Code, p.Name, p.Description, p.Quantity, p.Price, p.ImageURL, p.Type)
	}
	if err := r.db(ctx).SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upserting products: %w", err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(
		&p.ID, &p.Code, &p.Name, &p.Description, &p.Quantity,
		&p.Price, &p.ImageURL, &p.Type, &p.CreatedAt,
	)
	return p, err
}
