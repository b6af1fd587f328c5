package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/funing-shop/internal/domain/cart"
	"github.com/xenking/funing-shop/internal/domain/product"
)

const (
	cartColumns = `id, user_id, amount, status, created_at`

	createCartSQL = `INSERT INTO carts (user_id, amount, status) VALUES ($1, 0, 'Valid') RETURNING id`

	listCartsSQL = `SELECT ` + cartColumns + ` FROM carts
		WHERE user_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY id`

	updateCartSQL = `UPDATE carts SET status = $3, amount = $4 WHERE user_id = $1 AND id = $2`

	// Lines are only accepted by a Valid cart owned by the caller.
	createCartLineSQL = `INSERT INTO cart_lines
		(cart_id, product_id, code, name, description, price, quantity, subamount)
		SELECT c.id, $3::bigint, $4::text, $5::text, $6::text, $7::numeric, $8::integer, $9::numeric
		FROM carts c
		WHERE c.id = $1 AND c.user_id = $2 AND c.status = 'Valid'
		RETURNING id`

	updateCartLineSQL = `UPDATE cart_lines l
		SET product_id = $3, code = $4, name = $5, description = $6, price = $7, quantity = $8, subamount = $9
		FROM carts c
		WHERE l.id = $1 AND c.id = l.cart_id AND c.user_id = $2`

	deleteCartLineSQL = `DELETE FROM cart_lines l
		USING carts c
		WHERE l.id = $1 AND c.id = l.cart_id AND c.user_id = $2`

	listCartLinesSQL = `SELECT l.id, l.cart_id, l.product_id, l.code, l.name, l.description, l.price,
			l.quantity, l.subamount, l.created_at, COALESCE(p.image_url, '')
		FROM cart_lines l
		LEFT JOIN products p ON p.id = l.product_id
		WHERE l.cart_id = ANY($1)
		ORDER BY l.id`

	cartLinesProductFKey = "cart_lines_product_id_fkey"
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	querier
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{querier{pool: pool}}
}

// Create opens an empty Valid cart for the user.
func (r *CartRepository) Create(ctx context.Context, userID int64) (int64, error) {
	var id int64
	if err := r.db(ctx).QueryRow(ctx, createCartSQL, userID).Scan(&id); err != nil {
		return 0, fmt.Errorf("creating cart for user %d: %w", userID, err)
	}
	return id, nil
}

// List returns the user's carts, filtered by status when not empty.
func (r *CartRepository) List(ctx context.Context, userID int64, status string) ([]cart.Cart, error) {
	rows, err := r.db(ctx).Query(ctx, listCartsSQL, userID, status)
	if err != nil {
		return nil, fmt.Errorf("listing carts of user %d: %w", userID, err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.Cart, error) {
		var c cart.Cart
		err := row.Scan(&c.ID, &c.UserID, &c.Amount, &c.Status, &c.CreatedAt)
		return c, err
	})
}

// Update sets status and amount of one of the user's carts.
func (r *CartRepository) Update(ctx context.Context, userID, cartID int64, status string, amount decimal.Decimal) error {
	tag, err := r.db(ctx).Exec(ctx, updateCartSQL, userID, cartID, status, amount)
	if err != nil {
		return fmt.Errorf("updating cart %d: %w", cartID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrNotFound
	}
	return nil
}

// CreateLine inserts a line into one of the user's Valid carts.
func (r *CartRepository) CreateLine(ctx context.Context, userID int64, l *cart.Line) (int64, error) {
	var id int64
	err := r.db(ctx).QueryRow(ctx, createCartLineSQL,
		l.CartID, userID,
		l.Product.ProductID, l.Product.Code, l.Product.Name, l.Product.Description, l.Product.Price,
		l.Quantity, l.Subamount,
	).Scan(&id)
	switch {
	case err == nil:
		return id, nil
	case errors.Is(err, pgx.ErrNoRows):
		return 0, cart.ErrNotFound
	case violates(err, codeForeignKeyViolation, cartLinesProductFKey):
		return 0, product.ErrNotFound
	default:
		return 0, fmt.Errorf("creating line for cart %d: %w", l.CartID, err)
	}
}

// UpdateLine replaces a line in one of the user's carts.
func (r *CartRepository) UpdateLine(ctx context.Context, userID int64, l *cart.Line) error {
	tag, err := r.db(ctx).Exec(ctx, updateCartLineSQL,
		l.ID, userID,
		l.Product.ProductID, l.Product.Code, l.Product.Name, l.Product.Description, l.Product.Price,
		l.Quantity, l.Subamount,
	)
	if err != nil {
		if violates(err, codeForeignKeyViolation, cartLinesProductFKey) {
			return product.ErrNotFound
		}
		return fmt.Errorf("updating cart line %d: %w", l.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrLineNotFound
	}
	return nil
}

// DeleteLine removes a line from one of the user's carts.
func (r *CartRepository) DeleteLine(ctx context.Context, userID, lineID int64) error {
	tag, err := r.db(ctx).Exec(ctx, deleteCartLineSQL, lineID, userID)
	if err != nil {
		return fmt.Errorf("deleting cart line %d: %w", lineID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrLineNotFound
	}
	return nil
}

// ListLines returns the lines of the given carts.
func (r *CartRepository) ListLines(ctx context.Context, cartIDs []int64) ([]cart.Line, error) {
	rows, err := r.db(ctx).Query(ctx, listCartLinesSQL, cartIDs)
	if err != nil {
		return nil, fmt.Errorf("listing cart lines: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (cart.Line, error) {
		var l cart.Line
		err := row.Scan(
			&l.ID, &l.CartID, &l.Product.ProductID, &l.Product.Code, &l.Product.Name,
			&l.Product.Description, &l.Product.Price, &l.Quantity, &l.Subamount, &l.CreatedAt, &l.ImageURL,
		)
		return l, err
	})
}
