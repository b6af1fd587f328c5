package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/funing-shop/internal/domain/order"
	"github.com/xenking/funing-shop/internal/domain/product"
)

const (
	orderColumns = `id, user_id, name, email, address, phone, amount, status, user_coupon_id, created_at`

	createOrderSQL = `INSERT INTO orders (user_id, name, email, address, phone, amount, status, user_coupon_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8::bigint, 0))
		RETURNING id`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY id`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 AND id = $2`

	updateOrderSQL = `UPDATE orders SET status = $3, amount = $4 WHERE user_id = $1 AND id = $2`

	// The line is written only when the parent order belongs to the caller,
	// so a missing or foreign order inserts nothing.
	createOrderLineSQL = `INSERT INTO order_lines
		(order_id, product_id, code, name, description, price, quantity, subamount)
		SELECT o.id, $3::bigint, $4::text, $5::text, $6::text, $7::numeric, $8::integer, $9::numeric
		FROM orders o
		WHERE o.id = $1 AND o.user_id = $2
		RETURNING id`

	listOrderLinesSQL = `SELECT l.id, l.order_id, l.product_id, l.code, l.name, l.description, l.price,
			l.quantity, l.subamount, l.created_at, COALESCE(p.image_url, '')
		FROM order_lines l
		LEFT JOIN products p ON p.id = l.product_id
		WHERE l.order_id = ANY($1)
		ORDER BY l.id`

	orderLinesProductFKey = "order_lines_product_id_fkey"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	querier
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{querier{pool: pool}}
}

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) (int64, error) {
	var id int64
	err := r.db(ctx).QueryRow(ctx, createOrderSQL,
		o.UserID, o.Name, o.Email, o.Address, o.Phone, o.Amount, o.Status, o.UserCouponID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating order for user %d: %w", o.UserID, err)
	}
	return id, nil
}

// List returns the user's orders ordered by id.
func (r *OrderRepository) List(ctx context.Context, userID int64) ([]order.Order, error) {
	rows, err := r.db(ctx).Query(ctx, listOrdersSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders of user %d: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// Get returns one of the user's orders.
func (r *OrderRepository) Get(ctx context.Context, userID, orderID int64) (*order.Order, error) {
	rows, err := r.db(ctx).Query(ctx, getOrderSQL, userID, orderID)
	if err != nil {
		return nil, fmt.Errorf("getting order %d: %w", orderID, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %d: %w", orderID, err)
	}
	return &o, nil
}

// Update sets status and amount of one of the user's orders.
func (r *OrderRepository) Update(ctx context.Context, userID, orderID int64, status string, amount decimal.Decimal) error {
	tag, err := r.db(ctx).Exec(ctx, updateOrderSQL, userID, orderID, status, amount)
	if err != nil {
		return fmt.Errorf("updating order %d: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// CreateLine inserts a line into one of the user's orders. Returns
// order.ErrNotFound when the order is missing or foreign, and
// product.ErrNotFound when the product does not exist.
func (r *OrderRepository) CreateLine(ctx context.Context, userID int64, l *order.Line) (int64, error) {
	var id int64
	err := r.db(ctx).QueryRow(ctx, createOrderLineSQL,
		l.OrderID, userID,
		l.Product.ProductID, l.Product.Code, l.Product.Name, l.Product.Description, l.Product.Price,
		l.Quantity, l.Subamount,
	).Scan(&id)
	switch {
	case err == nil:
		return id, nil
	case errors.Is(err, pgx.ErrNoRows):
		return 0, order.ErrNotFound
	case violates(err, codeForeignKeyViolation, orderLinesProductFKey):
		return 0, product.ErrNotFound
	default:
		return 0, fmt.Errorf("creating line for order %d: %w", l.OrderID, err)
	}
}

// ListLines returns the lines of the given orders.
func (r *OrderRepository) ListLines(ctx context.Context, orderIDs []int64) ([]order.Line, error) {
	rows, err := r.db(ctx).Query(ctx, listOrderLinesSQL, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("listing order lines: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (order.Line, error) {
		var l order.Line
		err := row.Scan(
			&l.ID, &l.OrderID, &l.Product.ProductID, &l.Product.Code, &l.Product.Name,
			&l.Product.Description, &l.Product.Price, &l.Quantity, &l.Subamount, &l.CreatedAt, &l.ImageURL,
		)
		return l, err
	})
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o        order.Order
		couponID *int64
	)
	err := row.Scan(
		&o.ID, &o.UserID, &o.Name, &o.Email, &o.Address, &o.Phone,
		&o.Amount, &o.Status, &couponID, &o.CreatedAt,
	)
	if couponID != nil {
		o.UserCouponID = *couponID
	}
	return o, err
}
