package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/funing-shop/internal/domain/coupon"
	"github.com/xenking/funing-shop/internal/domain/order"
)

const (
	grantColumns = `g.id, g.user_id, g.coupon_id, g.order_id, g.expires_at, g.status,
		c.id, c.code, c.name, c.description, c.image_url, c.discount_type, c.discount_detail, c.active, c.created_at`

	grantFrom = ` FROM user_coupons g JOIN coupons c ON c.id = g.coupon_id`

	createGrantSQL = `INSERT INTO user_coupons (user_id, coupon_id, expires_at, status)
		VALUES ($1, $2, $3, 'Valid')
		RETURNING id`

	listGrantsSQL = `SELECT ` + grantColumns + grantFrom + `
		WHERE g.user_id = $1 AND ($2 = '' OR g.status = $2)
		ORDER BY g.id`

	getGrantSQL = `SELECT ` + grantColumns + grantFrom + ` WHERE g.user_id = $1 AND g.id = $2`

	listGrantsByOrdersSQL = `SELECT ` + grantColumns + grantFrom + ` WHERE g.order_id = ANY($1)`

	lockGrantSQL = `SELECT id, user_id, coupon_id, order_id, expires_at, status
		FROM user_coupons
		WHERE user_id = $1 AND id = $2
		FOR UPDATE`

	// The predicate repeats every redeemability rule so that the update can
	// only ever move a single Valid, unexpired grant to Used.
	redeemGrantSQL = `UPDATE user_coupons
		SET status = 'Used', order_id = $3
		WHERE user_id = $1 AND id = $2 AND status = 'Valid' AND order_id IS NULL AND expires_at > $4`

	grantsUserFKey   = "user_coupons_user_id_fkey"
	grantsCouponFKey = "user_coupons_coupon_id_fkey"
)

var (
	_ coupon.GrantRepository = (*GrantRepository)(nil)
	_ order.Grants           = (*GrantRepository)(nil)
)

// GrantRepository stores user coupon grants and performs redemption.
type GrantRepository struct {
	querier
}

// NewGrantRepository returns a GrantRepository that uses the given pool.
func NewGrantRepository(pool *pgxpool.Pool) *GrantRepository {
	return &GrantRepository{querier{pool: pool}}
}

// Create inserts a Valid grant. expiresAt is stored as a UTC wall-clock time.
func (r *GrantRepository) Create(ctx context.Context, userID, couponID int64, expiresAt time.Time) (int64, error) {
	var id int64
	err := r.db(ctx).QueryRow(ctx, createGrantSQL, userID, couponID, expiresAt.UTC()).Scan(&id)
	switch {
	case err == nil:
		return id, nil
	case violates(err, codeForeignKeyViolation, grantsUserFKey):
		return 0, coupon.ErrUserNotFound
	case violates(err, codeForeignKeyViolation, grantsCouponFKey):
		return 0, coupon.ErrNotFound
	default:
		return 0, fmt.Errorf("creating grant for user %d: %w", userID, err)
	}
}

// List returns the user's grants joined with their coupons.
func (r *GrantRepository) List(ctx context.Context, userID int64, status coupon.GrantStatus) ([]coupon.Grant, error) {
	rows, err := r.db(ctx).Query(ctx, listGrantsSQL, userID, string(status))
	if err != nil {
		return nil, fmt.Errorf("listing grants of user %d: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanGrant)
}

// Get returns one of the user's grants.
func (r *GrantRepository) Get(ctx context.Context, userID, grantID int64) (*coupon.Grant, error) {
	rows, err := r.db(ctx).Query(ctx, getGrantSQL, userID, grantID)
	if err != nil {
		return nil, fmt.Errorf("getting grant %d: %w", grantID, err)
	}
	g, err := pgx.CollectExactlyOneRow(rows, scanGrant)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrGrantNotFound
		}
		return nil, fmt.Errorf("getting grant %d: %w", grantID, err)
	}
	return &g, nil
}

// ListByOrders returns grants bound to any of orderIDs.
func (r *GrantRepository) ListByOrders(ctx context.Context, orderIDs []int64) ([]coupon.Grant, error) {
	rows, err := r.db(ctx).Query(ctx, listGrantsByOrdersSQL, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("listing grants by orders: %w", err)
	}
	return pgx.CollectRows(rows, scanGrant)
}

// Lock reads the grant with FOR UPDATE. It must run inside a transaction.
func (r *GrantRepository) Lock(ctx context.Context, userID, grantID int64) (*coupon.Grant, error) {
	var (
		g       coupon.Grant
		orderID *int64
		status  string
	)
	err := r.db(ctx).QueryRow(ctx, lockGrantSQL, userID, grantID).Scan(
		&g.ID, &g.UserID, &g.CouponID, &orderID, &g.ExpiresAt, &status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrGrantNotFound
		}
		return nil, fmt.Errorf("locking grant %d: %w", grantID, err)
	}
	if orderID != nil {
		g.OrderID = *orderID
	}
	g.Status = coupon.GrantStatus(status)
	return &g, nil
}

// Redeem binds the grant to orderID. Zero matched rows means the grant was
// not redeemable at now and yields coupon.ErrNotRedeemable.
func (r *GrantRepository) Redeem(ctx context.Context, userID, grantID, orderID int64, now time.Time) error {
	tag, err := r.db(ctx).Exec(ctx, redeemGrantSQL, userID, grantID, orderID, now.UTC())
	if err != nil {
		return fmt.Errorf("redeeming grant %d: %w", grantID, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotRedeemable
	}
	return nil
}

func scanGrant(row pgx.CollectableRow) (coupon.Grant, error) {
	var (
		g            coupon.Grant
		orderID      *int64
		status       string
		discountType string
	)
	err := row.Scan(
		&g.ID, &g.UserID, &g.CouponID, &orderID, &g.ExpiresAt, &status,
		&g.Coupon.ID, &g.Coupon.Code, &g.Coupon.Name, &g.Coupon.Description, &g.Coupon.ImageURL,
		&discountType, &g.Coupon.DiscountDetail, &g.Coupon.Active, &g.Coupon.CreatedAt,
	)
	if orderID != nil {
		g.OrderID = *orderID
	}
	g.Status = coupon.GrantStatus(status)
	g.Coupon.DiscountType = coupon.DiscountType(discountType)
	return g, err
}
