package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/funing-shop/internal/domain/coupon"
)

const (
	couponColumns = `id, code, name, description, image_url, discount_type, discount_detail, active, created_at`

	createCouponSQL = `INSERT INTO coupons (code, name, description, image_url, discount_type, discount_detail, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	importCouponSQL = `INSERT INTO coupons (code, name, description, image_url, discount_type, discount_detail, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (code) DO NOTHING`

	listCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons ORDER BY id`

	getCouponByIDSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE id = $1`

	getCouponByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	couponsCodeKey = "coupons_code_key"
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	querier
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{querier{pool: pool}}
}

// Create inserts a coupon. Returns coupon.ErrCodeTaken for a duplicate code.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) (int64, error) {
	var id int64
	err := r.db(ctx).QueryRow(ctx, createCouponSQL,
		c.Code, c.Name, c.Description, c.ImageURL, string(c.DiscountType), c.DiscountDetail, c.Active,
	).Scan(&id)
	if err != nil {
		if violates(err, codeUniqueViolation, couponsCodeKey) {
			return 0, coupon.ErrCodeTaken
		}
		return 0, fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return id, nil
}

// Import inserts coupons in one batch, skipping codes that already exist.
// It returns the number of rows inserted.
func (r *CouponRepository) Import(ctx context.Context, coupons []coupon.Coupon) (int64, error) {
	batch := &pgx.Batch{}
	for _, c := range coupons {
		batch.Queue(importCouponSQL,
			c.Code, c.Name, c.Description, c.ImageURL, string(c.DiscountType), c.DiscountDetail, c.Active,
		)
	}

	results := r.db(ctx).SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()

	var inserted int64
	for _, c := range coupons {
		tag, err := results.Exec()
		if err != nil {
			return inserted, fmt.Errorf("importing coupon %q: %w", c.Code, err)
		}
		inserted += tag.RowsAffected()
	}
	return inserted, results.Close()
}

// List returns every coupon ordered by id.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.db(ctx).Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// GetByID returns a coupon by id.
func (r *CouponRepository) GetByID(ctx context.Context, id int64) (*coupon.Coupon, error) {
	return r.getOne(ctx, getCouponByIDSQL, id)
}

// GetByCode returns a coupon by its exact code.
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return r.getOne(ctx, getCouponByCodeSQL, code)
}

func (r *CouponRepository) getOne(ctx context.Context, sql string, arg any) (*coupon.Coupon, error) {
	rows, err := r.db(ctx).Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting coupon %v: %w", arg, err)
	}
	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("getting coupon %v: %w", arg, err)
	}
	return &c, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
	)
	err := row.Scan(
		&c.ID, &c.Code, &c.Name, &c.Description, &c.ImageURL,
		&discountType, &c.DiscountDetail, &c.Active, &c.CreatedAt,
	)
	c.DiscountType = coupon.DiscountType(discountType)
	return c, err
}
