package coupon

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/funing-shop/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Service implements catalog operations over coupon definitions.
type Service struct {
	coupons Repository
}

// NewService creates a coupon catalog Service.
func NewService(coupons Repository) *Service {
	return &Service{coupons: coupons}
}

// Validate normalizes and checks a coupon definition.
func Validate(c *Coupon) error {
	c.Code = strings.TrimSpace(c.Code)
	c.Name = strings.TrimSpace(c.Name)
	if err := domain.Required("code", c.Code, "name", c.Name); err != nil {
		return err
	}
	if !c.DiscountType.Valid() {
		return domain.Invalid("discount_type", "must be cash or percentage")
	}
	if !c.DiscountDetail.IsPositive() {
		return domain.Invalid("discount_detail", "must be positive")
	}
	if c.DiscountType == DiscountPercentage && c.DiscountDetail.GreaterThan(hundred) {
		return domain.Invalid("discount_detail", "percentage must not exceed 100")
	}
	return nil
}

// Create adds a coupon definition. A duplicate code yields ErrCodeTaken.
func (s *Service) Create(ctx context.Context, c *Coupon) (int64, error) {
	if err := Validate(c); err != nil {
		return 0, err
	}
	c.Active = true
	id, err := s.coupons.Create(ctx, c)
	if err != nil {
		return 0, fmt.Errorf("create coupon %q: %w", c.Code, err)
	}
	zctx.From(ctx).Info("Coupon created", zap.Int64("coupon_id", id), zap.String("code", c.Code))
	return id, nil
}

// List returns all coupon definitions.
func (s *Service) List(ctx context.Context) ([]Coupon, error) {
	return s.coupons.List(ctx)
}

// Get returns a single coupon definition.
func (s *Service) Get(ctx context.Context, id int64) (*Coupon, error) {
	return s.coupons.GetByID(ctx, id)
}
