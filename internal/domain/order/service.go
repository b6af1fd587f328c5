package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/funing-shop/internal/domain"
	"github.com/xenking/funing-shop/internal/domain/coupon"
)

const instrumentationName = "github.com/xenking/funing-shop/internal/domain/order"

// CreateRequest holds the input for creating an order.
type CreateRequest struct {
	UserID       int64
	Name         string
	Email        string
	Address      string
	Phone        string
	Amount       decimal.Decimal
	UserCouponID int64
}

func (r *CreateRequest) validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Address = strings.TrimSpace(r.Address)
	r.Phone = strings.TrimSpace(r.Phone)
	if err := domain.Required(
		"name", r.Name,
		"email", r.Email,
		"address", r.Address,
		"phone", r.Phone,
	); err != nil {
		return err
	}
	if r.Amount.IsNegative() {
		return domain.Invalid("amount", "must not be negative")
	}
	if r.UserCouponID < 0 {
		return domain.Invalid("user_coupon_id", "must not be negative")
	}
	return nil
}

// Service implements order creation and coupon redemption.
type Service struct {
	orders Repository
	grants Grants
	tx     Transactor
	now    func() time.Time

	tracer   trace.Tracer
	created  metric.Int64Counter
	redeemed metric.Int64Counter
	rejected metric.Int64Counter
}

// NewService creates an order Service.
func NewService(
	orders Repository,
	grants Grants,
	tx Transactor,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) (*Service, error) {
	meter := mp.Meter(instrumentationName)
	s := &Service{
		orders: orders,
		grants: grants,
		tx:     tx,
		now:    func() time.Time { return time.Now().UTC() },
		tracer: tp.Tracer(instrumentationName),
	}

	var err error
	if s.created, err = meter.Int64Counter("shop.orders.created",
		metric.WithDescription("Orders created"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.created counter")
	}
	if s.redeemed, err = meter.Int64Counter("shop.coupons.redeemed",
		metric.WithDescription("Coupon grants bound to an order"),
	); err != nil {
		return nil, errors.Wrap(err, "coupons.redeemed counter")
	}
	if s.rejected, err = meter.Int64Counter("shop.coupons.rejected",
		metric.WithDescription("Order attempts refused because the coupon was not redeemable"),
	); err != nil {
		return nil, errors.Wrap(err, "coupons.rejected counter")
	}
	return s, nil
}

// Create inserts an order and, when a grant is referenced, redeems it in the
// same transaction. Either both the order and the redemption are committed or
// neither is. A grant id of zero skips coupon handling.
func (s *Service) Create(ctx context.Context, req CreateRequest) (_ int64, rerr error) {
	if err := req.validate(); err != nil {
		return 0, err
	}

	ctx, span := s.tracer.Start(ctx, "order.Create",
		trace.WithAttributes(
			attribute.Int64("user.id", req.UserID),
			attribute.Int64("user_coupon.id", req.UserCouponID),
		),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	var orderID int64
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		now := s.now()
		if req.UserCouponID != 0 {
			if err := s.checkGrant(ctx, req.UserID, req.UserCouponID, now); err != nil {
				return err
			}
		}

		id, err := s.orders.Create(ctx, &Order{
			UserID:       req.UserID,
			Name:         req.Name,
			Email:        req.Email,
			Address:      req.Address,
			Phone:        req.Phone,
			Amount:       req.Amount,
			Status:       StatusValid,
			UserCouponID: req.UserCouponID,
		})
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		if req.UserCouponID != 0 {
			if err := s.grants.Redeem(ctx, req.UserID, req.UserCouponID, id, now); err != nil {
				return fmt.Errorf("redeem grant %d: %w", req.UserCouponID, err)
			}
		}
		orderID = id
		return nil
	})

	lg := zctx.From(ctx).With(zap.Int64("user_id", req.UserID), zap.Int64("user_coupon_id", req.UserCouponID))
	if err != nil {
		if errors.Is(err, coupon.ErrNotRedeemable) {
			s.rejected.Add(ctx, 1)
			lg.Warn("Coupon not redeemable", zap.Error(err))
		}
		return 0, err
	}

	s.created.Add(ctx, 1)
	if req.UserCouponID != 0 {
		s.redeemed.Add(ctx, 1)
	}
	span.SetAttributes(attribute.Int64("order.id", orderID))
	lg.Info("Order created", zap.Int64("order_id", orderID))
	return orderID, nil
}

func (s *Service) checkGrant(ctx context.Context, userID, grantID int64, now time.Time) error {
	g, err := s.grants.Lock(ctx, userID, grantID)
	if err != nil {
		if errors.Is(err, coupon.ErrGrantNotFound) {
			return coupon.ErrNotRedeemable
		}
		return fmt.Errorf("lock grant %d: %w", grantID, err)
	}
	if !g.Redeemable(now) {
		return coupon.ErrNotRedeemable
	}
	return nil
}

// AddLine appends a line to one of the caller's orders. The order amount is
// not recomputed.
func (s *Service) AddLine(ctx context.Context, userID int64, line *Line) (int64, error) {
	if err := line.Product.Validate(); err != nil {
		return 0, err
	}
	if line.Quantity <= 0 {
		return 0, domain.Invalid("quantity", "must be greater than 0")
	}
	if line.Subamount.IsNegative() {
		return 0, domain.Invalid("subamount", "must not be negative")
	}
	id, err := s.orders.CreateLine(ctx, userID, line)
	if err != nil {
		return 0, fmt.Errorf("add line to order %d: %w", line.OrderID, err)
	}
	return id, nil
}

// List returns the caller's orders with lines and bound grants attached.
func (s *Service) List(ctx context.Context, userID int64) ([]Order, error) {
	orders, err := s.orders.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if err := s.attach(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// Get returns one of the caller's orders with lines and bound grant attached.
func (s *Service) Get(ctx context.Context, userID, orderID int64) (*Order, error) {
	o, err := s.orders.Get(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	orders := []Order{*o}
	if err := s.attach(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

func (s *Service) attach(ctx context.Context, orders []Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	index := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	lines, err := s.orders.ListLines(ctx, ids)
	if err != nil {
		return fmt.Errorf("list order lines: %w", err)
	}
	for _, l := range lines {
		if i, ok := index[l.OrderID]; ok {
			orders[i].Lines = append(orders[i].Lines, l)
		}
	}

	grants, err := s.grants.ListByOrders(ctx, ids)
	if err != nil {
		return fmt.Errorf("list order grants: %w", err)
	}
	for i := range grants {
		if idx, ok := index[grants[i].OrderID]; ok {
			orders[idx].Grant = &grants[i]
		}
	}
	return nil
}

// Update sets the status and amount of one of the caller's orders.
func (s *Service) Update(ctx context.Context, userID, orderID int64, status string, amount decimal.Decimal) error {
	status = strings.TrimSpace(status)
	if err := domain.Required("status", status); err != nil {
		return err
	}
	if amount.IsNegative() {
		return domain.Invalid("amount", "must not be negative")
	}
	return s.orders.Update(ctx, userID, orderID, status, amount)
}
