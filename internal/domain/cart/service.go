package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/funing-shop/internal/domain"
)

// Service implements cart operations for a single caller.
type Service struct {
	carts Repository
}

// NewService creates a cart Service.
func NewService(carts Repository) *Service {
	return &Service{carts: carts}
}

// Create opens a new Valid cart with a zero amount.
func (s *Service) Create(ctx context.Context, userID int64) (int64, error) {
	id, err := s.carts.Create(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("create cart: %w", err)
	}
	zctx.From(ctx).Info("Cart created", zap.Int64("cart_id", id), zap.Int64("user_id", userID))
	return id, nil
}

// List returns the caller's carts with their lines attached. An empty
// status lists every cart.
func (s *Service) List(ctx context.Context, userID int64, status string) ([]Cart, error) {
	carts, err := s.carts.List(ctx, userID, strings.TrimSpace(status))
	if err != nil {
		return nil, fmt.Errorf("list carts: %w", err)
	}
	if len(carts) == 0 {
		return carts, nil
	}

	ids := make([]int64, len(carts))
	index := make(map[int64]int, len(carts))
	for i, c := range carts {
		ids[i] = c.ID
		index[c.ID] = i
	}

	lines, err := s.carts.ListLines(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	for _, l := range lines {
		i, ok := index[l.CartID]
		if !ok {
			continue
		}
		carts[i].Lines = append(carts[i].Lines, l)
	}
	return carts, nil
}

// Update sets the status and amount of one of the caller's carts.
func (s *Service) Update(ctx context.Context, userID, cartID int64, status string, amount decimal.Decimal) error {
	status = strings.TrimSpace(status)
	if err := domain.Required("status", status); err != nil {
		return err
	}
	if amount.IsNegative() {
		return domain.Invalid("amount", "must not be negative")
	}
	return s.carts.Update(ctx, userID, cartID, status, amount)
}

func validateLine(l *Line) error {
	if err := l.Product.Validate(); err != nil {
		return err
	}
	if l.Quantity <= 0 {
		return domain.Invalid("quantity", "must be greater than 0")
	}
	if l.Subamount.IsNegative() {
		return domain.Invalid("subamount", "must not be negative")
	}
	return nil
}

// AddLine appends a line to one of the caller's Valid carts. The cart amount
// is left as the caller last set it.
func (s *Service) AddLine(ctx context.Context, userID int64, line *Line) (int64, error) {
	if err := validateLine(line); err != nil {
		return 0, err
	}
	id, err := s.carts.CreateLine(ctx, userID, line)
	if err != nil {
		return 0, fmt.Errorf("add line to cart %d: %w", line.CartID, err)
	}
	return id, nil
}

// UpdateLine replaces a line in one of the caller's carts.
func (s *Service) UpdateLine(ctx context.Context, userID int64, line *Line) error {
	if err := validateLine(line); err != nil {
		return err
	}
	return s.carts.UpdateLine(ctx, userID, line)
}

// DeleteLine removes a line from one of the caller's carts.
func (s *Service) DeleteLine(ctx context.Context, userID, lineID int64) error {
	return s.carts.DeleteLine(ctx, userID, lineID)
}
