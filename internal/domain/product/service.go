package product

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/funing-shop/internal/domain"
)

func invalid(field, reason string) error { return domain.Invalid(field, reason) }

// Service implements catalog operations over products.
type Service struct {
	products Repository
}

// NewService creates a product Service.
func NewService(products Repository) *Service {
	return &Service{products: products}
}

func validate(p *Product) error {
	p.Code = strings.TrimSpace(p.Code)
	p.Name = strings.TrimSpace(p.Name)
	if err := domain.Required("code", p.Code, "name", p.Name); err != nil {
		return err
	}
	if p.Quantity < 0 {
		return invalid("quantity", "must not be negative")
	}
	if p.Price.IsNegative() {
		return invalid("price", "must not be negative")
	}
	return nil
}

// Create adds a product. A duplicate code yields ErrCodeTaken and no row.
func (s *Service) Create(ctx context.Context, p *Product) (int64, error) {
	if err := validate(p); err != nil {
		return 0, err
	}
	id, err := s.products.Create(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("create product %q: %w", p.Code, err)
	}
	zctx.From(ctx).Info("Product created", zap.Int64("product_id", id), zap.String("code", p.Code))
	return id, nil
}

// List returns all products, or only those whose type contains typeFilter.
func (s *Service) List(ctx context.Context, typeFilter string) ([]Product, error) {
	return s.products.List(ctx, strings.TrimSpace(typeFilter))
}

// Get returns a single product.
func (s *Service) Get(ctx context.Context, id int64) (*Product, error) {
	return s.products.GetByID(ctx, id)
}

// Update overwrites the product identified by p.Code.
func (s *Service) Update(ctx context.Context, p *Product) error {
	if err := validate(p); err != nil {
		return err
	}
	if err := s.products.UpdateByCode(ctx, p); err != nil {
		return fmt.Errorf("update product %q: %w", p.Code, err)
	}
	return nil
}
