package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when a requested product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrCodeTaken is returned when a product code is already in use.
	ErrCodeTaken = errors.New("product code already exists")
)

// Product represents a catalog item available for purchase.
type Product struct {
	ID          int64
	Code        string
	Name        string
	Description string
	Quantity    int
	Price       decimal.Decimal
	ImageURL    string
	Type        string
	CreatedAt   time.Time
}

// Snapshot is the copy of product fields stored on a cart or order line.
// Lines keep their own copy so later catalog edits do not rewrite history.
type Snapshot struct {
	ProductID   int64
	Code        string
	Name        string
	Description string
	Price       decimal.Decimal
}

// Validate checks the fields every line snapshot must carry.
func (s Snapshot) Validate() error {
	switch {
	case s.ProductID <= 0:
		return invalid("product_id", "must be positive")
	case s.Code == "":
		return invalid("code", "is required")
	case s.Name == "":
		return invalid("name", "is required")
	case s.Price.IsNegative():
		return invalid("price", "must not be negative")
	}
	return nil
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	Create(ctx context.Context, p *Product) (int64, error)
	List(ctx context.Context, typeFilter string) ([]Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	UpdateByCode(ctx context.Context, p *Product) error
}
