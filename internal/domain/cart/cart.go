package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/funing-shop/internal/domain/product"
)

// StatusValid marks a cart that still accepts lines.
const StatusValid = "Valid"

var (
	// ErrNotFound is returned when a cart does not exist, is not owned by
	// the caller, or no longer accepts lines.
	ErrNotFound = errors.New("cart not found")
	// ErrLineNotFound is returned when a cart line does not exist for the caller.
	ErrLineNotFound = errors.New("cart line not found")
)

// Cart is a mutable staging area for a user's purchase.
type Cart struct {
	ID        int64
	UserID    int64
	Amount    decimal.Decimal
	Status    string
	CreatedAt time.Time
	Lines     []Line
}

// Line is one product entry in a cart.
type Line struct {
	ID        int64
	CartID    int64
	Product   product.Snapshot
	ImageURL  string
	Quantity  int
	Subamount decimal.Decimal
	CreatedAt time.Time
}

// Repository defines persistence operations for carts and their lines.
// Every method is scoped to the owning user.
type Repository interface {
	Create(ctx context.Context, userID int64) (int64, error)
	List(ctx context.Context, userID int64, status string) ([]Cart, error)
	Update(ctx context.Context, userID, cartID int64, status string, amount decimal.Decimal) error
	// CreateLine inserts the line only if its cart is owned by userID and
	// Valid, returning ErrNotFound otherwise.
	CreateLine(ctx context.Context, userID int64, line *Line) (int64, error)
	UpdateLine(ctx context.Context, userID int64, line *Line) error
	DeleteLine(ctx context.Context, userID, lineID int64) error
	ListLines(ctx context.Context, cartIDs []int64) ([]Line, error)
}
