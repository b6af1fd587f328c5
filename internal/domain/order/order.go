package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/funing-shop/internal/domain/coupon"
	"github.com/xenking/funing-shop/internal/domain/product"
)

// StatusValid is the status every order is created with.
const StatusValid = "Valid"

var (
	// ErrNotFound is returned when an order does not exist for the caller.
	ErrNotFound = errors.New("order not found")
)

// Order is a purchase record, optionally discounted by one coupon grant.
type Order struct {
	ID           int64
	UserID       int64
	Name         string
	Email        string
	Address      string
	Phone        string
	Amount       decimal.Decimal
	Status       string
	UserCouponID int64 // zero when no coupon was redeemed
	CreatedAt    time.Time
	Lines        []Line
	Grant        *coupon.Grant
}

// Line is one product entry in an order.
type Line struct {
	ID        int64
	OrderID   int64
	Product   product.Snapshot
	ImageURL  string
	Quantity  int
	Subamount decimal.Decimal
	CreatedAt time.Time
}

// Repository defines persistence operations for orders and their lines.
type Repository interface {
	Create(ctx context.Context, o *Order) (int64, error)
	List(ctx context.Context, userID int64) ([]Order, error)
	Get(ctx context.Context, userID, orderID int64) (*Order, error)
	Update(ctx context.Context, userID, orderID int64, status string, amount decimal.Decimal) error
	// CreateLine inserts the line only if its order is owned by userID,
	// returning ErrNotFound otherwise.
	CreateLine(ctx context.Context, userID int64, line *Line) (int64, error)
	ListLines(ctx context.Context, orderIDs []int64) ([]Line, error)
}

// Grants is the redemption side of the coupon grant store.
type Grants interface {
	// Lock reads the user's grant and holds a row lock until the surrounding
	// transaction ends. Returns coupon.ErrGrantNotFound if the user has no
	// such grant.
	Lock(ctx context.Context, userID, grantID int64) (*coupon.Grant, error)
	// Redeem moves a Valid, unexpired grant to Used and binds it to orderID.
	// Returns coupon.ErrNotRedeemable if no row matched.
	Redeem(ctx context.Context, userID, grantID, orderID int64, now time.Time) error
	ListByOrders(ctx context.Context, orderIDs []int64) ([]coupon.Grant, error)
}

// Transactor runs fn in a database transaction carried by the context.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
