package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountCash takes a fixed amount off the order.
	DiscountCash DiscountType = "cash"
	// DiscountPercentage takes a percentage off the order.
	DiscountPercentage DiscountType = "percentage"
)

// Valid reports whether t is a known discount type.
func (t DiscountType) Valid() bool {
	return t == DiscountCash || t == DiscountPercentage
}

// GrantStatus is the lifecycle state of a user's coupon grant.
type GrantStatus string

const (
	// GrantValid grants can be redeemed by exactly one order.
	GrantValid GrantStatus = "Valid"
	// GrantUsed grants are bound to the order that consumed them.
	GrantUsed GrantStatus = "Used"
)

var (
	// ErrNotFound is returned when a coupon definition does not exist.
	ErrNotFound = errors.New("coupon not found")
	// ErrCodeTaken is returned when a coupon code is already in use.
	ErrCodeTaken = errors.New("coupon code already exists")
	// ErrGrantNotFound is returned when a grant does not exist for the user.
	ErrGrantNotFound = errors.New("coupon grant not found")
	// ErrUserNotFound is returned when granting to an unknown user.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidExpiry is returned when an expiry timestamp is not in canonical form.
	ErrInvalidExpiry = errors.New("expiry must be formatted as YYYY-MM-DD hh:mm:ss")
	// ErrNotRedeemable is returned when a grant is not owned by the caller,
	// already used, or expired.
	ErrNotRedeemable = errors.New("coupon is not redeemable")
)

// Coupon is a discount definition identified by a unique code.
type Coupon struct {
	ID             int64
	Code           string
	Name           string
	Description    string
	ImageURL       string
	DiscountType   DiscountType
	DiscountDetail decimal.Decimal
	Active         bool
	CreatedAt      time.Time
}

// Grant is one user's right to redeem a coupon once before it expires.
type Grant struct {
	ID        int64
	UserID    int64
	CouponID  int64
	OrderID   int64 // zero while the grant is Valid
	ExpiresAt time.Time
	Status    GrantStatus
	Coupon    Coupon
}

// Redeemable reports whether the grant can be bound to a new order at now.
func (g *Grant) Redeemable(now time.Time) bool {
	return g.Status == GrantValid && g.OrderID == 0 && now.Before(g.ExpiresAt)
}

// Ref identifies a coupon either by id or by code. ID takes precedence.
type Ref struct {
	ID   int64
	Code string
}

// Repository defines persistence operations for coupon definitions.
type Repository interface {
	Create(ctx context.Context, c *Coupon) (int64, error)
	List(ctx context.Context) ([]Coupon, error)
	GetByID(ctx context.Context, id int64) (*Coupon, error)
	GetByCode(ctx context.Context, code string) (*Coupon, error)
}

// GrantRepository defines persistence operations for user coupon grants.
type GrantRepository interface {
	Create(ctx context.Context, userID, couponID int64, expiresAt time.Time) (int64, error)
	List(ctx context.Context, userID int64, status GrantStatus) ([]Grant, error)
	Get(ctx context.Context, userID, grantID int64) (*Grant, error)
	ListByOrders(ctx context.Context, orderIDs []int64) ([]Grant, error)
}

// Users checks that a grant recipient exists.
type Users interface {
	Exists(ctx context.Context, userID int64) (bool, error)
}
