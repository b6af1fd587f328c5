package coupon

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/funing-shop/internal/domain"
)

// GrantService issues coupons to users and lists their grants.
type GrantService struct {
	coupons Repository
	grants  GrantRepository
	users   Users
}

// NewGrantService creates a GrantService.
func NewGrantService(coupons Repository, grants GrantRepository, users Users) *GrantService {
	return &GrantService{coupons: coupons, grants: grants, users: users}
}

// GrantRequest holds the input for issuing a coupon to a user.
type GrantRequest struct {
	Coupon    Ref
	UserID    int64
	ExpiresAt string
}

// Grant issues the coupon to the user as a new Valid grant. Checks run in a
// fixed order: expiry format, then user, then coupon. A user may hold any
// number of grants of the same coupon.
func (s *GrantService) Grant(ctx context.Context, req GrantRequest) (int64, error) {
	expiresAt, err := ParseExpiry(req.ExpiresAt)
	if err != nil {
		return 0, err
	}

	ok, err := s.users.Exists(ctx, req.UserID)
	if err != nil {
		return 0, fmt.Errorf("check user %d: %w", req.UserID, err)
	}
	if !ok {
		return 0, ErrUserNotFound
	}

	c, err := s.resolve(ctx, req.Coupon)
	if err != nil {
		return 0, err
	}

	id, err := s.grants.Create(ctx, req.UserID, c.ID, expiresAt)
	if err != nil {
		return 0, fmt.Errorf("create grant: %w", err)
	}

	zctx.From(ctx).Info("Coupon granted",
		zap.Int64("grant_id", id),
		zap.Int64("user_id", req.UserID),
		zap.String("code", c.Code),
		zap.Time("expires_at", expiresAt),
	)
	return id, nil
}

func (s *GrantService) resolve(ctx context.Context, ref Ref) (*Coupon, error) {
	code := strings.TrimSpace(ref.Code)
	switch {
	case ref.ID > 0:
		return s.coupons.GetByID(ctx, ref.ID)
	case code != "":
		return s.coupons.GetByCode(ctx, code)
	default:
		return nil, domain.Invalid("coupon", "coupon_id or coupon_code is required")
	}
}

// List returns the user's grants, optionally filtered by status.
func (s *GrantService) List(ctx context.Context, userID int64, status GrantStatus) ([]Grant, error) {
	if status != "" && status != GrantValid && status != GrantUsed {
		return nil, domain.Invalid("status", "must be Valid or Used")
	}
	return s.grants.List(ctx, userID, status)
}

// Get returns one of the user's grants.
func (s *GrantService) Get(ctx context.Context, userID, grantID int64) (*Grant, error) {
	g, err := s.grants.Get(ctx, userID, grantID)
	if err != nil {
		if errors.Is(err, ErrGrantNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get grant %d: %w", grantID, err)
	}
	return g, nil
}
