//go:build integration

package postgres

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/xenking/funing-shop/internal/domain/auth"
	"github.com/xenking/funing-shop/internal/domain/coupon"
	"github.com/xenking/funing-shop/internal/domain/order"
	"github.com/xenking/funing-shop/internal/domain/product"
	"github.com/xenking/funing-shop/internal/domain/user"
)

type StorageSuite struct {
	suite.Suite

	container testcontainers.Container
	pool      *pgxpool.Pool

	users    *UserRepository
	products *ProductRepository
	coupons  *CouponRepository
	grants   *GrantRepository
	orders   *OrderRepository
	carts    *CartRepository
	orderSvc *order.Service
}

func TestStorageSuite(t *testing.T) {
	suite.Run(t, new(StorageSuite))
}

func (s *StorageSuite) SetupSuite() {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "shop",
				"POSTGRES_PASSWORD": "shop",
				"POSTGRES_DB":       "shop",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	s.Require().NoError(err)
	s.container = container

	host, err := container.Host(ctx)
	s.Require().NoError(err)
	port, err := container.MappedPort(ctx, "5432")
	s.Require().NoError(err)

	dsn := fmt.Sprintf("postgres://shop:shop@%s:%s/shop?sslmode=disable", host, port.Port())
	s.pool, err = NewPool(ctx, dsn)
	s.Require().NoError(err)
	s.Require().NoError(RunMigrations(ctx, s.pool))
	// Migrations are idempotent.
	s.Require().NoError(RunMigrations(ctx, s.pool))

	s.users = NewUserRepository(s.pool)
	s.products = NewProductRepository(s.pool)
	s.coupons = NewCouponRepository(s.pool)
	s.grants = NewGrantRepository(s.pool)
	s.orders = NewOrderRepository(s.pool)
	s.carts = NewCartRepository(s.pool)

	// Every waiter on the locked grant fails with 40001 once the winner
	// commits, so concurrent tests need more headroom than the default.
	txOpts := DefaultTxOptions()
	txOpts.MaxRetries = 10
	txOpts.Backoff = 5 * time.Millisecond
	s.orderSvc, err = order.NewService(s.orders, s.grants, NewTransactor(s.pool, txOpts),
		tracenoop.NewTracerProvider(), metricnoop.NewMeterProvider())
	s.Require().NoError(err)
}

func (s *StorageSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *StorageSuite) SetupTest() {
	_, err := s.pool.Exec(context.Background(), `TRUNCATE
		cart_lines, carts, order_lines, user_coupons, orders, coupons, products, users
		RESTART IDENTITY CASCADE`)
	s.Require().NoError(err)
}

// --- helpers ---

func (s *StorageSuite) createUser(email string) int64 {
	id, err := s.users.Create(context.Background(), &user.User{
		Name: "Test", Email: email, Address: "1 Main St", Phone: "555", Status: user.StatusActive,
	}, "hash", "key-"+email)
	s.Require().NoError(err)
	return id
}

func (s *StorageSuite) createCoupon(code string) int64 {
	id, err := s.coupons.Create(context.Background(), &coupon.Coupon{
		Code: code, Name: code, DiscountType: coupon.DiscountCash,
		DiscountDetail: decimal.NewFromInt(5), Active: true,
	})
	s.Require().NoError(err)
	return id
}

func (s *StorageSuite) createProduct(code string) int64 {
	id, err := s.products.Create(context.Background(), &product.Product{
		Code: code, Name: code, Quantity: 10, Price: decimal.RequireFromString("2.50"), Type: "drinks",
	})
	s.Require().NoError(err)
	return id
}

func (s *StorageSuite) grant(userID, couponID int64, expiresAt string) int64 {
	t, err := coupon.ParseExpiry(expiresAt)
	s.Require().NoError(err)
	id, err := s.grants.Create(context.Background(), userID, couponID, t)
	s.Require().NoError(err)
	return id
}

func orderRequest(userID, grantID int64) order.CreateRequest {
	return order.CreateRequest{
		UserID: userID, Name: "Test", Email: "t@example.com", Address: "1 Main St", Phone: "555",
		Amount: decimal.RequireFromString("10.00"), UserCouponID: grantID,
	}
}

func (s *StorageSuite) countRows(table string) int {
	var n int
	s.Require().NoError(s.pool.QueryRow(context.Background(), "SELECT count(*) FROM "+table).Scan(&n))
	return n
}

// --- tests ---

func (s *StorageSuite) TestCodeUniqueness() {
	ctx := context.Background()
	s.createCoupon("WELCOME")
	_, err := s.coupons.Create(ctx, &coupon.Coupon{
		Code: "WELCOME", Name: "again", DiscountType: coupon.DiscountCash, DiscountDetail: decimal.NewFromInt(1),
	})
	s.Require().ErrorIs(err, coupon.ErrCodeTaken)
	s.Equal(1, s.countRows("coupons"))

	s.createProduct("TEA")
	_, err = s.products.Create(ctx, &product.Product{Code: "TEA", Name: "again", Price: decimal.NewFromInt(1)})
	s.Require().ErrorIs(err, product.ErrCodeTaken)
	s.Equal(1, s.countRows("products"))

	s.createUser("a@example.com")
	_, err = s.users.Create(ctx, &user.User{Name: "B", Email: "a@example.com"}, "h", "other-key")
	s.Require().ErrorIs(err, user.ErrEmailTaken)
}

func (s *StorageSuite) TestExpiryRoundTrip() {
	userID := s.createUser("a@example.com")
	grantID := s.grant(userID, s.createCoupon("C"), "2025-01-31 23:59:59")

	g, err := s.grants.Get(context.Background(), userID, grantID)
	s.Require().NoError(err)
	s.Equal("2025-01-31 23:59:59", coupon.FormatExpiry(g.ExpiresAt))
	s.Equal(coupon.GrantValid, g.Status)
	s.Zero(g.OrderID)
	s.Equal("C", g.Coupon.Code)
}

func (s *StorageSuite) TestRedemptionEndToEnd() {
	ctx := context.Background()
	userID := s.createUser("a@example.com")
	grantID := s.grant(userID, s.createCoupon("C"), "2099-01-01 00:00:00")

	orderID, err := s.orderSvc.Create(ctx, orderRequest(userID, grantID))
	s.Require().NoError(err)

	g, err := s.grants.Get(ctx, userID, grantID)
	s.Require().NoError(err)
	s.Equal(coupon.GrantUsed, g.Status)
	s.Equal(orderID, g.OrderID)

	_, err = s.orderSvc.Create(ctx, orderRequest(userID, grantID))
	s.Require().ErrorIs(err, coupon.ErrNotRedeemable)
	s.Equal(1, s.countRows("orders"))

	o, err := s.orderSvc.Get(ctx, userID, orderID)
	s.Require().NoError(err)
	s.Require().NotNil(o.Grant)
	s.Equal(grantID, o.Grant.ID)
	s.Equal(grantID, o.UserCouponID)
	s.Equal(order.StatusValid, o.Status)
}

func (s *StorageSuite) TestRedemptionRejections() {
	ctx := context.Background()
	owner := s.createUser("owner@example.com")
	other := s.createUser("other@example.com")
	couponID := s.createCoupon("C")
	valid := s.grant(owner, couponID, "2099-01-01 00:00:00")
	expired := s.grant(owner, couponID, "2000-01-01 00:00:00")

	_, err := s.orderSvc.Create(ctx, orderRequest(other, valid))
	s.Require().ErrorIs(err, coupon.ErrNotRedeemable)

	_, err = s.orderSvc.Create(ctx, orderRequest(owner, expired))
	s.Require().ErrorIs(err, coupon.ErrNotRedeemable)

	_, err = s.orderSvc.Create(ctx, orderRequest(owner, 424242))
	s.Require().ErrorIs(err, coupon.ErrNotRedeemable)

	s.Equal(0, s.countRows("orders"))
	g, err := s.grants.Get(ctx, owner, valid)
	s.Require().NoError(err)
	s.Equal(coupon.GrantValid, g.Status)
}

func (s *StorageSuite) TestConcurrentRedemptionIsExclusive() {
	userID := s.createUser("a@example.com")
	grantID := s.grant(userID, s.createCoupon("C"), "2099-01-01 00:00:00")

	const attempts = 10
	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		results = make(chan error, attempts)
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.orderSvc.Create(context.Background(), orderRequest(userID, grantID))
			results <- err
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	var succeeded, rejected int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, coupon.ErrNotRedeemable):
			rejected++
		default:
			s.Failf("unexpected error", "%v", err)
		}
	}
	s.Equal(1, succeeded)
	s.Equal(attempts-1, rejected)
	s.Equal(1, s.countRows("orders"))
}

func (s *StorageSuite) TestOrderLineParentage() {
	ctx := context.Background()
	owner := s.createUser("owner@example.com")
	other := s.createUser("other@example.com")
	productID := s.createProduct("TEA")

	orderID, err := s.orderSvc.Create(ctx, orderRequest(owner, 0))
	s.Require().NoError(err)

	line := func(orderID, productID int64) *order.Line {
		return &order.Line{
			OrderID: orderID,
			Product: product.Snapshot{
				ProductID: productID, Code: "TEA", Name: "Tea", Price: decimal.RequireFromString("2.50"),
			},
			Quantity:  2,
			Subamount: decimal.RequireFromString("5.00"),
		}
	}

	_, err = s.orders.CreateLine(ctx, owner, line(9999, productID))
	s.Require().ErrorIs(err, order.ErrNotFound)

	_, err = s.orders.CreateLine(ctx, other, line(orderID, productID))
	s.Require().ErrorIs(err, order.ErrNotFound)

	_, err = s.orders.CreateLine(ctx, owner, line(orderID, 777))
	s.Require().ErrorIs(err, product.ErrNotFound)

	s.Equal(0, s.countRows("order_lines"))

	_, err = s.orders.CreateLine(ctx, owner, line(orderID, productID))
	s.Require().NoError(err)

	lines, err := s.orders.ListLines(ctx, []int64{orderID})
	s.Require().NoError(err)
	s.Require().Len(lines, 1)
	s.True(decimal.RequireFromString("5.00").Equal(lines[0].Subamount))
}

func (s *StorageSuite) TestCartLines() {
	ctx := context.Background()
	owner := s.createUser("owner@example.com")
	productID := s.createProduct("TEA")

	cartID, err := s.carts.Create(ctx, owner)
	s.Require().NoError(err)

	l := &cartLine{cartID: cartID, productID: productID}
	lineID, err := s.carts.CreateLine(ctx, owner, l.build())
	s.Require().NoError(err)

	updated := l.build()
	updated.ID = lineID
	updated.Quantity = 4
	s.Require().NoError(s.carts.UpdateLine(ctx, owner, updated))

	lines, err := s.carts.ListLines(ctx, []int64{cartID})
	s.Require().NoError(err)
	s.Require().Len(lines, 1)
	s.Equal(4, lines[0].Quantity)

	s.Require().NoError(s.carts.Update(ctx, owner, cartID, "Ordered", decimal.NewFromInt(10)))
	_, err = s.carts.CreateLine(ctx, owner, l.build())
	s.Require().Error(err)

	s.Require().NoError(s.carts.DeleteLine(ctx, owner, lineID))
	s.Equal(0, s.countRows("cart_lines"))
}

func (s *StorageSuite) TestProductTypeFilter() {
	ctx := context.Background()
	s.createProduct("TEA")
	_, err := s.products.Create(ctx, &product.Product{
		Code: "MUG", Name: "Mug", Price: decimal.NewFromInt(8), Type: "kitchenware",
	})
	s.Require().NoError(err)

	all, err := s.products.List(ctx, "")
	s.Require().NoError(err)
	s.Len(all, 2)

	drinks, err := s.products.List(ctx, "DRINK")
	s.Require().NoError(err)
	s.Require().Len(drinks, 1)
	s.Equal("TEA", drinks[0].Code)
}

func (s *StorageSuite) TestCouponImportSkipsExisting() {
	s.createCoupon("EXISTING")
	n, err := s.coupons.Import(context.Background(), []coupon.Coupon{
		{Code: "EXISTING", Name: "x", DiscountType: coupon.DiscountCash, DiscountDetail: decimal.NewFromInt(1), Active: true},
		{Code: "NEW1", Name: "x", DiscountType: coupon.DiscountPercentage, DiscountDetail: decimal.NewFromInt(10), Active: true},
	})
	s.Require().NoError(err)
	s.Equal(int64(1), n)
	s.Equal(2, s.countRows("coupons"))
}

func (s *StorageSuite) TestIdentityLookup() {
	ctx := context.Background()
	uid := s.createUser("ann@example.com")

	byKey, err := s.users.FindByKeyHash(ctx, "key-ann@example.com")
	s.Require().NoError(err)
	s.Equal(uid, byKey.UserID)
	s.True(byKey.Active)

	byID, err := s.users.FindByUserID(ctx, uid)
	s.Require().NoError(err)
	s.Equal("key-ann@example.com", byID.KeyHash)

	_, err = s.users.FindByKeyHash(ctx, "unknown")
	s.Require().ErrorIs(err, auth.ErrIdentityNotFound)
	_, err = s.users.FindByUserID(ctx, uid+100)
	s.Require().ErrorIs(err, auth.ErrIdentityNotFound)
}
