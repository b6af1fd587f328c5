// Package handler exposes the shop services over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/xenking/funing-shop/internal/domain/cart"
	"github.com/xenking/funing-shop/internal/domain/coupon"
	"github.com/xenking/funing-shop/internal/domain/order"
	"github.com/xenking/funing-shop/internal/domain/product"
	"github.com/xenking/funing-shop/internal/domain/user"
)

// Users is the account service.
type Users interface {
	Register(ctx context.Context, p user.Profile) (*user.Registration, error)
	Login(ctx context.Context, email, password string) (*user.Session, error)
	Update(ctx context.Context, userID int64, p user.Profile) error
	Get(ctx context.Context, userID int64) (*user.User, error)
}

// Products is the product catalog service.
type Products interface {
	Create(ctx context.Context, p *product.Product) (int64, error)
	List(ctx context.Context, typeFilter string) ([]product.Product, error)
	Get(ctx context.Context, id int64) (*product.Product, error)
	Update(ctx context.Context, p *product.Product) error
}

// Coupons is the coupon catalog service.
type Coupons interface {
	Create(ctx context.Context, c *coupon.Coupon) (int64, error)
	List(ctx context.Context) ([]coupon.Coupon, error)
	Get(ctx context.Context, id int64) (*coupon.Coupon, error)
}

// Grants is the coupon grant service.
type Grants interface {
	Grant(ctx context.Context, req coupon.GrantRequest) (int64, error)
	List(ctx context.Context, userID int64, status coupon.GrantStatus) ([]coupon.Grant, error)
	Get(ctx context.Context, userID, grantID int64) (*coupon.Grant, error)
}

// Carts is the cart service.
type Carts interface {
	Create(ctx context.Context, userID int64) (int64, error)
	List(ctx context.Context, userID int64, status string) ([]cart.Cart, error)
	Update(ctx context.Context, userID, cartID int64, status string, amount decimal.Decimal) error
	AddLine(ctx context.Context, userID int64, line *cart.Line) (int64, error)
	UpdateLine(ctx context.Context, userID int64, line *cart.Line) error
	DeleteLine(ctx context.Context, userID, lineID int64) error
}

// Orders is the order service.
type Orders interface {
	Create(ctx context.Context, req order.CreateRequest) (int64, error)
	AddLine(ctx context.Context, userID int64, line *order.Line) (int64, error)
	List(ctx context.Context, userID int64) ([]order.Order, error)
	Get(ctx context.Context, userID, orderID int64) (*order.Order, error)
	Update(ctx context.Context, userID, orderID int64, status string, amount decimal.Decimal) error
}

// Authenticator resolves an Authorization header value to a user id.
type Authenticator interface {
	Resolve(ctx context.Context, credential string) (int64, error)
}

// Services groups the dependencies of a Handler.
type Services struct {
	Users    Users
	Products Products
	Coupons  Coupons
	Grants   Grants
	Carts    Carts
	Orders   Orders
	Auth     Authenticator
}

// Handler serves the shop API.
type Handler struct {
	users    Users
	products Products
	coupons  Coupons
	grants   Grants
	carts    Carts
	orders   Orders
	auth     Authenticator
}

// New creates a Handler.
func New(s Services) *Handler {
	return &Handler{
		users:    s.Users,
		products: s.Products,
		coupons:  s.Coupons,
		grants:   s.Grants,
		carts:    s.Carts,
		orders:   s.Orders,
		auth:     s.Auth,
	}
}

// Mount registers the API routes on r under /api.
func (h *Handler) Mount(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			writeMessage(w, http.StatusNotFound, "route not found")
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
			writeMessage(w, http.StatusMethodNotAllowed, "method not allowed")
		})

		r.Post("/register", h.Register)
		r.Post("/login", h.Login)

		r.Post("/products", h.CreateProduct)
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)

		r.Post("/coupons", h.CreateCoupon)
		r.Get("/coupons", h.ListCoupons)
		r.Get("/coupons/{id}", h.GetCoupon)

		r.Post("/usercoupons", h.GrantCoupon)

		r.Group(func(r chi.Router) {
			r.Use(h.Authenticate)

			r.Put("/register", h.UpdateProfile)
			r.Get("/me", h.Me)

			r.Put("/products", h.UpdateProduct)

			r.Get("/usercoupons", h.ListGrants)
			r.Get("/usercoupons/{id}", h.GetGrant)

			r.Post("/carts", h.CreateCart)
			r.Get("/carts", h.ListCarts)
			r.Put("/carts/{id}", h.UpdateCart)
			r.Post("/cart-lines", h.CreateCartLine)
			r.Put("/cart-lines/{id}", h.UpdateCartLine)
			r.Delete("/cart-lines/{id}", h.DeleteCartLine)

			r.Post("/orders", h.CreateOrder)
			r.Get("/orders", h.ListOrders)
			r.Get("/orders/{id}", h.GetOrder)
			r.Put("/orders/{id}", h.UpdateOrder)
			r.Post("/order-lines", h.CreateOrderLine)
		})
	})
}
