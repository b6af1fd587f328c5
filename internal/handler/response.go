package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/funing-shop/internal/domain/cart"
	"github.com/xenking/funing-shop/internal/domain/coupon"
	"github.com/xenking/funing-shop/internal/domain/order"
	"github.com/xenking/funing-shop/internal/domain/product"
	"github.com/xenking/funing-shop/internal/domain/user"
)

// writeJSON writes the response envelope. body adds fields after "error".
func writeJSON(w http.ResponseWriter, status int, body func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("error")
	e.Bool(status >= http.StatusBadRequest)
	if body != nil {
		body(e)
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, func(e *jx.Encoder) {
		e.FieldStart("message")
		e.Str(message)
	})
}

// writeCreated reports a new row id under key.
func writeCreated(w http.ResponseWriter, message, key string, id int64) {
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		e.FieldStart("message")
		e.Str(message)
		e.FieldStart(key)
		e.Int64(id)
	})
}

func writeList[T any](w http.ResponseWriter, key string, items []T, enc func(e *jx.Encoder, item *T)) {
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.FieldStart(key)
		e.ArrStart()
		for i := range items {
			enc(e, &items[i])
		}
		e.ArrEnd()
	})
}

func money(e *jx.Encoder, name string, d decimal.Decimal) {
	e.FieldStart(name)
	e.Str(d.StringFixed(2))
}

func timestamp(e *jx.Encoder, name string, t time.Time) {
	e.FieldStart(name)
	e.Str(t.UTC().Format(time.RFC3339))
}

func strField(e *jx.Encoder, name, v string) {
	e.FieldStart(name)
	e.Str(v)
}

func intField(e *jx.Encoder, name string, v int64) {
	e.FieldStart(name)
	e.Int64(v)
}

// optionalID writes null for zero ids.
func optionalID(e *jx.Encoder, name string, v int64) {
	e.FieldStart(name)
	if v == 0 {
		e.Null()
		return
	}
	e.Int64(v)
}

func encodeUser(e *jx.Encoder, u *user.User) {
	e.ObjStart()
	intField(e, "id", u.ID)
	strField(e, "name", u.Name)
	strField(e, "email", u.Email)
	strField(e, "address", u.Address)
	strField(e, "phone", u.Phone)
	e.FieldStart("status")
	e.Int(u.Status)
	timestamp(e, "created_at", u.CreatedAt)
	e.ObjEnd()
}

func encodeProduct(e *jx.Encoder, p *product.Product) {
	e.ObjStart()
	intField(e, "id", p.ID)
	strField(e, "code", p.Code)
	strField(e, "name", p.Name)
	strField(e, "description", p.Description)
	e.FieldStart("quantity")
	e.Int(p.Quantity)
	money(e, "price", p.Price)
	strField(e, "image_url", p.ImageURL)
	strField(e, "type", p.Type)
	timestamp(e, "created_at", p.CreatedAt)
	e.ObjEnd()
}

func encodeCoupon(e *jx.Encoder, c *coupon.Coupon) {
	e.ObjStart()
	intField(e, "id", c.ID)
	strField(e, "code", c.Code)
	strField(e, "name", c.Name)
	strField(e, "description", c.Description)
	strField(e, "image_url", c.ImageURL)
	strField(e, "discount_type", string(c.DiscountType))
	strField(e, "discount_detail", c.DiscountDetail.String())
	e.FieldStart("active")
	e.Bool(c.Active)
	if !c.CreatedAt.IsZero() {
		timestamp(e, "created_at", c.CreatedAt)
	}
	e.ObjEnd()
}

func encodeGrant(e *jx.Encoder, g *coupon.Grant) {
	e.ObjStart()
	intField(e, "id", g.ID)
	intField(e, "user_id", g.UserID)
	optionalID(e, "order_id", g.OrderID)
	strField(e, "expires_at", coupon.FormatExpiry(g.ExpiresAt))
	strField(e, "status", string(g.Status))
	e.FieldStart("coupon")
	c := g.Coupon
	c.ID = g.CouponID
	encodeCoupon(e, &c)
	e.ObjEnd()
}

func encodeSnapshot(e *jx.Encoder, s *product.Snapshot) {
	intField(e, "product_id", s.ProductID)
	strField(e, "code", s.Code)
	strField(e, "name", s.Name)
	strField(e, "description", s.Description)
	money(e, "price", s.Price)
}

func encodeCartLine(e *jx.Encoder, l *cart.Line) {
	e.ObjStart()
	intField(e, "id", l.ID)
	intField(e, "cart_id", l.CartID)
	encodeSnapshot(e, &l.Product)
	strField(e, "image_url", l.ImageURL)
	e.FieldStart("quantity")
	e.Int(l.Quantity)
	money(e, "subamount", l.Subamount)
	timestamp(e, "created_at", l.CreatedAt)
	e.ObjEnd()
}

func encodeCart(e *jx.Encoder, c *cart.Cart) {
	e.ObjStart()
	intField(e, "id", c.ID)
	intField(e, "user_id", c.UserID)
	money(e, "amount", c.Amount)
	strField(e, "status", c.Status)
	timestamp(e, "created_at", c.CreatedAt)
	e.FieldStart("lines")
	e.ArrStart()
	for i := range c.Lines {
		encodeCartLine(e, &c.Lines[i])
	}
	e.ArrEnd()
	e.ObjEnd()
}

func encodeOrderLine(e *jx.Encoder, l *order.Line) {
	e.ObjStart()
	intField(e, "id", l.ID)
	intField(e, "order_id", l.OrderID)
	encodeSnapshot(e, &l.Product)
	strField(e, "image_url", l.ImageURL)
	e.FieldStart("quantity")
	e.Int(l.Quantity)
	money(e, "subamount", l.Subamount)
	timestamp(e, "created_at", l.CreatedAt)
	e.ObjEnd()
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.ObjStart()
	intField(e, "id", o.ID)
	intField(e, "user_id", o.UserID)
	strField(e, "name", o.Name)
	strField(e, "email", o.Email)
	strField(e, "address", o.Address)
	strField(e, "phone", o.Phone)
	money(e, "amount", o.Amount)
	strField(e, "status", o.Status)
	optionalID(e, "user_coupon_id", o.UserCouponID)
	timestamp(e, "created_at", o.CreatedAt)
	e.FieldStart("lines")
	e.ArrStart()
	for i := range o.Lines {
		encodeOrderLine(e, &o.Lines[i])
	}
	e.ArrEnd()
	e.FieldStart("user_coupon")
	if o.Grant == nil {
		e.Null()
	} else {
		encodeGrant(e, o.Grant)
	}
	e.ObjEnd()
}
