package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/funing-shop/internal/domain/order"
)

// CreateOrder places an order for the caller, redeeming user_coupon_id when given.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	f, err := readForm(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	req := order.CreateRequest{
		UserID:       caller(r),
		Name:         f.str("name"),
		Email:        f.str("email"),
		Address:      f.str("address"),
		Phone:        f.str("phone"),
		Amount:       f.requiredDecimal("amount"),
		UserCouponID: f.int64("user_coupon_id"),
	}
	if err := f.err(); err != nil {
		fail(w, r, err)
		return
	}

	id, err := h.orders.Create(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCreated(w, "Order created successfully", "order_id", id)
}

// ListOrders returns the caller's orders with lines and redeemed coupons.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context(), caller(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeList(w, "orders", orders, encodeOrder)
}

// GetOrder returns one of the caller's orders.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	o, err := h.orders.Get(r.Context(), caller(r), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.FieldStart("order")
		encodeOrder(e, o)
	})
}

// UpdateOrder sets the status and amount of one of the caller's orders.
func (h *Handler) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	f, err := readForm(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	status, amount := f.required("status"), f.requiredDecimal("amount")
	if err := f.err(); err != nil {
		fail(w, r, err)
		return
	}

	if err := h.orders.Update(r.Context(), caller(r), id, status, amount); err != nil {
		fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Order updated successfully")
}

// CreateOrderLine adds a line to one of the caller's orders.
func (h *Handler) CreateOrderLine(w http.ResponseWriter, r *http.Request) {
	f, err := readForm(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	line := &order.Line{
		OrderID:   requireParent(f, "order_id"),
		Product:   snapshotFrom(f),
		Quantity:  f.requiredInt("quantity"),
		Subamount: f.requiredDecimal("subamount"),
	}
	if err := f.err(); err != nil {
		fail(w, r, err)
		return
	}

	id, err := h.orders.AddLine(r.Context(), caller(r), line)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCreated(w, "Order line created successfully", "order_line_id", id)
}
