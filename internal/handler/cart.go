package handler

import (
	"net/http"

	"github.com/xenking/funing-shop/internal/domain/cart"
)

// CreateCart opens an empty cart for the caller.
func (h *Handler) CreateCart(w http.ResponseWriter, r *http.Request) {
	id, err := h.carts.Create(r.Context(), caller(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCreated(w, "Shopping cart created successfully", "cart_id", id)
}

// ListCarts returns the caller's carts with their lines, optionally filtered by ?status=.
func (h *Handler) ListCarts(w http.ResponseWriter, r *http.Request) {
	carts, err := h.carts.List(r.Context(), caller(r), r.URL.Query().Get("status"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeList(w, "carts", carts, encodeCart)
}

// UpdateCart sets the status and amount of one of the caller's carts.
func (h *Handler) UpdateCart(w http.ResponseWriter, r *http.Request) {
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

	if err := h.carts.Update(r.Context(), caller(r), id, status, amount); err != nil {
		fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Shopping cart updated successfully")
}

func cartLineFrom(f *form) *cart.Line {
	return &cart.Line{
		CartID:    requireParent(f, "cart_id"),
		Product:   snapshotFrom(f),
		Quantity:  f.requiredInt("quantity"),
		Subamount: f.requiredDecimal("subamount"),
	}
}

// CreateCartLine adds a line to one of the caller's Valid carts.
func (h *Handler) CreateCartLine(w http.ResponseWriter, r *http.Request) {
	f, err := readForm(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	line := cartLineFrom(f)
	if err := f.err(); err != nil {
		fail(w, r, err)
		return
	}

	id, err := h.carts.AddLine(r.Context(), caller(r), line)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCreated(w, "Shopping cart line created successfully", "cart_line_id", id)
}

// UpdateCartLine replaces a line in one of the caller's carts.
func (h *Handler) UpdateCartLine(w http.ResponseWriter, r *http.Request) {
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
	line := cartLineFrom(f)
	if err := f.err(); err != nil {
		fail(w, r, err)
		return
	}
	line.ID = id

	if err := h.carts.UpdateLine(r.Context(), caller(r), line); err != nil {
		fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Shopping cart line updated successfully")
}

// DeleteCartLine removes a line from one of the caller's carts.
func (h *Handler) DeleteCartLine(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	if err := h.carts.DeleteLine(r.Context(), caller(r), id); err != nil {
		fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Shopping cart line deleted successfully")
}
