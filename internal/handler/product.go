package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/funing-shop/internal/domain/product"
)

func productFrom(f *form) *product.Product {
	return &product.Product{
		Code:        f.str("code"),
		Name:        f.str("name"),
		Description: f.str("description"),
		Quantity:    f.requiredInt("quantity"),
		Price:       f.requiredDecimal("price"),
		ImageURL:    f.str("image_url"),
		Type:        f.str("type"),
	}
}

// CreateProduct adds a product with a unique code.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	f, err := readForm(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	p := productFrom(f)
	if err := f.err(); err != nil {
		fail(w, r, err)
		return
	}

	id, err := h.products.Create(r.Context(), p)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCreated(w, "You are successfully created the product", "product_id", id)
}

// ListProducts returns all products, optionally filtered by ?type=.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeList(w, "products", products, encodeProduct)
}

// GetProduct returns one product.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	p, err := h.products.Get(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.FieldStart("product")
		encodeProduct(e, p)
	})
}

// UpdateProduct replaces the product identified by its code.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	f, err := readForm(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	p := productFrom(f)
	if err := f.err(); err != nil {
		fail(w, r, err)
		return
	}

	if err := h.products.Update(r.Context(), p); err != nil {
		fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "Product updated successfully")
}
