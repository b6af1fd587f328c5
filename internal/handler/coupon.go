package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/funing-shop/internal/domain/coupon"
)

// CreateCoupon adds a coupon definition with a unique code.
func (h *Handler) CreateCoupon(w http.ResponseWriter, r *http.Request) {
	f, err := readForm(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	c := &coupon.Coupon{
		Code:           f.str("code"),
		Name:           f.str("name"),
		Description:    f.str("description"),
		ImageURL:       f.str("image_url"),
		DiscountType:   coupon.DiscountType(f.str("discount_type")),
		DiscountDetail: f.requiredDecimal("discount_detail"),
	}
	if err := f.err(); err != nil {
		fail(w, r, err)
		return
	}

	id, err := h.coupons.Create(r.Context(), c)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCreated(w, "You are successfully created the coupon", "coupon_id", id)
}

// ListCoupons returns all coupon definitions.
func (h *Handler) ListCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.coupons.List(r.Context())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeList(w, "coupons", coupons, encodeCoupon)
}

// GetCoupon returns one coupon definition.
func (h *Handler) GetCoupon(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	c, err := h.coupons.Get(r.Context(), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.FieldStart("coupon")
		encodeCoupon(e, c)
	})
}

// GrantCoupon issues a coupon, referenced by coupon_id or coupon_code, to a user.
func (h *Handler) GrantCoupon(w http.ResponseWriter, r *http.Request) {
	f, err := readForm(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	req := coupon.GrantRequest{
		Coupon:    coupon.Ref{ID: f.int64("coupon_id"), Code: f.str("coupon_code")},
		UserID:    f.int64("user_id"),
		ExpiresAt: f.required("expires_at"),
	}
	if !f.has("user_id") {
		f.fail("user_id", "is required")
	}
	if !f.has("coupon_id") && !f.has("coupon_code") {
		f.fail("coupon_id", "coupon_id or coupon_code is required")
	}
	if err := f.err(); err != nil {
		fail(w, r, err)
		return
	}

	id, err := h.grants.Grant(r.Context(), req)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCreated(w, "You are successfully created the usercoupon", "user_coupon_id", id)
}

// ListGrants returns the caller's grants, optionally filtered by ?status=.
func (h *Handler) ListGrants(w http.ResponseWriter, r *http.Request) {
	status := coupon.GrantStatus(r.URL.Query().Get("status"))
	grants, err := h.grants.List(r.Context(), caller(r), status)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeList(w, "usercoupons", grants, encodeGrant)
}

// GetGrant returns one of the caller's grants.
func (h *Handler) GetGrant(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	g, err := h.grants.Get(r.Context(), caller(r), id)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.FieldStart("usercoupon")
		encodeGrant(e, g)
	})
}
