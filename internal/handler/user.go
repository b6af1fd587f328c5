package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/funing-shop/internal/domain/user"
)

func profileFrom(f *form) user.Profile {
	return user.Profile{
		Name:     f.str("name"),
		Email:    f.str("email"),
		Password: f.str("password"),
		Address:  f.str("address"),
		Phone:    f.str("phone"),
	}
}

// Register creates an account and returns its API key once.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	f, err := readForm(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	p := profileFrom(f)
	if err := f.err(); err != nil {
		fail(w, r, err)
		return
	}

	reg, err := h.users.Register(r.Context(), p)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) {
		strField(e, "message", "You are successfully registered")
		intField(e, "user_id", reg.UserID)
		strField(e, "api_key", reg.APIKey)
	})
}

// Login verifies email and password and returns the profile with a session token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	f, err := readForm(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	email, password := f.required("email"), f.required("password")
	if err := f.err(); err != nil {
		fail(w, r, err)
		return
	}

	s, err := h.users.Login(r.Context(), email, password)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		strField(e, "token", s.Token)
		e.FieldStart("user")
		encodeUser(e, s.User)
	})
}

// UpdateProfile replaces the caller's profile and password.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	f, err := readForm(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	p := profileFrom(f)
	if err := f.err(); err != nil {
		fail(w, r, err)
		return
	}

	if err := h.users.Update(r.Context(), caller(r), p); err != nil {
		fail(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "User information updated successfully")
}

// Me returns the caller's profile.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.Get(r.Context(), caller(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.FieldStart("user")
		encodeUser(e, u)
	})
}
