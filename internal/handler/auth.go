package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

type callerKey struct{}

// Caller returns the authenticated user id stored by Authenticate.
func Caller(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(callerKey{}).(int64)
	return id, ok
}

// Authenticate resolves the Authorization header and rejects the request
// with 401 when it does not identify an active user.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := h.auth.Resolve(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			fail(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), callerKey{}, userID)
		ctx = zctx.With(ctx, zap.Int64("user_id", userID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// caller is only used behind Authenticate.
func caller(r *http.Request) int64 {
	id, _ := Caller(r.Context())
	return id
}
