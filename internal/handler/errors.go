package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/funing-shop/internal/domain"
	"github.com/xenking/funing-shop/internal/domain/auth"
	"github.com/xenking/funing-shop/internal/domain/cart"
	"github.com/xenking/funing-shop/internal/domain/coupon"
	"github.com/xenking/funing-shop/internal/domain/order"
	"github.com/xenking/funing-shop/internal/domain/product"
	"github.com/xenking/funing-shop/internal/domain/user"
	"github.com/xenking/funing-shop/pkg/httpmiddleware"
)

// errorStatus maps domain sentinels to response codes. The sentinel text is
// the response message so wrapped context never leaks to clients.
var errorStatus = []struct {
	err    error
	status int
}{
	{coupon.ErrInvalidExpiry, http.StatusBadRequest},

	{auth.ErrMissingToken, http.StatusUnauthorized},
	{auth.ErrInvalidToken, http.StatusUnauthorized},
	{user.ErrInvalidCredentials, http.StatusUnauthorized},

	{user.ErrNotFound, http.StatusNotFound},
	{product.ErrNotFound, http.StatusNotFound},
	{coupon.ErrNotFound, http.StatusNotFound},
	{coupon.ErrUserNotFound, http.StatusNotFound},
	{coupon.ErrGrantNotFound, http.StatusNotFound},
	{cart.ErrNotFound, http.StatusNotFound},
	{cart.ErrLineNotFound, http.StatusNotFound},
	{order.ErrNotFound, http.StatusNotFound},

	{user.ErrEmailTaken, http.StatusConflict},
	{product.ErrCodeTaken, http.StatusConflict},
	{coupon.ErrCodeTaken, http.StatusConflict},

	{coupon.ErrNotRedeemable, http.StatusUnprocessableEntity},
}

func classify(err error) (int, string) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest, verr.Error()
	}
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status, e.err.Error()
		}
	}
	return http.StatusInternalServerError, "internal error, please try again"
}

// fail writes the error response for err. Unexpected errors are logged and
// answered with the request id so they can be matched to the log line.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	status, message := classify(err)
	if status != http.StatusInternalServerError {
		writeMessage(w, status, message)
		return
	}

	zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	requestID := httpmiddleware.RequestIDFrom(r.Context())
	writeJSON(w, status, func(e *jx.Encoder) {
		e.FieldStart("message")
		e.Str(message)
		if requestID != "" {
			e.FieldStart("request_id")
			e.Str(requestID)
		}
	})
}
