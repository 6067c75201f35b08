package http

import (
	"errors"
	"net/http"

	"github.com/farmadigital/pharmacy/internal/pharmacy/domain"
	"github.com/farmadigital/pharmacy/internal/pharmacy/store"
	"github.com/farmadigital/pharmacy/pkg/httpx"
	"github.com/farmadigital/pharmacy/pkg/slogx"
)

// writeDomainError maps service errors onto the wire. Authentication
// failures stay deliberately vague; everything unexpected is logged and
// collapsed to a 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, domain.ErrAuthentication):
		httpx.WriteError(w, http.StatusUnauthorized, "authentication_failed", "authentication failed")
	case errors.Is(err, domain.ErrInsufficientStock):
		httpx.WriteError(w, http.StatusConflict, "insufficient_stock", err.Error())
	case errors.Is(err, domain.ErrPaymentDeclined):
		httpx.WriteError(w, http.StatusPaymentRequired, "payment_declined", err.Error())
	case errors.Is(err, store.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "resource not found")
	default:
		slogx.FromContext(r.Context()).Error("request failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "internal server error")
	}
}
