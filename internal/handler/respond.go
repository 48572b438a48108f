package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/nexushq/storefront-api/internal/domain/coupon"
	"github.com/nexushq/storefront-api/internal/domain/order"
	"github.com/nexushq/storefront-api/internal/domain/product"
	"github.com/nexushq/storefront-api/internal/domain/store"
)

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondDomainError maps domain errors onto the API's error taxonomy:
// validation 400, not-found 404, conflict 409, everything unmapped 500
// with a generic message (internals never leak to the caller).
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrAmountTooLow),
		errors.Is(err, coupon.ErrNotEligible):
		respondError(w, http.StatusBadRequest, unwrapped(err).Error())
	case errors.Is(err, coupon.ErrNotFound):
		respondError(w, http.StatusNotFound, "Coupon not found")
	case errors.Is(err, product.ErrNotFound):
		respondError(w, http.StatusNotFound, "Product not found")
	case errors.Is(err, order.ErrNotFound):
		respondError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, "store not found")
	case errors.Is(err, coupon.ErrAlreadyExists),
		errors.Is(err, store.ErrUsernameTaken),
		errors.Is(err, store.ErrAlreadyExists):
		respondError(w, http.StatusConflict, unwrapped(err).Error())
	default:
		var (
			iqErr  *order.InvalidQuantityError
			pnfErr *order.ProductNotFoundError
			vErr   *store.ValidationError
		)
		switch {
		case errors.As(err, &iqErr):
			respondError(w, http.StatusBadRequest, iqErr.Error())
		case errors.As(err, &pnfErr):
			respondError(w, http.StatusNotFound, pnfErr.Error())
		case errors.As(err, &vErr):
			respondError(w, http.StatusBadRequest, vErr.Error())
		default:
			zctx.From(r.Context()).Error("request failed", zap.Error(err))
			respondError(w, http.StatusInternalServerError, "internal error")
		}
	}
}

// unwrapped returns the innermost error for user-facing messages, so
// wrapping context like "evaluate coupon:" stays out of API responses.
func unwrapped(err error) error {
	for {
		inner := errors.Unwrap(err)
		if inner == nil {
			return err
		}
		err = inner
	}
}

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
