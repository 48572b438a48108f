package handler

import (
	"net/http"

	"github.com/nexushq/storefront-api/internal/domain/cart"
	"github.com/nexushq/storefront-api/internal/identity"
)

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	claims, _ := identity.FromContext(r.Context())

	lines, err := h.carts.Get(r.Context(), claims.UserID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"cart": lines})
}

// saveCart replaces the user's cart wholesale. Clients send the full cart
// on every change, so there is no per-line add/remove surface.
func (h *Handler) saveCart(w http.ResponseWriter, r *http.Request) {
	claims, _ := identity.FromContext(r.Context())

	var req struct {
		Cart []cart.Line `json:"cart"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	for _, line := range req.Cart {
		if line.ProductID == "" {
			respondError(w, http.StatusBadRequest, "cart line missing product id")
			return
		}
		if line.Quantity <= 0 {
			respondError(w, http.StatusBadRequest, "cart line quantity must be positive")
			return
		}
	}

	if err := h.carts.Save(r.Context(), claims.UserID, req.Cart); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Cart saved"})
}
