package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/nexushq/storefront-api/internal/domain/order"
	"github.com/nexushq/storefront-api/internal/domain/store"
	"github.com/nexushq/storefront-api/internal/identity"
)

// maxLogoSize bounds the multipart onboarding form, logo included.
const maxLogoSize = 5 << 20

type storeResp struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Username    string    `json:"username"`
	Description string    `json:"description"`
	Email       string    `json:"email"`
	Contact     string    `json:"contact"`
	Address     string    `json:"address"`
	LogoURL     string    `json:"logoUrl,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

func toStoreResp(s *store.Store) storeResp {
	return storeResp{
		ID:          s.ID,
		Name:        s.Name,
		Username:    s.Username,
		Description: s.Description,
		Email:       s.Email,
		Contact:     s.Contact,
		Address:     s.Address,
		LogoURL:     s.LogoURL,
		Status:      string(s.Status),
		CreatedAt:   s.CreatedAt,
	}
}

// createStore onboards the calling user as a seller. The form is multipart
// because the logo rides along with the text fields.
func (h *Handler) createStore(w http.ResponseWriter, r *http.Request) {
	claims, _ := identity.FromContext(r.Context())

	if err := r.ParseMultipartForm(maxLogoSize); err != nil {
		respondError(w, http.StatusBadRequest, "malformed multipart form")
		return
	}

	req := store.CreateRequest{
		UserID:      claims.UserID,
		Name:        r.FormValue("name"),
		Username:    r.FormValue("username"),
		Description: r.FormValue("description"),
		Email:       r.FormValue("email"),
		Contact:     r.FormValue("contact"),
		Address:     r.FormValue("address"),
	}

	if file, header, err := r.FormFile("logo"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxLogoSize))
		if err != nil {
			respondError(w, http.StatusBadRequest, "could not read logo")
			return
		}
		req.LogoName = header.Filename
		req.Logo = data
	}

	created, err := h.stores.Create(r.Context(), req)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message": "Store created, pending approval",
		"store":   toStoreResp(created),
	})
}

// isSeller reports whether the caller owns an approved store. Pending or
// rejected stores answer false so the storefront hides seller navigation.
func (h *Handler) isSeller(w http.ResponseWriter, r *http.Request) {
	claims, _ := identity.FromContext(r.Context())

	st, err := h.stores.SellerStore(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondJSON(w, http.StatusOK, map[string]any{"isSeller": false})
			return
		}
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"isSeller": true,
		"store":    toStoreResp(st),
	})
}

// sellerOrders lists orders containing the seller's products, COD or paid
// gateway orders only.
func (h *Handler) sellerOrders(w http.ResponseWriter, r *http.Request) {
	claims, _ := identity.FromContext(r.Context())

	st, err := h.stores.SellerStore(r.Context(), claims.UserID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	orders, err := h.orderRepo.ListByStore(r.Context(), st.ID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"orders": toOrderResponses(orders)})
}

// updateOrderStatus lets a seller move one of their orders through
// fulfilment. Only forward fulfilment states are accepted here; payment
// states belong to reconciliation.
func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	claims, _ := identity.FromContext(r.Context())
	orderID := chi.URLParam(r, "orderID")

	var req struct {
		Status string `json:"status"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	status := order.Status(req.Status)
	if status != order.StatusShipped && status != order.StatusDelivered {
		respondError(w, http.StatusBadRequest, "status must be SHIPPED or DELIVERED")
		return
	}

	st, err := h.stores.SellerStore(r.Context(), claims.UserID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	if err := h.orderRepo.UpdateStatus(r.Context(), orderID, st.ID, status); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Order status updated"})
}

// listStores is the admin view over the approval queue. The status filter
// defaults to pending since that is the queue admins work through.
func (h *Handler) listStores(w http.ResponseWriter, r *http.Request) {
	status := store.Status(r.URL.Query().Get("status"))
	if status == "" {
		status = store.StatusPending
	}
	switch status {
	case store.StatusPending, store.StatusApproved, store.StatusRejected:
	default:
		respondError(w, http.StatusBadRequest, "unknown store status")
		return
	}

	stores, err := h.storeRepo.ListByStatus(r.Context(), status)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]storeResp, len(stores))
	for i := range stores {
		out[i] = toStoreResp(&stores[i])
	}
	respondJSON(w, http.StatusOK, map[string]any{"stores": out})
}

func (h *Handler) approveStore(w http.ResponseWriter, r *http.Request) {
	if err := h.stores.Approve(r.Context(), chi.URLParam(r, "storeID")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Store approved"})
}

func (h *Handler) rejectStore(w http.ResponseWriter, r *http.Request) {
	if err := h.stores.Reject(r.Context(), chi.URLParam(r, "storeID")); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Store rejected"})
}
