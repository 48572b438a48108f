package handler

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexushq/storefront-api/internal/domain/order"
	"github.com/nexushq/storefront-api/internal/identity"
)

type orderItemReq struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type createOrderReq struct {
	AddressID     string         `json:"addressId"`
	Items         []orderItemReq `json:"items"`
	CouponCode    string         `json:"couponCode"`
	PaymentMethod string         `json:"paymentMethod"`
}

type orderResp struct {
	ID              string          `json:"id"`
	StoreID         string          `json:"storeId"`
	Items           []orderItemResp `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	Total           decimal.Decimal `json:"total"`
	CouponCode      string          `json:"couponCode,omitempty"`
	PaymentMethod   string          `json:"paymentMethod"`
	IsPaid          bool            `json:"isPaid"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
}

type orderItemResp struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// createOrder composes a checkout into per-store orders. The response shape
// depends on the payment method: COD confirms immediately, gateway returns
// the payment intent the client completes payment against.
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	claims, _ := identity.FromContext(r.Context())

	var req createOrderReq
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.AddressID == "" || len(req.Items) == 0 {
		respondError(w, http.StatusBadRequest, "missing order details")
		return
	}

	method, ok := parsePaymentMethod(req.PaymentMethod)
	if !ok {
		respondError(w, http.StatusBadRequest, "unknown payment method")
		return
	}

	lines := make([]order.CartLine, len(req.Items))
	for i, item := range req.Items {
		lines[i] = order.CartLine{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	result, err := h.orders.Compose(r.Context(), order.ComposeRequest{
		UserID:        claims.UserID,
		AddressID:     req.AddressID,
		Lines:         lines,
		CouponCode:    req.CouponCode,
		PaymentMethod: method,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	if result.Intent != nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"order": map[string]any{
				"id":       result.Intent.ID,
				"amount":   result.Intent.AmountMinor,
				"currency": result.Intent.Currency,
				"key":      result.Intent.ClientKey,
			},
			"orderIds": result.OrderIDs(),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message":  "Order Placed Successfully",
		"orderIds": result.OrderIDs(),
	})
}

// listOrders returns the caller's order history.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	claims, _ := identity.FromContext(r.Context())

	orders, err := h.orderRepo.ListVisibleByUser(r.Context(), claims.UserID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"orders": toOrderResponses(orders)})
}

func parsePaymentMethod(s string) (order.PaymentMethod, bool) {
	switch order.PaymentMethod(s) {
	case order.PaymentCOD:
		return order.PaymentCOD, true
	case order.PaymentGateway:
		return order.PaymentGateway, true
	}
	return "", false
}

func toOrderResponses(orders []order.Order) []orderResp {
	out := make([]orderResp, len(orders))
	for i, o := range orders {
		items := make([]orderItemResp, len(o.Items))
		for j, item := range o.Items {
			items[j] = orderItemResp{
				ProductID: item.ProductID,
				Quantity:  item.Quantity,
				UnitPrice: item.UnitPrice,
			}
		}
		out[i] = orderResp{
			ID:              o.ID,
			StoreID:         o.StoreID,
			Items:           items,
			Subtotal:        o.Subtotal,
			DiscountPercent: o.DiscountPercent,
			Total:           o.Total,
			CouponCode:      o.CouponCode,
			PaymentMethod:   string(o.PaymentMethod),
			IsPaid:          o.IsPaid,
			Status:          string(o.Status),
			CreatedAt:       o.CreatedAt,
		}
	}
	return out
}
