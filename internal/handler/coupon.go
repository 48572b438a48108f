package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/nexushq/storefront-api/internal/domain/coupon"
	"github.com/nexushq/storefront-api/internal/identity"
	"github.com/nexushq/storefront-api/internal/scheduler"
)

type couponResp struct {
	Code            string          `json:"code"`
	Description     string          `json:"description"`
	DiscountPercent decimal.Decimal `json:"discount"`
	ForNewUsers     bool            `json:"forNewUser"`
	ExpiresAt       time.Time       `json:"expiresAt"`
}

func toCouponResp(c *coupon.Coupon) couponResp {
	return couponResp{
		Code:            c.Code,
		Description:     c.Description,
		DiscountPercent: c.DiscountPercent,
		ForNewUsers:     c.ForNewUsers,
		ExpiresAt:       c.ExpiresAt,
	}
}

// verifyCoupon runs the evaluator for the calling user without composing
// an order, so the client can show the discount before checkout.
func (h *Handler) verifyCoupon(w http.ResponseWriter, r *http.Request) {
	claims, _ := identity.FromContext(r.Context())

	var req struct {
		Code string `json:"code"`
	}
	if err := decodeBody(r, &req); err != nil || req.Code == "" {
		respondError(w, http.StatusBadRequest, "Coupon code required")
		return
	}

	c, err := h.couponEval.Evaluate(r.Context(), req.Code, claims.UserID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"coupon": toCouponResp(c)})
}

type createCouponReq struct {
	Code            string          `json:"code"`
	Description     string          `json:"description"`
	DiscountPercent decimal.Decimal `json:"discount"`
	ForNewUsers     bool            `json:"forNewUser"`
	ExpiresAt       time.Time       `json:"expiresAt"`
}

// createCoupon adds a coupon and schedules its deletion at expiry. The
// scheduling is best-effort: a publish failure is logged, never surfaced.
func (h *Handler) createCoupon(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Coupon createCouponReq `json:"coupon"`
	}
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	c := req.Coupon
	switch {
	case c.Code == "":
		respondError(w, http.StatusBadRequest, "coupon code required")
		return
	case c.DiscountPercent.IsNegative() || c.DiscountPercent.GreaterThan(decimal.NewFromInt(100)):
		respondError(w, http.StatusBadRequest, "discount must be between 0 and 100")
		return
	case !c.ExpiresAt.After(time.Now()):
		respondError(w, http.StatusBadRequest, "expiry must be in the future")
		return
	}

	created := &coupon.Coupon{
		Code:            strings.ToUpper(c.Code),
		Description:     c.Description,
		DiscountPercent: c.DiscountPercent,
		ForNewUsers:     c.ForNewUsers,
		ExpiresAt:       c.ExpiresAt,
	}
	if err := h.couponRepo.Create(r.Context(), created); err != nil {
		respondDomainError(w, r, err)
		return
	}

	if err := h.events.Publish(r.Context(), created.Code,
		scheduler.CouponExpired(created.Code, created.ExpiresAt),
	); err != nil {
		zctx.From(r.Context()).Warn("schedule coupon expiry failed",
			zap.String("code", created.Code),
			zap.Error(err),
		)
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Coupon added successfully"})
}

func (h *Handler) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		respondError(w, http.StatusBadRequest, "coupon code required")
		return
	}

	if err := h.couponRepo.Delete(r.Context(), code); err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Coupon deleted successfully"})
}

func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.couponRepo.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]couponResp, len(coupons))
	for i := range coupons {
		out[i] = toCouponResp(&coupons[i])
	}
	respondJSON(w, http.StatusOK, map[string]any{"coupons": out})
}
