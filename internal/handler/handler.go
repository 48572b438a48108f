// Package handler exposes the storefront API over HTTP. Handlers validate
// and decode input, delegate to domain services, and map domain errors to
// status codes; no business logic lives here.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nexushq/storefront-api/internal/domain/cart"
	"github.com/nexushq/storefront-api/internal/domain/coupon"
	"github.com/nexushq/storefront-api/internal/domain/order"
	"github.com/nexushq/storefront-api/internal/domain/product"
	"github.com/nexushq/storefront-api/internal/domain/store"
	"github.com/nexushq/storefront-api/internal/identity"
	"github.com/nexushq/storefront-api/internal/payment"
	"github.com/nexushq/storefront-api/internal/scheduler"
)

// Config holds non-dependency configuration for the Handler.
type Config struct {
	// ImageBaseURL is prepended to relative image paths in product
	// responses. When empty, image paths are returned as stored.
	ImageBaseURL string
}

// Handler routes storefront API requests to the domain services.
type Handler struct {
	orders     *order.Service
	orderRepo  order.Repository
	products   product.Repository
	couponEval coupon.Evaluator
	couponRepo coupon.Repository
	carts      cart.Repository
	stores     *store.Service
	storeRepo  store.Repository
	verifier   *payment.Verifier
	identity   *identity.Verifier
	events     scheduler.Publisher

	imageBaseURL string
}

// New constructs a Handler with the required domain dependencies.
func New(
	cfg Config,
	orders *order.Service,
	orderRepo order.Repository,
	products product.Repository,
	couponEval coupon.Evaluator,
	couponRepo coupon.Repository,
	carts cart.Repository,
	stores *store.Service,
	storeRepo store.Repository,
	verifier *payment.Verifier,
	idv *identity.Verifier,
	events scheduler.Publisher,
) *Handler {
	return &Handler{
		orders:       orders,
		orderRepo:    orderRepo,
		products:     products,
		couponEval:   couponEval,
		couponRepo:   couponRepo,
		carts:        carts,
		stores:       stores,
		storeRepo:    storeRepo,
		verifier:     verifier,
		identity:     idv,
		events:       events,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Routes returns the API router mounted under /api.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/products", h.listProducts)
	r.Get("/products/{productID}", h.getProduct)

	// Webhook authenticity comes from its own signature, not a user token.
	r.Post("/payments/webhook", h.paymentWebhook)

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)

		r.Post("/orders", h.createOrder)
		r.Get("/orders", h.listOrders)
		r.Post("/payments/confirm", h.confirmPayment)
		r.Post("/coupons/verify", h.verifyCoupon)

		r.Get("/cart", h.getCart)
		r.Post("/cart", h.saveCart)

		r.Post("/stores", h.createStore)
		r.Get("/stores/is-seller", h.isSeller)
		r.Get("/stores/orders", h.sellerOrders)
		r.Post("/stores/orders/{orderID}/status", h.updateOrderStatus)

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.requireAdmin)

			r.Get("/is-admin", h.isAdmin)
			r.Post("/coupons", h.createCoupon)
			r.Get("/coupons", h.listCoupons)
			r.Delete("/coupons", h.deleteCoupon)
			r.Get("/stores", h.listStores)
			r.Post("/stores/{storeID}/approve", h.approveStore)
			r.Post("/stores/{storeID}/reject", h.rejectStore)
		})
	})

	return r
}

// authenticate resolves the caller from the bearer token and stores the
// verified claims in the request context.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := identity.TokenFromHeader(r.Header.Get("Authorization"))
		if token == "" {
			respondError(w, http.StatusUnauthorized, "not authorized")
			return
		}
		claims, err := h.identity.Verify(token)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "not authorized")
			return
		}
		next.ServeHTTP(w, r.WithContext(identity.WithClaims(r.Context(), claims)))
	})
}

// requireAdmin gates admin routes on the verified email allowlist.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := identity.FromContext(r.Context())
		if !ok {
			respondError(w, http.StatusUnauthorized, "not authorized")
			return
		}
		if !h.identity.IsAdmin(claims.Email) {
			respondError(w, http.StatusForbidden, "not authorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) isAdmin(w http.ResponseWriter, r *http.Request) {
	// requireAdmin already ran; reaching here means yes.
	respondJSON(w, http.StatusOK, map[string]any{"isAdmin": true})
}
