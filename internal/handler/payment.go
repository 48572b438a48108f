package handler

import (
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/nexushq/storefront-api/internal/domain/order"
	"github.com/nexushq/storefront-api/internal/payment"
)

// webhookSignatureHeader carries the gateway's HMAC over the raw body.
const webhookSignatureHeader = "X-Gateway-Signature"

// maxWebhookBody bounds webhook reads; gateway events are small.
const maxWebhookBody = 1 << 20

type confirmPaymentReq struct {
	PaymentID     string `json:"paymentId"`
	TransactionID string `json:"transactionId"`
	Signature     string `json:"signature"`
}

// confirmPayment handles the synchronous client-side confirmation after the
// user completes payment. The signature covers transactionID|paymentID with
// the API secret; an unverified call never touches order state.
func (h *Handler) confirmPayment(w http.ResponseWriter, r *http.Request) {
	var req confirmPaymentReq
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.PaymentID == "" || req.TransactionID == "" || req.Signature == "" {
		respondError(w, http.StatusBadRequest, "missing payment details")
		return
	}

	if !h.verifier.VerifyClient(req.TransactionID, req.PaymentID, req.Signature) {
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"error":   "Payment verification failed",
		})
		return
	}

	result, err := h.orders.Reconcile(r.Context(), req.TransactionID, true)
	if err != nil {
		if errors.Is(err, order.ErrNoMatchingOrders) {
			respondError(w, http.StatusNotFound, "no orders for this payment")
			return
		}
		respondDomainError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"message":     "Payment verified successfully",
		"cartCleared": result.CartCleared,
	})
}

// paymentWebhook handles asynchronous gateway notifications. Except on
// signature failure it always acknowledges with a generic body: the gateway
// retries non-2xx responses and late or already-handled events must not
// cause a retry storm.
func (h *Handler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	lg := zctx.From(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	if !h.verifier.VerifyWebhook(body, r.Header.Get(webhookSignatureHeader)) {
		respondError(w, http.StatusBadRequest, "invalid signature")
		return
	}

	ev, err := payment.ParseWebhook(body)
	if err != nil {
		lg.Warn("unparseable webhook", zap.Error(err))
		respondJSON(w, http.StatusOK, map[string]any{"received": true})
		return
	}

	success, handled := ev.Outcome()
	if !handled {
		lg.Debug("ignoring webhook event", zap.String("event", ev.Name))
		respondJSON(w, http.StatusOK, map[string]any{"received": true})
		return
	}

	result, err := h.orders.Reconcile(r.Context(), ev.IntentID, success)
	switch {
	case errors.Is(err, order.ErrNoMatchingOrders):
		// Duplicate or late delivery after cleanup; ack so the gateway
		// stops retrying.
		lg.Info("webhook matched no orders", zap.String("intent_id", ev.IntentID))
	case err != nil:
		lg.Error("webhook reconciliation failed",
			zap.String("intent_id", ev.IntentID),
			zap.Error(err),
		)
	default:
		lg.Info("webhook reconciled",
			zap.String("intent_id", ev.IntentID),
			zap.String("event", ev.Name),
			zap.Int("orders", len(result.OrderIDs)),
			zap.Bool("cart_cleared", result.CartCleared),
		)
	}

	respondJSON(w, http.StatusOK, map[string]any{"received": true})
}
