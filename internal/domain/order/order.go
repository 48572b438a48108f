package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod selects how an order is paid for.
type PaymentMethod string

const (
	// PaymentCOD is cash on delivery: the order is payable immediately and
	// never enters the payment state machine.
	PaymentCOD PaymentMethod = "COD"
	// PaymentGateway routes payment through the external gateway and keeps
	// the order pending until reconciliation.
	PaymentGateway PaymentMethod = "GATEWAY"
)

// Status is the lifecycle state of an order.
type Status string

const (
	// StatusPlaced is the initial (and, for COD, resting) state.
	StatusPlaced Status = "ORDER_PLACED"
	// StatusPendingPayment marks a gateway order awaiting reconciliation.
	StatusPendingPayment Status = "PENDING_PAYMENT"
	// StatusPaid and StatusPaymentFailed are terminal from the payment
	// flow's perspective.
	StatusPaid          Status = "PAID"
	StatusPaymentFailed Status = "PAYMENT_FAILED"
	// Seller-driven fulfilment states.
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
)

// LineItem is one product position within an order. UnitPrice is captured at
// purchase time and never re-read from the catalog.
type LineItem struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// Order is one store's share of a checkout. A multi-store cart produces one
// Order per store; gateway orders from the same checkout share the payment
// intent id as an id prefix.
type Order struct {
	ID              string
	UserID          string
	StoreID         string
	AddressID       string
	Items           []LineItem
	Subtotal        decimal.Decimal
	DiscountPercent decimal.Decimal
	Total           decimal.Decimal
	CouponCode      string
	PaymentMethod   PaymentMethod
	IsPaid          bool
	Status          Status
	CreatedAt       time.Time
}

// Repository defines persistence operations for orders.
type Repository interface {
	// CreateBatch persists all orders of one checkout atomically: either
	// every order becomes visible or none does.
	CreateBatch(ctx context.Context, orders []*Order) error
	// FindByIntentPrefix returns every gateway order whose id starts with
	// "<intentID>_".
	FindByIntentPrefix(ctx context.Context, intentID string) ([]Order, error)
	// SetPaymentState applies the same paid flag and status to all given
	// orders. The update is a plain set-state write so re-applying the same
	// values is a no-op.
	SetPaymentState(ctx context.Context, ids []string, isPaid bool, status Status) error
	CountByUser(ctx context.Context, userID string) (int, error)
	// ListVisibleByUser returns the user's orders as shown in order history:
	// COD orders unconditionally, gateway orders only once paid.
	ListVisibleByUser(ctx context.Context, userID string) ([]Order, error)
	ListByStore(ctx context.Context, storeID string) ([]Order, error)
	// UpdateStatus performs a seller-driven fulfilment transition, scoped to
	// the seller's own store. Returns ErrNotFound when no such order exists.
	UpdateStatus(ctx context.Context, id, storeID string, status Status) error
}

// PaymentIntent is the gateway-side handle for one checkout's full amount.
type PaymentIntent struct {
	ID          string
	AmountMinor int64
	Currency    string
	ClientKey   string
}

// IntentCreator requests a payment intent from the external gateway, sized
// in the gateway's minor-unit integer representation.
type IntentCreator interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string, notes map[string]string) (*PaymentIntent, error)
}
