package order

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nexushq/storefront-api/internal/domain/cart"
	"github.com/nexushq/storefront-api/internal/domain/coupon"
	"github.com/nexushq/storefront-api/internal/domain/product"
)

// Sentinel errors for order composition and reconciliation.
var (
	ErrEmptyCart = fmt.Errorf("items required")
	// ErrAmountTooLow is returned when a gateway checkout totals less than
	// the smallest amount the gateway can charge.
	ErrAmountTooLow = fmt.Errorf("amount below gateway minimum")
	// ErrNoMatchingOrders is returned by reconciliation when no gateway
	// order carries the transaction's id prefix. Late or duplicate webhook
	// deliveries after manual cleanup land here; callers decide whether
	// that is fatal.
	ErrNoMatchingOrders = fmt.Errorf("no matching orders for transaction")
	// ErrNotFound indicates a referenced order does not exist.
	ErrNotFound = fmt.Errorf("order not found")
)

// ProductNotFoundError indicates a cart line references an unknown product.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a cart line has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// minPayable is the gateway's smallest chargeable amount: one whole
// currency unit.
var (
	minPayable = decimal.NewFromInt(1)
	hundred    = decimal.NewFromInt(100)
)

// GatewayOrderID derives the deterministic id for one store's order within
// a gateway checkout. Given the intent id, every order of the checkout can
// be recovered by prefix lookup; this is the correlation mechanism the
// reconciler depends on.
func GatewayOrderID(intentID, storeID string) string {
	return intentID + "_" + storeID
}

// CartLine is one product/quantity pair supplied by the caller at checkout.
type CartLine struct {
	ProductID string
	Quantity  int
}

// ComposeRequest holds the input for composing a checkout into orders.
type ComposeRequest struct {
	UserID        string
	AddressID     string
	Lines         []CartLine
	CouponCode    string
	PaymentMethod PaymentMethod
}

// ComposeResult holds the orders created by one checkout and, for gateway
// payments, the intent the client completes payment against.
type ComposeResult struct {
	Orders []*Order
	Intent *PaymentIntent
}

// OrderIDs returns the ids of the created orders in creation order.
func (r *ComposeResult) OrderIDs() []string {
	ids := make([]string, len(r.Orders))
	for i, o := range r.Orders {
		ids[i] = o.ID
	}
	return ids
}

// ReconcileResult reports which orders a reconciliation call touched and
// whether the purchaser carts were cleared.
type ReconcileResult struct {
	OrderIDs    []string
	CartCleared bool
}

// Service implements order composition and payment reconciliation.
type Service struct {
	products product.Repository
	coupons  coupon.Evaluator
	orders   Repository
	gateway  IntentCreator
	carts    cart.Clearer
	currency string
}

// NewService creates an order Service with the required collaborators.
// currency is the ISO code all gateway intents are denominated in.
func NewService(
	products product.Repository,
	coupons coupon.Evaluator,
	orders Repository,
	gateway IntentCreator,
	carts cart.Clearer,
	currency string,
) *Service {
	return &Service{
		products: products,
		coupons:  coupons,
		orders:   orders,
		gateway:  gateway,
		carts:    carts,
		currency: currency,
	}
}

// partition is the per-store slice of a checkout.
type partition struct {
	storeID string
	items   []LineItem
}

// Compose validates the cart, partitions it by owning store, prices each
// partition with the optional coupon, requests a payment intent for gateway
// checkouts, and persists every partition's order in one transaction.
//
// The gateway call precedes persistence: if the intent cannot be created,
// no order rows exist. Cart clearing happens here only for COD; gateway
// checkouts keep the cart until reconciliation confirms payment.
func (s *Service) Compose(ctx context.Context, req ComposeRequest) (*ComposeResult, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	ids := make([]string, len(req.Lines))
	for i, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: line.ProductID}
		}
		ids[i] = line.ProductID
	}

	// Batch fetch all referenced products in a single query.
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	productMap := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	// Group lines by owning store, preserving input order within each
	// partition and first-seen order across partitions.
	var (
		partitions []*partition
		byStore    = make(map[string]*partition)
	)
	for _, line := range req.Lines {
		p, ok := productMap[line.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: line.ProductID}
		}
		part, ok := byStore[p.StoreID]
		if !ok {
			part = &partition{storeID: p.StoreID}
			byStore[p.StoreID] = part
			partitions = append(partitions, part)
		}
		part.items = append(part.items, LineItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: p.Price,
		})
	}

	// Coupon errors are terminal: no partial order creation.
	discountPct := decimal.Zero
	couponCode := ""
	if req.CouponCode != "" {
		c, err := s.coupons.Evaluate(ctx, req.CouponCode, req.UserID)
		if err != nil {
			return nil, errors.Wrap(err, "evaluate coupon")
		}
		discountPct = c.DiscountPercent
		couponCode = c.Code
	}

	orders := make([]*Order, len(partitions))
	fullAmount := decimal.Zero
	for i, part := range partitions {
		subtotal := decimal.Zero
		for _, item := range part.items {
			subtotal = subtotal.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		total := subtotal.Sub(subtotal.Mul(discountPct).Div(hundred)).Round(2)
		fullAmount = fullAmount.Add(total)

		orders[i] = &Order{
			UserID:          req.UserID,
			StoreID:         part.storeID,
			AddressID:       req.AddressID,
			Items:           part.items,
			Subtotal:        subtotal,
			DiscountPercent: discountPct,
			Total:           total,
			CouponCode:      couponCode,
			PaymentMethod:   req.PaymentMethod,
		}
	}

	result := &ComposeResult{Orders: orders}

	switch req.PaymentMethod {
	case PaymentGateway:
		if fullAmount.LessThan(minPayable) {
			return nil, ErrAmountTooLow
		}
		// Partition totals are rounded to 2 decimal places, so the minor
		// unit conversion is exact integer arithmetic, never accumulated
		// through floats.
		amountMinor := fullAmount.Mul(hundred).IntPart()
		intent, err := s.gateway.CreateIntent(ctx, amountMinor, s.currency, map[string]string{
			"userId": req.UserID,
		})
		if err != nil {
			return nil, errors.Wrap(err, "create payment intent")
		}
		result.Intent = intent

		for _, o := range orders {
			o.ID = GatewayOrderID(intent.ID, o.StoreID)
			o.Status = StatusPendingPayment
		}
	default:
		for _, o := range orders {
			o.ID = uuid.New().String()
			o.Status = StatusPlaced
			o.IsPaid = true
		}
	}

	if err := s.orders.CreateBatch(ctx, orders); err != nil {
		return nil, errors.Wrap(err, "create orders")
	}

	// COD checkouts clear the cart synchronously; the orders already exist,
	// so a failed clear is reported but does not fail the checkout.
	if req.PaymentMethod != PaymentGateway {
		if err := s.carts.Clear(ctx, req.UserID); err != nil {
			zctx.From(ctx).Warn("cart clear failed after checkout",
				zap.String("user_id", req.UserID),
				zap.Error(err),
			)
		}
	}

	return result, nil
}

// Reconcile applies an authenticated payment outcome to every order of the
// transaction. Callers must have verified the confirmation's signature
// before calling; Reconcile itself never sees unverified input.
//
// The status write is an idempotent set-state update applied uniformly to
// all matched orders, so webhook redelivery and a racing client-side
// confirmation converge on the same final state. A cart-clear failure is
// reported via CartCleared but never rolls back the paid update: the paid
// order is the financially authoritative fact.
func (s *Service) Reconcile(ctx context.Context, intentID string, success bool) (*ReconcileResult, error) {
	matched, err := s.orders.FindByIntentPrefix(ctx, intentID)
	if err != nil {
		return nil, errors.Wrap(err, "find orders by intent")
	}
	if len(matched) == 0 {
		return nil, ErrNoMatchingOrders
	}

	ids := make([]string, len(matched))
	for i, o := range matched {
		ids[i] = o.ID
	}

	status := StatusPaid
	if !success {
		status = StatusPaymentFailed
	}
	if err := s.orders.SetPaymentState(ctx, ids, success, status); err != nil {
		return nil, errors.Wrap(err, "set payment state")
	}

	result := &ReconcileResult{OrderIDs: ids}
	if !success {
		return result, nil
	}

	// One transaction correlates to one user in practice, but nothing here
	// assumes a single match: clear the cart of every distinct purchaser.
	seen := make(map[string]struct{}, 1)
	g, gctx := errgroup.WithContext(ctx)
	for _, o := range matched {
		if _, ok := seen[o.UserID]; ok {
			continue
		}
		seen[o.UserID] = struct{}{}
		userID := o.UserID
		g.Go(func() error {
			return s.carts.Clear(gctx, userID)
		})
	}
	if err := g.Wait(); err != nil {
		zctx.From(ctx).Warn("cart clear failed after payment",
			zap.String("intent_id", intentID),
			zap.Error(err),
		)
		return result, nil
	}

	result.CartCleared = true
	return result, nil
}
