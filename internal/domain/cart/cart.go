package cart

import "context"

// Line is a single product/quantity pair in a user's saved cart document.
type Line struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Repository stores one cart document per user.
type Repository interface {
	Get(ctx context.Context, userID string) ([]Line, error)
	Save(ctx context.Context, userID string, lines []Line) error
	Clear(ctx context.Context, userID string) error
}

// Clearer is the narrow surface the order flow needs: emptying a user's
// cart after a completed checkout.
type Clearer interface {
	Clear(ctx context.Context, userID string) error
}
