// Package cart holds a buyer's pending lines and turns them into a priced
// snapshot when an order is placed.
package cart

import (
	"context"
	"time"

	"github.com/ariefcatur/go-commerce-ledger/internal/apperr"
	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart    = apperr.New(apperr.KindValidation, "cart is empty")
	ErrLineNotFound = apperr.New(apperr.KindNotFound, "cart line not found")
)

// Line is a cart row joined with the current product state.
// Price, DiscountPercent and ShippingFee are copied when the line is added;
// LivePrice and Stock are read from the product row.
type Line struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	ProductID       int64           `json:"product_id"`
	SellerID        int64           `json:"seller_id"`
	Quantity        int             `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	ShippingFee     decimal.Decimal `json:"shipping_fee"`
	Image           string          `json:"image"`
	AddedAt         time.Time       `json:"added_at"`

	ProductName string          `json:"name"`
	LivePrice   decimal.Decimal `json:"live_price"`
	Stock       int             `json:"stock"`
}

// Subtotal prices the line at the live product price.
func (l Line) Subtotal() decimal.Decimal {
	return l.LivePrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Snapshot struct {
	UserID int64
	Lines  []Line
	Total  decimal.Decimal
}

// Store is the transactional view of the cart used at checkout.
// LockCart returns the user's lines ordered by product id, holding row locks
// on both the cart rows and the joined product rows until the transaction
// ends.
type Store interface {
	LockCart(ctx context.Context, userID int64) ([]Line, error)
	ClearCart(ctx context.Context, userID int64) error
}

// Take reads and prices the user's cart. It fails with ErrEmptyCart when
// there is nothing to order.
func Take(ctx context.Context, st Store, userID int64) (Snapshot, error) {
	lines, err := st.LockCart(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	if len(lines) == 0 {
		return Snapshot{}, apperr.Wrap(ErrEmptyCart, "cart.Take", nil)
	}

	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return Snapshot{UserID: userID, Lines: lines, Total: total}, nil
}
