package orders

import (
	"context"

	"github.com/ariefcatur/go-commerce-ledger/internal/apperr"
	"github.com/ariefcatur/go-commerce-ledger/internal/cart"
	"github.com/ariefcatur/go-commerce-ledger/internal/inventory"
	"github.com/ariefcatur/go-commerce-ledger/internal/revenue"
)

var (
	ErrOrderNotFound     = apperr.New(apperr.KindNotFound, "order not found")
	ErrInvalidTransition = apperr.New(apperr.KindConflict, "status transition not allowed")
	ErrAmountMismatch    = apperr.New(apperr.KindIntegrity, "paid amount does not match order total")
)

// Store holds order rows. LockOrder keeps the order row locked until the
// transaction ends and returns ErrOrderNotFound when the row is missing.
type Store interface {
	InsertOrder(ctx context.Context, o *Order) error
	InsertOrderLine(ctx context.Context, l *OrderLine) error
	LockOrder(ctx context.Context, id int64) (Order, error)
	OrderLines(ctx context.Context, orderID int64) ([]OrderLine, error)
	SetOrderStatus(ctx context.Context, id int64, s Status, p PaymentStatus) error
	SetPaymentRef(ctx context.Context, id int64, ref string) error

	// MarkRevenueTracked flips revenue_tracked to tracked and reports whether
	// this call changed it. Only the caller that sees true may post or reverse.
	MarkRevenueTracked(ctx context.Context, id int64, tracked bool) (bool, error)
	// MarkStockReleased flips stock_released false->true and reports whether
	// this call changed it.
	MarkStockReleased(ctx context.Context, id int64) (bool, error)
}

// Tx is every store the order lifecycle touches, bound to one transaction.
type Tx interface {
	Store
	inventory.Store
	cart.Store
	revenue.Store
}

// TxRunner commits when fn returns nil and rolls back otherwise.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Reader serves non-locking reads.
type Reader interface {
	GetOrder(ctx context.Context, id int64) (Order, error)
	OrderLines(ctx context.Context, orderID int64) ([]OrderLine, error)
	ListOrders(ctx context.Context, f ListFilter) ([]Order, error)
	ListProducts(ctx context.Context) ([]Product, error)
}

// StatusCache is a best-effort cache of order status views.
type StatusCache interface {
	Get(ctx context.Context, orderID int64, out any) (bool, error)
	Set(ctx context.Context, orderID int64, v any) error
	Invalidate(ctx context.Context, orderID int64) error
}
