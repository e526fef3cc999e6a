// Package inventory keeps product stock non-negative while orders reserve
// and release units. Every call runs on the caller's transaction.
package inventory

import (
	"context"
	"log/slog"

	"github.com/ariefcatur/go-commerce-ledger/internal/apperr"
	"github.com/ariefcatur/go-commerce-ledger/internal/logger"
)

const DefaultStockCap = 100

var (
	ErrProductNotFound   = apperr.New(apperr.KindNotFound, "product not found")
	ErrInsufficientStock = apperr.New(apperr.KindConflict, "insufficient stock")
	ErrInvalidQuantity   = apperr.New(apperr.KindValidation, "quantity must be positive")
)

// Store is the slice of the transactional store the guard needs.
// LockStock must hold a row lock on the product until the transaction ends
// and return ErrProductNotFound when the row is missing.
type Store interface {
	LockStock(ctx context.Context, productID int64) (int, error)
	SetStock(ctx context.Context, productID int64, stock int) error
}

type Guard struct {
	// Cap bounds stock after a release.
	Cap int
	Log *slog.Logger
}

func NewGuard(cap int, log *slog.Logger) *Guard {
	if cap <= 0 {
		cap = DefaultStockCap
	}
	return &Guard{Cap: cap, Log: logger.Or(log)}
}

// Reserve takes qty units of productID. It fails without touching stock
// when the product is missing or has fewer than qty units.
func (g *Guard) Reserve(ctx context.Context, st Store, productID int64, qty int) error {
	const op = "inventory.Reserve"
	if qty <= 0 {
		return apperr.Wrap(ErrInvalidQuantity, op, nil)
	}
	stock, err := st.LockStock(ctx, productID)
	if err != nil {
		return err
	}
	if stock == 0 || qty > stock {
		return &apperr.Error{
			Kind: apperr.KindConflict,
			Op:   op,
			Msg:  ErrInsufficientStock.Msg,
			Err:  &ShortageError{ProductID: productID, Required: qty, Available: stock},
		}
	}
	return st.SetStock(ctx, productID, stock-qty)
}

// Release returns qty units to productID and reports the resulting stock.
// The result is clamped to Cap, so stock above Cap is brought down to it.
// The caller guarantees one call per reserved line.
func (g *Guard) Release(ctx context.Context, st Store, productID int64, qty int) (int, error) {
	if qty <= 0 {
		return 0, apperr.Wrap(ErrInvalidQuantity, "inventory.Release", nil)
	}
	stock, err := st.LockStock(ctx, productID)
	if err != nil {
		return 0, err
	}
	next := g.clamp(stock, qty)
	if next == stock {
		return stock, nil
	}
	if next < stock+qty {
		g.Log.WarnContext(ctx, "stock release clamped",
			slog.Int64("product_id", productID),
			slog.Int("stock", stock),
			slog.Int("qty", qty),
			slog.Int("cap", g.Cap))
	}
	if err := st.SetStock(ctx, productID, next); err != nil {
		return 0, err
	}
	return next, nil
}

func (g *Guard) clamp(stock, qty int) int {
	return min(stock+qty, g.Cap)
}
