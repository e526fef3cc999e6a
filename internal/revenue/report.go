package revenue

import (
	"context"

	"github.com/ariefcatur/go-commerce-ledger/internal/apperr"
	"github.com/ariefcatur/go-commerce-ledger/internal/auth"
	"github.com/shopspring/decimal"
)

const topProductsLimit = 5

type TopProduct struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	TotalSold int64  `json:"total_sold"`
}

// ReportStore reads the ledger and paid orders. A month of 0 means the
// whole year where a method accepts one.
type ReportStore interface {
	MonthlyRevenue(ctx context.Context, k Key) (decimal.Decimal, error)
	YearlyRevenue(ctx context.Context, sellerID int64, year int) (decimal.Decimal, error)
	PaidOrderCount(ctx context.Context, sellerID int64, month, year int) (int64, error)
	TopProducts(ctx context.Context, sellerID int64, month, year, limit int) ([]TopProduct, error)
}

// Reporter serves seller revenue reports. A seller sees only their own
// figures; admins see anyone's.
type Reporter struct {
	Store ReportStore
}

func NewReporter(st ReportStore) *Reporter { return &Reporter{Store: st} }

func (r *Reporter) Monthly(ctx context.Context, actor auth.Actor, sellerID int64, month, year int) (decimal.Decimal, error) {
	const op = "revenue.Monthly"
	if err := authorize(op, actor, sellerID); err != nil {
		return decimal.Zero, err
	}
	if err := checkPeriod(op, month, year, true); err != nil {
		return decimal.Zero, err
	}
	return r.Store.MonthlyRevenue(ctx, Key{SellerID: sellerID, Month: month, Year: year})
}

func (r *Reporter) Yearly(ctx context.Context, actor auth.Actor, sellerID int64, year int) (decimal.Decimal, error) {
	const op = "revenue.Yearly"
	if err := authorize(op, actor, sellerID); err != nil {
		return decimal.Zero, err
	}
	if err := checkPeriod(op, 0, year, false); err != nil {
		return decimal.Zero, err
	}
	return r.Store.YearlyRevenue(ctx, sellerID, year)
}

func (r *Reporter) PaidOrders(ctx context.Context, actor auth.Actor, sellerID int64, month, year int) (int64, error) {
	const op = "revenue.PaidOrders"
	if err := authorize(op, actor, sellerID); err != nil {
		return 0, err
	}
	if err := checkPeriod(op, month, year, true); err != nil {
		return 0, err
	}
	return r.Store.PaidOrderCount(ctx, sellerID, month, year)
}

// TopProducts ranks the seller's products by units sold on paid orders.
// month and year are both zero for all time.
func (r *Reporter) TopProducts(ctx context.Context, actor auth.Actor, sellerID int64, month, year int) ([]TopProduct, error) {
	const op = "revenue.TopProducts"
	if err := authorize(op, actor, sellerID); err != nil {
		return nil, err
	}
	if month != 0 || year != 0 {
		if err := checkPeriod(op, month, year, true); err != nil {
			return nil, err
		}
	}
	return r.Store.TopProducts(ctx, sellerID, month, year, topProductsLimit)
}

func authorize(op string, actor auth.Actor, sellerID int64) error {
	if actor.Privileged() || (actor.IsSeller() && actor.UserID == sellerID) {
		return nil
	}
	return apperr.Forbidden(op, "revenue of seller %d is not visible to this user", sellerID)
}

func checkPeriod(op string, month, year int, needMonth bool) error {
	if year < 1 {
		return apperr.Validation(op, "year is required")
	}
	if needMonth && (month < 1 || month > 12) {
		return apperr.Validation(op, "month must be between 1 and 12")
	}
	return nil
}
