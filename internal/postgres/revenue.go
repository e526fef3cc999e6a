package postgres

import (
	"context"

	"github.com/ariefcatur/go-commerce-ledger/internal/revenue"
	"github.com/shopspring/decimal"
)

// revenue.Store

func (s *Store) IncrementRevenue(ctx context.Context, k revenue.Key, amount decimal.Decimal) error {
	_, err := s.q.Exec(ctx, `
		INSERT INTO revenue_tracking (seller_id, month, year, total_revenue)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (seller_id, month, year)
		DO UPDATE SET total_revenue = revenue_tracking.total_revenue + EXCLUDED.total_revenue,
		              updated_at = now()`,
		k.SellerID, k.Month, k.Year, amount)
	return err
}

func (s *Store) DecrementRevenue(ctx context.Context, k revenue.Key, amount decimal.Decimal) (bool, error) {
	ct, err := s.q.Exec(ctx, `
		UPDATE revenue_tracking SET total_revenue = total_revenue - $4, updated_at = now()
		WHERE seller_id=$1 AND month=$2 AND year=$3`,
		k.SellerID, k.Month, k.Year, amount)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

// revenue.ReportStore

func (s *Store) MonthlyRevenue(ctx context.Context, k revenue.Key) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_revenue), 0) FROM revenue_tracking
		WHERE seller_id=$1 AND month=$2 AND year=$3`,
		k.SellerID, k.Month, k.Year).Scan(&total)
	return total, err
}

func (s *Store) YearlyRevenue(ctx context.Context, sellerID int64, year int) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := s.q.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_revenue), 0) FROM revenue_tracking
		WHERE seller_id=$1 AND year=$2`,
		sellerID, year).Scan(&total)
	return total, err
}

// Periods are computed in the revenue zone, the same way the ledger keys postings.
func (s *Store) PaidOrderCount(ctx context.Context, sellerID int64, month, year int) (int64, error) {
	var n int64
	err := s.q.QueryRow(ctx, `
		SELECT COUNT(DISTINCT o.id)
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		WHERE oi.seller_id = $1
		  AND o.payment_status = 'paid'
		  AND EXTRACT(MONTH FROM o.created_at AT TIME ZONE $4) = $2
		  AND EXTRACT(YEAR FROM o.created_at AT TIME ZONE $4) = $3`,
		sellerID, month, year, s.zone()).Scan(&n)
	return n, err
}

// TopProducts ranks a seller's products by paid quantity. month 0 means all time.
func (s *Store) TopProducts(ctx context.Context, sellerID int64, month, year, limit int) ([]revenue.TopProduct, error) {
	rows, err := s.q.Query(ctx, `
		SELECT oi.product_id, COALESCE(p.name, ''), SUM(oi.quantity)::BIGINT AS total_sold
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.seller_id = $1
		  AND o.payment_status = 'paid'
		  AND ($2::INT = 0 OR (EXTRACT(MONTH FROM o.created_at AT TIME ZONE $5) = $2
		                   AND EXTRACT(YEAR FROM o.created_at AT TIME ZONE $5) = $3))
		GROUP BY oi.product_id, p.name
		ORDER BY total_sold DESC, oi.product_id
		LIMIT $4`,
		sellerID, month, year, limit, s.zone())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []revenue.TopProduct
	for rows.Next() {
		var t revenue.TopProduct
		if err := rows.Scan(&t.ProductID, &t.Name, &t.TotalSold); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) zone() string {
	if s.tz == "" {
		return "UTC"
	}
	return s.tz
}
