// Package revenue accumulates paid order value per seller per month.
package revenue

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/ariefcatur/go-commerce-ledger/internal/logger"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Key identifies one revenue_tracking row.
type Key struct {
	SellerID int64 `json:"seller_id"`
	Month    int   `json:"month"`
	Year     int   `json:"year"`
}

// Line is the slice of an order line the ledger needs. Price is the
// frozen unit price recorded on the order.
type Line struct {
	SellerID int64
	Quantity int
	Price    decimal.Decimal
}

// Posting is one per-seller delta applied by Post or Reverse.
type Posting struct {
	Key    Key             `json:"key"`
	Amount decimal.Decimal `json:"amount"`
}

// Store runs on the caller's transaction.
// DecrementRevenue reports found=false when no row exists for the key.
type Store interface {
	IncrementRevenue(ctx context.Context, k Key, amount decimal.Decimal) error
	DecrementRevenue(ctx context.Context, k Key, amount decimal.Decimal) (found bool, err error)
}

type Ledger struct {
	// Loc decides which calendar month an order belongs to.
	Loc *time.Location
	Log *slog.Logger

	posted   metric.Int64Counter
	reversed metric.Int64Counter
}

func NewLedger(loc *time.Location, log *slog.Logger) *Ledger {
	if loc == nil {
		loc = time.UTC
	}
	l := &Ledger{Loc: loc, Log: logger.Or(log)}

	meter := otel.Meter("revenue-ledger")
	// Counter creation only fails on an invalid name; the noop fallback keeps Post usable.
	l.posted, _ = meter.Int64Counter("revenue.postings",
		metric.WithDescription("Per-seller revenue increments applied"))
	l.reversed, _ = meter.Int64Counter("revenue.reversals",
		metric.WithDescription("Per-seller revenue decrements applied"))
	return l
}

// Period returns the revenue month/year an order placed at t belongs to.
func (l *Ledger) Period(t time.Time) (month, year int) {
	lt := t.In(l.Loc)
	return int(lt.Month()), lt.Year()
}

// Post adds each seller's share of the order to the period the order was
// placed in. The caller guarantees it runs once per order.
func (l *Ledger) Post(ctx context.Context, st Store, lines []Line, placedAt time.Time) ([]Posting, error) {
	ps := l.group(lines, placedAt)
	for _, p := range ps {
		if err := st.IncrementRevenue(ctx, p.Key, p.Amount); err != nil {
			return nil, err
		}
		if l.posted != nil {
			l.posted.Add(ctx, 1, metric.WithAttributes(attribute.Int64("seller_id", p.Key.SellerID)))
		}
	}
	return ps, nil
}

// Reverse subtracts exactly what Post added for the same lines and placedAt.
// A missing row is logged and skipped.
func (l *Ledger) Reverse(ctx context.Context, st Store, lines []Line, placedAt time.Time) ([]Posting, error) {
	ps := l.group(lines, placedAt)
	for _, p := range ps {
		found, err := st.DecrementRevenue(ctx, p.Key, p.Amount)
		if err != nil {
			return nil, err
		}
		if !found {
			l.Log.WarnContext(ctx, "revenue reversal without a posted record",
				slog.Int64("seller_id", p.Key.SellerID),
				slog.Int("month", p.Key.Month),
				slog.Int("year", p.Key.Year),
				slog.String("amount", p.Amount.String()))
			continue
		}
		if l.reversed != nil {
			l.reversed.Add(ctx, 1, metric.WithAttributes(attribute.Int64("seller_id", p.Key.SellerID)))
		}
	}
	return ps, nil
}

// group sums quantity*price per seller, ordered by seller id so concurrent
// postings lock revenue rows in the same order.
func (l *Ledger) group(lines []Line, placedAt time.Time) []Posting {
	month, year := l.Period(placedAt)
	sums := map[int64]decimal.Decimal{}
	for _, ln := range lines {
		amt := ln.Price.Mul(decimal.NewFromInt(int64(ln.Quantity)))
		sums[ln.SellerID] = sums[ln.SellerID].Add(amt)
	}

	out := make([]Posting, 0, len(sums))
	for seller, amt := range sums {
		out = append(out, Posting{Key: Key{SellerID: seller, Month: month, Year: year}, Amount: amt})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.SellerID < out[j].Key.SellerID })
	return out
}
