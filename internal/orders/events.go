package orders

import (
	"encoding/json"
	"time"

	"github.com/ariefcatur/go-commerce-ledger/internal/revenue"
	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderStatusChanged = "OrderStatusChanged"

	EventVersion = 1
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type ItemPrice struct {
	ProductID int64           `json:"product_id"`
	SellerID  int64           `json:"seller_id"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
}

type OrderCreatedPayload struct {
	OrderID int64           `json:"order_id"`
	UserID  int64           `json:"user_id"`
	Items   []ItemPrice     `json:"items"`
	Total   decimal.Decimal `json:"total"`
}

type OrderStatusChangedPayload struct {
	OrderID       int64             `json:"order_id"`
	UserID        int64             `json:"user_id"`
	SellerIDs     []int64           `json:"seller_ids"`
	From          Status            `json:"from"`
	To            Status            `json:"to"`
	PaymentFrom   PaymentStatus     `json:"payment_from"`
	PaymentTo     PaymentStatus     `json:"payment_to"`
	StockReleased bool              `json:"stock_released"`
	Posted        []revenue.Posting `json:"posted,omitempty"`
	Reversed      []revenue.Posting `json:"reversed,omitempty"`
	Actor         string            `json:"actor"`
}

func itemsOf(lines []OrderLine) []ItemPrice {
	out := make([]ItemPrice, 0, len(lines))
	for _, l := range lines {
		out = append(out, ItemPrice{ProductID: l.ProductID, SellerID: l.SellerID, Qty: l.Quantity, Price: l.Price})
	}
	return out
}

func sellersOf(lines []OrderLine) []int64 {
	seen := map[int64]bool{}
	var out []int64
	for _, l := range lines {
		if !seen[l.SellerID] {
			seen[l.SellerID] = true
			out = append(out, l.SellerID)
		}
	}
	return out
}
