package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        int64           `json:"id"`
	SellerID  int64           `json:"seller_id"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Order struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"user_id"`
	Address        string          `json:"address"`
	Phone          string          `json:"phone"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Status         Status          `json:"status"`
	PaymentStatus  PaymentStatus   `json:"payment_status"`
	RevenueTracked bool            `json:"revenue_tracked"`
	StockReleased  bool            `json:"stock_released"`
	PaymentRef     string          `json:"payment_ref,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// OrderLine freezes the unit price at order time; revenue and stock
// reversal math use it, never the live product price.
type OrderLine struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"order_id"`
	ProductID   int64           `json:"product_id"`
	SellerID    int64           `json:"seller_id"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	ProductName string          `json:"name,omitempty"`
	Image       string          `json:"image,omitempty"`
}

func (l OrderLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type OrderDetail struct {
	Order Order       `json:"order"`
	Lines []OrderLine `json:"items"`
}

// ListFilter scopes ListOrders. Zero values mean "no filter".
type ListFilter struct {
	UserID   int64
	SellerID int64
}
