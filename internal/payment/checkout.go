package payment

import (
	"context"
	"time"

	"github.com/ariefcatur/go-commerce-ledger/internal/apperr"
	"github.com/ariefcatur/go-commerce-ledger/internal/auth"
	"github.com/ariefcatur/go-commerce-ledger/internal/orders"
)

type OrderGetter interface {
	Get(ctx context.Context, actor auth.Actor, id int64) (orders.OrderDetail, error)
}

// Checkout starts a VNPay payment for an order the buyer owns. The amount
// always comes from the order, never from the client.
type Checkout struct {
	VNPay  *VNPay
	Orders OrderGetter
	Now    func() time.Time
}

func (c *Checkout) VNPayURL(ctx context.Context, actor auth.Actor, orderID int64, bankCode, ip string) (string, error) {
	const op = "payment.VNPayURL"
	d, err := c.Orders.Get(ctx, actor, orderID)
	if err != nil {
		return "", err
	}
	o := d.Order
	if o.UserID != actor.UserID {
		return "", apperr.Forbidden(op, "only the buyer can pay order %d", orderID)
	}
	if o.Status != orders.StatusPending || o.PaymentStatus != orders.PaymentUnpaid {
		return "", apperr.Conflict(op, "order %d is not awaiting payment", orderID)
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return c.VNPay.PaymentURL(PaymentRequest{
		OrderID:  o.ID,
		Amount:   o.TotalAmount,
		BankCode: bankCode,
		IPAddr:   ip,
		Now:      now(),
	})
}
