package orders

import (
	"context"
	"log/slog"
	"time"

	"github.com/ariefcatur/go-commerce-ledger/internal/apperr"
	"github.com/ariefcatur/go-commerce-ledger/internal/auth"
)

// StatusView is the cached shape served by the status endpoint.
type StatusView struct {
	OrderID       int64         `json:"order_id"`
	UserID        int64         `json:"user_id"`
	SellerIDs     []int64       `json:"seller_ids"`
	Status        Status        `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Get returns an order with its lines. The buyer, an admin, or a seller
// owning one of the lines may read it.
func (s *Service) Get(ctx context.Context, actor auth.Actor, id int64) (OrderDetail, error) {
	const op = "orders.Get"
	o, err := s.Reader.GetOrder(ctx, id)
	if err != nil {
		return OrderDetail{}, err
	}
	lines, err := s.Reader.OrderLines(ctx, id)
	if err != nil {
		return OrderDetail{}, err
	}
	if !canRead(actor, o.UserID, sellersOf(lines)) {
		return OrderDetail{}, apperr.Forbidden(op, "order %d is not visible to this user", id)
	}
	return OrderDetail{Order: o, Lines: lines}, nil
}

// Status serves the order's status from cache, filling it on a miss.
func (s *Service) Status(ctx context.Context, actor auth.Actor, id int64) (StatusView, error) {
	const op = "orders.Status"
	var v StatusView
	if s.Cache != nil {
		if ok, err := s.Cache.Get(ctx, id, &v); err != nil {
			s.Log.WarnContext(ctx, "status cache read failed", slog.Int64("order_id", id), slog.Any("err", err))
		} else if ok {
			if !canRead(actor, v.UserID, v.SellerIDs) {
				return StatusView{}, apperr.Forbidden(op, "order %d is not visible to this user", id)
			}
			return v, nil
		}
	}

	d, err := s.Get(ctx, actor, id)
	if err != nil {
		return StatusView{}, err
	}
	v = StatusView{
		OrderID:       d.Order.ID,
		UserID:        d.Order.UserID,
		SellerIDs:     sellersOf(d.Lines),
		Status:        d.Order.Status,
		PaymentStatus: d.Order.PaymentStatus,
		UpdatedAt:     d.Order.UpdatedAt,
	}
	if s.Cache != nil {
		if err := s.Cache.Set(ctx, id, v); err != nil {
			s.Log.WarnContext(ctx, "status cache write failed", slog.Int64("order_id", id), slog.Any("err", err))
		}
	}
	return v, nil
}

// ListMine returns the actor's own orders, newest first.
func (s *Service) ListMine(ctx context.Context, actor auth.Actor) ([]Order, error) {
	return s.Reader.ListOrders(ctx, ListFilter{UserID: actor.UserID})
}

// ListAll returns every order for an admin and the orders containing the
// seller's products for a seller.
func (s *Service) ListAll(ctx context.Context, actor auth.Actor) ([]Order, error) {
	switch {
	case actor.Privileged():
		return s.Reader.ListOrders(ctx, ListFilter{})
	case actor.IsSeller():
		return s.Reader.ListOrders(ctx, ListFilter{SellerID: actor.UserID})
	default:
		return nil, apperr.Forbidden("orders.ListAll", "only admins and sellers may list all orders")
	}
}

func (s *Service) Products(ctx context.Context) ([]Product, error) {
	return s.Reader.ListProducts(ctx)
}

func canRead(actor auth.Actor, owner int64, sellers []int64) bool {
	if actor.Privileged() || actor.UserID == owner {
		return true
	}
	if actor.IsSeller() {
		for _, id := range sellers {
			if id == actor.UserID {
				return true
			}
		}
	}
	return false
}
