package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	kafkax "github.com/ariefcatur/go-commerce-ledger/internal/kafka"
	"github.com/ariefcatur/go-commerce-ledger/internal/orders"
	"github.com/segmentio/kafka-go"
)

// Handle turns one order lifecycle event into notifications. Unknown event
// types and malformed envelopes are logged and acknowledged.
func (s *Service) Handle(ctx context.Context, m kafka.Message) error {
	var env orders.Envelope
	if err := kafkax.UnmarshalEnvelope(m.Value, &env); err != nil {
		s.Log.ErrorContext(ctx, "bad envelope", slog.Int64("offset", m.Offset), slog.Any("err", err))
		return nil
	}
	if env.EventType == "" {
		env.EventType = kafkax.Header(m, orders.HeaderEventType)
	}

	var notes []Notification
	switch env.EventType {
	case orders.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			s.Log.ErrorContext(ctx, "bad payload", slog.String("event_id", env.EventID), slog.Any("err", err))
			return nil
		}
		notes = OrderCreated(p)
	case orders.EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			s.Log.ErrorContext(ctx, "bad payload", slog.String("event_id", env.EventID), slog.Any("err", err))
			return nil
		}
		notes = StatusChanged(p)
	default:
		s.Log.DebugContext(ctx, "event ignored", slog.String("type", env.EventType))
		return nil
	}

	for i := range notes {
		n := &notes[i]
		n.EventID = env.EventID
		n.Status = StatusUnread
		n.CreatedAt = env.OccurredAt
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now().UTC()
		}
		inserted, err := s.Store.InsertNotification(ctx, n)
		if err != nil {
			return fmt.Errorf("insert notification for user %d: %w", n.UserID, err)
		}
		if !inserted {
			s.Log.DebugContext(ctx, "notification already stored", slog.String("event_id", env.EventID), slog.Int64("user_id", n.UserID))
		}
	}
	s.Log.InfoContext(ctx, "event handled",
		slog.String("event_id", env.EventID),
		slog.String("type", env.EventType),
		slog.Int("notifications", len(notes)))
	return nil
}

// OrderCreated notifies the buyer and every seller on the order.
func OrderCreated(p orders.OrderCreatedPayload) []Notification {
	out := []Notification{{
		UserID:  p.UserID,
		Type:    TypeOrder,
		Title:   "Order placed",
		Message: fmt.Sprintf("Your order #%d was placed. Total: %s", p.OrderID, p.Total.StringFixed(2)),
	}}
	seen := map[int64]bool{}
	for _, it := range p.Items {
		if seen[it.SellerID] {
			continue
		}
		seen[it.SellerID] = true
		out = append(out, Notification{
			UserID:  it.SellerID,
			Type:    TypeOrder,
			Title:   "New order",
			Message: fmt.Sprintf("Order #%d contains your products", p.OrderID),
		})
	}
	return out
}

// StatusChanged notifies the buyer of the new status, and sellers of the
// revenue that was posted or reversed for them.
func StatusChanged(p orders.OrderStatusChangedPayload) []Notification {
	var out []Notification
	if p.From != p.To || p.PaymentFrom != p.PaymentTo {
		typ := TypeOrder
		if p.PaymentFrom != p.PaymentTo {
			typ = TypePayment
		}
		out = append(out, Notification{
			UserID:  p.UserID,
			Type:    typ,
			Title:   "Order updated",
			Message: fmt.Sprintf("Order #%d is now %s (payment %s)", p.OrderID, p.To, p.PaymentTo),
		})
	}
	for _, r := range p.Posted {
		out = append(out, Notification{
			UserID:  r.Key.SellerID,
			Type:    TypeRevenue,
			Title:   "Revenue received",
			Message: fmt.Sprintf("Order #%d added %s to your revenue for %02d/%d", p.OrderID, r.Amount.StringFixed(2), r.Key.Month, r.Key.Year),
		})
	}
	for _, r := range p.Reversed {
		out = append(out, Notification{
			UserID:  r.Key.SellerID,
			Type:    TypeRevenue,
			Title:   "Revenue reversed",
			Message: fmt.Sprintf("Order #%d was cancelled; %s was deducted from %02d/%d", p.OrderID, r.Amount.StringFixed(2), r.Key.Month, r.Key.Year),
		})
	}
	return out
}
