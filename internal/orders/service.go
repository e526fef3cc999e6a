// Package orders owns the order lifecycle: turning a cart into an order,
// moving it through status transitions, and keeping stock and seller
// revenue consistent with each transition.
package orders

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ariefcatur/go-commerce-ledger/internal/apperr"
	"github.com/ariefcatur/go-commerce-ledger/internal/auth"
	"github.com/ariefcatur/go-commerce-ledger/internal/cart"
	"github.com/ariefcatur/go-commerce-ledger/internal/inventory"
	kafkax "github.com/ariefcatur/go-commerce-ledger/internal/kafka"
	"github.com/ariefcatur/go-commerce-ledger/internal/logger"
	"github.com/ariefcatur/go-commerce-ledger/internal/revenue"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Publisher is satisfied by kafka.Producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Service struct {
	Tx        TxRunner
	Reader    Reader
	Inventory *inventory.Guard
	Revenue   *revenue.Ledger
	Publisher Publisher   // optional
	Cache     StatusCache // optional
	Log       *slog.Logger
	Producer  string
	Now       func() time.Time

	tracer trace.Tracer
}

func NewService(tx TxRunner, reader Reader, inv *inventory.Guard, rev *revenue.Ledger, log *slog.Logger) *Service {
	return &Service{
		Tx:        tx,
		Reader:    reader,
		Inventory: inv,
		Revenue:   rev,
		Log:       logger.Or(log),
		Producer:  "shop-api",
		Now:       time.Now,
		tracer:    otel.Tracer("order-ledger"),
	}
}

type CreateInput struct {
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// Transition describes what one status change did.
type Transition struct {
	Order         Order
	From          Status
	PaymentFrom   PaymentStatus
	StockReleased bool
	Posted        []revenue.Posting
	Reversed      []revenue.Posting
	// Changed is false when the order already was in the requested state.
	Changed bool

	sellerIDs []int64
}

func (t Transition) noop() bool {
	return !t.Changed && !t.StockReleased && len(t.Posted) == 0 && len(t.Reversed) == 0
}

// Create places an order from the actor's cart. Every cart line is priced
// at the live product price and reserved under a row lock; if any line
// fails nothing is written and the cart stays as it was.
func (s *Service) Create(ctx context.Context, actor auth.Actor, in CreateInput) (OrderDetail, error) {
	const op = "orders.Create"
	ctx, span := s.tracer.Start(ctx, op, trace.WithAttributes(attribute.Int64("user.id", actor.UserID)))
	defer span.End()

	in.Address = strings.TrimSpace(in.Address)
	in.Phone = strings.TrimSpace(in.Phone)
	if in.Address == "" || in.Phone == "" {
		return OrderDetail{}, apperr.Validation(op, "address and phone are required")
	}
	if actor.UserID == 0 || actor.IsSystem() {
		return OrderDetail{}, apperr.Forbidden(op, "orders must be placed by a user")
	}

	var detail OrderDetail
	err := s.Tx.InTx(ctx, func(tx Tx) error {
		snap, err := cart.Take(ctx, tx, actor.UserID)
		if err != nil {
			return err
		}
		for _, l := range snap.Lines {
			if err := s.Inventory.Reserve(ctx, tx, l.ProductID, l.Quantity); err != nil {
				return err
			}
		}

		now := s.Now().UTC()
		o := Order{
			UserID:        actor.UserID,
			Address:       in.Address,
			Phone:         in.Phone,
			TotalAmount:   snap.Total,
			Status:        StatusPending,
			PaymentStatus: PaymentUnpaid,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := tx.InsertOrder(ctx, &o); err != nil {
			return err
		}

		lines := make([]OrderLine, 0, len(snap.Lines))
		for _, cl := range snap.Lines {
			ol := OrderLine{
				OrderID:     o.ID,
				ProductID:   cl.ProductID,
				SellerID:    cl.SellerID,
				Quantity:    cl.Quantity,
				Price:       cl.LivePrice,
				ProductName: cl.ProductName,
				Image:       cl.Image,
			}
			if err := tx.InsertOrderLine(ctx, &ol); err != nil {
				return err
			}
			lines = append(lines, ol)
		}

		if err := tx.ClearCart(ctx, actor.UserID); err != nil {
			return err
		}
		detail = OrderDetail{Order: o, Lines: lines}
		return nil
	})
	if err != nil {
		s.fail(ctx, span, op, err)
		return OrderDetail{}, err
	}

	span.SetAttributes(attribute.Int64("order.id", detail.Order.ID))
	s.Log.InfoContext(ctx, "order created",
		slog.Int64("order_id", detail.Order.ID),
		slog.Int64("user_id", actor.UserID),
		slog.Int("lines", len(detail.Lines)),
		slog.String("total", detail.Order.TotalAmount.String()))

	s.publish(ctx, detail.Order.ID, EventOrderCreated, OrderCreatedPayload{
		OrderID: detail.Order.ID,
		UserID:  actor.UserID,
		Items:   itemsOf(detail.Lines),
		Total:   detail.Order.TotalAmount,
	})
	return detail, nil
}

// UpdateStatus moves an order to (status, payStatus). An empty payStatus
// keeps the current one. Admins and sellers owning a line may call it.
//
// (cancelled, failed) returns reserved stock once and reverses posted
// revenue once; (completed, paid) posts revenue once. Repeating a
// transition is a successful no-op.
func (s *Service) UpdateStatus(ctx context.Context, actor auth.Actor, id int64, status Status, payStatus PaymentStatus) (Transition, error) {
	const op = "orders.UpdateStatus"
	ctx, span := s.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.status", string(status)),
		attribute.String("order.payment_status", string(payStatus))))
	defer span.End()

	if !status.Valid() {
		return Transition{}, apperr.Validation(op, "unknown status %q", status)
	}
	if payStatus != "" && !payStatus.Valid() {
		return Transition{}, apperr.Validation(op, "unknown payment status %q", payStatus)
	}

	var tr Transition
	err := s.Tx.InTx(ctx, func(tx Tx) error {
		o, err := tx.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		lines, err := tx.OrderLines(ctx, id)
		if err != nil {
			return err
		}
		if err := authorizeUpdate(op, actor, lines); err != nil {
			return err
		}
		pay := payStatus
		if pay == "" {
			pay = o.PaymentStatus
		}
		tr, err = s.transition(ctx, tx, o, lines, status, pay)
		return err
	})
	if err != nil {
		s.fail(ctx, span, op, err)
		return Transition{}, err
	}

	s.after(ctx, actor, tr)
	return tr, nil
}

// PaymentResult is a verified gateway outcome for one order.
type PaymentResult struct {
	OrderID   int64
	Succeeded bool
	// Amount is checked against the order total when the gateway reports one.
	Amount  decimal.NullDecimal
	Ref     string
	Gateway string
}

// ApplyPayment drives the order to (completed, paid) or (cancelled, failed)
// for a verified gateway result. Redelivery of a result already applied is
// a no-op. A success for a cancelled order and a failure for a paid order
// are acknowledged without change.
func (s *Service) ApplyPayment(ctx context.Context, res PaymentResult) (Transition, error) {
	const op = "orders.ApplyPayment"
	ctx, span := s.tracer.Start(ctx, op, trace.WithAttributes(
		attribute.Int64("order.id", res.OrderID),
		attribute.Bool("payment.succeeded", res.Succeeded),
		attribute.String("payment.gateway", res.Gateway)))
	defer span.End()

	var tr Transition
	err := s.Tx.InTx(ctx, func(tx Tx) error {
		o, err := tx.LockOrder(ctx, res.OrderID)
		if err != nil {
			return err
		}
		tr = Transition{Order: o, From: o.Status, PaymentFrom: o.PaymentStatus}

		if res.Amount.Valid && !res.Amount.Decimal.Equal(o.TotalAmount) {
			return &apperr.Error{
				Kind: apperr.KindIntegrity,
				Op:   op,
				Msg:  ErrAmountMismatch.Msg,
				Err:  amountError{want: o.TotalAmount, got: res.Amount.Decimal},
			}
		}

		if res.Succeeded {
			if o.Status == StatusCancelled {
				s.Log.ErrorContext(ctx, "payment succeeded for a cancelled order",
					slog.Int64("order_id", o.ID),
					slog.String("gateway", res.Gateway),
					slog.String("ref", res.Ref))
				return nil
			}
			if res.Ref != "" && o.PaymentRef == "" {
				if err := tx.SetPaymentRef(ctx, o.ID, res.Ref); err != nil {
					return err
				}
				o.PaymentRef = res.Ref
			}
			lines, err := tx.OrderLines(ctx, o.ID)
			if err != nil {
				return err
			}
			tr, err = s.transition(ctx, tx, o, lines, StatusCompleted, PaymentPaid)
			return err
		}

		if o.PaymentStatus == PaymentPaid {
			s.Log.WarnContext(ctx, "stale payment failure ignored",
				slog.Int64("order_id", o.ID),
				slog.String("gateway", res.Gateway))
			return nil
		}
		lines, err := tx.OrderLines(ctx, o.ID)
		if err != nil {
			return err
		}
		tr, err = s.transition(ctx, tx, o, lines, StatusCancelled, PaymentFailed)
		return err
	})
	if err != nil {
		s.fail(ctx, span, op, err)
		return Transition{}, err
	}

	s.after(ctx, auth.System, tr)
	return tr, nil
}

// transition applies the side effects of moving o to (to, pay) on tx.
// o must be locked by the caller.
func (s *Service) transition(ctx context.Context, tx Tx, o Order, lines []OrderLine, to Status, pay PaymentStatus) (Transition, error) {
	const op = "orders.transition"
	tr := Transition{From: o.Status, PaymentFrom: o.PaymentStatus}

	if !CanTransition(o.Status, to) {
		return tr, &apperr.Error{
			Kind: apperr.KindConflict,
			Op:   op,
			Msg:  ErrInvalidTransition.Msg,
			Err:  transitionError{from: o.Status, to: to},
		}
	}

	switch {
	case releasesStock(to, pay):
		flipped, err := tx.MarkStockReleased(ctx, o.ID)
		if err != nil {
			return tr, err
		}
		if flipped {
			for _, l := range lines {
				if _, err := s.Inventory.Release(ctx, tx, l.ProductID, l.Quantity); err != nil {
					return tr, err
				}
			}
			o.StockReleased = true
			tr.StockReleased = true
		}
		if o.RevenueTracked {
			flipped, err := tx.MarkRevenueTracked(ctx, o.ID, false)
			if err != nil {
				return tr, err
			}
			if flipped {
				tr.Reversed, err = s.Revenue.Reverse(ctx, tx, revenueLines(lines), o.CreatedAt)
				if err != nil {
					return tr, err
				}
				o.RevenueTracked = false
			}
		}
	case postsRevenue(to, pay):
		flipped, err := tx.MarkRevenueTracked(ctx, o.ID, true)
		if err != nil {
			return tr, err
		}
		if flipped {
			tr.Posted, err = s.Revenue.Post(ctx, tx, revenueLines(lines), o.CreatedAt)
			if err != nil {
				return tr, err
			}
			o.RevenueTracked = true
		}
	}

	if to != o.Status || pay != o.PaymentStatus {
		if err := tx.SetOrderStatus(ctx, o.ID, to, pay); err != nil {
			return tr, err
		}
		o.Status, o.PaymentStatus = to, pay
		o.UpdatedAt = s.Now().UTC()
		tr.Changed = true
	}

	tr.Order = o
	tr.sellerIDs = sellersOf(lines)
	return tr, nil
}

func (s *Service) after(ctx context.Context, actor auth.Actor, tr Transition) {
	if tr.noop() {
		s.Log.InfoContext(ctx, "order transition is a no-op",
			slog.Int64("order_id", tr.Order.ID),
			slog.String("status", string(tr.Order.Status)),
			slog.String("payment_status", string(tr.Order.PaymentStatus)))
		return
	}

	s.Log.InfoContext(ctx, "order status updated",
		slog.Int64("order_id", tr.Order.ID),
		slog.String("from", string(tr.From)),
		slog.String("to", string(tr.Order.Status)),
		slog.String("payment_status", string(tr.Order.PaymentStatus)),
		slog.Bool("stock_released", tr.StockReleased),
		slog.Int("postings", len(tr.Posted)),
		slog.Int("reversals", len(tr.Reversed)))

	if s.Cache != nil {
		if err := s.Cache.Invalidate(ctx, tr.Order.ID); err != nil {
			s.Log.WarnContext(ctx, "status cache invalidate failed", slog.Int64("order_id", tr.Order.ID), slog.Any("err", err))
		}
	}

	s.publish(ctx, tr.Order.ID, EventOrderStatusChanged, OrderStatusChangedPayload{
		OrderID:       tr.Order.ID,
		UserID:        tr.Order.UserID,
		SellerIDs:     tr.sellerIDs,
		From:          tr.From,
		To:            tr.Order.Status,
		PaymentFrom:   tr.PaymentFrom,
		PaymentTo:     tr.Order.PaymentStatus,
		StockReleased: tr.StockReleased,
		Posted:        tr.Posted,
		Reversed:      tr.Reversed,
		Actor:         string(actor.Role),
	})
}

func (s *Service) publish(ctx context.Context, orderID int64, eventType string, payload any) {
	if s.Publisher == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  EventVersion,
		OccurredAt:    s.Now().UTC(),
		Producer:      s.Producer,
		CorrelationID: strconv.FormatInt(orderID, 10),
		Payload:       kafkax.MustMarshal(payload),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		ev.TraceID = sc.TraceID().String()
	}
	s.Publisher.Publish(PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: HeaderEventType, Value: []byte(eventType)},
		kafkago.Header{Key: HeaderEventVersion, Value: []byte(strconv.Itoa(EventVersion))},
	)
}

func (s *Service) fail(ctx context.Context, span trace.Span, op string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if apperr.KindOf(err) == apperr.KindSystem {
		s.Log.ErrorContext(ctx, "order operation failed", slog.String("op", op), slog.Any("err", err))
		return
	}
	s.Log.InfoContext(ctx, "order operation rejected", slog.String("op", op), slog.String("kind", apperr.KindOf(err).String()), slog.Any("err", err))
}

func authorizeUpdate(op string, actor auth.Actor, lines []OrderLine) error {
	if actor.Privileged() {
		return nil
	}
	if actor.IsSeller() {
		for _, l := range lines {
			if l.SellerID == actor.UserID {
				return nil
			}
		}
		return apperr.Forbidden(op, "seller %d has no line in this order", actor.UserID)
	}
	return apperr.Forbidden(op, "only admins and sellers may update order status")
}

func revenueLines(lines []OrderLine) []revenue.Line {
	out := make([]revenue.Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, revenue.Line{SellerID: l.SellerID, Quantity: l.Quantity, Price: l.Price})
	}
	return out
}

type transitionError struct{ from, to Status }

func (e transitionError) Error() string { return string(e.from) + " -> " + string(e.to) }

type amountError struct{ want, got decimal.Decimal }

func (e amountError) Error() string { return "want " + e.want.String() + ", got " + e.got.String() }
