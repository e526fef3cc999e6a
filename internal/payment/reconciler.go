package payment

import (
	"context"
	"log/slog"

	"github.com/ariefcatur/go-commerce-ledger/internal/apperr"
	"github.com/ariefcatur/go-commerce-ledger/internal/logger"
	"github.com/ariefcatur/go-commerce-ledger/internal/orders"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Applier is the order ledger entry point reconciliation drives.
type Applier interface {
	ApplyPayment(ctx context.Context, res orders.PaymentResult) (orders.Transition, error)
}

// Dedup remembers deliveries that were already applied. It is only a fast
// path; the order's current state decides whether a delivery changes it.
type Dedup interface {
	Seen(ctx context.Context, gateway, eventID string) (bool, error)
	Mark(ctx context.Context, gateway, eventID string) error
}

// Outcome of Handle, for callers that answer the gateway.
type Handled struct {
	Result    Result
	Duplicate bool
	Changed   bool
}

type Reconciler struct {
	verifiers map[string]Verifier
	Orders    Applier
	Dedup     Dedup // optional
	Log       *slog.Logger

	tracer trace.Tracer
}

func NewReconciler(o Applier, log *slog.Logger, vs ...Verifier) *Reconciler {
	r := &Reconciler{
		verifiers: make(map[string]Verifier, len(vs)),
		Orders:    o,
		Log:       logger.Or(log),
		tracer:    otel.Tracer("payment-reconciliation"),
	}
	for _, v := range vs {
		r.verifiers[v.Name()] = v
	}
	return r
}

// Handle verifies a callback from gateway and applies it. A bad signature
// returns ErrInvalidSignature and changes nothing. Duplicate deliveries
// succeed without effect.
func (r *Reconciler) Handle(ctx context.Context, gateway string, n Notification) (Handled, error) {
	const op = "payment.Handle"
	ctx, span := r.tracer.Start(ctx, op, trace.WithAttributes(attribute.String("payment.gateway", gateway)))
	defer span.End()

	v, ok := r.verifiers[gateway]
	if !ok {
		return Handled{}, apperr.Wrap(ErrUnknownGateway, op, nil)
	}

	res, err := v.Verify(n)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		if apperr.Is(err, apperr.KindIntegrity) {
			r.Log.WarnContext(ctx, "payment signature rejected",
				slog.String("gateway", gateway),
				slog.Any("params", n.Params),
				slog.String("signature", n.Signature),
				slog.String("body", string(n.Body)),
				slog.Any("err", err))
		} else {
			r.Log.WarnContext(ctx, "payment notification rejected", slog.String("gateway", gateway), slog.Any("err", err))
		}
		return Handled{}, err
	}
	h := Handled{Result: res}
	span.SetAttributes(
		attribute.Int64("order.id", res.OrderID),
		attribute.String("payment.outcome", res.Outcome.String()),
		attribute.String("payment.event_id", res.EventID))

	if res.Outcome == OutcomeIgnored {
		r.Log.DebugContext(ctx, "payment event ignored", slog.String("gateway", gateway), slog.String("event_id", res.EventID))
		return h, nil
	}

	if r.Dedup != nil && res.EventID != "" {
		seen, err := r.Dedup.Seen(ctx, gateway, res.EventID)
		if err != nil {
			r.Log.WarnContext(ctx, "payment dedup lookup failed", slog.String("event_id", res.EventID), slog.Any("err", err))
		} else if seen {
			h.Duplicate = true
			r.Log.InfoContext(ctx, "duplicate payment delivery", slog.String("gateway", gateway), slog.String("event_id", res.EventID))
			return h, nil
		}
	}

	tr, err := r.Orders.ApplyPayment(ctx, orders.PaymentResult{
		OrderID:   res.OrderID,
		Succeeded: res.Outcome == OutcomeSucceeded,
		Amount:    res.Amount,
		Ref:       res.Ref,
		Gateway:   gateway,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return h, err
	}
	h.Changed = tr.Changed

	if r.Dedup != nil && res.EventID != "" {
		if err := r.Dedup.Mark(ctx, gateway, res.EventID); err != nil {
			r.Log.WarnContext(ctx, "payment dedup mark failed", slog.String("event_id", res.EventID), slog.Any("err", err))
		}
	}
	r.Log.InfoContext(ctx, "payment applied",
		slog.String("gateway", gateway),
		slog.Int64("order_id", res.OrderID),
		slog.String("outcome", res.Outcome.String()),
		slog.Bool("changed", tr.Changed))
	return h, nil
}
