package payment

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/ariefcatur/go-commerce-ledger/internal/apperr"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const DefaultStripeTolerance = webhook.DefaultTolerance

// Stripe verifies webhook deliveries signed with the Stripe-Signature
// scheme and decodes the checkout events that settle an order.
type Stripe struct {
	WebhookSecret string
	Tolerance     time.Duration
}

func (s *Stripe) Name() string { return "stripe" }

// Sign builds a Stripe-Signature header value for body at t.
func (s *Stripe) Sign(body []byte, t time.Time) string {
	sig := webhook.ComputeSignature(t, body, s.WebhookSecret)
	return "t=" + strconv.FormatInt(t.Unix(), 10) + ",v1=" + hex.EncodeToString(sig)
}

func (s *Stripe) Verify(n Notification) (Result, error) {
	const op = "payment.Stripe.Verify"
	tol := s.Tolerance
	if tol <= 0 {
		tol = DefaultStripeTolerance
	}
	ev, err := webhook.ConstructEventWithOptions(n.Body, n.Signature, s.WebhookSecret, webhook.ConstructEventOptions{
		Tolerance:                tol,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if signatureError(err) {
			return Result{}, apperr.Wrap(ErrInvalidSignature, op, err)
		}
		return Result{}, apperr.Wrap(ErrMalformed, op, err)
	}

	res := Result{EventID: ev.ID}
	var (
		ref      string
		minor    int64
		currency stripe.Currency
		meta     map[string]string
	)
	switch ev.Type {
	case stripe.EventTypeCheckoutSessionCompleted, stripe.EventTypeCheckoutSessionExpired:
		var cs stripe.CheckoutSession
		if err := decodeObject(ev, &cs); err != nil {
			return Result{}, apperr.Wrap(ErrMalformed, op, err)
		}
		res.Outcome = OutcomeFailed
		if ev.Type == stripe.EventTypeCheckoutSessionCompleted {
			res.Outcome = OutcomeSucceeded
		}
		ref, minor, currency, meta = cs.ID, cs.AmountTotal, cs.Currency, cs.Metadata
		if cs.PaymentIntent != nil && cs.PaymentIntent.ID != "" {
			ref = cs.PaymentIntent.ID
		}
	case stripe.EventTypePaymentIntentPaymentFailed:
		var pi stripe.PaymentIntent
		if err := decodeObject(ev, &pi); err != nil {
			return Result{}, apperr.Wrap(ErrMalformed, op, err)
		}
		res.Outcome = OutcomeFailed
		ref, minor, currency, meta = pi.ID, pi.Amount, pi.Currency, pi.Metadata
	default:
		return res, nil
	}

	res.OrderID, err = strconv.ParseInt(meta["orderId"], 10, 64)
	if err != nil {
		return Result{}, apperr.Wrap(ErrMalformed, op, errors.New("metadata.orderId is missing"))
	}
	res.Ref = ref
	if minor > 0 {
		res.Amount = decimal.NewNullDecimal(stripeAmount(minor, string(currency)))
	}
	return res, nil
}

func decodeObject(ev stripe.Event, v any) error {
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		return errors.New("event has no data.object")
	}
	return json.Unmarshal(ev.Data.Raw, v)
}

func signatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}

// Stripe reports amounts in the currency's minor unit, except for
// zero-decimal currencies.
var zeroDecimal = map[string]bool{"vnd": true, "jpy": true, "krw": true}

func stripeAmount(minor int64, currency string) decimal.Decimal {
	if zeroDecimal[strings.ToLower(currency)] {
		return decimal.NewFromInt(minor)
	}
	return decimal.New(minor, -2)
}
