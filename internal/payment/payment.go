// Package payment verifies gateway callbacks and feeds their outcome into
// the order ledger.
package payment

import (
	"net/url"

	"github.com/ariefcatur/go-commerce-ledger/internal/apperr"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidSignature = apperr.New(apperr.KindIntegrity, "invalid payment signature")
	ErrUnknownGateway   = apperr.New(apperr.KindValidation, "unknown payment gateway")
	ErrMalformed        = apperr.New(apperr.KindValidation, "malformed payment notification")
)

type Outcome int

const (
	// OutcomeIgnored is a verified notification that does not move an order.
	OutcomeIgnored Outcome = iota
	OutcomeSucceeded
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	default:
		return "ignored"
	}
}

// Notification is a raw gateway callback. Query-style gateways fill Params;
// body-signed gateways fill Body and Signature.
type Notification struct {
	Params    url.Values
	Body      []byte
	Signature string
}

// Result is what a verified notification says about one order.
type Result struct {
	// EventID identifies the delivery for the dedup fast path.
	EventID string
	OrderID int64
	Outcome Outcome
	Amount  decimal.NullDecimal
	Ref     string
}

// Verifier checks a gateway's signature scheme and decodes its payload.
// It returns ErrInvalidSignature when the signature does not match.
type Verifier interface {
	Name() string
	Verify(n Notification) (Result, error)
}
