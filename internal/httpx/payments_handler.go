package httpx

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"

	"github.com/ariefcatur/go-commerce-ledger/internal/logger"
	"github.com/ariefcatur/go-commerce-ledger/internal/orders"
	"github.com/ariefcatur/go-commerce-ledger/internal/payment"
	"github.com/go-chi/chi/v5"
)

const maxWebhookBody = 1 << 20

type PaymentsHandler struct {
	Checkout   *payment.Checkout
	Reconciler *payment.Reconciler
	// ResultURL receives the buyer after the VNPay return, with ?status=.
	ResultURL string
	Log       *slog.Logger
}

type createPaymentReq struct {
	OrderID  int64  `json:"orderId"`
	BankCode string `json:"bankCode"`
}

// VNPay IPN response codes.
const (
	rspOK             = "00"
	rspOrderNotFound  = "01"
	rspAlreadyApplied = "02"
	rspInvalidAmount  = "04"
	rspBadSignature   = "97"
	rspUnknown        = "99"
)

type ipnResp struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

func (h *PaymentsHandler) Register(r chi.Router, authn func(http.Handler) http.Handler) {
	h.Log = logger.Or(h.Log)
	r.Route("/api/vnpay", func(r chi.Router) {
		r.With(authn).Post("/create_payment_url", h.createPaymentURL)
		r.Get("/vnpay_return", h.vnpayReturn)
		r.Get("/ipn", h.vnpayIPN)
	})
	r.Post("/api/payments/webhook", h.stripeWebhook)
}

func (h *PaymentsHandler) createPaymentURL(w http.ResponseWriter, r *http.Request) {
	var req createPaymentReq
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.OrderID <= 0 {
		badRequest(w, "orderId is required")
		return
	}
	u, err := h.Checkout.VNPayURL(r.Context(), actor(r), req.OrderID, req.BankCode, clientIP(r))
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"paymentUrl": u})
}

// vnpayReturn applies the result the buyer's browser brings back and
// redirects to the storefront result page.
func (h *PaymentsHandler) vnpayReturn(w http.ResponseWriter, r *http.Request) {
	res, err := h.Reconciler.Handle(r.Context(), "vnpay", payment.Notification{Params: r.URL.Query()})
	status := "success"
	switch {
	case errors.Is(err, payment.ErrInvalidSignature):
		status = "invalid-signature"
	case err != nil, res.Result.Outcome != payment.OutcomeSucceeded:
		status = "failed"
	}
	http.Redirect(w, r, h.ResultURL+"?status="+url.QueryEscape(status), http.StatusFound)
}

// vnpayIPN answers VNPay's server-to-server notification in its RspCode format.
func (h *PaymentsHandler) vnpayIPN(w http.ResponseWriter, r *http.Request) {
	res, err := h.Reconciler.Handle(r.Context(), "vnpay", payment.Notification{Params: r.URL.Query()})
	var out ipnResp
	switch {
	case errors.Is(err, payment.ErrInvalidSignature):
		out = ipnResp{rspBadSignature, "Invalid signature"}
	case errors.Is(err, orders.ErrOrderNotFound):
		out = ipnResp{rspOrderNotFound, "Order not found"}
	case errors.Is(err, orders.ErrAmountMismatch):
		out = ipnResp{rspInvalidAmount, "Invalid amount"}
	case err != nil:
		h.Log.ErrorContext(r.Context(), "vnpay ipn failed", slog.Any("err", err))
		out = ipnResp{rspUnknown, "Unknown error"}
	case res.Duplicate || !res.Changed:
		out = ipnResp{rspAlreadyApplied, "Order already confirmed"}
	default:
		out = ipnResp{rspOK, "Confirm Success"}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *PaymentsHandler) stripeWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		badRequest(w, "unreadable body")
		return
	}
	res, err := h.Reconciler.Handle(r.Context(), "stripe", payment.Notification{
		Body:      body,
		Signature: r.Header.Get("Stripe-Signature"),
	})
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"received": true, "duplicate": res.Duplicate, "changed": res.Changed})
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
