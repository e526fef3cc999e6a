package payment

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/ariefcatur/go-commerce-ledger/internal/apperr"
	"github.com/shopspring/decimal"
)

const (
	vnpVersion    = "2.1.0"
	vnpDateLayout = "20060102150405"

	vnpSecureHash     = "vnp_SecureHash"
	vnpSecureHashType = "vnp_SecureHashType"

	// VNPayResponseOK is vnp_ResponseCode for a successful payment.
	VNPayResponseOK = "00"
)

// VNPay signs and verifies VNPay 2.1.0 parameters with HMAC-SHA512.
type VNPay struct {
	TmnCode    string
	HashSecret string
	PayURL     string
	ReturnURL  string
}

func (v *VNPay) Name() string { return "vnpay" }

// Sign returns the hex HMAC-SHA512 of the canonical form of params.
func (v *VNPay) Sign(params url.Values) string {
	mac := hmac.New(sha512.New, []byte(v.HashSecret))
	mac.Write([]byte(vnpCanonical(params)))
	return hex.EncodeToString(mac.Sum(nil))
}

// vnpCanonical joins vnp_* params sorted by key as key=value with values
// query-escaped, leaving out the hash fields themselves.
func vnpCanonical(params url.Values) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if !strings.HasPrefix(k, "vnp_") || k == vnpSecureHash || k == vnpSecureHashType {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params.Get(k)))
	}
	return b.String()
}

// PaymentRequest is the input of PaymentURL.
type PaymentRequest struct {
	OrderID  int64
	Amount   decimal.Decimal
	BankCode string
	IPAddr   string
	Now      time.Time
}

// PaymentURL builds the signed redirect to the VNPay payment page.
func (v *VNPay) PaymentURL(req PaymentRequest) (string, error) {
	if !req.Amount.IsPositive() {
		return "", apperr.Validation("payment.PaymentURL", "amount must be positive")
	}
	id := strconv.FormatInt(req.OrderID, 10)
	p := url.Values{}
	p.Set("vnp_Version", vnpVersion)
	p.Set("vnp_Command", "pay")
	p.Set("vnp_TmnCode", v.TmnCode)
	p.Set("vnp_Locale", "vn")
	p.Set("vnp_CurrCode", "VND")
	p.Set("vnp_TxnRef", id)
	p.Set("vnp_OrderInfo", "Thanh toan don hang "+id)
	p.Set("vnp_OrderType", "other")
	p.Set("vnp_Amount", req.Amount.Mul(decimal.NewFromInt(100)).Round(0).String())
	p.Set("vnp_ReturnUrl", v.ReturnURL)
	p.Set("vnp_IpAddr", req.IPAddr)
	p.Set("vnp_CreateDate", req.Now.Format(vnpDateLayout))
	if req.BankCode != "" {
		p.Set("vnp_BankCode", req.BankCode)
	}

	query := vnpCanonical(p)
	return strings.TrimSpace(v.PayURL) + "?" + query + "&" + vnpSecureHash + "=" + v.Sign(p), nil
}

// Verify checks vnp_SecureHash and decodes the transaction outcome.
func (v *VNPay) Verify(n Notification) (Result, error) {
	const op = "payment.VNPay.Verify"
	got := strings.ToLower(n.Params.Get(vnpSecureHash))
	want := v.Sign(n.Params)
	if got == "" || !hmac.Equal([]byte(got), []byte(want)) {
		return Result{}, apperr.Wrap(ErrInvalidSignature, op, nil)
	}

	p := n.Params
	orderID, err := strconv.ParseInt(p.Get("vnp_TxnRef"), 10, 64)
	if err != nil {
		return Result{}, apperr.Wrap(ErrMalformed, op, err)
	}
	res := Result{
		OrderID: orderID,
		Ref:     p.Get("vnp_TransactionNo"),
		EventID: strings.Join([]string{p.Get("vnp_TxnRef"), p.Get("vnp_TransactionNo"), p.Get("vnp_ResponseCode")}, ":"),
		Outcome: OutcomeFailed,
	}
	if raw := p.Get("vnp_Amount"); raw != "" {
		minor, err := decimal.NewFromString(raw)
		if err != nil {
			return Result{}, apperr.Wrap(ErrMalformed, op, err)
		}
		res.Amount = decimal.NewNullDecimal(minor.Div(decimal.NewFromInt(100)))
	}
	status := p.Get("vnp_TransactionStatus")
	if p.Get("vnp_ResponseCode") == VNPayResponseOK && (status == "" || status == VNPayResponseOK) {
		res.Outcome = OutcomeSucceeded
	}
	return res, nil
}
