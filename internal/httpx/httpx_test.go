package httpx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/ariefcatur/go-commerce-ledger/internal/auth"
	"github.com/ariefcatur/go-commerce-ledger/internal/cart"
	"github.com/ariefcatur/go-commerce-ledger/internal/httpx"
	"github.com/ariefcatur/go-commerce-ledger/internal/inventory"
	"github.com/ariefcatur/go-commerce-ledger/internal/notification"
	"github.com/ariefcatur/go-commerce-ledger/internal/orders"
	"github.com/ariefcatur/go-commerce-ledger/internal/orders/mocks"
	"github.com/ariefcatur/go-commerce-ledger/internal/payment"
	"github.com/ariefcatur/go-commerce-ledger/internal/revenue"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const jwtSecret = "test-secret"

var (
	buyer   = auth.Actor{UserID: 7, Role: auth.RoleUser}
	other   = auth.Actor{UserID: 8, Role: auth.RoleUser}
	seller  = auth.Actor{UserID: 10, Role: auth.RoleSeller}
	seller2 = auth.Actor{UserID: 20, Role: auth.RoleSeller}
	admin   = auth.Actor{UserID: 1, Role: auth.RoleAdmin}

	placed = time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)
)

type noNotes struct{}

func (noNotes) InsertNotification(context.Context, *notification.Notification) (bool, error) {
	return true, nil
}
func (noNotes) ListNotifications(context.Context, int64) ([]notification.Notification, error) {
	return nil, nil
}
func (noNotes) CountUnread(context.Context, int64) (int64, error) { return 3, nil }
func (noNotes) MarkRead(context.Context, int64, int64) (bool, error) {
	return false, nil
}

type app struct {
	t      *testing.T
	router *chi.Mux
	store  *mocks.Store
	jwt    *auth.Verifier
	vnp    *payment.VNPay
}

func newApp(t *testing.T) *app {
	t.Helper()
	st := mocks.NewStore()
	st.AddProduct(orders.Product{ID: 1, SellerID: 10, Name: "A", Price: decimal.NewFromInt(100), Stock: 5})
	st.AddProduct(orders.Product{ID: 2, SellerID: 20, Name: "B", Price: decimal.NewFromInt(50), Stock: 3})

	svc := orders.NewService(st, st, inventory.NewGuard(100, nil), revenue.NewLedger(time.UTC, nil), nil)
	svc.Now = func() time.Time { return placed }
	vnp := &payment.VNPay{TmnCode: "TMN", HashSecret: "vnp-secret", PayURL: "https://pay.example/vpc", ReturnURL: "http://api/return"}
	rec := payment.NewReconciler(svc, nil, vnp, &payment.Stripe{WebhookSecret: "whsec"})

	v := auth.NewVerifier(jwtSecret)
	authn := httpx.Authenticate(v)
	r := httpx.NewRouter(nil)
	(&httpx.OrdersHandler{Orders: svc}).Register(r, authn)
	(&httpx.CartsHandler{Carts: cart.NewService(st, nil)}).Register(r, authn)
	(&httpx.RevenuesHandler{Reports: revenue.NewReporter(st)}).Register(r, authn)
	(&httpx.NotificationsHandler{Notifications: notification.NewService(noNotes{}, nil)}).Register(r, authn)
	(&httpx.PaymentsHandler{
		Checkout:   &payment.Checkout{VNPay: vnp, Orders: svc},
		Reconciler: rec,
		ResultURL:  "http://shop/payment-result",
	}).Register(r, authn)

	return &app{t: t, router: r, store: st, jwt: v, vnp: vnp}
}

func (a *app) do(method, path string, as *auth.Actor, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if as != nil {
		tok, err := a.jwt.Sign(*as, time.Hour)
		require.NoError(a.t, err)
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

// placeOrder fills the buyer's cart with 2xA and 1xB and checks out.
func (a *app) placeOrder() orders.OrderDetail {
	a.t.Helper()
	require.Equal(a.t, http.StatusCreated, a.do("POST", "/api/carts", &buyer, map[string]any{"product_id": 1, "quantity": 2}).Code)
	require.Equal(a.t, http.StatusCreated, a.do("POST", "/api/carts", &buyer, map[string]any{"product_id": 2, "quantity": 1}).Code)
	rec := a.do("POST", "/api/orders", &buyer, map[string]string{"address": "1 Main St", "phone": "0900"})
	require.Equal(a.t, http.StatusCreated, rec.Code, rec.Body.String())
	var d orders.OrderDetail
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &d))
	return d
}

func (a *app) ipn(orderID int64, amountMinor, code string, tamper bool) map[string]string {
	a.t.Helper()
	q := url.Values{
		"vnp_TxnRef":        {strconv.FormatInt(orderID, 10)},
		"vnp_Amount":        {amountMinor},
		"vnp_ResponseCode":  {code},
		"vnp_TransactionNo": {"9001"},
	}
	q.Set("vnp_SecureHash", a.vnp.Sign(q))
	if tamper {
		q.Set("vnp_Amount", "1")
	}
	rec := a.do("GET", "/api/vnpay/ipn?"+q.Encode(), nil, nil)
	require.Equal(a.t, http.StatusOK, rec.Code)
	var out map[string]string
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealthz(t *testing.T) {
	a := newApp(t)
	rec := a.do("GET", "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestAuthRequired(t *testing.T) {
	a := newApp(t)
	assert.Equal(t, http.StatusUnauthorized, a.do("GET", "/api/orders", nil, nil).Code)

	req := httptest.NewRequest("GET", "/api/orders", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Equal(t, http.StatusOK, a.do("GET", "/products", nil, nil).Code)
}

func TestOrderFlow(t *testing.T) {
	a := newApp(t)
	d := a.placeOrder()
	assert.True(t, d.Order.TotalAmount.Equal(decimal.NewFromInt(250)))
	assert.Len(t, d.Lines, 2)
	assert.Equal(t, 3, a.store.Stock(1))

	path := "/api/orders/" + strconv.FormatInt(d.Order.ID, 10)
	assert.Equal(t, http.StatusOK, a.do("GET", path, &buyer, nil).Code)
	assert.Equal(t, http.StatusOK, a.do("GET", path, &seller, nil).Code)
	assert.Equal(t, http.StatusForbidden, a.do("GET", path, &other, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do("GET", "/api/orders/999", &admin, nil).Code)
	assert.Equal(t, http.StatusBadRequest, a.do("GET", "/api/orders/abc", &admin, nil).Code)

	// empty cart now
	rec := a.do("POST", "/api/orders", &buyer, map[string]string{"address": "x", "phone": "y"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Equal(t, "97", a.ipn(d.Order.ID, "25000", "00", true)["RspCode"])
	assert.Equal(t, "04", a.ipn(d.Order.ID, "100", "00", false)["RspCode"])
	assert.Equal(t, "01", a.ipn(999, "25000", "00", false)["RspCode"])
	assert.Equal(t, "00", a.ipn(d.Order.ID, "25000", "00", false)["RspCode"])
	assert.Equal(t, "02", a.ipn(d.Order.ID, "25000", "00", false)["RspCode"])

	rec = a.do("GET", path+"/status", &buyer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var v orders.StatusView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, orders.StatusCompleted, v.Status)
	assert.Equal(t, orders.PaymentPaid, v.PaymentStatus)

	rec = a.do("GET", "/api/revenues/revenue/10?month=3&year=2026", &seller, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Revenue decimal.Decimal `json:"revenue"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Revenue.Equal(decimal.NewFromInt(200)), "got %s", body.Revenue)

	assert.Equal(t, http.StatusForbidden, a.do("GET", "/api/revenues/revenue/10?month=3&year=2026", &seller2, nil).Code)
	assert.Equal(t, http.StatusBadRequest, a.do("GET", "/api/revenues/revenue/10?month=13&year=2026", &seller, nil).Code)
	assert.Equal(t, http.StatusBadRequest, a.do("GET", "/api/revenues/yearly/10?year=abc", &seller, nil).Code)

	rec = a.do("PUT", path+"/status", &admin, map[string]string{"status": "cancelled", "payment_status": "failed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 5, a.store.Stock(1))
	assert.Equal(t, 3, a.store.Stock(2))

	rec = a.do("PUT", path+"/status", &admin, map[string]string{"status": "completed", "payment_status": "paid"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateStatus_Rejections(t *testing.T) {
	a := newApp(t)
	d := a.placeOrder()
	path := "/api/orders/" + strconv.FormatInt(d.Order.ID, 10) + "/status"

	assert.Equal(t, http.StatusForbidden, a.do("PUT", path, &buyer, map[string]string{"status": "cancelled"}).Code)
	assert.Equal(t, http.StatusBadRequest, a.do("PUT", path, &admin, map[string]string{"status": "shipped"}).Code)

	req := httptest.NewRequest("PUT", path, bytes.NewBufferString("{"))
	tok, _ := a.jwt.Sign(admin, time.Hour)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCarts(t *testing.T) {
	a := newApp(t)
	rec := a.do("POST", "/api/carts", &buyer, map[string]any{"product_id": 1, "quantity": 9})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, http.StatusForbidden, a.do("POST", "/api/carts", &admin, map[string]any{"product_id": 1}).Code)

	rec = a.do("POST", "/api/carts", &buyer, map[string]any{"product_id": 1})
	require.Equal(t, http.StatusCreated, rec.Code)
	var l cart.Line
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &l))
	path := "/api/carts/" + strconv.FormatInt(l.ID, 10)

	assert.Equal(t, http.StatusOK, a.do("PUT", path, &buyer, map[string]int{"quantity": 3}).Code)
	assert.Equal(t, http.StatusBadRequest, a.do("PUT", path, &buyer, map[string]int{"quantity": 0}).Code)
	assert.Equal(t, http.StatusNotFound, a.do("PUT", path, &other, map[string]int{"quantity": 2}).Code)
	assert.Equal(t, http.StatusForbidden, a.do("DELETE", path, &other, nil).Code)

	rec = a.do("GET", "/api/carts", &buyer, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var ls []cart.Line
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ls))
	require.Len(t, ls, 1)
	assert.Equal(t, 3, ls[0].Quantity)

	assert.Equal(t, http.StatusOK, a.do("DELETE", path, &buyer, nil).Code)
	assert.Equal(t, "[]\n", a.do("GET", "/api/carts", &buyer, nil).Body.String())
}

func TestVNPay_CreateURLAndReturn(t *testing.T) {
	a := newApp(t)
	d := a.placeOrder()

	rec := a.do("POST", "/api/vnpay/create_payment_url", &buyer, map[string]any{"orderId": d.Order.ID, "bankCode": "NCB"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	u, err := url.Parse(out["paymentUrl"])
	require.NoError(t, err)
	assert.Equal(t, "25000", u.Query().Get("vnp_Amount"))

	assert.Equal(t, http.StatusForbidden,
		a.do("POST", "/api/vnpay/create_payment_url", &other, map[string]any{"orderId": d.Order.ID}).Code)

	q := url.Values{"vnp_TxnRef": {strconv.FormatInt(d.Order.ID, 10)}, "vnp_Amount": {"25000"}, "vnp_ResponseCode": {"00"}}
	q.Set("vnp_SecureHash", "deadbeef")
	rec = a.do("GET", "/api/vnpay/vnpay_return?"+q.Encode(), nil, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://shop/payment-result?status=invalid-signature", rec.Header().Get("Location"))

	q.Set("vnp_SecureHash", a.vnp.Sign(q))
	rec = a.do("GET", "/api/vnpay/vnpay_return?"+q.Encode(), nil, nil)
	assert.Equal(t, "http://shop/payment-result?status=success", rec.Header().Get("Location"))
}

func TestStripeWebhook(t *testing.T) {
	a := newApp(t)
	d := a.placeOrder()
	s := &payment.Stripe{WebhookSecret: "whsec"}
	body := []byte(`{"id":"evt_1","type":"checkout.session.expired","data":{"object":{"id":"cs_1","metadata":{"orderId":"` +
		strconv.FormatInt(d.Order.ID, 10) + `"}}}}`)

	req := httptest.NewRequest("POST", "/api/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Stripe-Signature", "t=1,v1=bad")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest("POST", "/api/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Stripe-Signature", s.Sign(body, time.Now()))
	rec = httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 5, a.store.Stock(1))
}

func TestListings(t *testing.T) {
	a := newApp(t)
	a.placeOrder()

	var list []orders.Order
	rec := a.do("GET", "/api/orders", &buyer, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = a.do("GET", "/api/orders/all", &seller2, nil)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	assert.Equal(t, http.StatusForbidden, a.do("GET", "/api/orders/all", &buyer, nil).Code)
	assert.Equal(t, "[]\n", a.do("GET", "/api/orders", &other, nil).Body.String())
}

func TestNotifications(t *testing.T) {
	a := newApp(t)
	rec := a.do("GET", "/api/notifications/count", &buyer, nil)
	assert.JSONEq(t, `{"unread":3}`, rec.Body.String())
	assert.Equal(t, http.StatusNotFound, a.do("PUT", "/api/notifications/5/read", &buyer, nil).Code)
	assert.Equal(t, "[]\n", a.do("GET", "/api/notifications", &buyer, nil).Body.String())
}
