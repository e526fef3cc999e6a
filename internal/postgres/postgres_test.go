package postgres_test

import (
	"context"
	"io/fs"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-commerce-ledger/internal/apperr"
	"github.com/ariefcatur/go-commerce-ledger/internal/auth"
	"github.com/ariefcatur/go-commerce-ledger/internal/cart"
	"github.com/ariefcatur/go-commerce-ledger/internal/inventory"
	"github.com/ariefcatur/go-commerce-ledger/internal/notification"
	"github.com/ariefcatur/go-commerce-ledger/internal/orders"
	"github.com/ariefcatur/go-commerce-ledger/internal/postgres"
	"github.com/ariefcatur/go-commerce-ledger/internal/revenue"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ orders.Tx           = (*postgres.Store)(nil)
	_ orders.Reader       = (*postgres.Store)(nil)
	_ orders.TxRunner     = (*postgres.DB)(nil)
	_ cart.Repo           = (*postgres.Store)(nil)
	_ revenue.ReportStore = (*postgres.Store)(nil)
	_ notification.Store  = (*postgres.Store)(nil)
)

func TestMigrations_Ordered(t *testing.T) {
	names, err := postgres.Migrations()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "0001_init.sql", names[0])

	var last int64
	for _, name := range names {
		v, err := goose.NumericComponent(name)
		require.NoError(t, err, name)
		assert.Greater(t, v, last, name)
		last = v

		body, err := fs.ReadFile(postgres.MigrationFS(), name)
		require.NoError(t, err)
		assert.Contains(t, string(body), "-- +goose Up", name)
		assert.Contains(t, string(body), "-- +goose Down", name)
	}
}

func TestMigrate_Reapply(t *testing.T) {
	pool, _ := openDB(t)
	ctx := context.Background()

	require.NoError(t, postgres.Migrate(ctx, pool, nil))
	var version int64
	require.NoError(t, pool.QueryRow(ctx, `SELECT max(version_id) FROM goose_db_version`).Scan(&version))
	assert.Equal(t, int64(1), version)
}

// openDB connects to POSTGRES_TEST_DSN and resets the schema's data.
func openDB(t *testing.T) (*pgxpool.Pool, *postgres.DB) {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}
	ctx := context.Background()
	pool, err := postgres.Connect(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.Migrate(ctx, pool, nil))
	_, err = pool.Exec(ctx, `TRUNCATE products, carts, orders, order_items, revenue_tracking, notifications RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return pool, postgres.New(pool, "UTC")
}

func seedProduct(t *testing.T, pool *pgxpool.Pool, sellerID int64, price string, stock int) int64 {
	t.Helper()
	var id int64
	err := pool.QueryRow(context.Background(),
		`INSERT INTO products (seller_id, name, price, stock) VALUES ($1, 'item', $2, $3) RETURNING id`,
		sellerID, decimal.RequireFromString(price), stock).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestOrderLifecycle(t *testing.T) {
	pool, db := openDB(t)
	ctx := context.Background()
	a := seedProduct(t, pool, 10, "100.00", 5)
	b := seedProduct(t, pool, 20, "50.00", 3)

	carts := cart.NewService(db, nil)
	buyer := auth.Actor{UserID: 7, Role: auth.RoleUser}
	_, err := carts.Add(ctx, buyer, cart.AddInput{ProductID: a, Quantity: 2})
	require.NoError(t, err)
	_, err = carts.Add(ctx, buyer, cart.AddInput{ProductID: b, Quantity: 1})
	require.NoError(t, err)

	svc := orders.NewService(db, db, inventory.NewGuard(100, nil), revenue.NewLedger(time.UTC, nil), nil)
	d, err := svc.Create(ctx, buyer, orders.CreateInput{Address: "1 Main St", Phone: "0900"})
	require.NoError(t, err)
	assert.True(t, d.Order.TotalAmount.Equal(decimal.NewFromInt(250)))

	var stock int
	require.NoError(t, pool.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1`, a).Scan(&stock))
	assert.Equal(t, 3, stock)
	lines, err := db.Lines(ctx, buyer.UserID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	paid := orders.PaymentResult{OrderID: d.Order.ID, Succeeded: true, Ref: "tx-1", Gateway: "vnpay"}
	_, err = svc.ApplyPayment(ctx, paid)
	require.NoError(t, err)
	tr, err := svc.ApplyPayment(ctx, paid)
	require.NoError(t, err)
	assert.False(t, tr.Changed)

	key := revenue.Key{SellerID: 10, Month: int(d.Order.CreatedAt.UTC().Month()), Year: d.Order.CreatedAt.UTC().Year()}
	rev, err := db.MonthlyRevenue(ctx, key)
	require.NoError(t, err)
	assert.True(t, rev.Equal(decimal.NewFromInt(200)), "got %s", rev)
	n, err := db.PaidOrderCount(ctx, 10, key.Month, key.Year)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = svc.UpdateStatus(ctx, auth.Actor{UserID: 1, Role: auth.RoleAdmin}, d.Order.ID, orders.StatusCancelled, orders.PaymentFailed)
	require.NoError(t, err)
	rev, err = db.MonthlyRevenue(ctx, key)
	require.NoError(t, err)
	assert.True(t, rev.IsZero(), "got %s", rev)
	require.NoError(t, pool.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1`, a).Scan(&stock))
	assert.Equal(t, 5, stock)
}

func TestLockCart_HoldsProductRows(t *testing.T) {
	pool, db := openDB(t)
	ctx := context.Background()
	p := seedProduct(t, pool, 10, "100.00", 5)
	buyer := auth.Actor{UserID: 7, Role: auth.RoleUser}
	_, err := cart.NewService(db, nil).Add(ctx, buyer, cart.AddInput{ProductID: p, Quantity: 1})
	require.NoError(t, err)

	err = db.InTx(ctx, func(tx orders.Tx) error {
		lines, err := tx.LockCart(ctx, buyer.UserID)
		require.NoError(t, err)
		require.Len(t, lines, 1)

		// a price change from another connection waits for this tx
		short, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		defer cancel()
		_, err = pool.Exec(short, `UPDATE products SET price = 1 WHERE id=$1`, p)
		assert.Error(t, err)
		return nil
	})
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `UPDATE products SET price = 1 WHERE id=$1`, p)
	assert.NoError(t, err)
}

func TestConcurrentReservations_LastUnit(t *testing.T) {
	pool, db := openDB(t)
	ctx := context.Background()
	p := seedProduct(t, pool, 10, "10.00", 1)
	guard := inventory.NewGuard(100, nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = db.InTx(ctx, func(tx orders.Tx) error {
				return guard.Reserve(ctx, tx, p, 1)
			})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	}
	assert.Equal(t, 1, ok)
	stock, err := db.LockStock(ctx, p)
	require.NoError(t, err)
	assert.Zero(t, stock)
}

func TestNotifications_DedupByEvent(t *testing.T) {
	_, db := openDB(t)
	ctx := context.Background()
	n := notification.Notification{UserID: 7, EventID: "evt-1", Title: "t", Message: "m",
		Type: notification.TypeOrder, Status: notification.StatusUnread, CreatedAt: time.Now()}

	ok, err := db.InsertNotification(ctx, &n)
	require.NoError(t, err)
	assert.True(t, ok)
	dup := n
	ok, err = db.InsertNotification(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, ok)

	c, err := db.CountUnread(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c)

	ok, err = db.MarkRead(ctx, 8, n.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
