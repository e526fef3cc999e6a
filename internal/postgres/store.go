package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-commerce-ledger/internal/cart"
	"github.com/ariefcatur/go-commerce-ledger/internal/inventory"
	"github.com/ariefcatur/go-commerce-ledger/internal/orders"
	"github.com/jackc/pgx/v5"
)

// Store implements the stores of every component on one querier. Inside
// DB.InTx the querier is the transaction.
type Store struct {
	q  querier
	tz string
}

const orderCols = `id, user_id, address, phone, total_amount, status, payment_status,
	revenue_tracked, stock_released, payment_ref, created_at, updated_at`

func scanOrder(row pgx.Row) (orders.Order, error) {
	var o orders.Order
	err := row.Scan(&o.ID, &o.UserID, &o.Address, &o.Phone, &o.TotalAmount, &o.Status, &o.PaymentStatus,
		&o.RevenueTracked, &o.StockReleased, &o.PaymentRef, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// inventory.Store

func (s *Store) LockStock(ctx context.Context, productID int64) (int, error) {
	var stock int
	err := s.q.QueryRow(ctx, `SELECT stock FROM products WHERE id=$1 FOR UPDATE`, productID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, inventory.ErrProductNotFound
	}
	return stock, err
}

func (s *Store) SetStock(ctx context.Context, productID int64, stock int) error {
	ct, err := s.q.Exec(ctx, `UPDATE products SET stock=$2, updated_at=now() WHERE id=$1`, productID, stock)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return inventory.ErrProductNotFound
	}
	return nil
}

// cart.Store

const cartSelect = `
SELECT c.id, c.user_id, c.product_id, p.seller_id, c.quantity, c.price, c.discount_percent,
       c.shipping_fee, c.image, c.added_at, p.name, p.price, p.stock
FROM carts c
JOIN products p ON p.id = c.product_id
WHERE c.user_id = $1
ORDER BY c.product_id, c.id`

// LockCart locks the user's cart rows and their products, so the live price
// cannot move before the order is written. Rows are locked in product id
// order, the same order the guard locks product rows in.
func (s *Store) LockCart(ctx context.Context, userID int64) ([]cart.Line, error) {
	return s.cartLines(ctx, cartSelect+` FOR UPDATE OF c, p`, userID)
}

func (s *Store) cartLines(ctx context.Context, sql string, userID int64) ([]cart.Line, error) {
	rows, err := s.q.Query(ctx, sql, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []cart.Line
	for rows.Next() {
		var l cart.Line
		if err := rows.Scan(&l.ID, &l.UserID, &l.ProductID, &l.SellerID, &l.Quantity, &l.Price, &l.DiscountPercent,
			&l.ShippingFee, &l.Image, &l.AddedAt, &l.ProductName, &l.LivePrice, &l.Stock); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) ClearCart(ctx context.Context, userID int64) error {
	_, err := s.q.Exec(ctx, `DELETE FROM carts WHERE user_id=$1`, userID)
	return err
}

// orders.Store

func (s *Store) InsertOrder(ctx context.Context, o *orders.Order) error {
	return s.q.QueryRow(ctx, `
		INSERT INTO orders (user_id, address, phone, total_amount, status, payment_status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		o.UserID, o.Address, o.Phone, o.TotalAmount, o.Status, o.PaymentStatus, o.CreatedAt, o.UpdatedAt,
	).Scan(&o.ID)
}

func (s *Store) InsertOrderLine(ctx context.Context, l *orders.OrderLine) error {
	return s.q.QueryRow(ctx, `
		INSERT INTO order_items (order_id, product_id, seller_id, quantity, price)
		VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		l.OrderID, l.ProductID, l.SellerID, l.Quantity, l.Price,
	).Scan(&l.ID)
}

func (s *Store) LockOrder(ctx context.Context, id int64) (orders.Order, error) {
	o, err := scanOrder(s.q.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return o, err
}

func (s *Store) OrderLines(ctx context.Context, orderID int64) ([]orders.OrderLine, error) {
	rows, err := s.q.Query(ctx, `
		SELECT oi.id, oi.order_id, oi.product_id, oi.seller_id, oi.quantity, oi.price,
		       COALESCE(p.name, ''), COALESCE(p.image, '')
		FROM order_items oi
		LEFT JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id = $1
		ORDER BY oi.id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.OrderLine
	for rows.Next() {
		var l orders.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.SellerID, &l.Quantity, &l.Price, &l.ProductName, &l.Image); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) SetOrderStatus(ctx context.Context, id int64, st orders.Status, p orders.PaymentStatus) error {
	ct, err := s.q.Exec(ctx, `UPDATE orders SET status=$2, payment_status=$3, updated_at=now() WHERE id=$1`, id, st, p)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return orders.ErrOrderNotFound
	}
	return nil
}

func (s *Store) SetPaymentRef(ctx context.Context, id int64, ref string) error {
	_, err := s.q.Exec(ctx, `UPDATE orders SET payment_ref=$2, updated_at=now() WHERE id=$1`, id, ref)
	return err
}

func (s *Store) MarkRevenueTracked(ctx context.Context, id int64, tracked bool) (bool, error) {
	ct, err := s.q.Exec(ctx, `UPDATE orders SET revenue_tracked=$2 WHERE id=$1 AND revenue_tracked <> $2`, id, tracked)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (s *Store) MarkStockReleased(ctx context.Context, id int64) (bool, error) {
	ct, err := s.q.Exec(ctx, `UPDATE orders SET stock_released=true WHERE id=$1 AND NOT stock_released`, id)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// orders.Reader

func (s *Store) GetOrder(ctx context.Context, id int64) (orders.Order, error) {
	o, err := scanOrder(s.q.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return o, err
}

func (s *Store) ListOrders(ctx context.Context, f orders.ListFilter) ([]orders.Order, error) {
	sql := `SELECT ` + orderCols + ` FROM orders o WHERE ($1::BIGINT = 0 OR o.user_id = $1)
		AND ($2::BIGINT = 0 OR EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = o.id AND oi.seller_id = $2))
		ORDER BY o.created_at DESC, o.id DESC`
	rows, err := s.q.Query(ctx, sql, f.UserID, f.SellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) ListProducts(ctx context.Context) ([]orders.Product, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, seller_id, name, image, price, stock, created_at, updated_at
		FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []orders.Product
	for rows.Next() {
		var p orders.Product
		if err := rows.Scan(&p.ID, &p.SellerID, &p.Name, &p.Image, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
