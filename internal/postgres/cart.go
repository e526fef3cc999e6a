package postgres

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-commerce-ledger/internal/cart"
	"github.com/ariefcatur/go-commerce-ledger/internal/inventory"
	"github.com/jackc/pgx/v5"
)

func (s *Store) Product(ctx context.Context, productID int64) (cart.Product, error) {
	var p cart.Product
	err := s.q.QueryRow(ctx, `SELECT id, seller_id, name, image, price, stock FROM products WHERE id=$1`, productID).
		Scan(&p.ID, &p.SellerID, &p.Name, &p.Image, &p.Price, &p.Stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return cart.Product{}, inventory.ErrProductNotFound
	}
	return p, err
}

func (s *Store) InsertLine(ctx context.Context, l cart.Line) (cart.Line, error) {
	err := s.q.QueryRow(ctx, `
		INSERT INTO carts (user_id, product_id, quantity, price, discount_percent, shipping_fee, image)
		VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id, added_at`,
		l.UserID, l.ProductID, l.Quantity, l.Price, l.DiscountPercent, l.ShippingFee, l.Image,
	).Scan(&l.ID, &l.AddedAt)
	return l, err
}

func (s *Store) GetLine(ctx context.Context, id int64) (cart.Line, error) {
	var l cart.Line
	err := s.q.QueryRow(ctx, `
		SELECT c.id, c.user_id, c.product_id, p.seller_id, c.quantity, c.price, c.discount_percent,
		       c.shipping_fee, c.image, c.added_at, p.name, p.price, p.stock
		FROM carts c JOIN products p ON p.id = c.product_id
		WHERE c.id = $1`, id).
		Scan(&l.ID, &l.UserID, &l.ProductID, &l.SellerID, &l.Quantity, &l.Price, &l.DiscountPercent,
			&l.ShippingFee, &l.Image, &l.AddedAt, &l.ProductName, &l.LivePrice, &l.Stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return cart.Line{}, cart.ErrLineNotFound
	}
	return l, err
}

func (s *Store) SetQuantity(ctx context.Context, id int64, qty int) error {
	ct, err := s.q.Exec(ctx, `UPDATE carts SET quantity=$2 WHERE id=$1`, id, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return cart.ErrLineNotFound
	}
	return nil
}

func (s *Store) DeleteLine(ctx context.Context, id int64) error {
	_, err := s.q.Exec(ctx, `DELETE FROM carts WHERE id=$1`, id)
	return err
}

func (s *Store) Lines(ctx context.Context, userID int64) ([]cart.Line, error) {
	return s.cartLines(ctx, cartSelect, userID)
}
