// Package mocks provides an in-memory implementation of the order stores.
// Transactions are serialised and a failed transaction restores the state
// it started from, so rollback behaviour can be asserted without Postgres.
package mocks

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-commerce-ledger/internal/cart"
	"github.com/ariefcatur/go-commerce-ledger/internal/inventory"
	"github.com/ariefcatur/go-commerce-ledger/internal/orders"
	"github.com/ariefcatur/go-commerce-ledger/internal/revenue"
	"github.com/shopspring/decimal"
)

var ErrNegativeStock = errors.New("products_stock_check violated")

type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	products map[int64]orders.Product
	carts    map[int64]cart.Line
	orders   map[int64]orders.Order
	lines    map[int64][]orders.OrderLine
	revenue  map[revenue.Key]decimal.Decimal

	nextOrder, nextLine, nextCart int64

	// Fail makes the named method return the error, e.g. Fail["InsertOrderLine"].
	Fail map[string]error

	Commits   int
	Rollbacks int
}

func NewStore() *Store {
	return &Store{
		products: map[int64]orders.Product{},
		carts:    map[int64]cart.Line{},
		orders:   map[int64]orders.Order{},
		lines:    map[int64][]orders.OrderLine{},
		revenue:  map[revenue.Key]decimal.Decimal{},
		Fail:     map[string]error{},
	}
}

// InTx runs fn with the store itself as the transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx orders.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	snap := s.snapshot()
	if err := fn(s); err != nil {
		s.restore(snap)
		s.Rollbacks++
		return err
	}
	s.Commits++
	return nil
}

type state struct {
	products map[int64]orders.Product
	carts    map[int64]cart.Line
	orders   map[int64]orders.Order
	lines    map[int64][]orders.OrderLine
	revenue  map[revenue.Key]decimal.Decimal

	nextOrder, nextLine, nextCart int64
}

func (s *Store) snapshot() state {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := state{
		products:  make(map[int64]orders.Product, len(s.products)),
		carts:     make(map[int64]cart.Line, len(s.carts)),
		orders:    make(map[int64]orders.Order, len(s.orders)),
		lines:     make(map[int64][]orders.OrderLine, len(s.lines)),
		revenue:   make(map[revenue.Key]decimal.Decimal, len(s.revenue)),
		nextOrder: s.nextOrder, nextLine: s.nextLine, nextCart: s.nextCart,
	}
	for k, v := range s.products {
		st.products[k] = v
	}
	for k, v := range s.carts {
		st.carts[k] = v
	}
	for k, v := range s.orders {
		st.orders[k] = v
	}
	for k, v := range s.lines {
		st.lines[k] = append([]orders.OrderLine(nil), v...)
	}
	for k, v := range s.revenue {
		st.revenue[k] = v
	}
	return st
}

func (s *Store) restore(st state) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products, s.carts, s.orders, s.lines, s.revenue = st.products, st.carts, st.orders, st.lines, st.revenue
	s.nextOrder, s.nextLine, s.nextCart = st.nextOrder, st.nextLine, st.nextCart
}

func (s *Store) fail(method string) error {
	return s.Fail[method]
}

// Seeding and inspection helpers.

func (s *Store) AddProduct(p orders.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

func (s *Store) AddCartLine(userID, productID int64, qty int) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products[productID]
	s.nextCart++
	s.carts[s.nextCart] = cart.Line{
		ID: s.nextCart, UserID: userID, ProductID: productID, SellerID: p.SellerID,
		Quantity: qty, Price: p.Price, Image: p.Image, AddedAt: time.Now(),
	}
	return s.nextCart
}

func (s *Store) Stock(productID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[productID].Stock
}

func (s *Store) SetPrice(productID int64, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.products[productID]
	p.Price = price
	s.products[productID] = p
}

func (s *Store) CartSize(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, l := range s.carts {
		if l.UserID == userID {
			n++
		}
	}
	return n
}

func (s *Store) OrderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.orders)
}

func (s *Store) LineCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, ls := range s.lines {
		n += len(ls)
	}
	return n
}

// Revenue returns the accumulated total and whether a row exists.
func (s *Store) Revenue(k revenue.Key) (decimal.Decimal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.revenue[k]
	return v, ok
}

func (s *Store) SeedRevenue(k revenue.Key, amt decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revenue[k] = amt
}

// PutOrder stores o as-is, for setting up states the API cannot reach directly.
func (s *Store) PutOrder(o orders.Order, lines []orders.OrderLine) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID > s.nextOrder {
		s.nextOrder = o.ID
	}
	s.orders[o.ID] = o
	s.lines[o.ID] = append([]orders.OrderLine(nil), lines...)
}

// inventory.Store

func (s *Store) LockStock(_ context.Context, productID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("LockStock"); err != nil {
		return 0, err
	}
	p, ok := s.products[productID]
	if !ok {
		return 0, inventory.ErrProductNotFound
	}
	return p.Stock, nil
}

func (s *Store) SetStock(_ context.Context, productID int64, stock int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("SetStock"); err != nil {
		return err
	}
	if stock < 0 {
		return ErrNegativeStock
	}
	p, ok := s.products[productID]
	if !ok {
		return inventory.ErrProductNotFound
	}
	p.Stock = stock
	s.products[productID] = p
	return nil
}

// cart.Store

func (s *Store) LockCart(_ context.Context, userID int64) ([]cart.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("LockCart"); err != nil {
		return nil, err
	}
	return s.cartLines(userID), nil
}

func (s *Store) cartLines(userID int64) []cart.Line {
	var out []cart.Line
	for _, l := range s.carts {
		if l.UserID != userID {
			continue
		}
		p := s.products[l.ProductID]
		l.SellerID = p.SellerID
		l.ProductName = p.Name
		l.LivePrice = p.Price
		l.Stock = p.Stock
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProductID != out[j].ProductID {
			return out[i].ProductID < out[j].ProductID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Store) ClearCart(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("ClearCart"); err != nil {
		return err
	}
	for id, l := range s.carts {
		if l.UserID == userID {
			delete(s.carts, id)
		}
	}
	return nil
}

// revenue.Store

func (s *Store) IncrementRevenue(_ context.Context, k revenue.Key, amt decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("IncrementRevenue"); err != nil {
		return err
	}
	s.revenue[k] = s.revenue[k].Add(amt)
	return nil
}

func (s *Store) DecrementRevenue(_ context.Context, k revenue.Key, amt decimal.Decimal) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("DecrementRevenue"); err != nil {
		return false, err
	}
	cur, ok := s.revenue[k]
	if !ok {
		return false, nil
	}
	s.revenue[k] = cur.Sub(amt)
	return true, nil
}

// orders.Store

func (s *Store) InsertOrder(_ context.Context, o *orders.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("InsertOrder"); err != nil {
		return err
	}
	s.nextOrder++
	o.ID = s.nextOrder
	s.orders[o.ID] = *o
	return nil
}

func (s *Store) InsertOrderLine(_ context.Context, l *orders.OrderLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("InsertOrderLine"); err != nil {
		return err
	}
	s.nextLine++
	l.ID = s.nextLine
	s.lines[l.OrderID] = append(s.lines[l.OrderID], *l)
	return nil
}

func (s *Store) LockOrder(ctx context.Context, id int64) (orders.Order, error) {
	return s.GetOrder(ctx, id)
}

func (s *Store) GetOrder(_ context.Context, id int64) (orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return o, nil
}

func (s *Store) OrderLines(_ context.Context, orderID int64) ([]orders.OrderLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]orders.OrderLine(nil), s.lines[orderID]...), nil
}

func (s *Store) SetOrderStatus(_ context.Context, id int64, st orders.Status, p orders.PaymentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail("SetOrderStatus"); err != nil {
		return err
	}
	o := s.orders[id]
	o.Status, o.PaymentStatus = st, p
	o.UpdatedAt = time.Now().UTC()
	s.orders[id] = o
	return nil
}

func (s *Store) SetPaymentRef(_ context.Context, id int64, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.orders[id]
	o.PaymentRef = ref
	s.orders[id] = o
	return nil
}

func (s *Store) MarkRevenueTracked(_ context.Context, id int64, tracked bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.orders[id]
	if o.RevenueTracked == tracked {
		return false, nil
	}
	o.RevenueTracked = tracked
	s.orders[id] = o
	return true, nil
}

func (s *Store) MarkStockReleased(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.orders[id]
	if o.StockReleased {
		return false, nil
	}
	o.StockReleased = true
	s.orders[id] = o
	return true, nil
}

// orders.Reader

func (s *Store) ListOrders(_ context.Context, f orders.ListFilter) ([]orders.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []orders.Order
	for id, o := range s.orders {
		if f.UserID != 0 && o.UserID != f.UserID {
			continue
		}
		if f.SellerID != 0 && !hasSeller(s.lines[id], f.SellerID) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func hasSeller(lines []orders.OrderLine, sellerID int64) bool {
	for _, l := range lines {
		if l.SellerID == sellerID {
			return true
		}
	}
	return false
}

func (s *Store) ListProducts(_ context.Context) ([]orders.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]orders.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// cart.Repo

func (s *Store) Product(_ context.Context, productID int64) (cart.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[productID]
	if !ok {
		return cart.Product{}, inventory.ErrProductNotFound
	}
	return cart.Product{ID: p.ID, SellerID: p.SellerID, Name: p.Name, Image: p.Image, Price: p.Price, Stock: p.Stock}, nil
}

func (s *Store) InsertLine(_ context.Context, l cart.Line) (cart.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCart++
	l.ID = s.nextCart
	l.AddedAt = time.Now()
	s.carts[l.ID] = l
	return l, nil
}

func (s *Store) GetLine(_ context.Context, id int64) (cart.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.carts[id]
	if !ok {
		return cart.Line{}, cart.ErrLineNotFound
	}
	return l, nil
}

func (s *Store) SetQuantity(_ context.Context, id int64, qty int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.carts[id]
	if !ok {
		return cart.ErrLineNotFound
	}
	l.Quantity = qty
	s.carts[id] = l
	return nil
}

func (s *Store) DeleteLine(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, id)
	return nil
}

func (s *Store) Lines(_ context.Context, userID int64) ([]cart.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cartLines(userID), nil
}

// revenue.ReportStore

func (s *Store) MonthlyRevenue(_ context.Context, k revenue.Key) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revenue[k], nil
}

func (s *Store) YearlyRevenue(_ context.Context, sellerID int64, year int) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sum := decimal.Zero
	for k, v := range s.revenue {
		if k.SellerID == sellerID && k.Year == year {
			sum = sum.Add(v)
		}
	}
	return sum, nil
}

func (s *Store) PaidOrderCount(_ context.Context, sellerID int64, month, year int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, o := range s.orders {
		if o.PaymentStatus != orders.PaymentPaid || !hasSeller(s.lines[id], sellerID) {
			continue
		}
		if int(o.CreatedAt.Month()) == month && o.CreatedAt.Year() == year {
			n++
		}
	}
	return n, nil
}

func (s *Store) TopProducts(_ context.Context, sellerID int64, month, year, limit int) ([]revenue.TopProduct, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sold := map[int64]int64{}
	for id, o := range s.orders {
		if o.PaymentStatus != orders.PaymentPaid {
			continue
		}
		if month != 0 && (int(o.CreatedAt.Month()) != month || o.CreatedAt.Year() != year) {
			continue
		}
		for _, l := range s.lines[id] {
			if l.SellerID == sellerID {
				sold[l.ProductID] += int64(l.Quantity)
			}
		}
	}
	out := make([]revenue.TopProduct, 0, len(sold))
	for pid, n := range sold {
		out = append(out, revenue.TopProduct{ProductID: pid, Name: s.products[pid].Name, TotalSold: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalSold != out[j].TotalSold {
			return out[i].TotalSold > out[j].TotalSold
		}
		return out[i].ProductID < out[j].ProductID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
