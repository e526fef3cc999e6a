package cart

import (
	"context"
	"log/slog"

	"github.com/ariefcatur/go-commerce-ledger/internal/apperr"
	"github.com/ariefcatur/go-commerce-ledger/internal/auth"
	"github.com/ariefcatur/go-commerce-ledger/internal/inventory"
	"github.com/ariefcatur/go-commerce-ledger/internal/logger"
	"github.com/shopspring/decimal"
)

// Product is the part of a catalog row the cart copies at add time.
type Product struct {
	ID       int64
	SellerID int64
	Name     string
	Image    string
	Price    decimal.Decimal
	Stock    int
}

// Repo backs cart CRUD outside of checkout.
type Repo interface {
	Product(ctx context.Context, productID int64) (Product, error)
	InsertLine(ctx context.Context, l Line) (Line, error)
	GetLine(ctx context.Context, id int64) (Line, error)
	SetQuantity(ctx context.Context, id int64, qty int) error
	DeleteLine(ctx context.Context, id int64) error
	Lines(ctx context.Context, userID int64) ([]Line, error)
}

type AddInput struct {
	ProductID       int64           `json:"product_id"`
	Quantity        int             `json:"quantity"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	ShippingFee     decimal.Decimal `json:"shipping_fee"`
}

type Service struct {
	Repo Repo
	Log  *slog.Logger
}

func NewService(repo Repo, log *slog.Logger) *Service {
	return &Service{Repo: repo, Log: logger.Or(log)}
}

// Add appends a new line; adding the same product twice yields two lines.
// The stock check here is advisory, checkout re-checks under lock.
func (s *Service) Add(ctx context.Context, actor auth.Actor, in AddInput) (Line, error) {
	const op = "cart.Add"
	if actor.IsAdmin() {
		return Line{}, apperr.Forbidden(op, "admins cannot hold a cart")
	}
	if in.ProductID <= 0 {
		return Line{}, apperr.Validation(op, "product_id is required")
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 0 {
		return Line{}, apperr.Wrap(inventory.ErrInvalidQuantity, op, nil)
	}
	if in.DiscountPercent.IsNegative() || in.ShippingFee.IsNegative() {
		return Line{}, apperr.Validation(op, "discount and shipping fee must not be negative")
	}

	p, err := s.Repo.Product(ctx, in.ProductID)
	if err != nil {
		return Line{}, err
	}
	if p.Stock == 0 || in.Quantity > p.Stock {
		return Line{}, &apperr.Error{
			Kind: apperr.KindConflict,
			Op:   op,
			Msg:  inventory.ErrInsufficientStock.Msg,
			Err:  &inventory.ShortageError{ProductID: p.ID, Required: in.Quantity, Available: p.Stock},
		}
	}

	line, err := s.Repo.InsertLine(ctx, Line{
		UserID:          actor.UserID,
		ProductID:       p.ID,
		SellerID:        p.SellerID,
		Quantity:        in.Quantity,
		Price:           p.Price,
		DiscountPercent: in.DiscountPercent,
		ShippingFee:     in.ShippingFee,
		Image:           p.Image,
		ProductName:     p.Name,
		LivePrice:       p.Price,
		Stock:           p.Stock,
	})
	if err != nil {
		return Line{}, err
	}
	s.Log.InfoContext(ctx, "cart line added",
		slog.Int64("user_id", actor.UserID),
		slog.Int64("product_id", p.ID),
		slog.Int("qty", in.Quantity))
	return line, nil
}

// UpdateQuantity changes the quantity of the caller's own line.
// A line owned by someone else is reported as missing.
func (s *Service) UpdateQuantity(ctx context.Context, actor auth.Actor, lineID int64, qty int) error {
	const op = "cart.UpdateQuantity"
	if qty < 1 {
		return apperr.Wrap(inventory.ErrInvalidQuantity, op, nil)
	}
	line, err := s.Repo.GetLine(ctx, lineID)
	if err != nil {
		return err
	}
	if line.UserID != actor.UserID {
		return apperr.Wrap(ErrLineNotFound, op, nil)
	}
	return s.Repo.SetQuantity(ctx, lineID, qty)
}

// Remove deletes the caller's own line and returns what was removed.
func (s *Service) Remove(ctx context.Context, actor auth.Actor, lineID int64) (Line, error) {
	const op = "cart.Remove"
	line, err := s.Repo.GetLine(ctx, lineID)
	if err != nil {
		return Line{}, err
	}
	if line.UserID != actor.UserID {
		return Line{}, apperr.Forbidden(op, "cart line belongs to another user")
	}
	if err := s.Repo.DeleteLine(ctx, lineID); err != nil {
		return Line{}, err
	}
	return line, nil
}

func (s *Service) List(ctx context.Context, actor auth.Actor) ([]Line, error) {
	return s.Repo.Lines(ctx, actor.UserID)
}
