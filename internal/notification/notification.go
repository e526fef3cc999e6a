// Package notification keeps per-user notices about order lifecycle events.
package notification

import (
	"context"
	"log/slog"
	"time"

	"github.com/ariefcatur/go-commerce-ledger/internal/apperr"
	"github.com/ariefcatur/go-commerce-ledger/internal/auth"
	"github.com/ariefcatur/go-commerce-ledger/internal/logger"
)

const (
	TypeOrder   = "order"
	TypePayment = "payment"
	TypeRevenue = "revenue"

	StatusUnread = "unread"
	StatusRead   = "read"
)

var ErrNotFound = apperr.New(apperr.KindNotFound, "notification not found")

type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	EventID   string    `json:"-"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists notifications. Insert ignores a second row for the same
// (event id, user), so redelivered events do not duplicate notices.
type Store interface {
	InsertNotification(ctx context.Context, n *Notification) (bool, error)
	ListNotifications(ctx context.Context, userID int64) ([]Notification, error)
	CountUnread(ctx context.Context, userID int64) (int64, error)
	MarkRead(ctx context.Context, userID, id int64) (bool, error)
}

type Service struct {
	Store Store
	Log   *slog.Logger
}

func NewService(st Store, log *slog.Logger) *Service {
	return &Service{Store: st, Log: logger.Or(log)}
}

func (s *Service) List(ctx context.Context, actor auth.Actor) ([]Notification, error) {
	return s.Store.ListNotifications(ctx, actor.UserID)
}

func (s *Service) CountUnread(ctx context.Context, actor auth.Actor) (int64, error) {
	return s.Store.CountUnread(ctx, actor.UserID)
}

// MarkRead marks one of the actor's notifications read. Someone else's id
// reads as not found.
func (s *Service) MarkRead(ctx context.Context, actor auth.Actor, id int64) error {
	ok, err := s.Store.MarkRead(ctx, actor.UserID, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Wrap(ErrNotFound, "notification.MarkRead", nil)
	}
	return nil
}
