package postgres

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-commerce-ledger/internal/notification"
	"github.com/jackc/pgx/v5"
)

func (s *Store) InsertNotification(ctx context.Context, n *notification.Notification) (bool, error) {
	err := s.q.QueryRow(ctx, `
		INSERT INTO notifications (user_id, event_id, title, message, type, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (event_id, user_id) DO NOTHING
		RETURNING id`,
		n.UserID, n.EventID, n.Title, n.Message, n.Type, n.Status, n.CreatedAt,
	).Scan(&n.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) ListNotifications(ctx context.Context, userID int64) ([]notification.Notification, error) {
	rows, err := s.q.Query(ctx, `
		SELECT id, user_id, event_id, title, message, type, status, created_at
		FROM notifications WHERE user_id=$1
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []notification.Notification
	for rows.Next() {
		var n notification.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.EventID, &n.Title, &n.Message, &n.Type, &n.Status, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) CountUnread(ctx context.Context, userID int64) (int64, error) {
	var n int64
	err := s.q.QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id=$1 AND status='unread'`, userID).Scan(&n)
	return n, err
}

func (s *Store) MarkRead(ctx context.Context, userID, id int64) (bool, error) {
	ct, err := s.q.Exec(ctx, `UPDATE notifications SET status='read' WHERE id=$1 AND user_id=$2`, id, userID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}
