package sqlite

import (
	"context"
	"fmt"

	"github.com/vovakirdan/wirechat-gateway/internal/store"
)

// CreateNotification stores a new unread notification.
func (s *SQLiteStore) CreateNotification(ctx context.Context, n *store.Notification) error {
	query := `
		INSERT INTO notifications (nid, uid, room_id, body, is_read)
		VALUES (?, ?, ?, ?, 0)
		ON CONFLICT(nid) DO UPDATE SET body = excluded.body, is_read = 0, created_at = CURRENT_TIMESTAMP
	`
	if _, err := s.db.ExecContext(ctx, query, n.NID, n.UID, n.RoomID, n.Body); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListUnreadNotificationIDs returns unread nids of uid scoped to the given rooms.
func (s *SQLiteStore) ListUnreadNotificationIDs(ctx context.Context, uid int64, roomIDs []int64) ([]string, error) {
	if len(roomIDs) == 0 {
		return nil, nil
	}
	args := make([]any, 0, len(roomIDs)+1)
	args = append(args, uid)
	for _, id := range roomIDs {
		args = append(args, id)
	}
	query := `
		SELECT nid FROM notifications
		WHERE uid = ? AND is_read = 0 AND room_id IN (` + placeholders(len(roomIDs)) + `)
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var nids []string
	for rows.Next() {
		var nid string
		if err := rows.Scan(&nid); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		nids = append(nids, nid)
	}
	return nids, rows.Err()
}

// MarkNotificationsRead marks the given nids read for uid.
func (s *SQLiteStore) MarkNotificationsRead(ctx context.Context, uid int64, nids []string) error {
	if len(nids) == 0 {
		return nil
	}
	args := make([]any, 0, len(nids)+1)
	args = append(args, uid)
	for _, nid := range nids {
		args = append(args, nid)
	}
	query := `UPDATE notifications SET is_read = 1 WHERE uid = ? AND nid IN (` + placeholders(len(nids)) + `)`
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark notifications read: %w", err)
	}
	return nil
}

// CountUnreadNotifications counts unread notifications of uid.
func (s *SQLiteStore) CountUnreadNotifications(ctx context.Context, uid int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications WHERE uid = ? AND is_read = 0
	`, uid).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return count, nil
}
