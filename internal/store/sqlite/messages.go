package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vovakirdan/wirechat-gateway/internal/store"
)

// SaveMessage persists a message and sets its ID.
// A zero CreatedAt is replaced with the current time.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	var toMID sql.NullInt64
	if msg.ToMID != nil {
		toMID = sql.NullInt64{Int64: *msg.ToMID, Valid: true}
	}

	query := `
		INSERT INTO messages (room_id, uid, content, to_mid, ip, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, msg.RoomID, msg.UID, msg.Content, toMID, msg.IP, msg.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	msg.ID = id
	return nil
}

func scanMessage(row interface{ Scan(...any) error }) (*store.Message, error) {
	var msg store.Message
	var toMID sql.NullInt64
	var createdAt int64
	if err := row.Scan(&msg.ID, &msg.RoomID, &msg.UID, &msg.Content, &toMID, &msg.IP, &createdAt); err != nil {
		return nil, err
	}
	if toMID.Valid {
		msg.ToMID = &toMID.Int64
	}
	msg.CreatedAt = time.UnixMilli(createdAt)
	return &msg, nil
}

// GetMessage retrieves a message by ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, id int64) (*store.Message, error) {
	query := `
		SELECT id, room_id, uid, content, to_mid, ip, created_at
		FROM messages
		WHERE id = ?
	`
	msg, err := scanMessage(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query message: %w", err)
	}
	return msg, nil
}

// ListMessages retrieves messages from a room with pagination, oldest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, roomID int64, limit int, beforeID *int64) ([]*store.Message, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if beforeID != nil {
		query := `
			SELECT id, room_id, uid, content, to_mid, ip, created_at
			FROM messages
			WHERE room_id = ? AND id < ?
			ORDER BY id DESC
			LIMIT ?
		`
		rows, err = s.db.QueryContext(ctx, query, roomID, *beforeID, limit)
	} else {
		query := `
			SELECT id, room_id, uid, content, to_mid, ip, created_at
			FROM messages
			WHERE room_id = ?
			ORDER BY id DESC
			LIMIT ?
		`
		rows, err = s.db.QueryContext(ctx, query, roomID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	// Reverse to chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
