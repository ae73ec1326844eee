package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vovakirdan/wirechat-gateway/internal/store"
)

// CreateRoom creates a room and adds the owner and members.
func (s *SQLiteStore) CreateRoom(ctx context.Context, ownerUID int64, name string, public bool, memberUIDs []int64) (*store.Room, error) {
	var roomID int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO rooms (owner_uid, name, public)
			VALUES (?, ?, ?)
		`, ownerUID, name, public)
		if err != nil {
			return fmt.Errorf("insert room: %w", err)
		}

		roomID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("get last insert id: %w", err)
		}

		memberQuery := `INSERT OR IGNORE INTO room_members (room_id, uid) VALUES (?, ?)`
		if _, err := tx.ExecContext(ctx, memberQuery, roomID, ownerUID); err != nil {
			return fmt.Errorf("add owner to members: %w", err)
		}
		for _, uid := range memberUIDs {
			if _, err := tx.ExecContext(ctx, memberQuery, roomID, uid); err != nil {
				return fmt.Errorf("add user %d to members: %w", uid, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetRoomByID(ctx, roomID)
}

// GetRoomByID retrieves a room by ID.
func (s *SQLiteStore) GetRoomByID(ctx context.Context, id int64) (*store.Room, error) {
	query := `
		SELECT id, owner_uid, name, public, created_at
		FROM rooms
		WHERE id = ?
	`
	var room store.Room
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&room.ID,
		&room.OwnerUID,
		&room.Name,
		&room.Public,
		&room.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("room %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query room: %w", err)
	}
	return &room, nil
}

// RenameRoom changes a room's display name.
func (s *SQLiteStore) RenameRoom(ctx context.Context, id int64, name string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE rooms SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return fmt.Errorf("rename room: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("room %d: %w", id, store.ErrNotFound)
	}
	return nil
}

// DeleteRoom removes a room with its members and messages.
func (s *SQLiteStore) DeleteRoom(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE room_id = ?`, id); err != nil {
			return fmt.Errorf("delete messages: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM room_members WHERE room_id = ?`, id); err != nil {
			return fmt.Errorf("delete members: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete room: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("room %d: %w", id, store.ErrNotFound)
		}
		return nil
	})
}

// AddMember adds a user to a room.
func (s *SQLiteStore) AddMember(ctx context.Context, uid, roomID int64) error {
	query := `
		INSERT OR IGNORE INTO room_members (room_id, uid)
		VALUES (?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, roomID, uid); err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// RemoveMember removes a user from a room.
func (s *SQLiteStore) RemoveMember(ctx context.Context, uid, roomID int64) error {
	query := `
		DELETE FROM room_members
		WHERE room_id = ? AND uid = ?
	`
	if _, err := s.db.ExecContext(ctx, query, roomID, uid); err != nil {
		return fmt.Errorf("remove member: %w", err)
	}
	return nil
}

// IsMember checks if user is a member of the room.
func (s *SQLiteStore) IsMember(ctx context.Context, uid, roomID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM room_members WHERE room_id = ? AND uid = ?)
	`, roomID, uid).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return exists, nil
}

// ListMembers lists all members of a room, owner first.
func (s *SQLiteStore) ListMembers(ctx context.Context, roomID int64) ([]*store.RoomMember, error) {
	query := `
		SELECT rm.room_id, rm.uid, COALESCE(u.username, ''), rm.unread, rm.joined_at
		FROM room_members rm
		JOIN rooms r ON r.id = rm.room_id
		LEFT JOIN users u ON u.id = rm.uid
		WHERE rm.room_id = ?
		ORDER BY (rm.uid = r.owner_uid) DESC, rm.joined_at, rm.uid
	`
	rows, err := s.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []*store.RoomMember
	for rows.Next() {
		var m store.RoomMember
		if err := rows.Scan(&m.RoomID, &m.UID, &m.Username, &m.Unread, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, &m)
	}
	return members, rows.Err()
}

// SetUnread flags the room unread (or read) for the given members.
// Users that are not members are ignored.
func (s *SQLiteStore) SetUnread(ctx context.Context, roomID int64, uids []int64, unread bool) error {
	if len(uids) == 0 {
		return nil
	}
	args := make([]any, 0, len(uids)+2)
	args = append(args, unread, roomID)
	for _, uid := range uids {
		args = append(args, uid)
	}
	query := `UPDATE room_members SET unread = ? WHERE room_id = ? AND uid IN (` + placeholders(len(uids)) + `)`
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("set unread: %w", err)
	}
	return nil
}

// CountUnreadRooms counts rooms with unread messages for uid.
func (s *SQLiteStore) CountUnreadRooms(ctx context.Context, uid int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM room_members WHERE uid = ? AND unread = 1
	`, uid).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread rooms: %w", err)
	}
	return count, nil
}

// ListRecentRooms lists the user's rooms by latest activity.
// start and stop are inclusive offsets; a negative stop returns everything from start.
func (s *SQLiteStore) ListRecentRooms(ctx context.Context, uid int64, start, stop int) ([]*store.RecentRoom, error) {
	if start < 0 {
		start = 0
	}
	limit := -1
	if stop >= 0 {
		if stop < start {
			return nil, nil
		}
		limit = stop - start + 1
	}

	query := `
		SELECT r.id, r.owner_uid, r.name, r.public, r.created_at, rm.unread,
		       COALESCE((SELECT MAX(m.created_at) FROM messages m WHERE m.room_id = r.id), 0) AS last_activity
		FROM room_members rm
		JOIN rooms r ON r.id = rm.room_id
		WHERE rm.uid = ?
		ORDER BY last_activity DESC, r.id DESC
		LIMIT ? OFFSET ?
	`
	rows, err := s.db.QueryContext(ctx, query, uid, limit, start)
	if err != nil {
		return nil, fmt.Errorf("query recent rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*store.RecentRoom
	for rows.Next() {
		var r store.RecentRoom
		var lastActivity int64
		if err := rows.Scan(&r.ID, &r.OwnerUID, &r.Name, &r.Public, &r.CreatedAt, &r.Unread, &lastActivity); err != nil {
			return nil, fmt.Errorf("scan recent room: %w", err)
		}
		if lastActivity > 0 {
			r.LastActivity = time.UnixMilli(lastActivity)
		} else {
			r.LastActivity = r.CreatedAt
		}
		rooms = append(rooms, &r)
	}
	return rooms, rows.Err()
}
