package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vovakirdan/wirechat-gateway/internal/store"
)

const userColumns = `id, username, password_hash, reputation, restrict_chat, created_at`

func scanUser(row interface{ Scan(...any) error }) (*store.User, error) {
	var user store.User
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&user.Reputation,
		&user.RestrictChat,
		&user.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser creates a new user with hashed password.
// Every user starts in the registered-users group.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*store.User, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			INSERT INTO users (username, password_hash)
			VALUES (?, ?)
		`, username, passwordHash)
		if err != nil {
			return fmt.Errorf("insert user: %w", err)
		}

		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("get last insert id: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO user_groups (uid, group_name) VALUES (?, ?)
		`, id, store.GroupRegisteredUsers); err != nil {
			return fmt.Errorf("insert default group: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", username, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// SetReputation overwrites a user's reputation.
func (s *SQLiteStore) SetReputation(ctx context.Context, uid int64, reputation int) error {
	return s.updateUser(ctx, `UPDATE users SET reputation = ? WHERE id = ?`, reputation, uid)
}

// SetRestrictChat toggles chat restriction for uid.
func (s *SQLiteStore) SetRestrictChat(ctx context.Context, uid int64, restrict bool) error {
	return s.updateUser(ctx, `UPDATE users SET restrict_chat = ? WHERE id = ?`, restrict, uid)
}

func (s *SQLiteStore) updateUser(ctx context.Context, query string, value any, uid int64) error {
	result, err := s.db.ExecContext(ctx, query, value, uid)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("user %d: %w", uid, store.ErrNotFound)
	}
	return nil
}

// AddUserToGroup adds the user to a named group.
func (s *SQLiteStore) AddUserToGroup(ctx context.Context, uid int64, group string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO user_groups (uid, group_name) VALUES (?, ?)
	`, uid, group)
	if err != nil {
		return fmt.Errorf("insert user group: %w", err)
	}
	return nil
}

// IsUserInGroup checks group membership.
func (s *SQLiteStore) IsUserInGroup(ctx context.Context, uid int64, group string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM user_groups WHERE uid = ? AND group_name = ?)
	`, uid, group).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query user group: %w", err)
	}
	return exists, nil
}

// ListUserGroups lists the groups a user belongs to.
func (s *SQLiteStore) ListUserGroups(ctx context.Context, uid int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT group_name FROM user_groups WHERE uid = ? ORDER BY group_name
	`, uid)
	if err != nil {
		return nil, fmt.Errorf("query user groups: %w", err)
	}
	defer rows.Close()

	var groups []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, fmt.Errorf("scan user group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// Follow records that uid follows followUID.
func (s *SQLiteStore) Follow(ctx context.Context, uid, followUID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO follows (uid, follow_uid) VALUES (?, ?)
	`, uid, followUID)
	if err != nil {
		return fmt.Errorf("insert follow: %w", err)
	}
	return nil
}

// Unfollow removes the follow edge from uid to followUID.
func (s *SQLiteStore) Unfollow(ctx context.Context, uid, followUID int64) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM follows WHERE uid = ? AND follow_uid = ?
	`, uid, followUID)
	if err != nil {
		return fmt.Errorf("delete follow: %w", err)
	}
	return nil
}

// IsFollowing checks whether uid follows followUID.
func (s *SQLiteStore) IsFollowing(ctx context.Context, uid, followUID int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM follows WHERE uid = ? AND follow_uid = ?)
	`, uid, followUID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query follow: %w", err)
	}
	return exists, nil
}
