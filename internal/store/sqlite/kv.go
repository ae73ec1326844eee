package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SetObjectField sets one field of the hash at key.
func (s *SQLiteStore) SetObjectField(ctx context.Context, key, field, value string) error {
	return s.SetObject(ctx, key, map[string]string{field: value})
}

// SetObject sets several fields of the hash at key.
func (s *SQLiteStore) SetObject(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO kv_hash (key, field, value) VALUES (?, ?, ?)
			ON CONFLICT(key, field) DO UPDATE SET value = excluded.value
		`
		for field, value := range fields {
			if _, err := tx.ExecContext(ctx, query, key, field, value); err != nil {
				return fmt.Errorf("set object field %s.%s: %w", key, field, err)
			}
		}
		return nil
	})
}

// GetObject returns all fields of the hash at key.
func (s *SQLiteStore) GetObject(ctx context.Context, key string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT field, value FROM kv_hash WHERE key = ?`, key)
	if err != nil {
		return nil, fmt.Errorf("query object %s: %w", key, err)
	}
	defer rows.Close()

	obj := make(map[string]string)
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, fmt.Errorf("scan object field: %w", err)
		}
		obj[field] = value
	}
	return obj, rows.Err()
}

// GetObjectField returns one field and whether it exists.
func (s *SQLiteStore) GetObjectField(ctx context.Context, key, field string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM kv_hash WHERE key = ? AND field = ?
	`, key, field).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("query object field %s.%s: %w", key, field, err)
	}
	return value, true, nil
}

// Delete removes the key from both hash and sorted-set tables.
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM kv_hash WHERE key = ?`, key); err != nil {
			return fmt.Errorf("delete hash %s: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM kv_zset WHERE key = ?`, key); err != nil {
			return fmt.Errorf("delete zset %s: %w", key, err)
		}
		return nil
	})
}

// SortedSetAdd adds members with scores, updating existing scores.
func (s *SQLiteStore) SortedSetAdd(ctx context.Context, key string, scores []float64, members []string) error {
	if len(scores) != len(members) {
		return fmt.Errorf("sorted set add %s: %d scores for %d members", key, len(scores), len(members))
	}
	if len(members) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO kv_zset (key, member, score) VALUES (?, ?, ?)
			ON CONFLICT(key, member) DO UPDATE SET score = excluded.score
		`
		for i, member := range members {
			if _, err := tx.ExecContext(ctx, query, key, member, scores[i]); err != nil {
				return fmt.Errorf("sorted set add %s: %w", key, err)
			}
		}
		return nil
	})
}

// SortedSetRange returns members by ascending score; stop -1 means the end.
func (s *SQLiteStore) SortedSetRange(ctx context.Context, key string, start, stop int) ([]string, error) {
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
	rows, err := s.db.QueryContext(ctx, `
		SELECT member FROM kv_zset
		WHERE key = ?
		ORDER BY score, member
		LIMIT ? OFFSET ?
	`, key, limit, start)
	if err != nil {
		return nil, fmt.Errorf("query sorted set %s: %w", key, err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan sorted set member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// SortedSetRemove removes members from the set.
func (s *SQLiteStore) SortedSetRemove(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]any, 0, len(members)+1)
	args = append(args, key)
	for _, m := range members {
		args = append(args, m)
	}
	query := `DELETE FROM kv_zset WHERE key = ? AND member IN (` + placeholders(len(members)) + `)`
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sorted set remove %s: %w", key, err)
	}
	return nil
}

// SortedSetScore returns a member's score and whether it exists.
func (s *SQLiteStore) SortedSetScore(ctx context.Context, key, member string) (float64, bool, error) {
	var score float64
	err := s.db.QueryRowContext(ctx, `
		SELECT score FROM kv_zset WHERE key = ? AND member = ?
	`, key, member).Scan(&score)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("query sorted set score %s: %w", key, err)
	}
	return score, true, nil
}
