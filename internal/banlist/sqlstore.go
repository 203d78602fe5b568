// internal/banlist/sqlstore.go
//
// SQL implementation of KeyedStore.
//
// Context
// -------
// Two small tables back the gate:
//
//	keyed_set   (k, member, PRIMARY KEY (k, member))
//	keyed_value (k PRIMARY KEY, v, expires_at NULL)
//
// Expiry is enforced on read: a value past expires_at reads as absent and
// is deleted lazily.  Queries are plain parameterised SQL against the
// pool from internal/database.
package banlist

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQLStore satisfies KeyedStore over a *sqlx.DB.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore wraps db.  The caller owns the pool's lifecycle.
func NewSQLStore(db *sqlx.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) SetAdd(ctx context.Context, key, member string) error {
	const q = `INSERT IGNORE INTO keyed_set (k, member) VALUES (?, ?)`
	_, err := s.db.ExecContext(ctx, q, key, member)
	return err
}

func (s *SQLStore) SetRemove(ctx context.Context, key, member string) error {
	const q = `DELETE FROM keyed_set WHERE k = ? AND member = ?`
	_, err := s.db.ExecContext(ctx, q, key, member)
	return err
}

func (s *SQLStore) SetContains(ctx context.Context, key, member string) (bool, error) {
	const q = `SELECT 1 FROM keyed_set WHERE k = ? AND member = ? LIMIT 1`
	var dummy int
	err := s.db.QueryRowContext(ctx, q, key, member).Scan(&dummy)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *SQLStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	const q = `SELECT member FROM keyed_set WHERE k = ?`
	members := make([]string, 0, 8)
	if err := s.db.SelectContext(ctx, &members, q, key); err != nil {
		return nil, err
	}
	return members, nil
}

func (s *SQLStore) PutValue(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	var exp *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		exp = &t
	}
	const q = `INSERT INTO keyed_value (k, v, expires_at) VALUES (?, ?, ?)
	           ON DUPLICATE KEY UPDATE v = VALUES(v), expires_at = VALUES(expires_at)`
	_, err := s.db.ExecContext(ctx, q, key, val, exp)
	return err
}

func (s *SQLStore) GetValue(ctx context.Context, key string) ([]byte, error) {
	const q = `SELECT v, expires_at FROM keyed_value WHERE k = ?`
	var row struct {
		V         []byte     `db:"v"`
		ExpiresAt *time.Time `db:"expires_at"`
	}
	err := s.db.GetContext(ctx, &row, q, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if row.ExpiresAt != nil && time.Now().After(*row.ExpiresAt) {
		_ = s.DeleteValue(ctx, key) // lazy expiry
		return nil, nil
	}
	return row.V, nil
}

func (s *SQLStore) DeleteValue(ctx context.Context, key string) error {
	const q = `DELETE FROM keyed_value WHERE k = ?`
	_, err := s.db.ExecContext(ctx, q, key)
	return err
}
