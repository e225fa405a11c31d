package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Store is a durable key/value store satisfying cache.Cache. It is the
// sqlite session backend.
type Store struct {
	db  *DB
	ttl time.Duration
	now func() time.Time
}

// NewStore creates a store over db. A zero default ttl keeps entries until deleted.
func NewStore(db *DB, ttl time.Duration) *Store {
	return &Store{db: db, ttl: ttl, now: time.Now}
}

// Get returns the live value for key
func (s *Store) Get(key string) ([]byte, bool) {
	var (
		value     []byte
		expiresAt sql.NullInt64
	)
	err := s.db.QueryRow(`SELECT value, expires_at FROM kv WHERE key = ?`, key).Scan(&value, &expiresAt)
	if err != nil {
		return nil, false
	}
	if expiresAt.Valid && s.now().UnixNano() > expiresAt.Int64 {
		_, _ = s.db.Exec(`DELETE FROM kv WHERE key = ?`, key)
		return nil, false
	}
	return value, true
}

// Set upserts key
func (s *Store) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = s.ttl
	}
	var expiresAt sql.NullInt64
	if ttl > 0 {
		expiresAt = sql.NullInt64{Int64: s.now().Add(ttl).UnixNano(), Valid: true}
	}
	_, err := s.db.Exec(`
INSERT INTO kv (key, value, expires_at, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at, updated_at = CURRENT_TIMESTAMP`,
		key, value, expiresAt)
	if err != nil {
		return fmt.Errorf("store %s: %w", key, err)
	}
	return nil
}

// Delete removes key; a missing key is not an error
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec(`DELETE FROM kv WHERE key = ?`, key); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Clear removes every entry
func (s *Store) Clear() error {
	if _, err := s.db.Exec(`DELETE FROM kv`); err != nil {
		return fmt.Errorf("clear store: %w", err)
	}
	return nil
}
