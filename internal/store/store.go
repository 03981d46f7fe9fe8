// Package store provides SQLite persistence for narratives client state.
//
// One database holds two key-value namespaces. Durable slots survive
// restarts. Session slots are keyed by a per-run session ID and are removed
// when that session ends.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrClosed is returned by every operation on a closed Store.
var ErrClosed = errors.New("store: closed")

// Store handles SQLite persistence. NOT an interface - concrete type.
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Store struct {
	db     *sql.DB
	mu     sync.RWMutex // Protects all database operations
	closed bool
}

// Open creates a new Store with the given database path.
// Creates tables if they don't exist.
// Uses WAL mode for better concurrent read performance (file-based DBs only).
func Open(dbPath string) (*Store, error) {
	connStr := dbPath
	if dbPath == ":memory:" {
		// Named per Store so separate in-memory stores never share data
		connStr = "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}

	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return s, nil
}

// createTables creates the slot tables if they don't exist.
func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS durable_slots (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS session_slots (
		session_id TEXT NOT NULL,
		key TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (session_id, key)
	);

	CREATE INDEX IF NOT EXISTS idx_session_slots_updated ON session_slots(updated_at);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
// Thread-safe: acquires write lock to prevent closing during in-flight operations.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// NewSessionID returns a fresh random session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// Durable returns the namespace whose slots survive restarts.
func (s *Store) Durable() *Namespace {
	return &Namespace{store: s}
}

// Session returns the namespace scoped to the given session ID.
// Panics on an empty ID, which would alias the durable namespace.
func (s *Store) Session(id string) *Namespace {
	if id == "" {
		panic("store: empty session id")
	}
	return &Namespace{store: s, session: id}
}

// EndSession removes every slot written under the session ID.
// Returns the number of slots removed.
func (s *Store) EndSession(id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	res, err := s.db.Exec(`DELETE FROM session_slots WHERE session_id = ?`, id)
	if err != nil {
		return 0, fmt.Errorf("end session %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// PruneSessions removes session slots not written for maxAge, which covers
// sessions whose process exited without calling EndSession.
func (s *Store) PruneSessions(maxAge time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	res, err := s.db.Exec(`DELETE FROM session_slots WHERE updated_at < ?`, time.Now().UTC().Add(-maxAge))
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Namespace is a key-value view over one slot table.
// The zero session ID selects the durable table.
type Namespace struct {
	store   *Store
	session string
}

// IsSession reports whether the namespace is session scoped.
func (n *Namespace) IsSession() bool {
	return n.session != ""
}

// SessionID returns the session this namespace is scoped to, or "".
func (n *Namespace) SessionID() string {
	return n.session
}

// Get returns the raw value stored under key. The bool is false when no slot
// exists.
func (n *Namespace) Get(key string) ([]byte, bool, error) {
	s := n.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, ErrClosed
	}

	var (
		value string
		err   error
	)
	if n.session == "" {
		err = s.db.QueryRow(`SELECT value FROM durable_slots WHERE key = ?`, key).Scan(&value)
	} else {
		err = s.db.QueryRow(`SELECT value FROM session_slots WHERE session_id = ? AND key = ?`, n.session, key).Scan(&value)
	}
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get slot %q: %w", key, err)
	}
	return []byte(value), true, nil
}

// Set overwrites the slot under key.
func (n *Namespace) Set(key string, value []byte) error {
	s := n.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	now := time.Now().UTC()
	var err error
	if n.session == "" {
		_, err = s.db.Exec(`
			INSERT INTO durable_slots (key, value, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET
				value = excluded.value,
				updated_at = excluded.updated_at
		`, key, string(value), now)
	} else {
		_, err = s.db.Exec(`
			INSERT INTO session_slots (session_id, key, value, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(session_id, key) DO UPDATE SET
				value = excluded.value,
				updated_at = excluded.updated_at
		`, n.session, key, string(value), now)
	}
	if err != nil {
		return fmt.Errorf("set slot %q: %w", key, err)
	}
	return nil
}

// Remove deletes the slot under key. Removing a missing slot is not an error.
func (n *Namespace) Remove(key string) error {
	s := n.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	var err error
	if n.session == "" {
		_, err = s.db.Exec(`DELETE FROM durable_slots WHERE key = ?`, key)
	} else {
		_, err = s.db.Exec(`DELETE FROM session_slots WHERE session_id = ? AND key = ?`, n.session, key)
	}
	if err != nil {
		return fmt.Errorf("remove slot %q: %w", key, err)
	}
	return nil
}

// Keys lists the keys present in the namespace, sorted.
func (n *Namespace) Keys() ([]string, error) {
	s := n.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var (
		rows *sql.Rows
		err  error
	)
	if n.session == "" {
		rows, err = s.db.Query(`SELECT key FROM durable_slots ORDER BY key`)
	} else {
		rows, err = s.db.Query(`SELECT key FROM session_slots WHERE session_id = ? ORDER BY key`, n.session)
	}
	if err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
