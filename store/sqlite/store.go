// Package sqlite provides a SQLite implementation of store.Store.
//
// Entities are stored as JSON documents keyed by (user_id, id); the
// rowid sequence preserves insertion order for listings. It exists so a
// test fixture can outlive the process; the contract is identical to
// the memory store, including the single-writer expectation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Mohsin-h27/mailsim/store"
)

// Compile-time check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using SQLite.
type Store struct {
	db        *sqlx.DB
	opts      *options
	connected int32
	logger    *slog.Logger
}

// New creates a SQLite store with the provided database connection.
// Call Connect() to initialize the schema.
func New(db *sqlx.DB, opts ...Option) *Store {
	o := newOptions(opts...)
	return &Store{
		db:     db,
		opts:   o,
		logger: o.logger,
	}
}

// Open creates a SQLite store backed by the file at path.
// Use ":memory:" for an ephemeral database.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sqlx.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	return New(db, opts...), nil
}

// Connect initializes the schema.
func (s *Store) Connect(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 0, 1) {
		return store.ErrAlreadyConnected
	}

	if s.db == nil {
		atomic.StoreInt32(&s.connected, 0)
		return fmt.Errorf("sqlite: db is required")
	}

	if err := s.db.PingContext(ctx); err != nil {
		atomic.StoreInt32(&s.connected, 0)
		return fmt.Errorf("sqlite ping: %w", err)
	}

	if err := s.ensureSchema(ctx); err != nil {
		atomic.StoreInt32(&s.connected, 0)
		return fmt.Errorf("ensure schema: %w", err)
	}

	s.logger.Info("connected to SQLite")
	return nil
}

// Close marks the store as disconnected and closes the database.
func (s *Store) Close(ctx context.Context) error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil
	}
	atomic.StoreInt32(&s.connected, 0)
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			profile TEXT NOT NULL,
			settings TEXT NOT NULL,
			watch TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			id TEXT NOT NULL,
			data TEXT NOT NULL,
			UNIQUE(user_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS drafts (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			id TEXT NOT NULL,
			data TEXT NOT NULL,
			UNIQUE(user_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS labels (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			id TEXT NOT NULL,
			data TEXT NOT NULL,
			UNIQUE(user_id, id)
		)`,
		`CREATE TABLE IF NOT EXISTS history (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			data TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS counters (
			kind TEXT PRIMARY KEY,
			value INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_user ON messages(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_drafts_user ON drafts(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_labels_user ON labels(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_history_user ON history(user_id)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec schema: %w", err)
		}
	}
	return nil
}

func (s *Store) checkConnected() error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return store.ErrNotConnected
	}
	return nil
}

// CreateUser creates a user row with a fresh profile and default settings.
func (s *Store) CreateUser(ctx context.Context, userID, emailAddress string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	profile, err := json.Marshal(&store.Profile{EmailAddress: emailAddress, HistoryID: "1"})
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	settings, err := json.Marshal(store.DefaultSettings())
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, profile, settings) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		userID, string(profile), string(settings))
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrAlreadyExists
	}
	return nil
}

// UserExists reports whether the user id is known.
func (s *Store) UserExists(ctx context.Context, userID string) (bool, error) {
	if err := s.checkConnected(); err != nil {
		return false, err
	}
	var one int
	err := s.db.GetContext(ctx, &one, `SELECT 1 FROM users WHERE id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query user: %w", err)
	}
	return true, nil
}

// EnsureUser returns store.ErrNotFound when the user is absent.
func (s *Store) EnsureUser(ctx context.Context, userID string) error {
	ok, err := s.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrNotFound
	}
	return nil
}

// GetProfile returns the user's profile.
func (s *Store) GetProfile(ctx context.Context, userID string) (*store.Profile, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	var raw string
	err := s.db.GetContext(ctx, &raw, `SELECT profile FROM users WHERE id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}
	var p store.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	return &p, nil
}

// PutProfile replaces the user's profile.
func (s *Store) PutProfile(ctx context.Context, userID string, p *store.Profile) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	return s.updateUserColumn(ctx, userID, "profile", string(raw))
}

// NextID increments and returns the counter for kind.
func (s *Store) NextID(ctx context.Context, kind string) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}
	var value int64
	err := s.db.GetContext(ctx, &value,
		`INSERT INTO counters (kind, value) VALUES (?, 1)
		 ON CONFLICT(kind) DO UPDATE SET value = value + 1
		 RETURNING value`, kind)
	if err != nil {
		return 0, fmt.Errorf("next id: %w", err)
	}
	return value, nil
}

// updateUserColumn writes a single JSON column on the user row,
// surfacing store.ErrNotFound for an unknown user.
func (s *Store) updateUserColumn(ctx context.Context, userID, column string, value any) error {
	// column is always a compile-time constant from this package.
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`UPDATE users SET %s = ? WHERE id = ?`, column), value, userID)
	if err != nil {
		return fmt.Errorf("update user %s: %w", column, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
