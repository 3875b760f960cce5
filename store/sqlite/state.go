package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"

	"github.com/Mohsin-h27/mailsim/store"
)

// GetSettings returns the user's settings record.
func (s *Store) GetSettings(ctx context.Context, userID string) (*store.Settings, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	var raw string
	err := s.db.GetContext(ctx, &raw, `SELECT settings FROM users WHERE id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	var set store.Settings
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	return &set, nil
}

// PutSettings replaces the user's settings record.
func (s *Store) PutSettings(ctx context.Context, userID string, set *store.Settings) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	raw, err := json.Marshal(set)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	return s.updateUserColumn(ctx, userID, "settings", string(raw))
}

// AppendHistory appends an entry to the mutation log.
func (s *Store) AppendHistory(ctx context.Context, userID string, e *store.HistoryEntry) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if err := s.EnsureUser(ctx, userID); err != nil {
		return err
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO history (user_id, data) VALUES (?, ?)`, userID, string(raw)); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// ListHistory returns all entries in append order.
func (s *Store) ListHistory(ctx context.Context, userID string) ([]*store.HistoryEntry, error) {
	rows, err := s.listRecords(ctx, "history", userID)
	if err != nil {
		return nil, err
	}
	out := make([]*store.HistoryEntry, 0, len(rows))
	for _, raw := range rows {
		var e store.HistoryEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("unmarshal history: %w", err)
		}
		out = append(out, &e)
	}
	return out, nil
}

// GetWatch returns the current watch descriptor, or nil when unset.
func (s *Store) GetWatch(ctx context.Context, userID string) (*store.Watch, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	var raw sql.NullString
	err := s.db.GetContext(ctx, &raw, `SELECT watch FROM users WHERE id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query watch: %w", err)
	}
	if !raw.Valid {
		return nil, nil
	}
	var w store.Watch
	if err := json.Unmarshal([]byte(raw.String), &w); err != nil {
		return nil, fmt.Errorf("unmarshal watch: %w", err)
	}
	return &w, nil
}

// PutWatch overwrites the watch descriptor.
func (s *Store) PutWatch(ctx context.Context, userID string, w *store.Watch) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	raw, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("marshal watch: %w", err)
	}
	return s.updateUserColumn(ctx, userID, "watch", string(raw))
}

// ClearWatch removes the watch descriptor.
func (s *Store) ClearWatch(ctx context.Context, userID string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	return s.updateUserColumn(ctx, userID, "watch", nil)
}

// Snapshot reads the full database into a store.State.
func (s *Store) Snapshot(ctx context.Context) (*store.State, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	st := &store.State{
		Users:    make(map[string]*store.User),
		Counters: make(map[string]int64),
	}

	var userIDs []string
	if err := s.db.SelectContext(ctx, &userIDs, `SELECT id FROM users ORDER BY id`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	for _, userID := range userIDs {
		u, err := s.snapshotUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		st.Users[userID] = u
	}

	rows, err := s.db.QueryContext(ctx, `SELECT kind, value FROM counters`)
	if err != nil {
		return nil, fmt.Errorf("list counters: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var value int64
		if err := rows.Scan(&kind, &value); err != nil {
			return nil, fmt.Errorf("scan counter: %w", err)
		}
		st.Counters[kind] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate counters: %w", err)
	}

	return st, nil
}

func (s *Store) snapshotUser(ctx context.Context, userID string) (*store.User, error) {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	settings, err := s.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	watch, err := s.GetWatch(ctx, userID)
	if err != nil {
		return nil, err
	}
	messages, err := s.ListMessages(ctx, userID)
	if err != nil {
		return nil, err
	}
	drafts, err := s.ListDrafts(ctx, userID)
	if err != nil {
		return nil, err
	}
	labels, err := s.ListLabels(ctx, userID)
	if err != nil {
		return nil, err
	}
	history, err := s.ListHistory(ctx, userID)
	if err != nil {
		return nil, err
	}

	u := &store.User{
		Profile:  profile,
		Settings: settings,
		Watch:    watch,
		Messages: make(map[string]*store.Message, len(messages)),
		Drafts:   make(map[string]*store.Draft, len(drafts)),
		Labels:   make(map[string]*store.Label, len(labels)),
		History:  history,
	}
	for _, m := range messages {
		u.Messages[m.ID] = m
		u.MessageOrder = append(u.MessageOrder, m.ID)
	}
	for _, d := range drafts {
		u.Drafts[d.ID] = d
		u.DraftOrder = append(u.DraftOrder, d.ID)
	}
	for _, l := range labels {
		u.Labels[l.ID] = l
		u.LabelOrder = append(u.LabelOrder, l.ID)
	}
	return u, nil
}

// Restore replaces the full database state with the snapshot,
// inside a single transaction.
func (s *Store) Restore(ctx context.Context, st *store.State) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if st == nil {
		return store.ErrInvalidState
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin restore: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"users", "messages", "drafts", "labels", "history", "counters"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for userID, u := range st.Users {
		if err := restoreUser(ctx, tx, userID, u); err != nil {
			return err
		}
	}

	for kind, value := range st.Counters {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO counters (kind, value) VALUES (?, ?)`, kind, value); err != nil {
			return fmt.Errorf("restore counter: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit restore: %w", err)
	}
	return nil
}

func restoreUser(ctx context.Context, tx *sqlx.Tx, userID string, u *store.User) error {
	profile, err := json.Marshal(u.Profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	settings, err := json.Marshal(u.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	var watch any
	if u.Watch != nil {
		raw, err := json.Marshal(u.Watch)
		if err != nil {
			return fmt.Errorf("marshal watch: %w", err)
		}
		watch = string(raw)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (id, profile, settings, watch) VALUES (?, ?, ?, ?)`,
		userID, string(profile), string(settings), watch); err != nil {
		return fmt.Errorf("restore user: %w", err)
	}

	insert := func(table, id string, v any) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", table, err)
		}
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`INSERT INTO %s (user_id, id, data) VALUES (?, ?, ?)`, table),
			userID, id, string(raw)); err != nil {
			return fmt.Errorf("restore %s: %w", table, err)
		}
		return nil
	}

	for _, id := range orderedKeys(u.MessageOrder, mapKeys(u.Messages)) {
		if err := insert("messages", id, u.Messages[id]); err != nil {
			return err
		}
	}
	for _, id := range orderedKeys(u.DraftOrder, mapKeys(u.Drafts)) {
		if err := insert("drafts", id, u.Drafts[id]); err != nil {
			return err
		}
	}
	for _, id := range orderedKeys(u.LabelOrder, mapKeys(u.Labels)) {
		if err := insert("labels", id, u.Labels[id]); err != nil {
			return err
		}
	}
	for _, e := range u.History {
		raw, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal history: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO history (user_id, data) VALUES (?, ?)`, userID, string(raw)); err != nil {
			return fmt.Errorf("restore history: %w", err)
		}
	}
	return nil
}

func mapKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// orderedKeys follows the recorded insertion order where available and
// appends any keys it is missing, sorted for determinism.
func orderedKeys(order, keys []string) []string {
	present := make(map[string]bool, len(keys))
	for _, k := range keys {
		present[k] = true
	}
	out := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, id := range order {
		if present[id] && !seen[id] {
			out = append(out, id)
			seen[id] = true
		}
	}
	var missing []string
	for _, k := range keys {
		if !seen[k] {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return append(out, missing...)
}
