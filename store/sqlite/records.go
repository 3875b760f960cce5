package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Mohsin-h27/mailsim/store"
)

// putRecord upserts a JSON document into a keyed collection table.
// Replacing keeps the original rowid, so insertion order is stable.
func (s *Store) putRecord(ctx context.Context, table, userID, id string, v any) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if err := s.EnsureUser(ctx, userID); err != nil {
		return err
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", table, err)
	}
	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (user_id, id, data) VALUES (?, ?, ?)
			ON CONFLICT(user_id, id) DO UPDATE SET data = excluded.data`, table),
		userID, id, string(raw))
	if err != nil {
		return fmt.Errorf("put %s: %w", table, err)
	}
	return nil
}

func (s *Store) getRecord(ctx context.Context, table, userID, id string, dest any) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if err := s.EnsureUser(ctx, userID); err != nil {
		return err
	}
	var raw string
	err := s.db.GetContext(ctx, &raw,
		fmt.Sprintf(`SELECT data FROM %s WHERE user_id = ? AND id = ?`, table), userID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get %s: %w", table, err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("unmarshal %s: %w", table, err)
	}
	return nil
}

func (s *Store) deleteRecord(ctx context.Context, table, userID, id string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}
	if err := s.EnsureUser(ctx, userID); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE user_id = ? AND id = ?`, table), userID, id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
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

func (s *Store) listRecords(ctx context.Context, table, userID string) ([]string, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}
	if err := s.EnsureUser(ctx, userID); err != nil {
		return nil, err
	}
	var rows []string
	err := s.db.SelectContext(ctx, &rows,
		fmt.Sprintf(`SELECT data FROM %s WHERE user_id = ? ORDER BY seq`, table), userID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	return rows, nil
}

// PutMessage inserts or replaces a message.
func (s *Store) PutMessage(ctx context.Context, userID string, msg *store.Message) error {
	return s.putRecord(ctx, "messages", userID, msg.ID, msg)
}

// GetMessage returns the message or store.ErrNotFound.
func (s *Store) GetMessage(ctx context.Context, userID, id string) (*store.Message, error) {
	var msg store.Message
	if err := s.getRecord(ctx, "messages", userID, id, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// DeleteMessage removes the message or returns store.ErrNotFound.
func (s *Store) DeleteMessage(ctx context.Context, userID, id string) error {
	return s.deleteRecord(ctx, "messages", userID, id)
}

// ListMessages returns all messages in insertion order.
func (s *Store) ListMessages(ctx context.Context, userID string) ([]*store.Message, error) {
	rows, err := s.listRecords(ctx, "messages", userID)
	if err != nil {
		return nil, err
	}
	out := make([]*store.Message, 0, len(rows))
	for _, raw := range rows {
		var msg store.Message
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			return nil, fmt.Errorf("unmarshal message: %w", err)
		}
		out = append(out, &msg)
	}
	return out, nil
}

// PutDraft inserts or replaces a draft.
func (s *Store) PutDraft(ctx context.Context, userID string, d *store.Draft) error {
	return s.putRecord(ctx, "drafts", userID, d.ID, d)
}

// GetDraft returns the draft or store.ErrNotFound.
func (s *Store) GetDraft(ctx context.Context, userID, id string) (*store.Draft, error) {
	var d store.Draft
	if err := s.getRecord(ctx, "drafts", userID, id, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// DeleteDraft removes the draft or returns store.ErrNotFound.
func (s *Store) DeleteDraft(ctx context.Context, userID, id string) error {
	return s.deleteRecord(ctx, "drafts", userID, id)
}

// ListDrafts returns all drafts in insertion order.
func (s *Store) ListDrafts(ctx context.Context, userID string) ([]*store.Draft, error) {
	rows, err := s.listRecords(ctx, "drafts", userID)
	if err != nil {
		return nil, err
	}
	out := make([]*store.Draft, 0, len(rows))
	for _, raw := range rows {
		var d store.Draft
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return nil, fmt.Errorf("unmarshal draft: %w", err)
		}
		out = append(out, &d)
	}
	return out, nil
}

// PutLabel inserts or replaces a label.
func (s *Store) PutLabel(ctx context.Context, userID string, l *store.Label) error {
	return s.putRecord(ctx, "labels", userID, l.ID, l)
}

// GetLabel returns the label or store.ErrNotFound.
func (s *Store) GetLabel(ctx context.Context, userID, id string) (*store.Label, error) {
	var l store.Label
	if err := s.getRecord(ctx, "labels", userID, id, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// DeleteLabel removes the label or returns store.ErrNotFound.
func (s *Store) DeleteLabel(ctx context.Context, userID, id string) error {
	return s.deleteRecord(ctx, "labels", userID, id)
}

// ListLabels returns all labels in insertion order.
func (s *Store) ListLabels(ctx context.Context, userID string) ([]*store.Label, error) {
	rows, err := s.listRecords(ctx, "labels", userID)
	if err != nil {
		return nil, err
	}
	out := make([]*store.Label, 0, len(rows))
	for _, raw := range rows {
		var l store.Label
		if err := json.Unmarshal([]byte(raw), &l); err != nil {
			return nil, fmt.Errorf("unmarshal label: %w", err)
		}
		out = append(out, &l)
	}
	return out, nil
}
