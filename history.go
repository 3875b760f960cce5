package mailsim

import (
	"context"
	"fmt"
	"time"

	"github.com/Mohsin-h27/mailsim/store"
)

// HistoryClient reads the append-only mutation log. The built-in
// operations never write to it; entries come from Append, which is the
// hook for callers that want a populated change feed in their fixtures.
type HistoryClient struct {
	m *userMailbox
}

// List returns the first page of the log along with the profile's
// current history id. StartHistoryID and the other filter fields are
// accepted and inert.
func (c *HistoryClient) List(ctx context.Context, opts HistoryListOptions) (_ *HistoryList, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.History.List")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "history_list", time.Since(start), retErr)
	}()

	entries, err := c.m.service.store.ListHistory(ctx, c.m.userID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	max := opts.MaxResults
	if max <= 0 {
		max = c.m.service.opts.maxResults
	}
	if len(entries) > max {
		entries = entries[:max]
	}

	profile, err := c.m.service.store.GetProfile(ctx, c.m.userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	return &HistoryList{
		History:   entries,
		HistoryID: profile.HistoryID,
	}, nil
}

// Append records a mutation entry with a fresh id and returns it.
func (c *HistoryClient) Append(ctx context.Context, action, messageID string, labelIDs []string) (_ *store.HistoryEntry, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.History.Append")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "history_append", time.Since(start), retErr)
	}()

	id, err := c.m.nextID(ctx, store.KindHistory, "%d")
	if err != nil {
		return nil, err
	}

	e := &store.HistoryEntry{
		ID:        id,
		Action:    action,
		MessageID: messageID,
	}
	if labelIDs != nil {
		e.LabelIDs = append([]string(nil), labelIDs...)
	}

	if err := c.m.service.store.AppendHistory(ctx, c.m.userID, e); err != nil {
		return nil, fmt.Errorf("append history: %w", err)
	}
	return e, nil
}
