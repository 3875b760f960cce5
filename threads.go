package mailsim

import (
	"context"
	"fmt"
	"time"

	"github.com/Mohsin-h27/mailsim/store"
)

// ThreadsClient exposes conversations as derived groupings: a thread is
// the set of messages sharing one thread id, in insertion order.
// Threads are never materialized, so a thread with no remaining
// messages simply does not exist and thread mutations are per-message
// label mutations.
//
// Get, Modify, Trash, Untrash and Delete treat an unknown thread id as
// a soft miss.
type ThreadsClient struct {
	m *userMailbox
}

// List groups matching messages by thread id, in order of each
// thread's first message, trimmed to the page size.
func (c *ThreadsClient) List(ctx context.Context, opts ListOptions) (_ *ThreadList, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Threads.List")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "threads_list", time.Since(start), retErr)
	}()

	msgs, err := c.m.service.store.ListMessages(ctx, c.m.userID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	msgs = store.CompileQuery(opts.Query, store.ModeMessage).Filter(msgs)
	if len(opts.LabelIDs) > 0 {
		kept := msgs[:0]
		for _, msg := range msgs {
			if store.HasAllLabels(msg, opts.LabelIDs) {
				kept = append(kept, msg)
			}
		}
		msgs = kept
	}

	var threads []*Thread
	byID := make(map[string]*Thread)
	for _, msg := range msgs {
		if msg.ThreadID == "" {
			continue
		}
		t, ok := byID[msg.ThreadID]
		if !ok {
			t = &Thread{ID: msg.ThreadID}
			byID[msg.ThreadID] = t
			threads = append(threads, t)
		}
		t.Messages = append(t.Messages, msg)
	}

	if max := opts.pageSize(c.m.service.opts.maxResults); len(threads) > max {
		threads = threads[:max]
	}

	return &ThreadList{Threads: threads}, nil
}

// Get returns the thread, or nil when no message carries the id.
func (c *ThreadsClient) Get(ctx context.Context, id string) (_ *Thread, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Threads.Get")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "threads_get", time.Since(start), retErr)
	}()

	return c.collect(ctx, id)
}

// Modify applies the label mutation to every message in the thread.
// Nil for an unknown thread id.
func (c *ThreadsClient) Modify(ctx context.Context, id string, addLabelIDs, removeLabelIDs []string) (_ *Thread, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Threads.Modify")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "threads_modify", time.Since(start), retErr)
	}()

	return c.mutate(ctx, id, func(msg *store.Message) {
		for _, l := range addLabelIDs {
			msg.AddLabel(l)
		}
		for _, l := range removeLabelIDs {
			msg.RemoveLabel(l)
		}
	})
}

// Trash adds TRASH to every message in the thread. Idempotent; nil for
// an unknown thread id.
func (c *ThreadsClient) Trash(ctx context.Context, id string) (_ *Thread, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Threads.Trash")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "threads_trash", time.Since(start), retErr)
	}()

	return c.mutate(ctx, id, func(msg *store.Message) {
		msg.AddLabel(store.LabelTrash)
	})
}

// Untrash removes TRASH from every message in the thread.
func (c *ThreadsClient) Untrash(ctx context.Context, id string) (_ *Thread, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Threads.Untrash")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "threads_untrash", time.Since(start), retErr)
	}()

	return c.mutate(ctx, id, func(msg *store.Message) {
		msg.RemoveLabel(store.LabelTrash)
	})
}

// Delete permanently removes every message in the thread and returns
// the removed thread, or nil when the id is unknown. Publishes a
// MessageDeleted event per message.
func (c *ThreadsClient) Delete(ctx context.Context, id string) (_ *Thread, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Threads.Delete")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "threads_delete", time.Since(start), retErr)
	}()

	t, err := c.collect(ctx, id)
	if t == nil || err != nil {
		return nil, err
	}

	for _, msg := range t.Messages {
		if err := c.m.service.store.DeleteMessage(ctx, c.m.userID, msg.ID); err != nil {
			return nil, fmt.Errorf("delete message: %w", err)
		}
		if err := publish(ctx, c.m, "MessageDeleted", c.m.service.events.MessageDeleted, MessageDeletedEvent{
			MessageID: msg.ID,
			UserID:    c.m.userID,
			DeletedAt: time.Now().UTC(),
		}); err != nil {
			return t, err
		}
	}
	return t, nil
}

// collect gathers the thread's messages, nil when there are none.
func (c *ThreadsClient) collect(ctx context.Context, id string) (*Thread, error) {
	if id == "" {
		return nil, nil
	}

	msgs, err := c.m.service.store.ListMessages(ctx, c.m.userID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	t := &Thread{ID: id}
	for _, msg := range msgs {
		if msg.ThreadID == id {
			t.Messages = append(t.Messages, msg)
		}
	}
	if len(t.Messages) == 0 {
		return nil, nil
	}
	return t, nil
}

func (c *ThreadsClient) mutate(ctx context.Context, id string, fn func(*store.Message)) (*Thread, error) {
	t, err := c.collect(ctx, id)
	if t == nil || err != nil {
		return nil, err
	}

	for _, msg := range t.Messages {
		fn(msg)
		if err := c.m.service.store.PutMessage(ctx, c.m.userID, msg); err != nil {
			return nil, fmt.Errorf("put message: %w", err)
		}
	}
	return t, nil
}
