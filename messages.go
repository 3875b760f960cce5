package mailsim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Mohsin-h27/mailsim/store"
)

// Fixed internal dates assigned by the message lifecycle. The
// simulation never consults the clock for message timestamps, so runs
// are reproducible.
const (
	internalDateImport = "123456789"
	internalDateInsert = "234567890"
	internalDateSend   = "345678901"
)

// Id formats per entry point. Inserted and sent messages are
// distinguishable by id shape.
const (
	messageIDFormat = "message-%d"
	sentIDFormat    = "msg_%d"
	threadIDFormat  = "thread-%d"
)

// attachmentStubData is returned for attachment ids that have no stored
// content.
const attachmentStubData = "base64encoded=="

// InsertOptions are the optional parameters of Insert and Import.
type InsertOptions struct {
	// Deleted marks the message as deleted on arrival: the DELETED
	// label is appended after the defaults.
	Deleted bool

	// InternalDateSource is accepted for interface compatibility and
	// has no effect; internal dates are fixed per entry point.
	InternalDateSource string
}

// MessagesClient is the message lifecycle: list, get, the three create
// paths, label mutations, trash and deletion.
//
// Get, Trash, Untrash, Modify and Delete treat an unknown message id as
// a soft miss: they return a nil message and a nil error. Only an
// unknown user is a hard error.
type MessagesClient struct {
	m *userMailbox
}

// List returns messages filtered by query and label ids, in insertion
// order, trimmed to the page size. NextPageToken is always empty.
func (c *MessagesClient) List(ctx context.Context, opts ListOptions) (_ *MessageList, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Messages.List")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "messages_list", time.Since(start), retErr)
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

	if max := opts.pageSize(c.m.service.opts.maxResults); len(msgs) > max {
		msgs = msgs[:max]
	}

	return &MessageList{Messages: msgs}, nil
}

// Get returns the message, or nil when the id is unknown.
func (c *MessagesClient) Get(ctx context.Context, id string) (_ *store.Message, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Messages.Get")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "messages_get", time.Since(start), retErr)
	}()

	msg, err := c.m.service.store.GetMessage(ctx, c.m.userID, id)
	if miss, err := softMiss(err); miss || err != nil {
		return nil, err
	}
	return msg, nil
}

// Insert stores a message as if it arrived through normal delivery.
// The message gets a fresh id and, when none is supplied, a thread id
// derived from the same counter value; an empty label set defaults to
// INBOX and UNREAD. The input is not modified.
func (c *MessagesClient) Insert(ctx context.Context, msg *store.Message, opts *InsertOptions) (_ *store.Message, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Messages.Insert")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "messages_insert", time.Since(start), retErr)
	}()

	if opts == nil {
		opts = &InsertOptions{}
	}

	stored := msg.Clone()
	if stored == nil {
		stored = &store.Message{}
	}

	n, err := c.m.service.store.NextID(ctx, store.KindMessage)
	if err != nil {
		return nil, fmt.Errorf("next message id: %w", err)
	}
	stored.ID = fmt.Sprintf(messageIDFormat, n)
	if stored.ThreadID == "" {
		stored.ThreadID = fmt.Sprintf(threadIDFormat, n)
	}

	if len(stored.LabelIDs) == 0 {
		stored.LabelIDs = []string{store.LabelInbox, store.LabelUnread}
	}
	if opts.Deleted {
		stored.AddLabel(store.LabelDeleted)
	}
	if stored.InternalDate == "" {
		stored.InternalDate = internalDateInsert
	}

	if err := c.m.service.store.PutMessage(ctx, c.m.userID, stored); err != nil {
		return nil, fmt.Errorf("put message: %w", err)
	}
	return stored, nil
}

// Import stores a message as if migrated from an external system. Only
// the raw payload survives: headers, body and labels are discarded and
// the stored record carries an empty label set.
func (c *MessagesClient) Import(ctx context.Context, msg *store.Message, opts *InsertOptions) (_ *store.Message, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Messages.Import")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "messages_import", time.Since(start), retErr)
	}()

	if opts == nil {
		opts = &InsertOptions{}
	}

	id, err := c.m.nextID(ctx, store.KindMessage, sentIDFormat)
	if err != nil {
		return nil, err
	}

	stored := &store.Message{
		ID:           id,
		LabelIDs:     []string{},
		InternalDate: internalDateImport,
	}
	if msg != nil {
		stored.Raw = msg.Raw
	}
	if opts.Deleted {
		stored.AddLabel(store.LabelDeleted)
	}

	if err := c.m.service.store.PutMessage(ctx, c.m.userID, stored); err != nil {
		return nil, fmt.Errorf("put message: %w", err)
	}
	return stored, nil
}

// Send stores a message as sent mail. The label set is forced to
// exactly SENT regardless of input, and a missing thread id gets a
// fresh one. Publishes a MessageSent event.
func (c *MessagesClient) Send(ctx context.Context, msg *store.Message) (_ *store.Message, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Messages.Send")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "messages_send", time.Since(start), retErr)
	}()

	stored := msg.Clone()
	if stored == nil {
		stored = &store.Message{}
	}

	n, err := c.m.service.store.NextID(ctx, store.KindMessage)
	if err != nil {
		return nil, fmt.Errorf("next message id: %w", err)
	}
	stored.ID = fmt.Sprintf(sentIDFormat, n)
	if stored.ThreadID == "" {
		stored.ThreadID = fmt.Sprintf(threadIDFormat, n)
	}

	stored.LabelIDs = []string{store.LabelSent}
	if stored.InternalDate == "" {
		stored.InternalDate = internalDateSend
	}

	if err := c.m.service.store.PutMessage(ctx, c.m.userID, stored); err != nil {
		return nil, fmt.Errorf("put message: %w", err)
	}

	if err := publish(ctx, c.m, "MessageSent", c.m.service.events.MessageSent, MessageSentEvent{
		MessageID: stored.ID,
		UserID:    c.m.userID,
		Recipient: stored.Recipient,
		Subject:   stored.Subject,
		SentAt:    time.Now().UTC(),
	}); err != nil {
		return stored, err
	}
	return stored, nil
}

// Trash adds the TRASH label. Idempotent; nil for an unknown id.
// Publishes a MessageTrashed event when the message exists.
func (c *MessagesClient) Trash(ctx context.Context, id string) (_ *store.Message, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Messages.Trash")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "messages_trash", time.Since(start), retErr)
	}()

	msg, err := c.m.service.store.GetMessage(ctx, c.m.userID, id)
	if miss, err := softMiss(err); miss || err != nil {
		return nil, err
	}

	msg.AddLabel(store.LabelTrash)
	if err := c.m.service.store.PutMessage(ctx, c.m.userID, msg); err != nil {
		return nil, fmt.Errorf("put message: %w", err)
	}

	if err := publish(ctx, c.m, "MessageTrashed", c.m.service.events.MessageTrashed, MessageTrashedEvent{
		MessageID: msg.ID,
		UserID:    c.m.userID,
		TrashedAt: time.Now().UTC(),
	}); err != nil {
		return msg, err
	}
	return msg, nil
}

// Untrash removes the TRASH label. Idempotent; nil for an unknown id.
func (c *MessagesClient) Untrash(ctx context.Context, id string) (_ *store.Message, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Messages.Untrash")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "messages_untrash", time.Since(start), retErr)
	}()

	msg, err := c.m.service.store.GetMessage(ctx, c.m.userID, id)
	if miss, err := softMiss(err); miss || err != nil {
		return nil, err
	}

	msg.RemoveLabel(store.LabelTrash)
	if err := c.m.service.store.PutMessage(ctx, c.m.userID, msg); err != nil {
		return nil, fmt.Errorf("put message: %w", err)
	}
	return msg, nil
}

// Modify applies label additions then removals. Adding a label that is
// already present or removing one that is absent is a no-op; insertion
// order of surviving labels is preserved. Nil for an unknown id.
func (c *MessagesClient) Modify(ctx context.Context, id string, addLabelIDs, removeLabelIDs []string) (_ *store.Message, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Messages.Modify")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "messages_modify", time.Since(start), retErr)
	}()

	msg, err := c.m.service.store.GetMessage(ctx, c.m.userID, id)
	if miss, err := softMiss(err); miss || err != nil {
		return nil, err
	}

	for _, l := range addLabelIDs {
		msg.AddLabel(l)
	}
	for _, l := range removeLabelIDs {
		msg.RemoveLabel(l)
	}

	if err := c.m.service.store.PutMessage(ctx, c.m.userID, msg); err != nil {
		return nil, fmt.Errorf("put message: %w", err)
	}
	return msg, nil
}

// Delete permanently removes the message and returns it, or nil when
// the id is unknown. Publishes a MessageDeleted event on removal.
func (c *MessagesClient) Delete(ctx context.Context, id string) (_ *store.Message, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Messages.Delete")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "messages_delete", time.Since(start), retErr)
	}()

	return c.deleteOne(ctx, id)
}

func (c *MessagesClient) deleteOne(ctx context.Context, id string) (*store.Message, error) {
	msg, err := c.m.service.store.GetMessage(ctx, c.m.userID, id)
	if miss, err := softMiss(err); miss || err != nil {
		return nil, err
	}

	if err := c.m.service.store.DeleteMessage(ctx, c.m.userID, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("delete message: %w", err)
	}

	if err := publish(ctx, c.m, "MessageDeleted", c.m.service.events.MessageDeleted, MessageDeletedEvent{
		MessageID: id,
		UserID:    c.m.userID,
		DeletedAt: time.Now().UTC(),
	}); err != nil {
		return msg, err
	}
	return msg, nil
}

// BatchDelete removes each id independently. Unknown ids are skipped;
// one bad id never aborts the batch.
func (c *MessagesClient) BatchDelete(ctx context.Context, ids []string) (retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Messages.BatchDelete")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "messages_batch_delete", time.Since(start), retErr)
	}()

	for _, id := range ids {
		if _, err := c.deleteOne(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// BatchModify applies the same label mutation to each id independently.
// Unknown ids are skipped.
func (c *MessagesClient) BatchModify(ctx context.Context, ids []string, addLabelIDs, removeLabelIDs []string) (retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Messages.BatchModify")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "messages_batch_modify", time.Since(start), retErr)
	}()

	for _, id := range ids {
		msg, err := c.m.service.store.GetMessage(ctx, c.m.userID, id)
		if miss, err := softMiss(err); miss {
			continue
		} else if err != nil {
			return err
		}

		for _, l := range addLabelIDs {
			msg.AddLabel(l)
		}
		for _, l := range removeLabelIDs {
			msg.RemoveLabel(l)
		}

		if err := c.m.service.store.PutMessage(ctx, c.m.userID, msg); err != nil {
			return fmt.Errorf("put message: %w", err)
		}
	}
	return nil
}

// Attachment returns the attachment by id. Nil when the message is
// unknown; an id with no stored content yields a placeholder record so
// callers exercising download paths always get data back.
func (c *MessagesClient) Attachment(ctx context.Context, messageID, attachmentID string) (_ *store.Attachment, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Messages.Attachment")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "messages_attachment", time.Since(start), retErr)
	}()

	msg, err := c.m.service.store.GetMessage(ctx, c.m.userID, messageID)
	if miss, err := softMiss(err); miss || err != nil {
		return nil, err
	}

	for i := range msg.Attachments {
		if msg.Attachments[i].ID == attachmentID {
			a := msg.Attachments[i]
			return &a, nil
		}
	}
	return &store.Attachment{ID: attachmentID, Data: attachmentStubData}, nil
}
