package mailsim

import (
	"context"
	"fmt"
	"time"

	"github.com/Mohsin-h27/mailsim/store"
)

const draftIDFormat = "draft-%d"

// DraftsClient is the draft lifecycle. A draft wraps an unsent message;
// the draft id and the nested message id are always the same value, and
// the nested message always carries the DRAFT label.
//
// Get, Update and Delete treat an unknown draft id as a soft miss.
type DraftsClient struct {
	m *userMailbox
}

// Create stores a new draft wrapping the given message. An empty label
// set defaults to exactly DRAFT; a non-empty one gets DRAFT appended
// unless some casing of it is already present. Publishes a DraftCreated
// event.
func (c *DraftsClient) Create(ctx context.Context, msg *store.Message) (_ *store.Draft, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Drafts.Create")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "drafts_create", time.Since(start), retErr)
	}()

	n, err := c.m.service.store.NextID(ctx, store.KindDraft)
	if err != nil {
		return nil, fmt.Errorf("next draft id: %w", err)
	}

	stored := msg.Clone()
	if stored == nil {
		stored = &store.Message{}
	}

	// The draft and its message share one id; a missing thread id is
	// derived from the same counter value.
	id := fmt.Sprintf(draftIDFormat, n)
	stored.ID = id
	if stored.ThreadID == "" {
		stored.ThreadID = fmt.Sprintf(threadIDFormat, n)
	}
	if len(stored.LabelIDs) == 0 {
		stored.LabelIDs = []string{store.LabelDraft}
	}
	ensureDraftLabel(stored)
	if stored.InternalDate == "" {
		stored.InternalDate = internalDateInsert
	}

	draft := &store.Draft{ID: id, Message: stored}
	if err := c.m.service.store.PutDraft(ctx, c.m.userID, draft); err != nil {
		return nil, fmt.Errorf("put draft: %w", err)
	}

	if err := publish(ctx, c.m, "DraftCreated", c.m.service.events.DraftCreated, DraftCreatedEvent{
		DraftID:   id,
		UserID:    c.m.userID,
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		return draft, err
	}
	return draft, nil
}

// List returns drafts whose nested message matches the query, in
// insertion order, trimmed to the page size. Label filtering does not
// apply to drafts.
func (c *DraftsClient) List(ctx context.Context, opts ListOptions) (_ *DraftList, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Drafts.List")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "drafts_list", time.Since(start), retErr)
	}()

	drafts, err := c.m.service.store.ListDrafts(ctx, c.m.userID)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}

	q := store.CompileQuery(opts.Query, store.ModeDraft)
	kept := drafts[:0]
	for _, d := range drafts {
		if q.Match(d.Message) {
			kept = append(kept, d)
		}
	}
	drafts = kept

	if max := opts.pageSize(c.m.service.opts.maxResults); len(drafts) > max {
		drafts = drafts[:max]
	}

	return &DraftList{Drafts: drafts}, nil
}

// Get returns the draft, or nil when the id is unknown.
func (c *DraftsClient) Get(ctx context.Context, id string) (_ *store.Draft, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Drafts.Get")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "drafts_get", time.Since(start), retErr)
	}()

	d, err := c.m.service.store.GetDraft(ctx, c.m.userID, id)
	if miss, err := softMiss(err); miss || err != nil {
		return nil, err
	}
	return d, nil
}

// Update merges the given fields into the draft's message. Zero-valued
// fields are left alone; the draft keeps its id and the DRAFT label is
// re-asserted. Nil for an unknown id.
func (c *DraftsClient) Update(ctx context.Context, id string, msg *store.Message) (_ *store.Draft, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Drafts.Update")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "drafts_update", time.Since(start), retErr)
	}()

	d, err := c.m.service.store.GetDraft(ctx, c.m.userID, id)
	if miss, err := softMiss(err); miss || err != nil {
		return nil, err
	}

	if d.Message == nil {
		d.Message = &store.Message{ID: d.ID}
	}
	if msg != nil {
		mergeMessage(d.Message, msg)
	}
	d.Message.ID = d.ID
	ensureDraftLabel(d.Message)

	if err := c.m.service.store.PutDraft(ctx, c.m.userID, d); err != nil {
		return nil, fmt.Errorf("put draft: %w", err)
	}
	return d, nil
}

// Delete removes the draft and returns it, or nil when the id is unknown.
func (c *DraftsClient) Delete(ctx context.Context, id string) (_ *store.Draft, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Drafts.Delete")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "drafts_delete", time.Since(start), retErr)
	}()

	d, err := c.m.service.store.GetDraft(ctx, c.m.userID, id)
	if miss, err := softMiss(err); miss || err != nil {
		return nil, err
	}

	if err := c.m.service.store.DeleteDraft(ctx, c.m.userID, id); err != nil {
		return nil, fmt.Errorf("delete draft: %w", err)
	}
	return d, nil
}

// Send converts a draft into sent mail and is never rejected. A known
// draft id forwards the stored draft's raw payload and removes the
// draft; an unknown or absent id forwards the supplied message's raw
// payload as new mail. Other fields of the supplied message never
// reach the sent record.
func (c *DraftsClient) Send(ctx context.Context, draft *store.Draft) (_ *store.Message, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Drafts.Send")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "drafts_send", time.Since(start), retErr)
	}()

	if draft != nil && draft.ID != "" {
		stored, err := c.m.service.store.GetDraft(ctx, c.m.userID, draft.ID)
		if miss, err := softMiss(err); err != nil {
			return nil, err
		} else if !miss {
			var raw string
			if stored.Message != nil {
				raw = stored.Message.Raw
			}
			sent, err := c.m.Messages().Send(ctx, &store.Message{Raw: raw})
			if err != nil {
				return nil, err
			}
			if err := c.m.service.store.DeleteDraft(ctx, c.m.userID, draft.ID); err != nil {
				return nil, fmt.Errorf("delete draft: %w", err)
			}
			return sent, nil
		}
	}

	var raw string
	if draft != nil && draft.Message != nil {
		raw = draft.Message.Raw
	}
	return c.m.Messages().Send(ctx, &store.Message{Raw: raw})
}

// ensureDraftLabel appends DRAFT unless some casing of it is present.
func ensureDraftLabel(m *store.Message) {
	if !m.HasLabelFold(store.LabelDraft) {
		m.LabelIDs = append(m.LabelIDs, store.LabelDraft)
	}
}

// mergeMessage copies the non-zero fields of src into dst.
func mergeMessage(dst, src *store.Message) {
	if src.ThreadID != "" {
		dst.ThreadID = src.ThreadID
	}
	if src.Raw != "" {
		dst.Raw = src.Raw
	}
	if src.Sender != "" {
		dst.Sender = src.Sender
	}
	if src.Recipient != "" {
		dst.Recipient = src.Recipient
	}
	if src.Subject != "" {
		dst.Subject = src.Subject
	}
	if src.Body != "" {
		dst.Body = src.Body
	}
	if src.Date != "" {
		dst.Date = src.Date
	}
	if src.InternalDate != "" {
		dst.InternalDate = src.InternalDate
	}
	if src.LabelIDs != nil {
		dst.LabelIDs = append([]string(nil), src.LabelIDs...)
	}
	if src.Attachments != nil {
		dst.Attachments = append([]store.Attachment(nil), src.Attachments...)
	}
}
