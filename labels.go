package mailsim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Mohsin-h27/mailsim/store"
)

const labelIDFormat = "Label_%d"

// Default visibility values for new labels.
const (
	defaultLabelListVisibility   = "labelShow"
	defaultMessageListVisibility = "show"
)

// LabelsClient manages the per-user label mapping. Deleting a label
// does not rewrite the label sets of existing messages.
//
// Get, Update and Patch treat an unknown label id as a soft miss, and
// Delete of an unknown id is silently ignored.
type LabelsClient struct {
	m *userMailbox
}

// Create stores a new label. The name defaults to the generated id;
// visibility fields default to labelShow and show.
func (c *LabelsClient) Create(ctx context.Context, l *store.Label) (_ *store.Label, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Labels.Create")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "labels_create", time.Since(start), retErr)
	}()

	stored := l.Clone()
	if stored == nil {
		stored = &store.Label{}
	}

	id, err := c.m.nextID(ctx, store.KindLabel, labelIDFormat)
	if err != nil {
		return nil, err
	}
	stored.ID = id

	if stored.Name == "" {
		stored.Name = id
	}
	if stored.LabelListVisibility == "" {
		stored.LabelListVisibility = defaultLabelListVisibility
	}
	if stored.MessageListVisibility == "" {
		stored.MessageListVisibility = defaultMessageListVisibility
	}

	if err := c.m.service.store.PutLabel(ctx, c.m.userID, stored); err != nil {
		return nil, fmt.Errorf("put label: %w", err)
	}
	return stored, nil
}

// List returns all labels in creation order.
func (c *LabelsClient) List(ctx context.Context) (_ []*store.Label, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Labels.List")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "labels_list", time.Since(start), retErr)
	}()

	return c.m.service.store.ListLabels(ctx, c.m.userID)
}

// Get returns the label, or nil when the id is unknown.
func (c *LabelsClient) Get(ctx context.Context, id string) (_ *store.Label, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Labels.Get")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "labels_get", time.Since(start), retErr)
	}()

	l, err := c.m.service.store.GetLabel(ctx, c.m.userID, id)
	if miss, err := softMiss(err); miss || err != nil {
		return nil, err
	}
	return l, nil
}

// Update merges the non-empty fields of l into the label. The id is
// immutable. Nil for an unknown id.
func (c *LabelsClient) Update(ctx context.Context, id string, l *store.Label) (_ *store.Label, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Labels.Update")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "labels_update", time.Since(start), retErr)
	}()

	return c.merge(ctx, id, l)
}

// Patch is Update under the partial-update verb. Both merge field by
// field, so the two are interchangeable here.
func (c *LabelsClient) Patch(ctx context.Context, id string, l *store.Label) (_ *store.Label, retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Labels.Patch")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "labels_patch", time.Since(start), retErr)
	}()

	return c.merge(ctx, id, l)
}

func (c *LabelsClient) merge(ctx context.Context, id string, l *store.Label) (*store.Label, error) {
	stored, err := c.m.service.store.GetLabel(ctx, c.m.userID, id)
	if miss, err := softMiss(err); miss || err != nil {
		return nil, err
	}

	if l != nil {
		if l.Name != "" {
			stored.Name = l.Name
		}
		if l.Type != "" {
			stored.Type = l.Type
		}
		if l.MessageListVisibility != "" {
			stored.MessageListVisibility = l.MessageListVisibility
		}
		if l.LabelListVisibility != "" {
			stored.LabelListVisibility = l.LabelListVisibility
		}
	}

	if err := c.m.service.store.PutLabel(ctx, c.m.userID, stored); err != nil {
		return nil, fmt.Errorf("put label: %w", err)
	}
	return stored, nil
}

// Delete removes the label. Unknown ids are ignored; messages carrying
// the label keep it.
func (c *LabelsClient) Delete(ctx context.Context, id string) (retErr error) {
	if err := c.m.checkAccess(ctx); err != nil {
		return err
	}

	start := time.Now()
	ctx, end := c.m.service.otel.startSpan(ctx, "mailsim.Labels.Delete")
	defer func() {
		end(retErr)
		c.m.service.otel.recordOp(ctx, "labels_delete", time.Since(start), retErr)
	}()

	if err := c.m.service.store.DeleteLabel(ctx, c.m.userID, id); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("delete label: %w", err)
	}
	return nil
}
