package mailsim

import (
	"context"
	"fmt"
	"time"

	"github.com/rbaliyan/event/v3"
)

// Event names for mailbox events.
const (
	EventNameMessageSent    = "mailsim.message.sent"
	EventNameMessageTrashed = "mailsim.message.trashed"
	EventNameMessageDeleted = "mailsim.message.deleted"
	EventNameDraftCreated   = "mailsim.draft.created"
	EventNameWatchStarted   = "mailsim.watch.started"
	EventNameWatchStopped   = "mailsim.watch.stopped"
)

// MessageSentEvent is published when a message is sent, whether
// directly or by sending a draft.
type MessageSentEvent struct {
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	SentAt    time.Time `json:"sent_at"`
}

// MessageTrashedEvent is published when a message gains the TRASH label.
type MessageTrashedEvent struct {
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	TrashedAt time.Time `json:"trashed_at"`
}

// MessageDeletedEvent is published when a message is permanently
// removed, including per-id removals inside a batch delete.
type MessageDeletedEvent struct {
	MessageID string    `json:"message_id"`
	UserID    string    `json:"user_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// DraftCreatedEvent is published when a draft is created.
type DraftCreatedEvent struct {
	DraftID   string    `json:"draft_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// WatchStartedEvent is published when a watch descriptor is recorded.
type WatchStartedEvent struct {
	UserID    string    `json:"user_id"`
	TopicName string    `json:"topic_name,omitempty"`
	HistoryID string    `json:"history_id"`
	StartedAt time.Time `json:"started_at"`
}

// WatchStoppedEvent is published when a watch descriptor is cleared.
type WatchStoppedEvent struct {
	UserID    string    `json:"user_id"`
	StoppedAt time.Time `json:"stopped_at"`
}

// ServiceEvents provides access to per-service event instances.
// Each service creates its own events bound to its own bus, enabling
// independent routing and parallel testing.
//
// Subscribe to events:
//
//	svc.Events().MessageSent.Subscribe(ctx, handler)
//	svc.Events().MessageTrashed.Subscribe(ctx, handler)
type ServiceEvents struct {
	MessageSent    event.Event[MessageSentEvent]
	MessageTrashed event.Event[MessageTrashedEvent]
	MessageDeleted event.Event[MessageDeletedEvent]
	DraftCreated   event.Event[DraftCreatedEvent]
	WatchStarted   event.Event[WatchStartedEvent]
	WatchStopped   event.Event[WatchStoppedEvent]
}

// newServiceEvents creates per-service event instances with a unique
// name prefix.
func newServiceEvents(namePrefix string) *ServiceEvents {
	return &ServiceEvents{
		MessageSent:    event.New[MessageSentEvent](namePrefix + "." + EventNameMessageSent),
		MessageTrashed: event.New[MessageTrashedEvent](namePrefix + "." + EventNameMessageTrashed),
		MessageDeleted: event.New[MessageDeletedEvent](namePrefix + "." + EventNameMessageDeleted),
		DraftCreated:   event.New[DraftCreatedEvent](namePrefix + "." + EventNameDraftCreated),
		WatchStarted:   event.New[WatchStartedEvent](namePrefix + "." + EventNameWatchStarted),
		WatchStopped:   event.New[WatchStoppedEvent](namePrefix + "." + EventNameWatchStopped),
	}
}

// registerServiceEvents registers per-service events with the given bus.
func registerServiceEvents(ctx context.Context, bus *event.Bus, events *ServiceEvents) error {
	if err := event.Register(ctx, bus, events.MessageSent); err != nil {
		return fmt.Errorf("register MessageSent: %w", err)
	}
	if err := event.Register(ctx, bus, events.MessageTrashed); err != nil {
		return fmt.Errorf("register MessageTrashed: %w", err)
	}
	if err := event.Register(ctx, bus, events.MessageDeleted); err != nil {
		return fmt.Errorf("register MessageDeleted: %w", err)
	}
	if err := event.Register(ctx, bus, events.DraftCreated); err != nil {
		return fmt.Errorf("register DraftCreated: %w", err)
	}
	if err := event.Register(ctx, bus, events.WatchStarted); err != nil {
		return fmt.Errorf("register WatchStarted: %w", err)
	}
	if err := event.Register(ctx, bus, events.WatchStopped); err != nil {
		return fmt.Errorf("register WatchStopped: %w", err)
	}
	return nil
}
