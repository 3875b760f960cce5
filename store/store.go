// Package store defines the persistence contract for the mailbox
// simulation: the entity model, the query filter, and the Store
// interface implemented by the memory and sqlite backends.
//
// Stores hold state, not behavior. Label invariants, id formatting and
// lifecycle transitions live in the client layer; a store only keeps
// records, hands out counter values, and reports missing records with
// ErrNotFound.
//
// The engine is synchronous. Store implementations are not required to
// be safe for concurrent use and take no locks beyond their connection
// flag.
package store

import "context"

// UserStore manages the per-user containers.
type UserStore interface {
	// CreateUser creates a user with a fresh profile, default settings
	// and empty collections. Returns ErrAlreadyExists when the id is taken.
	CreateUser(ctx context.Context, userID, emailAddress string) error

	// UserExists reports whether the user id is known.
	UserExists(ctx context.Context, userID string) (bool, error)

	// EnsureUser returns ErrNotFound when the user id is absent.
	// Every other per-user operation requires this precondition.
	EnsureUser(ctx context.Context, userID string) error

	// GetProfile returns the user's profile.
	GetProfile(ctx context.Context, userID string) (*Profile, error)

	// PutProfile replaces the user's profile.
	PutProfile(ctx context.Context, userID string, p *Profile) error
}

// CounterStore allocates monotonically increasing ids.
type CounterStore interface {
	// NextID increments and returns the counter for kind, starting at 1.
	// Unknown kinds are auto-initialized, never an error.
	NextID(ctx context.Context, kind string) (int64, error)
}

// MessageStore manages a user's message mapping.
type MessageStore interface {
	// PutMessage inserts or replaces a message keyed by its id.
	PutMessage(ctx context.Context, userID string, msg *Message) error

	// GetMessage returns the message or ErrNotFound.
	GetMessage(ctx context.Context, userID, id string) (*Message, error)

	// DeleteMessage removes the message or returns ErrNotFound.
	DeleteMessage(ctx context.Context, userID, id string) error

	// ListMessages returns all messages in insertion order.
	ListMessages(ctx context.Context, userID string) ([]*Message, error)
}

// DraftStore manages a user's draft mapping.
type DraftStore interface {
	PutDraft(ctx context.Context, userID string, d *Draft) error
	GetDraft(ctx context.Context, userID, id string) (*Draft, error)
	DeleteDraft(ctx context.Context, userID, id string) error
	ListDrafts(ctx context.Context, userID string) ([]*Draft, error)
}

// LabelStore manages a user's label mapping.
type LabelStore interface {
	PutLabel(ctx context.Context, userID string, l *Label) error
	GetLabel(ctx context.Context, userID, id string) (*Label, error)
	DeleteLabel(ctx context.Context, userID, id string) error
	ListLabels(ctx context.Context, userID string) ([]*Label, error)
}

// SettingsStore manages the per-user settings record. Reads return the
// whole record; writes replace it.
type SettingsStore interface {
	GetSettings(ctx context.Context, userID string) (*Settings, error)
	PutSettings(ctx context.Context, userID string, s *Settings) error
}

// HistoryStore manages the append-only mutation log.
type HistoryStore interface {
	// AppendHistory appends an entry. Entries are immutable after append.
	AppendHistory(ctx context.Context, userID string, e *HistoryEntry) error

	// ListHistory returns all entries in append order.
	ListHistory(ctx context.Context, userID string) ([]*HistoryEntry, error)
}

// WatchStore manages the per-user watch descriptor.
type WatchStore interface {
	// GetWatch returns the current descriptor, or nil when none is set.
	GetWatch(ctx context.Context, userID string) (*Watch, error)

	// PutWatch overwrites the descriptor.
	PutWatch(ctx context.Context, userID string, w *Watch) error

	// ClearWatch removes the descriptor. Clearing an absent descriptor
	// is not an error.
	ClearWatch(ctx context.Context, userID string) error
}

// SnapshotStore supports whole-database save and load.
type SnapshotStore interface {
	// Snapshot returns a deep copy of the full database state.
	Snapshot(ctx context.Context) (*State, error)

	// Restore replaces the full database state with the snapshot.
	Restore(ctx context.Context, st *State) error
}

// Store is the complete persistence interface for the mailbox engine.
type Store interface {
	// Connect prepares the store for use.
	Connect(ctx context.Context) error

	// Close releases the store.
	Close(ctx context.Context) error

	UserStore
	CounterStore
	MessageStore
	DraftStore
	LabelStore
	SettingsStore
	HistoryStore
	WatchStore
	SnapshotStore
}
