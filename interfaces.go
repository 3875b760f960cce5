package mailsim

import (
	"context"

	"github.com/Mohsin-h27/mailsim/store"
)

// Service is the top-level handle on the simulated mail backend. A
// service owns one store and one event bus; per-user access goes
// through Client.
type Service interface {
	// Connect connects the store, initializes the event bus and seeds
	// the default user unless disabled.
	Connect(ctx context.Context) error

	// Close releases the store and the event bus.
	Close(ctx context.Context) error

	// Client returns a mailbox handle for the given user. An empty id
	// resolves to the configured default user. The user's existence is
	// checked on first use, not here.
	Client(userID string) Mailbox

	// CreateUser creates a user. The email address is required; a
	// missing address fails with a ValidationError.
	CreateUser(ctx context.Context, userID, emailAddress string) (*store.Profile, error)

	// UserExists reports whether the user id is known.
	UserExists(ctx context.Context, userID string) (bool, error)

	// Events returns the per-service event instances.
	Events() *ServiceEvents

	// SaveState writes a full JSON snapshot of the database to path.
	SaveState(ctx context.Context, path string) error

	// LoadState replaces the database with the JSON snapshot at path.
	LoadState(ctx context.Context, path string) error
}

// Mailbox is a per-user view of the service. Operations fail with
// ErrUserNotFound when the user does not exist, except as documented.
type Mailbox interface {
	// UserID returns the resolved user id this mailbox operates on.
	UserID() string

	// Profile returns the user's profile.
	Profile(ctx context.Context) (*store.Profile, error)

	// Messages returns the message operations.
	Messages() *MessagesClient

	// Drafts returns the draft operations.
	Drafts() *DraftsClient

	// Labels returns the label operations.
	Labels() *LabelsClient

	// Threads returns the thread operations.
	Threads() *ThreadsClient

	// History returns the mutation log operations.
	History() *HistoryClient

	// Settings returns the settings operations.
	Settings() *SettingsClient

	// Watch records a push-notification watch descriptor, overwriting
	// any previous one, and returns a synthetic response.
	Watch(ctx context.Context, req *store.Watch) (*WatchResponse, error)

	// StopWatch clears the watch descriptor. Clearing an absent
	// descriptor is not an error.
	StopWatch(ctx context.Context) error
}
