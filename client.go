package mailsim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rbaliyan/event/v3"

	"github.com/Mohsin-h27/mailsim/store"
)

// Compile-time check
var _ Mailbox = (*userMailbox)(nil)

// userMailbox is a per-user view of the service. It is cheap to create
// and holds no state beyond the user id.
type userMailbox struct {
	userID  string
	service *service
}

func (m *userMailbox) UserID() string {
	return m.userID
}

// checkAccess gates every operation on connection state and user
// existence. A missing user is a hard error; this is the one existence
// check that never degrades to a soft miss.
func (m *userMailbox) checkAccess(ctx context.Context) error {
	if err := m.service.checkConnected(); err != nil {
		return err
	}
	if err := m.service.store.EnsureUser(ctx, m.userID); err != nil {
		if store.IsNotFound(err) {
			return fmt.Errorf("%w: %s", ErrUserNotFound, m.userID)
		}
		return fmt.Errorf("ensure user: %w", err)
	}
	return nil
}

func (m *userMailbox) Profile(ctx context.Context) (_ *store.Profile, retErr error) {
	if err := m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := m.service.otel.startSpan(ctx, "mailsim.Profile")
	defer func() {
		end(retErr)
		m.service.otel.recordOp(ctx, "profile", time.Since(start), retErr)
	}()

	return m.service.store.GetProfile(ctx, m.userID)
}

func (m *userMailbox) Messages() *MessagesClient {
	return &MessagesClient{m: m}
}

func (m *userMailbox) Drafts() *DraftsClient {
	return &DraftsClient{m: m}
}

func (m *userMailbox) Labels() *LabelsClient {
	return &LabelsClient{m: m}
}

func (m *userMailbox) Threads() *ThreadsClient {
	return &ThreadsClient{m: m}
}

func (m *userMailbox) History() *HistoryClient {
	return &HistoryClient{m: m}
}

func (m *userMailbox) Settings() *SettingsClient {
	return &SettingsClient{m: m}
}

// Watch overwrites the user's watch descriptor and acknowledges with
// the profile's history id and a fixed expiration. It never fails once
// the user exists.
func (m *userMailbox) Watch(ctx context.Context, req *store.Watch) (_ *WatchResponse, retErr error) {
	if err := m.checkAccess(ctx); err != nil {
		return nil, err
	}

	start := time.Now()
	ctx, end := m.service.otel.startSpan(ctx, "mailsim.Watch")
	defer func() {
		end(retErr)
		m.service.otel.recordOp(ctx, "watch", time.Since(start), retErr)
	}()

	if req == nil {
		req = &store.Watch{}
	}
	if err := m.service.store.PutWatch(ctx, m.userID, req); err != nil {
		return nil, fmt.Errorf("put watch: %w", err)
	}

	profile, err := m.service.store.GetProfile(ctx, m.userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}

	resp := &WatchResponse{
		HistoryID:  profile.HistoryID,
		Expiration: watchExpiration,
	}

	if err := publish(ctx, m, "WatchStarted", m.service.events.WatchStarted, WatchStartedEvent{
		UserID:    m.userID,
		TopicName: req.TopicName,
		HistoryID: profile.HistoryID,
		StartedAt: time.Now().UTC(),
	}); err != nil {
		return nil, err
	}

	return resp, nil
}

// StopWatch clears the user's watch descriptor.
func (m *userMailbox) StopWatch(ctx context.Context) (retErr error) {
	if err := m.checkAccess(ctx); err != nil {
		return err
	}

	start := time.Now()
	ctx, end := m.service.otel.startSpan(ctx, "mailsim.StopWatch")
	defer func() {
		end(retErr)
		m.service.otel.recordOp(ctx, "watch_stop", time.Since(start), retErr)
	}()

	if err := m.service.store.ClearWatch(ctx, m.userID); err != nil {
		return fmt.Errorf("clear watch: %w", err)
	}

	return publish(ctx, m, "WatchStopped", m.service.events.WatchStopped, WatchStoppedEvent{
		UserID:    m.userID,
		StoppedAt: time.Now().UTC(),
	})
}

// nextID allocates the next counter value for kind and formats it.
func (m *userMailbox) nextID(ctx context.Context, kind, format string) (string, error) {
	n, err := m.service.store.NextID(ctx, kind)
	if err != nil {
		return "", fmt.Errorf("next %s id: %w", kind, err)
	}
	return fmt.Sprintf(format, n), nil
}

// softMiss collapses a store not-found into the nil-result contract.
// Returns true when the error was a soft miss and has been handled.
func softMiss(err error) (bool, error) {
	if err == nil {
		return false, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return true, nil
	}
	return false, err
}

// publish sends an event, honoring the eventErrorsFatal option. The
// triggering operation has already succeeded when this reports an error.
func publish[T any](ctx context.Context, m *userMailbox, name string, ev event.Event[T], payload T) error {
	if err := ev.Publish(ctx, payload); err != nil {
		if m.service.opts.eventErrorsFatal {
			return &EventPublishError{Event: name, Err: err}
		}
		m.service.opts.safeEventPublishFailure(name, err)
	}
	return nil
}
