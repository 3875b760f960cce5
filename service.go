package mailsim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rbaliyan/event/v3"
	"github.com/rbaliyan/event/v3/transport/noop"
	eventredis "github.com/rbaliyan/event/v3/transport/redis"

	"github.com/Mohsin-h27/mailsim/store"
)

// Connection states.
const (
	stateDisconnected int32 = iota
	stateConnecting
	stateConnected
)

// Compile-time check
var _ Service = (*service)(nil)

type service struct {
	opts   *options
	store  store.Store
	logger *slog.Logger
	otel   *otelInstrumentation
	events *ServiceEvents
	bus    *event.Bus

	// busOwned is true when the bus runs a real transport the service
	// must close.
	busOwned bool

	state int32
}

// NewService creates a service from the given options. A store is
// required; everything else has defaults.
func NewService(opts ...Option) (Service, error) {
	o := newOptions(opts...)
	if o.store == nil {
		return nil, ErrStoreRequired
	}

	inst, err := newOTelInstrumentation(o)
	if err != nil {
		return nil, fmt.Errorf("mailsim: init telemetry: %w", err)
	}

	// Unique prefix so multiple services in one process keep their
	// events apart.
	prefix := o.serviceName + "." + uuid.NewString()[:8]

	return &service{
		opts:   o,
		store:  o.store,
		logger: o.logger,
		otel:   inst,
		events: newServiceEvents(prefix),
	}, nil
}

func (s *service) Connect(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.state, stateDisconnected, stateConnecting) {
		return ErrAlreadyConnected
	}

	if err := s.store.Connect(ctx); err != nil {
		atomic.StoreInt32(&s.state, stateDisconnected)
		return fmt.Errorf("mailsim: connect store: %w", err)
	}

	if err := s.initEventBus(ctx); err != nil {
		s.store.Close(ctx)
		atomic.StoreInt32(&s.state, stateDisconnected)
		return fmt.Errorf("mailsim: init event bus: %w", err)
	}

	if s.opts.seedUser {
		err := s.store.CreateUser(ctx, s.opts.seedUserID, s.opts.seedUserEmail)
		if err != nil && !errors.Is(err, store.ErrAlreadyExists) {
			s.store.Close(ctx)
			atomic.StoreInt32(&s.state, stateDisconnected)
			return fmt.Errorf("mailsim: seed user: %w", err)
		}
	}

	atomic.StoreInt32(&s.state, stateConnected)
	s.logger.Info("mailsim service connected", "service", s.opts.serviceName)
	return nil
}

func (s *service) initEventBus(ctx context.Context) error {
	busName := s.opts.serviceName + "-" + uuid.NewString()[:8]

	var bus *event.Bus
	var err error
	switch {
	case s.opts.eventTransport != nil:
		s.logger.Info("initializing event bus with custom transport")
		bus, err = event.NewBus(busName, event.WithTransport(s.opts.eventTransport))
		s.busOwned = true
	case s.opts.redisClient != nil:
		s.logger.Info("initializing event bus with Redis transport")
		t, transportErr := eventredis.New(s.opts.redisClient)
		if transportErr != nil {
			return fmt.Errorf("create redis transport: %w", transportErr)
		}
		bus, err = event.NewBus(busName, event.WithTransport(t))
		s.busOwned = true
	default:
		s.logger.Debug("initializing event bus with noop transport")
		bus, err = event.NewBus(busName, event.WithTransport(noop.New()))
	}
	if err != nil {
		return fmt.Errorf("create event bus: %w", err)
	}

	if err := registerServiceEvents(ctx, bus, s.events); err != nil {
		return err
	}

	s.bus = bus
	return nil
}

func (s *service) Close(ctx context.Context) error {
	if atomic.LoadInt32(&s.state) == stateDisconnected {
		return nil
	}

	var errs []error
	if err := s.store.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	// The noop bus holds no resources; closing is only needed for a
	// real transport.
	if s.bus != nil && s.busOwned {
		if err := s.bus.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close event bus: %w", err))
		}
	}

	atomic.StoreInt32(&s.state, stateDisconnected)
	return errors.Join(errs...)
}

func (s *service) checkConnected() error {
	if atomic.LoadInt32(&s.state) != stateConnected {
		return ErrNotConnected
	}
	return nil
}

func (s *service) Client(userID string) Mailbox {
	if userID == "" {
		userID = s.opts.seedUserID
	}
	return &userMailbox{userID: userID, service: s}
}

func (s *service) CreateUser(ctx context.Context, userID, emailAddress string) (_ *store.Profile, retErr error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, end := s.otel.startSpan(ctx, "mailsim.CreateUser")
	defer func() { end(retErr) }()

	if userID == "" {
		return nil, &ValidationError{Field: "userId", Message: "must not be empty"}
	}
	if emailAddress == "" {
		return nil, &ValidationError{Field: "emailAddress", Message: "must not be empty"}
	}

	if err := s.store.CreateUser(ctx, userID, emailAddress); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: %s", ErrUserExists, userID)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user created", "user_id", userID)
	return s.store.GetProfile(ctx, userID)
}

func (s *service) UserExists(ctx context.Context, userID string) (bool, error) {
	if err := s.checkConnected(); err != nil {
		return false, err
	}
	return s.store.UserExists(ctx, userID)
}

func (s *service) Events() *ServiceEvents {
	return s.events
}

// SaveState writes a full JSON snapshot of the database to path.
// The snapshot is taken atomically with respect to the engine since
// operations are sequential.
func (s *service) SaveState(ctx context.Context, path string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	st, err := s.store.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("mailsim: snapshot: %w", err)
	}
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("mailsim: marshal state: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return fmt.Errorf("mailsim: write state: %w", err)
	}

	s.logger.Info("state saved", "path", path, "users", len(st.Users))
	return nil
}

// LoadState replaces the database with the JSON snapshot at path.
// State is replaced wholesale, never merged, so engine invariants hold
// if the snapshot was produced by SaveState.
func (s *service) LoadState(ctx context.Context, path string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("mailsim: read state: %w", err)
	}
	var st store.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return fmt.Errorf("mailsim: unmarshal state: %w", err)
	}
	if err := s.store.Restore(ctx, &st); err != nil {
		return fmt.Errorf("mailsim: restore: %w", err)
	}

	s.logger.Info("state loaded", "path", path, "users", len(st.Users))
	return nil
}
