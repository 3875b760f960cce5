package mailsim

import (
	"log/slog"

	"github.com/rbaliyan/event/v3/transport"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/Mohsin-h27/mailsim/store"
)

// Default configuration values.
const (
	// DefaultMaxResults is the page size applied when a list request
	// does not specify one.
	DefaultMaxResults = 100

	// DefaultUserID is the user id resolved when a client is requested
	// with an empty id.
	DefaultUserID = "me"

	// DefaultUserEmail is the email address of the seeded default user.
	DefaultUserEmail = "me@example.com"

	// DefaultServiceName is used for telemetry and event bus naming.
	DefaultServiceName = "mailsim"
)

// Option configures the service.
type Option func(*options)

type options struct {
	store            store.Store
	logger           *slog.Logger
	serviceName      string
	maxResults       int
	seedUser         bool
	seedUserID       string
	seedUserEmail    string
	redisClient      redis.UniversalClient
	eventTransport   transport.Transport
	eventErrorsFatal bool
	tracingEnabled   bool
	metricsEnabled   bool
	tracerProvider   trace.TracerProvider
	meterProvider    metric.MeterProvider
}

func newOptions(opts ...Option) *options {
	o := &options{
		logger:        slog.Default(),
		serviceName:   DefaultServiceName,
		maxResults:    DefaultMaxResults,
		seedUser:      true,
		seedUserID:    DefaultUserID,
		seedUserEmail: DefaultUserEmail,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// safeEventPublishFailure logs a failed event publish without failing
// the operation that triggered it.
func (o *options) safeEventPublishFailure(event string, err error) {
	o.logger.Warn("event publish failed", "event", event, "error", err)
}

// WithStore sets the backing store. Required.
func WithStore(s store.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithServiceName sets the name used for telemetry and event bus naming.
func WithServiceName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.serviceName = name
		}
	}
}

// WithMaxResults sets the default page size for list operations.
func WithMaxResults(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxResults = n
		}
	}
}

// WithSeedUser sets the user created automatically on Connect.
// By default the service seeds DefaultUserID with DefaultUserEmail.
func WithSeedUser(userID, emailAddress string) Option {
	return func(o *options) {
		o.seedUser = true
		o.seedUserID = userID
		o.seedUserEmail = emailAddress
	}
}

// WithoutSeedUser disables the automatic default user. Every user must
// then be created explicitly via CreateUser.
func WithoutSeedUser() Option {
	return func(o *options) {
		o.seedUser = false
	}
}

// WithRedisClient sets a Redis client for the event transport.
// If neither a Redis client nor a transport is provided, a noop
// transport is used and events are silently dropped.
func WithRedisClient(client redis.UniversalClient) Option {
	return func(o *options) {
		o.redisClient = client
	}
}

// WithEventTransport sets the event transport for publishing and
// subscribing. Takes precedence over WithRedisClient.
func WithEventTransport(t transport.Transport) Option {
	return func(o *options) {
		o.eventTransport = t
	}
}

// WithEventErrorsFatal makes a failed event publish surface as an
// EventPublishError instead of a logged warning. The triggering
// operation has already succeeded when the error is returned.
func WithEventErrorsFatal() Option {
	return func(o *options) {
		o.eventErrorsFatal = true
	}
}

// WithTracing enables span creation for every operation.
func WithTracing() Option {
	return func(o *options) {
		o.tracingEnabled = true
	}
}

// WithMetrics enables operation counters and latency histograms.
func WithMetrics() Option {
	return func(o *options) {
		o.metricsEnabled = true
	}
}

// WithOTel enables both tracing and metrics.
func WithOTel() Option {
	return func(o *options) {
		o.tracingEnabled = true
		o.metricsEnabled = true
	}
}

// WithTracerProvider sets the tracer provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// WithMeterProvider sets the meter provider. Defaults to the global one.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}
