package partyclient

import (
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"

	wsrpc "github.com/imtaco/watch-party/internal/jsonrpc/websocket"
	"github.com/imtaco/watch-party/internal/log"
	"github.com/imtaco/watch-party/internal/retry"
)

const (
	defaultCallTimeout = 10 * time.Second
	// DefaultNegotiationTimeout bounds how long a voice peer may stay in
	// negotiation before it is marked failed.
	DefaultNegotiationTimeout = 30 * time.Second
)

type options struct {
	logger      *log.Logger
	clock       clockwork.Clock
	header      http.Header
	reconnect   bool
	policy      retry.Policy
	callTimeout time.Duration
	streamOpts  []wsrpc.Option
}

type Option func(*options)

func newOptions(opts []Option) options {
	o := options{
		logger:      log.NewNop(),
		clock:       clockwork.NewRealClock(),
		reconnect:   true,
		policy:      retry.Forever(),
		callTimeout: defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func WithLogger(logger *log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithHeader adds headers to the websocket handshake, e.g. an Origin.
func WithHeader(header http.Header) Option {
	return func(o *options) {
		o.header = header
	}
}

// WithReconnect redials with the given backoff after the connection drops
// and rejoins the last room. Reconnect is on by default and retries forever.
func WithReconnect(policy retry.Policy) Option {
	return func(o *options) {
		o.reconnect = true
		o.policy = policy
	}
}

func WithoutReconnect() Option {
	return func(o *options) {
		o.reconnect = false
	}
}

func WithCallTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.callTimeout = d
		}
	}
}

func WithStreamOptions(opts ...wsrpc.Option) Option {
	return func(o *options) {
		o.streamOpts = append(o.streamOpts, opts...)
	}
}
