package websocket

import "time"

const (
	defaultPingInterval = 10 * time.Second
	defaultPingTimeout  = 3 * time.Second
	defaultWriteTimeout = 3 * time.Second
	defaultBufMessages  = 64
	defaultReadLimit    = 64 << 10
)

type options struct {
	pingInterval time.Duration
	pingTimeout  time.Duration
	writeTimeout time.Duration
	bufMessages  int
	readLimit    int64
}

type Option func(*options)

func newOptions(opts []Option) options {
	o := options{
		pingInterval: defaultPingInterval,
		pingTimeout:  defaultPingTimeout,
		writeTimeout: defaultWriteTimeout,
		bufMessages:  defaultBufMessages,
		readLimit:    defaultReadLimit,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithReadLimit caps the size of one inbound frame; larger frames close the connection.
func WithReadLimit(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.readLimit = n
		}
	}
}

// WithBuffer sets how many outbound frames may queue before the connection is dropped.
func WithBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bufMessages = n
		}
	}
}

func WithPingInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pingInterval = d
		}
	}
}

func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.writeTimeout = d
		}
	}
}
