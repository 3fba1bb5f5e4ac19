package jsonrpc

import (
	"context"
	"encoding/json"
	"io"
)

type Handler[T any] interface {
	pureHandler[T]
	// NewConn binds a stream to this handler's method table.
	NewConn(stream ObjectStream, v *T) Conn[T]
}

// Peer is a single connection with its own method table, used on the dialing side.
type Peer[T any] interface {
	Conn[T]
	pureHandler[T]
}

type Client[T any] interface {
	Call(ctx context.Context, method string, params, result any) error
	Notify(ctx context.Context, method string, params any) error
	io.Closer
}

type Conn[T any] interface {
	Client[T]
	Open(ctx context.Context) error
	Context() MethodContext[T]
	// Done is closed once the connection has shut down.
	Done() <-chan struct{}
}

type pureHandler[T any] interface {
	Def(method string, handler MethodHandler[T])
	DefAsync(method string, handler AsyncMethodHandler[T])
	Use(interceptors ...Interceptor[T])
}

// MethodHandler runs on the connection's read loop. The method context is
// shared by every call on one connection.
type MethodHandler[T any] func(mctx MethodContext[T], params *json.RawMessage) (any, error)

type AsyncMethodHandler[T any] func(mctx MethodContext[T], params *json.RawMessage, reply Reply)

// Interceptor wraps the dispatch of a method. Interceptors run in the order
// passed to Use, the first one outermost.
type Interceptor[T any] func(method string, next AsyncMethodHandler[T]) AsyncMethodHandler[T]

// Reply answers a request. For notifications it is a no-op apart from logging.
type Reply func(result any, err error)

type ObjectStream interface {
	Open(ctx context.Context) error
	// Read decodes the next message into v. An error matching ErrDecode
	// leaves the stream usable; any other error is terminal.
	Read(ctx context.Context, v any) error
	Write(ctx context.Context, obj any) error
	io.Closer
}
