package websocket

import (
	"net/http"

	"github.com/imtaco/watch-party/internal/jsonrpc"
)

// ConnectionHooks customizes the connection lifecycle.
type ConnectionHooks[T any] interface {
	// OnVerify runs before the upgrade and returns the initial connection
	// state. Returning false rejects the request with 401.
	OnVerify(r *http.Request) (*T, bool, error)

	// OnConnect runs after the upgrade, before the first frame is read.
	OnConnect(mctx jsonrpc.MethodContext[T])

	// OnDisconnect runs once the connection is gone. closeCode is the
	// status the peer sent, or 1006 when the transport just dropped.
	OnDisconnect(mctx jsonrpc.MethodContext[T], closeCode int)
}

type defaultHooks[T any] struct{}

func (h *defaultHooks[T]) OnVerify(*http.Request) (*T, bool, error) {
	return new(T), true, nil
}

func (h *defaultHooks[T]) OnConnect(jsonrpc.MethodContext[T]) {}

func (h *defaultHooks[T]) OnDisconnect(jsonrpc.MethodContext[T], int) {}
