package jsonrpc

import "sync/atomic"

type MethodContext[T any] interface {
	Get() *T
	Set(value *T)
	Peer() Conn[T]
}

func NewContext[T any](conn Conn[T], v *T) MethodContext[T] {
	c := &contextImpl[T]{conn: conn}
	c.v.Store(v)
	return c
}

// contextImpl holds per-connection state, swapped atomically.
type contextImpl[T any] struct {
	conn Conn[T]
	v    atomic.Pointer[T]
}

func (m *contextImpl[T]) Set(value *T) {
	m.v.Store(value)
}

func (m *contextImpl[T]) Get() *T {
	return m.v.Load()
}

func (m *contextImpl[T]) Peer() Conn[T] {
	return m.conn
}
