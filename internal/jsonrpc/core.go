package jsonrpc

import (
	"context"
	"encoding/json"

	"github.com/imtaco/watch-party/internal/errors"
	"github.com/imtaco/watch-party/internal/log"
)

type handlerImpl[T any] struct {
	methods      map[string]AsyncMethodHandler[T]
	interceptors []Interceptor[T]
	logger       *log.Logger
}

type peerImpl[T any] struct {
	Handler[T]
	Conn[T]
}

func NewPeer[T any](stream ObjectStream, v *T, logger *log.Logger) Peer[T] {
	if logger == nil {
		panic("logger cannot be nil")
	}
	if v == nil {
		v = new(T)
	}
	h := NewHandler[T](logger)
	return &peerImpl[T]{
		Handler: h,
		Conn:    h.NewConn(stream, v),
	}
}

func NewHandler[T any](logger *log.Logger) Handler[T] {
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &handlerImpl[T]{
		methods: make(map[string]AsyncMethodHandler[T]),
		logger:  logger,
	}
}

// Def registers a handler that runs inline on the read loop. Methods must be
// registered before any connection is opened.
func (s *handlerImpl[T]) Def(method string, handler MethodHandler[T]) {
	s.define(method, func(mctx MethodContext[T], params *json.RawMessage, reply Reply) {
		reply(handler(mctx, params))
	})
}

// DefAsync registers a handler that runs on its own goroutine.
func (s *handlerImpl[T]) DefAsync(method string, handler AsyncMethodHandler[T]) {
	s.define(method, func(mctx MethodContext[T], params *json.RawMessage, reply Reply) {
		go handler(mctx, params, reply)
	})
}

func (s *handlerImpl[T]) define(method string, h AsyncMethodHandler[T]) {
	if _, ok := s.methods[method]; ok {
		panic("method already defined: " + method)
	}
	s.methods[method] = h
}

func (s *handlerImpl[T]) Use(interceptors ...Interceptor[T]) {
	s.interceptors = append(s.interceptors, interceptors...)
}

func (s *handlerImpl[T]) NewConn(stream ObjectStream, v *T) Conn[T] {
	return newConn(stream, v, s.handle, s.logger)
}

func (s *handlerImpl[T]) chain(method string, h AsyncMethodHandler[T]) AsyncMethodHandler[T] {
	for i := len(s.interceptors) - 1; i >= 0; i-- {
		h = s.interceptors[i](method, h)
	}
	return h
}

func (s *handlerImpl[T]) handle(ctx context.Context, conn *connImpl[T], req *Request) {
	s.logger.Debug("RPC request received",
		log.String("method", req.Method),
		log.Any("id", req.ID))

	handler, ok := s.methods[req.Method]
	if !ok {
		s.logger.Warn("Method not found",
			log.String("method", req.Method),
			log.Any("id", req.ID))
		_ = conn.replyError(ctx, req.ID, ErrMethodNotFound(req.Method))
		return
	}

	reply := func(result any, err error) {
		if err := s.reply(ctx, conn, req, result, err); err != nil {
			s.logger.Warn("Failed to send RPC reply",
				log.String("method", req.Method),
				log.Any("id", req.ID),
				log.Error(err))
		}
	}
	s.chain(req.Method, handler)(conn.mctx, req.Params, reply)
}

func (s *handlerImpl[T]) reply(
	ctx context.Context,
	conn *connImpl[T],
	req *Request,
	result any,
	err error,
) error {
	if err == nil {
		return conn.reply(ctx, req.ID, result)
	}

	if rpcErr, ok := errors.As[*Error](err); ok {
		s.logger.Info("RPC handler returned error",
			log.String("method", req.Method),
			log.Any("id", req.ID),
			log.Int64("error_code", (*rpcErr).Code),
			log.String("error_message", (*rpcErr).Message))
		return conn.replyError(ctx, req.ID, *rpcErr)
	}
	s.logger.Error("RPC handler returned unexpected error",
		log.String("method", req.Method),
		log.Any("id", req.ID),
		log.Error(err))

	// internal details stay server side
	return conn.replyError(ctx, req.ID, ErrInternal("internal error"))
}
