package jsonrpc

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"

	"github.com/imtaco/watch-party/internal/errors"
	"github.com/imtaco/watch-party/internal/log"
)

type handlerFunc[T any] func(context.Context, *connImpl[T], *Request)

type connImpl[T any] struct {
	stream   ObjectStream
	mctx     MethodContext[T]
	handler  handlerFunc[T]
	sendLock sync.Mutex
	closed   atomic.Bool
	done     chan struct{}
	pendings sync.Map // map[ID]doneChan
	logger   *log.Logger
}

func newConn[T any](
	stream ObjectStream,
	v *T,
	handler handlerFunc[T],
	logger *log.Logger,
) *connImpl[T] {
	c := &connImpl[T]{
		stream:  stream,
		handler: handler,
		done:    make(chan struct{}),
		logger:  logger,
	}
	c.mctx = NewContext(c, v)
	return c
}

func (c *connImpl[T]) Open(ctx context.Context) error {
	if err := c.stream.Open(ctx); err != nil {
		return err
	}
	go c.readLoop(ctx)
	return nil
}

func (c *connImpl[T]) Close() error {
	return c.close(nil)
}

func (c *connImpl[T]) Context() MethodContext[T] {
	return c.mctx
}

func (c *connImpl[T]) Done() <-chan struct{} {
	return c.done
}

func (c *connImpl[T]) Call(ctx context.Context, method string, params, result any) error {
	req, err := newRequestMessage(method, params)
	if err != nil {
		return err
	}
	done, err := c.send(ctx, req)
	if err != nil {
		return err
	}
	return c.wait(ctx, req.ID, done, result)
}

func (c *connImpl[T]) Notify(ctx context.Context, method string, params any) error {
	m, err := newNotificationMessage(method, params)
	if err != nil {
		return err
	}
	_, err = c.send(ctx, m)
	return err
}

// reply is a no-op for notifications.
func (c *connImpl[T]) reply(ctx context.Context, id *ID, result any) error {
	if !id.IsSet() {
		return nil
	}
	resp, err := newResponseMessage(*id, result, nil)
	if err != nil {
		return err
	}
	_, err = c.send(ctx, resp)
	return err
}

func (c *connImpl[T]) replyError(ctx context.Context, id *ID, rpcErr *Error) error {
	if !id.IsSet() {
		return nil
	}
	resp, err := newResponseMessage(*id, nil, rpcErr)
	if err != nil {
		return err
	}
	_, err = c.send(ctx, resp)
	return err
}

func (c *connImpl[T]) close(cause error) error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}
	defer close(c.done)

	// collect first, Range and Delete do not mix well with concurrent pops
	ids := make([]ID, 0)
	c.pendings.Range(func(key, _ any) bool {
		ids = append(ids, key.(ID))
		return true
	})
	for _, id := range ids {
		if done := c.popPending(id); done != nil {
			close(done)
		}
	}

	if cause != nil && !errors.Is(cause, io.EOF) && !errors.Is(cause, io.ErrUnexpectedEOF) {
		c.logger.Debug("jsonrpc connection closed", log.Error(cause))
	}
	return c.stream.Close()
}

func (c *connImpl[T]) readLoop(ctx context.Context) {
	for {
		var m message
		err := c.stream.Read(ctx, &m)
		if errors.Is(err, ErrDecode) {
			c.logger.Warn("jsonrpc undecodable frame", log.Error(err))
			c.replyParseError(ctx)
			continue
		}
		if err != nil {
			_ = c.close(err)
			return
		}

		m.classify()

		switch m.msgType {
		case typeRequest, typeNotification:
			c.handler(ctx, c, &Request{
				ID:     m.ID,
				Method: *m.Method,
				Params: m.Params,
			})

		case typeResponse:
			done := c.popPending(*m.ID)
			if done == nil {
				c.logger.Debug("ignore response with unmatched id", log.Any("id", m.ID))
				continue
			}
			done <- &m
			close(done)

		default:
			c.logger.Warn("ignore invalid jsonrpc message")
			if m.ID.IsSet() {
				_ = c.replyError(ctx, m.ID, ErrInvalidRequest("invalid request"))
			}
		}
	}
}

func (c *connImpl[T]) replyParseError(ctx context.Context) {
	c.sendLock.Lock()
	defer c.sendLock.Unlock()

	if c.closed.Load() {
		return
	}
	err := c.stream.Write(ctx, &errorMessage{
		JSONRPC: jsonRPCVersion,
		Error:   ErrParse("parse error"),
	})
	if err != nil {
		c.logger.Debug("failed to send parse error", log.Error(err))
	}
}

func (c *connImpl[T]) send(ctx context.Context, m *message) (doneChan, error) {
	c.sendLock.Lock()
	defer c.sendLock.Unlock()

	if c.closed.Load() {
		return nil, ErrClosed
	}

	var done doneChan
	if m.msgType == typeRequest {
		done = make(doneChan, 1)
		c.pendings.Store(*m.ID, done)
	}

	if err := c.stream.Write(ctx, m); err != nil {
		if m.msgType == typeRequest {
			c.pendings.Delete(*m.ID)
		}
		return nil, err
	}
	return done, nil
}

func (c *connImpl[T]) wait(ctx context.Context, id *ID, done doneChan, result any) error {
	select {
	case <-ctx.Done():
		c.pendings.Delete(*id)
		return ctx.Err()

	case resp, ok := <-done:
		if !ok {
			return ErrClosed
		}
		if resp.Error != nil {
			return resp.Error
		}
		if resp.Result != nil && result != nil {
			return json.Unmarshal(*resp.Result, result)
		}
		return nil
	}
}

func (c *connImpl[T]) popPending(id ID) doneChan {
	v, ok := c.pendings.LoadAndDelete(id)
	if !ok {
		return nil
	}
	return v.(doneChan)
}

type doneChan chan *message
