package websocket

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/imtaco/watch-party/internal/errors"
	"github.com/imtaco/watch-party/internal/jsonrpc"
	"github.com/imtaco/watch-party/internal/log"
)

const (
	ErrBufferFull errors.Code = "buffer_full"
	ErrMarshal    errors.Code = "marshal_error"
)

// Stream adapts a websocket connection to jsonrpc.ObjectStream. Writes are
// queued and flushed by a single pump goroutine, so Write never blocks.
type Stream struct {
	conn  *websocket.Conn
	chBuf chan []byte
	opts  options

	connCtx   context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
	closeCode atomic.Int32
	logger    *log.Logger
}

func newStream(conn *websocket.Conn, opts options, logger *log.Logger) *Stream {
	conn.SetReadLimit(opts.readLimit)
	ws := &Stream{
		conn:   conn,
		chBuf:  make(chan []byte, opts.bufMessages),
		opts:   opts,
		logger: logger,
	}
	// frames may be queued before Open starts the pump
	ws.connCtx, ws.cancel = context.WithCancel(context.Background())
	ws.closeCode.Store(int32(websocket.StatusAbnormalClosure))
	return ws
}

// Write fails fast with ErrBufferFull when the peer cannot keep up; the
// connection is then closed in the background.
func (ws *Stream) Write(_ context.Context, obj any) error {
	if ws.connCtx.Err() != nil {
		return net.ErrClosed
	}

	bs, err := json.Marshal(obj)
	if err != nil {
		return errors.Wrap(ErrMarshal, err, "marshal frame")
	}

	select {
	case ws.chBuf <- bs:
		return nil
	default:
		// close may block on the closing handshake
		go ws.close(errors.New(ErrBufferFull, "outbound buffer full"))
		return ErrBufferFull
	}
}

func (ws *Stream) Read(ctx context.Context, v any) error {
	_, data, err := ws.conn.Read(ctx)
	if err != nil {
		ws.close(err)
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrap(jsonrpc.ErrDecode, err, "decode frame")
	}
	return nil
}

func (ws *Stream) Open(context.Context) error {
	go func() {
		ws.close(ws.writePump(ws.connCtx))
	}()
	return nil
}

func (ws *Stream) Close() error {
	ws.close(nil)
	return nil
}

// Code is the close status observed for this connection.
func (ws *Stream) Code() int {
	return int(ws.closeCode.Load())
}

func (ws *Stream) close(err error) {
	ws.closeOnce.Do(func() {
		defer ws.cancel()

		if err == nil {
			ws.logger.Debug("websocket closed locally")
			ws.closeCode.Store(int32(websocket.StatusNormalClosure))
			_ = ws.conn.Close(websocket.StatusNormalClosure, "bye")
			return
		}

		if status := websocket.CloseStatus(err); status != -1 {
			ws.logger.Debug("websocket closed by peer", log.Int("code", int(status)))
			ws.closeCode.Store(int32(status))
			_ = ws.conn.CloseNow()
			return
		}

		switch {
		case errors.Is(err, net.ErrClosed), errors.Is(err, io.EOF), errors.Is(err, context.Canceled):
			ws.logger.Debug("websocket dropped", log.Error(err))
			_ = ws.conn.CloseNow()
		case errors.Is(err, ErrBufferFull):
			ws.logger.Warn("websocket closed, outbound buffer full")
			ws.closeCode.Store(int32(websocket.StatusPolicyViolation))
			_ = ws.conn.Close(websocket.StatusPolicyViolation, "too slow")
		default:
			ws.logger.Warn("websocket closed on error", log.Error(err))
			ws.closeCode.Store(int32(websocket.StatusInternalError))
			_ = ws.conn.CloseNow()
		}
	})
}

func (ws *Stream) wait() {
	<-ws.connCtx.Done()
}

func (ws *Stream) writePump(ctx context.Context) error {
	ticker := time.NewTicker(ws.opts.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := ws.ping(ctx); err != nil {
				return err
			}
		case bs := <-ws.chBuf:
			if err := ws.write(ctx, bs); err != nil {
				return err
			}
		}
	}
}

func (ws *Stream) write(ctx context.Context, bs []byte) error {
	ctx, cancel := context.WithTimeout(ctx, ws.opts.writeTimeout)
	defer cancel()
	return ws.conn.Write(ctx, websocket.MessageText, bs)
}

func (ws *Stream) ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, ws.opts.pingTimeout)
	defer cancel()
	return ws.conn.Ping(ctx)
}
