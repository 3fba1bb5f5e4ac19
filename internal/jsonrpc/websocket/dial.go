package websocket

import (
	"context"
	"net/http"

	"github.com/coder/websocket"

	"github.com/imtaco/watch-party/internal/errors"
	"github.com/imtaco/watch-party/internal/log"
)

const ErrDial errors.Code = "ws_dial"

// Dial connects to a websocket endpoint and returns an unopened stream,
// ready to be handed to jsonrpc.NewPeer.
func Dial(ctx context.Context, url string, header http.Header, logger *log.Logger, opts ...Option) (*Stream, error) {
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		return nil, errors.Wrapf(ErrDial, err, "dial %s", url)
	}
	return newStream(conn, newOptions(opts), logger), nil
}
