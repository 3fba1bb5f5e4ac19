package websocket

import (
	"net/http"

	"github.com/coder/websocket"

	"github.com/imtaco/watch-party/internal/jsonrpc"
	"github.com/imtaco/watch-party/internal/log"
)

// Server upgrades HTTP requests and serves JSON-RPC over each websocket.
// Methods and interceptors must be registered before the first upgrade.
type Server[T any] struct {
	jsonrpc.Handler[T]
	hooks          ConnectionHooks[T]
	allowedOrigins []string
	opts           options
	logger         *log.Logger
}

func NewServer[T any](
	hooks ConnectionHooks[T],
	allowedOrigins []string,
	logger *log.Logger,
	opts ...Option,
) *Server[T] {
	if logger == nil {
		panic("logger cannot be nil")
	}
	if hooks == nil {
		hooks = &defaultHooks[T]{}
	}
	return &Server[T]{
		Handler:        jsonrpc.NewHandler[T](logger),
		hooks:          hooks,
		allowedOrigins: allowedOrigins,
		opts:           newOptions(opts),
		logger:         logger,
	}
}

// HandleWebSocket blocks for the lifetime of the connection.
func (s *Server[T]) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	initValue, passed, err := s.hooks.OnVerify(r)
	if err != nil {
		s.logger.Warn("Connection verification error",
			log.String("remote_addr", r.RemoteAddr),
			log.Error(err))
		http.Error(w, "fail to verify", http.StatusInternalServerError)
		return
	} else if !passed {
		s.logger.Info("Connection verification failed",
			log.String("remote_addr", r.RemoteAddr))
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.allowedOrigins,
	})
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed",
			log.String("remote_addr", r.RemoteAddr),
			log.Error(err))
		return
	}

	stream := newStream(wsConn, s.opts, s.logger)
	rpcConn := s.Handler.NewConn(stream, initValue)

	s.logger.Debug("WebSocket connection established",
		log.String("remote_addr", r.RemoteAddr),
		log.String("user_agent", r.UserAgent()))

	s.hooks.OnConnect(rpcConn.Context())
	if err := rpcConn.Open(r.Context()); err != nil {
		s.logger.Error("Failed to open RPC connection",
			log.String("remote_addr", r.RemoteAddr),
			log.Error(err))
		_ = rpcConn.Close()
	}

	stream.wait()
	<-rpcConn.Done()
	s.hooks.OnDisconnect(rpcConn.Context(), stream.Code())
}
