package gateway

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/imtaco/watch-party/internal/jsonrpc"
	wsrpc "github.com/imtaco/watch-party/internal/jsonrpc/websocket"
	"github.com/imtaco/watch-party/internal/log"
)

// Hooks returns the connection lifecycle hooks for the websocket server.
func (s *Server) Hooks() wsrpc.ConnectionHooks[Session] {
	return &hookImpl{s: s}
}

type hookImpl struct {
	s *Server
}

// OnVerify accepts everyone; the display-name check happens on join-room.
func (h *hookImpl) OnVerify(r *http.Request) (*Session, bool, error) {
	return &Session{
		reqCtx:  r.Context(),
		limiter: newLimiter(h.s.cfg),
	}, true, nil
}

func (h *hookImpl) OnConnect(mctx jsonrpc.MethodContext[Session]) {
	sess := mctx.Get()
	sess.connID = uuid.New().String()

	h.s.conns.Add(sess.connID, mctx.Peer())
	connectionsActive.Add(sess.reqCtx, 1)
	connectionsTotal.Add(sess.reqCtx, 1)

	h.s.logger.Info("Client connected", log.ConnID(sess.connID))
}

// OnDisconnect cleans up membership exactly like leave-room.
func (h *hookImpl) OnDisconnect(mctx jsonrpc.MethodContext[Session], closeCode int) {
	sess := mctx.Get()

	h.s.mu.Lock()
	h.s.leave(sess, "disconnect")
	h.s.mu.Unlock()

	h.s.conns.Remove(sess.connID)
	connectionsActive.Add(sess.reqCtx, -1)
	disconnectsTotal.Add(sess.reqCtx, 1)

	h.s.logger.Info("Client disconnected",
		log.ConnID(sess.connID),
		log.Int("closeCode", closeCode))
}
