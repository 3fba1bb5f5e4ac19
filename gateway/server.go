package gateway

import (
	"encoding/json"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/imtaco/watch-party/internal/constants"
	"github.com/imtaco/watch-party/internal/errors"
	"github.com/imtaco/watch-party/internal/jsonrpc"
	"github.com/imtaco/watch-party/internal/log"
	intotel "github.com/imtaco/watch-party/internal/otel"
	"github.com/imtaco/watch-party/party"
	"github.com/imtaco/watch-party/party/room"
)

// JSON-RPC application error codes.
const (
	CodeAlreadyJoined  int64 = -32010
	CodeNameNotAllowed int64 = -32011
	CodeRateLimited    int64 = -32029
)

// Server handles the watch party events of every websocket connection.
// All handlers run under one dispatch lock so that a room mutation and its
// fan-out are observed atomically by other connections.
type Server struct {
	mu     sync.Mutex
	cfg    *Config
	rooms  *room.Manager
	conns  *Directory
	names  nameFilter
	clock  clockwork.Clock
	tracer trace.Tracer
	logger *log.Logger
}

func NewServer(
	cfg *Config,
	rooms *room.Manager,
	conns *Directory,
	clock clockwork.Clock,
	logger *log.Logger,
) *Server {
	return &Server{
		cfg:    cfg,
		rooms:  rooms,
		conns:  conns,
		names:  newNameFilter(cfg.AllowedNames),
		clock:  clock,
		tracer: intotel.Tracer(),
		logger: logger,
	}
}

// Register installs the interceptors and every event handler on h. It must
// run before the first connection is accepted.
func (s *Server) Register(h jsonrpc.Handler[Session]) {
	h.Use(s.rateLimit, s.observe, s.serialize)

	h.Def(constants.EventJoinRoom, s.handleJoin)
	h.Def(constants.EventLeaveRoom, s.handleLeave)

	h.Def(constants.EventPlayVideo, s.timeCommand(s.rooms.Play, constants.EventVideoPlayed))
	h.Def(constants.EventPauseVideo, s.timeCommand(s.rooms.Pause, constants.EventVideoPaused))
	h.Def(constants.EventSeekVideo, s.timeCommand(s.rooms.Seek, constants.EventVideoSeeked))
	h.Def(constants.EventChangeVideo, s.handleChangeVideo)
	h.Def(constants.EventSyncModeChange, s.handleSyncMode)
	h.Def(constants.EventCountdownTick, s.handleCountdownTick)
	h.Def(constants.EventSyncCommand, s.handleSyncCommand)

	h.Def(constants.EventSendChat, s.handleChat)
	h.Def(constants.EventSendNudge, s.presence(constants.EventReceiveNudge))
	h.Def(constants.EventUserTyping, s.presence(constants.EventUserTyping))
	h.Def(constants.EventUserStoppedTyping, s.presence(constants.EventUserStoppedTyping))

	h.Def(constants.EventVoiceJoin, s.handleVoiceJoin)
	h.Def(constants.EventVoiceLeave, s.handleVoiceLeave)
	h.Def(constants.EventVoiceOffer, s.targetedSignal(constants.EventVoiceOffer))
	h.Def(constants.EventVoiceAnswer, s.targetedSignal(constants.EventVoiceAnswer))
	h.Def(constants.EventVoiceICECandidate, s.targetedSignal(constants.EventVoiceICECandidate))

	h.Def(constants.EventScreenStarted, s.handleScreenStarted)
	h.Def(constants.EventScreenStopped, s.handleScreenStopped)
	h.Def(constants.EventScreenOffer, s.screenSignal(constants.EventScreenOffer))
	h.Def(constants.EventScreenAnswer, s.screenSignal(constants.EventScreenAnswer))
	h.Def(constants.EventScreenICECandidate, s.screenSignal(constants.EventScreenICECandidate))

	s.logger.Info("Registered event handlers")
}

func (s *Server) rateLimit(method string, next jsonrpc.AsyncMethodHandler[Session]) jsonrpc.AsyncMethodHandler[Session] {
	attrs := metric.WithAttributes(attribute.String("method", method))
	return func(mctx jsonrpc.MethodContext[Session], params *json.RawMessage, reply jsonrpc.Reply) {
		sess := mctx.Get()
		if sess.limiter != nil && !sess.limiter.Allow() {
			eventsLimited.Add(sess.reqCtx, 1, attrs)
			s.logger.Debug("Event rate limited", log.ConnID(sess.connID), log.Event(method))
			reply(nil, jsonrpc.ErrCustom(CodeRateLimited, "rate limited"))
			return
		}
		next(mctx, params, reply)
	}
}

func (s *Server) observe(method string, next jsonrpc.AsyncMethodHandler[Session]) jsonrpc.AsyncMethodHandler[Session] {
	attrs := metric.WithAttributes(attribute.String("method", method))
	return func(mctx jsonrpc.MethodContext[Session], params *json.RawMessage, reply jsonrpc.Reply) {
		sess := mctx.Get()
		ctx, span := intotel.StartSpan(sess.reqCtx, s.tracer, "ws."+method,
			attribute.String("connId", sess.connID))
		start := s.clock.Now()
		eventsReceived.Add(ctx, 1, attrs)

		next(mctx, params, func(result any, err error) {
			defer span.End()
			if err != nil {
				eventsFailed.Add(ctx, 1, attrs)
				intotel.RecordError(span, err)
				if rpcErr, ok := errors.As[*jsonrpc.Error](err); ok && (*rpcErr).Code == jsonrpc.CodeInvalidParams {
					s.logger.Warn("Invalid event params",
						log.ConnID(sess.connID),
						log.Event(method),
						log.Error(err))
				}
			}
			elapsed := s.clock.Since(start)
			eventDuration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
			reply(result, err)
		})
	}
}

func (s *Server) serialize(_ string, next jsonrpc.AsyncMethodHandler[Session]) jsonrpc.AsyncMethodHandler[Session] {
	return func(mctx jsonrpc.MethodContext[Session], params *json.RawMessage, reply jsonrpc.Reply) {
		s.mu.Lock()
		defer s.mu.Unlock()
		next(mctx, params, reply)
	}
}

// drop absorbs a command aimed at a room that is gone or that the sender
// is not in. Other errors go back to the caller.
func (s *Server) drop(sess *Session, method, roomID string, err error) (any, error) {
	if errors.Is(err, party.ErrRoomNotFound) || errors.Is(err, party.ErrNotMember) {
		code, _ := errors.CodeOf(err)
		eventsDropped.Add(sess.reqCtx, 1, metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("reason", string(code))))
		s.logger.Debug("Event dropped",
			log.ConnID(sess.connID),
			log.RoomID(roomID),
			log.Event(method),
			log.String("reason", string(code)))
		return nil, nil
	}
	return nil, rpcError(err)
}

func (s *Server) dropTarget(sess *Session, method, targetID string) {
	eventsDropped.Add(sess.reqCtx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("reason", "target_not_found")))
	s.logger.Debug("Signal target gone",
		log.ConnID(sess.connID),
		log.String("targetId", targetID),
		log.Event(method))
}

func rpcError(err error) error {
	code, _ := errors.CodeOf(err)
	switch code {
	case party.ErrAlreadyJoined:
		return jsonrpc.ErrCustom(CodeAlreadyJoined, "already joined")
	case party.ErrNameNotAllowed:
		return jsonrpc.ErrCustom(CodeNameNotAllowed, "name not allowed")
	case party.ErrInvalidMode:
		return jsonrpc.ErrInvalidParams("invalid mode")
	}
	return err
}
