package gateway

import (
	"encoding/json"

	"github.com/imtaco/watch-party/internal/constants"
	"github.com/imtaco/watch-party/internal/errors"
	"github.com/imtaco/watch-party/internal/jsonrpc"
	"github.com/imtaco/watch-party/internal/log"
	"github.com/imtaco/watch-party/party"
)

func (s *Server) handleJoin(mctx jsonrpc.MethodContext[Session], params *json.RawMessage) (any, error) {
	var p party.JoinRoomParams
	if err := jsonrpc.ShouldBindParams(params, &p); err != nil {
		return nil, err
	}
	sess := mctx.Get()

	if !s.names.allowed(p.DisplayName) {
		s.logger.Info("Join rejected, name not allowed",
			log.ConnID(sess.connID),
			log.RoomID(p.RoomID),
			log.String("displayName", p.DisplayName))
		return nil, rpcError(errors.Newf(party.ErrNameNotAllowed, "name %q not allowed", p.DisplayName))
	}

	out, err := s.rooms.Join(sess.reqCtx, p.RoomID, sess.connID, p.DisplayName)
	if err != nil {
		return nil, rpcError(err)
	}
	sess.roomID = p.RoomID
	sess.displayName = p.DisplayName

	s.conns.Notify(sess.connID, constants.EventRoomState, out.Snapshot)
	s.conns.Broadcast(out.Others, constants.EventUserJoined, &party.UserJoined{
		DisplayName:  p.DisplayName,
		ConnectionID: sess.connID,
		MemberCount:  out.MemberCount,
	})
	if out.System != nil {
		s.conns.Broadcast(out.Others, constants.EventReceiveChat, out.System)
	}

	s.logger.Info("Client joined room",
		log.ConnID(sess.connID),
		log.RoomID(p.RoomID),
		log.String("displayName", p.DisplayName),
		log.Int("members", out.MemberCount))

	return &party.JoinReply{
		ConnectionID: sess.connID,
		Room:         out.Snapshot,
	}, nil
}

// handleLeave ignores the roomId param: a connection is in at most one room.
func (s *Server) handleLeave(mctx jsonrpc.MethodContext[Session], _ *json.RawMessage) (any, error) {
	s.leave(mctx.Get(), "leave")
	return nil, nil
}

// leave removes sess from its room and tells the remaining members. The
// caller holds the dispatch lock.
func (s *Server) leave(sess *Session, reason string) {
	out := s.rooms.Leave(sess.reqCtx, sess.connID)
	defer sess.reset()
	if !out.Left {
		return
	}

	s.logger.Info("Client left room",
		log.ConnID(sess.connID),
		log.RoomID(out.RoomID),
		log.String("reason", reason),
		log.Bool("closed", out.Closed))

	if out.Closed {
		return
	}
	if sess.inVoice {
		s.conns.Broadcast(out.Others, constants.EventVoiceUserLeft, &party.VoiceUserLeft{ConnectionID: sess.connID})
	}
	if sess.sharing {
		s.conns.Broadcast(out.Others, constants.EventScreenStopped, &party.ScreenStopped{From: sess.connID})
	}
	s.conns.Broadcast(out.Others, constants.EventUserLeft, &party.UserLeft{DisplayName: out.DisplayName})
	if out.System != nil {
		s.conns.Broadcast(out.Others, constants.EventReceiveChat, out.System)
	}
}
