package gateway

import (
	"encoding/json"

	"github.com/imtaco/watch-party/internal/constants"
	"github.com/imtaco/watch-party/internal/jsonrpc"
	"github.com/imtaco/watch-party/party"
)

// Signaling payloads are opaque: they are forwarded byte for byte and the
// target need not share a room with the sender.

func (s *Server) handleVoiceJoin(mctx jsonrpc.MethodContext[Session], params *json.RawMessage) (any, error) {
	var p party.PresenceParams
	if err := jsonrpc.ShouldBindParams(params, &p); err != nil {
		return nil, err
	}
	sess := mctx.Get()

	others, err := s.rooms.Recipients(p.RoomID, sess.connID)
	if err != nil {
		return s.drop(sess, constants.EventVoiceJoin, p.RoomID, err)
	}
	sess.inVoice = true
	s.conns.Broadcast(others, constants.EventVoiceUserJoined, &party.VoiceUserJoined{
		ConnectionID: sess.connID,
		DisplayName:  sess.nameOr(p.DisplayName),
	})
	return nil, nil
}

func (s *Server) handleVoiceLeave(mctx jsonrpc.MethodContext[Session], params *json.RawMessage) (any, error) {
	var p party.RoomParams
	if err := jsonrpc.ShouldBindParams(params, &p); err != nil {
		return nil, err
	}
	sess := mctx.Get()

	others, err := s.rooms.Recipients(p.RoomID, sess.connID)
	if err != nil {
		return s.drop(sess, constants.EventVoiceLeave, p.RoomID, err)
	}
	sess.inVoice = false
	s.conns.Broadcast(others, constants.EventVoiceUserLeft, &party.VoiceUserLeft{ConnectionID: sess.connID})
	return nil, nil
}

func (s *Server) targetedSignal(event string) jsonrpc.MethodHandler[Session] {
	return func(mctx jsonrpc.MethodContext[Session], params *json.RawMessage) (any, error) {
		var p party.TargetedSignalParams
		if err := jsonrpc.ShouldBindParams(params, &p); err != nil {
			return nil, err
		}
		s.relay(mctx.Get(), event, p.TargetID, p.Payload)
		return nil, nil
	}
}

// screenSignal targets one connection when targetId is set, otherwise the
// rest of the room.
func (s *Server) screenSignal(event string) jsonrpc.MethodHandler[Session] {
	return func(mctx jsonrpc.MethodContext[Session], params *json.RawMessage) (any, error) {
		var p party.SignalParams
		if err := jsonrpc.ShouldBindParams(params, &p); err != nil {
			return nil, err
		}
		sess := mctx.Get()

		if p.TargetID != "" {
			s.relay(sess, event, p.TargetID, p.Payload)
			return nil, nil
		}
		others, err := s.rooms.Recipients(p.RoomID, sess.connID)
		if err != nil {
			return s.drop(sess, event, p.RoomID, err)
		}
		s.conns.Broadcast(others, event, &party.Signal{From: sess.connID, Payload: p.Payload})
		return nil, nil
	}
}

func (s *Server) handleScreenStarted(mctx jsonrpc.MethodContext[Session], params *json.RawMessage) (any, error) {
	var p party.SignalParams
	if err := jsonrpc.ShouldBindParams(params, &p); err != nil {
		return nil, err
	}
	sess := mctx.Get()

	others, err := s.rooms.Recipients(p.RoomID, sess.connID)
	if err != nil {
		return s.drop(sess, constants.EventScreenStarted, p.RoomID, err)
	}
	sess.sharing = true
	s.conns.Broadcast(others, constants.EventScreenStarted, &party.Signal{From: sess.connID, Payload: p.Payload})
	return nil, nil
}

func (s *Server) handleScreenStopped(mctx jsonrpc.MethodContext[Session], params *json.RawMessage) (any, error) {
	var p party.RoomParams
	if err := jsonrpc.ShouldBindParams(params, &p); err != nil {
		return nil, err
	}
	sess := mctx.Get()

	others, err := s.rooms.Recipients(p.RoomID, sess.connID)
	if err != nil {
		return s.drop(sess, constants.EventScreenStopped, p.RoomID, err)
	}
	sess.sharing = false
	s.conns.Broadcast(others, constants.EventScreenStopped, &party.ScreenStopped{From: sess.connID})
	return nil, nil
}

func (s *Server) relay(sess *Session, event, targetID string, payload json.RawMessage) {
	if !s.conns.Notify(targetID, event, &party.Signal{From: sess.connID, Payload: payload}) {
		s.dropTarget(sess, event, targetID)
	}
}
