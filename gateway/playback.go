package gateway

import (
	"context"
	"encoding/json"

	"github.com/imtaco/watch-party/internal/constants"
	"github.com/imtaco/watch-party/internal/jsonrpc"
	"github.com/imtaco/watch-party/party"
)

type timeApplier func(ctx context.Context, roomID, connID string, t float64) ([]party.Member, error)

// timeCommand handles play, pause and seek: apply to the room, then tell
// everyone else the new position.
func (s *Server) timeCommand(apply timeApplier, event string) jsonrpc.MethodHandler[Session] {
	return func(mctx jsonrpc.MethodContext[Session], params *json.RawMessage) (any, error) {
		var p party.TimeParams
		if err := jsonrpc.ShouldBindParams(params, &p); err != nil {
			return nil, err
		}
		sess := mctx.Get()

		others, err := apply(sess.reqCtx, p.RoomID, sess.connID, p.Time)
		if err != nil {
			return s.drop(sess, event, p.RoomID, err)
		}
		s.conns.Broadcast(others, event, &party.VideoTime{Time: p.Time})
		return nil, nil
	}
}

func (s *Server) handleChangeVideo(mctx jsonrpc.MethodContext[Session], params *json.RawMessage) (any, error) {
	var p party.ChangeVideoParams
	if err := jsonrpc.ShouldBindParams(params, &p); err != nil {
		return nil, err
	}
	sess := mctx.Get()

	others, err := s.rooms.ChangeSource(sess.reqCtx, p.RoomID, sess.connID, p.URL)
	if err != nil {
		return s.drop(sess, constants.EventChangeVideo, p.RoomID, err)
	}
	s.conns.Broadcast(others, constants.EventVideoChanged, &party.VideoChanged{URL: p.URL})
	return nil, nil
}

func (s *Server) handleSyncMode(mctx jsonrpc.MethodContext[Session], params *json.RawMessage) (any, error) {
	var p party.SyncModeParams
	if err := jsonrpc.ShouldBindParams(params, &p); err != nil {
		return nil, err
	}
	sess := mctx.Get()

	others, msg, err := s.rooms.ChangeMode(sess.reqCtx, p.RoomID, sess.connID, p.Mode)
	if err != nil {
		return s.drop(sess, constants.EventSyncModeChange, p.RoomID, err)
	}
	s.conns.Broadcast(others, constants.EventSyncModeChanged, &party.SyncModeChanged{Mode: p.Mode})
	if msg != nil {
		s.conns.Broadcast(others, constants.EventReceiveChat, msg)
	}
	return nil, nil
}

// handleCountdownTick relays each tick as sent. The server keeps no timer.
func (s *Server) handleCountdownTick(mctx jsonrpc.MethodContext[Session], params *json.RawMessage) (any, error) {
	var p party.CountdownTickParams
	if err := jsonrpc.ShouldBindParams(params, &p); err != nil {
		return nil, err
	}
	sess := mctx.Get()

	others, err := s.rooms.Recipients(p.RoomID, sess.connID)
	if err != nil {
		return s.drop(sess, constants.EventCountdownTick, p.RoomID, err)
	}
	s.conns.Broadcast(others, constants.EventCountdownTick, &party.CountdownTick{Count: p.Count})
	return nil, nil
}

func (s *Server) handleSyncCommand(mctx jsonrpc.MethodContext[Session], params *json.RawMessage) (any, error) {
	var p party.SyncCommandParams
	if err := jsonrpc.ShouldBindParams(params, &p); err != nil {
		return nil, err
	}
	sess := mctx.Get()

	others, err := s.rooms.Recipients(p.RoomID, sess.connID)
	if err != nil {
		return s.drop(sess, constants.EventSyncCommand, p.RoomID, err)
	}
	s.conns.Broadcast(others, constants.EventSyncCommand, &p.Command)
	return nil, nil
}
