package gateway

import (
	"encoding/json"

	"github.com/imtaco/watch-party/internal/constants"
	"github.com/imtaco/watch-party/internal/jsonrpc"
	"github.com/imtaco/watch-party/party"
)

// handleChat stamps the message on receipt and relays it. Nothing is kept.
func (s *Server) handleChat(mctx jsonrpc.MethodContext[Session], params *json.RawMessage) (any, error) {
	var p party.ChatParams
	if err := jsonrpc.ShouldBindParams(params, &p); err != nil {
		return nil, err
	}
	sess := mctx.Get()

	others, err := s.rooms.Recipients(p.RoomID, sess.connID)
	if err != nil {
		return s.drop(sess, constants.EventSendChat, p.RoomID, err)
	}
	msg := &party.ChatMessage{
		DisplayName: sess.nameOr(p.DisplayName),
		Text:        p.Text,
		Timestamp:   s.clock.Now(),
	}
	s.conns.Broadcast(others, constants.EventReceiveChat, msg)
	return msg, nil
}

// presence relays nudges and typing indicators under the given event name.
func (s *Server) presence(event string) jsonrpc.MethodHandler[Session] {
	return func(mctx jsonrpc.MethodContext[Session], params *json.RawMessage) (any, error) {
		var p party.PresenceParams
		if err := jsonrpc.ShouldBindParams(params, &p); err != nil {
			return nil, err
		}
		sess := mctx.Get()

		others, err := s.rooms.Recipients(p.RoomID, sess.connID)
		if err != nil {
			return s.drop(sess, event, p.RoomID, err)
		}
		s.conns.Broadcast(others, event, &party.Presence{DisplayName: sess.nameOr(p.DisplayName)})
		return nil, nil
	}
}
