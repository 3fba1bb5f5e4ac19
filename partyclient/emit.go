package partyclient

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/imtaco/watch-party/internal/constants"
	"github.com/imtaco/watch-party/internal/errors"
	"github.com/imtaco/watch-party/party"
)

const ErrPayload errors.Code = "invalid_payload"

// Platform sync actions. Back, Forward and Jump build the parameterized ones.
const (
	ActionPlay  = "play"
	ActionPause = "pause"
)

func ActionBack(seconds int) string    { return "back" + strconv.Itoa(seconds) }
func ActionForward(seconds int) string { return "forward" + strconv.Itoa(seconds) }

// ActionJump targets an absolute position written as h:mm:ss or seconds.
func ActionJump(position string) string { return "jump-" + position }

func (c *Client) room() (string, error) {
	roomID := c.RoomID()
	if roomID == "" {
		return "", errors.New(ErrNotJoined, "not in a room")
	}
	return roomID, nil
}

func (c *Client) emitRoom(ctx context.Context, event string, params func(roomID string) any) error {
	roomID, err := c.room()
	if err != nil {
		return err
	}
	return c.Emit(ctx, event, params(roomID))
}

func (c *Client) Play(ctx context.Context, t float64) error {
	return c.emitRoom(ctx, constants.EventPlayVideo, func(roomID string) any {
		return &party.TimeParams{RoomID: roomID, Time: t}
	})
}

func (c *Client) Pause(ctx context.Context, t float64) error {
	return c.emitRoom(ctx, constants.EventPauseVideo, func(roomID string) any {
		return &party.TimeParams{RoomID: roomID, Time: t}
	})
}

func (c *Client) Seek(ctx context.Context, t float64) error {
	return c.emitRoom(ctx, constants.EventSeekVideo, func(roomID string) any {
		return &party.TimeParams{RoomID: roomID, Time: t}
	})
}

func (c *Client) ChangeVideo(ctx context.Context, url string) error {
	return c.emitRoom(ctx, constants.EventChangeVideo, func(roomID string) any {
		return &party.ChangeVideoParams{RoomID: roomID, URL: url}
	})
}

func (c *Client) SetMode(ctx context.Context, mode party.Mode) error {
	return c.emitRoom(ctx, constants.EventSyncModeChange, func(roomID string) any {
		return &party.SyncModeParams{RoomID: roomID, Mode: mode}
	})
}

// SendChat waits for the gateway and returns the message as the other
// members received it, server timestamp included.
func (c *Client) SendChat(ctx context.Context, text string) (*party.ChatMessage, error) {
	roomID, err := c.room()
	if err != nil {
		return nil, err
	}
	var msg party.ChatMessage
	if err := c.Request(ctx, constants.EventSendChat, &party.ChatParams{RoomID: roomID, Text: text}, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (c *Client) Nudge(ctx context.Context) error {
	return c.presence(ctx, constants.EventSendNudge)
}

func (c *Client) Typing(ctx context.Context) error {
	return c.presence(ctx, constants.EventUserTyping)
}

func (c *Client) StoppedTyping(ctx context.Context) error {
	return c.presence(ctx, constants.EventUserStoppedTyping)
}

func (c *Client) presence(ctx context.Context, event string) error {
	return c.emitRoom(ctx, event, func(roomID string) any {
		return &party.PresenceParams{RoomID: roomID}
	})
}

func (c *Client) CountdownTick(ctx context.Context, count int) error {
	return c.emitRoom(ctx, constants.EventCountdownTick, func(roomID string) any {
		return &party.CountdownTickParams{RoomID: roomID, Count: count}
	})
}

// SyncCommand relays a platform sync action signed with the member's name.
func (c *Client) SyncCommand(ctx context.Context, action string) error {
	sender := c.DisplayName()
	return c.emitRoom(ctx, constants.EventSyncCommand, func(roomID string) any {
		return &party.SyncCommandParams{
			RoomID:  roomID,
			Command: party.SyncCommand{Action: action, Sender: sender},
		}
	})
}

func (c *Client) VoiceJoin(ctx context.Context) error {
	return c.presence(ctx, constants.EventVoiceJoin)
}

func (c *Client) VoiceLeave(ctx context.Context) error {
	return c.emitRoom(ctx, constants.EventVoiceLeave, func(roomID string) any {
		return &party.RoomParams{RoomID: roomID}
	})
}

func (c *Client) VoiceOffer(ctx context.Context, targetID string, payload any) error {
	return c.signal(ctx, constants.EventVoiceOffer, targetID, payload)
}

func (c *Client) VoiceAnswer(ctx context.Context, targetID string, payload any) error {
	return c.signal(ctx, constants.EventVoiceAnswer, targetID, payload)
}

func (c *Client) VoiceICECandidate(ctx context.Context, targetID string, payload any) error {
	return c.signal(ctx, constants.EventVoiceICECandidate, targetID, payload)
}

func (c *Client) ScreenStarted(ctx context.Context) error {
	return c.signal(ctx, constants.EventScreenStarted, "", nil)
}

func (c *Client) ScreenStopped(ctx context.Context) error {
	return c.emitRoom(ctx, constants.EventScreenStopped, func(roomID string) any {
		return &party.RoomParams{RoomID: roomID}
	})
}

func (c *Client) ScreenOffer(ctx context.Context, targetID string, payload any) error {
	return c.signal(ctx, constants.EventScreenOffer, targetID, payload)
}

func (c *Client) ScreenAnswer(ctx context.Context, targetID string, payload any) error {
	return c.signal(ctx, constants.EventScreenAnswer, targetID, payload)
}

// ScreenICECandidate goes to the whole room when targetID is empty.
func (c *Client) ScreenICECandidate(ctx context.Context, targetID string, payload any) error {
	return c.signal(ctx, constants.EventScreenICECandidate, targetID, payload)
}

func (c *Client) signal(ctx context.Context, event, targetID string, payload any) error {
	roomID, err := c.room()
	if err != nil {
		return err
	}
	return emitSignal(ctx, c, event, roomID, targetID, payload)
}

func emitSignal(ctx context.Context, conn Conn, event, roomID, targetID string, payload any) error {
	params := &party.SignalParams{RoomID: roomID, TargetID: targetID}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrapf(ErrPayload, err, "marshal %s payload", event)
		}
		params.Payload = raw
	}
	return conn.Emit(ctx, event, params)
}
