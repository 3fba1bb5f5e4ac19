package partyclient

import (
	"encoding/json"

	"github.com/imtaco/watch-party/internal/constants"
	"github.com/imtaco/watch-party/internal/log"
	"github.com/imtaco/watch-party/party"
)

// subscribe decodes each notification of event into T. Undecodable
// payloads are logged and skipped.
func subscribe[T any](conn Conn, logger *log.Logger, event string, fn func(T)) func() {
	return conn.Subscribe(event, func(raw json.RawMessage) {
		var v T
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &v); err != nil {
				logger.Warn("Dropping undecodable event",
					log.Event(event),
					log.Error(err))
				return
			}
		}
		fn(v)
	})
}

// Each On* method returns a func that removes the callback.

func (c *Client) OnRoomState(fn func(party.Snapshot)) func() {
	return subscribe(c, c.logger, constants.EventRoomState, fn)
}

func (c *Client) OnUserJoined(fn func(party.UserJoined)) func() {
	return subscribe(c, c.logger, constants.EventUserJoined, fn)
}

func (c *Client) OnUserLeft(fn func(party.UserLeft)) func() {
	return subscribe(c, c.logger, constants.EventUserLeft, fn)
}

func (c *Client) OnVideoPlayed(fn func(party.VideoTime)) func() {
	return subscribe(c, c.logger, constants.EventVideoPlayed, fn)
}

func (c *Client) OnVideoPaused(fn func(party.VideoTime)) func() {
	return subscribe(c, c.logger, constants.EventVideoPaused, fn)
}

func (c *Client) OnVideoSeeked(fn func(party.VideoTime)) func() {
	return subscribe(c, c.logger, constants.EventVideoSeeked, fn)
}

func (c *Client) OnVideoChanged(fn func(party.VideoChanged)) func() {
	return subscribe(c, c.logger, constants.EventVideoChanged, fn)
}

func (c *Client) OnSyncModeChanged(fn func(party.SyncModeChanged)) func() {
	return subscribe(c, c.logger, constants.EventSyncModeChanged, fn)
}

// OnChat also receives system messages, flagged by System.
func (c *Client) OnChat(fn func(party.ChatMessage)) func() {
	return subscribe(c, c.logger, constants.EventReceiveChat, fn)
}

func (c *Client) OnNudge(fn func(party.Presence)) func() {
	return subscribe(c, c.logger, constants.EventReceiveNudge, fn)
}

func (c *Client) OnTyping(fn func(party.Presence)) func() {
	return subscribe(c, c.logger, constants.EventUserTyping, fn)
}

func (c *Client) OnStoppedTyping(fn func(party.Presence)) func() {
	return subscribe(c, c.logger, constants.EventUserStoppedTyping, fn)
}

func (c *Client) OnCountdownTick(fn func(party.CountdownTick)) func() {
	return subscribe(c, c.logger, constants.EventCountdownTick, fn)
}

func (c *Client) OnSyncCommand(fn func(party.SyncCommand)) func() {
	return subscribe(c, c.logger, constants.EventSyncCommand, fn)
}

func (c *Client) OnVoiceUserJoined(fn func(party.VoiceUserJoined)) func() {
	return subscribe(c, c.logger, constants.EventVoiceUserJoined, fn)
}

func (c *Client) OnVoiceUserLeft(fn func(party.VoiceUserLeft)) func() {
	return subscribe(c, c.logger, constants.EventVoiceUserLeft, fn)
}

func (c *Client) OnVoiceOffer(fn func(party.Signal)) func() {
	return subscribe(c, c.logger, constants.EventVoiceOffer, fn)
}

func (c *Client) OnVoiceAnswer(fn func(party.Signal)) func() {
	return subscribe(c, c.logger, constants.EventVoiceAnswer, fn)
}

func (c *Client) OnVoiceICECandidate(fn func(party.Signal)) func() {
	return subscribe(c, c.logger, constants.EventVoiceICECandidate, fn)
}

func (c *Client) OnScreenStarted(fn func(party.Signal)) func() {
	return subscribe(c, c.logger, constants.EventScreenStarted, fn)
}

func (c *Client) OnScreenStopped(fn func(party.ScreenStopped)) func() {
	return subscribe(c, c.logger, constants.EventScreenStopped, fn)
}

func (c *Client) OnScreenOffer(fn func(party.Signal)) func() {
	return subscribe(c, c.logger, constants.EventScreenOffer, fn)
}

func (c *Client) OnScreenAnswer(fn func(party.Signal)) func() {
	return subscribe(c, c.logger, constants.EventScreenAnswer, fn)
}

func (c *Client) OnScreenICECandidate(fn func(party.Signal)) func() {
	return subscribe(c, c.logger, constants.EventScreenICECandidate, fn)
}
