package party

import "encoding/json"

// Inbound event params. Each is bound with jsonrpc.ShouldBindParams.

type JoinRoomParams struct {
	RoomID      string `json:"roomId" validate:"required,roomid"`
	DisplayName string `json:"displayName" validate:"required,displayname"`
}

type JoinReply struct {
	ConnectionID string   `json:"connectionId"`
	Room         Snapshot `json:"room"`
}

type RoomParams struct {
	RoomID string `json:"roomId" validate:"required,roomid"`
}

type TimeParams struct {
	RoomID string  `json:"roomId" validate:"required,roomid"`
	Time   float64 `json:"time" validate:"gte=0"`
}

type ChangeVideoParams struct {
	RoomID string `json:"roomId" validate:"required,roomid"`
	URL    string `json:"url" validate:"required,max=2048"`
}

type SyncModeParams struct {
	RoomID string `json:"roomId" validate:"required,roomid"`
	Mode   Mode   `json:"mode" validate:"required,syncmode"`
}

// ChatParams falls back to the session display name when DisplayName is empty.
type ChatParams struct {
	RoomID      string `json:"roomId" validate:"required,roomid"`
	Text        string `json:"text" validate:"required,max=2000"`
	DisplayName string `json:"displayName" validate:"omitempty,displayname"`
}

// PresenceParams serves send-nudge, user-typing, user-stopped-typing and voice-join.
type PresenceParams struct {
	RoomID      string `json:"roomId" validate:"required,roomid"`
	DisplayName string `json:"displayName" validate:"omitempty,displayname"`
}

type CountdownTickParams struct {
	RoomID string `json:"roomId" validate:"required,roomid"`
	Count  int    `json:"count" validate:"gte=0,lte=60"`
}

type SyncCommand struct {
	Action string `json:"action" validate:"required,syncaction"`
	Sender string `json:"sender" validate:"omitempty,displayname"`
}

type SyncCommandParams struct {
	RoomID  string      `json:"roomId" validate:"required,roomid"`
	Command SyncCommand `json:"command" validate:"required"`
}

// SignalParams carries an opaque negotiation payload. Voice signals
// require a target; screen signals without one go to the whole room.
type SignalParams struct {
	RoomID   string          `json:"roomId" validate:"required,roomid"`
	TargetID string          `json:"targetId" validate:"omitempty,connid"`
	Payload  json.RawMessage `json:"payload"`
}

type TargetedSignalParams struct {
	RoomID   string          `json:"roomId" validate:"required,roomid"`
	TargetID string          `json:"targetId" validate:"required,connid"`
	Payload  json.RawMessage `json:"payload"`
}

// Outbound event payloads.

type UserJoined struct {
	DisplayName  string `json:"displayName"`
	ConnectionID string `json:"connectionId"`
	MemberCount  int    `json:"memberCount"`
}

type UserLeft struct {
	DisplayName string `json:"displayName"`
}

type VideoTime struct {
	Time float64 `json:"time"`
}

type VideoChanged struct {
	URL string `json:"url"`
}

type SyncModeChanged struct {
	Mode Mode `json:"mode"`
}

type Presence struct {
	DisplayName string `json:"displayName"`
}

type CountdownTick struct {
	Count int `json:"count"`
}

type VoiceUserJoined struct {
	ConnectionID string `json:"connectionId"`
	DisplayName  string `json:"displayName"`
}

type VoiceUserLeft struct {
	ConnectionID string `json:"connectionId"`
}

type Signal struct {
	From    string          `json:"from"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ScreenStopped struct {
	From string `json:"from"`
}
