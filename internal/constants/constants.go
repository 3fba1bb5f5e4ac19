package constants

// Client to server events.
const (
	EventJoinRoom           = "join-room"
	EventLeaveRoom          = "leave-room"
	EventPlayVideo          = "play-video"
	EventPauseVideo         = "pause-video"
	EventSeekVideo          = "seek-video"
	EventChangeVideo        = "change-video"
	EventSyncModeChange     = "sync-mode-change"
	EventSendChat           = "send-chat"
	EventSendNudge          = "send-nudge"
	EventVoiceJoin          = "voice-join"
	EventVoiceLeave         = "voice-leave"
	EventScreenStarted      = "screen-started"
	EventScreenStopped      = "screen-stopped"
	EventCountdownTick      = "netflix-countdown-tick"
	EventSyncCommand        = "netflix-sync-command"
	EventUserTyping         = "user-typing"
	EventUserStoppedTyping  = "user-stopped-typing"
	EventVoiceOffer         = "voice-offer"
	EventVoiceAnswer        = "voice-answer"
	EventVoiceICECandidate  = "voice-ice-candidate"
	EventScreenOffer        = "screen-offer"
	EventScreenAnswer       = "screen-answer"
	EventScreenICECandidate = "screen-ice-candidate"
)

// Server to client events. Typing, countdown, sync command and the
// signaling events keep the inbound name.
const (
	EventRoomState       = "room-state"
	EventUserJoined      = "user-joined"
	EventUserLeft        = "user-left"
	EventVideoPlayed     = "video-played"
	EventVideoPaused     = "video-paused"
	EventVideoSeeked     = "video-seeked"
	EventVideoChanged    = "video-changed"
	EventSyncModeChanged = "sync-mode-changed"
	EventReceiveChat     = "receive-chat"
	EventReceiveNudge    = "receive-nudge"
	EventVoiceUserJoined = "voice-user-joined"
	EventVoiceUserLeft   = "voice-user-left"
)

// Activity feed event types.
const (
	ActivityRoomOpened    = "room.opened"
	ActivityRoomClosed    = "room.closed"
	ActivityMemberJoined  = "member.joined"
	ActivityMemberLeft    = "member.left"
	ActivitySourceChanged = "source.changed"
	ActivityModeChanged   = "mode.changed"
)

const SystemDisplayName = "system"
