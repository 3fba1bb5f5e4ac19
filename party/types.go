package party

import (
	"slices"
	"time"

	"github.com/imtaco/watch-party/internal/errors"
)

//go:generate mockgen -source=types.go -destination=mocks/mocks.go -package=mocks

const (
	ErrRoomNotFound   errors.Code = "room_not_found"
	ErrNotMember      errors.Code = "not_member"
	ErrAlreadyJoined  errors.Code = "already_joined"
	ErrNameNotAllowed errors.Code = "name_not_allowed"
	ErrInvalidMode    errors.Code = "invalid_mode"
)

// Mode selects how a room coordinates playback.
type Mode string

const (
	// ModeEmbedded drives an embedded player through play/pause/seek events.
	ModeEmbedded Mode = "movie2watch"
	// ModePlatform coordinates a third-party platform by countdown and
	// manual sync commands.
	ModePlatform Mode = "netflix"
	// ModeGeneric leaves playback control to each viewer.
	ModeGeneric  Mode = "other"
)

func (m Mode) Valid() bool {
	switch m {
	case ModeEmbedded, ModePlatform, ModeGeneric:
		return true
	}
	return false
}

type Member struct {
	ConnID      string
	DisplayName string
}

// Room is the authoritative state of one watch party. It exists only
// while it has at least one member.
type Room struct {
	ID          string
	Members     []Member
	VideoURL    string
	IsPlaying   bool
	CurrentTime float64
	Mode        Mode
	CreatedAt   time.Time
}

func NewRoom(id string, now time.Time) *Room {
	return &Room{
		ID:        id,
		Mode:      ModeEmbedded,
		CreatedAt: now,
	}
}

// IndexOf returns the position of connID in join order, or -1.
func (r *Room) IndexOf(connID string) int {
	return slices.IndexFunc(r.Members, func(m Member) bool {
		return m.ConnID == connID
	})
}

func (r *Room) HasMember(connID string) bool {
	return r.IndexOf(connID) >= 0
}

// Others returns a copy of the members except connID.
func (r *Room) Others(connID string) []Member {
	others := make([]Member, 0, len(r.Members))
	for _, m := range r.Members {
		if m.ConnID != connID {
			others = append(others, m)
		}
	}
	return others
}

func (r *Room) Snapshot() Snapshot {
	users := make([]string, 0, len(r.Members))
	for _, m := range r.Members {
		users = append(users, m.DisplayName)
	}
	return Snapshot{
		VideoURL:    r.VideoURL,
		IsPlaying:   r.IsPlaying,
		CurrentTime: r.CurrentTime,
		Mode:        r.Mode,
		Users:       users,
	}
}

func (r *Room) Summary() RoomSummary {
	return RoomSummary{
		RoomID:      r.ID,
		MemberCount: len(r.Members),
		Mode:        r.Mode,
		VideoURL:    r.VideoURL,
		IsPlaying:   r.IsPlaying,
	}
}

// Snapshot is what a joining member receives as room-state.
type Snapshot struct {
	VideoURL    string   `json:"videoUrl"`
	IsPlaying   bool     `json:"isPlaying"`
	CurrentTime float64  `json:"currentTime"`
	Mode        Mode     `json:"mode"`
	Users       []string `json:"users"`
}

type RoomSummary struct {
	RoomID      string `json:"roomId"`
	MemberCount int    `json:"memberCount"`
	Mode        Mode   `json:"mode"`
	VideoURL    string `json:"videoUrl"`
	IsPlaying   bool   `json:"isPlaying"`
}

type ChatMessage struct {
	DisplayName string    `json:"displayName"`
	Text        string    `json:"text"`
	Timestamp   time.Time `json:"timestamp"`
	System      bool      `json:"system,omitempty"`
}

// Registry stores rooms by id. Implementations need not be safe for
// concurrent writers; room.Manager serializes every mutation.
type Registry interface {
	Get(roomID string) (*Room, bool)
	Upsert(room *Room)
	Delete(roomID string)
	// Range stops when fn returns false.
	Range(fn func(room *Room) bool)
	Len() int
}

// RoomDirectory is the read-only view served over HTTP.
type RoomDirectory interface {
	ListRooms() []RoomSummary
	GetRoom(roomID string) (Snapshot, bool)
}

type ActivityEvent struct {
	Type        string
	RoomID      string
	ConnID      string
	DisplayName string
	Detail      string
	At          time.Time
}

// ActivitySink receives room lifecycle events. Publish must not block.
type ActivitySink interface {
	Publish(ev ActivityEvent)
}

type nopSink struct{}

func (nopSink) Publish(ActivityEvent) {}

func NopSink() ActivitySink {
	return nopSink{}
}
