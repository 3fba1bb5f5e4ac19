package room

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/imtaco/watch-party/internal/constants"
	"github.com/imtaco/watch-party/internal/errors"
	"github.com/imtaco/watch-party/internal/log"
	"github.com/imtaco/watch-party/party"
)

type JoinOutcome struct {
	Snapshot    party.Snapshot
	Others      []party.Member
	MemberCount int
	// System is nil when system messages are off.
	System *party.ChatMessage
}

type LeaveOutcome struct {
	RoomID      string
	DisplayName string
	// Left is false when the connection was in no room.
	Left bool
	// Closed reports that the last member left and the room is gone.
	Closed bool
	Others []party.Member
	System *party.ChatMessage
}

// Manager owns room membership and playback state. It is the only writer
// of the registry, and it keeps a connection -> room index so that a
// connection belongs to at most one room.
type Manager struct {
	mu             sync.RWMutex
	registry       party.Registry
	sink           party.ActivitySink
	clock          clockwork.Clock
	systemMessages bool
	where          map[string]string // connID -> roomID
	logger         *log.Logger
}

func NewManager(
	registry party.Registry,
	sink party.ActivitySink,
	clock clockwork.Clock,
	systemMessages bool,
	logger *log.Logger,
) *Manager {
	if sink == nil {
		sink = party.NopSink()
	}
	return &Manager{
		registry:       registry,
		sink:           sink,
		clock:          clock,
		systemMessages: systemMessages,
		where:          make(map[string]string),
		logger:         logger,
	}
}

// Join adds connID to roomID, creating the room with default state when it
// does not exist.
func (m *Manager) Join(ctx context.Context, roomID, connID, displayName string) (*JoinOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.where[connID]; ok {
		joinsRejected.Add(ctx, 1)
		return nil, errors.Newf(party.ErrAlreadyJoined, "connection %s already in room %s", connID, cur)
	}

	now := m.clock.Now()
	room, ok := m.registry.Get(roomID)
	if !ok {
		room = party.NewRoom(roomID, now)
		roomsActive.Add(ctx, 1)
		roomsOpened.Add(ctx, 1)
		m.publish(constants.ActivityRoomOpened, roomID, connID, displayName, "")
		m.logger.Info("room opened", log.RoomID(roomID))
	}

	room.Members = append(room.Members, party.Member{ConnID: connID, DisplayName: displayName})
	m.registry.Upsert(room)
	m.where[connID] = roomID
	membersActive.Add(ctx, 1)
	m.publish(constants.ActivityMemberJoined, roomID, connID, displayName, "")

	m.logger.Debug("member joined",
		log.RoomID(roomID),
		log.ConnID(connID),
		log.String("displayName", displayName),
		log.Int("members", len(room.Members)))

	return &JoinOutcome{
		Snapshot:    room.Snapshot(),
		Others:      room.Others(connID),
		MemberCount: len(room.Members),
		System:      m.systemMessage(displayName + " joined the room"),
	}, nil
}

// Leave removes connID from its room. It is a no-op for a connection that
// is in no room.
func (m *Manager) Leave(ctx context.Context, connID string) *LeaveOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()

	roomID, ok := m.where[connID]
	if !ok {
		return &LeaveOutcome{}
	}
	delete(m.where, connID)

	room, ok := m.registry.Get(roomID)
	if !ok {
		m.logger.Warn("index points to a missing room", log.RoomID(roomID), log.ConnID(connID))
		return &LeaveOutcome{}
	}
	idx := room.IndexOf(connID)
	if idx < 0 {
		m.logger.Warn("index points to a room without the member", log.RoomID(roomID), log.ConnID(connID))
		return &LeaveOutcome{}
	}
	name := room.Members[idx].DisplayName
	room.Members = slices.Delete(room.Members, idx, idx+1)
	membersActive.Add(ctx, -1)
	m.publish(constants.ActivityMemberLeft, roomID, connID, name, "")

	out := &LeaveOutcome{
		RoomID:      roomID,
		DisplayName: name,
		Left:        true,
	}

	if len(room.Members) == 0 {
		m.registry.Delete(roomID)
		roomsActive.Add(ctx, -1)
		m.publish(constants.ActivityRoomClosed, roomID, "", "", "")
		m.logger.Info("room closed", log.RoomID(roomID))
		out.Closed = true
		return out
	}

	m.registry.Upsert(room)
	out.Others = room.Others(connID)
	out.System = m.systemMessage(name + " left the room")
	return out
}

// RoomOf returns the room connID is in.
func (m *Manager) RoomOf(connID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	roomID, ok := m.where[connID]
	return roomID, ok
}

func (m *Manager) Play(ctx context.Context, roomID, connID string, t float64) ([]party.Member, error) {
	return m.mutate(ctx, "play", roomID, connID, func(r *party.Room) {
		r.IsPlaying = true
		r.CurrentTime = t
	})
}

func (m *Manager) Pause(ctx context.Context, roomID, connID string, t float64) ([]party.Member, error) {
	return m.mutate(ctx, "pause", roomID, connID, func(r *party.Room) {
		r.IsPlaying = false
		r.CurrentTime = t
	})
}

func (m *Manager) Seek(ctx context.Context, roomID, connID string, t float64) ([]party.Member, error) {
	return m.mutate(ctx, "seek", roomID, connID, func(r *party.Room) {
		r.CurrentTime = t
	})
}

// ChangeSource swaps the video and rewinds playback to a paused start.
func (m *Manager) ChangeSource(ctx context.Context, roomID, connID, url string) ([]party.Member, error) {
	others, err := m.mutate(ctx, "change-source", roomID, connID, func(r *party.Room) {
		r.VideoURL = url
		r.IsPlaying = false
		r.CurrentTime = 0
	})
	if err != nil {
		return nil, err
	}
	m.publish(constants.ActivitySourceChanged, roomID, connID, "", url)
	return others, nil
}

func (m *Manager) ChangeMode(ctx context.Context, roomID, connID string, mode party.Mode) ([]party.Member, *party.ChatMessage, error) {
	if !mode.Valid() {
		return nil, nil, errors.Newf(party.ErrInvalidMode, "invalid mode %q", mode)
	}

	var name string
	others, err := m.mutate(ctx, "change-mode", roomID, connID, func(r *party.Room) {
		r.Mode = mode
		name = r.Members[r.IndexOf(connID)].DisplayName
	})
	if err != nil {
		return nil, nil, err
	}
	m.publish(constants.ActivityModeChanged, roomID, connID, name, string(mode))
	return others, m.systemMessage(fmt.Sprintf("%s switched sync mode to %s", name, mode)), nil
}

// Recipients returns the members of roomID other than connID, for events
// that are relayed without touching room state.
func (m *Manager) Recipients(roomID, connID string) ([]party.Member, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, err := m.memberRoom(roomID, connID)
	if err != nil {
		return nil, err
	}
	return room.Others(connID), nil
}

// DisplayName returns the name connID joined roomID with.
func (m *Manager) DisplayName(roomID, connID string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, ok := m.registry.Get(roomID)
	if !ok {
		return "", false
	}
	idx := room.IndexOf(connID)
	if idx < 0 {
		return "", false
	}
	return room.Members[idx].DisplayName, true
}

// ListRooms returns every room sorted by id.
func (m *Manager) ListRooms() []party.RoomSummary {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rooms := make([]party.RoomSummary, 0, m.registry.Len())
	m.registry.Range(func(r *party.Room) bool {
		rooms = append(rooms, r.Summary())
		return true
	})
	slices.SortFunc(rooms, func(a, b party.RoomSummary) int {
		return strings.Compare(a.RoomID, b.RoomID)
	})
	return rooms
}

func (m *Manager) GetRoom(roomID string) (party.Snapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	room, ok := m.registry.Get(roomID)
	if !ok {
		return party.Snapshot{}, false
	}
	return room.Snapshot(), true
}

func (m *Manager) mutate(
	ctx context.Context,
	command, roomID, connID string,
	apply func(r *party.Room),
) ([]party.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	attrs := metric.WithAttributes(attribute.String("command", command))
	room, err := m.memberRoom(roomID, connID)
	if err != nil {
		commandsRejected.Add(ctx, 1, attrs)
		return nil, err
	}
	apply(room)
	m.registry.Upsert(room)
	commandsApplied.Add(ctx, 1, attrs)
	return room.Others(connID), nil
}

// memberRoom requires the read or write lock.
func (m *Manager) memberRoom(roomID, connID string) (*party.Room, error) {
	room, ok := m.registry.Get(roomID)
	if !ok {
		return nil, errors.Newf(party.ErrRoomNotFound, "room %s not found", roomID)
	}
	if !room.HasMember(connID) {
		return nil, errors.Newf(party.ErrNotMember, "connection %s not in room %s", connID, roomID)
	}
	return room, nil
}

func (m *Manager) systemMessage(text string) *party.ChatMessage {
	if !m.systemMessages {
		return nil
	}
	return &party.ChatMessage{
		DisplayName: constants.SystemDisplayName,
		Text:        text,
		Timestamp:   m.clock.Now(),
		System:      true,
	}
}

func (m *Manager) publish(typ, roomID, connID, displayName, detail string) {
	m.sink.Publish(party.ActivityEvent{
		Type:        typ,
		RoomID:      roomID,
		ConnID:      connID,
		DisplayName: displayName,
		Detail:      detail,
		At:          m.clock.Now(),
	})
}
