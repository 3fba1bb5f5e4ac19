package room

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/imtaco/watch-party/internal/constants"
	"github.com/imtaco/watch-party/internal/errors"
	"github.com/imtaco/watch-party/internal/log"
	"github.com/imtaco/watch-party/party"
	"github.com/imtaco/watch-party/party/mocks"
	"github.com/imtaco/watch-party/party/registry"
)

type ManagerTestSuite struct {
	suite.Suite
	ctx      context.Context
	ctrl     *gomock.Controller
	sink     *mocks.MockActivitySink
	clock    *clockwork.FakeClock
	registry *registry.Memory
	mgr      *Manager
	events   []party.ActivityEvent
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerTestSuite))
}

func (s *ManagerTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.sink = mocks.NewMockActivitySink(s.ctrl)
	s.events = nil
	s.sink.EXPECT().Publish(gomock.Any()).Do(func(ev party.ActivityEvent) {
		s.events = append(s.events, ev)
	}).AnyTimes()
	s.clock = clockwork.NewFakeClockAt(time.Unix(1700000000, 0))
	s.registry = registry.NewMemory()
	s.mgr = NewManager(s.registry, s.sink, s.clock, true, log.NewNop())
}

func (s *ManagerTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ManagerTestSuite) join(roomID, connID, name string) *JoinOutcome {
	out, err := s.mgr.Join(s.ctx, roomID, connID, name)
	s.Require().NoError(err)
	return out
}

func (s *ManagerTestSuite) eventTypes() []string {
	types := make([]string, 0, len(s.events))
	for _, ev := range s.events {
		types = append(types, ev.Type)
	}
	return types
}

func (s *ManagerTestSuite) TestJoin_CreatesRoomWithDefaults() {
	out := s.join("r1", "c1", "Alice")

	s.Equal(party.Snapshot{
		VideoURL:    "",
		IsPlaying:   false,
		CurrentTime: 0,
		Mode:        party.ModeEmbedded,
		Users:       []string{"Alice"},
	}, out.Snapshot)
	s.Empty(out.Others)
	s.Equal(1, out.MemberCount)
	s.Require().NotNil(out.System)
	s.Equal("system", out.System.DisplayName)
	s.Equal("Alice joined the room", out.System.Text)
	s.True(out.System.System)
	s.Equal(s.clock.Now(), out.System.Timestamp)

	room, ok := s.registry.Get("r1")
	s.Require().True(ok)
	s.Equal(s.clock.Now(), room.CreatedAt)
	s.Equal([]string{constants.ActivityRoomOpened, constants.ActivityMemberJoined}, s.eventTypes())
}

func (s *ManagerTestSuite) TestJoin_ExistingRoom() {
	s.join("r1", "c1", "Alice")
	out := s.join("r1", "c2", "Bob")

	s.Equal([]string{"Alice", "Bob"}, out.Snapshot.Users)
	s.Equal([]party.Member{{ConnID: "c1", DisplayName: "Alice"}}, out.Others)
	s.Equal(2, out.MemberCount)
	s.Equal([]string{
		constants.ActivityRoomOpened,
		constants.ActivityMemberJoined,
		constants.ActivityMemberJoined,
	}, s.eventTypes())
}

func (s *ManagerTestSuite) TestJoin_DuplicateNamesAllowed() {
	s.join("r1", "c1", "Alice")
	out := s.join("r1", "c2", "Alice")
	s.Equal([]string{"Alice", "Alice"}, out.Snapshot.Users)
}

func (s *ManagerTestSuite) TestJoin_SecondJoinRejected() {
	s.join("r1", "c1", "Alice")

	_, err := s.mgr.Join(s.ctx, "r2", "c1", "Alice")
	s.True(errors.Is(err, party.ErrAlreadyJoined))
	_, err = s.mgr.Join(s.ctx, "r1", "c1", "Alice")
	s.True(errors.Is(err, party.ErrAlreadyJoined))

	_, ok := s.registry.Get("r2")
	s.False(ok)
	room, _ := s.registry.Get("r1")
	s.Len(room.Members, 1)
}

func (s *ManagerTestSuite) TestJoin_SystemMessagesOff() {
	mgr := NewManager(registry.NewMemory(), nil, s.clock, false, log.NewNop())
	out, err := mgr.Join(s.ctx, "r1", "c1", "Alice")
	s.Require().NoError(err)
	s.Nil(out.System)

	out2, err := mgr.Join(s.ctx, "r1", "c2", "Bob")
	s.Require().NoError(err)
	s.Nil(out2.System)
	s.Nil(mgr.Leave(s.ctx, "c2").System)
}

func (s *ManagerTestSuite) TestLeave_NotInRoomIsNoop() {
	out := s.mgr.Leave(s.ctx, "ghost")
	s.False(out.Left)
	s.Empty(out.Others)
	s.Nil(out.System)
	s.Empty(s.events)
}

func (s *ManagerTestSuite) TestLeave_KeepsRoomWhileMembersRemain() {
	s.join("r1", "c1", "Alice")
	s.join("r1", "c2", "Bob")

	out := s.mgr.Leave(s.ctx, "c1")
	s.True(out.Left)
	s.False(out.Closed)
	s.Equal("r1", out.RoomID)
	s.Equal("Alice", out.DisplayName)
	s.Equal([]party.Member{{ConnID: "c2", DisplayName: "Bob"}}, out.Others)
	s.Require().NotNil(out.System)
	s.Equal("Alice left the room", out.System.Text)

	snap, ok := s.mgr.GetRoom("r1")
	s.Require().True(ok)
	s.Equal([]string{"Bob"}, snap.Users)

	_, ok = s.mgr.RoomOf("c1")
	s.False(ok)

	// second leave of the same connection does nothing
	s.False(s.mgr.Leave(s.ctx, "c1").Left)
}

func (s *ManagerTestSuite) TestLeave_LastMemberClosesRoom() {
	s.join("r1", "c1", "Alice")
	_, err := s.mgr.ChangeSource(s.ctx, "r1", "c1", "u1")
	s.Require().NoError(err)
	_, err = s.mgr.Play(s.ctx, "r1", "c1", 12)
	s.Require().NoError(err)

	out := s.mgr.Leave(s.ctx, "c1")
	s.True(out.Left)
	s.True(out.Closed)
	s.Empty(out.Others)
	s.Nil(out.System)
	s.Equal(0, s.registry.Len())

	// rejoining recreates the room from defaults
	rejoin := s.join("r1", "c2", "Bob")
	s.Empty(rejoin.Snapshot.VideoURL)
	s.False(rejoin.Snapshot.IsPlaying)
	s.Zero(rejoin.Snapshot.CurrentTime)
	s.Equal(party.ModeEmbedded, rejoin.Snapshot.Mode)
	s.Equal([]string{"Bob"}, rejoin.Snapshot.Users)
}

func (s *ManagerTestSuite) TestLeave_CanJoinAnotherRoomAfterwards() {
	s.join("r1", "c1", "Alice")
	s.mgr.Leave(s.ctx, "c1")

	out := s.join("r2", "c1", "Alice")
	s.Equal([]string{"Alice"}, out.Snapshot.Users)
	roomID, ok := s.mgr.RoomOf("c1")
	s.True(ok)
	s.Equal("r2", roomID)
}

func (s *ManagerTestSuite) TestExistsIffMembers() {
	rng := rand.New(rand.NewSource(7))
	conns := []string{"c1", "c2", "c3", "c4"}
	joined := map[string]bool{}

	for i := 0; i < 500; i++ {
		conn := conns[rng.Intn(len(conns))]
		if joined[conn] {
			s.mgr.Leave(s.ctx, conn)
			joined[conn] = false
		} else {
			s.join("r1", conn, "user-"+conn)
			joined[conn] = true
		}

		count := 0
		for _, in := range joined {
			if in {
				count++
			}
		}
		room, exists := s.registry.Get("r1")
		s.Equal(count > 0, exists, "step %d", i)
		if exists {
			s.Len(room.Members, count, "step %d", i)
		}
	}
}

func (s *ManagerTestSuite) TestPlaybackCommands() {
	s.join("r1", "c1", "Alice")
	s.join("r1", "c2", "Bob")

	others, err := s.mgr.Play(s.ctx, "r1", "c1", 42)
	s.Require().NoError(err)
	s.Equal([]party.Member{{ConnID: "c2", DisplayName: "Bob"}}, others)
	snap, _ := s.mgr.GetRoom("r1")
	s.True(snap.IsPlaying)
	s.Equal(42.0, snap.CurrentTime)

	_, err = s.mgr.Seek(s.ctx, "r1", "c2", 90.5)
	s.Require().NoError(err)
	snap, _ = s.mgr.GetRoom("r1")
	s.True(snap.IsPlaying)
	s.Equal(90.5, snap.CurrentTime)

	_, err = s.mgr.Pause(s.ctx, "r1", "c1", 91)
	s.Require().NoError(err)
	snap, _ = s.mgr.GetRoom("r1")
	s.False(snap.IsPlaying)
	s.Equal(91.0, snap.CurrentTime)
}

func (s *ManagerTestSuite) TestLastWriterWins() {
	s.join("r1", "c1", "Alice")
	s.join("r1", "c2", "Bob")

	_, err := s.mgr.Seek(s.ctx, "r1", "c1", 100)
	s.Require().NoError(err)
	_, err = s.mgr.Seek(s.ctx, "r1", "c2", 10)
	s.Require().NoError(err)

	snap, _ := s.mgr.GetRoom("r1")
	s.Equal(10.0, snap.CurrentTime)
}

func (s *ManagerTestSuite) TestChangeSource_ResetsPlayback() {
	s.join("r1", "c1", "Alice")
	s.join("r1", "c2", "Bob")
	_, err := s.mgr.Play(s.ctx, "r1", "c1", 42)
	s.Require().NoError(err)

	others, err := s.mgr.ChangeSource(s.ctx, "r1", "c1", "u2")
	s.Require().NoError(err)
	s.Len(others, 1)

	out := s.join("r1", "c3", "Carol")
	s.Equal("u2", out.Snapshot.VideoURL)
	s.False(out.Snapshot.IsPlaying)
	s.Zero(out.Snapshot.CurrentTime)

	last := s.events[len(s.events)-2]
	s.Equal(constants.ActivitySourceChanged, last.Type)
	s.Equal("u2", last.Detail)
}

func (s *ManagerTestSuite) TestChangeMode() {
	s.join("r1", "c1", "Alice")
	s.join("r1", "c2", "Bob")

	others, msg, err := s.mgr.ChangeMode(s.ctx, "r1", "c2", party.ModePlatform)
	s.Require().NoError(err)
	s.Equal([]party.Member{{ConnID: "c1", DisplayName: "Alice"}}, others)
	s.Require().NotNil(msg)
	s.Equal("Bob switched sync mode to netflix", msg.Text)

	snap, _ := s.mgr.GetRoom("r1")
	s.Equal(party.ModePlatform, snap.Mode)

	last := s.events[len(s.events)-1]
	s.Equal(constants.ActivityModeChanged, last.Type)
	s.Equal("netflix", last.Detail)
	s.Equal("Bob", last.DisplayName)

	_, _, err = s.mgr.ChangeMode(s.ctx, "r1", "c2", party.Mode("vhs"))
	s.True(errors.Is(err, party.ErrInvalidMode))
}

func (s *ManagerTestSuite) TestCommandRejections() {
	s.join("r1", "c1", "Alice")
	s.join("r2", "c2", "Bob")

	_, err := s.mgr.Play(s.ctx, "missing", "c1", 1)
	s.True(errors.Is(err, party.ErrRoomNotFound))

	_, err = s.mgr.Play(s.ctx, "r1", "c2", 1)
	s.True(errors.Is(err, party.ErrNotMember))

	_, err = s.mgr.Recipients("r1", "c2")
	s.True(errors.Is(err, party.ErrNotMember))

	_, _, err = s.mgr.ChangeMode(s.ctx, "missing", "c1", party.ModeGeneric)
	s.True(errors.Is(err, party.ErrRoomNotFound))

	snap, _ := s.mgr.GetRoom("r1")
	s.False(snap.IsPlaying)
}

func (s *ManagerTestSuite) TestRecipientsExcludeSender() {
	s.join("r1", "c1", "Alice")
	s.join("r1", "c2", "Bob")
	s.join("r1", "c3", "Carol")

	others, err := s.mgr.Recipients("r1", "c2")
	s.Require().NoError(err)
	s.Equal([]party.Member{
		{ConnID: "c1", DisplayName: "Alice"},
		{ConnID: "c3", DisplayName: "Carol"},
	}, others)

	name, ok := s.mgr.DisplayName("r1", "c3")
	s.True(ok)
	s.Equal("Carol", name)
	_, ok = s.mgr.DisplayName("r1", "c9")
	s.False(ok)
}

func (s *ManagerTestSuite) TestListRoomsSorted() {
	s.join("zeta", "c1", "Alice")
	s.join("alpha", "c2", "Bob")
	s.join("alpha", "c3", "Carol")
	_, err := s.mgr.ChangeSource(s.ctx, "alpha", "c2", "u1")
	s.Require().NoError(err)

	rooms := s.mgr.ListRooms()
	s.Equal([]party.RoomSummary{
		{RoomID: "alpha", MemberCount: 2, Mode: party.ModeEmbedded, VideoURL: "u1"},
		{RoomID: "zeta", MemberCount: 1, Mode: party.ModeEmbedded},
	}, rooms)

	_, ok := s.mgr.GetRoom("nope")
	s.False(ok)
}

func (s *ManagerTestSuite) TestActivityEventsCarryContext() {
	s.join("r1", "c1", "Alice")
	s.clock.Advance(time.Minute)
	s.mgr.Leave(s.ctx, "c1")

	s.Equal([]string{
		constants.ActivityRoomOpened,
		constants.ActivityMemberJoined,
		constants.ActivityMemberLeft,
		constants.ActivityRoomClosed,
	}, s.eventTypes())

	left := s.events[2]
	s.Equal("r1", left.RoomID)
	s.Equal("c1", left.ConnID)
	s.Equal("Alice", left.DisplayName)
	s.Equal(s.clock.Now(), left.At)
}
