package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imtaco/watch-party/party"
)

func TestMemory_UpsertGetDelete(t *testing.T) {
	m := NewMemory()
	_, ok := m.Get("r1")
	assert.False(t, ok)

	room := party.NewRoom("r1", time.Unix(100, 0))
	m.Upsert(room)

	got, ok := m.Get("r1")
	require.True(t, ok)
	assert.Same(t, room, got)
	assert.Equal(t, 1, m.Len())

	m.Delete("r1")
	_, ok = m.Get("r1")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())

	// deleting twice is harmless
	m.Delete("r1")
}

func TestMemory_UpsertReplaces(t *testing.T) {
	m := NewMemory()
	m.Upsert(party.NewRoom("r1", time.Time{}))

	next := party.NewRoom("r1", time.Time{})
	next.VideoURL = "u1"
	m.Upsert(next)

	got, ok := m.Get("r1")
	require.True(t, ok)
	assert.Equal(t, "u1", got.VideoURL)
	assert.Equal(t, 1, m.Len())
}

func TestMemory_Range(t *testing.T) {
	m := NewMemory()
	for _, id := range []string{"a", "b", "c"} {
		m.Upsert(party.NewRoom(id, time.Time{}))
	}

	seen := map[string]bool{}
	m.Range(func(room *party.Room) bool {
		seen[room.ID] = true
		return true
	})
	assert.Equal(t, map[string]bool{"a": true, "b": true, "c": true}, seen)

	count := 0
	m.Range(func(*party.Room) bool {
		count++
		return false
	})
	assert.Equal(t, 1, count)
}

func TestRoom_Defaults(t *testing.T) {
	now := time.Unix(42, 0)
	room := party.NewRoom("r1", now)

	assert.Equal(t, party.ModeEmbedded, room.Mode)
	assert.Empty(t, room.VideoURL)
	assert.False(t, room.IsPlaying)
	assert.Zero(t, room.CurrentTime)
	assert.Equal(t, now, room.CreatedAt)
	assert.Equal(t, -1, room.IndexOf("c1"))
}

func TestRoom_MembersAndSnapshot(t *testing.T) {
	room := party.NewRoom("r1", time.Time{})
	room.Members = []party.Member{
		{ConnID: "c1", DisplayName: "Alice"},
		{ConnID: "c2", DisplayName: "Bob"},
		{ConnID: "c3", DisplayName: "Alice"},
	}

	assert.Equal(t, 1, room.IndexOf("c2"))
	assert.True(t, room.HasMember("c3"))
	assert.False(t, room.HasMember("c4"))
	assert.Equal(t, []party.Member{
		{ConnID: "c1", DisplayName: "Alice"},
		{ConnID: "c3", DisplayName: "Alice"},
	}, room.Others("c2"))

	snap := room.Snapshot()
	assert.Equal(t, []string{"Alice", "Bob", "Alice"}, snap.Users)
	assert.Equal(t, party.ModeEmbedded, snap.Mode)

	sum := room.Summary()
	assert.Equal(t, "r1", sum.RoomID)
	assert.Equal(t, 3, sum.MemberCount)
}

func TestMode_Valid(t *testing.T) {
	assert.True(t, party.ModeEmbedded.Valid())
	assert.True(t, party.ModePlatform.Valid())
	assert.True(t, party.ModeGeneric.Valid())
	assert.False(t, party.Mode("youtube").Valid())
	assert.False(t, party.Mode("").Valid())
}
