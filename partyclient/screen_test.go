package partyclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imtaco/watch-party/internal/constants"
	"github.com/imtaco/watch-party/internal/errors"
	"github.com/imtaco/watch-party/internal/log"
	"github.com/imtaco/watch-party/party"
)

func newTestScreen(t *testing.T) (*ScreenShare, *fakeConn, *[]ScreenRole) {
	conn := newFakeConn()
	screen := NewScreenShare(conn, "room1", log.NewTest(t))
	t.Cleanup(screen.Close)

	roles := []ScreenRole{}
	screen.OnChange(func(role ScreenRole, _ string) {
		roles = append(roles, role)
	})
	return screen, conn, &roles
}

func TestScreenShareStartStop(t *testing.T) {
	ctx := context.Background()
	screen, conn, roles := newTestScreen(t)

	require.NoError(t, screen.Start(ctx))
	role, sharer := screen.State()
	assert.Equal(t, ScreenSharing, role)
	assert.Empty(t, sharer)

	started, ok := conn.last().params.(*party.SignalParams)
	require.True(t, ok)
	assert.Equal(t, "room1", started.RoomID)
	assert.Empty(t, started.TargetID)

	// starting twice does not announce again
	require.NoError(t, screen.Start(ctx))

	// someone else's announcement does not take over our slot
	conn.push(constants.EventScreenStarted, party.Signal{From: "p2"})
	role, _ = screen.State()
	assert.Equal(t, ScreenSharing, role)

	require.NoError(t, screen.Stop(ctx))
	role, _ = screen.State()
	assert.Equal(t, ScreenIdle, role)
	assert.Equal(t, &party.RoomParams{RoomID: "room1"}, conn.last().params)

	assert.Equal(t, []string{constants.EventScreenStarted, constants.EventScreenStopped}, conn.events())
	assert.Equal(t, []ScreenRole{ScreenSharing, ScreenIdle}, *roles)
}

func TestScreenShareRejectsWhileViewing(t *testing.T) {
	ctx := context.Background()
	screen, conn, _ := newTestScreen(t)

	conn.push(constants.EventScreenStarted, party.Signal{From: "p2"})
	role, sharer := screen.State()
	assert.Equal(t, ScreenViewing, role)
	assert.Equal(t, "p2", sharer)

	err := screen.Start(ctx)
	assert.True(t, errors.Is(err, ErrScreenBusy))
	assert.Empty(t, conn.sent())

	// stop is a no-op for viewers
	require.NoError(t, screen.Stop(ctx))
	assert.Empty(t, conn.sent())
}

func TestScreenShareViewerFollowsSharer(t *testing.T) {
	screen, conn, roles := newTestScreen(t)

	conn.push(constants.EventScreenStarted, party.Signal{From: "p2"})

	// a stop from someone else does not end the view
	conn.push(constants.EventScreenStopped, party.ScreenStopped{From: "p3"})
	role, _ := screen.State()
	assert.Equal(t, ScreenViewing, role)

	conn.push(constants.EventScreenStopped, party.ScreenStopped{From: "p2"})
	role, sharer := screen.State()
	assert.Equal(t, ScreenIdle, role)
	assert.Empty(t, sharer)
	assert.Equal(t, []ScreenRole{ScreenViewing, ScreenIdle}, *roles)

	require.NoError(t, screen.Start(context.Background()))
}

func TestScreenShareStartFailureKeepsIdle(t *testing.T) {
	screen, conn, roles := newTestScreen(t)
	conn.err = errors.New(ErrNotConnected, "down")

	assert.Error(t, screen.Start(context.Background()))
	role, _ := screen.State()
	assert.Equal(t, ScreenIdle, role)
	assert.Empty(t, *roles)
}
