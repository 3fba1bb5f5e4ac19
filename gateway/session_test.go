package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imtaco/watch-party/internal/errors"
	"github.com/imtaco/watch-party/internal/jsonrpc"
	"github.com/imtaco/watch-party/party"
)

func TestNameFilter(t *testing.T) {
	open := newNameFilter(nil)
	assert.True(t, open.allowed("anyone"))

	f := newNameFilter([]string{" Alice", "BOB ", "  "})
	assert.True(t, f.allowed("alice"))
	assert.True(t, f.allowed("  ALICE  "))
	assert.True(t, f.allowed("Bob"))
	assert.False(t, f.allowed("Mallory"))
	assert.False(t, f.allowed(""))
}

func TestNewLimiter(t *testing.T) {
	assert.Nil(t, newLimiter(&Config{EventRate: 0}))

	l := newLimiter(&Config{EventRate: 0.001, EventBurst: 0})
	require.NotNil(t, l)
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())
}

func TestSessionNameAndReset(t *testing.T) {
	sess := &Session{
		connID:      "c1",
		displayName: "Alice",
		roomID:      "r1",
		inVoice:     true,
		sharing:     true,
	}
	assert.Equal(t, "Alice", sess.nameOr(""))
	assert.Equal(t, "Ally", sess.nameOr("Ally"))

	sess.reset()
	assert.Equal(t, "c1", sess.ConnID())
	assert.Empty(t, sess.RoomID())
	assert.Empty(t, sess.DisplayName())
	assert.False(t, sess.inVoice)
	assert.False(t, sess.sharing)
}

func TestRPCError(t *testing.T) {
	code := func(err error) int64 {
		rpcErr, ok := errors.As[*jsonrpc.Error](err)
		require.True(t, ok)
		return (*rpcErr).Code
	}

	assert.Equal(t, CodeAlreadyJoined, code(rpcError(errors.New(party.ErrAlreadyJoined, "x"))))
	assert.Equal(t, CodeNameNotAllowed, code(rpcError(errors.New(party.ErrNameNotAllowed, "x"))))
	assert.Equal(t, int64(jsonrpc.CodeInvalidParams), code(rpcError(errors.New(party.ErrInvalidMode, "x"))))

	other := errors.New("boom", "x")
	assert.Same(t, other, rpcError(other))
}

func TestConfigWSOptions(t *testing.T) {
	cfg := &Config{MaxMessageBytes: 1024, WriteBuffer: 8}
	assert.Len(t, cfg.WSOptions(), 2)
}
