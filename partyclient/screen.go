package partyclient

import (
	"context"
	"slices"
	"sync"

	"github.com/imtaco/watch-party/internal/constants"
	"github.com/imtaco/watch-party/internal/errors"
	"github.com/imtaco/watch-party/internal/log"
	"github.com/imtaco/watch-party/party"
)

const ErrScreenBusy errors.Code = "screen_busy"

type ScreenRole int

const (
	ScreenIdle ScreenRole = iota
	ScreenSharing
	ScreenViewing
)

func (r ScreenRole) String() string {
	switch r {
	case ScreenIdle:
		return "idle"
	case ScreenSharing:
		return "sharing"
	case ScreenViewing:
		return "viewing"
	}
	return "unknown"
}

// ScreenShare tracks the single screen slot of a room from this member's
// side: idle, sharing its own screen, or viewing someone else's. Media
// negotiation stays with the caller through the screen-* signals.
type ScreenShare struct {
	conn   Conn
	roomID string
	logger *log.Logger

	mu       sync.Mutex
	role     ScreenRole
	sharer   string
	changeFn []func(role ScreenRole, sharer string)
	unsubs   []func()
}

func NewScreenShare(conn Conn, roomID string, logger *log.Logger) *ScreenShare {
	s := &ScreenShare{
		conn:   conn,
		roomID: roomID,
		logger: logger.Module("ScreenShare"),
	}
	s.unsubs = []func(){
		subscribe(conn, s.logger, constants.EventScreenStarted, s.handleStarted),
		subscribe(conn, s.logger, constants.EventScreenStopped, s.handleStopped),
	}
	return s
}

func (c *Client) NewScreenShare() (*ScreenShare, error) {
	roomID, err := c.room()
	if err != nil {
		return nil, err
	}
	return NewScreenShare(c, roomID, c.logger), nil
}

func (s *ScreenShare) OnChange(fn func(role ScreenRole, sharer string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.changeFn = append(s.changeFn, fn)
}

// State returns the role and, when viewing, the sharer's connection id.
func (s *ScreenShare) State() (ScreenRole, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.role, s.sharer
}

// Start claims the slot and announces it. It fails with ErrScreenBusy while
// viewing another member's screen.
func (s *ScreenShare) Start(ctx context.Context) error {
	s.mu.Lock()
	switch s.role {
	case ScreenSharing:
		s.mu.Unlock()
		return nil
	case ScreenViewing:
		sharer := s.sharer
		s.mu.Unlock()
		return errors.Newf(ErrScreenBusy, "already viewing %s", sharer)
	}
	s.mu.Unlock()

	if err := emitSignal(ctx, s.conn, constants.EventScreenStarted, s.roomID, "", nil); err != nil {
		return err
	}
	s.set(ScreenSharing, "")
	return nil
}

func (s *ScreenShare) Stop(ctx context.Context) error {
	if role, _ := s.State(); role != ScreenSharing {
		return nil
	}
	s.set(ScreenIdle, "")
	return s.conn.Emit(ctx, constants.EventScreenStopped, &party.RoomParams{RoomID: s.roomID})
}

func (s *ScreenShare) Close() {
	for _, unsub := range s.unsubs {
		unsub()
	}
}

func (s *ScreenShare) handleStarted(sig party.Signal) {
	if role, _ := s.State(); role == ScreenSharing {
		s.logger.Debug("Ignoring screen share while sharing", log.ConnID(sig.From))
		return
	}
	s.set(ScreenViewing, sig.From)
}

func (s *ScreenShare) handleStopped(ev party.ScreenStopped) {
	role, sharer := s.State()
	if role != ScreenViewing || sharer != ev.From {
		return
	}
	s.set(ScreenIdle, "")
}

func (s *ScreenShare) set(role ScreenRole, sharer string) {
	s.mu.Lock()
	if s.role == role && s.sharer == sharer {
		s.mu.Unlock()
		return
	}
	s.role, s.sharer = role, sharer
	fns := slices.Clone(s.changeFn)
	s.mu.Unlock()

	for _, fn := range fns {
		fn(role, sharer)
	}
}
