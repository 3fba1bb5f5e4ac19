package partyclient

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/imtaco/watch-party/internal/constants"
	"github.com/imtaco/watch-party/internal/errors"
	"github.com/imtaco/watch-party/internal/log"
	"github.com/imtaco/watch-party/party"
)

const (
	DefaultCountdownFrom = 3
	TickInterval         = time.Second
	// MaxTickDrift is how late a tick may go out before it is reported.
	MaxTickDrift = 250 * time.Millisecond
	maxCountdown = 60
)

const ErrCountdownRange errors.Code = "countdown_range"

// Countdown drives a platform-mode start: ticks from N down to 0 one second
// apart, then a play sync command. Ticks are scheduled against the start
// time so a slow send does not push later ticks back.
type Countdown struct {
	conn   Conn
	roomID string
	sender string
	clock  clockwork.Clock
	logger *log.Logger
}

func NewCountdown(conn Conn, roomID, sender string, clock clockwork.Clock, logger *log.Logger) *Countdown {
	return &Countdown{
		conn:   conn,
		roomID: roomID,
		sender: sender,
		clock:  clock,
		logger: logger.Module("Countdown"),
	}
}

// Countdown runs a countdown in the current room and blocks until the play
// command is sent.
func (c *Client) Countdown(ctx context.Context, from int) error {
	roomID, err := c.room()
	if err != nil {
		return err
	}
	return NewCountdown(c, roomID, c.DisplayName(), c.opts.clock, c.logger).Run(ctx, from)
}

func (cd *Countdown) Run(ctx context.Context, from int) error {
	if from < 0 || from > maxCountdown {
		return errors.Newf(ErrCountdownRange, "countdown must start within 0..%d, got %d", maxCountdown, from)
	}

	start := cd.clock.Now()
	for i := 0; i <= from; i++ {
		due := start.Add(time.Duration(i) * TickInterval)
		if err := cd.waitUntil(ctx, due); err != nil {
			return err
		}
		if late := cd.clock.Since(due); late > MaxTickDrift {
			cd.logger.Warn("Countdown tick drifted",
				log.Int("count", from-i),
				log.Duration("late", late))
		}

		count := from - i
		if err := cd.conn.Emit(ctx, constants.EventCountdownTick, &party.CountdownTickParams{
			RoomID: cd.roomID,
			Count:  count,
		}); err != nil {
			return err
		}
	}

	return cd.conn.Emit(ctx, constants.EventSyncCommand, &party.SyncCommandParams{
		RoomID:  cd.roomID,
		Command: party.SyncCommand{Action: ActionPlay, Sender: cd.sender},
	})
}

func (cd *Countdown) waitUntil(ctx context.Context, due time.Time) error {
	wait := due.Sub(cd.clock.Now())
	if wait <= 0 {
		return nil
	}
	timer := cd.clock.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}
