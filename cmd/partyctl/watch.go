package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/imtaco/watch-party/internal/errors"
	"github.com/imtaco/watch-party/party"
	"github.com/imtaco/watch-party/partyclient"
)

const leaveTimeout = 2 * time.Second

var (
	flagName string
	flagFrom int
)

var watchCmd = &cobra.Command{
	Use:   "watch <room-id>",
	Short: "Join a room and print its events until interrupted",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := dialRoom(ctx, args[0], flagName)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		p := &printer{w: cmd.OutOrStdout()}
		p.attach(client)
		p.line("joined %s as %s (%s)", client.RoomID(), client.DisplayName(), client.ConnID())

		select {
		case <-ctx.Done():
			leaveCtx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
			defer cancel()
			return client.Leave(leaveCtx)
		case <-client.Done():
			return errors.New(ErrDisconnected, "connection closed")
		}
	},
}

var sayCmd = &cobra.Command{
	Use:   "say <room-id> <text>",
	Short: "Send one chat message to a room",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := dialRoom(ctx, args[0], flagName, partyclient.WithoutReconnect())
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		msg, err := client.SendChat(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s: %s\n", msg.Timestamp.Local().Format(time.Kitchen), msg.DisplayName, msg.Text)
		// leave is a request, so it also flushes pending notifications
		return client.Leave(ctx)
	},
}

var countdownCmd = &cobra.Command{
	Use:   "countdown <room-id>",
	Short: "Count the room down and start playback",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		client, err := dialRoom(ctx, args[0], flagName, partyclient.WithoutReconnect())
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		if err := client.Countdown(ctx, flagFrom); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "counted down from %d, play sent\n", flagFrom)
		return client.Leave(ctx)
	},
}

func init() {
	for _, c := range []*cobra.Command{watchCmd, sayCmd, countdownCmd} {
		c.Flags().StringVarP(&flagName, "name", "n", "partyctl", "display name")
	}
	countdownCmd.Flags().IntVar(&flagFrom, "from", partyclient.DefaultCountdownFrom, "first count")
}

// printer writes one line per room event. Callbacks arrive on the client's
// read goroutine.
type printer struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *printer) line(format string, args ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "%s  %s\n", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
}

func (p *printer) attach(c *partyclient.Client) {
	c.OnStateChange(func(s partyclient.ConnState) {
		p.line("connection %s", s)
	})
	c.OnRoomState(func(s party.Snapshot) {
		p.line("room: mode=%s playing=%t at=%.1fs video=%q users=%v", s.Mode, s.IsPlaying, s.CurrentTime, s.VideoURL, s.Users)
	})
	c.OnUserJoined(func(ev party.UserJoined) {
		p.line("%s joined (%d here)", ev.DisplayName, ev.MemberCount)
	})
	c.OnUserLeft(func(ev party.UserLeft) {
		p.line("%s left", ev.DisplayName)
	})
	c.OnVideoPlayed(func(ev party.VideoTime) { p.line("play at %.1fs", ev.Time) })
	c.OnVideoPaused(func(ev party.VideoTime) { p.line("pause at %.1fs", ev.Time) })
	c.OnVideoSeeked(func(ev party.VideoTime) { p.line("seek to %.1fs", ev.Time) })
	c.OnVideoChanged(func(ev party.VideoChanged) { p.line("video changed: %s", ev.URL) })
	c.OnSyncModeChanged(func(ev party.SyncModeChanged) { p.line("mode changed: %s", ev.Mode) })
	c.OnChat(func(m party.ChatMessage) {
		if m.System {
			p.line("* %s", m.Text)
			return
		}
		p.line("<%s> %s", m.DisplayName, m.Text)
	})
	c.OnNudge(func(ev party.Presence) { p.line("%s nudged", ev.DisplayName) })
	c.OnCountdownTick(func(ev party.CountdownTick) { p.line("countdown %d", ev.Count) })
	c.OnSyncCommand(func(cmd party.SyncCommand) { p.line("sync %s from %s", cmd.Action, cmd.Sender) })
	c.OnVoiceUserJoined(func(ev party.VoiceUserJoined) { p.line("%s joined voice", ev.DisplayName) })
	c.OnVoiceUserLeft(func(ev party.VoiceUserLeft) { p.line("%s left voice", ev.ConnectionID) })
	c.OnScreenStarted(func(sig party.Signal) { p.line("%s started sharing", sig.From) })
	c.OnScreenStopped(func(ev party.ScreenStopped) { p.line("%s stopped sharing", ev.From) })
}
