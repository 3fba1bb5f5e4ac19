package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/imtaco/watch-party/internal/errors"
	"github.com/imtaco/watch-party/internal/log"
	"github.com/imtaco/watch-party/partyclient"
)

const (
	ErrServerURL    errors.Code = "server_url"
	ErrDisconnected errors.Code = "disconnected"
)

var (
	flagServer  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "partyctl",
	Short: "Command line client for a watch party server",
	Long: `partyctl talks to a partyd server over its HTTP API and websocket.

Examples:
  partyctl rooms
  partyctl watch movie-night --name Alice
  partyctl say movie-night "starting in five" --name Alice
  partyctl countdown movie-night --from 3 --name Alice`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagServer, "server", "s", "http://localhost:3001", "partyd base URL")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log client internals")

	rootCmd.AddCommand(roomsCmd, iceCmd, watchCmd, sayCmd, countdownCmd, activityCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newLogger() *log.Logger {
	if !flagVerbose {
		return log.NewNop()
	}
	logger, err := log.NewLogger("")
	if err != nil {
		return log.NewNop()
	}
	return logger
}

// wsURL maps the HTTP base URL onto the websocket endpoint.
func wsURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", errors.Wrapf(ErrServerURL, err, "parse %q", base)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", errors.Newf(ErrServerURL, "unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}

// dialRoom connects and joins roomID. The returned client is closed by the caller.
func dialRoom(ctx context.Context, roomID, name string, opts ...partyclient.Option) (*partyclient.Client, error) {
	target, err := wsURL(flagServer)
	if err != nil {
		return nil, err
	}

	opts = append([]partyclient.Option{partyclient.WithLogger(newLogger())}, opts...)
	client, err := partyclient.Dial(ctx, target, opts...)
	if err != nil {
		return nil, err
	}
	if _, err := client.Join(ctx, roomID, name); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}
