package main

import (
	"fmt"
	"io"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/imtaco/watch-party/internal/redis"
	stream "github.com/imtaco/watch-party/internal/stream/redis"
	"github.com/imtaco/watch-party/party"
	"github.com/imtaco/watch-party/party/activity"
)

var (
	flagRedisAddr string
	flagStream    string
	flagSince     time.Duration
)

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Follow the room activity feed in redis",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		logger := newLogger()

		client := redis.NewClient(&redis.Config{
			Addr:        flagRedisAddr,
			DialTimeout: 5 * time.Second,
			ReadTimeout: 10 * time.Second,
		})
		defer func() { _ = client.Close() }()
		if err := redis.Ping(ctx, client); err != nil {
			return err
		}

		reader, err := stream.NewReader(client, flagStream, 0, clockwork.NewRealClock(), logger)
		if err != nil {
			return err
		}
		if err := reader.Open(ctx, flagSince); err != nil {
			return err
		}
		defer reader.Close()

		for msg := range reader.Channel() {
			ev, node := activity.Decode(msg.Values)
			printActivity(cmd.OutOrStdout(), ev, node)
		}
		return nil
	},
}

func init() {
	activityCmd.Flags().StringVar(&flagRedisAddr, "redis", "localhost:6379", "redis address")
	activityCmd.Flags().StringVar(&flagStream, "stream", "watchparty:activity", "activity stream name")
	activityCmd.Flags().DurationVar(&flagSince, "since", 0, "replay entries written within this window first")
}

func printActivity(w io.Writer, ev party.ActivityEvent, node string) {
	who := ev.DisplayName
	if who == "" {
		who = "-"
	}
	line := fmt.Sprintf("%s  %-15s %-20s %s", ev.At.Local().Format(time.DateTime), ev.Type, ev.RoomID, who)
	if ev.Detail != "" {
		line += "  " + ev.Detail
	}
	if node != "" {
		line += "  @" + node
	}
	fmt.Fprintln(w, line)
}
