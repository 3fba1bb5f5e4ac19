package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/imtaco/watch-party/party"
	"github.com/imtaco/watch-party/partyclient"
)

var roomsCmd = &cobra.Command{
	Use:     "rooms [room-id]",
	Aliases: []string{"ls"},
	Short:   "List open rooms, or show one room's state",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		api := partyclient.NewAPI(flagServer, newLogger())

		if len(args) == 1 {
			snap, err := api.GetRoom(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			renderSnapshot(cmd.OutOrStdout(), args[0], snap)
			return nil
		}

		rooms, err := api.ListRooms(cmd.Context())
		if err != nil {
			return err
		}
		renderRooms(cmd.OutOrStdout(), rooms)
		return nil
	},
}

var iceCmd = &cobra.Command{
	Use:   "ice",
	Short: "Print the ICE configuration handed to clients",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		api := partyclient.NewAPI(flagServer, newLogger())
		cfg, err := api.ICEConfig(cmd.Context())
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	},
}

func renderRooms(w io.Writer, rooms []party.RoomSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Room", "Members", "Mode", "Playing", "Video"})
	for _, r := range rooms {
		t.AppendRow(table.Row{r.RoomID, r.MemberCount, r.Mode, r.IsPlaying, r.VideoURL})
	}
	t.AppendFooter(table.Row{"", len(rooms), "", "", ""})
	t.Render()
}

func renderSnapshot(w io.Writer, roomID string, snap *party.Snapshot) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(roomID)
	t.AppendRows([]table.Row{
		{"Mode", snap.Mode},
		{"Video", snap.VideoURL},
		{"Playing", snap.IsPlaying},
		{"Position", fmt.Sprintf("%.1fs", snap.CurrentTime)},
		{"Users", len(snap.Users)},
	})
	for _, u := range snap.Users {
		t.AppendRow(table.Row{"", u})
	}
	t.Render()
}
