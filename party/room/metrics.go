package room

import (
	"go.opentelemetry.io/otel/metric"

	intotel "github.com/imtaco/watch-party/internal/otel"
)

var (
	roomsActive   metric.Int64UpDownCounter
	membersActive metric.Int64UpDownCounter
	roomsOpened   metric.Int64Counter

	joinsRejected    metric.Int64Counter
	commandsApplied  metric.Int64Counter
	commandsRejected metric.Int64Counter
)

func init() {
	f := intotel.NewFactory("party.room", intotel.PrefixRoom)

	f.Int64UpDownCounter(&roomsActive, "rooms.active",
		metric.WithDescription("Number of rooms with at least one member"))

	f.Int64UpDownCounter(&membersActive, "members.active",
		metric.WithDescription("Number of connections joined to a room"))

	f.Int64Counter(&roomsOpened, "rooms.opened",
		metric.WithDescription("Total rooms created by a first join"))

	f.Int64Counter(&joinsRejected, "joins.rejected",
		metric.WithDescription("Total join attempts rejected"))

	f.Int64Counter(&commandsApplied, "commands.applied",
		metric.WithDescription("Total playback and mode commands applied to a room"))

	f.Int64Counter(&commandsRejected, "commands.rejected",
		metric.WithDescription("Total commands for a missing room or from a non-member"))
}
