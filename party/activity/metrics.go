package activity

import (
	"go.opentelemetry.io/otel/metric"

	intotel "github.com/imtaco/watch-party/internal/otel"
)

var (
	eventsQueued   metric.Int64Counter
	eventsDropped  metric.Int64Counter
	eventsWritten  metric.Int64Counter
	eventsFailed   metric.Int64Counter
	entriesTrimmed metric.Int64Counter
)

func init() {
	f := intotel.NewFactory("party.activity", intotel.PrefixActivity)

	f.Int64Counter(&eventsQueued, "events.queued",
		metric.WithDescription("Total activity events accepted into the queue"))

	f.Int64Counter(&eventsDropped, "events.dropped",
		metric.WithDescription("Total activity events dropped on a full queue"))

	f.Int64Counter(&eventsWritten, "events.written",
		metric.WithDescription("Total activity events written to the stream"))

	f.Int64Counter(&eventsFailed, "events.failed",
		metric.WithDescription("Total activity events abandoned after retries"))

	f.Int64Counter(&entriesTrimmed, "entries.trimmed",
		metric.WithDescription("Total stream entries removed by retention"))
}
