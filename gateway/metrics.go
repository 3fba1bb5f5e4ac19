package gateway

import (
	"go.opentelemetry.io/otel/metric"

	intotel "github.com/imtaco/watch-party/internal/otel"
)

var (
	// WebSocket connection metrics
	connectionsActive metric.Int64UpDownCounter
	connectionsTotal  metric.Int64Counter
	disconnectsTotal  metric.Int64Counter

	// Inbound event metrics
	eventsReceived metric.Int64Counter
	eventsFailed   metric.Int64Counter
	eventsDropped  metric.Int64Counter
	eventsLimited  metric.Int64Counter
	eventDuration  metric.Float64Histogram

	// Outbound notification metrics
	notificationsSent   metric.Int64Counter
	notificationsFailed metric.Int64Counter
)

func init() {
	f := intotel.NewFactory("gateway", intotel.PrefixGateway)

	f.Int64UpDownCounter(&connectionsActive, "connections.active",
		metric.WithDescription("Number of active WebSocket connections"))

	f.Int64Counter(&connectionsTotal, "connections.total",
		metric.WithDescription("Total WebSocket connections established"))

	f.Int64Counter(&disconnectsTotal, "disconnects.total",
		metric.WithDescription("Total WebSocket disconnections"))

	f.Int64Counter(&eventsReceived, "events.received",
		metric.WithDescription("Total events received from clients"))

	f.Int64Counter(&eventsFailed, "events.failed",
		metric.WithDescription("Total events answered with an error"))

	f.Int64Counter(&eventsDropped, "events.dropped",
		metric.WithDescription("Total events dropped for a missing room, target or membership"))

	f.Int64Counter(&eventsLimited, "events.limited",
		metric.WithDescription("Total events rejected by the per-connection rate limit"))

	f.Float64Histogram(&eventDuration, "events.duration",
		metric.WithDescription("Event handling time"),
		metric.WithUnit("ms"))

	f.Int64Counter(&notificationsSent, "notifications.sent",
		metric.WithDescription("Total notifications sent to clients"))

	f.Int64Counter(&notificationsFailed, "notifications.failed",
		metric.WithDescription("Total failed notification deliveries"))
}
