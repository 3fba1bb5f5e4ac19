package otel

// Metric name prefixes, one per component.
const (
	PrefixGateway  = "gateway"
	PrefixRoom     = "room"
	PrefixActivity = "activity"
)

// Tracer/meter instrumentation scope shared by the server.
const ScopeName = "github.com/imtaco/watch-party"
