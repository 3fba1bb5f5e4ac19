package otel

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// MetricFactory creates instruments from the global meter provider under a common prefix.
// Instruments made in package init() stay valid after Init swaps in the real provider,
// since the global provider delegates.
type MetricFactory struct {
	meter  metric.Meter
	prefix string
}

func NewFactory(meterName, prefix string) *MetricFactory {
	return &MetricFactory{
		meter:  otel.Meter(meterName),
		prefix: prefix,
	}
}

func (f *MetricFactory) name(suffix string) string {
	if f.prefix == "" {
		return suffix
	}
	return f.prefix + "." + suffix
}

func must[T any](kind, name string, inst T, err error) T {
	if err != nil {
		panic(fmt.Sprintf("failed to create %s %s: %v", kind, name, err))
	}
	return inst
}

func (f *MetricFactory) Int64Counter(target *metric.Int64Counter, name string, opts ...metric.Int64CounterOption) {
	full := f.name(name)
	c, err := f.meter.Int64Counter(full, opts...)
	*target = must("counter", full, c, err)
}

func (f *MetricFactory) Int64UpDownCounter(target *metric.Int64UpDownCounter, name string, opts ...metric.Int64UpDownCounterOption) {
	full := f.name(name)
	c, err := f.meter.Int64UpDownCounter(full, opts...)
	*target = must("up-down counter", full, c, err)
}

func (f *MetricFactory) Int64Histogram(target *metric.Int64Histogram, name string, opts ...metric.Int64HistogramOption) {
	full := f.name(name)
	h, err := f.meter.Int64Histogram(full, opts...)
	*target = must("histogram", full, h, err)
}

func (f *MetricFactory) Float64Histogram(target *metric.Float64Histogram, name string, opts ...metric.Float64HistogramOption) {
	full := f.name(name)
	h, err := f.meter.Float64Histogram(full, opts...)
	*target = must("histogram", full, h, err)
}
