package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/frontbuild"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Build metrics
	BuildsTotal      metric.Int64Counter
	BuildErrorsTotal metric.Int64Counter
	BuildDuration    metric.Float64Histogram
	OutputBytes      metric.Int64Counter

	// Dev server metrics
	RequestsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary.
// Instruments resolve against the global meter provider, a no-op until InitTelemetry runs.
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.BuildsTotal, _ = meter.Int64Counter(
		"frontbuild.builds.total",
		metric.WithDescription("Total number of asset builds"),
		metric.WithUnit("{build}"),
	)

	m.BuildErrorsTotal, _ = meter.Int64Counter(
		"frontbuild.builds.errors.total",
		metric.WithDescription("Total number of failed asset builds"),
		metric.WithUnit("{error}"),
	)

	m.BuildDuration, _ = meter.Float64Histogram(
		"frontbuild.builds.duration",
		metric.WithDescription("Duration of asset builds"),
		metric.WithUnit("ms"),
	)

	m.OutputBytes, _ = meter.Int64Counter(
		"frontbuild.builds.output.bytes",
		metric.WithDescription("Total bytes written by asset builds"),
		metric.WithUnit("By"),
	)

	m.RequestsTotal, _ = meter.Int64Counter(
		"frontbuild.devserver.requests.total",
		metric.WithDescription("Total number of dev server requests"),
		metric.WithUnit("{request}"),
	)

	return m
}
