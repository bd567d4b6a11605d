package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/gazerecorder"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Session lifecycle metrics
	SessionsStartedTotal metric.Int64Counter
	SessionsEndedTotal   metric.Int64Counter
	ActiveSessions       metric.Int64UpDownCounter

	// Sample metrics
	GazeSamplesTotal   metric.Int64Counter
	SignalSamplesTotal metric.Int64Counter
	FramesDroppedTotal metric.Int64Counter

	// Store operation metrics
	StoreOperationsTotal   metric.Int64Counter
	StoreWriteErrorsTotal  metric.Int64Counter
	StoreReadErrorsTotal   metric.Int64Counter
	StoreWriteRetriesTotal metric.Int64Counter
	StoreOperationDuration metric.Float64Histogram
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = initMetrics()
	})
	return metrics
}

// initMetrics creates and registers all metric instruments
func initMetrics() *Metrics {
	meter := otel.GetMeterProvider().Meter(meterName)

	m := &Metrics{}

	m.SessionsStartedTotal, _ = meter.Int64Counter(
		"gazerecorder.sessions.started.total",
		metric.WithDescription("Total number of recording sessions started"),
		metric.WithUnit("{session}"),
	)

	m.SessionsEndedTotal, _ = meter.Int64Counter(
		"gazerecorder.sessions.ended.total",
		metric.WithDescription("Total number of recording sessions finalized"),
		metric.WithUnit("{session}"),
	)

	m.ActiveSessions, _ = meter.Int64UpDownCounter(
		"gazerecorder.sessions.active",
		metric.WithDescription("Number of sessions currently recording"),
		metric.WithUnit("{session}"),
	)

	m.GazeSamplesTotal, _ = meter.Int64Counter(
		"gazerecorder.samples.gaze.total",
		metric.WithDescription("Total number of gaze points appended to scan paths"),
		metric.WithUnit("{sample}"),
	)

	m.SignalSamplesTotal, _ = meter.Int64Counter(
		"gazerecorder.samples.signal.total",
		metric.WithDescription("Total number of facial signal samples recorded"),
		metric.WithUnit("{sample}"),
	)

	m.FramesDroppedTotal, _ = meter.Int64Counter(
		"gazerecorder.frames.dropped.total",
		metric.WithDescription("Total number of tracking frames dropped without producing a sample"),
		metric.WithUnit("{frame}"),
	)

	m.StoreOperationsTotal, _ = meter.Int64Counter(
		"gazerecorder.store.operations.total",
		metric.WithDescription("Total number of session store operations"),
		metric.WithUnit("{operation}"),
	)

	m.StoreWriteErrorsTotal, _ = meter.Int64Counter(
		"gazerecorder.store.write_errors.total",
		metric.WithDescription("Total number of failed session store writes"),
		metric.WithUnit("{error}"),
	)

	m.StoreReadErrorsTotal, _ = meter.Int64Counter(
		"gazerecorder.store.read_errors.total",
		metric.WithDescription("Total number of session store reads absorbed as missing data"),
		metric.WithUnit("{error}"),
	)

	m.StoreWriteRetriesTotal, _ = meter.Int64Counter(
		"gazerecorder.store.write_retries.total",
		metric.WithDescription("Total number of session store write retries after transient failures"),
		metric.WithUnit("{retry}"),
	)

	m.StoreOperationDuration, _ = meter.Float64Histogram(
		"gazerecorder.store.operation.duration",
		metric.WithDescription("Duration of session store operations"),
		metric.WithUnit("ms"),
	)

	return m
}
