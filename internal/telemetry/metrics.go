package telemetry

import (
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/contactgain"
)

// Metrics holds all the OpenTelemetry metric instruments
type Metrics struct {
	// Session metrics
	SessionsCreatedTotal metric.Int64Counter
	SessionsHiddenTotal  metric.Int64Counter

	// Contact metrics
	ContactsAddedTotal    metric.Int64Counter
	ContactsRejectedTotal metric.Int64Counter
	ContactsPurgedTotal   metric.Int64Counter
	PurgeDuration         metric.Float64Histogram

	// Download metrics
	DownloadsTotal        metric.Int64Counter
	DownloadsDeniedTotal  metric.Int64Counter
	DownloadContactsCount metric.Int64Histogram

	// Store metrics
	StoreErrorsTotal metric.Int64Counter
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

	// Session metrics
	m.SessionsCreatedTotal, _ = meter.Int64Counter(
		"contactgain.sessions.created.total",
		metric.WithDescription("Total number of sessions created"),
		metric.WithUnit("{session}"),
	)

	m.SessionsHiddenTotal, _ = meter.Int64Counter(
		"contactgain.sessions.hidden.total",
		metric.WithDescription("Total number of sessions hidden by their creator"),
		metric.WithUnit("{session}"),
	)

	// Contact metrics
	m.ContactsAddedTotal, _ = meter.Int64Counter(
		"contactgain.contacts.added.total",
		metric.WithDescription("Total number of contacts submitted successfully"),
		metric.WithUnit("{contact}"),
	)

	m.ContactsRejectedTotal, _ = meter.Int64Counter(
		"contactgain.contacts.rejected.total",
		metric.WithDescription("Total number of contact submissions rejected, by reason"),
		metric.WithUnit("{contact}"),
	)

	m.ContactsPurgedTotal, _ = meter.Int64Counter(
		"contactgain.contacts.purged.total",
		metric.WithDescription("Total number of contacts removed after the grace period"),
		metric.WithUnit("{contact}"),
	)

	m.PurgeDuration, _ = meter.Float64Histogram(
		"contactgain.purge.duration",
		metric.WithDescription("Duration of retention purge runs"),
		metric.WithUnit("ms"),
	)

	// Download metrics
	m.DownloadsTotal, _ = meter.Int64Counter(
		"contactgain.downloads.total",
		metric.WithDescription("Total number of VCF downloads served"),
		metric.WithUnit("{download}"),
	)

	m.DownloadsDeniedTotal, _ = meter.Int64Counter(
		"contactgain.downloads.denied.total",
		metric.WithDescription("Total number of downloads refused by a lifecycle or content gate"),
		metric.WithUnit("{download}"),
	)

	m.DownloadContactsCount, _ = meter.Int64Histogram(
		"contactgain.downloads.contacts",
		metric.WithDescription("Number of contacts per served VCF file"),
		metric.WithUnit("{contact}"),
	)

	// Store metrics
	m.StoreErrorsTotal, _ = meter.Int64Counter(
		"contactgain.store.errors.total",
		metric.WithDescription("Total number of unexpected session store errors"),
		metric.WithUnit("{error}"),
	)

	return m
}
