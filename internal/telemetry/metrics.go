package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/wolfeidau/elearn"
)

// Authentication operations recorded on AuthAttemptsTotal.
const (
	OperationLogin  = "login"
	OperationSignup = "signup"
)

// Metrics holds the client-side metric instruments.
type Metrics struct {
	// HTTP client
	RequestsTotal     metric.Int64Counter
	RequestDuration   metric.Float64Histogram
	UnauthorizedTotal metric.Int64Counter

	// Session
	SessionTeardownsTotal metric.Int64Counter
	AuthAttemptsTotal     metric.Int64Counter

	// Notifications
	NotificationsTotal metric.Int64Counter
}

var (
	once    sync.Once
	metrics *Metrics
)

// GetMetrics returns the singleton Metrics instance, initializing it if necessary.
// Init must run first for the instruments to bind to the exporting provider.
func GetMetrics() *Metrics {
	once.Do(func() {
		metrics = NewMetrics(otel.GetMeterProvider())
	})
	return metrics
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) *Metrics {
	meter := mp.Meter(meterName)

	m := &Metrics{}

	m.RequestsTotal, _ = meter.Int64Counter(
		"elearn.http.requests.total",
		metric.WithDescription("Total number of API requests sent"),
		metric.WithUnit("{request}"),
	)

	m.RequestDuration, _ = meter.Float64Histogram(
		"elearn.http.request.duration",
		metric.WithDescription("Duration of API requests"),
		metric.WithUnit("s"),
	)

	m.UnauthorizedTotal, _ = meter.Int64Counter(
		"elearn.http.unauthorized.total",
		metric.WithDescription("Total number of API responses with status 401"),
		metric.WithUnit("{response}"),
	)

	m.SessionTeardownsTotal, _ = meter.Int64Counter(
		"elearn.session.teardowns.total",
		metric.WithDescription("Total number of sessions cleared"),
		metric.WithUnit("{session}"),
	)

	m.AuthAttemptsTotal, _ = meter.Int64Counter(
		"elearn.session.auth_attempts.total",
		metric.WithDescription("Total number of authentication attempts by operation"),
		metric.WithUnit("{attempt}"),
	)

	m.NotificationsTotal, _ = meter.Int64Counter(
		"elearn.notifications.total",
		metric.WithDescription("Total number of notifications shown"),
		metric.WithUnit("{notification}"),
	)

	return m
}

// RecordAuthAttempt counts a login or signup attempt.
func (m *Metrics) RecordAuthAttempt(ctx context.Context, operation string) {
	m.AuthAttemptsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}
