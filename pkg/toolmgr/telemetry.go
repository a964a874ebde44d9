package toolmgr

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Observer records connection, tool-call, health, and recovery signals into
// OpenTelemetry instruments. A nil Observer is safe to use and records
// nothing, so telemetry stays optional.
type Observer struct {
	connections metric.Int64Counter
	calls       metric.Int64Counter
	timeouts    metric.Int64Counter
	health      metric.Int64Counter
	recoveries  metric.Int64Counter
	latency     metric.Float64Histogram
}

// NewObserver creates an observer bound to the provided meter.
func NewObserver(meter metric.Meter) (*Observer, error) {
	connections, err := meter.Int64Counter(
		"toolbridge.connection.attempts",
		metric.WithDescription("Number of connection attempts"),
	)
	if err != nil {
		return nil, err
	}
	calls, err := meter.Int64Counter(
		"toolbridge.tool.calls",
		metric.WithDescription("Number of tool invocations"),
	)
	if err != nil {
		return nil, err
	}
	timeouts, err := meter.Int64Counter(
		"toolbridge.tool.timeouts",
		metric.WithDescription("Number of tool call timeouts"),
	)
	if err != nil {
		return nil, err
	}
	health, err := meter.Int64Counter(
		"toolbridge.health.checks",
		metric.WithDescription("Number of health probes"),
	)
	if err != nil {
		return nil, err
	}
	recoveries, err := meter.Int64Counter(
		"toolbridge.recovery.attempts",
		metric.WithDescription("Number of reconnect attempts"),
	)
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram(
		"toolbridge.operation.latency",
		metric.WithDescription("Operation latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}
	return &Observer{
		connections: connections,
		calls:       calls,
		timeouts:    timeouts,
		health:      health,
		recoveries:  recoveries,
		latency:     latency,
	}, nil
}

// ObserveConnect records one connection attempt result.
func (o *Observer) ObserveConnect(service string, success bool, elapsed time.Duration) {
	if o == nil {
		return
	}
	opts := metric.WithAttributes(
		attribute.String("service", service),
		attribute.Bool("success", success),
	)
	ctx := context.Background()
	o.connections.Add(ctx, 1, opts)
	o.latency.Record(ctx, elapsed.Seconds(), opts)
}

// ObserveCall records one tool invocation result.
func (o *Observer) ObserveCall(service, tool string, success bool, elapsed time.Duration) {
	if o == nil {
		return
	}
	opts := metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("tool", tool),
		attribute.Bool("success", success),
	)
	ctx := context.Background()
	o.calls.Add(ctx, 1, opts)
	o.latency.Record(ctx, elapsed.Seconds(), opts)
}

// ObserveTimeout records one tool call deadline expiry.
func (o *Observer) ObserveTimeout(service, tool string) {
	if o == nil {
		return
	}
	o.timeouts.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("tool", tool),
	))
}

// ObserveHealth records one health probe result.
func (o *Observer) ObserveHealth(service string, healthy bool, elapsed time.Duration) {
	if o == nil {
		return
	}
	opts := metric.WithAttributes(
		attribute.String("service", service),
		attribute.Bool("healthy", healthy),
	)
	ctx := context.Background()
	o.health.Add(ctx, 1, opts)
	o.latency.Record(ctx, elapsed.Seconds(), opts)
}

// ObserveRecovery records one reconnect attempt outcome.
func (o *Observer) ObserveRecovery(service string, success bool) {
	if o == nil {
		return
	}
	o.recoveries.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.Bool("success", success),
	))
}
