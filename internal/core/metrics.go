package core

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/otterscale/kubewatch/internal/core"

// controllerMetrics holds the instruments shared by all controllers.
// Instruments are created against the global meter provider, so they
// pick up the Prometheus exporter once the ops server installs it.
type controllerMetrics struct {
	events   metric.Int64Counter
	sessions metric.Int64Counter
	relists  metric.Int64Counter
	errors   metric.Int64Counter
}

func newControllerMetrics() (*controllerMetrics, error) {
	meter := otel.Meter(meterName)

	events, err := meter.Int64Counter("kubewatch.watch.events",
		metric.WithDescription("Watch events delivered to handlers."))
	if err != nil {
		return nil, err
	}
	sessions, err := meter.Int64Counter("kubewatch.watch.sessions",
		metric.WithDescription("Watch requests opened."))
	if err != nil {
		return nil, err
	}
	relists, err := meter.Int64Counter("kubewatch.list.relists",
		metric.WithDescription("Full list passes performed to obtain a resource version."))
	if err != nil {
		return nil, err
	}
	errs, err := meter.Int64Counter("kubewatch.watch.errors",
		metric.WithDescription("Errors reported to handlers, by kind."))
	if err != nil {
		return nil, err
	}

	return &controllerMetrics{
		events:   events,
		sessions: sessions,
		relists:  relists,
		errors:   errs,
	}, nil
}

func (m *controllerMetrics) event(ctx context.Context, controller string, typ WatchEventType) {
	m.events.Add(ctx, 1, metric.WithAttributes(
		attribute.String("controller", controller),
		attribute.String("type", string(typ)),
	))
}

func (m *controllerMetrics) session(ctx context.Context, controller string) {
	m.sessions.Add(ctx, 1, metric.WithAttributes(attribute.String("controller", controller)))
}

func (m *controllerMetrics) relist(ctx context.Context, controller string) {
	m.relists.Add(ctx, 1, metric.WithAttributes(attribute.String("controller", controller)))
}

func (m *controllerMetrics) failure(ctx context.Context, controller string, err error) {
	m.errors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("controller", controller),
		attribute.String("kind", errorKind(err)),
	))
}

// errorKind names the category of err for metrics and logs.
func errorKind(err error) string {
	var (
		transportErr *TransportError
		decodeErr    *DecodeError
	)
	switch {
	case IsCancelled(err):
		return "cancelled"
	case IsCursorExpired(err):
		return "cursor_expired"
	case errors.As(err, new(*ServerReportedError)):
		return "server"
	case errors.As(err, &transportErr):
		return "transport"
	case errors.As(err, &decodeErr):
		return "decode"
	default:
		return "other"
	}
}
