// metrics.go - OpenTelemetry counters for auth and task activity

// Package metrics records authentication and task counters with OpenTelemetry.
//
// The meter is supplied by the caller; with the global default provider every
// instrument is a no-op until the embedding process installs an SDK.
package metrics

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var ErrNilMeter = errors.New("nil meter")

// Login results.
const (
	LoginSuccess  = "success"
	LoginFailure  = "failure"
	LoginInactive = "inactive"
	LoginLimited  = "rate_limited"
)

type Metrics struct {
	logins        metric.Int64Counter
	registrations metric.Int64Counter
	rejections    metric.Int64Counter
	tasksCreated  metric.Int64Counter
	registration  metric.Registration
}

// New creates the counters on meter. When dropped is non-nil it is observed
// as events_dropped_total.
func New(meter metric.Meter, dropped func() uint64) (*Metrics, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}

	m := &Metrics{}
	var err error
	if m.logins, err = meter.Int64Counter("auth_login_total", metric.WithDescription("Login attempts by result.")); err != nil {
		return nil, fmt.Errorf("create auth_login_total: %w", err)
	}
	if m.registrations, err = meter.Int64Counter("auth_registrations_total", metric.WithDescription("Completed self-registrations.")); err != nil {
		return nil, fmt.Errorf("create auth_registrations_total: %w", err)
	}
	if m.rejections, err = meter.Int64Counter("auth_rejections_total", metric.WithDescription("Requests rejected by the auth middleware, by reason.")); err != nil {
		return nil, fmt.Errorf("create auth_rejections_total: %w", err)
	}
	if m.tasksCreated, err = meter.Int64Counter("tasks_created_total", metric.WithDescription("Tasks created.")); err != nil {
		return nil, fmt.Errorf("create tasks_created_total: %w", err)
	}

	if dropped != nil {
		ins, err := meter.Int64ObservableCounter("events_dropped_total", metric.WithDescription("Account events dropped due to dispatcher backpressure."))
		if err != nil {
			return nil, fmt.Errorf("create events_dropped_total: %w", err)
		}
		m.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
			o.ObserveInt64(ins, int64(dropped()))
			return nil
		}, ins)
		if err != nil {
			return nil, fmt.Errorf("register callback: %w", err)
		}
	}
	return m, nil
}

func (m *Metrics) LoginAttempt(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *Metrics) Registration(ctx context.Context) {
	if m == nil {
		return
	}
	m.registrations.Add(ctx, 1)
}

func (m *Metrics) Rejection(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) TaskCreated(ctx context.Context) {
	if m == nil {
		return
	}
	m.tasksCreated.Add(ctx, 1)
}

func (m *Metrics) Close() error {
	if m == nil || m.registration == nil {
		return nil
	}
	return m.registration.Unregister()
}
