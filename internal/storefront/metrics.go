package storefront

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/xenking/storefront/internal/storefront"

// Metrics records storefront activity.
type Metrics struct {
	cartAdds      metric.Int64Counter
	fetches       metric.Int64Counter
	fetchDuration metric.Float64Histogram
	sessions      metric.Int64UpDownCounter
}

// NewMetrics creates the storefront instruments on mp. A nil mp disables
// recording.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	meter := mp.Meter(meterName)

	var (
		m   Metrics
		err error
	)
	if m.cartAdds, err = meter.Int64Counter("storefront.cart.adds",
		metric.WithDescription("Products added to carts"),
	); err != nil {
		return nil, errors.Wrap(err, "cart adds counter")
	}
	if m.fetches, err = meter.Int64Counter("storefront.catalog.fetches",
		metric.WithDescription("Catalog fetches by outcome"),
	); err != nil {
		return nil, errors.Wrap(err, "fetches counter")
	}
	if m.fetchDuration, err = meter.Float64Histogram("storefront.catalog.fetch.duration",
		metric.WithDescription("Catalog fetch duration"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, errors.Wrap(err, "fetch duration histogram")
	}
	if m.sessions, err = meter.Int64UpDownCounter("storefront.sessions.active",
		metric.WithDescription("Live page sessions"),
	); err != nil {
		return nil, errors.Wrap(err, "sessions counter")
	}
	return &m, nil
}

func noopMetrics() *Metrics {
	m, err := NewMetrics(nil)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *Metrics) recordFetch(ctx context.Context, took time.Duration, err error) {
	outcome := "populated"
	switch {
	case errors.Is(err, errSuperseded):
		outcome = "superseded"
	case err != nil:
		outcome = "errored"
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.fetches.Add(ctx, 1, attrs)
	m.fetchDuration.Record(ctx, took.Seconds(), attrs)
}

func (m *Metrics) recordCartAdd(ctx context.Context, source string) {
	m.cartAdds.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

func sessionAttr(id string) attribute.KeyValue {
	return attribute.String("storefront.session", id)
}
