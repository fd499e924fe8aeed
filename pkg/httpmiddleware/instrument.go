package httpmiddleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// RouteFinder returns the route pattern serving r, or "" when none matches.
type RouteFinder func(r *http.Request) string

// MakeRouteFinder resolves requests against the patterns of routes.
func MakeRouteFinder(routes chi.Routes) RouteFinder {
	return func(r *http.Request) string {
		rctx := chi.NewRouteContext()
		if !routes.Match(rctx, r.Method, r.URL.Path) {
			return ""
		}
		return rctx.RoutePattern()
	}
}

// Instrument returns a middleware that records traces and HTTP server metrics
// for every request. Span names use the route pattern so that session IDs do
// not end up in them.
func Instrument(service string, find RouteFinder, tp trace.TracerProvider, mp metric.MeterProvider) Middleware {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, service,
			otelhttp.WithTracerProvider(tp),
			otelhttp.WithMeterProvider(mp),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				route := find(r)
				if route == "" {
					route = "unknown"
				}
				return r.Method + " " + route
			}),
		)
	}
}
