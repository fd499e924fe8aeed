package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/storefront/internal/catalog"
	"github.com/xenking/storefront/internal/handler"
	"github.com/xenking/storefront/internal/storefront"
	"github.com/xenking/storefront/internal/web"
	"github.com/xenking/storefront/pkg/health"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

const serviceName = "storefront"

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	prices, err := cfg.Prices()
	if err != nil {
		return err
	}
	metrics, err := storefront.NewMetrics(m.MeterProvider())
	if err != nil {
		return errors.Wrap(err, "create metrics")
	}

	// Outgoing catalog requests carry the page session's trace.
	catalogClient := catalog.NewClient(cfg.catalogConfig(), &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithTracerProvider(m.TracerProvider()),
			otelhttp.WithMeterProvider(m.MeterProvider()),
		),
	})

	lg.Info("Catalog configured",
		zap.String("endpoint", catalogClient.Endpoint()),
		zap.Duration("timeout", cfg.Catalog.Timeout),
	)

	clock := clockwork.NewRealClock()
	store := storefront.NewStore(storefront.Options{
		Source:         catalogClient,
		Prices:         prices,
		Clock:          clock,
		ToastLifetime:  cfg.ToastLifetime,
		Metrics:        metrics,
		TracerProvider: m.TracerProvider(),
	}, cfg.Session.IdleTTL)

	renderer, err := web.NewRenderer(cfg.Title)
	if err != nil {
		return errors.Wrap(err, "create renderer")
	}
	routes := handler.NewHandler(store, renderer, clock).Routes()

	// Health check service.
	healthSvc := health.New()
	healthSvc.Add(health.Liveness, health.Check{
		Name: "goroutines",
		Func: health.GoroutineCountCheck(10000),
	})
	healthSvc.Add(health.Liveness, health.Check{
		Name: "gc_pause",
		Func: health.GCMaxPauseCheck(time.Second),
	})
	if cfg.Session.MaxSessions > 0 {
		healthSvc.Add(health.Readiness, health.Check{
			Name:             "sessions",
			Func:             health.CountBelow("session", cfg.Session.MaxSessions, store.Len),
			FailureThreshold: 1,
		})
	}

	// Mux: health endpoints + storefront pages on one server.
	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	mux.Handle("/", routes)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Recovery(),
			httpmiddleware.RequestID(),
			httpmiddleware.Instrument(serviceName, httpmiddleware.MakeRouteFinder(routes), m.TracerProvider(), m.MeterProvider()),
			httpmiddleware.LogRequests(),
		),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return healthSvc.Run(gctx, 10*time.Second)
	})
	g.Go(func() error {
		return store.Run(gctx)
	})
	g.Go(func() error {
		// Graceful shutdown: wait for cancellation, drain, then stop.
		<-gctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	g.Go(func() error {
		healthSvc.SetReady(true)
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	return g.Wait()
}
