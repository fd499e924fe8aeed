// Package storefront holds the state of a storefront page: the fetched
// catalog, the product grid, the detail modal, the cart and its toasts.
//
// A Session owns all of that state explicitly. UI events reach it through
// Dispatch, which routes each Action through a fixed handler table.
package storefront

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/product"
	"github.com/xenking/storefront/internal/price"
)

const tracerName = "github.com/xenking/storefront/internal/storefront"

// FetchState is the catalog lifecycle of a page.
type FetchState string

const (
	StateIdle      FetchState = "idle"
	StateLoading   FetchState = "loading"
	StatePopulated FetchState = "populated"
	StateErrored   FetchState = "errored"
)

// Options are the dependencies shared by every session.
type Options struct {
	Source         product.Source
	Prices         *price.Converter
	Clock          clockwork.Clock
	ToastLifetime  time.Duration
	Metrics        *Metrics
	TracerProvider trace.TracerProvider
}

func (o Options) withDefaults() Options {
	if o.Prices == nil {
		o.Prices = price.Default()
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	if o.Metrics == nil {
		o.Metrics = noopMetrics()
	}
	if o.TracerProvider == nil {
		o.TracerProvider = noop.NewTracerProvider()
	}
	return o
}

// modal is the detail overlay. It is either hidden or shows exactly one
// product of the current collection.
type modal struct {
	open    bool
	product product.Product
}

// Session is one page session: it lives from page load until the page is
// reloaded. All fields below mu are guarded by it.
type Session struct {
	id       string
	source   product.Source
	prices   *price.Converter
	clock    clockwork.Clock
	metrics  *Metrics
	tracer   trace.Tracer
	toasts   *Notifier
	handlers map[Action]eventHandler

	mu         sync.Mutex
	generation uint64
	loading    bool
	failed     bool
	loaded     bool
	products   product.Collection
	cart       Cart
	modal      modal
	lastSeen   time.Time
}

// NewSession returns an idle session with a fresh identifier.
func NewSession(opts Options) *Session {
	opts = opts.withDefaults()
	s := &Session{
		id:       uuid.NewString(),
		source:   opts.Source,
		prices:   opts.Prices,
		clock:    opts.Clock,
		metrics:  opts.Metrics,
		tracer:   opts.TracerProvider.Tracer(tracerName),
		toasts:   NewNotifier(opts.Clock, opts.ToastLifetime),
		lastSeen: opts.Clock.Now(),
	}
	s.handlers = s.routes()
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current fetch state.
func (s *Session) State() FetchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() FetchState {
	switch {
	case s.loading:
		return StateLoading
	case s.failed:
		return StateErrored
	case s.loaded:
		return StatePopulated
	default:
		return StateIdle
	}
}

// errSuperseded is returned by a load whose result was discarded because a
// newer load started while it was in flight.
var errSuperseded = errors.New("superseded by a newer load")

// Load fetches the catalog once and replaces the product collection with the
// result. While the request is in flight the session reports StateLoading and
// keeps handling events. On failure the collection stays empty, the page shows
// the error banner and the cause only goes to the log.
//
// When loads overlap, only the most recent one applies its outcome.
func (s *Session) Load(ctx context.Context) error {
	return s.fetch(ctx, s.begin())
}

// begin switches the session to loading and returns the generation of the new
// load. The previous collection and any open modal are dropped.
func (s *Session) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.loading = true
	s.failed = false
	s.loaded = false
	s.products = product.Collection{}
	s.modal = modal{}
	return s.generation
}

// fetch runs the catalog request for the load gen and applies its outcome.
func (s *Session) fetch(ctx context.Context, gen uint64) (rerr error) {
	ctx, span := s.tracer.Start(ctx, "storefront.Load",
		trace.WithAttributes(sessionAttr(s.id)),
	)
	defer span.End()

	start := s.clock.Now()
	var (
		products []product.Product
		err      = errors.New("catalog fetch aborted")
	)
	// Runs even if the source panics, so the page never stays loading.
	defer func() {
		rerr = s.finish(ctx, gen, products, err)
		if rerr != nil && !errors.Is(rerr, errSuperseded) {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, "catalog fetch failed")
		}
		s.metrics.recordFetch(ctx, s.clock.Since(start), rerr)
	}()

	products, err = s.source.List(ctx)
	return nil
}

// finish applies the outcome of load gen and leaves the loading state in one
// step.
func (s *Session) finish(ctx context.Context, gen uint64, products []product.Product, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return errSuperseded
	}
	s.loading = false
	if err != nil {
		s.failed = true
		zctx.From(ctx).Error("Failed to fetch products",
			zap.String("session", s.id),
			zap.Error(err),
		)
		return errors.Wrap(err, "fetch catalog")
	}

	s.products = product.NewCollection(products)
	s.loaded = true
	zctx.From(ctx).Debug("Catalog loaded",
		zap.String("session", s.id),
		zap.Int("products", s.products.Len()),
	)
	return nil
}

// Products returns the current product collection.
func (s *Session) Products() product.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products
}

// Cart returns a copy of the cart entries.
func (s *Session) Cart() []product.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Entries()
}

// ModalOpen reports whether the detail modal is visible.
func (s *Session) ModalOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modal.open
}

// LastSeen returns when the session last served a view or an event.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touchLocked() {
	s.lastSeen = s.clock.Now()
}

// showDetail opens the modal on the product identified by raw. Unknown
// identifiers are ignored.
func (s *Session) showDetail(raw string) {
	p, ok := s.products.Lookup(raw)
	if !ok {
		return
	}
	s.modal = modal{open: true, product: p}
}

func (s *Session) hideModal() {
	s.modal = modal{}
}

// addToCart appends the product identified by raw and shows a toast. Unknown
// identifiers leave the cart untouched.
func (s *Session) addToCart(ctx context.Context, raw, source string) {
	p, ok := s.products.Lookup(raw)
	if !ok {
		return
	}
	s.cart.Add(p)
	s.toasts.Show(addedMessage(p))
	s.metrics.recordCartAdd(ctx, source)
}
