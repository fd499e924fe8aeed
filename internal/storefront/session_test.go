package storefront

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/xenking/storefront/internal/domain/product"
)

// --- Mock implementations ---

type mockSource struct {
	products []product.Product
	err      error
	calls    atomic.Int32
}

func (m *mockSource) List(_ context.Context) ([]product.Product, error) {
	m.calls.Add(1)
	return m.products, m.err
}

type panicSource struct{}

func (panicSource) List(context.Context) ([]product.Product, error) {
	panic("catalog exploded")
}

// blockingSource holds List until release is closed.
type blockingSource struct {
	started  chan struct{}
	release  chan struct{}
	products []product.Product
	err      error
}

func newBlockingSource(products ...product.Product) *blockingSource {
	return &blockingSource{
		started:  make(chan struct{}),
		release:  make(chan struct{}),
		products: products,
	}
}

func (b *blockingSource) List(ctx context.Context) ([]product.Product, error) {
	close(b.started)
	select {
	case <-b.release:
		return b.products, b.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// --- Helpers ---

func newTestProduct(id int64, title string, price string) product.Product {
	return product.Product{
		ID:          id,
		Title:       title,
		Category:    "electronics",
		Price:       decimal.RequireFromString(price),
		Image:       "https://example.com/" + title + ".jpg",
		Description: "Description of " + title,
	}
}

func testCatalog() []product.Product {
	return []product.Product{
		newTestProduct(1, "Fjallraven - Foldsack No. 1 Backpack, Fits 15 Laptops", "109.95"),
		newTestProduct(2, "Mens Casual Premium Slim Fit T-Shirts", "22.3"),
		newTestProduct(3, "Short", "10.50"),
	}
}

func newLoadedSession(t *testing.T, clock clockwork.Clock) *Session {
	t.Helper()
	s := NewSession(Options{
		Source: &mockSource{products: testCatalog()},
		Clock:  clock,
	})
	require.NoError(t, s.Load(context.Background()))
	return s
}

func gridClick(id string, targets ...Target) Event {
	return Event{Action: ActionGridClick, ProductID: id, Targets: targets}
}

// --- Tests ---

func TestSession_InitialState(t *testing.T) {
	s := NewSession(Options{Source: &mockSource{}})

	v := s.View()
	assert.Equal(t, StateIdle, v.State)
	assert.NotEmpty(t, v.SessionID)
	assert.Empty(t, v.Cards)
	assert.Nil(t, v.Modal)
	assert.Zero(t, v.CartCount)
}

func TestSession_Load_Success(t *testing.T) {
	s := newLoadedSession(t, clockwork.NewFakeClock())

	v := s.View()
	assert.Equal(t, StatePopulated, v.State)
	assert.False(t, v.Loading)
	assert.False(t, v.Failed)
	require.Len(t, v.Cards, 3)

	for i, want := range testCatalog() {
		assert.Equal(t, formatID(want.ID), v.Cards[i].ProductID, "card %d", i)
	}
}

func TestSession_Load_Failure(t *testing.T) {
	s := NewSession(Options{Source: &mockSource{err: errors.New("HTTP 503")}})

	err := s.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch catalog")

	v := s.View()
	assert.Equal(t, StateErrored, v.State)
	assert.True(t, v.Failed)
	assert.False(t, v.Loading)
	assert.Empty(t, v.Cards)
	assert.Zero(t, s.Products().Len())
}

func TestSession_Load_RefetchReplacesCollection(t *testing.T) {
	src := &mockSource{products: testCatalog()}
	s := NewSession(Options{Source: src})
	require.NoError(t, s.Load(context.Background()))
	require.NoError(t, s.Dispatch(context.Background(), gridClick("1", TargetCard)))
	require.True(t, s.ModalOpen())

	src.products = []product.Product{newTestProduct(9, "Replacement", "1")}
	require.NoError(t, s.Load(context.Background()))

	v := s.View()
	require.Len(t, v.Cards, 1)
	assert.Equal(t, "9", v.Cards[0].ProductID)
	assert.Nil(t, v.Modal, "modal must not keep a product from the previous collection")
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestSession_Load_RefetchAfterFailureClearsError(t *testing.T) {
	src := &mockSource{err: errors.New("boom")}
	s := NewSession(Options{Source: src})
	require.Error(t, s.Load(context.Background()))
	require.Equal(t, StateErrored, s.State())

	src.err = nil
	src.products = testCatalog()
	require.NoError(t, s.Load(context.Background()))
	assert.Equal(t, StatePopulated, s.State())
}

func TestSession_Load_LoadingWhileInFlight(t *testing.T) {
	src := newBlockingSource(testCatalog()...)
	s := NewSession(Options{Source: src})

	done := make(chan error, 1)
	go func() { done <- s.Load(context.Background()) }()
	<-src.started

	v := s.View()
	assert.Equal(t, StateLoading, v.State)
	assert.True(t, v.Loading)
	assert.False(t, v.Failed)
	assert.Empty(t, v.Cards)

	// Events keep being handled during the fetch.
	require.NoError(t, s.Dispatch(context.Background(), Event{Action: ActionKeyDown, Key: KeyEscape}))
	require.NoError(t, s.Dispatch(context.Background(), gridClick("1", TargetAddButton, TargetCard)))
	assert.Empty(t, s.Cart(), "nothing can be added before the catalog arrives")

	close(src.release)
	require.NoError(t, <-done)
	assert.Equal(t, StatePopulated, s.State())
}

func TestSession_Load_FailureClearsLoading(t *testing.T) {
	src := newBlockingSource()
	src.err = errors.New("connection reset")
	s := NewSession(Options{Source: src})

	done := make(chan error, 1)
	go func() { done <- s.Load(context.Background()) }()
	<-src.started
	require.Equal(t, StateLoading, s.State())

	close(src.release)
	require.Error(t, <-done)

	v := s.View()
	assert.False(t, v.Loading)
	assert.True(t, v.Failed)
}

func TestSession_Load_Superseded(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	metrics, err := NewMetrics(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)
	s := NewSession(Options{Source: &mockSource{products: testCatalog()}, Metrics: metrics})

	stale := s.begin()
	current := s.begin()

	err = s.fetch(context.Background(), stale)
	require.ErrorIs(t, err, errSuperseded)
	assert.Equal(t, StateLoading, s.State(), "stale result must not end the newer load")

	require.NoError(t, s.fetch(context.Background(), current))
	assert.Equal(t, StatePopulated, s.State())

	assert.Equal(t, map[string]int64{"superseded": 1, "populated": 1}, fetchOutcomes(t, reader))
}

func TestSession_Load_OutcomeAppliedWithLoading(t *testing.T) {
	s := NewSession(Options{Source: &mockSource{products: testCatalog()}})
	gen := s.begin()

	require.NoError(t, s.finish(context.Background(), gen, testCatalog(), nil))
	v := s.View()
	assert.Equal(t, StatePopulated, v.State)
	assert.False(t, v.Loading)
	assert.Len(t, v.Cards, 3)
}

func TestSession_Load_SourcePanicClearsLoading(t *testing.T) {
	s := NewSession(Options{Source: panicSource{}})

	assert.Panics(t, func() { _ = s.Load(context.Background()) })
	v := s.View()
	assert.False(t, v.Loading)
	assert.True(t, v.Failed)
}

func fetchOutcomes(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "storefront.catalog.fetches" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value("outcome")
				out[v.AsString()] += dp.Value
			}
		}
	}
	return out
}

func TestSession_GridClick_CardOpensDetail(t *testing.T) {
	s := newLoadedSession(t, clockwork.NewFakeClock())

	require.NoError(t, s.Dispatch(context.Background(), gridClick("3", TargetCard)))

	v := s.View()
	require.NotNil(t, v.Modal)
	assert.True(t, v.ScrollLocked)
	assert.Equal(t, "3", v.Modal.ProductID)
	assert.Equal(t, "Short", v.Modal.Title)
	assert.Equal(t, "electronics", v.Modal.Category)
	assert.Equal(t, "Rp 157.500", v.Modal.Price)
	assert.Equal(t, "Description of Short", v.Modal.Description)
	assert.Equal(t, "https://example.com/Short.jpg", v.Modal.Image)
	assert.Zero(t, v.CartCount)
}

func TestSession_GridClick_AddButtonTakesPrecedence(t *testing.T) {
	tests := []struct {
		name    string
		targets []Target
	}{
		{"button inside card", []Target{TargetAddButton, TargetCard}},
		{"card listed first", []Target{TargetCard, TargetAddButton}},
		{"button only", []Target{TargetAddButton}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newLoadedSession(t, clockwork.NewFakeClock())

			require.NoError(t, s.Dispatch(context.Background(), gridClick("2", tt.targets...)))

			v := s.View()
			assert.Nil(t, v.Modal, "add button must not open the detail view")
			assert.Equal(t, 1, v.CartCount)
		})
	}
}

func TestSession_GridClick_OutsideCard(t *testing.T) {
	s := newLoadedSession(t, clockwork.NewFakeClock())

	require.NoError(t, s.Dispatch(context.Background(), gridClick("1")))

	v := s.View()
	assert.Nil(t, v.Modal)
	assert.Zero(t, v.CartCount)
}

func TestSession_UnknownProductIsNoop(t *testing.T) {
	for _, id := range []string{"999", "", "abc"} {
		t.Run(id, func(t *testing.T) {
			s := newLoadedSession(t, clockwork.NewFakeClock())
			before := s.View()

			require.NoError(t, s.Dispatch(context.Background(), gridClick(id, TargetCard)))
			require.NoError(t, s.Dispatch(context.Background(), gridClick(id, TargetAddButton)))

			after := s.View()
			assert.Nil(t, after.Modal)
			assert.False(t, after.ScrollLocked)
			assert.Equal(t, before.CartCount, after.CartCount)
			assert.Empty(t, after.Toasts)
		})
	}
}

func TestSession_AddSameProductTwice(t *testing.T) {
	s := newLoadedSession(t, clockwork.NewFakeClock())

	require.NoError(t, s.Dispatch(context.Background(), gridClick("1", TargetAddButton)))
	require.NoError(t, s.Dispatch(context.Background(), gridClick("1", TargetAddButton)))

	v := s.View()
	assert.Equal(t, 2, v.CartCount)
	require.Len(t, v.Toasts, 2)
	assert.NotEqual(t, v.Toasts[0].ID, v.Toasts[1].ID)
	assert.Equal(t, "Fjallraven - Foldsac... ditambahkan ke keranjang!", v.Toasts[0].Message)

	cart := s.Cart()
	require.Len(t, cart, 2)
	assert.Equal(t, cart[0], cart[1])
}

func TestSession_ToastsExpireIndependently(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := newLoadedSession(t, clock)

	require.NoError(t, s.Dispatch(context.Background(), gridClick("1", TargetAddButton)))
	clock.Advance(2 * time.Second)
	require.NoError(t, s.Dispatch(context.Background(), gridClick("2", TargetAddButton)))
	require.Len(t, s.View().Toasts, 2)

	clock.Advance(time.Second)
	toasts := s.View().Toasts
	require.Len(t, toasts, 1)
	assert.True(t, strings.HasPrefix(toasts[0].Message, "Mens Casual Premium "))

	clock.Advance(2 * time.Second)
	assert.Empty(t, s.View().Toasts)
	assert.Equal(t, 2, s.View().CartCount, "expiring toasts leave the cart alone")
}

func TestSession_ModalClose(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
	}{
		{"close button", Event{Action: ActionModalClose}},
		{"backdrop", Event{Action: ActionModalClick, Targets: []Target{TargetBackdrop}}},
		{"escape", Event{Action: ActionKeyDown, Key: KeyEscape}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newLoadedSession(t, clockwork.NewFakeClock())
			require.NoError(t, s.Dispatch(context.Background(), gridClick("1", TargetCard)))
			require.True(t, s.View().ScrollLocked)

			require.NoError(t, s.Dispatch(context.Background(), tt.ev))

			v := s.View()
			assert.Nil(t, v.Modal)
			assert.False(t, v.ScrollLocked)
		})
	}
}

func TestSession_ModalStaysOpen(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
	}{
		{"content click", Event{Action: ActionModalClick, Targets: []Target{TargetContent, TargetBackdrop}}},
		{"click without target", Event{Action: ActionModalClick}},
		{"other key", Event{Action: ActionKeyDown, Key: "Enter"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newLoadedSession(t, clockwork.NewFakeClock())
			require.NoError(t, s.Dispatch(context.Background(), gridClick("1", TargetCard)))

			require.NoError(t, s.Dispatch(context.Background(), tt.ev))
			assert.True(t, s.ModalOpen())
		})
	}
}

func TestSession_ModalAdd(t *testing.T) {
	s := newLoadedSession(t, clockwork.NewFakeClock())
	require.NoError(t, s.Dispatch(context.Background(), gridClick("2", TargetCard)))

	require.NoError(t, s.Dispatch(context.Background(), Event{Action: ActionModalAdd, ProductID: "2"}))

	v := s.View()
	assert.Nil(t, v.Modal)
	assert.False(t, v.ScrollLocked)
	assert.Equal(t, 1, v.CartCount)
	require.Len(t, v.Toasts, 1)
	assert.Equal(t, "Mens Casual Premium ... ditambahkan ke keranjang!", v.Toasts[0].Message)
}

func TestSession_ModalAdd_UsesDisplayedProduct(t *testing.T) {
	s := newLoadedSession(t, clockwork.NewFakeClock())
	require.NoError(t, s.Dispatch(context.Background(), gridClick("3", TargetCard)))

	require.NoError(t, s.Dispatch(context.Background(), Event{Action: ActionModalAdd}))

	cart := s.Cart()
	require.Len(t, cart, 1)
	assert.Equal(t, int64(3), cart[0].ID)
}

func TestSession_ModalAdd_IgnoresOtherProduct(t *testing.T) {
	s := newLoadedSession(t, clockwork.NewFakeClock())
	require.NoError(t, s.Dispatch(context.Background(), gridClick("3", TargetCard)))

	require.NoError(t, s.Dispatch(context.Background(), Event{Action: ActionModalAdd, ProductID: "1"}))

	v := s.View()
	assert.Zero(t, v.CartCount)
	assert.Empty(t, v.Toasts)
	require.NotNil(t, v.Modal, "a stale form leaves the modal as it is")
	assert.Equal(t, "3", v.Modal.ProductID)
}

func TestSession_ModalAdd_InertAfterEscape(t *testing.T) {
	s := newLoadedSession(t, clockwork.NewFakeClock())
	require.NoError(t, s.Dispatch(context.Background(), gridClick("1", TargetCard)))
	require.NoError(t, s.Dispatch(context.Background(), Event{Action: ActionKeyDown, Key: KeyEscape}))

	require.NoError(t, s.Dispatch(context.Background(), Event{Action: ActionModalAdd, ProductID: "1"}))

	v := s.View()
	assert.Zero(t, v.CartCount)
	assert.Empty(t, v.Toasts)
}

func TestSession_EscapeWhileClosedIsNoop(t *testing.T) {
	s := newLoadedSession(t, clockwork.NewFakeClock())

	require.NoError(t, s.Dispatch(context.Background(), Event{Action: ActionKeyDown, Key: KeyEscape}))
	assert.False(t, s.ModalOpen())
}

func TestSession_Dispatch_UnknownAction(t *testing.T) {
	s := newLoadedSession(t, clockwork.NewFakeClock())

	err := s.Dispatch(context.Background(), Event{Action: "double-click"})
	require.ErrorIs(t, err, ErrUnknownAction)
}

func TestSession_CardRendering(t *testing.T) {
	s := newLoadedSession(t, clockwork.NewFakeClock())

	cards := s.View().Cards
	require.Len(t, cards, 3)

	assert.Equal(t, "Fjallraven - Foldsack No. 1 Backpack, Fi...", cards[0].Title)
	assert.Equal(t, "Rp 1.649.250", cards[0].Price)
	assert.Equal(t, "Mens Casual Premium Slim Fit T-Shirts...", cards[1].Title)
	assert.Equal(t, "Short...", cards[2].Title)
	assert.Equal(t, "Rp 157.500", cards[2].Price)
	assert.Equal(t, "electronics", cards[2].Category)
}

func TestSession_LastSeen(t *testing.T) {
	clock := clockwork.NewFakeClock()
	s := newLoadedSession(t, clock)
	start := s.LastSeen()

	clock.Advance(time.Minute)
	require.NoError(t, s.Dispatch(context.Background(), Event{Action: ActionModalClose}))
	assert.Equal(t, start.Add(time.Minute), s.LastSeen())
}
