package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/storefront"
	"github.com/xenking/storefront/internal/web"
)

// Handler serves the storefront pages. Each visit to the root path is a page
// load and gets its own storefront session.
type Handler struct {
	store    *storefront.Store
	renderer *web.Renderer
	clock    clockwork.Clock
}

// NewHandler constructs a Handler with the required dependencies.
func NewHandler(store *storefront.Store, renderer *web.Renderer, clock clockwork.Clock) *Handler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Handler{
		store:    store,
		renderer: renderer,
		clock:    clock,
	}
}

// Routes returns the storefront router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.OpenPage)
	r.Route("/s/{session}", func(r chi.Router) {
		r.Get("/", h.Page)
		r.Post("/events", h.Event)
		r.Get("/state", h.State)
	})
	return r
}

// OpenPage starts a new page session and redirects to it.
func (h *Handler) OpenPage(w http.ResponseWriter, r *http.Request) {
	s := h.store.Open(r.Context())
	zctx.From(r.Context()).Debug("Page session opened", zap.String("session", s.ID()))
	http.Redirect(w, r, pageURL(s.ID()), http.StatusSeeOther)
}

// Page renders the current state of a session.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(r)
	if !ok {
		reload(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.renderer.Render(w, s.View(), eventsURL(s.ID()), h.clock.Now()); err != nil {
		zctx.From(r.Context()).Error("Render page", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handler) session(r *http.Request) (*storefront.Session, bool) {
	return h.store.Get(chi.URLParam(r, "session"))
}

// reload sends the browser back to the root, which is a fresh page load.
func reload(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func pageURL(id string) string {
	return "/s/" + id + "/"
}

func eventsURL(id string) string {
	return "/s/" + id + "/events"
}
