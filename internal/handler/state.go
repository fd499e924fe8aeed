package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/jx"

	"github.com/xenking/storefront/internal/storefront"
	"github.com/xenking/storefront/pkg/httpmiddleware"
)

// State returns the session view as JSON.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(r)
	if !ok {
		writeError(w, r, http.StatusNotFound, "session not found")
		return
	}
	writeState(w, s.View())
}

func writeState(w http.ResponseWriter, v storefront.View) {
	var e jx.Encoder
	encodeView(&e, v)
	writeJSON(w, http.StatusOK, e.Bytes())
}

func encodeView(e *jx.Encoder, v storefront.View) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("session", func(e *jx.Encoder) { e.Str(v.SessionID) })
		e.Field("state", func(e *jx.Encoder) { e.Str(string(v.State)) })
		e.Field("loading", func(e *jx.Encoder) { e.Bool(v.Loading) })
		e.Field("failed", func(e *jx.Encoder) { e.Bool(v.Failed) })
		e.Field("cartCount", func(e *jx.Encoder) { e.Int(v.CartCount) })
		e.Field("scrollLocked", func(e *jx.Encoder) { e.Bool(v.ScrollLocked) })
		e.Field("cards", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, c := range v.Cards {
					e.Obj(func(e *jx.Encoder) {
						e.Field("id", func(e *jx.Encoder) { e.Str(c.ProductID) })
						e.Field("title", func(e *jx.Encoder) { e.Str(c.Title) })
						e.Field("category", func(e *jx.Encoder) { e.Str(c.Category) })
						e.Field("price", func(e *jx.Encoder) { e.Str(c.Price) })
						e.Field("image", func(e *jx.Encoder) { e.Str(c.Image) })
					})
				}
			})
		})
		e.Field("modal", func(e *jx.Encoder) {
			if v.Modal == nil {
				e.Null()
				return
			}
			m := v.Modal
			e.Obj(func(e *jx.Encoder) {
				e.Field("id", func(e *jx.Encoder) { e.Str(m.ProductID) })
				e.Field("title", func(e *jx.Encoder) { e.Str(m.Title) })
				e.Field("category", func(e *jx.Encoder) { e.Str(m.Category) })
				e.Field("price", func(e *jx.Encoder) { e.Str(m.Price) })
				e.Field("image", func(e *jx.Encoder) { e.Str(m.Image) })
				e.Field("description", func(e *jx.Encoder) { e.Str(m.Description) })
			})
		})
		e.Field("toasts", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, t := range v.Toasts {
					e.Obj(func(e *jx.Encoder) {
						e.Field("id", func(e *jx.Encoder) { e.Str(t.ID) })
						e.Field("message", func(e *jx.Encoder) { e.Str(t.Message) })
						e.Field("expiresAt", func(e *jx.Encoder) { e.Str(t.ExpiresAt.UTC().Format(time.RFC3339Nano)) })
					})
				}
			})
		})
	})
}

// writeError answers {code, message, requestId}. The request id is omitted
// when the request carries none.
func writeError(w http.ResponseWriter, r *http.Request, code int, message string) {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("code", func(e *jx.Encoder) { e.Int(code) })
		e.Field("message", func(e *jx.Encoder) { e.Str(message) })
		if id := httpmiddleware.RequestIDFromContext(r.Context()); id != "" {
			e.Field("requestId", func(e *jx.Encoder) { e.Str(id) })
		}
	})
	writeJSON(w, code, e.Bytes())
}

func writeJSON(w http.ResponseWriter, code int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_, _ = w.Write(body)
}
