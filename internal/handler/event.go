package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/storefront"
)

// Event applies a posted UI event to the session, then either redirects back
// to the page or, for JSON clients, returns the new state.
func (h *Handler) Event(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(r)
	if !ok {
		if wantsJSON(r) {
			writeError(w, r, http.StatusNotFound, "session not found")
			return
		}
		reload(w, r)
		return
	}

	if err := r.ParseForm(); err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed form")
		return
	}
	ev := eventFromForm(r)

	if err := s.Dispatch(r.Context(), ev); err != nil {
		if errors.Is(err, storefront.ErrUnknownAction) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		zctx.From(r.Context()).Error("Dispatch event", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	if wantsJSON(r) {
		writeState(w, s.View())
		return
	}
	http.Redirect(w, r, pageURL(s.ID()), http.StatusSeeOther)
}

// eventFromForm reads the event fields. Targets keep their form order, which
// lists the clicked element before the ones enclosing it.
func eventFromForm(r *http.Request) storefront.Event {
	ev := storefront.Event{
		Action:    storefront.Action(r.PostForm.Get("action")),
		ProductID: r.PostForm.Get("product_id"),
		Key:       r.PostForm.Get("key"),
	}
	for _, t := range r.PostForm["target"] {
		if t != "" {
			ev.Targets = append(ev.Targets, storefront.Target(t))
		}
	}
	return ev
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}
