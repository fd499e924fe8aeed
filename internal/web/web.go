// Package web renders storefront views as HTML.
package web

import (
	"bytes"
	"embed"
	"html/template"
	"io"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/storefront/internal/storefront"
)

//go:embed templates/*.html
var templates embed.FS

// DefaultTitle is the shop name shown in the header.
const DefaultTitle = "TokoKu"

// Renderer executes the page template.
type Renderer struct {
	page  *template.Template
	title string
}

// NewRenderer parses the embedded templates.
func NewRenderer(title string) (*Renderer, error) {
	if title == "" {
		title = DefaultTitle
	}
	page, err := template.ParseFS(templates, "templates/page.html")
	if err != nil {
		return nil, errors.Wrap(err, "parse templates")
	}
	return &Renderer{page: page, title: title}, nil
}

type toastData struct {
	ID              string
	Message         string
	RemainingMillis int64
}

type pageData struct {
	storefront.View
	Title          string
	EventsURL      string
	RefreshSeconds int
	Toasts         []toastData
}

// Render writes the page for v to w. eventsURL is where the page's controls
// post their events; now is used to compute how long toasts remain visible.
func (r *Renderer) Render(w io.Writer, v storefront.View, eventsURL string, now time.Time) error {
	data := pageData{
		View:           v,
		Title:          r.title,
		EventsURL:      eventsURL,
		RefreshSeconds: 1,
		Toasts:         make([]toastData, 0, len(v.Toasts)),
	}
	for _, t := range v.Toasts {
		data.Toasts = append(data.Toasts, toastData{
			ID:              t.ID,
			Message:         t.Message,
			RemainingMillis: max(t.ExpiresAt.Sub(now).Milliseconds(), 0),
		})
	}

	// Render into a buffer so a template error never leaves a half-written page.
	var buf bytes.Buffer
	if err := r.page.Execute(&buf, data); err != nil {
		return errors.Wrap(err, "execute page template")
	}
	if _, err := buf.WriteTo(w); err != nil {
		return errors.Wrap(err, "write page")
	}
	return nil
}
