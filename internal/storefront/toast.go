package storefront

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// DefaultToastLifetime is how long a toast stays visible.
const DefaultToastLifetime = 3 * time.Second

// Toast is a short-lived confirmation message.
type Toast struct {
	ID        string
	Message   string
	ExpiresAt time.Time
}

// Notifier keeps the visible toasts of one page. Each toast expires on its own
// after the lifetime elapses; there is no queueing or deduplication.
type Notifier struct {
	clock    clockwork.Clock
	lifetime time.Duration

	mu     sync.Mutex
	toasts []Toast
}

// NewNotifier returns a Notifier. A non-positive lifetime falls back to
// DefaultToastLifetime.
func NewNotifier(clock clockwork.Clock, lifetime time.Duration) *Notifier {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if lifetime <= 0 {
		lifetime = DefaultToastLifetime
	}
	return &Notifier{clock: clock, lifetime: lifetime}
}

// Show appends a toast with message and returns it.
func (n *Notifier) Show(message string) Toast {
	t := Toast{
		ID:        uuid.NewString(),
		Message:   message,
		ExpiresAt: n.clock.Now().Add(n.lifetime),
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.toasts = append(n.toasts, t)
	return t
}

// Active drops expired toasts and returns the remaining ones, oldest first.
func (n *Notifier) Active() []Toast {
	now := n.clock.Now()

	n.mu.Lock()
	defer n.mu.Unlock()

	kept := n.toasts[:0]
	for _, t := range n.toasts {
		if now.Before(t.ExpiresAt) {
			kept = append(kept, t)
		}
	}
	clear(n.toasts[len(kept):])
	n.toasts = kept

	out := make([]Toast, len(kept))
	copy(out, kept)
	return out
}
