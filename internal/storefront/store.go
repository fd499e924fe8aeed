package storefront

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// DefaultIdleTTL is how long an untouched page session is kept.
const DefaultIdleTTL = 30 * time.Minute

// Store keeps the live page sessions. Opening a session is a page load: it
// starts with an empty cart and fetches the catalog.
type Store struct {
	opts    Options
	idleTTL time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore returns a Store creating sessions with opts. A non-positive idleTTL
// falls back to DefaultIdleTTL.
func NewStore(opts Options, idleTTL time.Duration) *Store {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &Store{
		opts:     opts.withDefaults(),
		idleTTL:  idleTTL,
		sessions: make(map[string]*Session),
	}
}

// Open creates a session and starts its catalog fetch in the background. The
// fetch outlives ctx cancellation but keeps its values (logger, trace).
func (st *Store) Open(ctx context.Context) *Session {
	s := NewSession(st.opts)

	st.mu.Lock()
	st.sessions[s.ID()] = s
	st.mu.Unlock()
	st.opts.Metrics.sessions.Add(ctx, 1)

	// The session is loading before the caller can render it.
	gen := s.begin()
	loadCtx := context.WithoutCancel(ctx)
	go func() {
		_ = s.fetch(loadCtx, gen)
	}()
	return s
}

// Get returns the session with id.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed.
func (st *Store) Sweep(ctx context.Context) int {
	now := st.opts.Clock.Now()

	st.mu.Lock()
	var removed int
	for id, s := range st.sessions {
		if now.Sub(s.LastSeen()) >= st.idleTTL {
			delete(st.sessions, id)
			removed++
		}
	}
	st.mu.Unlock()

	if removed > 0 {
		st.opts.Metrics.sessions.Add(ctx, -int64(removed))
	}
	return removed
}

// Run sweeps idle sessions every TTL until ctx is cancelled.
func (st *Store) Run(ctx context.Context) error {
	ticker := st.opts.Clock.NewTicker(st.idleTTL)
	defer ticker.Stop()

	lg := zctx.From(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
			if n := st.Sweep(ctx); n > 0 {
				lg.Debug("Swept idle sessions", zap.Int("removed", n))
			}
		}
	}
}
