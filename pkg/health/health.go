// Package health serves liveness and readiness probes.
//
// Checks run periodically in the background. A check only turns unhealthy
// after FailureThreshold consecutive failures and healthy again after
// SuccessThreshold consecutive successes, so a single blip does not flap the
// probe.
package health

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"golang.org/x/sync/errgroup"
)

// CheckFunc returns nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

// Kind selects which probe a check contributes to.
type Kind int

const (
	Liveness Kind = iota
	Readiness
)

// Check describes a single health check.
type Check struct {
	Name    string
	Timeout time.Duration
	Func    CheckFunc
	// FailureThreshold defaults to 3.
	FailureThreshold int
	// SuccessThreshold defaults to 1.
	SuccessThreshold int
}

// check is a registered Check plus its state. The counters are only touched
// by the goroutine running the check; healthy and lastErr are read by probe
// handlers concurrently.
type check struct {
	Check

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	fails int
	oks   int
}

func (c *check) run(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	err := c.Func(ctx)
	c.lastErr.Store(&err)
	if err != nil {
		c.oks = 0
		c.fails++
		if c.fails >= c.FailureThreshold {
			c.healthy.Store(false)
		}
		return
	}
	c.fails = 0
	c.oks++
	if c.oks >= c.SuccessThreshold {
		c.healthy.Store(true)
	}
}

func (c *check) failure() (string, bool) {
	if c.healthy.Load() {
		return "", false
	}
	if p := c.lastErr.Load(); p != nil && *p != nil {
		return (*p).Error(), true
	}
	return "check is unhealthy", true
}

// Health holds the registered checks and the manual readiness flag.
type Health struct {
	ready atomic.Bool

	mu     sync.RWMutex
	checks map[Kind][]*check
}

// New returns a Health that is not ready yet.
func New() *Health {
	return &Health{checks: make(map[Kind][]*check)}
}

// Add registers c under kind. Checks start out healthy.
func (h *Health) Add(kind Kind, c Check) {
	if c.Timeout <= 0 {
		c.Timeout = time.Second
	}
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = 3
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = 1
	}
	registered := &check{Check: c}
	registered.healthy.Store(true)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[kind] = append(h.checks[kind], registered)
}

func (h *Health) snapshot(kinds ...Kind) []*check {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []*check
	for _, k := range kinds {
		out = append(out, h.checks[k]...)
	}
	return out
}

// Run executes every check immediately and then once per interval until ctx
// is cancelled.
func (h *Health) Run(ctx context.Context, interval time.Duration) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, c := range h.snapshot(Liveness, Readiness) {
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			c.run(ctx)
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					c.run(ctx)
				}
			}
		})
	}
	return g.Wait()
}

// SetReady flips the manual readiness flag. It is set once startup completes
// and cleared when shutdown begins.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the service is marked ready and every readiness
// check passes.
func (h *Health) IsReady() bool {
	return len(h.readinessFailures()) == 0
}

// LiveEndpoint serves the liveness probe.
func (h *Health) LiveEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, failures(h.snapshot(Liveness)))
}

// ReadyEndpoint serves the readiness probe.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, _ *http.Request) {
	writeStatus(w, h.readinessFailures())
}

func (h *Health) readinessFailures() []failure {
	f := failures(h.snapshot(Readiness))
	if !h.ready.Load() {
		f = append(f, failure{name: "_readiness", reason: "service is not ready"})
	}
	return f
}

type failure struct {
	name   string
	reason string
}

func failures(checks []*check) []failure {
	var out []failure
	for _, c := range checks {
		if reason, failed := c.failure(); failed {
			out = append(out, failure{name: c.Name, reason: reason})
		}
	}
	return out
}

// writeStatus answers 200 {"status":"ok"} or 503 {"status":"unhealthy",
// "checks":{name: reason}}.
func writeStatus(w http.ResponseWriter, failed []failure) {
	status, code := "ok", http.StatusOK
	if len(failed) > 0 {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("status", func(e *jx.Encoder) { e.Str(status) })
		if len(failed) == 0 {
			return
		}
		e.Field("checks", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for _, f := range failed {
					e.Field(f.name, func(e *jx.Encoder) { e.Str(f.reason) })
				}
			})
		})
	})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}
