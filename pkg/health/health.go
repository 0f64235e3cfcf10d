// Package health serves liveness and readiness probes.
//
// Every check is polled on an interval. A check flips to failing only after
// FailureThreshold consecutive errors and back to passing after
// SuccessThreshold consecutive successes, so a single slow ping does not
// take the pod out of rotation.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// CheckFunc returns nil when the component is healthy.
type CheckFunc func(ctx context.Context) error

// Kind selects the probe a check contributes to.
type Kind int

const (
	Liveness Kind = iota
	Readiness
)

// CheckOptions tunes a single check.
type CheckOptions struct {
	Timeout          time.Duration
	FailureThreshold int
	SuccessThreshold int
}

func (o CheckOptions) withDefaults() CheckOptions {
	if o.Timeout <= 0 {
		o.Timeout = 2 * time.Second
	}
	if o.FailureThreshold <= 0 {
		o.FailureThreshold = 3
	}
	if o.SuccessThreshold <= 0 {
		o.SuccessThreshold = 1
	}
	return o
}

type probe struct {
	name string
	kind Kind
	fn   CheckFunc
	opts CheckOptions

	passing atomic.Bool
	lastErr atomic.Pointer[string]

	// Streaks are touched only by the polling goroutine.
	fails int
	oks   int
}

func (p *probe) poll(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	if err := p.fn(ctx); err != nil {
		msg := err.Error()
		p.lastErr.Store(&msg)
		p.oks = 0
		p.fails++
		if p.fails >= p.opts.FailureThreshold {
			p.passing.Store(false)
		}
		return
	}
	p.lastErr.Store(nil)
	p.fails = 0
	p.oks++
	if p.oks >= p.opts.SuccessThreshold {
		p.passing.Store(true)
	}
}

func (p *probe) failure() string {
	if msg := p.lastErr.Load(); msg != nil {
		return *msg
	}
	return "check is failing"
}

// Health holds the registered checks and the manual readiness gate.
type Health struct {
	ready atomic.Bool

	mu     sync.RWMutex
	probes []*probe
}

// New returns a Health that is live and not yet ready.
func New() *Health {
	return &Health{}
}

// Register adds a check. Checks start out passing. Register must be called
// before Run.
func (h *Health) Register(kind Kind, name string, fn CheckFunc, opts CheckOptions) {
	p := &probe{name: name, kind: kind, fn: fn, opts: opts.withDefaults()}
	p.passing.Store(true)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.probes = append(h.probes, p)
}

// SetReady opens or closes the readiness gate. The gate is closed during
// startup and graceful shutdown.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// Ready reports whether the gate is open and every readiness check passes.
func (h *Health) Ready() bool {
	return h.ready.Load() && len(h.failures(Readiness)) == 0
}

// Run polls every check at interval until ctx is done.
func (h *Health) Run(ctx context.Context, interval time.Duration) error {
	h.mu.RLock()
	probes := append([]*probe(nil), h.probes...)
	h.mu.RUnlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, p := range probes {
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				p.poll(ctx)
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		})
	}
	return g.Wait()
}

func (h *Health) failures(kind Kind) map[string]string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	failed := map[string]string{}
	for _, p := range h.probes {
		if p.kind == kind && !p.passing.Load() {
			failed[p.name] = p.failure()
		}
	}
	return failed
}

// Report is the JSON body of both probe endpoints.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Livez serves the liveness probe.
func (h *Health) Livez(w http.ResponseWriter, _ *http.Request) {
	writeReport(w, h.failures(Liveness))
}

// Readyz serves the readiness probe.
func (h *Health) Readyz(w http.ResponseWriter, _ *http.Request) {
	failed := h.failures(Readiness)
	if !h.ready.Load() {
		failed["gate"] = "service is not ready"
	}
	writeReport(w, failed)
}

func writeReport(w http.ResponseWriter, failed map[string]string) {
	rep := Report{Status: "ok"}
	code := http.StatusOK
	if len(failed) > 0 {
		rep = Report{Status: "unhealthy", Checks: failed}
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(rep)
}
