// Package health reports whether the search server and its optional
// dependencies are usable. Probes run concurrently and the worst result
// decides the overall status.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type Status string

const (
	StatusUp       Status = "up"
	StatusDegraded Status = "degraded"
	StatusDown     Status = "down"
)

// Probe checks one component. A nil error means the component is up; the
// probe's registration decides whether a failure is fatal or degrading.
type Probe func(ctx context.Context) error

type Component struct {
	Status  Status `json:"status"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency"`
}

type Report struct {
	Status     Status               `json:"status"`
	Components map[string]Component `json:"components"`
}

type registration struct {
	probe    Probe
	critical bool
}

type Checker struct {
	mu      sync.RWMutex
	probes  map[string]registration
	timeout time.Duration
	logger  *slog.Logger
}

// NewChecker creates a Checker that gives every probe run at most timeout.
func NewChecker(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{
		probes:  make(map[string]registration),
		timeout: timeout,
		logger:  slog.Default().With("component", "health"),
	}
}

// Critical registers a probe whose failure marks the whole server down.
func (c *Checker) Critical(name string, p Probe) {
	c.register(name, registration{probe: p, critical: true})
}

// Optional registers a probe whose failure only degrades the server, such as
// the result cache.
func (c *Checker) Optional(name string, p Probe) {
	c.register(name, registration{probe: p})
}

func (c *Checker) register(name string, r registration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probes[name] = r
}

func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	probes := maps.Clone(c.probes)
	c.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		g  errgroup.Group
		mu sync.Mutex
	)
	report := Report{Status: StatusUp, Components: make(map[string]Component, len(probes))}
	for name, r := range probes {
		g.Go(func() error {
			start := time.Now()
			err := r.probe(ctx)
			comp := Component{Status: StatusUp, Latency: time.Since(start).Round(time.Microsecond).String()}
			if err != nil {
				comp.Status = StatusDegraded
				if r.critical {
					comp.Status = StatusDown
				}
				comp.Error = err.Error()
				c.logger.Warn("health probe failed", "probe", name, "error", err)
			}
			mu.Lock()
			report.Components[name] = comp
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for _, comp := range report.Components {
		switch comp.Status {
		case StatusDown:
			report.Status = StatusDown
		case StatusDegraded:
			if report.Status == StatusUp {
				report.Status = StatusDegraded
			}
		}
	}
	return report
}

// LiveHandler answers liveness probes without running any checks.
func LiveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "alive"})
	}
}

// ReadyHandler runs every probe. Only a down report fails readiness; a
// degraded server still answers searches.
func (c *Checker) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report := c.Run(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if report.Status == StatusDown {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(report)
	}
}
