// Package health probes the text-generation gateway and classifies its
// availability. The monitor keeps a last-known snapshot with single-writer
// updates and many-reader access, so orchestration can gate expensive work
// without re-probing on every call.
package health

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/c360studio/reqderive/gateway"
)

// Status classifies gateway availability.
type Status string

const (
	// StatusHealthy means the service responds within the expected time.
	StatusHealthy Status = "healthy"

	// StatusDegraded means the service responds but slowly.
	StatusDegraded Status = "degraded"

	// StatusUnhealthy means the service failed to respond.
	StatusUnhealthy Status = "unhealthy"
)

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// Report is one health-check observation.
type Report struct {
	Status         Status    `json:"status"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	CheckedAt      time.Time `json:"checked_at"`
}

// probePrompt keeps health checks cheap: a minimal completion, not a real
// analysis.
const probePrompt = "Reply with the single word: ready"

// Monitor probes a gateway on demand and retains the last report.
type Monitor struct {
	gw            gateway.Gateway
	probeTimeout  time.Duration
	degradedAfter time.Duration
	logger        *slog.Logger

	mu   sync.RWMutex
	last Report
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithProbeTimeout bounds how long a single probe may take.
func WithProbeTimeout(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		m.probeTimeout = d
	}
}

// WithDegradedAfter sets the response time above which a responsive
// service is classified Degraded.
func WithDegradedAfter(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		m.degradedAfter = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) MonitorOption {
	return func(m *Monitor) {
		m.logger = logger
	}
}

// NewMonitor creates a health monitor for the given gateway.
func NewMonitor(gw gateway.Gateway, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		gw:            gw,
		probeTimeout:  10 * time.Second,
		degradedAfter: 2 * time.Second,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Check probes the gateway, classifies the result, stores it as the
// last-known report, and returns it.
func (m *Monitor) Check(ctx context.Context) Report {
	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	started := time.Now()
	_, err := m.gw.Generate(probeCtx, probePrompt)
	elapsed := time.Since(started)

	report := Report{
		ResponseTimeMs: elapsed.Milliseconds(),
		CheckedAt:      time.Now(),
	}

	switch {
	case err != nil:
		report.Status = StatusUnhealthy
		m.logger.Warn("Gateway health probe failed", "elapsed", elapsed, "error", err)
	case elapsed > m.degradedAfter:
		report.Status = StatusDegraded
		m.logger.Debug("Gateway responding slowly", "elapsed", elapsed)
	default:
		report.Status = StatusHealthy
	}

	m.mu.Lock()
	m.last = report
	m.mu.Unlock()

	return report
}

// Last returns the most recent report, or ok=false if no probe has run.
func (m *Monitor) Last() (Report, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last, !m.last.CheckedAt.IsZero()
}

// Healthy probes and reports whether the service is fully healthy.
// Degraded is conservatively treated as not healthy; callers wanting to
// proceed on a degraded service can inspect Check directly.
func (m *Monitor) Healthy(ctx context.Context) bool {
	return m.Check(ctx).Status == StatusHealthy
}
