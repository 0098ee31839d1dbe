package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"
)

const (
	healthStatusOK       = "ok"
	healthStatusDegraded = "degraded"
)

// BuildInfo describes the running binary for health responses.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}

// ReadinessCheck probes a dependency. A nil error means the dependency is ready.
type ReadinessCheck func(ctx context.Context) error

// HealthHandlers serves the liveness and readiness endpoints.
type HealthHandlers struct {
	build  BuildInfo
	clock  func() time.Time
	checks map[string]ReadinessCheck
}

// HealthOption customises the health handlers.
type HealthOption func(*HealthHandlers)

// WithHealthBuildInfo sets the build metadata reported by /healthz.
func WithHealthBuildInfo(info BuildInfo) HealthOption {
	return func(h *HealthHandlers) {
		h.build = info
	}
}

// WithHealthClock overrides the clock used for uptime calculation.
func WithHealthClock(clock func() time.Time) HealthOption {
	return func(h *HealthHandlers) {
		if clock != nil {
			h.clock = clock
		}
	}
}

// WithHealthReadinessCheck registers a named dependency probe for /readyz.
func WithHealthReadinessCheck(name string, check ReadinessCheck) HealthOption {
	return func(h *HealthHandlers) {
		if name == "" || check == nil {
			return
		}
		h.checks[name] = check
	}
}

// NewHealthHandlers constructs health handlers with the provided options.
func NewHealthHandlers(opts ...HealthOption) *HealthHandlers {
	h := &HealthHandlers{
		clock:  time.Now,
		checks: map[string]ReadinessCheck{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type healthzPayload struct {
	Status        string `json:"status"`
	Version       string `json:"version,omitempty"`
	CommitSHA     string `json:"commitSha,omitempty"`
	Environment   string `json:"environment,omitempty"`
	UptimeSeconds int64  `json:"uptimeSeconds,omitempty"`
}

// Healthz reports process liveness and build metadata.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	payload := healthzPayload{
		Status:      healthStatusOK,
		Version:     h.build.Version,
		CommitSHA:   h.build.CommitSHA,
		Environment: h.build.Environment,
	}
	if !h.build.StartedAt.IsZero() {
		uptime := h.clock().Sub(h.build.StartedAt)
		if uptime > 0 {
			payload.UptimeSeconds = int64(uptime.Seconds())
		}
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

type readyzCheckPayload struct {
	Status    string `json:"status"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

type readyzPayload struct {
	Status  string                        `json:"status"`
	Checks  map[string]readyzCheckPayload `json:"checks"`
	Details []string                      `json:"details"`
}

// Readyz probes registered dependencies and reports 503 when any fails.
func (h *HealthHandlers) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	payload := readyzPayload{
		Status:  healthStatusOK,
		Checks:  make(map[string]readyzCheckPayload, len(h.checks)),
		Details: []string{},
	}

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		started := h.clock()
		err := h.checks[name](ctx)
		latency := h.clock().Sub(started)

		check := readyzCheckPayload{
			Status:    healthStatusOK,
			LatencyMs: latency.Milliseconds(),
		}
		if err != nil {
			check.Status = healthStatusDegraded
			check.Error = err.Error()
			payload.Status = healthStatusDegraded
			payload.Details = append(payload.Details, name+": "+err.Error())
		}
		payload.Checks[name] = check
	}

	status := http.StatusOK
	if payload.Status != healthStatusOK {
		status = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, status, payload)
}
