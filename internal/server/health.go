package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync/atomic"
	"time"

	"github.com/teemow/salesmcp/internal/credential"
)

const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
	healthStatusDegraded     = "degraded"
	healthStatusNoRegistry   = "no tool registry"
)

// HealthChecker serves liveness, readiness and a detailed status of the
// registered tools and OAuth2 credentials.
type HealthChecker struct {
	ready         atomic.Bool
	serverContext *ServerContext
	startTime     time.Time
}

// NewHealthChecker creates a HealthChecker that starts out ready.
// sc may be nil, in which case only the ready flag is checked.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{
		serverContext: sc,
		startTime:     time.Now(),
	}
	h.ready.Store(true)
	return h
}

// SetReady sets the readiness state. The server clears it before draining.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady returns whether the server is ready to receive traffic.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

func (h *HealthChecker) isServerShuttingDown() bool {
	return h.serverContext != nil && h.serverContext.IsShutdown()
}

// HealthResponse is the body of /healthz and /readyz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// CredentialHealth describes one provider credential.
type CredentialHealth struct {
	State     string `json:"state"`
	ExpiresIn string `json:"expires_in,omitempty"`
}

// DetailedHealthResponse is the body of /healthz/detailed.
type DetailedHealthResponse struct {
	Status          string                      `json:"status"`
	Uptime          string                      `json:"uptime"`
	Tools           map[string]bool             `json:"tools"`
	ConfiguredTools int                         `json:"configured_tools"`
	TotalTools      int                         `json:"total_tools"`
	Credentials     map[string]CredentialHealth `json:"credentials,omitempty"`
	Unconfigured    []string                    `json:"unconfigured,omitempty"`
}

// LivenessHandler serves /healthz. It only reports that the process is up.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeHealthJSON(w, http.StatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler serves /readyz. The server is ready while the flag is set,
// it is not shutting down, and a tool registry is attached. Unconfigured
// tools do not affect readiness.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		checks := map[string]string{
			"ready":    healthStatusOK,
			"shutdown": healthStatusOK,
		}
		allOk := true

		if !h.ready.Load() {
			checks["ready"] = healthStatusNotReady
			allOk = false
		}
		if h.isServerShuttingDown() {
			checks["shutdown"] = healthStatusShuttingDown
			allOk = false
		}
		if h.serverContext != nil {
			checks["tools"] = healthStatusOK
			if h.serverContext.Registry() == nil {
				checks["tools"] = healthStatusNoRegistry
				allOk = false
			}
		}

		resp := HealthResponse{Status: healthStatusOK, Checks: checks}
		status := http.StatusOK
		if !allOk {
			resp.Status = healthStatusNotReady
			status = http.StatusServiceUnavailable
		}
		writeHealthJSON(w, status, resp)
	})
}

// RegisterHealthEndpoints registers the health endpoints on mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}

// DetailedHealthHandler serves /healthz/detailed: every registered tool with
// its configured flag and every registered credential with its state.
// A failed or expired credential, or an unconfigured tool, reports
// "degraded" with 200 since the server still answers for the other tools.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := DetailedHealthResponse{
			Status: healthStatusOK,
			Uptime: time.Since(h.startTime).Truncate(time.Second).String(),
			Tools:  map[string]bool{},
		}
		if h.serverContext != nil {
			resp.Tools = h.serverContext.ToolStatus()
			resp.Credentials = credentialHealth(h.serverContext.Credentials())
		}

		for name, ok := range resp.Tools {
			if ok {
				resp.ConfiguredTools++
			} else {
				resp.Unconfigured = append(resp.Unconfigured, name)
			}
		}
		sort.Strings(resp.Unconfigured)
		resp.TotalTools = len(resp.Tools)

		degraded := len(resp.Unconfigured) > 0
		for _, c := range resp.Credentials {
			if c.State == credential.StateFailed.String() || c.State == credential.StateExpired.String() {
				degraded = true
			}
		}

		status := http.StatusOK
		switch {
		case !h.ready.Load():
			resp.Status = healthStatusNotReady
			status = http.StatusServiceUnavailable
		case h.isServerShuttingDown():
			resp.Status = healthStatusShuttingDown
			status = http.StatusServiceUnavailable
		case degraded:
			resp.Status = healthStatusDegraded
		}
		writeHealthJSON(w, status, resp)
	})
}

func credentialHealth(sources map[string]CredentialSource) map[string]CredentialHealth {
	if len(sources) == 0 {
		return nil
	}
	out := make(map[string]CredentialHealth, len(sources))
	for name, src := range sources {
		c := CredentialHealth{State: src.State().String()}
		if ttl := src.TimeToExpiry(); ttl > 0 {
			c.ExpiresIn = ttl.Truncate(time.Second).String()
		}
		out[name] = c
	}
	return out
}

func writeHealthJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
