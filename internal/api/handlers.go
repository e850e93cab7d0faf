package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"voiceturn/agent/internal/config"
	"voiceturn/agent/internal/health"
	"voiceturn/agent/internal/session"
)

type Handlers struct {
	cfg      config.Config
	registry *session.Registry
}

func NewHandlers(cfg config.Config, reg *session.Registry) *Handlers {
	return &Handlers{cfg: cfg, registry: reg}
}

// HandleListSessions reports every live connection's session state.
// ?events=1 includes each session's turn trail.
func (h *Handlers) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	withEvents := r.URL.Query().Get("events") == "1"
	infos := h.registry.Snapshot(withEvents)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"count":    len(infos),
		"sessions": infos,
	})
}

// HandleReady probes provider configuration and reachability.
func (h *Handlers) HandleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	status := health.CheckAll(ctx, h.cfg)

	w.Header().Set("Content-Type", "application/json")
	if !status.OK {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}
