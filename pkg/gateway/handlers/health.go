package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Bharath8080/voiced/pkg/gateway/sessions"
)

type HealthHandler struct{}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// ReadyHandler reports whether the gateway accepts new sessions.
type ReadyHandler struct {
	Tracker  *sessions.Tracker
	Draining func() bool
}

func (h ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type readyResp struct {
		OK             bool `json:"ok"`
		Draining       bool `json:"draining"`
		ActiveSessions int  `json:"active_sessions"`
	}

	draining := h.Draining != nil && h.Draining()
	status := http.StatusOK
	if draining {
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(readyResp{
		OK:             !draining,
		Draining:       draining,
		ActiveSessions: h.Tracker.Count(),
	})
}
