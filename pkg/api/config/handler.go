// Package config exposes the LLM provider routing over HTTP.
package config

import (
	"encoding/json"
	"net/http"

	"fin_dashboard/pkg/core/agent"
	"fin_dashboard/pkg/core/logging"

	"github.com/gorilla/mux"
)

type Response struct {
	ActiveProvider  string   `json:"active_provider"`
	SummaryProvider string   `json:"summary_provider"`
	Available       []string `json:"available"`
}

type SwitchRequest struct {
	Provider string `json:"provider"`
}

// Handler holds dependencies for config endpoints
type Handler struct {
	AgentMgr *agent.Manager
}

func NewHandler(agentMgr *agent.Manager) *Handler {
	return &Handler{AgentMgr: agentMgr}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/api/config", h.HandleConfig).Methods("GET")
	r.HandleFunc("/api/config/switch", h.HandleSwitch).Methods("POST")
}

func (h *Handler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Response{
		ActiveProvider:  h.AgentMgr.GetActiveProvider(),
		SummaryProvider: h.AgentMgr.ProviderName(agent.ComparisonSummary),
		Available:       h.AgentMgr.Providers(),
	})
}

func (h *Handler) HandleSwitch(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req SwitchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid request body"})
		return
	}
	if err := h.AgentMgr.SetGlobalProvider(req.Provider); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	logging.Component("config-api").Info().Str("provider", req.Provider).Msg("switched provider")
	h.HandleConfig(w, r)
}
