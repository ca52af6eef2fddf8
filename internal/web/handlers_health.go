package web

import (
	"net/http"

	"github.com/JonMunkholm/loadsheet/internal/core"
	"github.com/JonMunkholm/loadsheet/internal/refdata"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type readiness struct {
	Status    string                `json:"status"`
	Reference *refdata.Status       `json:"reference,omitempty"`
	Sessions  int                   `json:"sessions"`
	Runs      core.RunLimiterStatus `json:"runs"`
}

// handleReady reports 503 until the ontology is loaded. Units and enums are
// only needed after validation, so they are reported but not required.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	out := readiness{
		Status:   "ready",
		Sessions: s.service.Count(),
		Runs:     s.service.Limiter().Status(),
	}
	status := http.StatusOK
	if s.ref != nil {
		st := s.ref.Status()
		out.Reference = &st
		if !st.Ontology {
			out.Status = "loading"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, out)
}
