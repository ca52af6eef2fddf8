package web

import (
	"net/http"

	"github.com/JonMunkholm/loadsheet/internal/core"
	"github.com/JonMunkholm/loadsheet/internal/logging"
)

// handleCreateSession accepts a sheet upload and opens a session.
func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	up, err := s.readUpload(w, r)
	if err != nil {
		fail(w, r, err)
		return
	}
	defer up.Close()

	info, err := s.service.CreateSession(r.Context(), up.name, up.reader)
	if err != nil {
		fail(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("session created",
		"session_id", info.ID, "file", info.FileName, "rows", info.Rows)
	writeJSON(w, http.StatusCreated, info)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	st, err := s.service.State(sessionID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Delete(sessionID(r)); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSetMapping replaces the column mapping, suffix flag and site filter.
func (s *Server) handleSetMapping(w http.ResponseWriter, r *http.Request) {
	var upd core.MappingUpdate
	if err := decodeJSON(r, &upd); err != nil {
		fail(w, r, err)
		return
	}
	m, err := s.service.SetMapping(r.Context(), sessionID(r), upd)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleSetKinds(w http.ResponseWriter, r *http.Request) {
	var kinds core.KindAssignments
	if err := decodeJSON(r, &kinds); err != nil {
		fail(w, r, err)
		return
	}
	out, err := s.service.SetKinds(r.Context(), sessionID(r), kinds)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	rep, err := s.service.Normalize(r.Context(), sessionID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}
