package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/loadsheet/internal/core"
	"github.com/JonMunkholm/loadsheet/internal/web/templates"
)

// progressInterval is how often the progress stream polls check statuses.
const progressInterval = 250 * time.Millisecond

func (s *Server) handleRunStage(w http.ResponseWriter, r *http.Request) {
	stage, err := stageParam(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	id := sessionID(r)
	rep, err := s.service.RunStage(r.Context(), id, stage)
	if err != nil {
		fail(w, r, err)
		return
	}
	s.writeReport(w, r, id, rep)
}

func (s *Server) handleStageReport(w http.ResponseWriter, r *http.Request) {
	stage, err := stageParam(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	id := sessionID(r)
	rep, err := s.service.Report(id, stage)
	if err != nil {
		fail(w, r, err)
		return
	}
	s.writeReport(w, r, id, rep)
}

func (s *Server) writeReport(w http.ResponseWriter, r *http.Request, id string, rep *core.StageReport) {
	if isHTMX(r) {
		renderHTML(w, r, templates.StageReport(id, rep))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// handleValidate runs every stage from the first until one fails.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	res, err := s.service.Validate(r.Context(), sessionID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleChecks(w http.ResponseWriter, r *http.Request) {
	statuses, err := s.service.Statuses(sessionID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	if isHTMX(r) {
		renderHTML(w, r, templates.CheckList(statuses))
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

// handleStageProgress streams check statuses via Server-Sent Events. A
// "checks" event is sent whenever the statuses change and "complete" once
// the run has finished.
func (s *Server) handleStageProgress(w http.ResponseWriter, r *http.Request) {
	id := sessionID(r)
	if _, err := s.service.Statuses(id); err != nil {
		fail(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, r, fmt.Errorf("streaming not supported"), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()

	var last []byte
	seq := 0
	for {
		statuses, err := s.service.Statuses(id)
		if err != nil {
			fmt.Fprintf(w, "event: error\ndata: %q\n\n", err.Error())
			flusher.Flush()
			return
		}
		data, err := json.Marshal(statuses)
		if err != nil {
			slog.ErrorContext(r.Context(), "encode check statuses", "error", err)
			return
		}
		if !bytes.Equal(data, last) {
			seq++
			fmt.Fprintf(w, "id: %d\nevent: checks\ndata: %s\n\n", seq, data)
			flusher.Flush()
			last = data
		}
		if runFinished(statuses) {
			fmt.Fprintf(w, "event: complete\ndata: {}\n\n")
			flusher.Flush()
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}

// runFinished reports whether a run has ended: a check failed, or every
// check passed.
func runFinished(statuses []core.CheckStatus) bool {
	if len(statuses) == 0 {
		return false
	}
	for _, st := range statuses {
		switch st.State {
		case core.CheckFailed:
			return true
		case core.CheckPending, core.CheckRunning:
			return false
		}
	}
	return true
}

func (s *Server) handleOffendingCSV(w http.ResponseWriter, r *http.Request) {
	stage, err := stageParam(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	ext, err := s.service.OffendingRows(sessionID(r), stage)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCSV(w, r, ext)
}

func (s *Server) handleCleanedCSV(w http.ResponseWriter, r *http.Request) {
	stage, err := stageParam(r)
	if err != nil {
		fail(w, r, err)
		return
	}
	ext, err := s.service.CleanedRows(sessionID(r), stage)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeCSV(w, r, ext)
}

func (s *Server) handleWarnings(w http.ResponseWriter, r *http.Request) {
	rep, err := s.service.Warnings(sessionID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	if isHTMX(r) {
		renderHTML(w, r, templates.WarningPanel(rep))
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func renderHTML(w http.ResponseWriter, r *http.Request, c templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := c.Render(r.Context(), w); err != nil {
		slog.ErrorContext(r.Context(), "render fragment", "error", err)
	}
}
