package web

// errors.go renders every handler error the same way: the technical error
// is logged with the request ID, the client gets the mapped user message.
// HTMX requests get an alert fragment, API and JSON clients an
// ErrorResponse, anything else plain text.

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/loadsheet/internal/core"
	"github.com/JonMunkholm/loadsheet/internal/logging"
	"github.com/JonMunkholm/loadsheet/internal/table"
	"github.com/JonMunkholm/loadsheet/internal/web/templates"
)

// ErrorResponse is the JSON body of an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

var errNoFile = errors.New("no file provided")

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, core.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyRuns):
		return http.StatusServiceUnavailable
	case errors.Is(err, core.ErrStageLocked),
		errors.Is(err, core.ErrPhaseOrder),
		errors.Is(err, core.ErrRunSuperseded):
		return http.StatusConflict
	case errors.Is(err, core.ErrNoData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrReferenceNotLoaded):
		return http.StatusServiceUnavailable
	case errors.Is(err, table.ErrFileTooLarge), errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrUnknownColumn),
		errors.Is(err, core.ErrInvalidOption),
		errors.Is(err, table.ErrEmptyFile),
		errors.Is(err, errNoFile):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	msg := err.Error()
	if strings.Contains(msg, "invalid stage") || strings.Contains(msg, "unknown mode") ||
		strings.Contains(msg, "parse csv") || strings.Contains(msg, "decode request") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// fail responds with the status mapped from err.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	respondError(w, r, err, statusFor(err))
}

// respondError logs err and writes the user-facing message in the format
// the client expects.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)

	log := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= http.StatusInternalServerError {
		log.Error("request error", attrs...)
	} else {
		log.Warn("request error", attrs...)
	}

	switch {
	case isHTMX(r):
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		if err := templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w); err != nil {
			slog.ErrorContext(r.Context(), "render error alert", "error", err)
		}
	case wantsJSON(r):
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(ErrorResponse{
			Error:   msg.Message,
			Message: msg.Message,
			Action:  msg.Action,
			Code:    msg.Code,
		})
	default:
		http.Error(w, msg.Message+" ("+msg.Code+")", status)
	}
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON reports whether the client expects JSON. API routes always do.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.Contains(r.Header.Get("Content-Type"), "application/json") ||
		strings.HasPrefix(r.URL.Path, "/api/")
}
