package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/loadsheet/internal/core"
	"github.com/JonMunkholm/loadsheet/internal/table"
)

// multipartMemory is the part of a multipart form kept in memory; the rest
// spills to temporary files.
const multipartMemory = 32 << 20

// writeJSON encodes v with the given status. Encoding errors are only
// logged since the header is already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// writeCSV sends an extract as a CSV attachment.
func writeCSV(w http.ResponseWriter, r *http.Request, ext *core.Extract) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, ext.Filename))
	if err := table.WriteCSV(w, ext.Table); err != nil {
		slog.ErrorContext(r.Context(), "csv write error", "file", ext.Filename, "error", err)
	}
}

// decodeJSON reads a JSON body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("decode request: empty body")
		}
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// upload is a file received in a multipart form.
type upload struct {
	name   string
	reader io.Reader
	file   multipart.File
}

func (u *upload) Close() error { return u.file.Close() }

// readUpload parses a multipart form and opens its "file" part, bounded by
// the configured maximum upload size. The caller closes the upload.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	limit := s.cfg.Upload.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, table.ErrFileTooLarge
		}
		return nil, fmt.Errorf("decode request: %w", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, errNoFile
		}
		return nil, fmt.Errorf("decode request: %w", err)
	}
	return &upload{
		name:   header.Filename,
		reader: table.NewLimitReader(file, limit),
		file:   file,
	}, nil
}

// optionalUpload parses a secondary sheet when the form carries one.
func (s *Server) optionalUpload(w http.ResponseWriter, r *http.Request) (*table.Table, error) {
	up, err := s.readUpload(w, r)
	if errors.Is(err, errNoFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer up.Close()
	return core.ParseUpload(up.reader)
}

func sessionID(r *http.Request) string {
	return chi.URLParam(r, "id")
}

func stageParam(r *http.Request) (core.Stage, error) {
	return core.ParseStage(chi.URLParam(r, "stage"))
}

// clientIP returns the host part of r.RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
