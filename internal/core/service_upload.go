package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/JonMunkholm/loadsheet/internal/metrics"
	"github.com/JonMunkholm/loadsheet/internal/table"
)

// SessionInfo is returned when a sheet is uploaded.
type SessionInfo struct {
	ID               string               `json:"id"`
	FileName         string               `json:"fileName"`
	Columns          []string             `json:"columns"`
	Rows             int                  `json:"rows"`
	SuggestedMapping Mapping              `json:"suggestedMapping"`
	Types            []string             `json:"types"`
	Kinds            KindAssignments      `json:"kinds"`
	Fingerprint      string               `json:"fingerprint"`
	Encoding         string               `json:"encoding"`
	Warnings         []table.ParseWarning `json:"warnings,omitempty"`
}

// CreateSession parses an uploaded sheet and opens a session for it. The
// column mapping and point-kind table are pre-filled with suggestions.
func (s *Service) CreateSession(ctx context.Context, fileName string, r io.Reader) (*SessionInfo, error) {
	if err := s.acquire(ctx, "upload"); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	start := time.Now()
	res, err := table.ReadCSV(r)
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", fileName, err)
	}
	if res.Table.Len() == 0 {
		return nil, fmt.Errorf("upload %s: %w", fileName, ErrNoData)
	}

	ss := s.newSession(fileName, res)
	metrics.RecordRow(metricsJob, "uploaded", res.Table.Len())

	slog.InfoContext(ctx, "session created",
		"session_id", ss.id,
		"file", fileName,
		"rows", res.Table.Len(),
		"columns", len(res.Table.Columns()),
		"encoding", res.Encoding,
		"fingerprint", res.Fingerprint,
		"parse_warnings", len(res.Warnings),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	ss.mu.Lock()
	defer ss.mu.Unlock()
	return &SessionInfo{
		ID:               ss.id,
		FileName:         fileName,
		Columns:          ss.source.Columns(),
		Rows:             ss.source.Len(),
		SuggestedMapping: ss.mapping.Clone(),
		Types:            DistinctTypes(ss.source, ss.mapping),
		Kinds:            cloneKinds(ss.kinds),
		Fingerprint:      res.Fingerprint,
		Encoding:         res.Encoding,
		Warnings:         res.Warnings,
	}, nil
}

// ParseUpload reads a secondary upload (facets or device metadata).
func ParseUpload(r io.Reader) (*table.Table, error) {
	res, err := table.ReadCSV(r)
	if err != nil {
		if errors.Is(err, table.ErrEmptyFile) {
			return nil, err
		}
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	return res.Table, nil
}

func cloneKinds(k KindAssignments) KindAssignments {
	out := make(KindAssignments, len(k))
	for t, v := range k {
		out[t] = v
	}
	return out
}
