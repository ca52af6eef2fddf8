package core

import (
	"sort"
	"time"
)

// StageSummary is the recorded outcome of one stage.
type StageSummary struct {
	Stage       Stage  `json:"stage"`
	Name        string `json:"name"`
	Passed      bool   `json:"passed"`
	Skipped     bool   `json:"skipped"`
	FailedCheck string `json:"failedCheck,omitempty"`
	Offending   int    `json:"offending,omitempty"`
}

// SessionState is a point-in-time snapshot of a session.
type SessionState struct {
	ID          string    `json:"id"`
	FileName    string    `json:"fileName"`
	Fingerprint string    `json:"fingerprint"`
	Encoding    string    `json:"encoding"`
	CreatedAt   time.Time `json:"createdAt"`
	TouchedAt   time.Time `json:"touchedAt"`
	Rows        int       `json:"rows"`
	Columns     []string  `json:"columns"`

	Mapping    Mapping         `json:"mapping"`
	SuffixUsed bool            `json:"suffixUsed"`
	Site       *SiteFilter     `json:"site,omitempty"`
	Kinds      KindAssignments `json:"kinds"`

	Normalized *NormalizeReport `json:"normalized,omitempty"`
	Unlocked   Stage            `json:"unlockedStage"`
	Stages     []StageSummary   `json:"stages"`
	Complete   bool             `json:"complete"`
	Warnings   bool             `json:"hasWarnings"`

	Phase        string          `json:"phase"`
	FacetMatched int             `json:"facetMatched"`
	FacetMissing int             `json:"facetMissing"`
	Finalized    bool            `json:"finalized"`
	Devices      *DeviceCoverage `json:"devices,omitempty"`
}

// State returns a snapshot of the session.
func (s *Service) State(id string) (*SessionState, error) {
	ss, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()

	st := &SessionState{
		ID:          ss.id,
		FileName:    ss.fileName,
		Fingerprint: ss.fingerprint,
		Encoding:    ss.encoding,
		CreatedAt:   ss.createdAt,
		TouchedAt:   ss.touchedAt,
		Rows:        ss.source.Len(),
		Columns:     ss.source.Columns(),
		Mapping:     ss.mapping.Clone(),
		SuffixUsed:  ss.suffixUsed,
		Site:        ss.site,
		Kinds:       cloneKinds(ss.kinds),
		Normalized:  ss.normalize,
		Unlocked:    ss.unlocked,
		Complete:    ss.complete,
		Warnings:    ss.warnings != nil && ss.warnings.HasWarnings(),
		Phase:       ss.phase.String(),
		Finalized:   ss.expanded != nil,
		Devices:     ss.coverage,
	}
	if ss.join != nil {
		st.FacetMatched = len(ss.join.Matched)
		st.FacetMissing = len(ss.join.Missing)
	}

	stages := make([]Stage, 0, len(ss.reports))
	for stage := range ss.reports {
		stages = append(stages, stage)
	}
	sort.Slice(stages, func(i, j int) bool { return stages[i] < stages[j] })
	for _, stage := range stages {
		rep := ss.reports[stage]
		sum := StageSummary{Stage: stage, Name: stage.String(), Passed: rep.Passed, Skipped: rep.Skipped}
		if rep.FailedCheck != nil {
			sum.FailedCheck = rep.FailedCheck.Label
		}
		if rep.Failure != nil {
			sum.Offending = rep.Failure.Total
		}
		st.Stages = append(st.Stages, sum)
	}
	return st, nil
}

// Report returns the last recorded report of a stage.
func (s *Service) Report(id string, stage Stage) (*StageReport, error) {
	ss, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	rep, ok := ss.reports[stage]
	if !ok {
		return nil, ErrNoData
	}
	return rep, nil
}

// DeviceRows returns the rows of the device metadata table whose device is
// (matched) or is not (!matched) covered by the metadata source.
func (s *Service) DeviceRows(id string, matched bool) (*Extract, error) {
	ss, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.meta == nil || ss.coverage == nil {
		return nil, ErrNoData
	}
	name := "devices_missing_meta.csv"
	if matched {
		name = "devices_with_meta.csv"
	}
	t := ss.meta.Table
	return &Extract{Filename: name, Table: t.Select(ss.coverage.Rows(t, ss.mapping, matched))}, nil
}

// FacetRows returns the joined rows that did (matched) or did not receive
// facets.
func (s *Service) FacetRows(id string, matched bool) (*Extract, error) {
	ss, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.join == nil {
		return nil, ErrNoData
	}
	if matched {
		return &Extract{Filename: "facets_matched.csv", Table: ss.join.MatchedTable()}, nil
	}
	return &Extract{Filename: "facets_missing.csv", Table: ss.join.MissingTable()}, nil
}

// ExpandedRows returns the expanded table.
func (s *Service) ExpandedRows(id string) (*Extract, error) {
	ss, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.expanded == nil {
		return nil, ErrNoData
	}
	return &Extract{Filename: "expanded_facets.csv", Table: ss.expanded.Table}, nil
}
