package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/loadsheet/internal/table"
)

// ValidationResult is the outcome of running every applicable stage.
type ValidationResult struct {
	Reports  []*StageReport `json:"reports"`
	Complete bool           `json:"complete"`
	Warnings *WarningReport `json:"warnings,omitempty"`
}

// RunStage (re)runs one validation stage from scratch. Re-entering a stage
// discards its previous result and the results of every later stage. The
// stage must be unlocked: every earlier applicable stage has passed. The
// suffix stage reports as skipped when suffixes are not in use.
func (s *Service) RunStage(ctx context.Context, id string, stage Stage) (*StageReport, error) {
	ss, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	ss.mu.Lock()
	if ss.working == nil {
		ss.mu.Unlock()
		return nil, fmt.Errorf("run stage %s: %w: sheet not normalized", stage, ErrNoData)
	}
	if stage == StageSuffix && !ss.suffixUsed {
		defer ss.mu.Unlock()
		if !ss.complete {
			return nil, fmt.Errorf("run stage %s: %w", stage, ErrStageLocked)
		}
		return SkippedReport(stage), nil
	}
	if stage > ss.unlocked {
		ss.mu.Unlock()
		return nil, fmt.Errorf("run stage %s: %w", stage, ErrStageLocked)
	}
	ss.invalidateFrom(stage)
	seq := ss.runSeq
	in := CheckInput{Table: ss.working, Mapping: ss.mapping.Clone()}
	runner := ss.runner
	ss.mu.Unlock()

	// Suffix checks judge combos against the same rules as the ontology stage.
	if stage >= StageOntology {
		in.Ontology = s.ontology(ctx)
	}

	if err := s.acquire(ctx, "stage"); err != nil {
		return nil, err
	}
	rep, err := runner.Run(ctx, stage, StageChecks(stage, in.Ontology), in)
	s.limiter.Release()
	if err != nil {
		return nil, fmt.Errorf("run stage %s: %w", stage, err)
	}

	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.runSeq != seq {
		return nil, fmt.Errorf("run stage %s: %w", stage, ErrRunSuperseded)
	}
	ss.commitStage(ctx, rep)

	attrs := []any{"session_id", id, "stage", stage.String(), "passed", rep.Passed}
	if rep.Failure != nil {
		attrs = append(attrs, "failed_check", rep.Failure.Label, "offending", rep.Failure.Total)
	}
	slog.InfoContext(ctx, "stage run complete", attrs...)
	return rep, nil
}

// Validate runs every applicable stage from the first, advancing while
// stages pass and stopping at the first failure.
func (s *Service) Validate(ctx context.Context, id string) (*ValidationResult, error) {
	res := &ValidationResult{}
	stage := FirstStage
	for {
		rep, err := s.RunStage(ctx, id, stage)
		if err != nil {
			return nil, err
		}
		res.Reports = append(res.Reports, rep)
		if !rep.Passed {
			return res, nil
		}

		ss, err := s.lookup(id)
		if err != nil {
			return nil, err
		}
		ss.mu.Lock()
		suffixUsed, complete, warnings := ss.suffixUsed, ss.complete, ss.warnings
		ss.mu.Unlock()

		next, ok := NextStage(stage, suffixUsed)
		if !ok {
			res.Complete = complete
			res.Warnings = warnings
			if !suffixUsed {
				res.Reports = append(res.Reports, SkippedReport(StageSuffix))
			}
			return res, nil
		}
		stage = next
	}
}

// invalidateFrom drops the results of stage and every later stage and
// supersedes any run in flight. Callers hold mu.
func (ss *session) invalidateFrom(stage Stage) {
	ss.runSeq++
	for st := range ss.reports {
		if st >= stage {
			delete(ss.reports, st)
		}
	}
	ss.unlocked = stage
	ss.complete = false
	ss.warnings = nil
	ss.resetEnrichment()
}

// commitStage records a finished stage and advances the session. The
// duplicate-field warnings are computed once the last stage passes. Callers
// hold mu.
func (ss *session) commitStage(ctx context.Context, rep *StageReport) {
	ss.reports[rep.Stage] = rep
	if !rep.Passed {
		ss.unlocked = rep.Stage
		return
	}
	if next, ok := NextStage(rep.Stage, ss.suffixUsed); ok {
		ss.unlocked = next
		return
	}
	if !ss.suffixUsed {
		ss.reports[StageSuffix] = SkippedReport(StageSuffix)
	}
	ss.complete = true
	w := DetectDuplicateFields(ss.working, ss.mapping, ss.suffixUsed)
	ss.warnings = &w
	if w.HasWarnings() {
		slog.InfoContext(ctx, "duplicate fields detected", "session_id", ss.id, "devices", len(w.Devices))
	}
}

// ontology fetches the ontology rules. A failed load yields nil, which the
// ontology stage reports as a pending placeholder check.
func (s *Service) ontology(ctx context.Context) *Ontology {
	if s.ref == nil {
		return nil
	}
	ont, err := s.ref.Ontology(ctx)
	if err != nil {
		slog.WarnContext(ctx, "ontology unavailable", "error", err)
		return nil
	}
	return ont
}

// Statuses returns the live check statuses of the session's current run.
func (s *Service) Statuses(id string) ([]CheckStatus, error) {
	ss, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	ss.mu.Lock()
	runner := ss.runner
	ss.mu.Unlock()
	return runner.Statuses(), nil
}

// Warnings returns the duplicate-field report. It is only available once
// the last applicable stage has passed.
func (s *Service) Warnings(id string) (*WarningReport, error) {
	ss, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if !ss.complete || ss.warnings == nil {
		return nil, fmt.Errorf("warnings: %w: validation not complete", ErrStageLocked)
	}
	w := *ss.warnings
	return &w, nil
}

// Extract is a downloadable table.
type Extract struct {
	Filename string
	Table    *table.Table
}

// OffendingRows returns every record implicated by the failed check of a
// stage, uncapped.
func (s *Service) OffendingRows(id string, stage Stage) (*Extract, error) {
	return s.failureExtract(id, stage, func(t *table.Table, rep *StageReport) *Extract {
		return &Extract{
			Filename: OffendingFilename(rep.FailedCheck.Label),
			Table:    OffendingTable(t, rep.Findings),
		}
	})
}

// CleanedRows returns the working table without the offending records of a
// stage's failed check.
func (s *Service) CleanedRows(id string, stage Stage) (*Extract, error) {
	return s.failureExtract(id, stage, func(t *table.Table, rep *StageReport) *Extract {
		return &Extract{
			Filename: CleanedFilename(rep.FailedCheck.Label),
			Table:    CleanedTable(t, rep.Findings),
		}
	})
}

func (s *Service) failureExtract(id string, stage Stage, build func(*table.Table, *StageReport) *Extract) (*Extract, error) {
	ss, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	rep := ss.reports[stage]
	if rep == nil || rep.Passed || rep.FailedCheck == nil {
		return nil, fmt.Errorf("stage %s: %w: no failed check", stage, ErrNoData)
	}
	return build(ss.working, rep), nil
}
