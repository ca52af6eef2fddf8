package core

// checks.go runs the validation stages.
//
// A stage is an ordered list of checks. The runner executes them one at a
// time, halts the stage on the first failure and leaves the remaining checks
// pending. Starting a new run supersedes any run still in flight: the stale
// run stops at its next check boundary and its results are discarded.

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/JonMunkholm/loadsheet/internal/metrics"
	"github.com/JonMunkholm/loadsheet/internal/table"
)

// ErrRunSuperseded is returned by a stage run that was replaced by a newer one.
var ErrRunSuperseded = errors.New("validation run superseded")

// Stage identifies a validation stage. Stage 1 (point-kind assignment)
// happens during normalization and is never re-validated.
type Stage int

const (
	StageUniqueness Stage = 2
	StageDevice     Stage = 3
	StageOntology   Stage = 4
	StageSuffix     Stage = 5
)

// FirstStage is the first stage the runner executes.
const FirstStage = StageUniqueness

func (s Stage) String() string {
	return "s" + strconv.Itoa(int(s))
}

// ParseStage parses a stage number such as "3".
func ParseStage(v string) (Stage, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(v), "s"))
	if err != nil || n < int(StageUniqueness) || n > int(StageSuffix) {
		return 0, fmt.Errorf("invalid stage %q: must be %d-%d", v, StageUniqueness, StageSuffix)
	}
	return Stage(n), nil
}

// LastStage is the final applicable stage for a sheet.
func LastStage(suffixUsed bool) Stage {
	if suffixUsed {
		return StageSuffix
	}
	return StageOntology
}

// NextStage returns the stage after s. The suffix stage is skipped when
// suffixes are not in use. ok is false once s is the last applicable stage.
func NextStage(s Stage, suffixUsed bool) (next Stage, ok bool) {
	if s >= LastStage(suffixUsed) {
		return 0, false
	}
	return s + 1, true
}

// CheckState is the lifecycle position of one check.
type CheckState string

const (
	CheckPending CheckState = "pending"
	CheckRunning CheckState = "running"
	CheckPassed  CheckState = "passed"
	CheckFailed  CheckState = "failed"
)

// CheckStatus is the observable state of a check. Findings are only carried
// when the check failed.
type CheckStatus struct {
	Key      string     `json:"key"`
	Label    string     `json:"label"`
	State    CheckState `json:"status"`
	Reason   string     `json:"reason,omitempty"`
	Findings []Finding  `json:"detail,omitempty"`
}

// Finding is one violation reported by a check. Rows holds the 1-based row
// numbers involved; the remaining fields describe the violation and are set
// according to the check that produced it.
type Finding struct {
	Rows []int `json:"rows"`

	Value         string        `json:"value,omitempty"`
	Device        string        `json:"device,omitempty"`
	Expected      string        `json:"expected,omitempty"`
	Found         string        `json:"found,omitempty"`
	CanonicalType string        `json:"canonicalType,omitempty"`
	Field         string        `json:"field,omitempty"`
	Kind          string        `json:"kind,omitempty"`
	Allowed       []string      `json:"allowed,omitempty"`
	Suffix        string        `json:"suffix,omitempty"`
	Combo         string        `json:"combo,omitempty"`
	Group         string        `json:"group,omitempty"`
	Entries       []SuffixEntry `json:"entries,omitempty"`
	Duplicates    []string      `json:"duplicateSuffixes,omitempty"`

	// Columns lists the source columns implicated by the violation.
	Columns []string `json:"-"`
}

// SuffixEntry pairs a row with its suffix value.
type SuffixEntry struct {
	Row    int    `json:"row"`
	Suffix string `json:"suffix"`
}

// CheckResult is the outcome of one check.
type CheckResult struct {
	OK       bool
	Reason   string
	Findings []Finding
}

func pass() CheckResult { return CheckResult{OK: true} }

func fail(findings []Finding) CheckResult {
	if len(findings) == 0 {
		return pass()
	}
	return CheckResult{Findings: findings}
}

// CheckInput is what every check reads.
type CheckInput struct {
	Table    *table.Table
	Mapping  Mapping
	Ontology *Ontology
}

// Check is one named validation.
type Check struct {
	Key   string
	Label string
	Run   func(CheckInput) CheckResult
}

// CheckKey builds the stable key of check i in stage s, e.g. "s2-c1".
func CheckKey(s Stage, i int) string {
	return fmt.Sprintf("s%d-c%d", int(s), i)
}

// StageReport is the outcome of a stage run.
type StageReport struct {
	Stage   Stage         `json:"stage"`
	Passed  bool          `json:"passed"`
	Skipped bool          `json:"skipped,omitempty"`
	Checks  []CheckStatus `json:"checks"`
	Failure *ErrorReport  `json:"error,omitempty"`

	// FailedCheck and Findings hold the complete failure set of the failing
	// check; Failure carries only a capped preview of it.
	FailedCheck *Check    `json:"-"`
	Findings    []Finding `json:"-"`
}

// Runner executes validation stages for one session. Only one run is live at
// a time; a new Run supersedes the previous one.
type Runner struct {
	// Pace is an optional pause before each check so progressive clients can
	// render each transition. Zero runs checks back to back.
	Pace time.Duration
	// DisplayLimit caps the offending rows in ErrorReport previews.
	DisplayLimit int

	mu       sync.Mutex
	gen      uint64
	order    []string
	statuses map[string]CheckStatus
}

// NewRunner creates a runner with the default display cap.
func NewRunner() *Runner {
	return &Runner{
		DisplayLimit: DefaultDisplayLimit,
		statuses:     make(map[string]CheckStatus),
	}
}

// Statuses returns a snapshot of the current stage's check statuses in
// declaration order.
func (r *Runner) Statuses() []CheckStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CheckStatus, 0, len(r.order))
	for _, k := range r.order {
		out = append(out, r.statuses[k])
	}
	return out
}

// Run resets every check of the stage to pending and executes them in order,
// stopping at the first failure.
func (r *Runner) Run(ctx context.Context, stage Stage, checks []Check, in CheckInput) (*StageReport, error) {
	start := time.Now()
	gen := r.begin(checks)

	report := &StageReport{Stage: stage}
	for _, c := range checks {
		if err := r.pause(ctx); err != nil {
			return nil, err
		}
		if !r.set(gen, CheckStatus{Key: c.Key, Label: c.Label, State: CheckRunning}) {
			return nil, ErrRunSuperseded
		}

		res := c.Run(in)

		if res.OK {
			if !r.set(gen, CheckStatus{Key: c.Key, Label: c.Label, State: CheckPassed}) {
				return nil, ErrRunSuperseded
			}
			continue
		}

		failed := CheckStatus{Key: c.Key, Label: c.Label, State: CheckFailed, Reason: res.Reason, Findings: res.Findings}
		if !r.set(gen, failed) {
			return nil, ErrRunSuperseded
		}
		check := c
		report.FailedCheck = &check
		report.Findings = res.Findings
		rep := NormalizeFailure(in.Table, c.Label, res, r.limit())
		report.Failure = &rep
		break
	}

	report.Passed = report.Failure == nil
	report.Checks = r.Statuses()
	recordStage(stage, report.Passed, time.Since(start))
	return report, nil
}

func (r *Runner) begin(checks []Check) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.order = r.order[:0]
	r.statuses = make(map[string]CheckStatus, len(checks))
	for _, c := range checks {
		r.order = append(r.order, c.Key)
		r.statuses[c.Key] = CheckStatus{Key: c.Key, Label: c.Label, State: CheckPending}
	}
	return r.gen
}

// set records st if gen is still the live run.
func (r *Runner) set(gen uint64, st CheckStatus) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.gen {
		return false
	}
	r.statuses[st.Key] = st
	return true
}

// Supersede invalidates any in-flight run without starting a new one.
func (r *Runner) Supersede() {
	r.mu.Lock()
	r.gen++
	r.mu.Unlock()
}

func (r *Runner) pause(ctx context.Context) error {
	if r.Pace <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(r.Pace)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *Runner) limit() int {
	if r.DisplayLimit <= 0 {
		return DefaultDisplayLimit
	}
	return r.DisplayLimit
}

// SkippedReport is the report of a stage that does not apply to the sheet.
func SkippedReport(stage Stage) *StageReport {
	return &StageReport{Stage: stage, Passed: true, Skipped: true}
}

func recordStage(stage Stage, passed bool, d time.Duration) {
	var err error
	if !passed {
		err = errStageFailed
	}
	metrics.RecordStep(metricsJob, stage.String(), err, d)
}

var errStageFailed = errors.New("stage failed")

const metricsJob = "loadsheet"
