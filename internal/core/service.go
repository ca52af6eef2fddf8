package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/loadsheet/internal/table"
)

// Sentinel errors returned by Service operations.
var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrStageLocked        = errors.New("stage locked: a previous stage has not passed")
	ErrReferenceNotLoaded = errors.New("reference data not loaded")
	ErrNoData             = errors.New("no data to process")
	ErrPhaseOrder         = errors.New("mapping phase out of order")
	ErrUnknownColumn      = errors.New("unknown column")
	ErrInvalidOption      = errors.New("invalid option")
)

// DefaultSessionTTL is how long an idle session is kept.
const DefaultSessionTTL = 2 * time.Hour

// ReferenceData supplies the read-only reference tables.
type ReferenceData interface {
	Ontology(ctx context.Context) (*Ontology, error)
	Units(ctx context.Context) (UnitCatalog, error)
	Enums(ctx context.Context) (EnumCatalog, error)
}

// ServiceOptions configures a Service. Zero values select defaults.
type ServiceOptions struct {
	Reference     ReferenceData
	Limiter       *RunLimiter
	DisplayLimit  int
	UnitThreshold int
	SessionTTL    time.Duration
	// Pace is the pause before each check of a stage run.
	Pace time.Duration
}

// Service owns the in-memory pipeline sessions.
type Service struct {
	ref           ReferenceData
	limiter       *RunLimiter
	displayLimit  int
	unitThreshold int
	ttl           time.Duration
	pace          time.Duration
	now           func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewService creates a Service.
func NewService(opts ServiceOptions) *Service {
	s := &Service{
		ref:           opts.Reference,
		limiter:       opts.Limiter,
		displayLimit:  opts.DisplayLimit,
		unitThreshold: opts.UnitThreshold,
		ttl:           opts.SessionTTL,
		pace:          opts.Pace,
		now:           time.Now,
		sessions:      make(map[string]*session),
	}
	if s.limiter == nil {
		s.limiter = NewRunLimiter(DefaultMaxConcurrentRuns, DefaultMaxWaitTime)
	}
	if s.displayLimit <= 0 {
		s.displayLimit = DefaultDisplayLimit
	}
	if s.unitThreshold <= 0 {
		s.unitThreshold = DefaultUnitThreshold
	}
	if s.ttl <= 0 {
		s.ttl = DefaultSessionTTL
	}
	return s
}

// Limiter returns the run limiter shared by all sessions.
func (s *Service) Limiter() *RunLimiter { return s.limiter }

// SiteFilter restricts the sheet to rows whose Column equals Value.
type SiteFilter struct {
	Column string `json:"column"`
	Value  string `json:"value"`
}

// session is the state of one sheet moving through the pipeline. Every
// field is guarded by mu.
type session struct {
	mu sync.Mutex

	id          string
	fileName    string
	fingerprint string
	encoding    string
	createdAt   time.Time
	touchedAt   time.Time

	source     *table.Table
	mapping    Mapping
	suffixUsed bool
	site       *SiteFilter
	kinds      KindAssignments

	working   *table.Table
	normalize *NormalizeReport

	runner   *Runner
	runSeq   uint64
	unlocked Stage
	reports  map[Stage]*StageReport
	complete bool
	warnings *WarningReport

	join        *JoinResult
	phase       MappingPhase
	inputs      FacetInputs
	unitCatalog UnitCatalog
	enumCatalog EnumCatalog
	units       *Resolutions[UnitMapping]
	enums       *Resolutions[EnumKeys]
	facetNames  *Resolutions[string]
	expanded    *Expanded

	meta     *DeviceMetaResult
	coverage *DeviceCoverage
}

// resetValidation clears every result derived from the working table and
// supersedes any stage run in flight. Callers hold mu.
func (ss *session) resetValidation() {
	ss.runSeq++
	ss.runner.Supersede()
	ss.unlocked = FirstStage
	ss.reports = make(map[Stage]*StageReport)
	ss.complete = false
	ss.warnings = nil
	ss.resetEnrichment()
}

func (ss *session) resetEnrichment() {
	ss.join = nil
	ss.phase = PhaseNone
	ss.inputs = FacetInputs{}
	ss.unitCatalog = nil
	ss.enumCatalog = nil
	ss.units = NewResolutions[UnitMapping]()
	ss.enums = NewResolutions[EnumKeys]()
	ss.facetNames = NewResolutions[string]()
	ss.expanded = nil
	ss.resetMeta()
}

func (ss *session) resetMeta() {
	ss.meta = nil
	ss.coverage = nil
}

// lookup returns the session with id and marks it used.
func (s *Service) lookup(id string) (*session, error) {
	s.mu.RLock()
	ss, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	ss.mu.Lock()
	ss.touchedAt = s.now()
	ss.mu.Unlock()
	return ss, nil
}

// Delete removes a session.
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	ss.mu.Lock()
	ss.runner.Supersede()
	ss.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// Count returns the number of live sessions.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Service) newSession(fileName string, res *table.ParseResult) *session {
	now := s.now()
	runner := NewRunner()
	runner.Pace = s.pace
	runner.DisplayLimit = s.displayLimit

	ss := &session{
		id:          uuid.New().String(),
		fileName:    fileName,
		fingerprint: res.Fingerprint,
		encoding:    res.Encoding,
		createdAt:   now,
		touchedAt:   now,
		source:      res.Table,
		runner:      runner,
	}
	ss.mapping = SuggestMapping(res.Table.Columns())
	ss.kinds = DefaultKinds(DistinctTypes(res.Table, ss.mapping))
	ss.resetValidation()

	s.mu.Lock()
	s.sessions[ss.id] = ss
	s.mu.Unlock()
	return ss
}

// Sweep removes sessions idle for longer than the TTL and returns how many
// were removed.
func (s *Service) Sweep() int {
	cutoff := s.now().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, ss := range s.sessions {
		ss.mu.Lock()
		idle := ss.touchedAt.Before(cutoff)
		if idle {
			ss.runner.Supersede()
		}
		ss.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// acquire takes a run slot, logging rejections.
func (s *Service) acquire(ctx context.Context, op string) error {
	if err := s.limiter.Acquire(ctx); err != nil {
		slog.WarnContext(ctx, "run rejected", "op", op, "error", err, "active", s.limiter.ActiveCount())
		return err
	}
	return nil
}
