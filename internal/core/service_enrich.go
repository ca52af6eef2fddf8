package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/loadsheet/internal/metrics"
	"github.com/JonMunkholm/loadsheet/internal/table"
)

// FacetRequest selects the facets source for a session.
type FacetRequest struct {
	Source       FacetSource
	FacetsColumn string
	OutColumn    string
	// Upload and UploadSlotColumn are required for SourceUpload.
	Upload           *table.Table
	UploadSlotColumn string
}

// FacetJoinView summarizes a facet join.
type FacetJoinView struct {
	Rows    int          `json:"rows"`
	Matched int          `json:"matched"`
	Missing int          `json:"missing"`
	Inputs  FacetInputs  `json:"inputs"`
	Phase   string       `json:"phase"`
	Preview TablePreview `json:"missingPreview"`
}

// JoinFacets attaches facets to the validated working table and opens the
// units mapping phase. Every resolver is seeded with its suggestions here,
// once; later overrides are never replaced.
func (s *Service) JoinFacets(ctx context.Context, id string, req FacetRequest) (*FacetJoinView, error) {
	ss, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if err := s.acquire(ctx, "facets"); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ss.mu.Lock()
	defer ss.mu.Unlock()
	if !ss.complete {
		return nil, fmt.Errorf("join facets: %w: validation not complete", ErrStageLocked)
	}

	opts := FacetJoinOptions{Source: req.Source, FacetsColumn: req.FacetsColumn, OutColumn: req.OutColumn}
	switch req.Source {
	case SourceInitial, "":
		if err := requireColumns(ss.working, req.FacetsColumn); err != nil {
			return nil, fmt.Errorf("join facets: %w", err)
		}
		if req.OutColumn != "" {
			if err := requireColumns(ss.working, req.OutColumn); err != nil {
				return nil, fmt.Errorf("join facets: %w", err)
			}
		}
	case SourceUpload:
		if req.Upload == nil {
			return nil, fmt.Errorf("join facets: %w: no file provided", ErrNoData)
		}
		cols := []string{req.UploadSlotColumn, req.FacetsColumn}
		if req.OutColumn != "" {
			cols = append(cols, req.OutColumn)
		}
		if err := requireColumns(req.Upload, cols...); err != nil {
			return nil, fmt.Errorf("join facets: %w", err)
		}
		opts.Right = req.Upload
		opts.RightSlotColumn = req.UploadSlotColumn
	default:
		return nil, fmt.Errorf("join facets: unknown mode %q", req.Source)
	}

	ss.resetEnrichment()
	res := JoinFacets(ctx, ss.working, ss.mapping, opts)
	ss.join = &res

	em := ss.enrichMapping()
	ss.inputs = ExtractFacetInputs(res.Table, em)
	s.seedResolvers(ctx, ss)
	ss.phase = PhaseUnits

	metrics.RecordRow(metricsJob, "facets_matched", len(res.Matched))
	metrics.RecordRow(metricsJob, "facets_missing", len(res.Missing))
	slog.InfoContext(ctx, "facets joined",
		"session_id", id,
		"source", req.Source,
		"matched", len(res.Matched),
		"missing", len(res.Missing),
		"units", len(ss.inputs.Units),
		"triples", len(ss.inputs.Triples),
		"facet_names", len(ss.inputs.FacetNames),
	)
	return &FacetJoinView{
		Rows:    res.Table.Len(),
		Matched: len(res.Matched),
		Missing: len(res.Missing),
		Inputs:  ss.inputs,
		Phase:   ss.phase.String(),
		Preview: Preview(res.MissingTable()),
	}, nil
}

// enrichMapping is the mapping used after the facet join, where the facets
// and OUT values live in the derived columns. Callers hold mu.
func (ss *session) enrichMapping() Mapping {
	return ss.mapping.With(RoleFacets, ColumnFacets).With(RoleOut, ColumnOut)
}

func (s *Service) seedResolvers(ctx context.Context, ss *session) {
	var units UnitCatalog
	var enums EnumCatalog
	if s.ref != nil {
		var err error
		if units, err = s.ref.Units(ctx); err != nil {
			slog.WarnContext(ctx, "units reference unavailable, unit suggestions disabled", "error", err)
		}
		if enums, err = s.ref.Enums(ctx); err != nil {
			slog.WarnContext(ctx, "enums reference unavailable, enum suggestions disabled", "error", err)
		}
	}
	ss.unitCatalog = units
	ss.enumCatalog = enums

	SeedUnits(ss.units, ss.inputs.Units, units, s.unitThreshold)
	SeedEnums(ss.enums, ss.inputs.Triples, enums)
	for _, name := range ss.inputs.FacetNames {
		ss.facetNames.Seed(name, Placeholder, 0)
	}
}

// AdvancePhase opens the next mapping phase. Phases open strictly in order
// and earlier phases stay editable. Re-opening a phase already open is a
// no-op.
func (s *Service) AdvancePhase(ctx context.Context, id string, phase MappingPhase) (MappingPhase, error) {
	ss, err := s.lookup(id)
	if err != nil {
		return PhaseNone, err
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.phase == PhaseNone {
		return PhaseNone, fmt.Errorf("%w: facets have not been joined", ErrPhaseOrder)
	}
	switch {
	case phase <= ss.phase:
	case phase == ss.phase+1:
		ss.phase = phase
		slog.DebugContext(ctx, "mapping phase opened", "session_id", id, "phase", phase.String())
	default:
		return ss.phase, fmt.Errorf("%w: cannot open %s before %s", ErrPhaseOrder, phase, ss.phase+1)
	}
	return ss.phase, nil
}

// ParsePhase parses a phase name as returned by MappingPhase.String.
func ParsePhase(v string) (MappingPhase, error) {
	for _, p := range []MappingPhase{PhaseUnits, PhaseEnums, PhaseFacetNames} {
		if p.String() == v {
			return p, nil
		}
	}
	return PhaseNone, fmt.Errorf("%w: phase %q", ErrInvalidOption, v)
}

// UnitRow is one input unit under review.
type UnitRow struct {
	Input      string      `json:"input"`
	Suggested  UnitMapping `json:"suggested"`
	Effective  UnitMapping `json:"effective"`
	Confidence int         `json:"confidence"`
	Overridden bool        `json:"overridden"`
	Kode       string      `json:"unitKode"`
}

// UnitsView is the units mapping phase.
type UnitsView struct {
	Units      []UnitRow   `json:"units"`
	Categories []string    `json:"categories"`
	Catalog    UnitCatalog `json:"catalog"`
}

// EnumRow is one enum triple under review.
type EnumRow struct {
	Key        string   `json:"key"`
	Triple     Triple   `json:"triple"`
	Suggested  EnumKeys `json:"suggested"`
	Effective  EnumKeys `json:"effective"`
	Overridden bool     `json:"overridden"`
}

// EnumsView is the enums mapping phase.
type EnumsView struct {
	Triples []EnumRow `json:"triples"`
	Options []string  `json:"options"`
}

// FacetNameRow is one facet name under review.
type FacetNameRow struct {
	Name       string `json:"name"`
	Effective  string `json:"effective"`
	Overridden bool   `json:"overridden"`
}

// FacetNamesView is the facet-name mapping phase.
type FacetNamesView struct {
	Names   []FacetNameRow `json:"names"`
	Options []string       `json:"options"`
}

// UnitMappings returns the units phase.
func (s *Service) UnitMappings(id string) (*UnitsView, error) {
	ss, err := s.phaseSession(id, PhaseUnits)
	if err != nil {
		return nil, err
	}
	defer ss.mu.Unlock()
	return s.unitsView(ss), nil
}

// EnumMappings returns the enums phase.
func (s *Service) EnumMappings(id string) (*EnumsView, error) {
	ss, err := s.phaseSession(id, PhaseEnums)
	if err != nil {
		return nil, err
	}
	defer ss.mu.Unlock()
	return enumsView(ss), nil
}

// FacetNameMappings returns the facet-names phase.
func (s *Service) FacetNameMappings(id string) (*FacetNamesView, error) {
	ss, err := s.phaseSession(id, PhaseFacetNames)
	if err != nil {
		return nil, err
	}
	defer ss.mu.Unlock()
	return facetNamesView(ss), nil
}

// phaseSession returns the session locked, provided phase is open.
func (s *Service) phaseSession(id string, phase MappingPhase) (*session, error) {
	ss, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	ss.mu.Lock()
	if ss.phase < phase {
		ss.mu.Unlock()
		return nil, fmt.Errorf("%w: %s phase has not begun", ErrPhaseOrder, phase)
	}
	return ss, nil
}

func (s *Service) unitsView(ss *session) *UnitsView {
	v := &UnitsView{
		Categories: append([]string{Placeholder}, ss.unitCatalog.Categories()...),
		Catalog:    ss.unitCatalog,
	}
	for _, u := range UnitReviewOrder(ss.units, ss.inputs.Units, s.unitThreshold) {
		e, _ := ss.units.Get(u)
		eff := e.Effective()
		v.Units = append(v.Units, UnitRow{
			Input:      u,
			Suggested:  e.Suggested,
			Effective:  eff,
			Confidence: e.Confidence,
			Overridden: e.Overridden(),
			Kode:       eff.Kode(),
		})
	}
	return v
}

func enumsView(ss *session) *EnumsView {
	v := &EnumsView{Options: ss.enumCatalog.Options()}
	for _, t := range ss.inputs.Triples {
		e, _ := ss.enums.Get(t.Key())
		v.Triples = append(v.Triples, EnumRow{
			Key:        t.Key(),
			Triple:     t,
			Suggested:  e.Suggested,
			Effective:  e.Effective(),
			Overridden: e.Overridden(),
		})
	}
	return v
}

func facetNamesView(ss *session) *FacetNamesView {
	v := &FacetNamesView{Options: append([]string(nil), FacetNameOptions...)}
	for _, n := range ss.inputs.FacetNames {
		e, _ := ss.facetNames.Get(n)
		v.Names = append(v.Names, FacetNameRow{Name: n, Effective: e.Effective(), Overridden: e.Overridden()})
	}
	return v
}

// FinalizeView summarizes the expanded table.
type FinalizeView struct {
	Columns      []string          `json:"columns"`
	FacetColumns []string          `json:"facetColumns"`
	Decorations  map[string]string `json:"decorations"`
	Preview      TablePreview      `json:"preview"`
}

// Finalize builds the expanded table from the joined facets and the
// effective mappings. All three phases must be open.
func (s *Service) Finalize(ctx context.Context, id string) (*FinalizeView, error) {
	ss, err := s.phaseSession(id, PhaseFacetNames)
	if err != nil {
		return nil, err
	}
	defer ss.mu.Unlock()

	exp := Finalize(ss.join.Table, ss.enrichMapping(), FacetMappings{
		Units:      ss.units.Values(),
		Enums:      ss.enums.Values(),
		FacetNames: ss.facetNames.Values(),
	})
	ss.expanded = &exp
	ss.resetMeta()

	slog.InfoContext(ctx, "expanded table built",
		"session_id", id, "rows", exp.Table.Len(), "facet_columns", len(exp.FacetColumns))
	return &FinalizeView{
		Columns:      exp.Table.Columns(),
		FacetColumns: exp.FacetColumns,
		Decorations:  exp.Decorations,
		Preview:      Preview(exp.Table),
	}, nil
}

// DeviceMetaRequest selects the device metadata source. Upload is required
// in upload mode; initial mode reads the uploaded sheet.
type DeviceMetaRequest struct {
	Mode                 DeviceMetaMode
	Upload               *table.Table
	DeviceColumn         string
	MechanicalTypeColumn string
	LocationColumn       string
	AreaColumn           string
}

// DeviceMetaView summarizes the device metadata join.
type DeviceMetaView struct {
	Rows     int            `json:"rows"`
	Coverage DeviceCoverage `json:"coverage"`
	Preview  TablePreview   `json:"preview"`
}

// JoinDeviceMeta attaches device metadata to the expanded table.
func (s *Service) JoinDeviceMeta(ctx context.Context, id string, req DeviceMetaRequest) (*DeviceMetaView, error) {
	ss, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if err := s.acquire(ctx, "device-meta"); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.expanded == nil {
		return nil, fmt.Errorf("device meta: %w: expanded table not built", ErrNoData)
	}

	opts := DeviceMetaOptions{
		Mode:                 req.Mode,
		DeviceColumn:         req.DeviceColumn,
		MechanicalTypeColumn: req.MechanicalTypeColumn,
		LocationColumn:       req.LocationColumn,
		AreaColumn:           req.AreaColumn,
	}
	switch req.Mode {
	case MetaFromInitial, "":
		opts.Source = ss.source
	case MetaFromUpload:
		if req.Upload == nil {
			return nil, fmt.Errorf("device meta: %w: no file provided", ErrNoData)
		}
		if err := requireColumns(req.Upload, req.DeviceColumn); err != nil {
			return nil, fmt.Errorf("device meta: %w", err)
		}
		opts.Source = req.Upload
	default:
		return nil, fmt.Errorf("device meta: unknown mode %q", req.Mode)
	}
	for _, c := range opts.sourceColumns() {
		if c == "" {
			continue
		}
		if err := requireColumns(opts.Source, c); err != nil {
			return nil, fmt.Errorf("device meta: %w", err)
		}
	}

	res := JoinDeviceMeta(ctx, ss.expanded.Table, ss.mapping, opts)
	cov := CoverDevices(res.Table, ss.mapping, res.DeviceNames)
	ss.meta = &res
	ss.coverage = &cov

	slog.InfoContext(ctx, "device metadata joined",
		"session_id", id, "mode", req.Mode, "matched_devices", len(cov.Matched), "missing_devices", len(cov.Missing))
	return &DeviceMetaView{Rows: res.Table.Len(), Coverage: cov, Preview: Preview(res.Table)}, nil
}

// Export builds the final export from the most enriched table available:
// the device metadata join, else the expanded table.
func (s *Service) Export(ctx context.Context, id string) (*Extract, error) {
	ss, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()

	var base *table.Table
	switch {
	case ss.meta != nil:
		base = ss.meta.Table
	case ss.expanded != nil:
		base = ss.expanded.Table
	default:
		return nil, fmt.Errorf("export: %w: expanded table not built", ErrNoData)
	}
	out := ExportTable(base, ss.mapping, ss.suffixUsed)
	metrics.RecordRow(metricsJob, "exported", out.Len())
	slog.InfoContext(ctx, "export built", "session_id", id, "rows", out.Len())
	return &Extract{Filename: ExportFilename, Table: out}, nil
}

func requireColumns(t *table.Table, cols ...string) error {
	for _, c := range cols {
		if !t.Has(c) {
			return fmt.Errorf("%w %q", ErrUnknownColumn, c)
		}
	}
	return nil
}
