package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/loadsheet/internal/metrics"
)

// MappingUpdate replaces a session's column mapping.
type MappingUpdate struct {
	Mapping    Mapping     `json:"mapping"`
	SuffixUsed bool        `json:"suffixUsed"`
	Site       *SiteFilter `json:"site,omitempty"`
}

// SetMapping applies a user mapping. Roles absent from the update keep their
// current column; a role set to "" becomes unmapped. Every named column must
// exist in the upload. Changing the mapping discards all later results.
func (s *Service) SetMapping(ctx context.Context, id string, upd MappingUpdate) (Mapping, error) {
	ss, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()

	for role, col := range upd.Mapping {
		if col != "" && !ss.source.Has(col) {
			return nil, fmt.Errorf("%w %q for role %s", ErrUnknownColumn, col, role)
		}
	}
	if upd.Site != nil && upd.Site.Column != "" && !ss.source.Has(upd.Site.Column) {
		return nil, fmt.Errorf("%w %q for site filter", ErrUnknownColumn, upd.Site.Column)
	}

	ss.mapping = ss.mapping.Merge(upd.Mapping)
	ss.suffixUsed = upd.SuffixUsed
	ss.site = upd.Site
	for _, t := range DistinctTypes(ss.source, ss.mapping) {
		if _, ok := ss.kinds[t]; !ok {
			ss.kinds[t] = InferKind(t)
		}
	}
	ss.working = nil
	ss.normalize = nil
	ss.resetValidation()

	slog.InfoContext(ctx, "mapping updated",
		"session_id", id, "unmapped", ss.mapping.Unmapped(), "suffix_used", ss.suffixUsed)
	return ss.mapping.Clone(), nil
}

// SetKinds assigns point kinds to raw point types. Kinds must be one of
// KindOptions.
func (s *Service) SetKinds(ctx context.Context, id string, kinds KindAssignments) (KindAssignments, error) {
	for t, k := range kinds {
		if !contains(KindOptions, k) {
			return nil, fmt.Errorf("%w: kind %q for type %q", ErrInvalidOption, k, t)
		}
	}
	ss, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()

	for t, k := range kinds {
		ss.kinds[t] = k
	}
	ss.working = nil
	ss.normalize = nil
	ss.resetValidation()
	slog.DebugContext(ctx, "point kinds updated", "session_id", id, "types", len(kinds))
	return cloneKinds(ss.kinds), nil
}

// Normalize builds the working table from the upload and unlocks the first
// validation stage.
func (s *Service) Normalize(ctx context.Context, id string) (*NormalizeReport, error) {
	ss, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	if err := s.acquire(ctx, "normalize"); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ss.mu.Lock()
	defer ss.mu.Unlock()

	src := ss.source
	if ss.site != nil {
		src = FilterSite(src, ss.site.Column, ss.site.Value)
	}
	working, report := Normalize(ctx, src, ss.mapping, ss.kinds)
	ss.working = working
	ss.normalize = &report
	ss.resetValidation()

	metrics.RecordRow(metricsJob, "normalized", report.OutputRows)
	metrics.RecordRow(metricsJob, "dropped", report.DroppedRows)
	slog.InfoContext(ctx, "sheet normalized",
		"session_id", id,
		"input_rows", report.InputRows,
		"output_rows", report.OutputRows,
		"skipped_steps", len(report.Skipped),
	)
	return &report, nil
}

// SetUnitMappings overrides unit resolutions. Only units found in the facets
// may be set, and the units phase must have begun.
func (s *Service) SetUnitMappings(ctx context.Context, id string, overrides map[string]UnitMapping) (*UnitsView, error) {
	ss, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.phase < PhaseUnits {
		return nil, fmt.Errorf("%w: units phase has not begun", ErrPhaseOrder)
	}
	for u := range overrides {
		if _, ok := ss.units.Get(u); !ok {
			return nil, fmt.Errorf("%w: unit %q is not in the facets", ErrInvalidOption, u)
		}
	}
	for u, sel := range overrides {
		if sel.Category == Placeholder {
			sel = sel.WithCategory(Placeholder)
		}
		ss.units.Override(u, sel)
	}
	ss.expanded = nil
	ss.resetMeta()
	slog.DebugContext(ctx, "unit mappings overridden", "session_id", id, "count", len(overrides))
	return s.unitsView(ss), nil
}

// SetEnumMappings overrides enum resolutions keyed by TripleKey. The enums
// phase must have begun.
func (s *Service) SetEnumMappings(ctx context.Context, id string, overrides map[string]EnumKeys) (*EnumsView, error) {
	ss, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.phase < PhaseEnums {
		return nil, fmt.Errorf("%w: enums phase has not begun", ErrPhaseOrder)
	}
	for k := range overrides {
		if _, ok := ss.enums.Get(k); !ok {
			return nil, fmt.Errorf("%w: enum triple %q is not in the facets", ErrInvalidOption, k)
		}
	}
	for k, keys := range overrides {
		ss.enums.Override(k, keys)
	}
	ss.expanded = nil
	ss.resetMeta()
	slog.DebugContext(ctx, "enum mappings overridden", "session_id", id, "count", len(overrides))
	return enumsView(ss), nil
}

// SetFacetNameMappings overrides facet-name resolutions. Values must be one
// of FacetNameOptions.
func (s *Service) SetFacetNameMappings(ctx context.Context, id string, overrides map[string]string) (*FacetNamesView, error) {
	for name, opt := range overrides {
		if !IsFacetNameOption(opt) {
			return nil, fmt.Errorf("%w: %q for facet %q", ErrInvalidOption, opt, name)
		}
	}
	ss, err := s.lookup(id)
	if err != nil {
		return nil, err
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.phase < PhaseFacetNames {
		return nil, fmt.Errorf("%w: facet-names phase has not begun", ErrPhaseOrder)
	}
	for name := range overrides {
		if _, ok := ss.facetNames.Get(name); !ok {
			return nil, fmt.Errorf("%w: facet %q is not in the facets", ErrInvalidOption, name)
		}
	}
	for name, opt := range overrides {
		ss.facetNames.Override(name, opt)
	}
	ss.expanded = nil
	ss.resetMeta()
	slog.DebugContext(ctx, "facet-name mappings overridden", "session_id", id, "count", len(overrides))
	return facetNamesView(ss), nil
}
