package core

// finalize.go turns the facet join output into the expanded table.
//
// The mapping phases run in a fixed order: units, then enums, then facet
// names. ExtractFacetInputs collects the distinct tokens each phase resolves
// and Finalize applies the resolved values row by row.

import (
	"sort"
	"strings"

	"github.com/JonMunkholm/loadsheet/internal/table"
)

// Columns written by Finalize.
const (
	ColumnUnitKode     = "unitKode"
	ColumnTrueKeyKode  = "trueKeyKode"
	ColumnFalseKeyKode = "falseKeyKode"
)

// Canonical facet outputs a facet name can be mapped to. Placeholder leaves
// the facet out of the canonical columns.
const (
	FacetMinVal       = "minVal"
	FacetMaxVal       = "maxVal"
	FacetPrecision    = "precision"
	FacetCovTolerance = "covTolerance"
)

// FacetNameOptions are the choices for a facet-name mapping.
var FacetNameOptions = []string{Placeholder, FacetMinVal, FacetMaxVal, FacetPrecision, FacetCovTolerance}

// IsFacetNameOption reports whether v is one of FacetNameOptions.
func IsFacetNameOption(v string) bool {
	for _, o := range FacetNameOptions {
		if o == v {
			return true
		}
	}
	return false
}

// reservedFacets never appear among the other facet names.
var reservedFacets = map[string]bool{"units": true, "truetext": true, "falsetext": true}

// MappingPhase is the progress of the facet mapping phases.
type MappingPhase int

const (
	PhaseNone MappingPhase = iota
	PhaseUnits
	PhaseEnums
	PhaseFacetNames
)

func (p MappingPhase) String() string {
	switch p {
	case PhaseUnits:
		return "units"
	case PhaseEnums:
		return "enums"
	case PhaseFacetNames:
		return "facet-names"
	default:
		return "none"
	}
}

// FacetInputs are the distinct tokens found in the joined facets.
type FacetInputs struct {
	Units      []string `json:"units"`
	Triples    []Triple `json:"triples"`
	FacetNames []string `json:"facetNames"`
}

// ExtractFacetInputs scans the facets column of t. Units are the distinct
// non-empty unit facets. Triples need a field other than NoField and both
// texts. Facet names exclude the reserved unit and text facets. Every list
// is sorted; triples by their key.
func ExtractFacetInputs(t *table.Table, m Mapping) FacetInputs {
	fieldCol := m.Column(RoleField)
	if fieldCol == "" {
		fieldCol = "field"
	}
	facetsCol := facetsColumn(m)

	units := make(map[string]bool)
	triples := make(map[string]Triple)
	names := make(map[string]bool)
	for i := 0; i < t.Len(); i++ {
		f := ParseFacets(t.Value(i, facetsCol))
		if u := f.Get(FacetUnits); u != "" {
			units[u] = true
		}
		tr := Triple{Field: t.Value(i, fieldCol), TrueText: f.Get(FacetTrueText), FalseText: f.Get(FacetFalseText)}
		if tr.Field != "" && tr.Field != NoField && tr.TrueText != "" && tr.FalseText != "" {
			triples[tr.Key()] = tr
		}
		for _, n := range f.Names() {
			if !reservedFacets[strings.ToLower(strings.TrimSpace(n))] {
				names[n] = true
			}
		}
	}

	in := FacetInputs{
		Units:      sortedKeys(units),
		FacetNames: sortedKeys(names),
	}
	for _, k := range sortedKeys(triples) {
		in.Triples = append(in.Triples, triples[k])
	}
	return in
}

func facetsColumn(m Mapping) string {
	if c := m.Column(RoleFacets); c != "" {
		return c
	}
	return ColumnFacets
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// FacetMappings are the effective resolver outputs applied by Finalize.
type FacetMappings struct {
	Units      map[string]UnitMapping
	Enums      map[string]EnumKeys
	FacetNames map[string]string
}

// Expanded is the finalized table with its facet metadata.
type Expanded struct {
	Table *table.Table
	// FacetColumns lists the columns Finalize added or rewrote.
	FacetColumns []string
	// Decorations maps a facet name to the canonical output it feeds.
	Decorations map[string]string
}

// Finalize materializes each row's facets as columns and writes unitKode,
// trueKeyKode and falseKeyKode from the resolved mappings. A facet name
// mapped to a canonical output also fills that column when the row has no
// value there yet. The input table is not modified.
func Finalize(t *table.Table, m Mapping, mp FacetMappings) Expanded {
	fieldCol := m.Column(RoleField)
	if fieldCol == "" {
		fieldCol = "field"
	}
	facetsCol := facetsColumn(m)

	decorations := make(map[string]string)
	for name, opt := range mp.FacetNames {
		if opt != "" && opt != Placeholder {
			decorations[name] = opt
		}
	}

	added := newColumnSet(ColumnUnitKode, ColumnTrueKeyKode, ColumnFalseKeyKode, ColumnWritable)
	records := make([]table.Record, t.Len())
	for i := range records {
		rec := t.Record(i)
		f := ParseFacets(t.Value(i, facetsCol))
		for _, name := range f.Names() {
			rec[name] = f.Get(name)
			added.add(name)
		}

		rec[ColumnUnitKode] = ""
		if u := f.Get(FacetUnits); u != "" {
			if sel, ok := mp.Units[u]; ok {
				rec[ColumnUnitKode] = sel.Kode()
			}
		}

		keys := mp.Enums[TripleKey(rec[fieldCol], f.Get(FacetTrueText), f.Get(FacetFalseText))]
		rec[ColumnTrueKeyKode] = keys.TrueKey
		rec[ColumnFalseKeyKode] = keys.FalseKey

		for _, name := range f.Names() {
			opt, ok := decorations[name]
			if !ok || strings.TrimSpace(rec[opt]) != "" {
				continue
			}
			rec[opt] = f.Get(name)
			added.add(opt)
		}
		records[i] = rec
	}

	cols := newColumnSet(t.Columns()...)
	for _, c := range added.order {
		cols.add(c)
	}
	return Expanded{
		Table:        table.FromRecords(cols.order, records),
		FacetColumns: added.order,
		Decorations:  decorations,
	}
}

type columnSet struct {
	order []string
	seen  map[string]bool
}

func newColumnSet(cols ...string) *columnSet {
	s := &columnSet{seen: make(map[string]bool)}
	for _, c := range cols {
		s.add(c)
	}
	return s
}

func (s *columnSet) add(c string) {
	if s.seen[c] {
		return
	}
	s.seen[c] = true
	s.order = append(s.order, c)
}
