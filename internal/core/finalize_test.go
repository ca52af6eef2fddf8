package core

import (
	"reflect"
	"testing"

	"github.com/JonMunkholm/loadsheet/internal/table"
)

func finalizeInput() *table.Table {
	return table.New([]string{"slot", "field", ColumnFacets, FacetMinVal}, [][]string{
		{"/a", "temp", "units=°F;lo=0;hi=100", ""},
		{"/b", "fan", "trueText=On;falseText=Off;hi=1", "5"},
		{"/c", NoField, "trueText=Yes;falseText=No", ""},
	})
}

func TestExtractFacetInputs(t *testing.T) {
	in := ExtractFacetInputs(finalizeInput(), Mapping{RoleField: "field"})

	if !reflect.DeepEqual(in.Units, []string{"°F"}) {
		t.Errorf("Units = %v", in.Units)
	}
	// the no-field row has texts but never forms a triple
	wantTriples := []Triple{{Field: "fan", TrueText: "On", FalseText: "Off"}}
	if !reflect.DeepEqual(in.Triples, wantTriples) {
		t.Errorf("Triples = %+v", in.Triples)
	}
	if !reflect.DeepEqual(in.FacetNames, []string{"hi", "lo"}) {
		t.Errorf("FacetNames = %v, want reserved facets excluded", in.FacetNames)
	}
}

func TestFinalize(t *testing.T) {
	src := finalizeInput()
	exp := Finalize(src, Mapping{RoleField: "field"}, FacetMappings{
		Units:      map[string]UnitMapping{"°F": {Category: "Temperature", UnitID: "fahrenheit"}},
		Enums:      map[string]EnumKeys{TripleKey("fan", "On", "Off"): {TrueKey: "on", FalseKey: "off"}},
		FacetNames: map[string]string{"lo": FacetMinVal, "hi": FacetMaxVal, "other": Placeholder},
	})
	out := exp.Table

	tests := []struct {
		row  int
		col  string
		want string
	}{
		{0, ColumnUnitKode, "fahrenheit"},
		{0, FacetMinVal, "0"},
		{0, FacetMaxVal, "100"},
		{0, "lo", "0"},
		{1, ColumnTrueKeyKode, "on"},
		{1, ColumnFalseKeyKode, "off"},
		{1, FacetMinVal, "5"},
		{1, FacetMaxVal, "1"},
		{1, ColumnUnitKode, ""},
		{2, ColumnTrueKeyKode, ""},
		{2, FacetTrueText, "Yes"},
	}
	for _, tt := range tests {
		if got := out.Value(tt.row, tt.col); got != tt.want {
			t.Errorf("row %d %s = %q, want %q", tt.row, tt.col, got, tt.want)
		}
	}

	if _, ok := exp.Decorations["other"]; ok {
		t.Error("placeholder facet-name mapping should not decorate")
	}
	if got := out.Columns()[:4]; !reflect.DeepEqual(got, src.Columns()) {
		t.Errorf("leading columns = %v, want input columns first", got)
	}
	if src.Has(ColumnUnitKode) {
		t.Error("Finalize modified its input")
	}
}

func TestMappingPhaseString(t *testing.T) {
	tests := map[MappingPhase]string{
		PhaseNone:       "none",
		PhaseUnits:      "units",
		PhaseEnums:      "enums",
		PhaseFacetNames: "facet-names",
	}
	for p, want := range tests {
		if got := p.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", p, got, want)
		}
	}
	if IsFacetNameOption("units") || !IsFacetNameOption(FacetCovTolerance) {
		t.Error("IsFacetNameOption mismatch")
	}
}
