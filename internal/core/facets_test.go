package core

import (
	"context"
	"reflect"
	"testing"

	"github.com/JonMunkholm/loadsheet/internal/table"
)

func TestParseFacets(t *testing.T) {
	f := ParseFacets("units=°F;trueText=b:On|falseText=b:Off; precision = 1 ;bad;=x;units=A:°C")

	want := []string{FacetUnits, FacetTrueText, FacetFalseText, "precision"}
	if got := f.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	tests := map[string]string{
		FacetUnits:     "°C",
		FacetTrueText:  "On",
		FacetFalseText: "Off",
		"precision":    "1",
	}
	for name, v := range tests {
		if got := f.Get(name); got != v {
			t.Errorf("Get(%q) = %q, want %q", name, got, v)
		}
	}
	if f.Has("bad") || f.Len() != 4 {
		t.Errorf("malformed tokens should be ignored, got %v", f.Names())
	}
}

func TestJoinFacets_Initial(t *testing.T) {
	left := table.New([]string{"slot", "facets", "out"}, [][]string{
		{"slot:/a$20b", "units=°F", "@ 72"},
		{"/c", " ", ""},
	})
	res := JoinFacets(context.Background(), left, Mapping{RoleSlotpath: "slot"}, FacetJoinOptions{
		Source:       SourceInitial,
		FacetsColumn: "facets",
		OutColumn:    "out",
	})

	if !reflect.DeepEqual(res.Matched, []int{0}) || !reflect.DeepEqual(res.Missing, []int{1}) {
		t.Errorf("Matched = %v, Missing = %v", res.Matched, res.Missing)
	}
	if got := res.Table.Value(0, ColumnSP); got != "/a b" {
		t.Errorf("SP = %q", got)
	}
	if got := res.Table.Column(ColumnWritable); !reflect.DeepEqual(got, []string{"true", "false"}) {
		t.Errorf("writable = %v", got)
	}
	if res.MatchedTable().Len()+res.MissingTable().Len() != left.Len() {
		t.Error("every anchor row should be kept")
	}
}

func TestJoinFacets_Upload(t *testing.T) {
	left := table.New([]string{"slotpath"}, [][]string{{"/a b"}, {"/z"}})
	right := table.New([]string{"path", "facets", "out"}, [][]string{
		{"slot:/a$20b", "units=°F", "@1"},
		{"/a b", "units=°C", ""},
	})

	// slotpath role unmapped: falls back to the "slotpath" column
	res := JoinFacets(context.Background(), left, Mapping{}, FacetJoinOptions{
		Source:          SourceUpload,
		FacetsColumn:    "facets",
		OutColumn:       "out",
		Right:           right,
		RightSlotColumn: "path",
	})

	if got := res.Table.Value(0, ColumnFacets); got != "units=°F" {
		t.Errorf("FACETS = %q, want first matching right row", got)
	}
	if got := res.Table.Value(0, ColumnOut); got != "@1" {
		t.Errorf("OUT = %q", got)
	}
	if !reflect.DeepEqual(res.Missing, []int{1}) {
		t.Errorf("Missing = %v", res.Missing)
	}
}

func TestJoinFacets_BadConfiguration(t *testing.T) {
	left := table.New([]string{"slot"}, [][]string{{"/a"}})
	tests := []struct {
		name string
		m    Mapping
		opts FacetJoinOptions
	}{
		{"no slot column", Mapping{RoleSlotpath: "nope"}, FacetJoinOptions{FacetsColumn: "slot"}},
		{"no facets column", Mapping{RoleSlotpath: "slot"}, FacetJoinOptions{FacetsColumn: "facets"}},
		{"upload without table", Mapping{RoleSlotpath: "slot"}, FacetJoinOptions{Source: SourceUpload, FacetsColumn: "f"}},
		{"unknown source", Mapping{RoleSlotpath: "slot"}, FacetJoinOptions{Source: "ftp", FacetsColumn: "slot"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := JoinFacets(context.Background(), left, tt.m, tt.opts)
			if res.Table.Len() != 0 || len(res.Matched) != 0 {
				t.Errorf("got %d rows, want empty result", res.Table.Len())
			}
		})
	}
}
