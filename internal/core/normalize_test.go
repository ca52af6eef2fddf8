package core

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"github.com/JonMunkholm/loadsheet/internal/table"
)

var normalizeMapping = Mapping{
	RoleSlotpath:      "slot",
	RoleType:          "type",
	RoleField:         "field",
	RoleDeviceName:    "device",
	RoleCanonicalType: "canonical",
}

func TestInferKind(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", KindNone},
		{"control:NumericWritable", KindNumber},
		{"control:BooleanPoint", KindBool},
		{"control:StringPoint", KindStr},
		{"control:EnumWritable", KindStr},
		{"baja:Folder kit", KindNone},
		{"something", KindNone},
	}
	for _, tt := range tests {
		if got := InferKind(tt.in); got != tt.want {
			t.Errorf("InferKind(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDistinctTypes(t *testing.T) {
	tbl := table.New([]string{"type"}, [][]string{
		{"numeric"}, {"Control Bool"}, {"abc"}, {"control x"}, {"numeric"}, {" "},
	})
	got := DistinctTypes(tbl, Mapping{RoleType: "type"})
	want := []string{"Control Bool", "control x", "abc", "numeric"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("DistinctTypes() = %v, want %v", got, want)
	}
	if got := DistinctTypes(tbl, Mapping{}); got != nil {
		t.Errorf("unmapped type column: got %v, want nil", got)
	}
}

func TestNormalize(t *testing.T) {
	src := table.New(
		[]string{"slot", "type", "field", "device", "canonical"},
		[][]string{
			{"  slot:/a$20b ", "numeric point", " temp ", "AHU-1", "AHU"},
			{"/c", "kit", "x", "AHU-1", "AHU"},
			{"/d", "bool", "-", "AHU-1", "AHU"},
			{"/e", "mystery", "temp", "AHU-2", "AHU"},
		},
	)
	kinds := KindAssignments{"numeric point": KindNumber, "kit": KindNone, "bool": KindBool}

	out, report := Normalize(context.Background(), src, normalizeMapping, kinds)

	want := NormalizeReport{InputRows: 4, OutputRows: 2, DroppedRows: 2}
	if !reflect.DeepEqual(report, want) {
		t.Errorf("report = %+v, want %+v", report, want)
	}
	if got := out.Value(0, "slot"); got != "slot:/a b" {
		t.Errorf("slot = %q, want trimmed and decoded", got)
	}
	if got := out.Value(0, "field"); got != "temp" {
		t.Errorf("field = %q, want trimmed", got)
	}
	if got := out.Column(ColumnPointKind); !reflect.DeepEqual(got, []string{KindNumber, KindUnknown}) {
		t.Errorf("point kinds = %v", got)
	}
	if src.Value(0, "slot") != "  slot:/a$20b " {
		t.Error("Normalize modified its input")
	}
}

func TestNormalize_SkipsStepsThatCannotRun(t *testing.T) {
	src := table.New([]string{"field", "device", "canonical"}, [][]string{
		{"temp", "AHU-1", "AHU"},
	})

	out, report := Normalize(context.Background(), src, normalizeMapping, nil)

	if len(report.Skipped) != 2 {
		t.Fatalf("Skipped = %v, want kinds and slotpath steps", report.Skipped)
	}
	if !strings.HasPrefix(report.Skipped[0], "assign point kinds") {
		t.Errorf("Skipped[0] = %q", report.Skipped[0])
	}
	if !strings.HasPrefix(report.Skipped[1], "decode slotpath") {
		t.Errorf("Skipped[1] = %q", report.Skipped[1])
	}
	if out.Len() != 1 || out.Has(ColumnPointKind) {
		t.Errorf("remaining steps should still run on the original table, got %v", out.Columns())
	}
}

func TestFilterSite(t *testing.T) {
	src := table.New([]string{"site"}, [][]string{{"A"}, {"B"}, {"A"}, {""}})

	if got := SiteValues(src, "site"); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Errorf("SiteValues() = %v", got)
	}
	if got := FilterSite(src, "site", "A").Len(); got != 2 {
		t.Errorf("FilterSite() rows = %d, want 2", got)
	}
	if got := FilterSite(src, "", "A").Len(); got != 4 {
		t.Errorf("empty column should keep every row, got %d", got)
	}
}
