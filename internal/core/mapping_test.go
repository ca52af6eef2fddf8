package core

import (
	"reflect"
	"testing"
)

func TestSuggestMapping(t *testing.T) {
	columns := []string{
		"Slot Path", "Point Name", "Handle", "Type",
		"AddToSkyspark", "Device Name", "Canonical Type", "Suffix",
	}
	got := SuggestMapping(columns)
	want := Mapping{
		RoleSlotpath:      "Slot Path",
		RolePointName:     "Point Name",
		RoleHandle:        "Handle",
		RoleType:          "Type",
		RoleField:         "AddToSkyspark",
		RoleDeviceName:    "Device Name",
		RoleCanonicalType: "Canonical Type",
		RoleSuffix:        "Suffix",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SuggestMapping() = %v, want %v", got, want)
	}
}

func TestSuggestMapping_EditDistanceFallback(t *testing.T) {
	got := SuggestMapping([]string{"sufix", "xyz"})
	if got[RoleSuffix] != "sufix" {
		t.Errorf("suffix suggestion = %q, want sufix", got[RoleSuffix])
	}

	empty := SuggestMapping(nil)
	if len(empty.Unmapped()) != len(Roles) {
		t.Errorf("no columns should leave every role unmapped, got %v", empty)
	}
}

func TestSuggestMapping_SkipsUnnamedColumns(t *testing.T) {
	got := SuggestMapping([]string{"", "#", "Slot Path"})
	for _, role := range Roles {
		if col := got.Column(role); col != "Slot Path" {
			t.Errorf("%s suggestion = %q, want Slot Path", role, col)
		}
	}
}

func TestMapping_MergeAndUnmapped(t *testing.T) {
	m := Mapping{RoleSlotpath: "a", RoleHandle: "b"}
	merged := m.Merge(Mapping{RoleHandle: "", RoleField: "c"})

	if m[RoleHandle] != "b" {
		t.Error("Merge modified the receiver")
	}
	if merged.Column(RoleHandle) != "" || merged.Column(RoleField) != "c" {
		t.Errorf("Merge() = %v", merged)
	}

	want := []Role{RolePointName, RoleHandle, RoleType, RoleDeviceName, RoleCanonicalType, RoleSuffix}
	if got := merged.Unmapped(); !reflect.DeepEqual(got, want) {
		t.Errorf("Unmapped() = %v, want %v", got, want)
	}

	var nilMap Mapping
	if nilMap.Column(RoleField) != "" {
		t.Error("nil mapping should read as unmapped")
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"suffix", "sufix", 1},
		{"°f", "°c", 1},
	}
	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestNormalizeHeader(t *testing.T) {
	if got := normalizeHeader(" Point-Name (2)"); got != "pointname2" {
		t.Errorf("normalizeHeader() = %q", got)
	}
}
