package core

import (
	"reflect"
	"testing"

	"github.com/JonMunkholm/loadsheet/internal/table"
)

func TestEncodeWriteMap(t *testing.T) {
	tests := []struct {
		name                string
		trueKey, trueText   string
		falseKey, falseText string
		want                string
	}{
		{"plain keys keep order", "on", "On", "off", "Off", `{"on":"On","off":"Off"}`},
		{"index key first", "active", "A", "0", "I", `{"0":"I","active":"A"}`},
		{"index keys ascending", "2", "x", "1", "y", `{"1":"y","2":"x"}`},
		{"repeated key keeps last value", "on", "On", "on", "Off", `{"on":"Off"}`},
		{"escaping", "k", `say "hi"`, "<b>", "x", `{"k":"say \"hi\"","<b>":"x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := encodeWriteMap(tt.trueKey, tt.trueText, tt.falseKey, tt.falseText); got != tt.want {
				t.Errorf("encodeWriteMap() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestIndexKey(t *testing.T) {
	tests := map[string]bool{
		"0": true, "17": true, "017": false, "-1": false, "": false, "abc": false, "4294967295": false,
	}
	for k, want := range tests {
		if _, ok := indexKey(k); ok != want {
			t.Errorf("indexKey(%q) ok = %v, want %v", k, ok, want)
		}
	}
}

func TestEncodeReadMap(t *testing.T) {
	got := encodeReadMap("on", "On", "off", "Off")
	want := `[{"k":"On","v":"on"},{"k":"Off","v":"off"}]`
	if got != want {
		t.Errorf("encodeReadMap() = %s, want %s", got, want)
	}
}

func TestBuildExportRows(t *testing.T) {
	m := Mapping{
		RoleHandle:        "Handle",
		RolePointName:     "Name",
		RoleField:         "Field",
		RoleDeviceName:    "Device",
		RoleCanonicalType: "Canonical",
		RoleSuffix:        "Suffix",
	}
	cols := []string{
		"Handle", "Name", "Field", "Device", "Canonical", "Suffix",
		ColumnSP, ColumnWritable, ColumnPointKind, ColumnUnitKode, ColumnTrueKeyKode, ColumnFalseKeyKode,
		FacetUnits, FacetTrueText, FacetFalseText, ColumnLocation,
	}
	tbl := table.New(cols, [][]string{
		{"h1", "Zone Temp", "temp", "AHU-1", "AHU", "1", "/a", "false", KindNumber, "fahrenheit", "", "", "°F", "", "", "Roof"},
		{"h2", "Fan Cmd", NoField, "AHU-1", "AHU", "", "/b", "true", KindBool, "", "on", "off", "", "On", "Off", ""},
	})

	rows := BuildExportRows(tbl, m, true)
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}

	first := rows[0]
	checks := map[string]string{
		ExportDeviceExternalID:    driverExternalID,
		ExportDeviceLocation:      "Roof",
		ExportPointExternalID:     "h1",
		ExportPointExternalPath:   "/a",
		ExportPointUnit:           "°F",
		ExportOntologyUnit:        "fahrenheit",
		ExportOntologyField:       "temp",
		ExportOntologyDisplayName: "",
		ExportOntologySuffix:      "1",
		ExportVirtualDeviceName:   "AHU-1",
		ExportPointEnum:           "",
	}
	for col, want := range checks {
		if got := first[col]; got != want {
			t.Errorf("row 1 %s = %q, want %q", col, got, want)
		}
	}

	second := rows[1]
	checks = map[string]string{
		ExportOntologyField:       "",
		ExportOntologyDisplayName: "Fan Cmd",
		ExportPointEnum:           "on,off",
		ExportPointWritable:       "true",
		ExportOntologyWriteMap:    `{"on":"On","off":"Off"}`,
		ExportOntologyReadMap:     `[{"k":"On","v":"on"},{"k":"Off","v":"off"}]`,
	}
	for col, want := range checks {
		if got := second[col]; got != want {
			t.Errorf("row 2 %s = %q, want %q", col, got, want)
		}
	}

	if got := BuildExportRows(tbl, m, false)[0][ExportOntologySuffix]; got != "" {
		t.Errorf("suffix exported without suffixes in use: %q", got)
	}
}

func TestExportTable_Schema(t *testing.T) {
	out := ExportTable(table.New([]string{"x"}, [][]string{{"1"}}), Mapping{}, false)
	if !reflect.DeepEqual(out.Columns(), ExportColumns) {
		t.Errorf("columns = %v", out.Columns())
	}
	if out.Len() != 1 || out.Value(0, ExportDeviceName) != driverName {
		t.Errorf("row = %v", out.Record(0))
	}
}
