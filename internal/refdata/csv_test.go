package refdata

import (
	"reflect"
	"strings"
	"testing"

	"github.com/JonMunkholm/loadsheet/internal/core"
)

func TestLoadOntology(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		want []core.OntologyFieldRule
	}{
		{
			name: "snake case headers",
			csv: "canonical_type,field,supported_kinds,multi\n" +
				"ahu,supplyTemp,Number; Str ,true\n" +
				"ahu,!,,0\n",
			want: []core.OntologyFieldRule{
				{CanonicalType: "ahu", Field: "supplyTemp", SupportedKinds: []string{"Number", "Str"}, Multi: true},
				{CanonicalType: "ahu", Field: "!", Multi: false},
			},
		},
		{
			name: "camel case headers and truthy variants",
			csv: "canonicalType,Field,supportedKinds,Multi\n" +
				"vav,damper,Number,Y\n" +
				"vav,flow,Number,no\n",
			want: []core.OntologyFieldRule{
				{CanonicalType: "vav", Field: "damper", SupportedKinds: []string{"Number"}, Multi: true},
				{CanonicalType: "vav", Field: "flow", SupportedKinds: []string{"Number"}},
			},
		},
		{
			name: "rows without canonical or field skipped",
			csv:  "canonical_type,field\n,x\nahu,\nahu,fan\n",
			want: []core.OntologyFieldRule{{CanonicalType: "ahu", Field: "fan"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadOntology(strings.NewReader(tt.csv))
			if err != nil {
				t.Fatalf("LoadOntology() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("LoadOntology() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadUnits(t *testing.T) {
	csv := "ID,Category\n" +
		"degC,Temperature\n" +
		"degF,Temperature\n" +
		"K,Temperature\n" +
		"pct,\n" +
		",Pressure\n"
	got, err := LoadUnits(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("LoadUnits() error = %v", err)
	}
	want := core.UnitCatalog{
		"Temperature":          {"K", "degC", "degF"},
		core.UnitUncategorized: {"pct"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LoadUnits() = %v, want %v", got, want)
	}
}

func TestLoadUnits_LowercaseHeaders(t *testing.T) {
	got, err := LoadUnits(strings.NewReader("id,category\nPa,Pressure\n"))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Has("Pressure", "Pa") {
		t.Errorf("LoadUnits() = %v, want Pa under Pressure", got)
	}
}

func TestLoadEnums(t *testing.T) {
	csv := "Field,Required Enum TRUE,Required_Enum_FALSE\n" +
		"fanStatus,On,Off\n" +
		"alarm,Alarm,Normal\n" +
		",x,y\n" +
		"alarm,Active,Inactive\n"
	got, err := LoadEnums(strings.NewReader(csv))
	if err != nil {
		t.Fatalf("LoadEnums() error = %v", err)
	}
	want := core.EnumCatalog{
		"fanStatus": {TrueKey: "On", FalseKey: "Off"},
		"alarm":     {TrueKey: "Active", FalseKey: "Inactive"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LoadEnums() = %v, want %v", got, want)
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	if _, err := LoadEnums(strings.NewReader("")); err == nil {
		t.Error("LoadEnums(empty) error = nil, want error")
	}
}

func TestTruthy(t *testing.T) {
	tests := map[string]bool{
		"1": true, "true": true, "TRUE": true, " yes ": true, "y": true,
		"0": false, "false": false, "": false, "on": false,
	}
	for in, want := range tests {
		if got := truthy(in); got != want {
			t.Errorf("truthy(%q) = %v, want %v", in, got, want)
		}
	}
}
