package core

import (
	"context"
	"reflect"
	"testing"

	"github.com/JonMunkholm/loadsheet/internal/table"
)

var metaMapping = Mapping{RoleSlotpath: "slot", RoleDeviceName: "device"}

func expandedFixture() *table.Table {
	return table.New([]string{"slot", "device", ColumnSP}, [][]string{
		{"/a", "AHU-1", "/a"},
		{"/b", "AHU-1", "/b"},
		{"/c", "VAV-2", "/c"},
	})
}

func TestJoinDeviceMeta_Initial(t *testing.T) {
	source := table.New([]string{"slot", "device", "mech", "loc"}, [][]string{
		{"slot:/a", "AHU-1", "Air Handler", "Roof"},
		{"/b", "AHU-1", "Air Handler", "Roof 2"},
		{"/a", "AHU-1", "ignored", "ignored"},
	})
	res := JoinDeviceMeta(context.Background(), expandedFixture(), metaMapping, DeviceMetaOptions{
		Mode:                 MetaFromInitial,
		Source:               source,
		MechanicalTypeColumn: "mech",
		LocationColumn:       "loc",
	})

	if got := res.Table.Column(ColumnLocation); !reflect.DeepEqual(got, []string{"Roof", "Roof 2", ""}) {
		t.Errorf("Location = %v", got)
	}
	if got := res.Table.Column(ColumnArea); !reflect.DeepEqual(got, []string{"", "", ""}) {
		t.Errorf("Area = %v, want blank for an unmapped column", got)
	}
	if !reflect.DeepEqual(res.DeviceNames, map[string]bool{"AHU-1": true}) {
		t.Errorf("DeviceNames = %v", res.DeviceNames)
	}

	cov := CoverDevices(res.Table, metaMapping, res.DeviceNames)
	if !reflect.DeepEqual(cov, DeviceCoverage{Matched: []string{"AHU-1"}, Missing: []string{"VAV-2"}}) {
		t.Errorf("coverage = %+v", cov)
	}
	if got := cov.Rows(res.Table, metaMapping, false); !reflect.DeepEqual(got, []int{2}) {
		t.Errorf("missing rows = %v", got)
	}
}

func TestJoinDeviceMeta_Upload(t *testing.T) {
	source := table.New([]string{"Device", "Type", "Floor"}, [][]string{
		{" AHU-1 ", " Air Handler ", "3"},
		{"VAV-2", "Terminal", "2"},
	})
	res := JoinDeviceMeta(context.Background(), expandedFixture(), metaMapping, DeviceMetaOptions{
		Mode:                 MetaFromUpload,
		Source:               source,
		DeviceColumn:         "Device",
		MechanicalTypeColumn: "Type",
		AreaColumn:           "Floor",
	})

	want := []string{"Air Handler", "Air Handler", "Terminal"}
	if got := res.Table.Column(ColumnMechanicalType); !reflect.DeepEqual(got, want) {
		t.Errorf("Mechanical Type = %v, want %v", got, want)
	}
	if got := res.Table.Column(ColumnArea); !reflect.DeepEqual(got, []string{"3", "3", "2"}) {
		t.Errorf("Area = %v", got)
	}
	if len(res.DeviceNames) != 2 {
		t.Errorf("DeviceNames = %v", res.DeviceNames)
	}
}

func TestJoinDeviceMeta_UnusableSource(t *testing.T) {
	left := expandedFixture()
	tests := []struct {
		name string
		opts DeviceMetaOptions
	}{
		{"upload without device column", DeviceMetaOptions{Mode: MetaFromUpload, Source: table.New([]string{"x"}, nil), DeviceColumn: "Device"}},
		{"initial without slot column", DeviceMetaOptions{Mode: MetaFromInitial, Source: table.New([]string{"x"}, nil)}},
		{"unknown mode", DeviceMetaOptions{Mode: "ftp"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := JoinDeviceMeta(context.Background(), left, metaMapping, tt.opts)
			if !reflect.DeepEqual(res.Table.Columns(), left.Columns()) || res.Table.Len() != left.Len() {
				t.Errorf("table changed: %v", res.Table.Columns())
			}
			if len(res.DeviceNames) != 0 {
				t.Errorf("DeviceNames = %v", res.DeviceNames)
			}
		})
	}
}
