package core

import (
	"sort"
	"strings"

	"github.com/JonMunkholm/loadsheet/internal/table"
)

// DuplicateFieldsMessage is the message of a duplicate-field warning.
const DuplicateFieldsMessage = "Duplicate fields detected (warning only)."

// WarningRow is one flagged record.
type WarningRow struct {
	Row    int          `json:"row"`
	Record table.Record `json:"record"`
}

// DeviceWarning groups the flagged records of one device.
type DeviceWarning struct {
	Device string       `json:"device"`
	Rows   []WarningRow `json:"rows"`
}

// WarningReport is the non-blocking duplicate-field report. A report with no
// devices means nothing was flagged.
type WarningReport struct {
	Type    string          `json:"type"`
	Message string          `json:"message"`
	Devices []DeviceWarning `json:"offendingByDevice"`
}

// HasWarnings reports whether any device was flagged.
func (w WarningReport) HasWarnings() bool { return len(w.Devices) > 0 }

// exemptFromDuplicates reports whether a field never counts as a duplicate:
// the no-field sentinel and any alarm field.
func exemptFromDuplicates(field string) bool {
	return field == NoField || strings.Contains(field, "alarm")
}

// DetectDuplicateFields flags, per device, records sharing a field (or a
// field and suffix when suffixes are in use). With suffixes in use, two or
// more records of one device and field that all lack a suffix are flagged as
// well. Rows appear once per device, sorted by field then row.
func DetectDuplicateFields(t *table.Table, m Mapping, useSuffix bool) WarningReport {
	dCol := m.Column(RoleDeviceName)
	fCol := m.Column(RoleField)
	sCol := m.Column(RoleSuffix)

	byDevice := groupBy(t, func(i int) string { return t.Value(i, dCol) })

	report := WarningReport{Type: "duplicate-fields", Message: DuplicateFieldsMessage}
	for _, dev := range byDevice.keys {
		keyed := groupRows{rows: make(map[string][]int)}
		fieldGroups := groupRows{rows: make(map[string][]int)}
		for _, row := range byDevice.rows[dev] {
			field := t.Value(row-1, fCol)
			if exemptFromDuplicates(field) {
				continue
			}
			key := dev + "|||" + field
			fieldGroups.add(key, row)
			if useSuffix {
				key += "|||" + t.Value(row-1, sCol)
			}
			keyed.add(key, row)
		}

		var flagged []int
		for _, k := range keyed.keys {
			if rows := keyed.rows[k]; len(rows) > 1 {
				flagged = append(flagged, rows...)
			}
		}
		if useSuffix {
			for _, k := range fieldGroups.keys {
				var empties []int
				for _, row := range fieldGroups.rows[k] {
					if t.Value(row-1, sCol) == "" {
						empties = append(empties, row)
					}
				}
				if len(empties) > 1 {
					flagged = append(flagged, empties...)
				}
			}
		}
		if len(flagged) == 0 {
			continue
		}

		seen := make(map[int]bool)
		rows := make([]WarningRow, 0, len(flagged))
		for _, row := range flagged {
			if seen[row] {
				continue
			}
			seen[row] = true
			rows = append(rows, WarningRow{Row: row, Record: t.Record(row - 1)})
		}
		sort.SliceStable(rows, func(a, b int) bool {
			fa, fb := rows[a].Record[fCol], rows[b].Record[fCol]
			if fa != fb {
				return fa < fb
			}
			return rows[a].Row < rows[b].Row
		})
		report.Devices = append(report.Devices, DeviceWarning{Device: dev, Rows: rows})
	}
	return report
}

func (g *groupRows) add(key string, row int) {
	if _, ok := g.rows[key]; !ok {
		g.keys = append(g.keys, key)
	}
	g.rows[key] = append(g.rows[key], row)
}
