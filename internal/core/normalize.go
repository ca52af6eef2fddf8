package core

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/JonMunkholm/loadsheet/internal/table"
)

// ColumnPointKind is the derived column holding each row's point kind.
const ColumnPointKind = "kode_point_type"

// Point kinds assignable to an uploaded point type.
const (
	KindNumber  = "Number"
	KindBool    = "Bool"
	KindStr     = "Str"
	KindNone    = "-"
	KindUnknown = "Unknown"
)

// Placeholder is the sentinel marking rows excluded from the load sheet.
const Placeholder = "-"

// KindOptions lists the kinds a user may assign to a point type.
var KindOptions = []string{KindNumber, KindBool, KindStr, KindNone}

// KindAssignments maps raw point-type values to point kinds.
type KindAssignments map[string]string

// InferKind guesses the point kind of a raw point type.
func InferKind(pointType string) string {
	s := strings.ToLower(pointType)
	switch {
	case s == "":
		return KindNone
	case strings.Contains(s, "kit"):
		return KindNone
	case strings.Contains(s, "numeric"):
		return KindNumber
	case strings.Contains(s, "bool"):
		return KindBool
	case strings.Contains(s, "string"), strings.Contains(s, "enum"):
		return KindStr
	}
	return KindNone
}

// DistinctTypes returns the distinct non-blank values of the mapped type
// column, control types first, each group sorted alphabetically.
func DistinctTypes(t *table.Table, m Mapping) []string {
	col := m.Column(RoleType)
	if !t.Has(col) {
		return nil
	}

	seen := make(map[string]bool)
	var control, rest []string
	for _, v := range t.Column(col) {
		if strings.TrimSpace(v) == "" || seen[v] {
			continue
		}
		seen[v] = true
		if strings.HasPrefix(strings.ToLower(v), "control") {
			control = append(control, v)
		} else {
			rest = append(rest, v)
		}
	}
	sort.Strings(control)
	sort.Strings(rest)
	return append(control, rest...)
}

// DefaultKinds seeds an assignment for every distinct type using InferKind.
func DefaultKinds(types []string) KindAssignments {
	out := make(KindAssignments, len(types))
	for _, ty := range types {
		out[ty] = InferKind(ty)
	}
	return out
}

// SiteValues returns the distinct non-empty values of col in first-seen order.
func SiteValues(t *table.Table, col string) []string {
	if !t.Has(col) {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, v := range t.Column(col) {
		if v != "" && !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// FilterSite keeps the rows whose col equals value exactly. An empty col or
// value returns t unchanged.
func FilterSite(t *table.Table, col, value string) *table.Table {
	if col == "" || value == "" {
		return t
	}
	return t.Filter(func(i int) bool { return t.Value(i, col) == value })
}

// NormalizeReport describes what Normalize did.
type NormalizeReport struct {
	InputRows   int      `json:"inputRows"`
	OutputRows  int      `json:"outputRows"`
	DroppedRows int      `json:"droppedRows"`
	Skipped     []string `json:"skippedSteps,omitempty"`
}

type normalizeStep struct {
	name string
	fn   func(*table.Table) (*table.Table, error)
}

// Normalize turns mapped upload rows into the canonical working table:
//  1. derive the point kind from the type assignment table
//  2. trim every mapped column
//  3. decode the slotpath column
//  4. drop placeholder rows
//
// A step that cannot run leaves the table as it was before that step and is
// listed in the report; the remaining steps still run.
func Normalize(ctx context.Context, t *table.Table, m Mapping, kinds KindAssignments) (*table.Table, NormalizeReport) {
	report := NormalizeReport{InputRows: t.Len()}

	steps := []normalizeStep{
		{"assign point kinds", func(in *table.Table) (*table.Table, error) { return assignKinds(in, m, kinds) }},
		{"trim mapped columns", func(in *table.Table) (*table.Table, error) { return trimMapped(in, m) }},
		{"decode slotpath", func(in *table.Table) (*table.Table, error) { return decodeSlotpaths(in, m) }},
		{"drop placeholder rows", func(in *table.Table) (*table.Table, error) { return dropPlaceholders(in, m), nil }},
	}

	out := t
	for _, step := range steps {
		next, err := step.fn(out)
		if err != nil {
			slog.WarnContext(ctx, "normalize step skipped", "step", step.name, "error", err)
			report.Skipped = append(report.Skipped, fmt.Sprintf("%s: %v", step.name, err))
			continue
		}
		out = next
	}

	report.OutputRows = out.Len()
	report.DroppedRows = report.InputRows - report.OutputRows
	return out, report
}

func assignKinds(t *table.Table, m Mapping, kinds KindAssignments) (*table.Table, error) {
	col := m.Column(RoleType)
	if !t.Has(col) {
		return nil, fmt.Errorf("type column %q not found", col)
	}
	values := make([]string, t.Len())
	for i := range values {
		kind := kinds[t.Value(i, col)]
		if kind == "" {
			kind = KindUnknown
		}
		values[i] = kind
	}
	return t.WithColumn(ColumnPointKind, values), nil
}

// trimMapped trims every mapped column the table carries. Mapped columns the
// table lacks are ignored.
func trimMapped(t *table.Table, m Mapping) (*table.Table, error) {
	out := t
	seen := make(map[string]bool)
	for _, r := range Roles {
		col := m.Column(r)
		if col == "" || seen[col] || !t.Has(col) {
			continue
		}
		seen[col] = true
		out = out.MapColumn(col, strings.TrimSpace)
	}
	return out, nil
}

func decodeSlotpaths(t *table.Table, m Mapping) (*table.Table, error) {
	col := m.Column(RoleSlotpath)
	if !t.Has(col) {
		return nil, fmt.Errorf("slotpath column %q not found", col)
	}
	return t.MapColumn(col, DecodeSlotpath), nil
}

func dropPlaceholders(t *table.Table, m Mapping) *table.Table {
	device := m.Column(RoleDeviceName)
	canonical := m.Column(RoleCanonicalType)
	field := m.Column(RoleField)
	return t.Filter(func(i int) bool {
		return t.Value(i, ColumnPointKind) != Placeholder &&
			t.Value(i, device) != Placeholder &&
			t.Value(i, canonical) != Placeholder &&
			t.Value(i, field) != Placeholder
	})
}
