package core

import (
	"strings"

	"github.com/JonMunkholm/loadsheet/internal/table"
)

// Check labels.
const (
	LabelSlotpathUnique  = "Slotpath uniqueness"
	LabelHandleUnique    = "Handle uniqueness"
	LabelDeviceCanonical = "Device canonical consistency"
	LabelOntologyLoading = "Loading ontology fields"
	LabelCanonicalValid  = "Canonical type validity"
	LabelFieldValid      = "Field validity"
	LabelComboValid      = "Canonical+Field combo validity"
	LabelKindSupported   = "Assigned KODE point type vs supported kinds"
	LabelSuffixAllowed   = "Suffix allowed for combo (multi=true)"
	LabelSuffixMixed     = "Suffix mixed empty/filled per device+field"
	LabelSuffixDuplicate = "Suffix duplicate within device+field"
)

const reasonFieldsNotLoaded = "fields-not-loaded"

// StageChecks returns the ordered checks of a stage. Without loaded ontology
// rules the ontology stage is a single failing placeholder check.
func StageChecks(stage Stage, ont *Ontology) []Check {
	switch stage {
	case StageUniqueness:
		return []Check{
			{Key: CheckKey(stage, 1), Label: LabelSlotpathUnique, Run: uniqueCheck(RoleSlotpath)},
			{Key: CheckKey(stage, 2), Label: LabelHandleUnique, Run: uniqueCheck(RoleHandle)},
		}
	case StageDevice:
		return []Check{
			{Key: CheckKey(stage, 1), Label: LabelDeviceCanonical, Run: checkDeviceCanonical},
		}
	case StageOntology:
		if !ont.Loaded() {
			return []Check{
				{Key: CheckKey(stage, 0), Label: LabelOntologyLoading, Run: func(CheckInput) CheckResult {
					return CheckResult{Reason: reasonFieldsNotLoaded}
				}},
			}
		}
		return []Check{
			{Key: CheckKey(stage, 1), Label: LabelCanonicalValid, Run: checkCanonicalValid},
			{Key: CheckKey(stage, 2), Label: LabelFieldValid, Run: checkFieldValid},
			{Key: CheckKey(stage, 3), Label: LabelComboValid, Run: checkComboValid},
			{Key: CheckKey(stage, 4), Label: LabelKindSupported, Run: checkKindSupported},
		}
	case StageSuffix:
		return []Check{
			{Key: CheckKey(stage, 0), Label: LabelSuffixAllowed, Run: checkSuffixAllowed},
			{Key: CheckKey(stage, 1), Label: LabelSuffixMixed, Run: checkSuffixMixed},
			{Key: CheckKey(stage, 2), Label: LabelSuffixDuplicate, Run: checkSuffixDuplicate},
		}
	}
	return nil
}

// groupRows groups 1-based row numbers by key, keeping first-seen key order.
type groupRows struct {
	keys []string
	rows map[string][]int
}

func groupBy(t *table.Table, key func(i int) string) groupRows {
	g := groupRows{rows: make(map[string][]int)}
	for i := 0; i < t.Len(); i++ {
		k := key(i)
		if _, ok := g.rows[k]; !ok {
			g.keys = append(g.keys, k)
		}
		g.rows[k] = append(g.rows[k], i+1)
	}
	return g
}

func uniqueCheck(role Role) func(CheckInput) CheckResult {
	return func(in CheckInput) CheckResult {
		col := in.Mapping.Column(role)
		g := groupBy(in.Table, func(i int) string { return in.Table.Value(i, col) })

		var findings []Finding
		for _, k := range g.keys {
			if rows := g.rows[k]; len(rows) > 1 {
				findings = append(findings, Finding{Rows: rows, Value: k, Columns: []string{col}})
			}
		}
		return fail(findings)
	}
}

// checkDeviceCanonical treats the first non-empty canonical type seen for a
// device as authoritative and reports each later row that differs from it.
func checkDeviceCanonical(in CheckInput) CheckResult {
	t := in.Table
	dCol := in.Mapping.Column(RoleDeviceName)
	ctCol := in.Mapping.Column(RoleCanonicalType)

	expected := make(map[string]string)
	var findings []Finding
	for i := 0; i < t.Len(); i++ {
		d, ct := t.Value(i, dCol), t.Value(i, ctCol)
		want := expected[d]
		if want == "" {
			expected[d] = ct
			continue
		}
		if want != ct {
			findings = append(findings, Finding{
				Rows:     []int{i + 1},
				Device:   d,
				Expected: want,
				Found:    ct,
				Columns:  []string{dCol, ctCol},
			})
		}
	}
	return fail(findings)
}

func checkCanonicalValid(in CheckInput) CheckResult {
	t := in.Table
	col := in.Mapping.Column(RoleCanonicalType)
	var findings []Finding
	for i := 0; i < t.Len(); i++ {
		ct := t.Value(i, col)
		if in.Ontology.HasCanonical(ct) || ct == Placeholder || ct == UnknownCanonical {
			continue
		}
		findings = append(findings, Finding{Rows: []int{i + 1}, CanonicalType: ct, Columns: []string{col}})
	}
	return fail(findings)
}

func checkFieldValid(in CheckInput) CheckResult {
	t := in.Table
	col := in.Mapping.Column(RoleField)
	var findings []Finding
	for i := 0; i < t.Len(); i++ {
		f := t.Value(i, col)
		if in.Ontology.HasField(f) || f == NoField {
			continue
		}
		findings = append(findings, Finding{Rows: []int{i + 1}, Field: f, Columns: []string{col}})
	}
	return fail(findings)
}

func checkComboValid(in CheckInput) CheckResult {
	t := in.Table
	ctCol := in.Mapping.Column(RoleCanonicalType)
	fCol := in.Mapping.Column(RoleField)
	var findings []Finding
	for i := 0; i < t.Len(); i++ {
		ct, f := t.Value(i, ctCol), t.Value(i, fCol)
		if _, ok := in.Ontology.Combo(ct, f); ok || f == NoField {
			continue
		}
		findings = append(findings, Finding{
			Rows:          []int{i + 1},
			CanonicalType: ct,
			Field:         f,
			Columns:       []string{ctCol, fCol},
		})
	}
	return fail(findings)
}

// checkKindSupported only judges rows whose combo exists and declares kinds;
// missing combos are the combo check's concern.
func checkKindSupported(in CheckInput) CheckResult {
	t := in.Table
	ctCol := in.Mapping.Column(RoleCanonicalType)
	fCol := in.Mapping.Column(RoleField)
	var findings []Finding
	for i := 0; i < t.Len(); i++ {
		rule, ok := in.Ontology.Combo(t.Value(i, ctCol), t.Value(i, fCol))
		if !ok || len(rule.SupportedKinds) == 0 {
			continue
		}
		kind := t.Value(i, ColumnPointKind)
		if kind == "" || kind == NoField || contains(rule.SupportedKinds, kind) {
			continue
		}
		findings = append(findings, Finding{
			Rows:    []int{i + 1},
			Kind:    kind,
			Allowed: append([]string(nil), rule.SupportedKinds...),
			Columns: []string{ColumnPointKind, ctCol, fCol},
		})
	}
	return fail(findings)
}

func checkSuffixAllowed(in CheckInput) CheckResult {
	t := in.Table
	sCol := in.Mapping.Column(RoleSuffix)
	ctCol := in.Mapping.Column(RoleCanonicalType)
	fCol := in.Mapping.Column(RoleField)
	var findings []Finding
	for i := 0; i < t.Len(); i++ {
		suffix := t.Value(i, sCol)
		if strings.TrimSpace(suffix) == "" {
			continue
		}
		ct, f := t.Value(i, ctCol), t.Value(i, fCol)
		if rule, ok := in.Ontology.Combo(ct, f); ok && rule.Multi {
			continue
		}
		findings = append(findings, Finding{
			Rows:    []int{i + 1},
			Suffix:  suffix,
			Combo:   ComboKey(ct, f),
			Columns: []string{sCol, ctCol, fCol},
		})
	}
	return fail(findings)
}

func deviceFieldGroups(in CheckInput) groupRows {
	dCol := in.Mapping.Column(RoleDeviceName)
	fCol := in.Mapping.Column(RoleField)
	return groupBy(in.Table, func(i int) string {
		return in.Table.Value(i, dCol) + "|||" + in.Table.Value(i, fCol)
	})
}

func checkSuffixMixed(in CheckInput) CheckResult {
	sCol := in.Mapping.Column(RoleSuffix)
	g := deviceFieldGroups(in)

	var findings []Finding
	for _, k := range g.keys {
		rows := g.rows[k]
		var empty, filled bool
		entries := make([]SuffixEntry, len(rows))
		for j, row := range rows {
			s := in.Table.Value(row-1, sCol)
			entries[j] = SuffixEntry{Row: row, Suffix: s}
			if s == "" {
				empty = true
			} else {
				filled = true
			}
		}
		if empty && filled {
			findings = append(findings, Finding{
				Rows:    rows,
				Group:   k,
				Entries: entries,
				Columns: []string{sCol},
			})
		}
	}
	return fail(findings)
}

// checkSuffixDuplicate reports, per device and field group, every repeat of
// a non-empty suffix after its first occurrence.
func checkSuffixDuplicate(in CheckInput) CheckResult {
	sCol := in.Mapping.Column(RoleSuffix)
	g := deviceFieldGroups(in)

	var findings []Finding
	for _, k := range g.keys {
		seen := make(map[string]bool)
		var dups []string
		dupSet := make(map[string]bool)
		for _, row := range g.rows[k] {
			s := in.Table.Value(row-1, sCol)
			if s == "" {
				continue
			}
			if seen[s] {
				dups = append(dups, s)
				dupSet[s] = true
			}
			seen[s] = true
		}
		if len(dups) == 0 {
			continue
		}
		var rows []int
		for _, row := range g.rows[k] {
			if dupSet[in.Table.Value(row-1, sCol)] {
				rows = append(rows, row)
			}
		}
		findings = append(findings, Finding{
			Rows:       rows,
			Group:      k,
			Duplicates: dups,
			Columns:    []string{sCol},
		})
	}
	return fail(findings)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
