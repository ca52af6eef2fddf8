package core

import (
	"strings"

	"github.com/JonMunkholm/loadsheet/internal/table"
)

// Preview limits
const (
	// DefaultDisplayLimit caps offending rows shown for a failed check.
	DefaultDisplayLimit = 10
	maxPreviewRows      = 10
)

// Offending is one offending row of a failed check.
type Offending struct {
	Row    int          `json:"row"`
	Record table.Record `json:"record"`
	Fields []string     `json:"fields"`
}

// ErrorReport is the uniform, display-capped shape of a failed check.
type ErrorReport struct {
	Label         string      `json:"label"`
	Message       string      `json:"message"`
	Reason        string      `json:"reason,omitempty"`
	OffendingRows []Offending `json:"offendingRows"`
	// Total is the uncapped number of offending entries.
	Total int `json:"total"`
}

// NormalizeFailure converts a failed check result into an ErrorReport with at
// most limit offending rows. Every finding expands to one entry per row.
func NormalizeFailure(t *table.Table, label string, res CheckResult, limit int) ErrorReport {
	rep := ErrorReport{
		Label:         label,
		Message:       "Check failed: " + label,
		Reason:        res.Reason,
		OffendingRows: []Offending{},
	}
	for _, f := range res.Findings {
		for _, row := range f.Rows {
			rep.Total++
			if limit > 0 && len(rep.OffendingRows) >= limit {
				continue
			}
			rep.OffendingRows = append(rep.OffendingRows, Offending{
				Row:    row,
				Record: t.Record(row - 1),
				Fields: append([]string(nil), f.Columns...),
			})
		}
	}
	return rep
}

// OffendingRowNumbers flattens findings into distinct 1-based row numbers in
// report order.
func OffendingRowNumbers(findings []Finding) []int {
	seen := make(map[int]bool)
	var out []int
	for _, f := range findings {
		for _, row := range f.Rows {
			if !seen[row] {
				seen[row] = true
				out = append(out, row)
			}
		}
	}
	return out
}

// OffendingTable extracts the complete set of offending records.
func OffendingTable(t *table.Table, findings []Finding) *table.Table {
	rows := OffendingRowNumbers(findings)
	idx := make([]int, len(rows))
	for i, r := range rows {
		idx[i] = r - 1
	}
	return t.Select(idx)
}

// CleanedTable returns every record whose row is not offending.
func CleanedTable(t *table.Table, findings []Finding) *table.Table {
	bad := make(map[int]bool)
	for _, r := range OffendingRowNumbers(findings) {
		bad[r] = true
	}
	return t.Filter(func(i int) bool { return !bad[i+1] })
}

// OffendingFilename is the download name of a check's offending rows.
func OffendingFilename(label string) string {
	return strings.Join(strings.Fields(label), "_") + "_offending.csv"
}

// CleanedFilename is the download name of a table without a check's
// offending rows.
func CleanedFilename(label string) string {
	return "cleaned_table_without_" + strings.Join(strings.Fields(label), "_") + ".csv"
}

// TablePreview is a head-of-table sample for clients.
type TablePreview struct {
	Columns   []string       `json:"columns"`
	Rows      []table.Record `json:"rows"`
	TotalRows int            `json:"totalRows"`
}

// Preview samples the first rows of t.
func Preview(t *table.Table) TablePreview {
	n := min(t.Len(), maxPreviewRows)
	rows := make([]table.Record, n)
	for i := range rows {
		rows[i] = t.Record(i)
	}
	return TablePreview{Columns: t.Columns(), Rows: rows, TotalRows: t.Len()}
}
