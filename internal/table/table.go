// Package table holds the canonical in-memory representation of a load sheet.
//
// Every component of the pipeline consumes and produces *Table values. A table
// is an ordered column list plus row-major string cells; row identity is
// positional (row i is reported to users as i+1). Tables are treated as
// immutable: every transform returns a new table and leaves its input intact.
package table

// Record is one row keyed by column name.
type Record map[string]string

// Table is an ordered set of columns and row-major string cells.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

// New builds a table from a header and rows. Rows shorter than the header are
// padded with empty cells and longer rows are truncated. When a column name
// repeats, lookups by name resolve to the first occurrence.
func New(columns []string, rows [][]string) *Table {
	cols := append([]string(nil), columns...)
	t := &Table{
		columns: cols,
		index:   indexColumns(cols),
		rows:    make([][]string, len(rows)),
	}
	for i, row := range rows {
		t.rows[i] = fit(row, len(cols))
	}
	return t
}

// Empty returns a table with the given columns and no rows.
func Empty(columns ...string) *Table {
	return New(columns, nil)
}

// FromRecords builds a table from records using columns as the header order.
func FromRecords(columns []string, records []Record) *Table {
	rows := make([][]string, len(records))
	for i, rec := range records {
		row := make([]string, len(columns))
		for j, c := range columns {
			row[j] = rec[c]
		}
		rows[i] = row
	}
	return New(columns, rows)
}

func indexColumns(cols []string) map[string]int {
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		if _, seen := idx[c]; !seen {
			idx[c] = i
		}
	}
	return idx
}

func fit(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}

// Columns returns a copy of the header.
func (t *Table) Columns() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.columns...)
}

// Len returns the number of rows. A nil table has no rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// Has reports whether the table carries the named column.
func (t *Table) Has(col string) bool {
	if t == nil || col == "" {
		return false
	}
	_, ok := t.index[col]
	return ok
}

// Value returns the cell at row i for col. Unknown columns, the empty column
// name and out-of-range rows yield the empty string so callers never need to
// guard unmapped roles.
func (t *Table) Value(i int, col string) string {
	if t == nil || col == "" || i < 0 || i >= len(t.rows) {
		return ""
	}
	j, ok := t.index[col]
	if !ok {
		return ""
	}
	return t.rows[i][j]
}

// Row returns a copy of row i in header order.
func (t *Table) Row(i int) []string {
	if t == nil || i < 0 || i >= len(t.rows) {
		return nil
	}
	return append([]string(nil), t.rows[i]...)
}

// Record returns row i keyed by column name.
func (t *Table) Record(i int) Record {
	if t == nil || i < 0 || i >= len(t.rows) {
		return Record{}
	}
	rec := make(Record, len(t.columns))
	for j := len(t.columns) - 1; j >= 0; j-- {
		// walk backwards so the first occurrence of a repeated name wins
		rec[t.columns[j]] = t.rows[i][j]
	}
	return rec
}

// Records returns every row keyed by column name.
func (t *Table) Records() []Record {
	out := make([]Record, t.Len())
	for i := range out {
		out[i] = t.Record(i)
	}
	return out
}

// Column returns the values of col for every row. A missing column yields a
// slice of empty strings of the table's length.
func (t *Table) Column(col string) []string {
	out := make([]string, t.Len())
	if !t.Has(col) {
		return out
	}
	j := t.index[col]
	for i, row := range t.rows {
		out[i] = row[j]
	}
	return out
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	if t == nil {
		return Empty()
	}
	return New(t.columns, t.rows)
}

// WithColumn returns a copy of t where col holds values. An existing column is
// overwritten in place; a new one is appended. Missing values become "".
func (t *Table) WithColumn(col string, values []string) *Table {
	out := t.Clone()
	j, ok := out.index[col]
	if !ok {
		j = len(out.columns)
		out.columns = append(out.columns, col)
		out.index[col] = j
		for i := range out.rows {
			out.rows[i] = append(out.rows[i], "")
		}
	}
	for i := range out.rows {
		if i < len(values) {
			out.rows[i][j] = values[i]
		} else {
			out.rows[i][j] = ""
		}
	}
	return out
}

// MapColumn returns a copy of t with fn applied to every cell of col. A
// missing column returns an unchanged copy.
func (t *Table) MapColumn(col string, fn func(string) string) *Table {
	out := t.Clone()
	j, ok := out.index[col]
	if !ok || col == "" {
		return out
	}
	for _, row := range out.rows {
		row[j] = fn(row[j])
	}
	return out
}

// Filter returns the rows for which keep reports true, in order.
func (t *Table) Filter(keep func(i int) bool) *Table {
	var rows [][]string
	for i := 0; i < t.Len(); i++ {
		if keep(i) {
			rows = append(rows, t.rows[i])
		}
	}
	return New(t.Columns(), rows)
}

// Select returns the listed rows (0-based) in the given order. Out-of-range
// indexes are skipped.
func (t *Table) Select(rows []int) *Table {
	picked := make([][]string, 0, len(rows))
	for _, i := range rows {
		if i >= 0 && i < t.Len() {
			picked = append(picked, t.rows[i])
		}
	}
	return New(t.Columns(), picked)
}

// Project returns a table restricted to cols. Columns t does not carry are
// emitted as blank.
func (t *Table) Project(cols ...string) *Table {
	rows := make([][]string, t.Len())
	for i := range rows {
		row := make([]string, len(cols))
		for j, c := range cols {
			row[j] = t.Value(i, c)
		}
		rows[i] = row
	}
	return New(cols, rows)
}
