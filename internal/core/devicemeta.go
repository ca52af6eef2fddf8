package core

// devicemeta.go attaches device metadata (mechanical type, location, area)
// to the expanded table.
//
// Initial mode re-reads the metadata from the uploaded sheet and joins on the
// slot key, one row to one row. Upload mode joins a separate sheet on device
// name, so one metadata row applies to every point of the device. Whatever
// the source column names, the output always carries the three fixed
// metadata columns.

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/JonMunkholm/loadsheet/internal/table"
)

// Fixed metadata output columns.
const (
	ColumnMechanicalType = "Mechanical Type"
	ColumnLocation       = "Location"
	ColumnArea           = "Area"
)

// MetaColumns lists the metadata output columns in order.
var MetaColumns = []string{ColumnMechanicalType, ColumnLocation, ColumnArea}

const defaultDeviceColumn = "device"

// DeviceMetaMode selects the metadata source.
type DeviceMetaMode string

const (
	MetaFromInitial DeviceMetaMode = "initial"
	MetaFromUpload  DeviceMetaMode = "upload"
)

// DeviceMetaOptions configures JoinDeviceMeta. The column fields name
// columns of Source; an empty or absent column leaves its output blank.
type DeviceMetaOptions struct {
	Mode DeviceMetaMode
	// Source is the uploaded sheet in initial mode, the metadata upload in
	// upload mode.
	Source *table.Table

	DeviceColumn         string // upload mode only
	MechanicalTypeColumn string
	LocationColumn       string
	AreaColumn           string
}

func (o DeviceMetaOptions) sourceColumns() []string {
	return []string{o.MechanicalTypeColumn, o.LocationColumn, o.AreaColumn}
}

// DeviceMetaResult is the joined table and the device names the metadata
// source knows about.
type DeviceMetaResult struct {
	Table       *table.Table
	DeviceNames map[string]bool
}

// JoinDeviceMeta left-joins device metadata onto left. Every left row is
// kept and rows without metadata get blank values. When the join keys are
// unavailable left is returned unchanged. left is never modified.
func JoinDeviceMeta(ctx context.Context, left *table.Table, m Mapping, opts DeviceMetaOptions) DeviceMetaResult {
	res := DeviceMetaResult{Table: left.Clone(), DeviceNames: map[string]bool{}}
	if left.Len() == 0 {
		return res
	}

	switch opts.Mode {
	case MetaFromInitial, "":
		return joinMetaBySlot(ctx, left, m, opts)
	case MetaFromUpload:
		return joinMetaByDevice(ctx, left, m, opts)
	default:
		slog.WarnContext(ctx, "device meta: unknown mode", "mode", opts.Mode)
		return res
	}
}

func joinMetaBySlot(ctx context.Context, left *table.Table, m Mapping, opts DeviceMetaOptions) DeviceMetaResult {
	res := DeviceMetaResult{Table: left.Clone(), DeviceNames: map[string]bool{}}
	src := opts.Source

	slotCol := m.Column(RoleSlotpath)
	if !src.Has(slotCol) {
		slotCol = defaultSlotColumn
	}
	if !src.Has(slotCol) {
		slog.WarnContext(ctx, "device meta: slotpath column missing from source", "column", m.Column(RoleSlotpath))
		return res
	}

	base := left
	if !base.Has(ColumnSP) {
		// The expanded table normally carries SP from the facet join. Fall
		// back to the source's keys when the rows line up.
		if src.Len() != left.Len() {
			slog.WarnContext(ctx, "device meta: left table has no SP column")
			return res
		}
		base = left.WithColumn(ColumnSP, mapValues(src.Column(slotCol), JoinKey))
	}

	idx := newKeyIndex(mapValues(src.Column(slotCol), JoinKey))
	out := attachMeta(base, base.Column(ColumnSP), idx, src, opts)

	devCol := m.Column(RoleDeviceName)
	if devCol == "" {
		devCol = defaultDeviceColumn
	}
	res.Table = out
	res.DeviceNames = distinctTrimmed(src, devCol)
	slog.InfoContext(ctx, "device meta joined", "mode", MetaFromInitial, "rows", out.Len(), "devices", len(res.DeviceNames))
	return res
}

func joinMetaByDevice(ctx context.Context, left *table.Table, m Mapping, opts DeviceMetaOptions) DeviceMetaResult {
	res := DeviceMetaResult{Table: left.Clone(), DeviceNames: map[string]bool{}}

	leftDev := m.Column(RoleDeviceName)
	if leftDev == "" {
		leftDev = defaultDeviceColumn
	}
	if !left.Has(leftDev) {
		slog.WarnContext(ctx, "device meta: device column missing from table", "column", leftDev)
		return res
	}
	if opts.Source == nil || opts.DeviceColumn == "" || !opts.Source.Has(opts.DeviceColumn) {
		slog.WarnContext(ctx, "device meta: upload has no device column", "column", opts.DeviceColumn)
		return res
	}

	src := TrimCells(opts.Source)
	idx := newKeyIndex(src.Column(opts.DeviceColumn))
	res.Table = attachMeta(left, left.Column(leftDev), idx, src, opts)
	res.DeviceNames = distinctTrimmed(src, opts.DeviceColumn)
	slog.InfoContext(ctx, "device meta joined", "mode", MetaFromUpload, "rows", left.Len(), "devices", len(res.DeviceNames))
	return res
}

// attachMeta writes the metadata columns onto base using keys to look up
// rows of src. The first source row per key wins.
func attachMeta(base *table.Table, keys []string, idx keyIndex, src *table.Table, opts DeviceMetaOptions) *table.Table {
	srcCols := opts.sourceColumns()
	values := make([][]string, len(MetaColumns))
	for c := range values {
		values[c] = make([]string, len(keys))
	}
	for i, key := range keys {
		j, ok := idx.lookup(key)
		if !ok {
			continue
		}
		for c, col := range srcCols {
			if col != "" {
				values[c][i] = src.Value(j, col)
			}
		}
	}
	out := base
	for c, name := range MetaColumns {
		out = out.WithColumn(name, values[c])
	}
	return out
}

func distinctTrimmed(t *table.Table, col string) map[string]bool {
	out := make(map[string]bool)
	if !t.Has(col) {
		return out
	}
	for _, v := range t.Column(col) {
		if v = strings.TrimSpace(v); v != "" {
			out[v] = true
		}
	}
	return out
}

// TrimCells returns a copy of t with every cell trimmed of surrounding
// whitespace.
func TrimCells(t *table.Table) *table.Table {
	out := t.Clone()
	for _, c := range out.Columns() {
		out = out.MapColumn(c, strings.TrimSpace)
	}
	return out
}

// DeviceCoverage classifies the distinct devices of the joined table.
type DeviceCoverage struct {
	Matched []string `json:"matched"`
	Missing []string `json:"missing"`
}

// CoverDevices reports which devices of t appear in the metadata source.
// Both lists are sorted.
func CoverDevices(t *table.Table, m Mapping, names map[string]bool) DeviceCoverage {
	devCol := m.Column(RoleDeviceName)
	if devCol == "" {
		devCol = defaultDeviceColumn
	}
	var cov DeviceCoverage
	for d := range distinctTrimmed(t, devCol) {
		if names[d] {
			cov.Matched = append(cov.Matched, d)
		} else {
			cov.Missing = append(cov.Missing, d)
		}
	}
	sort.Strings(cov.Matched)
	sort.Strings(cov.Missing)
	return cov
}

// Rows returns the 0-based rows of t whose device is (matched) or is not
// (!matched) present in names.
func (cov DeviceCoverage) Rows(t *table.Table, m Mapping, matched bool) []int {
	devCol := m.Column(RoleDeviceName)
	if devCol == "" {
		devCol = defaultDeviceColumn
	}
	set := make(map[string]bool)
	list := cov.Missing
	if matched {
		list = cov.Matched
	}
	for _, d := range list {
		set[d] = true
	}
	var rows []int
	for i := 0; i < t.Len(); i++ {
		if set[strings.TrimSpace(t.Value(i, devCol))] {
			rows = append(rows, i)
		}
	}
	return rows
}
