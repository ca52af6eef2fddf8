package core

// facets.go attaches facet blobs to the working table.
//
// A facet blob packs named sub-attributes of a point into one cell:
//
//	units=°F;trueText=b:On|falseText=b:Off;precision=1
//
// The join keys both sides on the canonical slot identifier (see JoinKey) and
// always keeps every anchor row.

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/JonMunkholm/loadsheet/internal/table"
)

// Derived columns added by the facet join.
const (
	ColumnSP       = "SP"
	ColumnFacets   = "FACETS"
	ColumnOut      = "OUT"
	ColumnWritable = "writable"
)

// Facet names with reserved meaning.
const (
	FacetUnits     = "units"
	FacetTrueText  = "trueText"
	FacetFalseText = "falseText"
)

// defaultSlotColumn is used when the mapped slotpath column is absent.
const defaultSlotColumn = "slotpath"

// Facets is a parsed facet blob. Names keep first-appearance order; a name
// that repeats keeps its position and takes the last value.
type Facets struct {
	names  []string
	values map[string]string
}

// ParseFacets parses a blob of name=value tokens separated by ';' or '|'.
// Tokens without '=' or with an empty name are ignored, and a single-letter
// type prefix such as "A:" or "b:" is stripped from values.
func ParseFacets(blob string) Facets {
	f := Facets{values: make(map[string]string)}
	tokens := strings.FieldsFunc(blob, func(r rune) bool { return r == ';' || r == '|' })
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		name, val, ok := strings.Cut(tok, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		val = strings.TrimSpace(stripTypePrefix(strings.TrimSpace(val)))
		if _, seen := f.values[name]; !seen {
			f.names = append(f.names, name)
		}
		f.values[name] = val
	}
	return f
}

func stripTypePrefix(v string) string {
	if len(v) >= 2 && v[1] == ':' && isASCIILetter(v[0]) {
		return v[2:]
	}
	return v
}

func isASCIILetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// Names returns facet names in order.
func (f Facets) Names() []string { return append([]string(nil), f.names...) }

// Get returns the value of a facet.
func (f Facets) Get(name string) string { return f.values[name] }

// Has reports whether the facet is present.
func (f Facets) Has(name string) bool {
	_, ok := f.values[name]
	return ok
}

// Len returns the number of distinct facets.
func (f Facets) Len() int { return len(f.names) }

// FacetSource selects where facet blobs come from.
type FacetSource string

const (
	// SourceInitial reads facets from a column of the working table itself.
	SourceInitial FacetSource = "initial"
	// SourceUpload reads facets from a separately uploaded table.
	SourceUpload FacetSource = "upload"
)

// FacetJoinOptions configures JoinFacets.
type FacetJoinOptions struct {
	Source FacetSource

	// FacetsColumn and OutColumn name the facet and OUT columns of the
	// source: the working table in initial mode, Right in upload mode.
	// OutColumn is optional.
	FacetsColumn string
	OutColumn    string

	// Right and RightSlotColumn are used in upload mode only.
	Right           *table.Table
	RightSlotColumn string
}

// JoinResult is the joined table with its match classification.
type JoinResult struct {
	Table *table.Table
	// Matched and Missing hold 0-based row indexes into Table.
	Matched []int
	Missing []int
}

// MatchedTable returns the rows that received facets.
func (r JoinResult) MatchedTable() *table.Table { return r.Table.Select(r.Matched) }

// MissingTable returns the rows that did not receive facets.
func (r JoinResult) MissingTable() *table.Table { return r.Table.Select(r.Missing) }

// JoinFacets left-joins facet blobs onto left by canonical slot identifier.
// The result carries SP, FACETS, OUT and writable columns; writable is "true"
// when OUT contains '@'. Configurations that cannot be joined yield an empty
// table and are logged.
func JoinFacets(ctx context.Context, left *table.Table, m Mapping, opts FacetJoinOptions) JoinResult {
	slotCol := m.Column(RoleSlotpath)
	if !left.Has(slotCol) {
		slotCol = defaultSlotColumn
	}
	if !left.Has(slotCol) {
		slog.WarnContext(ctx, "facet join: slotpath column missing", "column", m.Column(RoleSlotpath))
		return JoinResult{Table: table.Empty()}
	}

	sp := mapValues(left.Column(slotCol), JoinKey)
	out := left.WithColumn(ColumnSP, sp)

	var facets, outs []string
	switch opts.Source {
	case SourceInitial, "":
		if !left.Has(opts.FacetsColumn) {
			slog.WarnContext(ctx, "facet join: facets column missing", "column", opts.FacetsColumn)
			return JoinResult{Table: table.Empty()}
		}
		facets = left.Column(opts.FacetsColumn)
		outs = left.Column(opts.OutColumn)

	case SourceUpload:
		right := opts.Right
		if right == nil || !right.Has(opts.RightSlotColumn) || !right.Has(opts.FacetsColumn) {
			slog.WarnContext(ctx, "facet join: upload missing slotpath or facets column",
				"slot_column", opts.RightSlotColumn, "facets_column", opts.FacetsColumn)
			return JoinResult{Table: table.Empty()}
		}
		idx := newKeyIndex(mapValues(right.Column(opts.RightSlotColumn), JoinKey))
		facets = make([]string, len(sp))
		outs = make([]string, len(sp))
		for i, key := range sp {
			if j, ok := idx.lookup(key); ok {
				facets[i] = right.Value(j, opts.FacetsColumn)
				outs[i] = right.Value(j, opts.OutColumn)
			}
		}

	default:
		slog.WarnContext(ctx, "facet join: unknown source", "source", opts.Source)
		return JoinResult{Table: table.Empty()}
	}

	writable := make([]string, len(outs))
	for i, o := range outs {
		writable[i] = strconv.FormatBool(strings.Contains(o, "@"))
	}
	out = out.WithColumn(ColumnFacets, facets).
		WithColumn(ColumnOut, outs).
		WithColumn(ColumnWritable, writable)

	res := JoinResult{Table: out}
	for i, f := range facets {
		if strings.TrimSpace(f) != "" {
			res.Matched = append(res.Matched, i)
		} else {
			res.Missing = append(res.Missing, i)
		}
	}
	slog.InfoContext(ctx, "facet join complete",
		"source", opts.Source, "rows", out.Len(), "matched", len(res.Matched), "missing", len(res.Missing))
	return res
}

func mapValues(values []string, fn func(string) string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fn(v)
	}
	return out
}

// keyIndex maps join keys to the first row carrying them.
type keyIndex struct {
	keys    []string
	buckets map[uint64][]int
}

func newKeyIndex(keys []string) keyIndex {
	idx := keyIndex{keys: keys, buckets: make(map[uint64][]int, len(keys))}
	for i, k := range keys {
		h := table.KeyHash(k)
		idx.buckets[h] = append(idx.buckets[h], i)
	}
	return idx
}

// lookup returns the first row whose key equals key.
func (idx keyIndex) lookup(key string) (int, bool) {
	for _, i := range idx.buckets[table.KeyHash(key)] {
		if idx.keys[i] == key {
			return i, true
		}
	}
	return 0, false
}
