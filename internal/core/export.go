package core

import (
	"strconv"
	"strings"

	"github.com/ohler55/ojg"
	"github.com/ohler55/ojg/oj"

	"github.com/JonMunkholm/loadsheet/internal/table"
)

// ExportFilename is the download name of the final export.
const ExportFilename = "export_final.csv"

// Export column names, in output order.
const (
	ExportDeviceExternalID       = "Device External ID"
	ExportDeviceExternalPath     = "Device External Path"
	ExportDeviceName             = "Device Name"
	ExportDeviceLocation         = "Device Location"
	ExportDeviceCanonicalType    = "Device Canonical Type"
	ExportPointExternalID        = "Point External ID"
	ExportPointExternalPath      = "Point External Path"
	ExportPointName              = "Point Name"
	ExportPointUnit              = "Point Unit"
	ExportPointEnum              = "Point Enum"
	ExportPointWritable          = "Point Writable"
	ExportPointKind              = "Point Kind"
	ExportPointMinVal            = "Point Min Val"
	ExportPointMaxVal            = "Point Max Val"
	ExportOntologySuffix         = "Point Ontology Suffix"
	ExportOntologyPrefix         = "Point Ontology Prefix"
	ExportOntologyField          = "Point Ontology Field"
	ExportOntologyDisplayName    = "Point Ontology Display Name"
	ExportOntologyPrecision      = "Point Ontology Precision"
	ExportOntologyDefaultInGraph = "Point Ontology Default In Graph"
	ExportOntologyUnit           = "Point Ontology Unit"
	ExportOntologyCovTolerance   = "Point Ontology Cov Tolerance"
	ExportOntologyWriteMap       = "Point Ontology Write Map"
	ExportOntologyReadMap        = "Point Ontology Read Map Key Values"
	ExportVirtualDeviceName      = "Virtual Device Name"
)

// ExportColumns is the fixed export schema.
var ExportColumns = []string{
	ExportDeviceExternalID,
	ExportDeviceExternalPath,
	ExportDeviceName,
	ExportDeviceLocation,
	ExportDeviceCanonicalType,
	ExportPointExternalID,
	ExportPointExternalPath,
	ExportPointName,
	ExportPointUnit,
	ExportPointEnum,
	ExportPointWritable,
	ExportPointKind,
	ExportPointMinVal,
	ExportPointMaxVal,
	ExportOntologySuffix,
	ExportOntologyPrefix,
	ExportOntologyField,
	ExportOntologyDisplayName,
	ExportOntologyPrecision,
	ExportOntologyDefaultInGraph,
	ExportOntologyUnit,
	ExportOntologyCovTolerance,
	ExportOntologyWriteMap,
	ExportOntologyReadMap,
	ExportVirtualDeviceName,
}

// Every point is exported under one driver device.
const (
	driverExternalID   = "Drivers1"
	driverExternalPath = "slot:/Drivers"
	driverName         = "Drivers"
)

// ExportRow is one output record keyed by export column.
type ExportRow map[string]string

// BuildExportRows emits one export row per row of t. Role columns are read
// through m, falling back to the role name when a role is unmapped. The
// suffix is only exported when suffixes are in use.
func BuildExportRows(t *table.Table, m Mapping, suffixUsed bool) []ExportRow {
	col := func(r Role) string {
		if c := m.Column(r); c != "" && t.Has(c) {
			return c
		}
		return string(r)
	}

	rows := make([]ExportRow, t.Len())
	for i := range rows {
		get := func(c string) string { return t.Value(i, c) }

		field := get(col(RoleField))
		pointName := get(col(RolePointName))
		trueKey, falseKey := get(ColumnTrueKeyKode), get(ColumnFalseKeyKode)
		trueText, falseText := get(FacetTrueText), get(FacetFalseText)

		var pointEnum, writeMap, readMap string
		if trueKey != "" && falseKey != "" {
			pointEnum = trueKey + "," + falseKey
			if trueText != "" && falseText != "" {
				writeMap = encodeWriteMap(trueKey, trueText, falseKey, falseText)
				readMap = encodeReadMap(trueKey, trueText, falseKey, falseText)
			}
		}

		var ontologyField, displayName string
		if field == NoField {
			displayName = pointName
		} else {
			ontologyField = field
		}

		var suffix string
		if suffixUsed {
			suffix = get(col(RoleSuffix))
		}

		rows[i] = ExportRow{
			ExportDeviceExternalID:       driverExternalID,
			ExportDeviceExternalPath:     driverExternalPath,
			ExportDeviceName:             driverName,
			ExportDeviceLocation:         get(ColumnLocation),
			ExportDeviceCanonicalType:    get(col(RoleCanonicalType)),
			ExportPointExternalID:        get(col(RoleHandle)),
			ExportPointExternalPath:      get(ColumnSP),
			ExportPointName:              pointName,
			ExportPointUnit:              get(FacetUnits),
			ExportPointEnum:              pointEnum,
			ExportPointWritable:          get(ColumnWritable),
			ExportPointKind:              get(ColumnPointKind),
			ExportPointMinVal:            get(FacetMinVal),
			ExportPointMaxVal:            get(FacetMaxVal),
			ExportOntologySuffix:         suffix,
			ExportOntologyPrefix:         "",
			ExportOntologyField:          ontologyField,
			ExportOntologyDisplayName:    displayName,
			ExportOntologyPrecision:      get(FacetPrecision),
			ExportOntologyDefaultInGraph: "",
			ExportOntologyUnit:           get(ColumnUnitKode),
			ExportOntologyCovTolerance:   get(FacetCovTolerance),
			ExportOntologyWriteMap:       writeMap,
			ExportOntologyReadMap:        readMap,
			ExportVirtualDeviceName:      get(col(RoleDeviceName)),
		}
	}
	return rows
}

// ExportTable builds the export rows of t as a table in ExportColumns order.
func ExportTable(t *table.Table, m Mapping, suffixUsed bool) *table.Table {
	rows := BuildExportRows(t, m, suffixUsed)
	recs := make([]table.Record, len(rows))
	for i, r := range rows {
		recs[i] = table.Record(r)
	}
	return table.FromRecords(ExportColumns, recs)
}

var jsonOptions = func() ojg.Options {
	o := ojg.DefaultOptions
	o.HTMLUnsafe = true
	o.Sort = true
	o.Indent = 0
	return o
}()

func jsonString(s string) string { return oj.JSON(s, &jsonOptions) }

// encodeWriteMap renders {trueKey: trueText, falseKey: falseText}. Keys that
// look like array indexes are written first in ascending order, as consumers
// that parse the map into an ordered object would see them. A repeated key
// keeps its first position and the last value.
func encodeWriteMap(trueKey, trueText, falseKey, falseText string) string {
	type pair struct{ k, v string }
	pairs := []pair{{trueKey, trueText}}
	if falseKey == trueKey {
		pairs[0].v = falseText
	} else {
		pairs = append(pairs, pair{falseKey, falseText})
	}
	if len(pairs) == 2 {
		a, aok := indexKey(pairs[0].k)
		b, bok := indexKey(pairs[1].k)
		if (bok && !aok) || (aok && bok && b < a) {
			pairs[0], pairs[1] = pairs[1], pairs[0]
		}
	}

	var sb strings.Builder
	sb.WriteByte('{')
	for i, p := range pairs {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(jsonString(p.k))
		sb.WriteByte(':')
		sb.WriteString(jsonString(p.v))
	}
	sb.WriteByte('}')
	return sb.String()
}

// indexKey reports whether k is a canonical array index ("0", "17", never
// "017" or "-1").
func indexKey(k string) (uint64, bool) {
	if k == "" || (len(k) > 1 && k[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(k, 10, 32)
	if err != nil || n == 1<<32-1 {
		return 0, false
	}
	return n, true
}

// encodeReadMap renders [{"k": trueText, "v": trueKey}, {"k": falseText, "v": falseKey}].
func encodeReadMap(trueKey, trueText, falseKey, falseText string) string {
	v := []any{
		map[string]any{"k": trueText, "v": trueKey},
		map[string]any{"k": falseText, "v": falseKey},
	}
	return oj.JSON(v, &jsonOptions)
}
