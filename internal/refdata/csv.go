package refdata

import (
	"fmt"
	"io"
	"strings"

	"github.com/JonMunkholm/loadsheet/internal/core"
	"github.com/JonMunkholm/loadsheet/internal/table"
)

// Header aliases accepted by the reference CSV loaders, in lookup order.
var (
	ontologyCanonical = []string{"canonical_type", "canonicalType", "canonical", "CANONICAL_TYPE"}
	ontologyField     = []string{"field", "Field", "FIELD"}
	ontologyKinds     = []string{"supported_kinds", "supportedKinds", "SUPPORTED_KINDS"}
	ontologyMulti     = []string{"multi", "Multi", "MULTI"}

	unitID       = []string{"ID", "Id", "id"}
	unitCategory = []string{"Category", "category"}

	enumField = []string{"Field", "field"}
	enumTrue  = []string{"Required Enum TRUE", "Required Enum True", "Required_Enum_TRUE"}
	enumFalse = []string{"Required Enum FALSE", "Required Enum False", "Required_Enum_FALSE"}
)

// LoadOntology reads ontology field rules. Rows without a canonical type or
// field are skipped.
func LoadOntology(r io.Reader) ([]core.OntologyFieldRule, error) {
	t, err := read(r)
	if err != nil {
		return nil, err
	}
	var rules []core.OntologyFieldRule
	for i := 0; i < t.Len(); i++ {
		ct := pick(t, i, ontologyCanonical)
		f := pick(t, i, ontologyField)
		if ct == "" || f == "" {
			continue
		}
		rules = append(rules, core.OntologyFieldRule{
			CanonicalType:  ct,
			Field:          f,
			SupportedKinds: splitKinds(pick(t, i, ontologyKinds)),
			Multi:          truthy(pick(t, i, ontologyMulti)),
		})
	}
	return rules, nil
}

// LoadUnits reads the units catalog grouped by category. Units without a
// category are listed under core.UnitUncategorized.
func LoadUnits(r io.Reader) (core.UnitCatalog, error) {
	t, err := read(r)
	if err != nil {
		return nil, err
	}
	b := newUnitBuilder()
	for i := 0; i < t.Len(); i++ {
		b.add(pick(t, i, unitID), pick(t, i, unitCategory))
	}
	return b.catalog(), nil
}

// LoadEnums reads the required enum keys per field. A repeated field keeps
// its last row.
func LoadEnums(r io.Reader) (core.EnumCatalog, error) {
	t, err := read(r)
	if err != nil {
		return nil, err
	}
	cat := make(core.EnumCatalog)
	for i := 0; i < t.Len(); i++ {
		f := pick(t, i, enumField)
		if f == "" {
			continue
		}
		cat[f] = core.EnumKeys{TrueKey: pick(t, i, enumTrue), FalseKey: pick(t, i, enumFalse)}
	}
	return cat, nil
}

func read(r io.Reader) (*table.Table, error) {
	res, err := table.ReadCSV(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return res.Table, nil
}

// pick returns the first non-blank value among the alias columns.
func pick(t *table.Table, i int, aliases []string) string {
	for _, a := range aliases {
		if v := strings.TrimSpace(t.Value(i, a)); v != "" {
			return v
		}
	}
	return ""
}

func splitKinds(v string) []string {
	var out []string
	for _, k := range strings.Split(v, ";") {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}
