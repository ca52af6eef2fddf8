package core

// units.go resolves raw facet unit strings to catalog unit ids.
//
// Scoring normalizes both sides (lowercase, NFKD, combining marks removed,
// non-alphanumerics collapsed to one space) and compares the input against
// every alias of a candidate id. An exact alias hit scores 1; otherwise the
// score is the bigram Dice coefficient plus a small prefix/containment boost.

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultUnitThreshold is the minimum confidence, in percent, for a unit
// suggestion to be accepted.
const DefaultUnitThreshold = 50

// UnitUncategorized is the category of units listed without one.
const UnitUncategorized = "Uncategorized"

// UnitCatalog maps category to its sorted unit ids.
type UnitCatalog map[string][]string

// Categories returns the category names, sorted.
func (c UnitCatalog) Categories() []string {
	out := make([]string, 0, len(c))
	for k := range c {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Has reports whether unitID is listed under category.
func (c UnitCatalog) Has(category, unitID string) bool {
	for _, id := range c[category] {
		if id == unitID {
			return true
		}
	}
	return false
}

// UnitMapping is the catalog entry chosen for an input unit.
type UnitMapping struct {
	Category string `json:"category"`
	UnitID   string `json:"unitId"`
}

// WithCategory returns the mapping after a category change. Choosing the
// placeholder category forces the placeholder unit; any other category
// clears the unit id.
func (u UnitMapping) WithCategory(category string) UnitMapping {
	if category == Placeholder {
		return UnitMapping{Category: Placeholder, UnitID: Placeholder}
	}
	return UnitMapping{Category: category}
}

// Kode is the unit code written to the unitKode column.
func (u UnitMapping) Kode() string {
	switch {
	case u.Category == Placeholder:
		return Placeholder
	case u.Category != "" && u.UnitID != "":
		return u.UnitID
	default:
		return ""
	}
}

// UnitSuggestion is the best catalog match for an input unit.
type UnitSuggestion struct {
	Mapping    UnitMapping
	Score      float64
	Confidence int
}

// unitSymbols are common spellings per catalog unit id.
var unitSymbols = map[string][]string{
	"amperes":                   {"a", "amp", "amps", "ampere", "amperes"},
	"milliamperes":              {"ma", "milliamp", "milliamps", "milliampere", "milliamperes"},
	"btu":                       {"btu", "btus"},
	"btus per hour":             {"btu/h", "btuh", "btu per hour", "btus per hour"},
	"kilobtus_per_hour":         {"kbtu/h", "kbtuh", "kbtu per hour"},
	"megabtus_per_hour":         {"mbtu/h", "mbtuh", "mbtu per hour"},
	"watt":                      {"w", "watt", "watts"},
	"kilowatt":                  {"kw", "kilowatt", "kilowatts"},
	"megawatt":                  {"mw", "megawatt", "megawatts"},
	"horsepower":                {"hp", "horsepower"},
	"gallons per minute":        {"gpm", "gal/min", "gallons per minute"},
	"gallons per hour":          {"gph", "gal/hr", "gallons per hour"},
	"cubic feet per minute":     {"cfm", "cubic feet per minute"},
	"cubic feet per hour":       {"cfh", "cubic feet per hour"},
	"air changes per hour":      {"acph", "air changes per hour"},
	"hertz":                     {"hz", "hertz"},
	"kilohertz":                 {"khz", "kilohertz"},
	"megahertz":                 {"mhz", "megahertz"},
	"gigahertz":                 {"ghz", "gigahertz"},
	"percent":                   {"%", "percent", "percentage"},
	"percent_relative_humidity": {"%rh", "rh", "relative humidity"},
	"fahrenheit":                {"f", "°f", "deg f", "fahrenheit"},
	"celsius":                   {"c", "°c", "deg c", "celsius", "centigrade"},
	"kelvin":                    {"k", "kelvin"},
	"volt":                      {"v", "volt", "volts"},
	"kilovolt":                  {"kv", "kilovolt", "kilovolts"},
	"megavolt":                  {"mv", "megavolt", "megavolts"},
	"milli_volt":                {"mv", "millivolt", "millivolts"},
	"liters per minute":         {"l/min", "lpm", "liters per minute"},
	"liters per second":         {"l/s", "liters per second"},
	"liters per hour":           {"l/h", "liters per hour"},
	"cubic meters per hour":     {"m3/h", "m³/h", "cubic meters per hour"},
	"cubic meters per second":   {"m3/s", "m³/s", "cubic meters per second"},
	"meters per second":         {"m/s", "meters per second"},
	"feet per minute":           {"ft/min", "fpm", "feet per minute"},
	"feet per second":           {"ft/s", "fps", "feet per second"},
	"miles per hour":            {"mph", "miles per hour"},
	"pounds per square inch":    {"psi", "pounds per square inch"},
	"pascal":                    {"pa", "pascal", "pascals"},
	"kilopascal":                {"kpa", "kilopascal", "kilopascals"},
	"inches_of_water":           {"in wc", "in/wc", "inch water", "inches of water"},
	"inches_of_mercury":         {"inhg", "in hg", "inches of mercury"},
	"watt_hour":                 {"wh", "watt hour", "watt-hour"},
	"kilowatt_hour":             {"kwh", "kilowatt hour", "kilowatt-hour"},
	"megawatt_hour":             {"mwh", "megawatt hour", "megawatt-hour"},
	"joule":                     {"j", "joule", "joules"},
	"gigajoule":                 {"gj", "gigajoule", "gigajoules"},
	"joules_per_hour":           {"j/h", "joules per hour"},
	"gigajoule_per_hour":        {"gj/h", "gigajoules per hour"},
	"volt_ampere":               {"va", "volt ampere"},
	"kilovolt_ampere":           {"kva", "kilovolt ampere"},
	"megavolt_ampere":           {"mva", "megavolt ampere"},
	"volt_ampere_reactive":      {"var", "volt ampere reactive"},
	"kilovolt_ampere_reactive":  {"kvar", "kilovolt ampere reactive"},
	"megavolt_ampere_reactive":  {"mvar", "megavolt ampere reactive"},
	"powerfactor":               {"pf", "power factor"},
	"lux":                       {"lx", "lux"},
	"watt_per_square_meter":     {"w/m2", "w/m²", "w per m2", "w per m²"},
	"footcandle":                {"fc", "ftcd", "footcandle"},
	"ohm":                       {"ohm", "Ω"},
	"kiloohm":                   {"kΩ", "kohm", "kiloohm"},
	"siemens_per_meter":         {"s/m", "siemens per meter"},
	"rpm":                       {"rpm", "revolutions per minute"},
	"parts_per_million":         {"ppm", "parts per million"},
	"parts_per_billion":         {"ppb", "parts per billion"},
	"mg_per_liter":              {"mg/l", "mg per liter"},
	"ug_per_cubic_meter":        {"ug/m3", "µg/m3", "microgram per cubic meter"},
}

var (
	nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)
	perWord  = regexp.MustCompile(`\bper\b`)
	spaces   = regexp.MustCompile(`\s+`)
)

func isCombiningMark(r rune) bool { return r >= 0x0300 && r <= 0x036f }

// normalizeUnit folds a unit string to lowercase ASCII words.
func normalizeUnit(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.Predicate(isCombiningMark)))
	folded, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		folded = strings.ToLower(s)
	}
	return strings.TrimSpace(nonAlnum.ReplaceAllString(folded, " "))
}

// Dice is the Sørensen-Dice coefficient of the character bigrams of the
// normalized inputs. Repeated bigrams count once per occurrence.
func Dice(a, b string) float64 {
	na, nb := normalizeUnit(a), normalizeUnit(b)
	if na == "" || nb == "" {
		return 0
	}
	ga, gb := bigrams(na), bigrams(nb)
	if len(ga) == 0 || len(gb) == 0 {
		if na == nb {
			return 1
		}
		return 0
	}
	counts := make(map[string]int, len(ga))
	for _, g := range ga {
		counts[g]++
	}
	inter := 0
	for _, g := range gb {
		if counts[g] > 0 {
			inter++
			counts[g]--
		}
	}
	return float64(2*inter) / float64(len(ga)+len(gb))
}

func bigrams(s string) []string {
	if len(s) < 2 {
		return nil
	}
	out := make([]string, 0, len(s)-1)
	for i := 0; i+1 < len(s); i++ {
		out = append(out, s[i:i+2])
	}
	return out
}

func singularize(w string) string {
	if strings.HasSuffix(w, "s") && len(w) > 3 {
		return w[:len(w)-1]
	}
	return w
}

// unitAliases lists the normalized spellings that identify unitID.
func unitAliases(unitID string) []string {
	base := strings.ReplaceAll(unitID, "_", " ")
	candidates := []string{
		unitID,
		base,
		perWord.ReplaceAllString(base, "/"),
		spaces.ReplaceAllString(base, ""),
		singularize(base),
		singularize(unitID),
	}
	candidates = append(candidates, unitSymbols[unitID]...)

	seen := make(map[string]bool, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		n := normalizeUnit(c)
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// ScoreUnitMatch scores how well input names unitID, from 0 to 1.
func ScoreUnitMatch(input, unitID string) float64 {
	in := normalizeUnit(input)
	best := 0.0
	for _, alias := range unitAliases(unitID) {
		if alias == "" {
			continue
		}
		if alias == in {
			return 1
		}
		s := Dice(in, alias)
		switch {
		case strings.HasPrefix(in, alias) || strings.HasPrefix(alias, in):
			s += 0.05
		case strings.Contains(in, alias) || strings.Contains(alias, in):
			s += 0.03
		}
		best = math.Max(best, math.Min(1, s))
	}
	return best
}

// SuggestUnit returns the best catalog match for input. ok is false when the
// best confidence is below threshold.
func SuggestUnit(input string, catalog UnitCatalog, threshold int) (UnitSuggestion, bool) {
	var best UnitSuggestion
	for _, cat := range catalog.Categories() {
		for _, id := range catalog[cat] {
			score := ScoreUnitMatch(input, id)
			if score > best.Score {
				best = UnitSuggestion{Mapping: UnitMapping{Category: cat, UnitID: id}, Score: score}
			}
		}
	}
	best.Confidence = int(math.Round(best.Score * 100))
	if best.Confidence < threshold || best.Mapping.UnitID == "" || best.Mapping.Category == "" {
		return UnitSuggestion{Confidence: best.Confidence, Score: best.Score}, false
	}
	return best, true
}

// SeedUnits seeds a suggestion for every input unit that has none yet.
// Units without an acceptable match are seeded blank with zero confidence.
func SeedUnits(res *Resolutions[UnitMapping], inputs []string, catalog UnitCatalog, threshold int) {
	for _, u := range inputs {
		if _, ok := res.Get(u); ok {
			continue
		}
		if s, ok := SuggestUnit(u, catalog, threshold); ok {
			res.Seed(u, s.Mapping, s.Confidence)
			continue
		}
		res.Seed(u, UnitMapping{}, 0)
	}
}

// UnitReviewOrder orders input units for review: units without an accepted
// suggestion first, then by ascending confidence. Ties keep input order.
func UnitReviewOrder(res *Resolutions[UnitMapping], inputs []string, threshold int) []string {
	out := append([]string(nil), inputs...)
	conf := func(u string) int {
		e, _ := res.Get(u)
		return e.Confidence
	}
	sort.SliceStable(out, func(i, j int) bool {
		ci, cj := conf(out[i]), conf(out[j])
		hi, hj := ci >= threshold, cj >= threshold
		if hi != hj {
			return !hi
		}
		return ci < cj
	})
	return out
}
