package core

import (
	"sort"
	"strings"
)

// EnumKeys are the catalog keys for the true and false states of a binary
// point.
type EnumKeys struct {
	TrueKey  string `json:"trueKey"`
	FalseKey string `json:"falseKey"`
}

// Complete reports whether both keys are set.
func (k EnumKeys) Complete() bool { return k.TrueKey != "" && k.FalseKey != "" }

// EnumCatalog maps an ontology field to its required enum keys.
type EnumCatalog map[string]EnumKeys

// Fields returns the catalog fields, sorted.
func (c EnumCatalog) Fields() []string {
	out := make([]string, 0, len(c))
	for f := range c {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Options returns every distinct non-empty key, sorted. These are the values
// a user may pick when overriding an enum suggestion.
func (c EnumCatalog) Options() []string {
	seen := make(map[string]bool)
	var out []string
	for _, k := range c {
		for _, v := range []string{k.TrueKey, k.FalseKey} {
			if v != "" && !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Triple is the (field, trueText, falseText) combination of a binary point.
type Triple struct {
	Field     string `json:"field"`
	TrueText  string `json:"trueText"`
	FalseText string `json:"falseText"`
}

// Key returns the composite key "field||trueText||falseText".
func (t Triple) Key() string { return TripleKey(t.Field, t.TrueText, t.FalseText) }

// TripleKey builds the composite enum mapping key.
func TripleKey(field, trueText, falseText string) string {
	return field + "||" + trueText + "||" + falseText
}

func foldEnum(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// SuggestEnum proposes enum keys for t. A catalog entry for the triple's
// field wins outright; otherwise the first entry (in field order) whose true
// key contains the true text, or whose false key contains the false text, is
// used. No match yields empty keys.
func SuggestEnum(t Triple, catalog EnumCatalog) (EnumKeys, bool) {
	if k, ok := catalog[t.Field]; ok {
		return k, true
	}
	tt, ft := foldEnum(t.TrueText), foldEnum(t.FalseText)
	for _, f := range catalog.Fields() {
		k := catalog[f]
		if tt != "" && strings.Contains(foldEnum(k.TrueKey), tt) {
			return k, true
		}
		if ft != "" && strings.Contains(foldEnum(k.FalseKey), ft) {
			return k, true
		}
	}
	return EnumKeys{}, false
}

// SeedEnums seeds a suggestion for every triple that has none yet.
func SeedEnums(res *Resolutions[EnumKeys], triples []Triple, catalog EnumCatalog) {
	for _, t := range triples {
		keys, ok := SuggestEnum(t, catalog)
		conf := 0
		if ok {
			conf = 100
		}
		res.Seed(t.Key(), keys, conf)
	}
}
