package core

import "sort"

// Sentinels with fixed meaning in ontology checks.
const (
	NoField          = "!"
	UnknownCanonical = "?"
)

// OntologyFieldRule declares one valid canonical type and field combination.
type OntologyFieldRule struct {
	CanonicalType  string   `json:"canonicalType"`
	Field          string   `json:"field"`
	SupportedKinds []string `json:"supportedKinds"`
	Multi          bool     `json:"multi"`
}

// Ontology indexes the field rules for lookup. It is read-only after
// construction and safe for concurrent use.
type Ontology struct {
	rules      []OntologyFieldRule
	canonicals map[string]bool
	fields     map[string]bool
	combos     map[string]OntologyFieldRule
}

// ComboKey is the lookup key of a canonical type and field pair.
func ComboKey(canonicalType, field string) string {
	return canonicalType + "|||" + field
}

// NewOntology indexes rules. When a combination repeats, the later rule
// replaces the earlier one.
func NewOntology(rules []OntologyFieldRule) *Ontology {
	o := &Ontology{
		rules:      append([]OntologyFieldRule(nil), rules...),
		canonicals: make(map[string]bool),
		fields:     make(map[string]bool),
		combos:     make(map[string]OntologyFieldRule),
	}
	for _, r := range rules {
		o.canonicals[r.CanonicalType] = true
		o.fields[r.Field] = true
		o.combos[ComboKey(r.CanonicalType, r.Field)] = r
	}
	return o
}

// Loaded reports whether the ontology holds any rules. A nil ontology is
// not loaded.
func (o *Ontology) Loaded() bool {
	return o != nil && len(o.rules) > 0
}

// Len returns the number of rules.
func (o *Ontology) Len() int {
	if o == nil {
		return 0
	}
	return len(o.rules)
}

// HasCanonical reports whether ct is a declared canonical type.
func (o *Ontology) HasCanonical(ct string) bool {
	return o != nil && o.canonicals[ct]
}

// HasField reports whether f is a declared field of any canonical type.
func (o *Ontology) HasField(f string) bool {
	return o != nil && o.fields[f]
}

// Combo returns the rule for a canonical type and field pair.
func (o *Ontology) Combo(ct, f string) (OntologyFieldRule, bool) {
	if o == nil {
		return OntologyFieldRule{}, false
	}
	r, ok := o.combos[ComboKey(ct, f)]
	return r, ok
}

// CanonicalTypes returns the declared canonical types, sorted.
func (o *Ontology) CanonicalTypes() []string {
	if o == nil {
		return nil
	}
	out := make([]string, 0, len(o.canonicals))
	for ct := range o.canonicals {
		out = append(out, ct)
	}
	sort.Strings(out)
	return out
}
