package core

import "sort"

// Resolved is a suggested value that the user may replace. Once an override
// is set it is never replaced by a later suggestion.
type Resolved[T any] struct {
	Suggested T  `json:"suggested"`
	Override  *T `json:"override,omitempty"`
	// Confidence is the 0-100 score of the suggestion, when one was scored.
	Confidence int `json:"confidence,omitempty"`
}

// Effective returns the override when set, else the suggestion.
func (r Resolved[T]) Effective() T {
	if r.Override != nil {
		return *r.Override
	}
	return r.Suggested
}

// Overridden reports whether the user replaced the suggestion.
func (r Resolved[T]) Overridden() bool { return r.Override != nil }

// Resolutions holds one Resolved value per input token.
type Resolutions[T any] struct {
	entries map[string]Resolved[T]
}

// NewResolutions returns an empty set.
func NewResolutions[T any]() *Resolutions[T] {
	return &Resolutions[T]{entries: make(map[string]Resolved[T])}
}

// Seed records a suggestion for key. Keys that already exist keep their
// suggestion and override: suggestions are made once per key.
func (r *Resolutions[T]) Seed(key string, suggested T, confidence int) bool {
	if _, ok := r.entries[key]; ok {
		return false
	}
	r.entries[key] = Resolved[T]{Suggested: suggested, Confidence: confidence}
	return true
}

// Override pins key to v. Unknown keys are created with v as both the
// suggestion and the override.
func (r *Resolutions[T]) Override(key string, v T) {
	e, ok := r.entries[key]
	if !ok {
		e.Suggested = v
	}
	e.Override = &v
	r.entries[key] = e
}

// Get returns the resolution for key.
func (r *Resolutions[T]) Get(key string) (Resolved[T], bool) {
	e, ok := r.entries[key]
	return e, ok
}

// Effective returns the effective value for key, or the zero value.
func (r *Resolutions[T]) Effective(key string) T {
	return r.entries[key].Effective()
}

// Keys returns every key, sorted.
func (r *Resolutions[T]) Keys() []string {
	keys := make([]string, 0, len(r.entries))
	for k := range r.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys.
func (r *Resolutions[T]) Len() int { return len(r.entries) }

// Values returns the effective value of every key.
func (r *Resolutions[T]) Values() map[string]T {
	out := make(map[string]T, len(r.entries))
	for k, e := range r.entries {
		out[k] = e.Effective()
	}
	return out
}
