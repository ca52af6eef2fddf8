package refdata

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/JonMunkholm/loadsheet/internal/core"
)

// ErrNotConfigured is returned by a source with no location for a table.
var ErrNotConfigured = fmt.Errorf("%w: source not configured", core.ErrReferenceNotLoaded)

// Source fetches the raw reference tables.
type Source interface {
	Ontology(ctx context.Context) ([]core.OntologyFieldRule, error)
	Units(ctx context.Context) (core.UnitCatalog, error)
	Enums(ctx context.Context) (core.EnumCatalog, error)
}

// FileSource reads reference tables from CSV files. An empty path yields
// ErrNotConfigured for that table.
type FileSource struct {
	OntologyPath string
	UnitsPath    string
	EnumsPath    string
}

func (f FileSource) Ontology(ctx context.Context) ([]core.OntologyFieldRule, error) {
	var rules []core.OntologyFieldRule
	err := readFile(f.OntologyPath, func(file *os.File) (err error) {
		rules, err = LoadOntology(file)
		return err
	})
	return rules, err
}

func (f FileSource) Units(ctx context.Context) (core.UnitCatalog, error) {
	var cat core.UnitCatalog
	err := readFile(f.UnitsPath, func(file *os.File) (err error) {
		cat, err = LoadUnits(file)
		return err
	})
	return cat, err
}

func (f FileSource) Enums(ctx context.Context) (core.EnumCatalog, error) {
	var cat core.EnumCatalog
	err := readFile(f.EnumsPath, func(file *os.File) (err error) {
		cat, err = LoadEnums(file)
		return err
	})
	return cat, err
}

func readFile(path string, fn func(*os.File) error) error {
	if path == "" {
		return ErrNotConfigured
	}
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := fn(file); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// unitBuilder groups unit ids by category, dropping blank ids.
type unitBuilder struct {
	cat core.UnitCatalog
}

func newUnitBuilder() *unitBuilder {
	return &unitBuilder{cat: make(core.UnitCatalog)}
}

func (b *unitBuilder) add(id, category string) {
	if id == "" {
		return
	}
	if category == "" {
		category = core.UnitUncategorized
	}
	b.cat[category] = append(b.cat[category], id)
}

func (b *unitBuilder) catalog() core.UnitCatalog {
	for _, ids := range b.cat {
		sort.Strings(ids)
	}
	return b.cat
}

// Multi combines sources. Each table is read from the first source that has
// it configured.
type Multi []Source

func (m Multi) Ontology(ctx context.Context) ([]core.OntologyFieldRule, error) {
	return first(m, func(s Source) ([]core.OntologyFieldRule, error) { return s.Ontology(ctx) })
}

func (m Multi) Units(ctx context.Context) (core.UnitCatalog, error) {
	return first(m, func(s Source) (core.UnitCatalog, error) { return s.Units(ctx) })
}

func (m Multi) Enums(ctx context.Context) (core.EnumCatalog, error) {
	return first(m, func(s Source) (core.EnumCatalog, error) { return s.Enums(ctx) })
}

func first[T any](sources []Source, get func(Source) (T, error)) (T, error) {
	var zero T
	for _, s := range sources {
		v, err := get(s)
		if errors.Is(err, ErrNotConfigured) {
			continue
		}
		return v, err
	}
	return zero, ErrNotConfigured
}
