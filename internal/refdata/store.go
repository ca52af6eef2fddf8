package refdata

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/JonMunkholm/loadsheet/internal/core"
)

// DefaultLoadTimeout bounds a single reference table load.
const DefaultLoadTimeout = 30 * time.Second

// Store serves reference data to the pipeline. Each table is loaded on first
// use, once, however many callers ask concurrently. A failed load is not
// cached and is retried by the next caller.
type Store struct {
	src     Source
	timeout time.Duration
	group   singleflight.Group

	mu       sync.RWMutex
	ontology *core.Ontology
	units    core.UnitCatalog
	enums    core.EnumCatalog
}

var _ core.ReferenceData = (*Store)(nil)

// NewStore creates a Store over src. A non-positive timeout selects
// DefaultLoadTimeout.
func NewStore(src Source, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}
	return &Store{src: src, timeout: timeout}
}

// Ontology returns the ontology, loading it if needed.
func (s *Store) Ontology(ctx context.Context) (*core.Ontology, error) {
	return load(ctx, s, "ontology",
		func() (*core.Ontology, bool) { return s.ontology, s.ontology != nil },
		func(ctx context.Context) (*core.Ontology, error) {
			rules, err := s.src.Ontology(ctx)
			if err != nil {
				return nil, err
			}
			return core.NewOntology(rules), nil
		},
		func(o *core.Ontology) { s.ontology = o },
	)
}

// Units returns the units catalog, loading it if needed.
func (s *Store) Units(ctx context.Context) (core.UnitCatalog, error) {
	return load(ctx, s, "units",
		func() (core.UnitCatalog, bool) { return s.units, s.units != nil },
		s.src.Units,
		func(c core.UnitCatalog) { s.units = c },
	)
}

// Enums returns the enums catalog, loading it if needed.
func (s *Store) Enums(ctx context.Context) (core.EnumCatalog, error) {
	return load(ctx, s, "enums",
		func() (core.EnumCatalog, bool) { return s.enums, s.enums != nil },
		s.src.Enums,
		func(c core.EnumCatalog) { s.enums = c },
	)
}

// Preload loads all three tables concurrently and returns the first error.
func (s *Store) Preload(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { _, err := s.Ontology(ctx); return err })
	g.Go(func() error { _, err := s.Units(ctx); return err })
	g.Go(func() error { _, err := s.Enums(ctx); return err })
	return g.Wait()
}

// Status reports which tables are loaded.
type Status struct {
	Ontology bool `json:"ontology"`
	Units    bool `json:"units"`
	Enums    bool `json:"enums"`
}

// Status returns the load state of each table.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Ontology: s.ontology.Loaded(),
		Units:    s.units != nil,
		Enums:    s.enums != nil,
	}
}

// Reset drops every cached table.
func (s *Store) Reset() {
	s.mu.Lock()
	s.ontology, s.units, s.enums = nil, nil, nil
	s.mu.Unlock()
}

func load[T any](ctx context.Context, s *Store, name string, cached func() (T, bool), fetch func(context.Context) (T, error), keep func(T)) (T, error) {
	s.mu.RLock()
	v, ok := cached()
	s.mu.RUnlock()
	if ok {
		return v, nil
	}

	res, err, _ := s.group.Do(name, func() (any, error) {
		s.mu.RLock()
		v, ok := cached()
		s.mu.RUnlock()
		if ok {
			return v, nil
		}

		// Detached so one caller's cancellation does not fail the others.
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		start := time.Now()
		v, err := fetch(lctx)
		if err != nil {
			slog.WarnContext(ctx, "reference load failed", "table", name, "error", err)
			return nil, fmt.Errorf("load %s: %w", name, err)
		}
		s.mu.Lock()
		keep(v)
		s.mu.Unlock()
		slog.InfoContext(ctx, "reference data loaded", "table", name, "duration_ms", time.Since(start).Milliseconds())
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return res.(T), nil
}
