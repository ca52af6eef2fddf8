package refdata

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/loadsheet/internal/core"
)

// Reference table queries. supported_kinds holds a ';'-delimited list, as in
// the CSV form.
const (
	queryOntology = `SELECT canonical_type, field, supported_kinds, multi FROM reference_ontology_fields ORDER BY canonical_type, field`
	queryUnits    = `SELECT id, category FROM reference_units ORDER BY id`
	queryEnums    = `SELECT field, required_enum_true, required_enum_false FROM reference_enums ORDER BY field`
)

// Querier is the subset of *pgxpool.Pool used by PostgresSource.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource reads reference tables from Postgres.
type PostgresSource struct {
	db Querier
}

// NewPostgresSource wraps an existing pool or connection.
func NewPostgresSource(db Querier) *PostgresSource {
	return &PostgresSource{db: db}
}

// PoolOptions sizes the reference database pool.
type PoolOptions struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Connect opens and pings a pool for url.
func Connect(ctx context.Context, url string, opts PoolOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		cfg.MinConns = int32(opts.MinConns)
	}
	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect reference database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping reference database: %w", err)
	}
	return pool, nil
}

func (p *PostgresSource) Ontology(ctx context.Context) ([]core.OntologyFieldRule, error) {
	rows, err := p.db.Query(ctx, queryOntology)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []core.OntologyFieldRule
	for rows.Next() {
		var ct, field, kinds pgtype.Text
		var multi pgtype.Bool
		if err := rows.Scan(&ct, &field, &kinds, &multi); err != nil {
			return nil, fmt.Errorf("scan ontology row: %w", err)
		}
		if text(ct) == "" || text(field) == "" {
			continue
		}
		rules = append(rules, core.OntologyFieldRule{
			CanonicalType:  text(ct),
			Field:          text(field),
			SupportedKinds: splitKinds(text(kinds)),
			Multi:          multi.Valid && multi.Bool,
		})
	}
	return rules, rows.Err()
}

func (p *PostgresSource) Units(ctx context.Context) (core.UnitCatalog, error) {
	rows, err := p.db.Query(ctx, queryUnits)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	b := newUnitBuilder()
	for rows.Next() {
		var id, category pgtype.Text
		if err := rows.Scan(&id, &category); err != nil {
			return nil, fmt.Errorf("scan unit row: %w", err)
		}
		b.add(text(id), text(category))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return b.catalog(), nil
}

func (p *PostgresSource) Enums(ctx context.Context) (core.EnumCatalog, error) {
	rows, err := p.db.Query(ctx, queryEnums)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cat := make(core.EnumCatalog)
	for rows.Next() {
		var field, tk, fk pgtype.Text
		if err := rows.Scan(&field, &tk, &fk); err != nil {
			return nil, fmt.Errorf("scan enum row: %w", err)
		}
		if text(field) == "" {
			continue
		}
		cat[text(field)] = core.EnumKeys{TrueKey: text(tk), FalseKey: text(fk)}
	}
	return cat, rows.Err()
}

// text returns the trimmed string of a nullable text value.
func text(t pgtype.Text) string {
	if !t.Valid {
		return ""
	}
	return strings.TrimSpace(t.String)
}
