package postgres

import (
	"context"
	"fmt"

	"github.com/FranksOps/scholar/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

// Pool is the subset of *pgxpool.Pool used by the backend.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

type postgresBackend struct {
	pool Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS search_runs (
	id TEXT PRIMARY KEY,
	query TEXT NOT NULL,
	keywords TEXT[] NOT NULL,
	mode TEXT NOT NULL,
	year_from INTEGER NOT NULL,
	year_to INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS paper_records (
	run_id TEXT NOT NULL REFERENCES search_runs(id),
	position INTEGER NOT NULL,
	title TEXT NOT NULL,
	authors TEXT NOT NULL,
	year TEXT NOT NULL,
	citations TEXT NOT NULL,
	doi TEXT NOT NULL,
	url TEXT NOT NULL,
	abstract TEXT NOT NULL,
	PRIMARY KEY (run_id, position)
);
`

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	return NewWithPool(ctx, pool)
}

// NewWithPool creates the schema on an existing pool and wraps it as a backend.
func NewWithPool(ctx context.Context, pool Pool) (storage.Backend, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &postgresBackend{pool: pool}, nil
}

const insertRun = `
INSERT INTO search_runs (id, query, keywords, mode, year_from, year_to, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`

const insertRecord = `
INSERT INTO paper_records (run_id, position, title, authors, year, citations, doi, url, abstract)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

func (b *postgresBackend) Save(ctx context.Context, run *storage.Run) error {
	tx, err := b.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, insertRun,
		run.ID, run.Query, run.Keywords, run.Mode, run.YearFrom, run.YearTo, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	for i, r := range run.Records {
		_, err = tx.Exec(ctx, insertRecord,
			run.ID, i, r.Title, r.Authors, r.Year, r.Citations, r.DOI, r.URL, r.Abstract)
		if err != nil {
			return fmt.Errorf("inserting record %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Run, error) {
	query := `SELECT id, query, keywords, mode, year_from, year_to, created_at FROM search_runs WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.RunID != "" {
		query += fmt.Sprintf(` AND id = $%d`, paramCount)
		args = append(args, filter.RunID)
		paramCount++
	}
	if filter.Query != "" {
		query += fmt.Sprintf(` AND query = $%d`, paramCount)
		args = append(args, filter.Query)
		paramCount++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, paramCount)
		args = append(args, *filter.Since)
		paramCount++
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}

	var runs []*storage.Run
	for rows.Next() {
		var r storage.Run
		if err := rows.Scan(&r.ID, &r.Query, &r.Keywords, &r.Mode, &r.YearFrom, &r.YearTo, &r.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, &r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}

	for _, r := range runs {
		records, err := b.records(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		r.Records = records
	}

	return runs, nil
}

func (b *postgresBackend) records(ctx context.Context, runID string) ([]storage.PaperRecord, error) {
	rows, err := b.pool.Query(ctx, `
	SELECT title, authors, year, citations, doi, url, abstract
	FROM paper_records WHERE run_id = $1 ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	records := []storage.PaperRecord{}
	for rows.Next() {
		var p storage.PaperRecord
		if err := rows.Scan(&p.Title, &p.Authors, &p.Year, &p.Citations, &p.DOI, &p.URL, &p.Abstract); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}
	return records, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
