package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/FranksOps/scholar/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS search_runs (
	id TEXT PRIMARY KEY,
	query TEXT NOT NULL,
	keywords TEXT NOT NULL,
	mode TEXT NOT NULL,
	year_from INTEGER NOT NULL,
	year_to INTEGER NOT NULL,
	created_at DATETIME NOT NULL
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

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, run *storage.Run) error {
	keywordsJSON, err := json.Marshal(run.Keywords)
	if err != nil {
		return fmt.Errorf("encoding keywords: %w", err)
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO search_runs (id, query, keywords, mode, year_from, year_to, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Query, string(keywordsJSON), run.Mode, run.YearFrom, run.YearTo, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	for i, r := range run.Records {
		_, err = tx.ExecContext(ctx, `
		INSERT INTO paper_records (run_id, position, title, authors, year, citations, doi, url, abstract)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, i, r.Title, r.Authors, r.Year, r.Citations, r.DOI, r.URL, r.Abstract)
		if err != nil {
			return fmt.Errorf("inserting record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Run, error) {
	query := `SELECT id, query, keywords, mode, year_from, year_to, created_at FROM search_runs WHERE 1=1`
	args := []any{}

	if filter.RunID != "" {
		query += ` AND id = ?`
		args = append(args, filter.RunID)
	}
	if filter.Query != "" {
		query += ` AND query = ?`
		args = append(args, filter.Query)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, *filter.Since)
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []*storage.Run
	for rows.Next() {
		var r storage.Run
		var keywordsJSON string

		if err := rows.Scan(&r.ID, &r.Query, &keywordsJSON, &r.Mode, &r.YearFrom, &r.YearTo, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		if err := json.Unmarshal([]byte(keywordsJSON), &r.Keywords); err != nil {
			return nil, fmt.Errorf("decoding keywords: %w", err)
		}
		runs = append(runs, &r)
	}
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

func (b *sqliteBackend) records(ctx context.Context, runID string) ([]storage.PaperRecord, error) {
	rows, err := b.db.QueryContext(ctx, `
	SELECT title, authors, year, citations, doi, url, abstract
	FROM paper_records WHERE run_id = ? ORDER BY position
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

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
