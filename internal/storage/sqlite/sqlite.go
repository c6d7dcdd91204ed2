package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/FranksOps/rankr/internal/serp"
	"github.com/FranksOps/rankr/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS serp_results (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	created_at DATETIME NOT NULL,
	query TEXT NOT NULL,
	position INTEGER NOT NULL,
	domain_found BOOLEAN NOT NULL,
	title TEXT NOT NULL,
	link TEXT NOT NULL,
	snippet_type TEXT NOT NULL,
	serp_html TEXT NOT NULL,
	PRIMARY KEY (run_id, seq)
);
CREATE INDEX IF NOT EXISTS serp_results_query_idx ON serp_results (query, created_at);
`

// New creates a SQLite-backed storage.Backend used as rank history.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, r *storage.Record) error {
	query := `
	INSERT INTO serp_results (
		run_id, seq, created_at, query, position, domain_found, title, link, snippet_type, serp_html
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := b.db.ExecContext(ctx, query,
		r.RunID,
		r.Seq,
		r.CreatedAt.UTC(), // stored as text; one zone keeps comparisons ordered
		r.Query,
		r.Position,
		r.DomainFound,
		r.Title,
		r.Link,
		string(r.SnippetType),
		r.SERPHTML,
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert %s/%d: %w", r.RunID, r.Seq, err)
	}

	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Record, error) {
	query := `SELECT run_id, seq, created_at, query, position, domain_found, title, link, snippet_type, serp_html FROM serp_results WHERE 1=1`
	args := []any{}

	if filter.Query != "" {
		query += ` AND query = ?`
		args = append(args, filter.Query)
	}
	if filter.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, filter.RunID)
	}
	if filter.DomainFound != nil {
		query += ` AND domain_found = ?`
		args = append(args, *filter.DomainFound)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}

	query += ` ORDER BY created_at ASC, run_id ASC, seq ASC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		// SQLite only accepts OFFSET after a LIMIT.
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query: %w", err)
	}
	defer rows.Close()

	var results []*storage.Record
	for rows.Next() {
		var r storage.Record
		var snippet string

		err := rows.Scan(
			&r.RunID, &r.Seq, &r.CreatedAt, &r.Query, &r.Position,
			&r.DomainFound, &r.Title, &r.Link, &snippet, &r.SERPHTML,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}
		r.SnippetType = serp.SnippetType(snippet)

		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: rows: %w", err)
	}

	return results, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
