package postgres

import (
	"context"
	"fmt"

	"github.com/FranksOps/rankr/internal/serp"
	"github.com/FranksOps/rankr/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS serp_results (
	run_id TEXT NOT NULL,
	seq INTEGER NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
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

// New creates a Postgres-backed storage.Backend used as rank history.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: create schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, r *storage.Record) error {
	query := `
	INSERT INTO serp_results (
		run_id, seq, created_at, query, position, domain_found, title, link, snippet_type, serp_html
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := b.pool.Exec(ctx, query,
		r.RunID,
		r.Seq,
		r.CreatedAt,
		r.Query,
		r.Position,
		r.DomainFound,
		r.Title,
		r.Link,
		string(r.SnippetType),
		r.SERPHTML,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert %s/%d: %w", r.RunID, r.Seq, err)
	}

	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Record, error) {
	query := `SELECT run_id, seq, created_at, query, position, domain_found, title, link, snippet_type, serp_html FROM serp_results WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.Query != "" {
		query += fmt.Sprintf(` AND query = $%d`, paramCount)
		args = append(args, filter.Query)
		paramCount++
	}
	if filter.RunID != "" {
		query += fmt.Sprintf(` AND run_id = $%d`, paramCount)
		args = append(args, filter.RunID)
		paramCount++
	}
	if filter.DomainFound != nil {
		query += fmt.Sprintf(` AND domain_found = $%d`, paramCount)
		args = append(args, *filter.DomainFound)
		paramCount++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, paramCount)
		args = append(args, *filter.Since)
		paramCount++
	}

	query += ` ORDER BY created_at ASC, run_id ASC, seq ASC`

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
		return nil, fmt.Errorf("postgres: query: %w", err)
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
			return nil, fmt.Errorf("postgres: scan: %w", err)
		}
		r.SnippetType = serp.SnippetType(snippet)

		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: rows: %w", err)
	}

	return results, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
