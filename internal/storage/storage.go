package storage

import (
	"context"
	"time"

	"github.com/FranksOps/rankr/internal/serp"
)

// Record is one result row as persisted by a backend.
type Record struct {
	RunID     string    `json:"run_id"`
	Seq       int       `json:"seq"` // order of the row within its run, from 0
	CreatedAt time.Time `json:"created_at"`
	serp.ResultRow
}

// NewRecords stamps rows with the run id, their order and createdAt.
func NewRecords(runID string, createdAt time.Time, rows []serp.ResultRow) []*Record {
	out := make([]*Record, 0, len(rows))
	for i, r := range rows {
		out = append(out, &Record{RunID: runID, Seq: i, CreatedAt: createdAt, ResultRow: r})
	}
	return out
}

// Rows strips the storage metadata off records.
func Rows(records []*Record) []serp.ResultRow {
	out := make([]serp.ResultRow, 0, len(records))
	for _, r := range records {
		out = append(out, r.ResultRow)
	}
	return out
}

// Filter allows querying for specific Records.
type Filter struct {
	Query       string
	RunID       string
	DomainFound *bool
	Since       *time.Time
	Limit       int
	Offset      int
}

// Match applies the field filters to r. Limit and Offset are not considered.
func (f Filter) Match(r *Record) bool {
	if f.Query != "" && r.Query != f.Query {
		return false
	}
	if f.RunID != "" && r.RunID != f.RunID {
		return false
	}
	if f.DomainFound != nil && r.DomainFound != *f.DomainFound {
		return false
	}
	if f.Since != nil && r.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}

// Page applies Offset then Limit to an already filtered slice.
func (f Filter) Page(records []*Record) []*Record {
	if f.Offset > 0 {
		if f.Offset >= len(records) {
			return []*Record{}
		}
		records = records[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(records) {
		records = records[:f.Limit]
	}
	return records
}

// Backend defines the interface for storing and querying result rows.
// Query returns records in the order they were saved.
type Backend interface {
	Save(ctx context.Context, record *Record) error
	Query(ctx context.Context, filter Filter) ([]*Record, error)
	Close() error
}

// SaveAll saves records in order and stops at the first error.
func SaveAll(ctx context.Context, b Backend, records []*Record) error {
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.Save(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
