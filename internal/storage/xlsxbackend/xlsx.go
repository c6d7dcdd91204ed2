// Package xlsxbackend exports result rows as a spreadsheet.
package xlsxbackend

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/FranksOps/rankr/internal/storage"
	"github.com/xuri/excelize/v2"
)

// Sheet is the worksheet rows are written to.
const Sheet = "Results"

// ensure xlsxBackend implements storage.Backend
var _ storage.Backend = (*xlsxBackend)(nil)

// The workbook is held in memory and written to path on Close.
type xlsxBackend struct {
	mu   sync.Mutex
	path string
	file *excelize.File
	next int // next free row, 1-based
}

// New opens the workbook at path, or starts a new one if it does not exist.
// Like the CSV export only the export columns are stored.
func New(path string) (storage.Backend, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Create(path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("xlsxbackend: open %s: %w", path, err)
	}

	idx, err := f.GetSheetIndex(Sheet)
	if err != nil || idx < 0 {
		if _, err := f.NewSheet(Sheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("xlsxbackend: add sheet: %w", err)
		}
		if err := writeHeader(f); err != nil {
			f.Close()
			return nil, err
		}
		return &xlsxBackend{path: path, file: f, next: 2}, nil
	}

	rows, err := f.GetRows(Sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("xlsxbackend: read %s: %w", path, err)
	}
	return &xlsxBackend{path: path, file: f, next: len(rows) + 1}, nil
}

// Create starts an empty workbook that replaces path on Close.
func Create(path string) (storage.Backend, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", Sheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("xlsxbackend: name sheet: %w", err)
	}
	if err := writeHeader(f); err != nil {
		f.Close()
		return nil, err
	}
	return &xlsxBackend{path: path, file: f, next: 2}, nil
}

func writeHeader(f *excelize.File) error {
	header := make([]any, len(storage.ExportHeaders))
	for i, h := range storage.ExportHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(Sheet, "A1", &header); err != nil {
		return fmt.Errorf("xlsxbackend: write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("xlsxbackend: header style: %w", err)
	}
	if err := f.SetRowStyle(Sheet, 1, 1, bold); err != nil {
		return fmt.Errorf("xlsxbackend: header style: %w", err)
	}
	if err := f.SetColWidth(Sheet, "D", "E", 48); err != nil {
		return fmt.Errorf("xlsxbackend: column width: %w", err)
	}
	return nil
}

func (b *xlsxBackend) Save(ctx context.Context, record *storage.Record) error {
	cells := storage.ExportRecord(record.ResultRow)
	row := make([]any, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	// Numeric cell so spreadsheets sort positions correctly.
	row[1] = record.Position

	b.mu.Lock()
	defer b.mu.Unlock()

	cell, err := excelize.CoordinatesToCellName(1, b.next)
	if err != nil {
		return fmt.Errorf("xlsxbackend: %w", err)
	}
	if err := b.file.SetSheetRow(Sheet, cell, &row); err != nil {
		return fmt.Errorf("xlsxbackend: write row %d: %w", b.next, err)
	}
	b.next++
	return nil
}

func (b *xlsxBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	rows, err := b.file.GetRows(Sheet)
	if err != nil {
		return nil, fmt.Errorf("xlsxbackend: read: %w", err)
	}

	// Not stored in this format.
	filter.RunID = ""
	filter.Since = nil

	var matched []*storage.Record
	for i, cells := range rows {
		if i == 0 {
			continue
		}
		row, err := storage.ParseExportRecord(cells)
		if err != nil {
			continue // skip malformed rows
		}
		rec := &storage.Record{Seq: i - 1, ResultRow: row}
		if filter.Match(rec) {
			matched = append(matched, rec)
		}
	}

	return filter.Page(matched), nil
}

// Close writes the workbook to disk.
func (b *xlsxBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	saveErr := b.file.SaveAs(b.path)
	if err := b.file.Close(); err != nil && saveErr == nil {
		return fmt.Errorf("xlsxbackend: close: %w", err)
	}
	if saveErr != nil {
		return fmt.Errorf("xlsxbackend: save %s: %w", b.path, saveErr)
	}
	return nil
}
