package csvbackend

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/FranksOps/rankr/internal/storage"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

// New opens filePath for appending, writing the header row if the file is
// empty. Only the export columns are stored, so RunID and Since filters are
// ignored by Query.
func New(filePath string) (storage.Backend, error) {
	return open(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR)
}

// Create is like New but truncates an existing file.
func Create(filePath string) (storage.Backend, error) {
	return open(filePath, os.O_TRUNC|os.O_CREATE|os.O_RDWR)
}

func open(filePath string, flag int) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, flag, 0644)
	if err != nil {
		return nil, fmt.Errorf("csvbackend: open %s: %w", filePath, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("csvbackend: stat %s: %w", filePath, err)
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(storage.ExportHeaders); err != nil {
			f.Close()
			return nil, fmt.Errorf("csvbackend: write header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("csvbackend: write header: %w", err)
		}
	}

	return &csvBackend{file: f}, nil
}

func (b *csvBackend) Save(ctx context.Context, record *storage.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("csvbackend: seek: %w", err)
	}

	w := csv.NewWriter(b.file)
	if err := w.Write(storage.ExportRecord(record.ResultRow)); err != nil {
		return fmt.Errorf("csvbackend: write: %w", err)
	}
	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("csvbackend: write: %w", err)
	}

	return nil
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("csvbackend: seek: %w", err)
	}
	defer func() {
		// Restore pointer to end for writing
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	r := csv.NewReader(b.file)

	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return []*storage.Record{}, nil
		}
		return nil, fmt.Errorf("csvbackend: read header: %w", err)
	}

	// Not stored in this format.
	filter.RunID = ""
	filter.Since = nil

	var matched []*storage.Record
	for seq := 0; ; seq++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvbackend: read: %w", err)
		}

		row, err := storage.ParseExportRecord(rec)
		if err != nil {
			continue // skip malformed rows
		}

		res := &storage.Record{Seq: seq, ResultRow: row}
		if filter.Match(res) {
			matched = append(matched, res)
		}
	}

	return filter.Page(matched), nil
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
