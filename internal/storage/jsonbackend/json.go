package jsonbackend

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/FranksOps/rankr/internal/storage"
)

// ensure jsonBackend implements storage.Backend
var _ storage.Backend = (*jsonBackend)(nil)

type jsonBackend struct {
	mu   sync.Mutex
	file *os.File
}

// New creates an NDJSON-backed storage.Backend appending to filePath.
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
		return nil, fmt.Errorf("jsonbackend: open %s: %w", filePath, err)
	}
	return &jsonBackend{file: f}, nil
}

func (b *jsonBackend) Save(ctx context.Context, record *storage.Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("jsonbackend: marshal: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("jsonbackend: write: %w", err)
	}
	return nil
}

func (b *jsonBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("jsonbackend: seek: %w", err)
	}
	defer func() {
		// Restore pointer to end for writing
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	scanner := bufio.NewScanner(b.file)
	// Titles and paths can make a line longer than the default token size.
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	// No engine to push the filter into: read everything, filter in memory, then page.
	var matched []*storage.Record
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var r storage.Record
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("jsonbackend: decode: %w", err)
		}
		if filter.Match(&r) {
			matched = append(matched, &r)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("jsonbackend: scan: %w", err)
	}

	return filter.Page(matched), nil
}

func (b *jsonBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
