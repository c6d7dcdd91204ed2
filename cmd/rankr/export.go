package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/FranksOps/rankr/internal/config"
	"github.com/FranksOps/rankr/internal/pipeline"
	"github.com/FranksOps/rankr/internal/serp"
	"github.com/FranksOps/rankr/internal/storage"
	"github.com/FranksOps/rankr/internal/storage/csvbackend"
	"github.com/FranksOps/rankr/internal/storage/jsonbackend"
	"github.com/FranksOps/rankr/internal/storage/postgres"
	"github.com/FranksOps/rankr/internal/storage/sqlite"
	"github.com/FranksOps/rankr/internal/storage/xlsxbackend"
	"golang.org/x/sync/errgroup"
)

// sink is one destination of a finished run.
type sink struct {
	name    string
	open    func(ctx context.Context) (storage.Backend, error)
	records []*storage.Record
}

// outputPath swaps the default file extension to match the format.
func outputPath(c config.OutputConfig) string {
	if c.Path == config.Default().Output.Path && c.Format != config.FormatCSV {
		return strings.TrimSuffix(c.Path, filepath.Ext(c.Path)) + "." + c.Format
	}
	return c.Path
}

// openExport opens a fresh export file for format.
func openExport(format, path string) (storage.Backend, error) {
	switch format {
	case config.FormatCSV:
		return csvbackend.Create(path)
	case config.FormatXLSX:
		return xlsxbackend.Create(path)
	case config.FormatJSON:
		return jsonbackend.Create(path)
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
}

// openStore opens the rank history database.
func openStore(ctx context.Context, backend, dsn string) (storage.Backend, error) {
	switch backend {
	case config.StoreSQLite:
		return sqlite.New(dsn)
	case config.StorePostgres:
		return postgres.New(ctx, dsn)
	default:
		return nil, fmt.Errorf("unknown store %q", backend)
	}
}

// exportRun writes rows to the export file and, when configured, every row
// of the run to the history store. Sinks are written concurrently.
func exportRun(ctx context.Context, logger *slog.Logger, cfg config.Config, res *pipeline.RunResult, rows []serp.ResultRow) error {
	path := outputPath(cfg.Output)
	sinks := []sink{{
		name:    path,
		open:    func(context.Context) (storage.Backend, error) { return openExport(cfg.Output.Format, path) },
		records: storage.NewRecords(res.RunID, res.StartedAt, rows),
	}}
	if cfg.Store.Backend != "" {
		sinks = append(sinks, sink{
			name:    cfg.Store.Backend,
			open:    func(ctx context.Context) (storage.Backend, error) { return openStore(ctx, cfg.Store.Backend, cfg.Store.DSN) },
			records: storage.NewRecords(res.RunID, res.StartedAt, res.Results.Rows),
		})
	}
	return writeSinks(ctx, logger, sinks)
}

func writeSinks(ctx context.Context, logger *slog.Logger, sinks []sink) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range sinks {
		g.Go(func() error {
			b, err := s.open(gctx)
			if err != nil {
				return fmt.Errorf("export %s: %w", s.name, err)
			}
			saveErr := storage.SaveAll(gctx, b, s.records)
			closeErr := b.Close()
			if saveErr != nil {
				return fmt.Errorf("export %s: %w", s.name, saveErr)
			}
			if closeErr != nil {
				return fmt.Errorf("export %s: %w", s.name, closeErr)
			}
			logger.Info("exported", "sink", s.name, "records", len(s.records))
			return nil
		})
	}
	return g.Wait()
}
