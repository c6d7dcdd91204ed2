package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/FranksOps/rankr/internal/archive"
	"github.com/FranksOps/rankr/internal/config"
	"github.com/FranksOps/rankr/internal/fingerprint"
	"github.com/FranksOps/rankr/internal/metrics"
	"github.com/FranksOps/rankr/internal/pipeline"
	"github.com/FranksOps/rankr/internal/report"
	"github.com/FranksOps/rankr/internal/scraper"
	"github.com/FranksOps/rankr/internal/snapshot"
	"github.com/FranksOps/rankr/pkg/ratelimit"
	"github.com/FranksOps/rankr/pkg/useragent"
	"github.com/spf13/cobra"
)

func newSearchCmd(a *app, mode config.Mode) *cobra.Command {
	var queriesFlag, queriesFile string

	cmd := &cobra.Command{
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}
			queries, err := gatherQueries(cfg.Search.Queries, queriesFlag, queriesFile, args)
			if err != nil {
				return err
			}
			cfg.Search.Queries = queries
			return runSearch(cmd.Context(), a, cmd.OutOrStdout(), cfg, mode)
		},
	}

	switch mode {
	case config.ModeTrack:
		cmd.Use = "track --domain DOMAIN [QUERY...]"
		cmd.Short = "Find where a domain ranks for each query"
		cmd.Long = "Rank tracker: stops at the first result linking to --domain and exports only matching rows unless --all-rows is set."
	default:
		cmd.Use = "search [QUERY...]"
		cmd.Short = "Scrape the results page of each query"
	}

	d := config.Default()
	f := cmd.Flags()
	f.StringVar(&queriesFlag, "queries", "", "comma separated queries")
	f.StringVar(&queriesFile, "queries-file", "", "file with one query per line")
	f.String("tld", d.Search.TLD, "search host domain, e.g. google.co.uk")
	f.String("country", d.Search.Country, "country code (gl)")
	f.String("language", d.Search.Language, "interface language (hl)")
	f.String("num", d.Search.Num, "results per page")
	f.String("domain", d.Search.Domain, "domain to track")
	if mode == config.ModeSearch {
		f.Bool("stop-on-match", false, "stop parsing a page at the first --domain match")
	}
	f.String("base-url", "", "override the search host base URL")
	f.Duration("timeout", d.Fetch.Timeout, "per request timeout")
	f.String("fingerprint", d.Fetch.Fingerprint, "TLS fingerprint: chrome, firefox, safari, random, go")
	f.Int64("max-body-bytes", d.Fetch.MaxBodyBytes, "maximum results page size")
	f.Bool("insecure", false, "skip TLS verification")
	f.Duration("backoff", d.Pacing.Backoff, "first delay after HTTP 429, doubled per retry")
	f.Duration("delay", d.Pacing.Delay, "pause after each parsed query, 0 disables")
	f.Int("max-attempts", d.Pacing.MaxAttempts, "attempts per query")
	f.StringP("output", "o", d.Output.Path, "export file")
	f.String("format", d.Output.Format, "export format: csv, xlsx, json")
	f.Bool("all-rows", false, "track: export every row, not only matches")
	f.Bool("save-html", false, "save each results page")
	f.String("html-dir", d.Output.HTMLDir, "directory for saved results pages")
	f.Bool("zip", false, "bundle saved results pages into a zip")
	f.String("zip-path", d.Output.ZipPath, "zip file for --zip")
	f.String("report", d.Output.Report, "run report: text, json, yaml, html, none")
	f.Int("metrics-port", 0, "serve Prometheus metrics on this port, 0 disables")

	return cmd
}

// gatherQueries merges queries from config, the --queries list, a file and
// positional arguments, in that order.
func gatherQueries(fromConfig []string, list, file string, args []string) ([]string, error) {
	queries := append([]string{}, fromConfig...)
	queries = append(queries, config.ParseQueries(list)...)

	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("open queries file: %w", err)
		}
		defer f.Close()
		lines, err := readLines(f)
		if err != nil {
			return nil, fmt.Errorf("read queries file: %w", err)
		}
		queries = append(queries, lines...)
	}

	return append(queries, args...), nil
}

func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, sc.Err()
}

func runSearch(ctx context.Context, a *app, out io.Writer, cfg config.Config, mode config.Mode) error {
	if err := cfg.Validate(mode); err != nil {
		return err
	}
	logger := a.logger

	if cfg.Metrics.Port > 0 {
		srv := metrics.Start(cfg.Metrics.Port, logger)
		defer srv.Stop(context.WithoutCancel(ctx))
		logger.Info("metrics endpoint started", "port", cfg.Metrics.Port)
	}

	profile, err := fingerprint.ParseProfile(cfg.Fetch.Fingerprint)
	if err != nil {
		return err
	}
	fetcher, err := scraper.NewFetcher(scraper.FetchConfig{
		Timeout:            cfg.Fetch.Timeout,
		MaxRedirects:       cfg.Fetch.MaxRedirects,
		UserAgent:          useragent.NewPool(cfg.Fetch.UserAgents).Source(),
		Fingerprint:        profile,
		MaxBodyBytes:       cfg.Fetch.MaxBodyBytes,
		InsecureSkipVerify: cfg.Fetch.Insecure,
	})
	if err != nil {
		return err
	}
	defer fetcher.Close()

	pacing := cfg.Pacing.Delay
	if pacing == 0 {
		pacing = -1
	}
	snapshots := snapshot.New(cfg.Output.HTMLDir)
	status := newStatusPrinter(out)

	runner, err := pipeline.NewRunner(pipeline.Config{
		Request:     cfg.Request(mode),
		Fetcher:     fetcher,
		Snapshots:   snapshots,
		Sleeper:     ratelimit.Clock{},
		Backoff:     ratelimit.NewBackoff(cfg.Pacing.Backoff),
		Pacing:      pacing,
		MaxAttempts: cfg.Pacing.MaxAttempts,
		Logger:      logger,
		OnEvent:     status.Handle,
	})
	if err != nil {
		return err
	}

	res, runErr := runner.Run(ctx, cfg.Search.Queries)
	var partial *pipeline.PartialError
	switch {
	case runErr == nil:
	case errors.As(runErr, &partial):
		logger.Warn("some queries failed", "failed", len(partial.Failed))
	default:
		// Canceled: keep what was gathered.
		logger.Warn("run interrupted", "err", runErr, "rows", res.Results.Len())
	}

	// Exports must finish even after an interrupt.
	exportCtx := context.WithoutCancel(ctx)
	if !res.Empty() {
		rows := res.Results.Rows
		if mode == config.ModeTrack && !cfg.Output.AllRows {
			rows = res.Results.DomainMatches()
		}
		if err := exportRun(exportCtx, logger, cfg, res, rows); err != nil {
			return err
		}
		status.Exported(outputPath(cfg.Output), len(rows))
	}

	if cfg.Output.Zip && cfg.Output.SaveHTML && snapshots.Exists() {
		n, err := archive.Package(snapshots.Path(), cfg.Output.ZipPath)
		if err != nil {
			return err
		}
		status.Archived(cfg.Output.ZipPath, n)
	}

	if cfg.Output.Report != "" && cfg.Output.Report != "none" {
		if err := report.Write(out, report.Format(cfg.Output.Report), report.Summarize(res)); err != nil {
			return err
		}
	}

	if runErr != nil && partial == nil {
		return runErr
	}
	return nil
}
