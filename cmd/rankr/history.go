package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/FranksOps/rankr/internal/storage"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var (
		query string
		runID string
		found bool
		since time.Duration
		limit int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show stored rank history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}
			if cfg.Store.Backend == "" || cfg.Store.DSN == "" {
				return fmt.Errorf("history needs --store and --dsn")
			}

			ctx := cmd.Context()
			b, err := openStore(ctx, cfg.Store.Backend, cfg.Store.DSN)
			if err != nil {
				return err
			}
			defer b.Close()

			filter := storage.Filter{Query: query, RunID: runID, Limit: limit}
			if found {
				filter.DomainFound = &found
			}
			if since > 0 {
				t := time.Now().Add(-since)
				filter.Since = &t
			}

			records, err := b.Query(ctx, filter)
			if err != nil {
				return err
			}
			return writeHistory(cmd.OutOrStdout(), records)
		},
	}

	f := cmd.Flags()
	f.StringVar(&query, "query", "", "only this query")
	f.StringVar(&runID, "run", "", "only this run id")
	f.BoolVar(&found, "found", false, "only rows where the tracked domain was found")
	f.DurationVar(&since, "since", 0, "only rows newer than this, e.g. 720h")
	f.IntVar(&limit, "limit", 0, "maximum rows, 0 for all")
	return cmd
}

func writeHistory(w io.Writer, records []*storage.Record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tRUN\tQUERY\tPOS\tFOUND\tLINK")
	for _, r := range records {
		run := r.RunID
		if len(run) > 8 {
			run = run[:8]
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04"), run, r.Query, r.Position, r.DomainFoundLabel(), r.Link)
	}
	return tw.Flush()
}
