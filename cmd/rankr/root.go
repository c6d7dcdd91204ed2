package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/FranksOps/rankr/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"tld":            "search.tld",
	"country":        "search.country",
	"language":       "search.language",
	"num":            "search.num",
	"domain":         "search.domain",
	"stop-on-match":  "search.stop_on_match",
	"base-url":       "search.base_url",
	"timeout":        "fetch.timeout",
	"fingerprint":    "fetch.fingerprint",
	"max-body-bytes": "fetch.max_body_bytes",
	"insecure":       "fetch.insecure",
	"backoff":        "pacing.backoff",
	"delay":          "pacing.delay",
	"max-attempts":   "pacing.max_attempts",
	"output":         "output.path",
	"format":         "output.format",
	"all-rows":       "output.all_rows",
	"save-html":      "output.save_html",
	"html-dir":       "output.html_dir",
	"zip":            "output.zip",
	"zip-path":       "output.zip_path",
	"report":         "output.report",
	"store":          "store.backend",
	"dsn":            "store.dsn",
	"log-level":      "logging.level",
	"log-format":     "logging.format",
	"metrics-port":   "metrics.port",
}

// app carries state shared by subcommands.
type app struct {
	configFile string
	v          *viper.Viper
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	d := config.Default()

	root := &cobra.Command{
		Use:           "rankr",
		Short:         "Search results scraper and rank tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (yaml, toml or json)")
	pf.String("store", d.Store.Backend, "rank history store: sqlite or postgres")
	pf.String("dsn", d.Store.DSN, "rank history DSN (file path for sqlite)")
	pf.String("log-level", d.Logging.Level, "log level: debug, info, warn, error")
	pf.String("log-format", d.Logging.Format, "log format: text or json")

	root.AddCommand(
		newSearchCmd(a, config.ModeSearch),
		newSearchCmd(a, config.ModeTrack),
		newArchiveCmd(a),
		newHistoryCmd(a),
	)
	return root
}

// init loads configuration and binds the flags of the running command.
func (a *app) init(cmd *cobra.Command) error {
	v, err := config.New(a.configFile)
	if err != nil {
		return err
	}
	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}
	a.v = v

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd.ErrOrStderr(), cfg.Logging)
	if err != nil {
		return err
	}
	a.logger = logger
	slog.SetDefault(logger)
	return nil
}

func (a *app) load() (config.Config, error) {
	return config.Load(a.v)
}

func newLogger(w io.Writer, c config.LoggingConfig) (*slog.Logger, error) {
	level, err := config.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch c.Format {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	case "text", "":
		h = slog.NewTextHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", c.Format)
	}
	return slog.New(h), nil
}
