// Package config holds the typed configuration of a rankr run and loads it
// from flags, environment, an optional config file and a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/FranksOps/rankr/internal/fingerprint"
	"github.com/FranksOps/rankr/internal/report"
	"github.com/FranksOps/rankr/internal/serp"
	"github.com/FranksOps/rankr/internal/snapshot"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. RANKR_STORE_DSN.
const EnvPrefix = "RANKR"

// Mode selects between plain scraping and rank tracking.
type Mode string

const (
	ModeSearch Mode = "search"
	ModeTrack  Mode = "track"
)

// Config is the full configuration of one invocation.
type Config struct {
	Search  SearchConfig  `mapstructure:"search"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Pacing  PacingConfig  `mapstructure:"pacing"`
	Output  OutputConfig  `mapstructure:"output"`
	Store   StoreConfig   `mapstructure:"store"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// SearchConfig describes what is searched and tracked.
type SearchConfig struct {
	TLD      string `mapstructure:"tld"`
	Country  string `mapstructure:"country"`
	Language string `mapstructure:"language"`
	// Num is passed through as-is.
	Num         string   `mapstructure:"num"`
	Domain      string   `mapstructure:"domain"`
	StopOnMatch bool     `mapstructure:"stop_on_match"`
	Queries     []string `mapstructure:"queries"`
	BaseURL     string   `mapstructure:"base_url"`
}

// FetchConfig controls the HTTP side.
type FetchConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	Fingerprint  string        `mapstructure:"fingerprint"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	MaxRedirects int           `mapstructure:"max_redirects"`
	Insecure     bool          `mapstructure:"insecure"`
	// UserAgents replaces the built-in pool when non-empty.
	UserAgents []string `mapstructure:"user_agents"`
}

// PacingConfig controls backoff and the delay between queries.
type PacingConfig struct {
	Backoff     time.Duration `mapstructure:"backoff"`
	Delay       time.Duration `mapstructure:"delay"`
	MaxAttempts int           `mapstructure:"max_attempts"`
}

// OutputConfig controls exports, snapshots and the run report.
type OutputConfig struct {
	Path     string `mapstructure:"path"`
	Format   string `mapstructure:"format"`
	AllRows  bool   `mapstructure:"all_rows"`
	SaveHTML bool   `mapstructure:"save_html"`
	HTMLDir  string `mapstructure:"html_dir"`
	Zip      bool   `mapstructure:"zip"`
	ZipPath  string `mapstructure:"zip_path"`
	Report   string `mapstructure:"report"`
}

// StoreConfig selects the rank history database. Empty Backend disables it.
type StoreConfig struct {
	Backend string `mapstructure:"backend"`
	DSN     string `mapstructure:"dsn"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	// Port 0 disables the metrics endpoint.
	Port int `mapstructure:"port"`
}

// Export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatJSON = "json"
)

// Store backends.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// Default returns the configuration the tool starts from.
func Default() Config {
	return Config{
		Search: SearchConfig{
			TLD:      "google.com",
			Country:  "in",
			Language: "en",
			Num:      "10",
		},
		Fetch: FetchConfig{
			Timeout:      30 * time.Second,
			Fingerprint:  string(fingerprint.ProfileChrome),
			MaxBodyBytes: 8 << 20,
			MaxRedirects: 10,
		},
		Pacing: PacingConfig{
			Backoff:     5 * time.Second,
			Delay:       18 * time.Second,
			MaxAttempts: 3,
		},
		Output: OutputConfig{
			Path:    "search_results.csv",
			Format:  FormatCSV,
			HTMLDir: snapshot.DefaultDir,
			ZipPath: "serp_html_files.zip",
			Report:  string(report.FormatText),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// SetDefaults registers every key of Default with v so that environment
// variables are picked up by Unmarshal.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("search.tld", d.Search.TLD)
	v.SetDefault("search.country", d.Search.Country)
	v.SetDefault("search.language", d.Search.Language)
	v.SetDefault("search.num", d.Search.Num)
	v.SetDefault("search.domain", d.Search.Domain)
	v.SetDefault("search.stop_on_match", d.Search.StopOnMatch)
	v.SetDefault("search.queries", []string{})
	v.SetDefault("search.base_url", d.Search.BaseURL)

	v.SetDefault("fetch.timeout", d.Fetch.Timeout)
	v.SetDefault("fetch.fingerprint", d.Fetch.Fingerprint)
	v.SetDefault("fetch.max_body_bytes", d.Fetch.MaxBodyBytes)
	v.SetDefault("fetch.max_redirects", d.Fetch.MaxRedirects)
	v.SetDefault("fetch.insecure", d.Fetch.Insecure)
	v.SetDefault("fetch.user_agents", []string{})

	v.SetDefault("pacing.backoff", d.Pacing.Backoff)
	v.SetDefault("pacing.delay", d.Pacing.Delay)
	v.SetDefault("pacing.max_attempts", d.Pacing.MaxAttempts)

	v.SetDefault("output.path", d.Output.Path)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.all_rows", d.Output.AllRows)
	v.SetDefault("output.save_html", d.Output.SaveHTML)
	v.SetDefault("output.html_dir", d.Output.HTMLDir)
	v.SetDefault("output.zip", d.Output.Zip)
	v.SetDefault("output.zip_path", d.Output.ZipPath)
	v.SetDefault("output.report", d.Output.Report)

	v.SetDefault("store.backend", d.Store.Backend)
	v.SetDefault("store.dsn", d.Store.DSN)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)

	v.SetDefault("metrics.port", d.Metrics.Port)
}

// New returns a viper instance with defaults, the RANKR_ environment and,
// when configFile is set, that file loaded. A .env file in the working
// directory is applied to the process environment first; a missing one is
// not an error.
func New(configFile string) (*viper.Viper, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}
	return v, nil
}

// Load decodes v into a Config.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	return c, nil
}

// ParseQueries splits a comma separated list. Entries are kept verbatim;
// the runner trims them and skips blanks.
func ParseQueries(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// HasQueries reports whether any query is non-blank.
func HasQueries(queries []string) bool {
	for _, q := range queries {
		if strings.TrimSpace(q) != "" {
			return true
		}
	}
	return false
}

// Validate checks c for mode before any network I/O happens.
func (c Config) Validate(mode Mode) error {
	var errs []error

	if !HasQueries(c.Search.Queries) {
		errs = append(errs, errors.New("please provide the queries to search"))
	}
	if mode == ModeTrack && strings.TrimSpace(c.Search.Domain) == "" {
		errs = append(errs, errors.New("please provide the domain name to track"))
	}
	if c.Search.TLD == "" && c.Search.BaseURL == "" {
		errs = append(errs, errors.New("search.tld must not be empty"))
	}
	if _, err := fingerprint.ParseProfile(c.Fetch.Fingerprint); err != nil {
		errs = append(errs, err)
	}
	if c.Fetch.Timeout < 0 {
		errs = append(errs, errors.New("fetch.timeout must not be negative"))
	}
	if c.Pacing.MaxAttempts < 1 {
		errs = append(errs, errors.New("pacing.max_attempts must be at least 1"))
	}
	if c.Pacing.Backoff <= 0 {
		errs = append(errs, errors.New("pacing.backoff must be positive"))
	}
	if c.Pacing.Delay < 0 {
		errs = append(errs, errors.New("pacing.delay must not be negative"))
	}

	switch c.Output.Format {
	case FormatCSV, FormatXLSX, FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("output.format %q is not one of csv, xlsx, json", c.Output.Format))
	}
	if err := validateReport(c.Output.Report); err != nil {
		errs = append(errs, err)
	}

	switch c.Store.Backend {
	case "":
	case StoreSQLite, StorePostgres:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for %s", c.Store.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend %q is not one of sqlite, postgres", c.Store.Backend))
	}

	if _, err := ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		errs = append(errs, fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format))
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		errs = append(errs, fmt.Errorf("metrics.port %d out of range", c.Metrics.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func validateReport(format string) error {
	if format == "" || format == "none" {
		return nil
	}
	for _, f := range report.Formats {
		if string(f) == format {
			return nil
		}
	}
	return fmt.Errorf("output.report %q is not one of text, json, yaml, html, none", format)
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("logging.level %q: %w", s, err)
	}
	return l, nil
}

// Request builds the immutable run request for mode. Tracking mode always
// stops on the first match.
func (c Config) Request(mode Mode) serp.Request {
	return serp.Request{
		ResultDomain:      c.Search.TLD,
		Country:           c.Search.Country,
		Language:          c.Search.Language,
		ResultsPerPage:    c.Search.Num,
		TrackDomain:       strings.TrimSpace(c.Search.Domain),
		StopOnDomainFound: mode == ModeTrack || c.Search.StopOnMatch,
		SaveHTML:          c.Output.SaveHTML,
		BaseURL:           c.Search.BaseURL,
	}
}
