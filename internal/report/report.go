package report

import (
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"io"
	"sort"
	"text/template"
	"time"

	"github.com/FranksOps/rankr/internal/pipeline"
	"gopkg.in/yaml.v3"
)

// QueryLine is the per-query part of a Summary.
type QueryLine struct {
	Query     string `json:"query" yaml:"query"`
	Status    string `json:"status" yaml:"status"`
	Attempts  int    `json:"attempts" yaml:"attempts"`
	Throttles int    `json:"throttles" yaml:"throttles"`
	Rows      int    `json:"rows" yaml:"rows"`
	// BestPosition is the highest rank of the tracked domain, 0 when absent.
	BestPosition int    `json:"best_position,omitempty" yaml:"best_position,omitempty"`
	Snapshot     string `json:"snapshot,omitempty" yaml:"snapshot,omitempty"`
	Challenge    string `json:"challenge,omitempty" yaml:"challenge,omitempty"`
	Error        string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Summary contains aggregated figures about one run.
type Summary struct {
	RunID       string        `json:"run_id" yaml:"run_id"`
	TrackDomain string        `json:"track_domain,omitempty" yaml:"track_domain,omitempty"`
	StartTime   time.Time     `json:"start_time" yaml:"start_time"`
	EndTime     time.Time     `json:"end_time" yaml:"end_time"`
	Duration    time.Duration `json:"duration" yaml:"duration"`

	Queries       int `json:"queries" yaml:"queries"`
	Succeeded     int `json:"succeeded" yaml:"succeeded"`
	Skipped       int `json:"skipped" yaml:"skipped"`
	Throttled     int `json:"throttled" yaml:"throttled"`
	Failed        int `json:"failed" yaml:"failed"`
	Rows          int `json:"rows" yaml:"rows"`
	DomainMatches int `json:"domain_matches" yaml:"domain_matches"`
	Challenged    int `json:"challenged" yaml:"challenged"`

	// BestPositions maps each query to the best rank of the tracked domain.
	BestPositions map[string]int `json:"best_positions,omitempty" yaml:"best_positions,omitempty"`
	PerQuery      []QueryLine    `json:"per_query" yaml:"per_query"`
}

// Empty reports a run that produced no rows.
func (s Summary) Empty() bool { return s.Rows == 0 }

// Summarize aggregates a run result.
func Summarize(res *pipeline.RunResult) Summary {
	s := Summary{BestPositions: make(map[string]int)}
	if res == nil {
		return s
	}

	s.RunID = res.RunID
	s.TrackDomain = res.Request.TrackDomain
	s.StartTime = res.StartedAt
	s.EndTime = res.FinishedAt
	s.Duration = res.Duration()
	s.Rows = res.Results.Len()

	for _, row := range res.Results.Rows {
		if !row.DomainFound {
			continue
		}
		s.DomainMatches++
		if best, ok := s.BestPositions[row.Query]; !ok || row.Position < best {
			s.BestPositions[row.Query] = row.Position
		}
	}

	for _, q := range res.Queries {
		s.Queries++
		switch q.Status {
		case pipeline.StatusOK:
			s.Succeeded++
		case pipeline.StatusSkipped:
			s.Skipped++
		case pipeline.StatusThrottled:
			s.Throttled++
		case pipeline.StatusFailed:
			s.Failed++
		}
		if q.Challenge != "" {
			s.Challenged++
		}

		line := QueryLine{
			Query:        q.Query,
			Status:       string(q.Status),
			Attempts:     q.Attempts,
			Throttles:    q.Throttles,
			Rows:         q.Rows,
			BestPosition: s.BestPositions[q.Query],
			Snapshot:     q.SnapshotPath,
			Challenge:    q.Challenge,
		}
		if q.Err != nil {
			line.Error = q.Err.Error()
		}
		s.PerQuery = append(s.PerQuery, line)
	}

	return s
}

// Format selects a report writer.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatHTML Format = "html"
)

// Formats lists the supported report formats.
var Formats = []Format{FormatText, FormatJSON, FormatYAML, FormatHTML}

// Write renders summary in the given format.
func Write(w io.Writer, format Format, summary Summary) error {
	switch format {
	case FormatText, "":
		return WriteText(w, summary)
	case FormatJSON:
		return WriteJSON(w, summary)
	case FormatYAML:
		return WriteYAML(w, summary)
	case FormatHTML:
		return WriteHTML(w, summary)
	default:
		return fmt.Errorf("report: unknown format %q", format)
	}
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("report: encode json: %w", err)
	}
	return nil
}

// WriteYAML writes the summary as a YAML document.
func WriteYAML(w io.Writer, summary Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("report: encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("report: encode yaml: %w", err)
	}
	return nil
}

type bestPosition struct {
	Query    string
	Position int
}

// sortedBest orders BestPositions by query for stable output.
func sortedBest(m map[string]int) []bestPosition {
	out := make([]bestPosition, 0, len(m))
	for q, p := range m {
		out = append(out, bestPosition{Query: q, Position: p})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Query < out[j].Query })
	return out
}

var funcs = map[string]any{"sortedBest": sortedBest}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `Rankr Run Summary
-----------------
Run:           {{.RunID}}
Time:          {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:      {{.Duration}}
Queries:       {{.Queries}} ({{.Succeeded}} ok, {{.Skipped}} skipped, {{.Throttled}} throttled, {{.Failed}} failed)
Rows:          {{.Rows}}
{{- if .TrackDomain}}
Tracking:      {{.TrackDomain}} ({{.DomainMatches}} matches)
{{- end}}
Block pages:   {{.Challenged}}

Queries:
{{- range .PerQuery}}
  {{.Query | printf "%-30q"}} {{.Status}} rows={{.Rows}} attempts={{.Attempts}}{{if .BestPosition}} best={{.BestPosition}}{{end}}{{if .Error}} err={{.Error}}{{end}}
{{- else}}
  None
{{- end}}
{{- if .TrackDomain}}

Best Positions:
{{- range sortedBest .BestPositions}}
  {{.Query}}: {{.Position}}
{{- else}}
  None
{{- end}}
{{- end}}
`

	t, err := template.New("textReport").Funcs(funcs).Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("report: parse text template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report: render text: %w", err)
	}

	return nil
}

// WriteHTML writes a basic HTML report to the provided writer.
func WriteHTML(w io.Writer, summary Summary) error {
	const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>Rankr Run Report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  table { border-collapse: collapse; margin-top: 10px; }
  th, td { padding: 8px 12px; border: 1px solid #ccc; text-align: left; }
  th { background: #eaeaea; }
  .failed, .throttled { color: #b00; }
</style>
</head>
<body>
  <h1>Rankr Run Report</h1>
  <p><strong>Run:</strong> {{.RunID}}</p>
  <p><strong>Time:</strong> {{.StartTime.Format "2006-01-02 15:04:05"}} to {{.EndTime.Format "2006-01-02 15:04:05"}} ({{.Duration}})</p>
  {{- if .TrackDomain}}
  <p><strong>Tracking:</strong> {{.TrackDomain}}</p>
  {{- end}}

  <div class="stat-card">
    <div>Queries</div>
    <div class="stat-val">{{.Queries}}</div>
  </div>
  <div class="stat-card">
    <div>Rows</div>
    <div class="stat-val">{{.Rows}}</div>
  </div>
  <div class="stat-card">
    <div>Domain Matches</div>
    <div class="stat-val">{{.DomainMatches}}</div>
  </div>
  <div class="stat-card">
    <div>Failed</div>
    <div class="stat-val" style="color: {{if gt .Failed 0}}red{{else}}green{{end}};">{{.Failed}}</div>
  </div>
  <div class="stat-card">
    <div>Throttled</div>
    <div class="stat-val">{{.Throttled}}</div>
  </div>

  <h3>Queries</h3>
  <table>
    <tr><th>Query</th><th>Status</th><th>Rows</th><th>Attempts</th><th>Best Position</th><th>Error</th></tr>
    {{- range .PerQuery}}
    <tr class="{{.Status}}"><td>{{.Query}}</td><td>{{.Status}}</td><td>{{.Rows}}</td><td>{{.Attempts}}</td><td>{{if .BestPosition}}{{.BestPosition}}{{else}}-{{end}}</td><td>{{.Error}}</td></tr>
    {{- else}}
    <tr><td colspan="6">None</td></tr>
    {{- end}}
  </table>
</body>
</html>
`
	t, err := htmltemplate.New("htmlReport").Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("report: parse html template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report: render html: %w", err)
	}

	return nil
}
