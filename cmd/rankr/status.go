package main

import (
	"io"

	"github.com/FranksOps/rankr/internal/pipeline"
	"github.com/fatih/color"
)

// statusPrinter renders runner events as operator-facing lines.
type statusPrinter struct {
	w    io.Writer
	info *color.Color
	ok   *color.Color
	warn *color.Color
	fail *color.Color
}

func newStatusPrinter(w io.Writer) *statusPrinter {
	return &statusPrinter{
		w:    w,
		info: color.New(color.FgCyan),
		ok:   color.New(color.FgGreen, color.Bold),
		warn: color.New(color.FgYellow),
		fail: color.New(color.FgRed),
	}
}

func (p *statusPrinter) Handle(ev pipeline.Event) {
	switch ev.Kind {
	case pipeline.EventSearching:
		p.info.Fprintf(p.w, "Searching for: %s\n", ev.Query)
	case pipeline.EventThrottled:
		p.warn.Fprintf(p.w, "Too many requests. Pausing for %s before retrying.\n", ev.Delay)
	case pipeline.EventSaved:
		p.info.Fprintf(p.w, "SERP HTML saved at: %s\n", ev.Path)
	case pipeline.EventParsed:
		p.info.Fprintf(p.w, "Google Search URL: %s (%d results)\n", ev.URL, ev.Rows)
	case pipeline.EventFailed:
		p.fail.Fprintf(p.w, "Request error: %v\n", ev.Err)
	case pipeline.EventCompleted:
		p.ok.Fprintln(p.w, "Search completed!")
	case pipeline.EventNoResults:
		p.warn.Fprintln(p.w, "No results were fetched. Please try adjusting your settings or waiting before retrying.")
	}
}

func (p *statusPrinter) Exported(path string, rows int) {
	p.ok.Fprintf(p.w, "Saved %d rows to %s\n", rows, path)
}

func (p *statusPrinter) Archived(path string, files int) {
	p.ok.Fprintf(p.w, "Packaged %d SERP HTML files into %s\n", files, path)
}
