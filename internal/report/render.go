package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"siteinsight/internal/db"
)

// Column widths of the text layout. Snapshot tests depend on them.
const (
	variantWidth  = 10
	countWidth    = 8
	actionWidth   = 10
	targetWidth   = 22
	locationWidth = 18
	rawNameWidth  = actionWidth + targetWidth + locationWidth + 2
	pageWidth     = 20

	narrowRule = 40
	wideRule   = 70
	recentRule = 80

	timestampLayout = "2006-01-02 15:04:05"
)

// Report is a rendered-on-demand aggregation result.
type Report interface {
	// NoData reports whether the query matched nothing. Render then
	// prints a single explanatory line instead of a table.
	NoData() bool
	Render(w io.Writer) error
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) rule(n int) {
	ew.printf("%s\n", strings.Repeat("-", n))
}

// cell truncates s to width runes; the format verb does the padding.
// Only the descriptive breakdown columns go through it. Variants, pages
// and raw event names identify a row and are printed in full.
func cell(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		return string(r[:width])
	}
	return s
}

func writeEventContext(ew *errWriter, eventName string) {
	if p, ok := ParseEventName(eventName); ok {
		ew.printf("  Event breakdown → action='%s', target='%s', location='%s'\n", p.Action, p.Target, p.Location)
	}
}

// writeVariantNameRows prints rows grouped under one header per variant.
// rows must be sorted by variant: a header is printed each time the
// variant differs from the previous row's.
func writeVariantNameRows(ew *errWriter, rows []db.KeyedCount) {
	lastVariant := ""
	for i, r := range rows {
		if i == 0 || r.VariantName != lastVariant {
			ew.printf("\nVariant: %s\n", r.VariantName)
			ew.printf("  %-*s %-*s %-*s %*s\n",
				actionWidth, "Action", targetWidth, "Target", locationWidth, "Location", countWidth, "Count")
			ew.printf("  %s %s %s %s\n",
				strings.Repeat("-", actionWidth), strings.Repeat("-", targetWidth),
				strings.Repeat("-", locationWidth), strings.Repeat("-", countWidth))
			lastVariant = r.VariantName
		}

		if p, ok := ParseEventName(r.Name); ok {
			ew.printf("  %-*s %-*s %-*s %*d\n",
				actionWidth, cell(p.Action, actionWidth),
				targetWidth, cell(p.Target, targetWidth),
				locationWidth, cell(p.Location, locationWidth),
				countWidth, r.Count)
		} else {
			ew.printf("  %-*s %*d\n", rawNameWidth, r.Name, countWidth, r.Count)
		}
	}
}

func writeVariantCounts(ew *errWriter, rows []db.VariantCount) {
	ew.rule(narrowRule)
	for _, r := range rows {
		ew.printf("%-*s %*d\n", variantWidth, r.VariantName, countWidth, r.Count)
	}
	ew.printf("\n")
}

// EventsByVariantReport holds per-variant counts of a single event name.
type EventsByVariantReport struct {
	EventName string
	Rows      []db.VariantCount
}

func (r *EventsByVariantReport) NoData() bool { return len(r.Rows) == 0 }

func (r *EventsByVariantReport) Render(w io.Writer) error {
	ew := &errWriter{w: w}
	if r.NoData() {
		ew.printf("No events found for event_name='%s'\n", r.EventName)
		return ew.err
	}
	ew.printf("\nEvents for '%s' by variant:\n", r.EventName)
	writeEventContext(ew, r.EventName)
	writeVariantCounts(ew, r.Rows)
	return ew.err
}

// DetailedRow is one variant of an EventsDetailedReport.
type DetailedRow struct {
	VariantName    string
	Total          int64
	UniqueSessions int64
	AvgPerSession  float64
}

// EventsDetailedReport holds totals and distinct-session counts of a single event name.
type EventsDetailedReport struct {
	EventName string
	Rows      []DetailedRow
}

func (r *EventsDetailedReport) NoData() bool { return len(r.Rows) == 0 }

func (r *EventsDetailedReport) Render(w io.Writer) error {
	ew := &errWriter{w: w}
	if r.NoData() {
		ew.printf("No events found for event_name='%s'\n", r.EventName)
		return ew.err
	}
	ew.printf("\nDetailed stats for event '%s' by variant:\n", r.EventName)
	writeEventContext(ew, r.EventName)
	ew.rule(wideRule)
	ew.printf("%-10s %10s %10s %18s\n", "Variant", "Total", "Unique", "Avg per session")
	ew.rule(wideRule)
	for _, row := range r.Rows {
		ew.printf("%-10s %10d %10d %18.2f\n", row.VariantName, row.Total, row.UniqueSessions, row.AvgPerSession)
	}
	ew.printf("\n")
	return ew.err
}

// EventsLikeReport holds counts per variant and event name for a LIKE pattern.
type EventsLikeReport struct {
	Pattern string
	Rows    []db.KeyedCount
}

func (r *EventsLikeReport) NoData() bool { return len(r.Rows) == 0 }

func (r *EventsLikeReport) Render(w io.Writer) error {
	ew := &errWriter{w: w}
	if r.NoData() {
		ew.printf("No events found for pattern LIKE '%s'\n", r.Pattern)
		return ew.err
	}
	ew.printf("\nEvents matching pattern '%s' by variant and name:\n", r.Pattern)
	ew.rule(wideRule)
	writeVariantNameRows(ew, r.Rows)
	ew.printf("\n")
	return ew.err
}

// PageviewsReport holds per-variant page view counts of a single page.
type PageviewsReport struct {
	Page string
	Rows []db.VariantCount
}

func (r *PageviewsReport) NoData() bool { return len(r.Rows) == 0 }

func (r *PageviewsReport) Render(w io.Writer) error {
	ew := &errWriter{w: w}
	if r.NoData() {
		ew.printf("No pageviews found for page='%s'\n", r.Page)
		return ew.err
	}
	ew.printf("\nPageviews for '%s' by variant:\n", r.Page)
	writeVariantCounts(ew, r.Rows)
	return ew.err
}

// ConversionRow is one variant of a ConversionReport.
type ConversionRow struct {
	VariantName string
	Pageviews   int64
	Events      int64
	Rate        float64
}

// ConversionReport holds events-per-pageview ratios of one event on one page.
type ConversionReport struct {
	EventName string
	Page      string
	Rows      []ConversionRow
}

func (r *ConversionReport) NoData() bool { return len(r.Rows) == 0 }

func (r *ConversionReport) Render(w io.Writer) error {
	ew := &errWriter{w: w}
	if r.NoData() {
		ew.printf("No data for event='%s' on page='%s'\n", r.EventName, r.Page)
		return ew.err
	}
	ew.printf("\nConversion for event='%s' on page='%s':\n", r.EventName, r.Page)
	writeEventContext(ew, r.EventName)
	ew.rule(wideRule)
	ew.printf("%-10s %10s %10s %12s\n", "Variant", "Pageviews", "Events", "Conversion")
	ew.rule(wideRule)
	for _, row := range r.Rows {
		ew.printf("%-10s %10d %10d %11s\n", row.VariantName, row.Pageviews, row.Events, percent(row.Rate))
	}
	ew.printf("\n")
	return ew.err
}

// percent renders a ratio as a percentage with two decimals, e.g. 0.2 -> "20.00%".
func percent(ratio float64) string {
	return fmt.Sprintf("%.2f%%", ratio*100)
}

// SummaryReport holds full-table counts of both tables.
type SummaryReport struct {
	Events    []db.KeyedCount
	PageViews []db.KeyedCount
}

func (r *SummaryReport) NoData() bool { return len(r.Events) == 0 && len(r.PageViews) == 0 }

// Render prints one section per table. Each section falls back to its own
// no-data line, so an empty store still yields both section titles.
func (r *SummaryReport) Render(w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("\n=== Events by variant and name ===\n")
	if len(r.Events) > 0 {
		writeVariantNameRows(ew, r.Events)
	} else {
		ew.printf("No events logged yet.\n")
	}

	ew.printf("\n=== Pageviews by variant and page ===\n")
	if len(r.PageViews) > 0 {
		lastVariant := ""
		for i, row := range r.PageViews {
			if i == 0 || row.VariantName != lastVariant {
				ew.printf("\nVariant: %s\n", row.VariantName)
				lastVariant = row.VariantName
			}
			ew.printf("  %-*s %*d\n", pageWidth, row.Name, countWidth, row.Count)
		}
	} else {
		ew.printf("No page views logged yet.\n")
	}

	ew.printf("\n")
	return ew.err
}

// RecentReport holds the newest events, newest first.
type RecentReport struct {
	Events []db.Event
}

func (r *RecentReport) NoData() bool { return len(r.Events) == 0 }

func (r *RecentReport) Render(w io.Writer) error {
	ew := &errWriter{w: w}
	if r.NoData() {
		ew.printf("No events logged yet.\n")
		return ew.err
	}
	ew.printf("\nLast %d events:\n", len(r.Events))
	ew.rule(recentRule)
	for _, e := range r.Events {
		extra := ""
		if p, ok := ParseEventName(e.EventName); ok {
			extra = fmt.Sprintf(" (%s/%s/%s)", p.Action, p.Target, p.Location)
		}
		ew.printf("[%s] %-7s %-30s%-25s %-10s metadata=%s\n",
			formatTimestamp(e.Timestamp),
			e.VariantName,
			e.EventName,
			extra,
			e.PageURL,
			metadataString(e.Metadata),
		)
	}
	ew.printf("\n")
	return ew.err
}

func metadataString(m map[string]any) string {
	if len(m) == 0 {
		return "{}"
	}
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Sprintf("%v", m)
	}
	return string(b)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
