// Package report turns raw event and page-view rows into per-variant
// summaries and renders them as fixed-width text.
package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"siteinsight/internal/db"
)

var (
	// ErrInvalidInput marks a missing or malformed report parameter.
	// No query is issued when it is returned.
	ErrInvalidInput = errors.New("invalid report input")

	// ErrStoreUnavailable wraps every failure coming from the store.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Store is the read side of the event and page-view tables. Rows are
// expected grouped as documented on db.Store; ordering is re-applied here.
type Store interface {
	EventCountsByVariant(ctx context.Context, eventName string) ([]db.VariantCount, error)
	EventUniqueSessions(ctx context.Context, eventName string) ([]db.VariantCount, error)
	EventCountsLike(ctx context.Context, pattern string) ([]db.KeyedCount, error)
	EventCountsOnPage(ctx context.Context, eventName, page string) ([]db.VariantCount, error)
	PageViewCountsByVariant(ctx context.Context, page string) ([]db.VariantCount, error)
	EventCountsByVariantAndName(ctx context.Context) ([]db.KeyedCount, error)
	PageViewCountsByVariantAndPage(ctx context.Context) ([]db.KeyedCount, error)
	RecentEvents(ctx context.Context, limit int) ([]db.Event, error)
}

// Engine runs the report aggregations against a Store.
type Engine struct {
	store Store
	log   *zap.Logger
}

func NewEngine(store Store, log *zap.Logger) *Engine {
	return &Engine{store: store, log: log}
}

func storeErr(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, what, err)
}

func required(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidInput, name)
	}
	return nil
}

func sortVariantCounts(rows []db.VariantCount) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].VariantName < rows[j].VariantName })
}

func sortKeyedCounts(rows []db.KeyedCount) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].VariantName != rows[j].VariantName {
			return rows[i].VariantName < rows[j].VariantName
		}
		return rows[i].Name < rows[j].Name
	})
}

// countsByVariant indexes rows by variant. Duplicate variants are summed.
func countsByVariant(rows []db.VariantCount) map[string]int64 {
	m := make(map[string]int64, len(rows))
	for _, r := range rows {
		m[r.VariantName] += r.Count
	}
	return m
}

// variantUnion returns the sorted union of the keys of all maps.
func variantUnion(maps ...map[string]int64) []string {
	seen := make(map[string]struct{})
	for _, m := range maps {
		for v := range m {
			seen[v] = struct{}{}
		}
	}
	variants := make([]string, 0, len(seen))
	for v := range seen {
		variants = append(variants, v)
	}
	sort.Strings(variants)
	return variants
}

// EventsByVariant counts events named eventName per variant.
func (e *Engine) EventsByVariant(ctx context.Context, eventName string) (*EventsByVariantReport, error) {
	if err := required("event name", eventName); err != nil {
		return nil, err
	}
	rows, err := e.store.EventCountsByVariant(ctx, eventName)
	if err != nil {
		return nil, storeErr("count events by variant", err)
	}
	sortVariantCounts(rows)

	e.log.Debug("events by variant", zap.String("event_name", eventName), zap.Int("variants", len(rows)))
	return &EventsByVariantReport{EventName: eventName, Rows: rows}, nil
}

// EventsDetailed reports totals, distinct sessions and events per session
// for eventName. The two counts are merged over the union of variants.
func (e *Engine) EventsDetailed(ctx context.Context, eventName string) (*EventsDetailedReport, error) {
	if err := required("event name", eventName); err != nil {
		return nil, err
	}
	totalRows, err := e.store.EventCountsByVariant(ctx, eventName)
	if err != nil {
		return nil, storeErr("count events by variant", err)
	}
	uniqueRows, err := e.store.EventUniqueSessions(ctx, eventName)
	if err != nil {
		return nil, storeErr("count unique sessions", err)
	}

	totals := countsByVariant(totalRows)
	uniques := countsByVariant(uniqueRows)
	variants := variantUnion(totals, uniques)

	rows := make([]DetailedRow, 0, len(variants))
	for _, v := range variants {
		row := DetailedRow{VariantName: v, Total: totals[v], UniqueSessions: uniques[v]}
		if row.UniqueSessions > 0 {
			row.AvgPerSession = float64(row.Total) / float64(row.UniqueSessions)
		}
		rows = append(rows, row)
	}

	e.log.Debug("events detailed", zap.String("event_name", eventName), zap.Int("variants", len(rows)))
	return &EventsDetailedReport{EventName: eventName, Rows: rows}, nil
}

// EventsLike counts events per variant and name for every name matching
// the LIKE pattern.
func (e *Engine) EventsLike(ctx context.Context, pattern string) (*EventsLikeReport, error) {
	if err := required("pattern", pattern); err != nil {
		return nil, err
	}
	rows, err := e.store.EventCountsLike(ctx, pattern)
	if err != nil {
		return nil, storeErr("count events like pattern", err)
	}
	sortKeyedCounts(rows)

	e.log.Debug("events like", zap.String("pattern", pattern), zap.Int("rows", len(rows)))
	return &EventsLikeReport{Pattern: pattern, Rows: rows}, nil
}

// PageviewsByVariant counts page views of page per variant.
func (e *Engine) PageviewsByVariant(ctx context.Context, page string) (*PageviewsReport, error) {
	if err := required("page", page); err != nil {
		return nil, err
	}
	rows, err := e.store.PageViewCountsByVariant(ctx, page)
	if err != nil {
		return nil, storeErr("count page views by variant", err)
	}
	sortVariantCounts(rows)

	e.log.Debug("pageviews by variant", zap.String("page", page), zap.Int("variants", len(rows)))
	return &PageviewsReport{Page: page, Rows: rows}, nil
}

// Conversion divides events fired on page by page views of page, per
// variant. A variant seen on only one side still gets a row, with zero
// for the missing side.
func (e *Engine) Conversion(ctx context.Context, eventName, page string) (*ConversionReport, error) {
	if err := required("event name", eventName); err != nil {
		return nil, err
	}
	if err := required("page", page); err != nil {
		return nil, err
	}
	pvRows, err := e.store.PageViewCountsByVariant(ctx, page)
	if err != nil {
		return nil, storeErr("count page views by variant", err)
	}
	evRows, err := e.store.EventCountsOnPage(ctx, eventName, page)
	if err != nil {
		return nil, storeErr("count events on page", err)
	}

	pageviews := countsByVariant(pvRows)
	events := countsByVariant(evRows)
	variants := variantUnion(pageviews, events)

	rows := make([]ConversionRow, 0, len(variants))
	for _, v := range variants {
		row := ConversionRow{VariantName: v, Pageviews: pageviews[v], Events: events[v]}
		if row.Pageviews > 0 {
			row.Rate = float64(row.Events) / float64(row.Pageviews)
		}
		rows = append(rows, row)
	}

	e.log.Debug("conversion",
		zap.String("event_name", eventName),
		zap.String("page", page),
		zap.Int("variants", len(rows)),
	)
	return &ConversionReport{EventName: eventName, Page: page, Rows: rows}, nil
}

// Summary counts all events by variant and name and all page views by
// variant and page.
func (e *Engine) Summary(ctx context.Context) (*SummaryReport, error) {
	events, err := e.store.EventCountsByVariantAndName(ctx)
	if err != nil {
		return nil, storeErr("count events by variant and name", err)
	}
	pageViews, err := e.store.PageViewCountsByVariantAndPage(ctx)
	if err != nil {
		return nil, storeErr("count page views by variant and page", err)
	}
	sortKeyedCounts(events)
	sortKeyedCounts(pageViews)

	e.log.Debug("summary", zap.Int("event_rows", len(events)), zap.Int("pageview_rows", len(pageViews)))
	return &SummaryReport{Events: events, PageViews: pageViews}, nil
}

// Recent returns the limit newest events, newest first.
func (e *Engine) Recent(ctx context.Context, limit int) (*RecentReport, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: limit must be at least 1, got %d", ErrInvalidInput, limit)
	}
	events, err := e.store.RecentEvents(ctx, limit)
	if err != nil {
		return nil, storeErr("load recent events", err)
	}
	if len(events) > limit {
		events = events[:limit]
	}

	e.log.Debug("recent events", zap.Int("limit", limit), zap.Int("rows", len(events)))
	return &RecentReport{Events: events}, nil
}
