package report

import (
	"context"
	"fmt"
)

// Kind names one of the available reports.
type Kind string

const (
	KindSummary        Kind = "summary"
	KindEvents         Kind = "events"
	KindEventsDetailed Kind = "events-detailed"
	KindEventsLike     Kind = "events-like"
	KindPageviews      Kind = "pageviews"
	KindConversion     Kind = "conversion"
	KindRecent         Kind = "recent"
)

// Kinds lists every report kind in display order.
var Kinds = []Kind{
	KindSummary, KindEvents, KindEventsDetailed, KindEventsLike,
	KindPageviews, KindConversion, KindRecent,
}

// Request selects a report and carries its filter parameters. Fields a
// kind does not use are ignored.
type Request struct {
	Kind    Kind
	Event   string
	Page    string
	Pattern string
	Limit   int
}

// Run dispatches req to the matching report.
func (e *Engine) Run(ctx context.Context, req Request) (Report, error) {
	switch req.Kind {
	case KindSummary:
		r, err := e.Summary(ctx)
		return asReport(r, err)
	case KindEvents:
		r, err := e.EventsByVariant(ctx, req.Event)
		return asReport(r, err)
	case KindEventsDetailed:
		r, err := e.EventsDetailed(ctx, req.Event)
		return asReport(r, err)
	case KindEventsLike:
		r, err := e.EventsLike(ctx, req.Pattern)
		return asReport(r, err)
	case KindPageviews:
		r, err := e.PageviewsByVariant(ctx, req.Page)
		return asReport(r, err)
	case KindConversion:
		r, err := e.Conversion(ctx, req.Event, req.Page)
		return asReport(r, err)
	case KindRecent:
		r, err := e.Recent(ctx, req.Limit)
		return asReport(r, err)
	default:
		return nil, fmt.Errorf("%w: unknown report %q", ErrInvalidInput, req.Kind)
	}
}

// asReport keeps a failed typed result from becoming a non-nil interface.
func asReport[T Report](r T, err error) (Report, error) {
	if err != nil {
		return nil, err
	}
	return r, nil
}
