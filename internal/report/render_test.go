package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"siteinsight/internal/db"
)

func render(t *testing.T, r Report) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf))
	return buf.String()
}

func TestRender_EventsByVariant(t *testing.T) {
	r := &EventsByVariantReport{
		EventName: "click",
		Rows:      []db.VariantCount{{VariantName: "A", Count: 2}, {VariantName: "B", Count: 1}},
	}

	want := strings.Join([]string{
		"",
		"Events for 'click' by variant:",
		"----------------------------------------",
		"A                 2",
		"B                 1",
		"",
		"",
	}, "\n")
	assert.Equal(t, want, render(t, r))
}

func TestRender_NoDataLines(t *testing.T) {
	tests := []struct {
		name   string
		report Report
		want   string
	}{
		{"events", &EventsByVariantReport{EventName: "click"}, "No events found for event_name='click'\n"},
		{"detailed", &EventsDetailedReport{EventName: "click"}, "No events found for event_name='click'\n"},
		{"like", &EventsLikeReport{Pattern: "click_%"}, "No events found for pattern LIKE 'click_%'\n"},
		{"pageviews", &PageviewsReport{Page: "/"}, "No pageviews found for page='/'\n"},
		{"conversion", &ConversionReport{EventName: "click", Page: "/"}, "No data for event='click' on page='/'\n"},
		{"recent", &RecentReport{}, "No events logged yet.\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.report.NoData())
			assert.Equal(t, tt.want, render(t, tt.report))
		})
	}
}

func TestRender_EventsDetailed(t *testing.T) {
	r := &EventsDetailedReport{
		EventName: "click_buy-now_hero",
		Rows:      []DetailedRow{{VariantName: "A", Total: 3, UniqueSessions: 2, AvgPerSession: 1.5}},
	}

	want := strings.Join([]string{
		"",
		"Detailed stats for event 'click_buy-now_hero' by variant:",
		"  Event breakdown → action='click', target='buy-now', location='hero'",
		"----------------------------------------------------------------------",
		"Variant         Total     Unique    Avg per session",
		"----------------------------------------------------------------------",
		"A                   3          2               1.50",
		"",
		"",
	}, "\n")
	assert.Equal(t, want, render(t, r))
}

func TestRender_Conversion(t *testing.T) {
	r := &ConversionReport{
		EventName: "click_buy_hero",
		Page:      "/",
		Rows: []ConversionRow{
			{VariantName: "A", Pageviews: 10, Events: 2, Rate: 0.2},
			{VariantName: "B", Pageviews: 5, Events: 0, Rate: 0},
		},
	}

	want := strings.Join([]string{
		"",
		"Conversion for event='click_buy_hero' on page='/':",
		"  Event breakdown → action='click', target='buy', location='hero'",
		"----------------------------------------------------------------------",
		"Variant     Pageviews     Events   Conversion",
		"----------------------------------------------------------------------",
		"A                  10          2      20.00%",
		"B                   5          0       0.00%",
		"",
		"",
	}, "\n")
	assert.Equal(t, want, render(t, r))
}

func TestRender_EventsLike_MixesBreakdownAndRawRows(t *testing.T) {
	r := &EventsLikeReport{
		Pattern: "click_%",
		Rows: []db.KeyedCount{
			{VariantName: "A", Name: "click-legacy", Count: 1},
			{VariantName: "A", Name: "click_buy_hero", Count: 2},
		},
	}

	want := strings.Join([]string{
		"",
		"Events matching pattern 'click_%' by variant and name:",
		"----------------------------------------------------------------------",
		"",
		"Variant: A",
		"  Action     Target                 Location              Count",
		"  ---------- ---------------------- ------------------ --------",
		"  click-legacy                                                1",
		"  click      buy                    hero                      2",
		"",
		"",
	}, "\n")
	assert.Equal(t, want, render(t, r))
}

func TestRender_Summary_Empty(t *testing.T) {
	want := strings.Join([]string{
		"",
		"=== Events by variant and name ===",
		"No events logged yet.",
		"",
		"=== Pageviews by variant and page ===",
		"No page views logged yet.",
		"",
		"",
	}, "\n")
	assert.Equal(t, want, render(t, &SummaryReport{}))
}

func TestRender_Summary(t *testing.T) {
	r := &SummaryReport{
		Events: []db.KeyedCount{
			{VariantName: "A", Name: "click_buy_hero", Count: 3},
			{VariantName: "B", Name: "submit", Count: 1},
		},
		PageViews: []db.KeyedCount{
			{VariantName: "A", Name: "/", Count: 10},
			{VariantName: "A", Name: "/about", Count: 4},
			{VariantName: "B", Name: "/", Count: 5},
		},
	}

	want := strings.Join([]string{
		"",
		"=== Events by variant and name ===",
		"",
		"Variant: A",
		"  Action     Target                 Location              Count",
		"  ---------- ---------------------- ------------------ --------",
		"  click      buy                    hero                      3",
		"",
		"Variant: B",
		"  Action     Target                 Location              Count",
		"  ---------- ---------------------- ------------------ --------",
		"  submit                                                      1",
		"",
		"=== Pageviews by variant and page ===",
		"",
		"Variant: A",
		"  /                          10",
		"  /about                      4",
		"",
		"Variant: B",
		"  /                           5",
		"",
		"",
	}, "\n")
	assert.Equal(t, want, render(t, r))
}

func TestRender_Recent(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	r := &RecentReport{Events: []db.Event{
		{
			Timestamp:   ts,
			VariantName: "hero_A",
			EventName:   "click_buy-now_hero",
			PageURL:     "/",
			Metadata:    datatypes.JSONMap{"plan": "pro"},
		},
		{
			Timestamp:   ts.Add(-time.Hour),
			VariantName: "hero_B",
			EventName:   "legacy",
			PageURL:     "/product",
		},
	}}

	want := strings.Join([]string{
		"",
		"Last 2 events:",
		"--------------------------------------------------------------------------------",
		`[2026-03-01 12:00:00] hero_A  click_buy-now_hero             (click/buy-now/hero)     /          metadata={"plan":"pro"}`,
		"[2026-03-01 11:00:00] hero_B  legacy                                                  /product   metadata={}",
		"",
		"",
	}, "\n")
	assert.Equal(t, want, render(t, r))
}

func TestRender_KeepsVariantsSharingAPrefixDistinct(t *testing.T) {
	conv := &ConversionReport{
		EventName: "click_buy_hero",
		Page:      "/",
		Rows: []ConversionRow{
			{VariantName: "experiment_A", Pageviews: 10, Events: 2, Rate: 0.2},
			{VariantName: "experiment_B", Pageviews: 5},
		},
	}
	out := render(t, conv)
	assert.Contains(t, out, "experiment_A         10          2      20.00%\n")
	assert.Contains(t, out, "experiment_B          5          0       0.00%\n")

	byVariant := &EventsByVariantReport{
		EventName: "click",
		Rows: []db.VariantCount{
			{VariantName: "hero_long_A", Count: 3},
			{VariantName: "hero_long_B", Count: 1},
		},
	}
	out = render(t, byVariant)
	assert.Contains(t, out, "hero_long_A        3\n")
	assert.Contains(t, out, "hero_long_B        1\n")
}

func TestRender_LongPagesAndRawNamesArePrintedInFull(t *testing.T) {
	summary := &SummaryReport{
		Events: []db.KeyedCount{
			{VariantName: "A", Name: "legacy-event-name-that-is-much-longer-than-the-raw-name-column", Count: 2},
		},
		PageViews: []db.KeyedCount{
			{VariantName: "A", Name: "/products/a-very-long-slug", Count: 4},
		},
	}

	out := render(t, summary)

	assert.Contains(t, out, "  legacy-event-name-that-is-much-longer-than-the-raw-name-column        2\n")
	assert.Contains(t, out, "  /products/a-very-long-slug        4\n")
}

func TestRender_TruncatesBreakdownCells(t *testing.T) {
	r := &EventsLikeReport{
		Pattern: "click_%",
		Rows: []db.KeyedCount{
			{VariantName: "A", Name: "unsubscribed_newsletter_footer", Count: 1},
		},
	}

	out := render(t, r)

	assert.Contains(t, out, "  unsubscrib newsletter             footer                    1\n")
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestRender_PropagatesWriteErrors(t *testing.T) {
	err := (&SummaryReport{}).Render(failingWriter{})
	assert.EqualError(t, err, "broken pipe")
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "20.00%", percent(0.2))
	assert.Equal(t, "0.00%", percent(0))
	assert.Equal(t, "33.33%", percent(1.0/3.0))
}
