package handlers

import (
	"bytes"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/valyala/fasthttp"
)

var (
	eventsTotal    *prometheus.CounterVec
	pageviewsTotal *prometheus.CounterVec
	reportDuration *prometheus.HistogramVec

	metricsOnce sync.Once

	variantLabels = newBoundedLabel(maxVariantSeries)
)

// maxVariantSeries caps the distinct variant label values of the ingest
// counters. Variants come from anonymous clients; once the cap is hit,
// new ones are counted under otherVariant. Per-name and per-page
// breakdowns are left to the SQL reports.
const (
	maxVariantSeries = 32
	otherVariant     = "other"
)

// boundedLabel hands out label values, passing through at most max
// distinct ones.
type boundedLabel struct {
	mu   sync.Mutex
	seen map[string]struct{}
	max  int
}

func newBoundedLabel(max int) *boundedLabel {
	return &boundedLabel{seen: make(map[string]struct{}), max: max}
}

func (b *boundedLabel) value(v string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.seen[v]; ok {
		return v
	}
	if len(b.seen) >= b.max {
		return otherVariant
	}
	b.seen[v] = struct{}{}
	return v
}

// InitPrometheusMetrics registers the ingestion and report collectors with
// the default registry. Calling it more than once is a no-op.
func InitPrometheusMetrics() {
	metricsOnce.Do(func() {
		eventsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "siteinsight",
				Name:      "events_total",
				Help:      "Total number of tracked events accepted.",
			},
			[]string{"variant"},
		)
		pageviewsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "siteinsight",
				Name:      "pageviews_total",
				Help:      "Total number of page views accepted.",
			},
			[]string{"variant"},
		)
		reportDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "siteinsight",
				Name:      "report_duration_seconds",
				Help:      "Histogram of report query and render durations in seconds.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"report"},
		)
		prometheus.MustRegister(eventsTotal, pageviewsTotal, reportDuration)
	})
}

// hasLabel reports whether any series of mf carries the label name.
func hasLabel(mf *dto.MetricFamily, name string) bool {
	for _, m := range mf.GetMetric() {
		for _, l := range m.GetLabel() {
			if l.GetName() == name {
				return true
			}
		}
	}
	return false
}

// filterByLabel keeps families without the label untouched and, for the
// others, only the series whose label equals value.
func filterByLabel(families []*dto.MetricFamily, name, value string) []*dto.MetricFamily {
	filtered := make([]*dto.MetricFamily, 0, len(families))
	for _, mf := range families {
		if !hasLabel(mf, name) {
			filtered = append(filtered, mf)
			continue
		}

		var kept []*dto.Metric
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == name && l.GetValue() == value {
					kept = append(kept, m)
					break
				}
			}
		}
		if len(kept) == 0 {
			continue
		}

		filtered = append(filtered, &dto.MetricFamily{
			Name:   mf.Name,
			Help:   mf.Help,
			Type:   mf.Type,
			Metric: kept,
		})
	}
	return filtered
}

// MetricsHandler serves the Prometheus text exposition. With ?variant=
// only series of that variant are kept.
func MetricsHandler(gatherer prometheus.Gatherer) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		metricFamilies, err := gatherer.Gather()
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to gather metrics")
			return
		}

		if variant := string(ctx.QueryArgs().Peek("variant")); variant != "" {
			metricFamilies = filterByLabel(metricFamilies, "variant", variant)
		}

		var buf bytes.Buffer
		encoder := expfmt.NewEncoder(&buf, expfmt.FmtText)
		for _, mf := range metricFamilies {
			if err := encoder.Encode(mf); err != nil {
				errResponse(ctx, fasthttp.StatusInternalServerError, "failed to encode metrics")
				return
			}
		}

		ctx.SetContentType(string(expfmt.FmtText))
		ctx.Response.Header.Set("Cache-Control", "no-store")
		ctx.SetBody(buf.Bytes())
	}
}
