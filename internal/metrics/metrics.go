// Package metrics exposes Prometheus collectors for the feed pipeline.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics surface used by services, workers and middleware
type Recorder interface {
	ObserveFeedPage(unseen, seen int, duration time.Duration)
	RecordHydrationDrops(count int)
	RecordViewsQueued(count int)
	RecordViewsDropped(count int)
	RecordViewsFailed(count int)
	RecordScopeCache(hit bool)
	RecordInteractionEvent(kind string, ok bool)
	RecordHTTPRequest(route string, status int, duration time.Duration)
}

// Collector records metrics into a Prometheus registry
type Collector struct {
	feedPages         prometheus.Counter
	feedPageLatency   prometheus.Histogram
	feedPhaseItems    *prometheus.CounterVec
	hydrationDrops    prometheus.Counter
	viewsQueued       prometheus.Counter
	viewsDropped      prometheus.Counter
	viewsFailed       prometheus.Counter
	scopeCache        *prometheus.CounterVec
	interactionEvents *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpLatency       *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers it with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		feedPages: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "collage_feed_pages_total",
			Help: "Number of main feed pages served",
		}),
		feedPageLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "collage_feed_page_latency_seconds",
			Help:    "Time to resolve scope and paginate one main feed page",
			Buckets: prometheus.DefBuckets,
		}),
		feedPhaseItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collage_feed_phase_items_total",
			Help: "Collages served per pagination phase",
		}, []string{"phase"}),
		hydrationDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "collage_feed_hydration_drops_total",
			Help: "Collage IDs dropped during hydration because they no longer resolve",
		}),
		viewsQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "collage_views_queued_total",
			Help: "Collage IDs queued for asynchronous mark-viewed",
		}),
		viewsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "collage_views_dropped_total",
			Help: "Collage IDs dropped because the view recorder queue was full",
		}),
		viewsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "collage_views_failed_total",
			Help: "Collage IDs whose mark-viewed write failed after retries",
		}),
		scopeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collage_scope_cache_lookups_total",
			Help: "Scope cache lookups by result",
		}, []string{"result"}),
		interactionEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collage_interaction_events_total",
			Help: "Interaction stream events processed by kind and outcome",
		}, []string{"kind", "outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collage_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "collage_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		c.feedPages,
		c.feedPageLatency,
		c.feedPhaseItems,
		c.hydrationDrops,
		c.viewsQueued,
		c.viewsDropped,
		c.viewsFailed,
		c.scopeCache,
		c.interactionEvents,
		c.httpRequests,
		c.httpLatency,
	)

	return c
}

// ObserveFeedPage records one served page and how many items each phase contributed
func (c *Collector) ObserveFeedPage(unseen, seen int, duration time.Duration) {
	c.feedPages.Inc()
	c.feedPageLatency.Observe(duration.Seconds())
	c.feedPhaseItems.WithLabelValues("unseen").Add(float64(unseen))
	c.feedPhaseItems.WithLabelValues("seen").Add(float64(seen))
}

func (c *Collector) RecordHydrationDrops(count int) {
	c.hydrationDrops.Add(float64(count))
}

func (c *Collector) RecordViewsQueued(count int) {
	c.viewsQueued.Add(float64(count))
}

func (c *Collector) RecordViewsDropped(count int) {
	c.viewsDropped.Add(float64(count))
}

func (c *Collector) RecordViewsFailed(count int) {
	c.viewsFailed.Add(float64(count))
}

func (c *Collector) RecordScopeCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.scopeCache.WithLabelValues(result).Inc()
}

func (c *Collector) RecordInteractionEvent(kind string, ok bool) {
	outcome := "error"
	if ok {
		outcome = "ok"
	}
	c.interactionEvents.WithLabelValues(kind, outcome).Inc()
}

func (c *Collector) RecordHTTPRequest(route string, status int, duration time.Duration) {
	c.httpRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	c.httpLatency.WithLabelValues(route).Observe(duration.Seconds())
}

// Handler returns the HTTP handler for Prometheus scrapes
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards all metrics. Used by tests and when metrics are disabled.
type Nop struct{}

func (Nop) ObserveFeedPage(int, int, time.Duration)      {}
func (Nop) RecordHydrationDrops(int)                     {}
func (Nop) RecordViewsQueued(int)                        {}
func (Nop) RecordViewsDropped(int)                       {}
func (Nop) RecordViewsFailed(int)                        {}
func (Nop) RecordScopeCache(bool)                        {}
func (Nop) RecordInteractionEvent(string, bool)          {}
func (Nop) RecordHTTPRequest(string, int, time.Duration) {}
