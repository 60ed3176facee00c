package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// EventRowsFetched counts transparency log rows read, by event type.
	EventRowsFetched = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "leaddash_event_rows_fetched_total",
		Help: "Total transparency log rows fetched by event type",
	}, []string{"event_type"})

	// EventBatchRetries counts retried batch reads.
	EventBatchRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "leaddash_event_batch_retries_total",
		Help: "Total retried event batch reads by event type",
	}, []string{"event_type"})

	// EventBatchesSkipped counts batches given up on. Skipped batches mean the
	// dashboard undercounts.
	EventBatchesSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "leaddash_event_batches_skipped_total",
		Help: "Total event batches skipped after exhausting retries",
	}, []string{"event_type"})

	// CacheLookups counts cache lookups by dataset and result (fresh, stale, empty).
	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "leaddash_cache_lookups_total",
		Help: "Total cache lookups by dataset and result",
	}, []string{"dataset", "result"})

	// CacheRefreshFailures counts failed background refreshes.
	CacheRefreshFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "leaddash_cache_refresh_failures_total",
		Help: "Total failed cache refreshes by dataset",
	}, []string{"dataset"})

	// AggregationDuration observes full fetch, merge and aggregate runs.
	AggregationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "leaddash_aggregation_duration_seconds",
		Help:    "Duration of dashboard pipeline runs",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"dataset"})
)

var cacheEntryAgeDesc = prometheus.NewDesc(
	"leaddash_cache_entry_age_seconds",
	"Age of each cached entry",
	[]string{"key"},
	nil,
)

// AgeSource reports the age of every live cache entry, keyed by cache key.
type AgeSource interface {
	Ages() map[string]time.Duration
}

// CacheAgeCollector is a custom Prometheus collector that reads cache entry
// ages on each scrape.
type CacheAgeCollector struct {
	sources []AgeSource
}

// NewCacheAgeCollector creates a collector over the given caches.
func NewCacheAgeCollector(sources ...AgeSource) *CacheAgeCollector {
	return &CacheAgeCollector{sources: sources}
}

// Describe sends the metric descriptor to the channel.
func (c *CacheAgeCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- cacheEntryAgeDesc
}

// Collect emits one gauge per cached entry.
func (c *CacheAgeCollector) Collect(ch chan<- prometheus.Metric) {
	for _, src := range c.sources {
		for key, age := range src.Ages() {
			ch <- prometheus.MustNewConstMetric(
				cacheEntryAgeDesc,
				prometheus.GaugeValue,
				age.Seconds(),
				key,
			)
		}
	}
}

var initOnce sync.Once

// Init registers all collectors with the default registry.
// Must be called once at startup.
func Init(sources ...AgeSource) {
	initOnce.Do(func() {
		prometheus.MustRegister(
			EventRowsFetched,
			EventBatchRetries,
			EventBatchesSkipped,
			CacheLookups,
			CacheRefreshFailures,
			AggregationDuration,
			NewCacheAgeCollector(sources...),
		)
	})
}
