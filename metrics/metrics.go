package metrics

import "github.com/prometheus/client_golang/prometheus"

// Keys for cinedex metrics.
const (
	Fail = "fail"
	Ok   = "ok"

	Hit  = "hit"
	Miss = "miss"

	Create = "create"
	Update = "update"
)

// Collectors for the ETL: the Change-Set Resolver, extraction, and loading.
var (
	WatermarkTimestamp = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cinedex_etl_watermark_timestamp_seconds",
		Help: "Current watermark of each state key, as a Unix timestamp.",
	}, []string{"state_key"})
	ChangedIDsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cinedex_etl_changed_ids_total",
		Help: "Cumulative number of distinct changed identifiers resolved, by pipeline.",
	}, []string{"pipeline"})
	ExtractedRowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cinedex_etl_extracted_rows_total",
		Help: "Cumulative number of source rows extracted, by pipeline.",
	}, []string{"pipeline"})
	LoadedDocumentsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cinedex_etl_loaded_documents_total",
		Help: "Cumulative number of documents applied to the index, by index and operation.",
	}, []string{"index", "op"})
	CycleTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cinedex_etl_cycle_total",
		Help: "Cumulative number of pipeline cycles, by pipeline and status.",
	}, []string{"pipeline", "status"})
	CycleDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cinedex_etl_cycle_duration_seconds",
		Help:    "Duration of pipeline cycles, by pipeline.",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	}, []string{"pipeline"})
	PipelineState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cinedex_etl_pipeline_state",
		Help: "Current state of each pipeline (0 idle, 1 resolving, 2 extracting, 3 loading).",
	}, []string{"pipeline"})
	CarryOverIDs = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cinedex_etl_carry_over_ids",
		Help: "Identifiers of abandoned cycles awaiting the next cycle, by pipeline.",
	}, []string{"pipeline"})
)

// ETLCollectors returns the metrics used by the ETL.
func ETLCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		WatermarkTimestamp,
		ChangedIDsTotal,
		ExtractedRowsTotal,
		LoadedDocumentsTotal,
		CycleTotal,
		CycleDurationSeconds,
		PipelineState,
		CarryOverIDs,
	}
}

// Collectors for the read API and its cache.
var (
	CacheLookupTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cinedex_cache_lookup_total",
		Help: "Cumulative number of read cache lookups, by index and result.",
	}, []string{"index", "result"})
	CacheErrorTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cinedex_cache_error_total",
		Help: "Cumulative number of read cache errors, which are treated as misses.",
	})
	IndexRequestDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name: "cinedex_index_request_duration_seconds",
		Help: "Duration of read requests to the index store, by index and operation.",
	}, []string{"index", "op"})
	APIRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cinedex_api_request_total",
		Help: "Cumulative number of API requests, by route and status code.",
	}, []string{"route", "code"})
)

// APICollectors returns the metrics used by the read API.
func APICollectors() []prometheus.Collector {
	return []prometheus.Collector{
		CacheLookupTotal,
		CacheErrorTotal,
		IndexRequestDurationSeconds,
		APIRequestTotal,
	}
}
