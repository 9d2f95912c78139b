package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cineindex_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cineindex_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cineindex_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Store metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cineindex_db_queries_total",
			Help: "Total number of index store queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cineindex_db_query_duration_seconds",
			Help:    "Index store query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBTransactionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cineindex_db_transaction_duration_seconds",
			Help:    "Index store transaction duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"result"}, // "commit", "rollback"
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cineindex_db_connections_open",
			Help: "Number of open index store connections",
		},
	)
)

// Crawler metrics
var (
	CrawlRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cineindex_crawl_runs_total",
			Help: "Total number of crawl runs",
		},
	)

	CrawlIsRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cineindex_crawl_running",
			Help: "Whether a crawl is currently running (1 = running, 0 = idle)",
		},
	)

	CrawlLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cineindex_crawl_last_run_timestamp",
			Help: "Timestamp of the last completed crawl",
		},
	)

	CrawlLastRunDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cineindex_crawl_last_run_duration_seconds",
			Help: "Duration of the last completed crawl in seconds",
		},
	)

	CrawlDirsVisited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cineindex_crawl_directories_visited_total",
			Help: "Total number of directory listings fetched by the crawler",
		},
	)

	CrawlDirsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cineindex_crawl_directories_skipped_total",
			Help: "Total number of unchanged directories whose subtrees were skipped",
		},
	)

	CrawlEntriesDiscovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cineindex_crawl_entries_discovered_total",
			Help: "Total number of entries reconciled into the index store",
		},
	)

	CrawlErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cineindex_crawl_errors_total",
			Help: "Total number of directories abandoned after fetch failures",
		},
	)

	FetchRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cineindex_fetch_retries_total",
			Help: "Total number of listing fetch retries",
		},
	)

	FetchErrorsByKind = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cineindex_fetch_errors_total",
			Help: "Total number of listing fetch errors by kind",
		},
		[]string{"kind"}, // "timeout", "http_status", "parse", "connection"
	)

	FetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cineindex_fetch_duration_seconds",
			Help:    "Listing fetch and parse duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)
)

// Search metrics
var (
	SearchQueriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cineindex_search_queries_total",
			Help: "Total number of search queries",
		},
	)

	SearchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cineindex_search_duration_seconds",
			Help:    "Search computation duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	SearchSnapshotSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cineindex_search_snapshot_entries",
			Help: "Number of entries in the current search snapshot",
		},
	)
)
