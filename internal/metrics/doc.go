// Package metrics defines the Prometheus metrics exported by the service:
// HTTP request metrics, index store query metrics, crawl progress metrics
// and search latency metrics.
//
// All metrics are registered with the default registry via promauto and
// served on the metrics port by promhttp.
package metrics
