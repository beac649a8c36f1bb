// Package prometheus renders Manager metrics in Prometheus text
// exposition format, without a client library dependency. Mount
// [PrometheusExporter.Handler] on a scrape endpoint.
package prometheus
