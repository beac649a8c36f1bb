// Package otel bridges Manager metrics into an OpenTelemetry meter via
// observable instruments. Counters are published as observable counters
// and histogram buckets as cumulative gauges, collected on each reader
// cycle.
package otel
