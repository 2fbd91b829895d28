// Package metrics records per-stage durations and per-target outcomes of a
// bundler run and can dump them in the Prometheus text exposition format.
package metrics
