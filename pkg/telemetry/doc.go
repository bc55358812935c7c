// Package telemetry provides structured logging, Prometheus metrics, and
// OpenTelemetry tracing for the jobforge pipeline.
//
// Components take a *Logger (and optionally a *Metrics) at construction;
// both are safe to leave nil or disabled, in which case recording is a
// no-op. One generation run is identified by a Run, which scopes the
// logger with a run_id and records the run duration on completion.
package telemetry
