// Package otel binds yggauth engine metrics to OpenTelemetry observable
// instruments.
//
// [NewOTelExporter] registers one Int64ObservableCounter per outcome
// counter. Each latency histogram becomes a "_bucket" gauge with one
// cumulative data point per "le" bound plus a "_count" gauge. A single
// callback reads [yggAuth.Engine.MetricsSnapshot]; callers own the
// MeterProvider.
package otel
