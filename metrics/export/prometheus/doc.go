// Package prometheus exposes yggauth engine metrics through a
// client_golang [prometheus.Collector].
//
// Counters are named yggauth_*_total. Each remote operation has a
// yggauth_<op>_latency_seconds histogram. The exporter owns a private
// registry; mount [Exporter.Handler] wherever metrics are scraped.
package prometheus
