package yggAuth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one counter or histogram tracked by [Metrics].
type MetricID uint16

const (
	// MetricLoginSuccess counts credential logins that returned SUCCESS.
	MetricLoginSuccess MetricID = iota
	// MetricLoginMethodNotAllowed counts logins rejected with HTTP 405.
	MetricLoginMethodNotAllowed
	// MetricLoginNotFound counts logins rejected with HTTP 404.
	MetricLoginNotFound
	// MetricLoginInvalidCredentials counts logins rejected with HTTP 403.
	MetricLoginInvalidCredentials
	// MetricLoginTimeout counts logins that timed out or were cancelled.
	MetricLoginTimeout
	// MetricLoginOther counts unclassified login failures.
	MetricLoginOther
	// MetricLoginInternal counts logins interrupted by a local fault.
	MetricLoginInternal
	// MetricValidateSuccess counts validate calls that confirmed the token.
	MetricValidateSuccess
	// MetricValidateFailure counts validate calls that rejected the token.
	MetricValidateFailure
	// MetricRefreshSuccess counts refresh calls that issued a new token.
	MetricRefreshSuccess
	// MetricRefreshTimeout counts refresh calls that timed out or were cancelled.
	MetricRefreshTimeout
	// MetricRefreshFailure counts refresh calls that ended in REQ_LOGIN.
	MetricRefreshFailure
	// MetricReauthInternal counts re-authentications interrupted by a local fault.
	MetricReauthInternal
	// MetricAuthenticateLatency is the authenticate call latency histogram.
	MetricAuthenticateLatency
	// MetricValidateLatency is the validate call latency histogram.
	MetricValidateLatency
	// MetricRefreshLatency is the refresh call latency histogram.
	MetricRefreshLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters and latency histograms. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all metric values.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns metrics configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether latency histograms are recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc increments counter id. It is safe for concurrent use.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d into histogram id. Observations on ids that are not
// latency histograms are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if !isHistogram(id) {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies all counters and, when enabled, all histograms.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, len(histogramIDs)),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if isHistogram(id) {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		for _, id := range histogramIDs {
			buckets := make([]uint64, histBucketCount)
			for i := 0; i < histBucketCount; i++ {
				buckets[i] = atomic.LoadUint64(&m.histograms[id].buckets[i])
			}
			s.Histograms[id] = buckets
		}
	}

	return s
}

var histogramIDs = [...]MetricID{
	MetricAuthenticateLatency,
	MetricValidateLatency,
	MetricRefreshLatency,
}

func isHistogram(id MetricID) bool {
	return id >= MetricAuthenticateLatency && id <= MetricRefreshLatency
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 50:
		return 0
	case ms <= 100:
		return 1
	case ms <= 250:
		return 2
	case ms <= 500:
		return 3
	case ms <= 1000:
		return 4
	case ms <= 2500:
		return 5
	case ms <= 5000:
		return 6
	default:
		return 7
	}
}
