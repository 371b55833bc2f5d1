package otel

import (
	"context"
	"sync"
	"testing"

	yggAuth "github.com/nsiso/yggAuth"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

type fakeSource struct {
	mu       sync.RWMutex
	snapshot yggAuth.MetricsSnapshot
	dropped  uint64
}

func (f *fakeSource) MetricsSnapshot() yggAuth.MetricsSnapshot {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := yggAuth.MetricsSnapshot{
		Counters:   make(map[yggAuth.MetricID]uint64, len(f.snapshot.Counters)),
		Histograms: make(map[yggAuth.MetricID][]uint64, len(f.snapshot.Histograms)),
	}
	for k, v := range f.snapshot.Counters {
		out.Counters[k] = v
	}
	for k, buckets := range f.snapshot.Histograms {
		next := make([]uint64, len(buckets))
		copy(next, buckets)
		out.Histograms[k] = next
	}
	return out
}

func (f *fakeSource) AuditDropped() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.dropped
}

func newTestMeter() (*sdkmetric.ManualReader, *sdkmetric.MeterProvider) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	return reader, provider
}

func findInt64(rm metricdata.ResourceMetrics, name string) (int64, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if len(data.DataPoints) > 0 {
					return data.DataPoints[0].Value, true
				}
			case metricdata.Gauge[int64]:
				if len(data.DataPoints) > 0 {
					return data.DataPoints[0].Value, true
				}
			}
		}
	}
	return 0, false
}

func findBucket(rm metricdata.ResourceMetrics, name, le string) (int64, bool) {
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			gauge, ok := m.Data.(metricdata.Gauge[int64])
			if !ok {
				return 0, false
			}
			for _, dp := range gauge.DataPoints {
				if v, ok := dp.Attributes.Value(attribute.Key("le")); ok && v.AsString() == le {
					return dp.Value, true
				}
			}
		}
	}
	return 0, false
}

func TestExporterRegistersAndCollects(t *testing.T) {
	reader, provider := newTestMeter()
	meter := provider.Meter("yggauth-test")

	src := &fakeSource{
		snapshot: yggAuth.MetricsSnapshot{
			Counters: map[yggAuth.MetricID]uint64{
				yggAuth.MetricLoginSuccess:   3,
				yggAuth.MetricRefreshFailure: 2,
			},
			Histograms: map[yggAuth.MetricID][]uint64{
				yggAuth.MetricValidateLatency: {1, 1, 1, 1, 1, 1, 1, 1},
			},
		},
		dropped: 1,
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	checks := map[string]int64{
		"yggauth_login_success_total":                      3,
		"yggauth_refresh_failure_total":                    2,
		"yggauth_audit_dropped_total":                      1,
		"yggauth_validate_latency_seconds_count": 8,
	}
	for name, want := range checks {
		got, ok := findInt64(rm, name)
		if !ok {
			t.Fatalf("metric %s not collected", name)
		}
		if got != want {
			t.Fatalf("metric %s: expected %d, got %d", name, want, got)
		}
	}

	buckets := map[string]int64{"0.05": 1, "0.5": 4, "+Inf": 8}
	for le, want := range buckets {
		got, ok := findBucket(rm, "yggauth_validate_latency_seconds_bucket", le)
		if !ok {
			t.Fatalf("bucket le=%s not collected", le)
		}
		if got != want {
			t.Fatalf("bucket le=%s: expected %d, got %d", le, want, got)
		}
	}
	if _, ok := findInt64(rm, "yggauth_authenticate_latency_seconds_count"); ok {
		t.Fatal("expected histograms absent from the snapshot to be skipped")
	}
}

func TestExporterRejectsNilInputs(t *testing.T) {
	_, provider := newTestMeter()
	meter := provider.Meter("yggauth-test")

	if _, err := NewOTelExporterFromSource(meter, nil); err != ErrNilSource {
		t.Fatalf("expected ErrNilSource, got %v", err)
	}
	if _, err := NewOTelExporterFromSource(nil, &fakeSource{}); err != ErrNilMeter {
		t.Fatalf("expected ErrNilMeter, got %v", err)
	}
}

func TestExporterObservesEngine(t *testing.T) {
	reader, provider := newTestMeter()

	engine, err := yggAuth.New().
		WithRemoteClient(stubClient{}).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	exp, err := NewOTelExporter(provider.Meter("yggauth-test"), engine)
	if err != nil {
		t.Fatalf("NewOTelExporter failed: %v", err)
	}
	defer exp.Close()

	_ = engine.Login(context.Background(), yggAuth.Credentials{Username: "alice", Password: "pw"})

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if got, _ := findInt64(rm, "yggauth_login_success_total"); got != 1 {
		t.Fatalf("expected one observed login, got %d", got)
	}
}

func TestExporterConcurrentCollectNoPanic(t *testing.T) {
	reader, provider := newTestMeter()
	meter := provider.Meter("yggauth-test")

	src := &fakeSource{
		snapshot: yggAuth.MetricsSnapshot{
			Counters: map[yggAuth.MetricID]uint64{
				yggAuth.MetricLoginSuccess: 1,
			},
			Histograms: map[yggAuth.MetricID][]uint64{
				yggAuth.MetricValidateLatency: {1, 0, 0, 0, 0, 0, 0, 0},
			},
		},
	}

	exp, err := NewOTelExporterFromSource(meter, src)
	if err != nil {
		t.Fatalf("NewOTelExporterFromSource failed: %v", err)
	}
	defer func() {
		if err := exp.Close(); err != nil {
			t.Fatalf("Close failed: %v", err)
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(v uint64) {
			defer wg.Done()
			src.mu.Lock()
			src.snapshot.Counters[yggAuth.MetricLoginSuccess] = v
			src.mu.Unlock()

			var rm metricdata.ResourceMetrics
			_ = reader.Collect(context.Background(), &rm)
		}(uint64(i + 1))
	}
	wg.Wait()
}
