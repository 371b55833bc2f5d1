package otel

import (
	"context"
	"errors"

	crdberrors "github.com/cockroachdb/errors"
	yggAuth "github.com/nsiso/yggAuth"
	"github.com/nsiso/yggAuth/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrNilMeter is returned when no meter is supplied.
	ErrNilMeter = errors.New("nil meter")
	// ErrNilSource is returned when no engine or snapshot source is supplied.
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() yggAuth.MetricsSnapshot
	AuditDropped() uint64
}

type outcomeCounter struct {
	id         yggAuth.MetricID
	instrument metric.Int64ObservableCounter
}

// latencyGauges exports one remote-call histogram as cumulative bucket
// counts keyed by an "le" attribute plus a total count.
type latencyGauges struct {
	id      yggAuth.MetricID
	buckets metric.Int64ObservableGauge
	count   metric.Int64ObservableGauge
}

// OTelExporter keeps the callback registration alive until Close.
type OTelExporter struct {
	source       metricsSource
	registration metric.Registration
	outcomes     []outcomeCounter
	latencies    []latencyGauges
	auditDropped metric.Int64ObservableCounter
	bounds       [internaldefs.BucketCount]metric.ObserveOption
}

// NewOTelExporter registers instruments on meter that observe engine.
func NewOTelExporter(meter metric.Meter, engine *yggAuth.Engine) (*OTelExporter, error) {
	if engine == nil {
		return nil, ErrNilSource
	}
	return NewOTelExporterFromSource(meter, engine)
}

// NewOTelExporterFromSource is NewOTelExporter for anything that produces
// engine snapshots.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}
	for i, le := range internaldefs.HistogramBounds {
		e.bounds[i] = metric.WithAttributeSet(attribute.NewSet(attribute.String("le", le)))
	}

	observables, err := e.createInstruments(meter)
	if err != nil {
		return nil, err
	}

	registration, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, crdberrors.Wrap(err, "register yggauth metrics callback")
	}
	e.registration = registration
	return e, nil
}

func (e *OTelExporter) createInstruments(meter metric.Meter) ([]metric.Observable, error) {
	observables := make([]metric.Observable, 0, len(internaldefs.CounterDefs)+2*len(internaldefs.HistogramDefs)+1)

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name,
			metric.WithDescription(def.Help),
			metric.WithUnit("{attempt}"),
		)
		if err != nil {
			return nil, crdberrors.Wrapf(err, "create counter %s", def.Name)
		}
		e.outcomes = append(e.outcomes, outcomeCounter{id: def.ID, instrument: ins})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		buckets, err := meter.Int64ObservableGauge(def.Name+"_bucket",
			metric.WithDescription(def.Help+" Cumulative count per upper bound."),
			metric.WithUnit("{call}"),
		)
		if err != nil {
			return nil, crdberrors.Wrapf(err, "create bucket gauge %s", def.Name)
		}
		count, err := meter.Int64ObservableGauge(def.Name+"_count",
			metric.WithDescription(def.Help+" Total observed calls."),
			metric.WithUnit("{call}"),
		)
		if err != nil {
			return nil, crdberrors.Wrapf(err, "create count gauge %s", def.Name)
		}
		e.latencies = append(e.latencies, latencyGauges{id: def.ID, buckets: buckets, count: count})
		observables = append(observables, buckets, count)
	}

	dropped, err := meter.Int64ObservableCounter(internaldefs.AuditDroppedName,
		metric.WithDescription("Audit events dropped under dispatcher backpressure."),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, crdberrors.Wrap(err, "create audit dropped counter")
	}
	e.auditDropped = dropped
	return append(observables, dropped), nil
}

func (e *OTelExporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()

	for _, c := range e.outcomes {
		o.ObserveInt64(c.instrument, int64(snap.Counters[c.id]))
	}
	for _, l := range e.latencies {
		raw, ok := snap.Histograms[l.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i, v := range cumulative {
			o.ObserveInt64(l.buckets, int64(v), e.bounds[i])
		}
		o.ObserveInt64(l.count, int64(cumulative[len(cumulative)-1]))
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
