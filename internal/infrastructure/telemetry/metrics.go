package telemetry

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Counter is a helper for creating and recording counter metrics.
type Counter struct {
	counter metric.Int64Counter
}

// NewCounter creates a new Counter metric.
func NewCounter(meter metric.Meter, name, description, unit string) (*Counter, error) {
	c, err := meter.Int64Counter(
		name,
		metric.WithDescription(description),
		metric.WithUnit(unit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return &Counter{counter: c}, nil
}

// Add increments the counter by the given value with optional attributes.
func (c *Counter) Add(ctx context.Context, value int64, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

// Histogram is a helper for creating and recording histogram metrics.
type Histogram struct {
	histogram metric.Float64Histogram
}

// NewHistogram creates a new Histogram metric with explicit bucket boundaries.
func NewHistogram(meter metric.Meter, name, description, unit string, boundaries ...float64) (*Histogram, error) {
	opts := []metric.Float64HistogramOption{
		metric.WithDescription(description),
		metric.WithUnit(unit),
	}
	if len(boundaries) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(boundaries...))
	}
	h, err := meter.Float64Histogram(name, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram %s: %w", name, err)
	}
	return &Histogram{histogram: h}, nil
}

// RecordDuration records a duration (in seconds) to the histogram.
func (h *Histogram) RecordDuration(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	h.histogram.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}

// Metric attribute keys
var (
	AttrPhase      = attribute.Key("sync.phase")
	AttrOutcome    = attribute.Key("sync.outcome")
	AttrStatus     = attribute.Key("sync.status")
	AttrTrigger    = attribute.Key("sync.trigger")
	AttrHTTPMethod = attribute.Key("http.method")
	AttrHTTPStatus = attribute.Key("http.status_code")
)

var (
	// RemoteDurationBuckets are bucket boundaries for storefront API calls (seconds).
	RemoteDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

	// PhaseDurationBuckets are bucket boundaries for whole sync phases (seconds).
	PhaseDurationBuckets = []float64{1, 5, 15, 30, 60, 300, 900, 1800}
)

// SyncMetrics records sync run, phase and remote call metrics.
// A nil *SyncMetrics is valid and records nothing.
type SyncMetrics struct {
	runsTotal      *Counter
	itemsTotal     *Counter
	phaseDuration  *Histogram
	remoteRequests *Counter
	remoteDuration *Histogram
	conflictsTotal *Counter
}

// NewSyncMetrics creates the sync instruments on meter.
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	m := &SyncMetrics{}
	var err error
	if m.runsTotal, err = NewCounter(meter, "sync_runs_total", "Sync runs by final status", "{runs}"); err != nil {
		return nil, err
	}
	if m.itemsTotal, err = NewCounter(meter, "sync_items_total", "Items processed per phase and outcome", "{items}"); err != nil {
		return nil, err
	}
	if m.phaseDuration, err = NewHistogram(meter, "sync_phase_duration_seconds", "Duration of sync phases", "s", PhaseDurationBuckets...); err != nil {
		return nil, err
	}
	if m.remoteRequests, err = NewCounter(meter, "sync_remote_requests_total", "Storefront API requests", "{requests}"); err != nil {
		return nil, err
	}
	if m.remoteDuration, err = NewHistogram(meter, "sync_remote_request_duration_seconds", "Storefront API latency", "s", RemoteDurationBuckets...); err != nil {
		return nil, err
	}
	if m.conflictsTotal, err = NewCounter(meter, "sync_identity_conflicts_total", "Identity conflicts queued for review", "{conflicts}"); err != nil {
		return nil, err
	}
	return m, nil
}

// PhaseCounts are the outcome counters of a finished phase
type PhaseCounts struct {
	Created int
	Updated int
	Failed  int
	Skipped int
}

// RecordPhase records a finished phase
func (m *SyncMetrics) RecordPhase(ctx context.Context, phase, status string, counts PhaseCounts, d time.Duration) {
	if m == nil {
		return
	}
	p := AttrPhase.String(phase)
	for outcome, n := range map[string]int{
		"created": counts.Created,
		"updated": counts.Updated,
		"failed":  counts.Failed,
		"skipped": counts.Skipped,
	} {
		if n > 0 {
			m.itemsTotal.Add(ctx, int64(n), p, AttrOutcome.String(outcome))
		}
	}
	m.phaseDuration.RecordDuration(ctx, d, p, AttrStatus.String(status))
}

// RecordRun counts a finished run
func (m *SyncMetrics) RecordRun(ctx context.Context, trigger, status string) {
	if m == nil {
		return
	}
	m.runsTotal.Add(ctx, 1, AttrTrigger.String(trigger), AttrStatus.String(status))
}

// RecordRemoteRequest counts one storefront call. statusCode is 0 for transport errors.
func (m *SyncMetrics) RecordRemoteRequest(ctx context.Context, method string, statusCode int, d time.Duration) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{AttrHTTPMethod.String(method), AttrHTTPStatus.String(strconv.Itoa(statusCode))}
	m.remoteRequests.Add(ctx, 1, attrs...)
	m.remoteDuration.RecordDuration(ctx, d, attrs...)
}

// RecordConflict counts an identity conflict
func (m *SyncMetrics) RecordConflict(ctx context.Context) {
	if m == nil {
		return
	}
	m.conflictsTotal.Add(ctx, 1)
}
