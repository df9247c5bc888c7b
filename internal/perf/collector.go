// Package perf measures calculator work. A Collector is created explicitly
// and handed to whatever needs it; there is no process-wide instance.
package perf

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DefaultThreshold is the slowest a measured function may run before
// CheckThresholds reports it.
const DefaultThreshold = 100 * time.Millisecond

// ErrClosed is returned by Measure after Close.
var ErrClosed = errors.New("collector closed")

// Collector records durations in memory and forwards operation metrics to
// OpenTelemetry instruments.
type Collector struct {
	mu        sync.Mutex
	closed    bool
	samples   map[string]float64
	threshold time.Duration

	opsCounter   metric.Int64Counter
	opsHistogram metric.Float64Histogram
	errorCounter metric.Int64Counter
	resultGauge  metric.Float64Gauge
}

// Option configures a Collector.
type Option func(*Collector)

// WithThreshold overrides DefaultThreshold.
func WithThreshold(d time.Duration) Option {
	return func(c *Collector) {
		if d > 0 {
			c.threshold = d
		}
	}
}

// New registers the calculator instruments on meter.
func New(meter metric.Meter, opts ...Option) (*Collector, error) {
	c := &Collector{
		samples:   make(map[string]float64),
		threshold: DefaultThreshold,
	}
	for _, opt := range opts {
		opt(c)
	}

	var err error

	c.opsCounter, err = meter.Int64Counter("calculator.operations.total",
		metric.WithDescription("Total number of calculator operations performed"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ops counter: %w", err)
	}

	c.opsHistogram, err = meter.Float64Histogram("calculator.operation.duration",
		metric.WithDescription("Duration of calculator operations in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("creating ops histogram: %w", err)
	}

	c.errorCounter, err = meter.Int64Counter("calculator.errors.total",
		metric.WithDescription("Total number of calculator errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating error counter: %w", err)
	}

	c.resultGauge, err = meter.Float64Gauge("calculator.last_result",
		metric.WithDescription("The result of the last calculator operation"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating result gauge: %w", err)
	}

	return c, nil
}

// ErrorCounter exposes the error instrument for HTTP error reporting.
func (c *Collector) ErrorCounter() metric.Int64Counter {
	return c.errorCounter
}

// Measure runs fn and stores its duration under name.
func (c *Collector) Measure(name string, fn func()) error {
	start := time.Now()
	fn()
	return c.Set(name, msSince(start))
}

// Set stores an arbitrary sample.
func (c *Collector) Set(name string, value float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	c.samples[name] = value
	return nil
}

// RecordOperation counts one successful operation.
func (c *Collector) RecordOperation(ctx context.Context, op string, elapsed time.Duration, result float64) {
	attrs := metric.WithAttributes(attribute.String("operation", op))
	c.opsCounter.Add(ctx, 1, attrs)
	c.opsHistogram.Record(ctx, float64(elapsed.Microseconds())/1000.0, attrs)
	c.resultGauge.Record(ctx, result, attrs)
}

// RecordError counts one failed operation.
func (c *Collector) RecordError(ctx context.Context, op string) {
	c.errorCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", op)))
}

// Metrics returns a copy of the stored samples.
func (c *Collector) Metrics() map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	return maps.Clone(c.samples)
}

// CheckThresholds lists every sample slower than the threshold.
func (c *Collector) CheckThresholds() (bool, []string) {
	limit := float64(c.threshold.Microseconds()) / 1000.0
	samples := c.Metrics()

	var issues []string
	for _, name := range slices.Sorted(maps.Keys(samples)) {
		if ms := samples[name]; ms > limit {
			issues = append(issues, fmt.Sprintf("%s execution time (%.2fms) exceeds %.0fms", name, ms, limit))
		}
	}
	return len(issues) == 0, issues
}

// Close drops all samples and rejects further ones.
func (c *Collector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	clear(c.samples)
	return nil
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
