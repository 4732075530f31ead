// Package stats tracks throughput and error counters for one side of
// the pipeline. Producer and consumer each own an independent
// Aggregator instance; all counters are safe for concurrent update
// without a shared lock.
package stats

import (
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Aggregator accumulates processing counters. Individual counters are
// independently updatable; derived rates are computed at snapshot time.
type Aggregator struct {
	totalProcessed atomic.Int64
	totalErrors    atomic.Int64
	totalTimeMs    atomic.Int64
	maxLatencyMs   atomic.Int64
	minLatencyMs   atomic.Int64
	startNanos     atomic.Int64

	topicCounts sync.Map // topic -> *atomic.Int64
	errorCounts sync.Map // error kind -> *atomic.Int64

	processedCounter *prometheus.CounterVec
	errorCounter     prometheus.Counter
	latencyHist      prometheus.Histogram
}

// Snapshot is an immutable point-in-time copy of the counters plus the
// derived rates.
type Snapshot struct {
	TotalProcessed    int64            `json:"totalProcessed"`
	TotalErrors       int64            `json:"totalErrors"`
	SuccessRate       float64          `json:"successRate"`
	ErrorRate         float64          `json:"errorRate"`
	AvgLatencyMs      float64          `json:"avgLatencyMs"`
	MinLatencyMs      int64            `json:"minLatencyMs"`
	MaxLatencyMs      int64            `json:"maxLatencyMs"`
	MessagesPerSecond float64          `json:"messagesPerSecond"`
	UptimeSeconds     int64            `json:"uptimeSeconds"`
	TopicCounts       map[string]int64 `json:"topicCounts"`
	ErrorCounts       map[string]int64 `json:"errorCounts"`
	SnapshotTime      time.Time        `json:"snapshotTime"`
}

// NewAggregator creates an aggregator whose counters are mirrored to
// Prometheus under the given subsystem ("producer" or "consumer").
// Passing a fresh registry keeps test instances from colliding.
func NewAggregator(subsystem string, reg prometheus.Registerer) *Aggregator {
	a := &Aggregator{}
	a.minLatencyMs.Store(math.MaxInt64)
	a.startNanos.Store(time.Now().UnixNano())

	factory := promauto.With(reg)
	a.processedCounter = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kafka",
		Subsystem: subsystem,
		Name:      "messages_processed_total",
		Help:      "Total number of messages handled, by topic",
	}, []string{"topic"})
	a.errorCounter = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "kafka",
		Subsystem: subsystem,
		Name:      "errors_total",
		Help:      "Total number of failed publish or processing attempts",
	})
	a.latencyHist = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: "kafka",
		Subsystem: subsystem,
		Name:      "processing_duration_ms",
		Help:      "Time taken to publish or process one message",
		Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
	})
	return a
}

// IncrementProcessed counts one successfully handled message for topic.
func (a *Aggregator) IncrementProcessed(topic string) {
	a.totalProcessed.Add(1)
	a.counter(&a.topicCounts, topic).Add(1)
	a.processedCounter.WithLabelValues(topic).Inc()
}

// IncrementErrors counts one failed attempt.
func (a *Aggregator) IncrementErrors() {
	a.totalErrors.Add(1)
	a.errorCounter.Inc()
}

// IncrementErrorKind counts one error of a specific kind (validation,
// publish, processing). Kind counters are reported in the snapshot
// breakdown and do not feed the total.
func (a *Aggregator) IncrementErrorKind(kind string) {
	a.counter(&a.errorCounts, kind).Add(1)
}

// UpdateLatency records the duration of one handled message.
func (a *Aggregator) UpdateLatency(ms int64) {
	a.totalTimeMs.Add(ms)
	a.latencyHist.Observe(float64(ms))

	for {
		cur := a.maxLatencyMs.Load()
		if ms <= cur || a.maxLatencyMs.CompareAndSwap(cur, ms) {
			break
		}
	}
	for {
		cur := a.minLatencyMs.Load()
		if ms >= cur || a.minLatencyMs.CompareAndSwap(cur, ms) {
			break
		}
	}
}

// Snapshot computes the derived metrics from the current counter
// values. Counts observed concurrently with in-flight updates are
// eventually consistent.
func (a *Aggregator) Snapshot() Snapshot {
	total := a.totalProcessed.Load()
	errs := a.totalErrors.Load()
	uptime := int64(time.Since(time.Unix(0, a.startNanos.Load())).Seconds())

	successRate := 100.0
	if total > 0 {
		successRate = float64(total-errs) / float64(total) * 100.0
	}

	avg := 0.0
	if total > 0 {
		avg = float64(a.totalTimeMs.Load()) / float64(total)
	}

	mps := 0.0
	if uptime > 0 {
		mps = float64(total) / float64(uptime)
	}

	minLat := a.minLatencyMs.Load()
	if minLat == math.MaxInt64 {
		minLat = 0
	}

	return Snapshot{
		TotalProcessed:    total,
		TotalErrors:       errs,
		SuccessRate:       successRate,
		ErrorRate:         100.0 - successRate,
		AvgLatencyMs:      avg,
		MinLatencyMs:      minLat,
		MaxLatencyMs:      a.maxLatencyMs.Load(),
		MessagesPerSecond: mps,
		UptimeSeconds:     uptime,
		TopicCounts:       collect(&a.topicCounts),
		ErrorCounts:       collect(&a.errorCounts),
		SnapshotTime:      time.Now().UTC(),
	}
}

// Reset zeroes every counter and restarts the uptime clock. Used for
// test isolation and administrative reset, not steady-state operation.
func (a *Aggregator) Reset() {
	a.totalProcessed.Store(0)
	a.totalErrors.Store(0)
	a.totalTimeMs.Store(0)
	a.maxLatencyMs.Store(0)
	a.minLatencyMs.Store(math.MaxInt64)
	a.startNanos.Store(time.Now().UnixNano())
	a.topicCounts.Range(func(k, _ any) bool {
		a.topicCounts.Delete(k)
		return true
	})
	a.errorCounts.Range(func(k, _ any) bool {
		a.errorCounts.Delete(k)
		return true
	})
}

// TopicCount returns the processed count for one topic.
func (a *Aggregator) TopicCount(topic string) int64 {
	if v, ok := a.topicCounts.Load(topic); ok {
		return v.(*atomic.Int64).Load()
	}
	return 0
}

// TotalProcessed returns the total processed counter.
func (a *Aggregator) TotalProcessed() int64 { return a.totalProcessed.Load() }

// TotalErrors returns the total error counter.
func (a *Aggregator) TotalErrors() int64 { return a.totalErrors.Load() }

func (a *Aggregator) counter(m *sync.Map, key string) *atomic.Int64 {
	if v, ok := m.Load(key); ok {
		return v.(*atomic.Int64)
	}
	v, _ := m.LoadOrStore(key, &atomic.Int64{})
	return v.(*atomic.Int64)
}

func collect(m *sync.Map) map[string]int64 {
	out := make(map[string]int64)
	m.Range(func(k, v any) bool {
		out[k.(string)] = v.(*atomic.Int64).Load()
		return true
	})
	return out
}
