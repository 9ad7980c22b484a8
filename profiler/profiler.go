// Package profiler - Runtime and per-stage timing statistics.
package profiler

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/nvr-ai/go-vision/logger"
	"go.uber.org/zap"
)

// MetricsCollector defines the interface for collecting custom metrics.
type MetricsCollector interface {
	CollectMetrics() map[string]float64
}

// RuntimeProfiler tracks operation timings, custom metrics and memory, and logs a periodic report.
// It is safe for concurrent use; a nil *RuntimeProfiler is a valid no-op profiler.
type RuntimeProfiler struct {
	reportInterval time.Duration
	sampleInterval time.Duration
	maxSamples     int
	log            *zap.Logger

	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.RWMutex
	startTime time.Time
	running   bool

	memStats    runtime.MemStats
	lastGCCount uint32

	customMetrics  map[string]*MetricTracker
	collectors     []MetricsCollector
	operationTimes map[string]*TimeTracker
}

// MetricTracker tracks statistics for a custom metric over a sliding window.
type MetricTracker struct {
	values []float64
	sum    float64
	min    float64
	max    float64
	count  int64
}

// TimeTracker tracks operation timing statistics over a sliding window.
type TimeTracker struct {
	durations []time.Duration
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// ProfilingOptions configures the runtime profiler.
type ProfilingOptions struct {
	// ReportInterval specifies how often to emit status reports (default: 30s)
	ReportInterval time.Duration `mapstructure:"report_interval"`
	// SampleInterval specifies how often to collect samples (default: 1s)
	SampleInterval time.Duration `mapstructure:"sample_interval"`
	// MaxSamples specifies the window size of every tracker (default: 600)
	MaxSamples int `mapstructure:"max_samples"`
	// Logger receives the reports; nil uses the global logger.
	Logger *zap.Logger `mapstructure:"-"`
}

// NewRuntimeProfiler creates a new runtime profiler with the specified options.
//
// Arguments:
// - opts: Configuration options for the profiler
//
// Returns:
// - A configured RuntimeProfiler instance
func NewRuntimeProfiler(opts ProfilingOptions) *RuntimeProfiler {
	if opts.ReportInterval == 0 {
		opts.ReportInterval = 30 * time.Second
	}
	if opts.SampleInterval == 0 {
		opts.SampleInterval = time.Second
	}
	if opts.MaxSamples == 0 {
		opts.MaxSamples = 600
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &RuntimeProfiler{
		reportInterval: opts.ReportInterval,
		sampleInterval: opts.SampleInterval,
		maxSamples:     opts.MaxSamples,
		log:            logger.Named(opts.Logger, "profiler"),
		ctx:            ctx,
		cancel:         cancel,
		startTime:      time.Now(),
		customMetrics:  make(map[string]*MetricTracker),
		operationTimes: make(map[string]*TimeTracker),
	}
}

// Start begins sampling and periodic reporting. Calling it again while running is a no-op.
func (rp *RuntimeProfiler) Start() {
	if rp == nil {
		return
	}

	rp.mu.Lock()
	defer rp.mu.Unlock()

	if rp.running {
		return
	}

	rp.running = true
	rp.startTime = time.Now()

	rp.wg.Add(2)
	go rp.loop(rp.sampleInterval, rp.sample)
	go rp.loop(rp.reportInterval, rp.emitStatusReport)
}

// Stop gracefully stops the profiler and waits for all goroutines to complete.
func (rp *RuntimeProfiler) Stop() {
	if rp == nil {
		return
	}

	rp.mu.Lock()
	if !rp.running {
		rp.mu.Unlock()
		return
	}
	rp.running = false
	rp.mu.Unlock()

	rp.cancel()
	rp.wg.Wait()
}

func (rp *RuntimeProfiler) loop(interval time.Duration, fn func()) {
	defer rp.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-rp.ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// AddMetricsCollector registers a custom metrics collector polled on every sample.
//
// Arguments:
// - collector: An implementation of MetricsCollector interface
func (rp *RuntimeProfiler) AddMetricsCollector(collector MetricsCollector) {
	if rp == nil {
		return
	}

	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.collectors = append(rp.collectors, collector)
}

// RecordMetric records a custom metric value.
//
// Arguments:
// - name: The name of the metric
// - value: The metric value to record
func (rp *RuntimeProfiler) RecordMetric(name string, value float64) {
	if rp == nil {
		return
	}

	rp.mu.Lock()
	defer rp.mu.Unlock()
	rp.recordMetricLocked(name, value)
}

func (rp *RuntimeProfiler) recordMetricLocked(name string, value float64) {
	tracker, exists := rp.customMetrics[name]
	if !exists {
		tracker = &MetricTracker{min: value, max: value}
		rp.customMetrics[name] = tracker
	}

	tracker.values = append(tracker.values, value)
	if len(tracker.values) > rp.maxSamples {
		tracker.sum -= tracker.values[0]
		tracker.values = tracker.values[1:]
	}

	tracker.sum += value
	tracker.count++
	tracker.min = min(tracker.min, value)
	tracker.max = max(tracker.max, value)
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the operation to track
//
// Returns:
// - A function to call when the operation completes
func (rp *RuntimeProfiler) StartOperation(name string) func() {
	if rp == nil {
		return func() {}
	}

	start := time.Now()
	return func() {
		rp.RecordOperation(name, time.Since(start))
	}
}

// RecordOperation records the completion time of an operation.
func (rp *RuntimeProfiler) RecordOperation(name string, duration time.Duration) {
	if rp == nil {
		return
	}

	rp.mu.Lock()
	defer rp.mu.Unlock()

	tracker, exists := rp.operationTimes[name]
	if !exists {
		tracker = &TimeTracker{minTime: duration, maxTime: duration}
		rp.operationTimes[name] = tracker
	}

	tracker.durations = append(tracker.durations, duration)
	if len(tracker.durations) > rp.maxSamples {
		tracker.totalTime -= tracker.durations[0]
		tracker.durations = tracker.durations[1:]
	}

	tracker.totalTime += duration
	tracker.count++
	tracker.minTime = min(tracker.minTime, duration)
	tracker.maxTime = max(tracker.maxTime, duration)
}

// sample refreshes memory statistics and polls the registered collectors.
func (rp *RuntimeProfiler) sample() {
	rp.mu.Lock()
	defer rp.mu.Unlock()

	runtime.ReadMemStats(&rp.memStats)

	for _, collector := range rp.collectors {
		for name, value := range collector.CollectMetrics() {
			rp.recordMetricLocked(name, value)
		}
	}
}

// emitStatusReport logs one line per tracker plus a runtime summary.
func (rp *RuntimeProfiler) emitStatusReport() {
	snap := rp.Snapshot()

	rp.mu.Lock()
	newGC := rp.memStats.NumGC - rp.lastGCCount
	rp.lastGCCount = rp.memStats.NumGC
	rp.mu.Unlock()

	rp.log.Info("runtime status",
		zap.Duration("uptime", snap.Uptime.Truncate(time.Millisecond)),
		zap.Int("goroutines", snap.Goroutines),
		zap.Int64("cgo_calls", snap.CgoCalls),
		zap.Uint64("heap_alloc", snap.Memory.HeapAlloc),
		zap.Uint64("sys", snap.Memory.Sys),
		zap.Uint32("gc_cycles", snap.Memory.GCCycles),
		zap.Uint32("gc_new", newGC),
	)

	for _, op := range snap.Operations {
		rp.log.Info("operation timing",
			zap.String("operation", op.Name),
			zap.Duration("avg", op.Avg.Truncate(time.Microsecond)),
			zap.Duration("min", op.Min.Truncate(time.Microsecond)),
			zap.Duration("max", op.Max.Truncate(time.Microsecond)),
			zap.Int64("count", op.Count),
		)
	}
	for _, m := range snap.Metrics {
		rp.log.Info("metric",
			zap.String("metric", m.Name),
			zap.Float64("avg", m.Avg),
			zap.Float64("min", m.Min),
			zap.Float64("max", m.Max),
			zap.Int("samples", m.Samples),
		)
	}
}

// Snapshot is a point-in-time copy of the profiler statistics.
type Snapshot struct {
	Uptime     time.Duration   `json:"uptime"`
	Goroutines int             `json:"goroutines"`
	CgoCalls   int64           `json:"cgo_calls"`
	Memory     MemorySnapshot  `json:"memory"`
	Operations []OperationStat `json:"operations"`
	Metrics    []MetricStat    `json:"metrics"`
}

// MemorySnapshot holds the most recently sampled memory statistics.
type MemorySnapshot struct {
	Alloc       uint64  `json:"alloc"`
	TotalAlloc  uint64  `json:"total_alloc"`
	Sys         uint64  `json:"sys"`
	HeapAlloc   uint64  `json:"heap_alloc"`
	HeapObjects uint64  `json:"heap_objects"`
	GCCycles    uint32  `json:"gc_cycles"`
	GCFraction  float64 `json:"gc_cpu_fraction"`
}

// OperationStat summarizes one timed operation over the window. Count is the lifetime total.
type OperationStat struct {
	Name  string        `json:"name"`
	Avg   time.Duration `json:"avg"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
	Count int64         `json:"count"`
}

// MetricStat summarizes one custom metric over the window.
type MetricStat struct {
	Name    string  `json:"name"`
	Avg     float64 `json:"avg"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Samples int     `json:"samples"`
}

// Snapshot returns the current statistics, operations and metrics sorted by name.
func (rp *RuntimeProfiler) Snapshot() Snapshot {
	if rp == nil {
		return Snapshot{}
	}

	rp.mu.RLock()
	defer rp.mu.RUnlock()

	snap := Snapshot{
		Uptime:     time.Since(rp.startTime),
		Goroutines: runtime.NumGoroutine(),
		CgoCalls:   runtime.NumCgoCall(),
		Memory: MemorySnapshot{
			Alloc:       rp.memStats.Alloc,
			TotalAlloc:  rp.memStats.TotalAlloc,
			Sys:         rp.memStats.Sys,
			HeapAlloc:   rp.memStats.HeapAlloc,
			HeapObjects: rp.memStats.HeapObjects,
			GCCycles:    rp.memStats.NumGC,
			GCFraction:  rp.memStats.GCCPUFraction,
		},
		Operations: make([]OperationStat, 0, len(rp.operationTimes)),
		Metrics:    make([]MetricStat, 0, len(rp.customMetrics)),
	}

	for name, tracker := range rp.operationTimes {
		if len(tracker.durations) == 0 {
			continue
		}
		snap.Operations = append(snap.Operations, OperationStat{
			Name:  name,
			Avg:   tracker.totalTime / time.Duration(len(tracker.durations)),
			Min:   tracker.minTime,
			Max:   tracker.maxTime,
			Count: tracker.count,
		})
	}
	for name, tracker := range rp.customMetrics {
		if len(tracker.values) == 0 {
			continue
		}
		snap.Metrics = append(snap.Metrics, MetricStat{
			Name:    name,
			Avg:     tracker.sum / float64(len(tracker.values)),
			Min:     tracker.min,
			Max:     tracker.max,
			Samples: len(tracker.values),
		})
	}

	sort.Slice(snap.Operations, func(i, j int) bool { return snap.Operations[i].Name < snap.Operations[j].Name })
	sort.Slice(snap.Metrics, func(i, j int) bool { return snap.Metrics[i].Name < snap.Metrics[j].Name })

	return snap
}
