package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type staticCollector map[string]float64

func (c staticCollector) CollectMetrics() map[string]float64 { return c }

func TestRecordOperation(t *testing.T) {
	rp := NewRuntimeProfiler(ProfilingOptions{MaxSamples: 3, Logger: zap.NewNop()})

	for _, ms := range []int{10, 20, 30, 40} {
		rp.RecordOperation("preprocess", time.Duration(ms)*time.Millisecond)
	}
	rp.RecordOperation("inference", 5*time.Millisecond)

	snap := rp.Snapshot()
	require.Len(t, snap.Operations, 2)
	assert.Equal(t, "inference", snap.Operations[0].Name)

	pre := snap.Operations[1]
	assert.Equal(t, "preprocess", pre.Name)
	// The window keeps the last three samples; min/max and count are lifetime values.
	assert.Equal(t, 30*time.Millisecond, pre.Avg)
	assert.Equal(t, 10*time.Millisecond, pre.Min)
	assert.Equal(t, 40*time.Millisecond, pre.Max)
	assert.Equal(t, int64(4), pre.Count)
}

func TestStartOperation(t *testing.T) {
	rp := NewRuntimeProfiler(ProfilingOptions{Logger: zap.NewNop()})
	done := rp.StartOperation("decode")
	done()

	snap := rp.Snapshot()
	require.Len(t, snap.Operations, 1)
	assert.Equal(t, int64(1), snap.Operations[0].Count)
}

func TestRecordMetric(t *testing.T) {
	rp := NewRuntimeProfiler(ProfilingOptions{Logger: zap.NewNop()})
	rp.RecordMetric("detections", 2)
	rp.RecordMetric("detections", 4)

	snap := rp.Snapshot()
	require.Len(t, snap.Metrics, 1)
	assert.Equal(t, MetricStat{Name: "detections", Avg: 3, Min: 2, Max: 4, Samples: 2}, snap.Metrics[0])
}

func TestNilProfiler(t *testing.T) {
	var rp *RuntimeProfiler
	rp.Start()
	rp.StartOperation("x")()
	rp.RecordMetric("y", 1)
	rp.AddMetricsCollector(staticCollector{})
	rp.Stop()
	assert.Empty(t, rp.Snapshot().Operations)
}

func TestStartStop_ReportsAndCollects(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	rp := NewRuntimeProfiler(ProfilingOptions{
		ReportInterval: 5 * time.Millisecond,
		SampleInterval: time.Millisecond,
		Logger:         zap.New(core),
	})
	rp.AddMetricsCollector(staticCollector{"queue_depth": 3})
	rp.RecordOperation("inference", time.Millisecond)

	rp.Start()
	rp.Start()
	assert.Eventually(t, func() bool {
		return logs.FilterMessage("operation timing").Len() > 0 &&
			logs.FilterMessage("runtime status").Len() > 0 &&
			len(rp.Snapshot().Metrics) > 0
	}, time.Second, time.Millisecond)
	rp.Stop()
	rp.Stop()

	snap := rp.Snapshot()
	require.NotEmpty(t, snap.Metrics)
	assert.Equal(t, "queue_depth", snap.Metrics[0].Name)
	assert.Equal(t, float64(3), snap.Metrics[0].Avg)
	assert.NotZero(t, snap.Memory.Sys)
}
