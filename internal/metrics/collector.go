// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"
)

// OperationMetrics holds aggregated metrics for a single operation type.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64
	TotalTimeMs int64
	AvgTimeMs   float64
	MinTimeMs   int64
	MaxTimeMs   int64
}

// Snapshot represents full pipeline statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64

	Extract       *OperationSnapshot
	Generate      *OperationSnapshot
	Embed         *OperationSnapshot
	VectorSearch  *OperationSnapshot
	KeywordSearch *OperationSnapshot
	Process       *OperationSnapshot

	// Job outcome counters.
	JobsDone    int64
	JobsErrored int64
	JobsSkipped int64
}

// Operation names for the collector.
const (
	OpExtract       = "extract"
	OpGenerate      = "generate"
	OpEmbed         = "embed"
	OpVectorSearch  = "vector_search"
	OpKeywordSearch = "keyword_search"
	OpProcess       = "process"
)

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics

	jobsDone    int64
	jobsErrored int64
	jobsSkipped int64
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{
			MinTime: time.Duration(math.MaxInt64),
		}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records timing for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// Time runs fn and records its duration under op.
func (c *Collector) Time(op string, fn func()) {
	start := time.Now()
	fn()
	c.RecordTiming(op, time.Since(start))
}

// RecordJobDone counts a job that reached DONE.
func (c *Collector) RecordJobDone() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobsDone++
}

// RecordJobError counts a job that reached ERROR.
func (c *Collector) RecordJobError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobsErrored++
}

// RecordJobSkipped counts a claim race or terminal-state no-op.
func (c *Collector) RecordJobSkipped() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jobsSkipped++
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}

	return &OperationSnapshot{
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Extract:       snapshotOp(c.ops[OpExtract]),
		Generate:      snapshotOp(c.ops[OpGenerate]),
		Embed:         snapshotOp(c.ops[OpEmbed]),
		VectorSearch:  snapshotOp(c.ops[OpVectorSearch]),
		KeywordSearch: snapshotOp(c.ops[OpKeywordSearch]),
		Process:       snapshotOp(c.ops[OpProcess]),
		JobsDone:      c.jobsDone,
		JobsErrored:   c.jobsErrored,
		JobsSkipped:   c.jobsSkipped,
	}
}
