// Package profiler times the phases of a comparison run.
package profiler

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// PhaseStats is the timing of one named operation.
type PhaseStats struct {
	Name  string        `json:"name"`
	Count int64         `json:"count"`
	Total time.Duration `json:"total"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
}

// Avg returns the mean duration, 0 when the phase never completed.
func (p PhaseStats) Avg() time.Duration {
	if p.Count == 0 {
		return 0
	}
	return p.Total / time.Duration(p.Count)
}

// timeTracker tracks operation timing statistics.
type timeTracker struct {
	name      string
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// Profiler records operation durations. It is safe for concurrent use.
type Profiler struct {
	mu        sync.Mutex
	startTime time.Time
	order     []string
	trackers  map[string]*timeTracker
}

// New returns a profiler whose uptime starts now.
func New() *Profiler {
	return &Profiler{
		startTime: time.Now(),
		trackers:  make(map[string]*timeTracker),
	}
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the operation to track
//
// Returns:
// - A function to call when the operation completes
func (p *Profiler) StartOperation(name string) func() {
	start := time.Now()
	return func() {
		p.Record(name, time.Since(start))
	}
}

// Record adds one completed operation.
func (p *Profiler) Record(name string, duration time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, exists := p.trackers[name]
	if !exists {
		tracker = &timeTracker{
			name:    name,
			minTime: duration,
			maxTime: duration,
		}
		p.trackers[name] = tracker
		p.order = append(p.order, name)
	}

	tracker.totalTime += duration
	tracker.count++

	if duration < tracker.minTime {
		tracker.minTime = duration
	}
	if duration > tracker.maxTime {
		tracker.maxTime = duration
	}
}

// Phases returns a snapshot of every operation in the order it was first recorded.
func (p *Profiler) Phases() []PhaseStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]PhaseStats, 0, len(p.order))
	for _, name := range p.order {
		t := p.trackers[name]
		out = append(out, PhaseStats{
			Name:  t.name,
			Count: t.count,
			Total: t.totalTime,
			Min:   t.minTime,
			Max:   t.maxTime,
		})
	}
	return out
}

// LogReport writes one entry per phase plus a memory summary.
func (p *Profiler) LogReport(logger logrus.FieldLogger) {
	for _, phase := range p.Phases() {
		logger.WithFields(logrus.Fields{
			"phase": phase.Name,
			"count": phase.Count,
			"total": phase.Total.Truncate(time.Microsecond),
			"avg":   phase.Avg().Truncate(time.Microsecond),
			"max":   phase.Max.Truncate(time.Microsecond),
		}).Info("phase timing")
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	logger.WithFields(logrus.Fields{
		"uptime":      time.Since(p.startTime).Truncate(time.Millisecond),
		"heap_alloc":  formatBytes(mem.HeapAlloc),
		"total_alloc": formatBytes(mem.TotalAlloc),
		"gc_cycles":   mem.NumGC,
	}).Debug("memory usage")
}

// formatBytes formats byte counts in human-readable format.
func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
