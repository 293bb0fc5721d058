// Package profiler reports frame rate, memory and render core counters through the engine logger.
package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-render/common"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
)

// Report is one interval's worth of measurements.
type Report struct {
	FPS         float64
	HeapMB      float64
	AllocRateMB float64
	SysMB       float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64

	PipelineHits     uint64
	PipelineMisses   uint64
	PipelineFailures uint64
	Waiting          int
	Pipelines        int
	BindGroups       int
}

// Profiler tracks frame rate, memory and render statistics for performance monitoring.
// Logs a Report at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	lastHits       uint64
	lastMisses     uint64
	last           Report
	now            func() time.Time
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
	}
	for _, option := range options {
		option(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick should be called once per frame with the renderer's counters.
// Logs a Report when the update interval has elapsed. Pipeline hits and misses are reported
// per interval; the waiting count is the value of the last frame.
//
// Parameters:
//   - stats: the renderer statistics after the frame
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick(stats renderer.Stats) bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval || elapsed <= 0 {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	// Alloc is live heap, TotalAlloc only grows and tracks churn, Sys is the process footprint.
	r := Report{
		FPS:              float64(p.frameCount) / elapsed.Seconds(),
		HeapMB:           float64(p.memStats.Alloc) / 1024 / 1024,
		SysMB:            float64(p.memStats.Sys) / 1024 / 1024,
		AllocRateMB:      float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:          p.memStats.NumGC,
		PipelineHits:     stats.Compiler.Hits - p.lastHits,
		PipelineMisses:   stats.Compiler.Misses - p.lastMisses,
		PipelineFailures: stats.Compiler.Failures,
		Waiting:          stats.Waiting,
		Pipelines:        stats.Pipelines,
		BindGroups:       stats.BindGroups,
	}

	if gcCount := p.memStats.NumGC; gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses.
		r.LastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			if pause := p.memStats.PauseNs[i%256] / 1000; pause > r.MaxPauseUs {
				r.MaxPauseUs = pause
			}
		}
	}

	common.Logger().Info("profiler",
		"fps", r.FPS,
		"heap_mb", r.HeapMB,
		"alloc_rate_mb_s", r.AllocRateMB,
		"gc", r.GCCount,
		"gc_last_pause_us", r.LastPauseUs,
		"gc_max_pause_us", r.MaxPauseUs,
		"sys_mb", r.SysMB,
		"pipeline_hits", r.PipelineHits,
		"pipeline_misses", r.PipelineMisses,
		"pipeline_failures", r.PipelineFailures,
		"waiting", r.Waiting,
		"pipelines", r.Pipelines,
		"bind_groups", r.BindGroups,
	)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = p.memStats.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
	p.lastHits = stats.Compiler.Hits
	p.lastMisses = stats.Compiler.Misses
	p.last = r
	return true
}

// Last returns the most recently logged Report.
func (p *Profiler) Last() Report {
	return p.last
}
