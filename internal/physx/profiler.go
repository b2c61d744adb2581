package physx

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type bucket uint8

const (
	bucketBroadphase bucket = iota
	bucketNarrowphase
	bucketColoring
	bucketSolver
	bucketUpdate
	bucketOther
	bucketCount
)

var bucketKeys = [bucketCount]string{
	"broadphase_ms",
	"narrowphase_ms",
	"coloring_ms",
	"solver_ms",
	"update_ms",
	"other_ms",
}

// classifyZone maps a profile zone name onto a stage bucket. Coloring is
// checked first because partition zones also contain solver keywords.
func classifyZone(name string) bucket {
	if name == "" {
		return bucketOther
	}
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "edge coloring"), strings.Contains(lower, "constraintpartition"):
		return bucketColoring
	case strings.Contains(lower, "broadphase"), strings.Contains(lower, "broad phase"):
		return bucketBroadphase
	case strings.Contains(lower, "narrowphase"), strings.Contains(lower, "narrow phase"):
		return bucketNarrowphase
	case strings.Contains(lower, "solve"):
		return bucketSolver
	case strings.Contains(lower, "integrate"), strings.Contains(lower, "update"), strings.Contains(lower, "kinematic"):
		return bucketUpdate
	default:
		return bucketOther
	}
}

type frameMetrics struct {
	stageNs [bucketCount]int64
	zoneNs  map[string]int64
}

// StageProfiler accumulates zone durations between BeginFrame and EndFrame.
// Zones that end while no frame is active are dropped.
type StageProfiler struct {
	active atomic.Bool

	mu      sync.Mutex
	current frameMetrics
	last    frameMetrics
}

func NewStageProfiler() *StageProfiler {
	return &StageProfiler{}
}

func (p *StageProfiler) BeginFrame() {
	p.mu.Lock()
	p.current = frameMetrics{zoneNs: make(map[string]int64)}
	p.mu.Unlock()
	p.active.Store(true)
}

func (p *StageProfiler) EndFrame() {
	p.active.Store(false)
	p.mu.Lock()
	p.last = p.current
	p.mu.Unlock()
}

// Zone starts a named zone and returns the function that ends it.
func (p *StageProfiler) Zone(name string) func() {
	if !p.active.Load() {
		return func() {}
	}
	start := time.Now()
	stage := classifyZone(name)
	return func() {
		elapsed := time.Since(start).Nanoseconds()
		if !p.active.Load() {
			return
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		p.current.stageNs[stage] += elapsed
		p.current.zoneNs[name] += elapsed
	}
}

// LastFrameStageMs reports per-stage milliseconds of the last completed
// frame; total_ms is the sum of the six buckets.
func (p *StageProfiler) LastFrameStageMs() map[string]float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]float64, bucketCount+1)
	var total int64
	for i, ns := range p.last.stageNs {
		out[bucketKeys[i]] = float64(ns) * 1e-6
		total += ns
	}
	out["total_ms"] = float64(total) * 1e-6
	return out
}

func (p *StageProfiler) LastFrameZoneMs() map[string]float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make(map[string]float64, len(p.last.zoneNs))
	for name, ns := range p.last.zoneNs {
		out[name] = float64(ns) * 1e-6
	}
	return out
}
