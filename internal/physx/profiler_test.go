package physx

import (
	"testing"
	"time"
)

func TestClassifyZone(t *testing.T) {
	tests := []struct {
		name string
		want bucket
	}{
		{"Solver.constraintPartition", bucketColoring},
		{"PGS Edge Coloring", bucketColoring},
		{"Sim.broadPhase", bucketBroadphase},
		{"gpu broad phase", bucketBroadphase},
		{"Sim.narrowPhase", bucketNarrowphase},
		{"Narrow Phase pairs", bucketNarrowphase},
		{"Solver.solveConstraints", bucketSolver},
		{"postSolver", bucketSolver},
		{"Sim.integrateVelocities", bucketUpdate},
		{"updateKinematic", bucketUpdate},
		{"Sim.fetchResults", bucketOther},
		{"", bucketOther},
	}

	for _, tt := range tests {
		if got := classifyZone(tt.name); got != tt.want {
			t.Errorf("classifyZone(%q): expected %s, got %s", tt.name, bucketKeys[tt.want], bucketKeys[got])
		}
	}
}

func TestStageProfilerDropsZonesOutsideFrame(t *testing.T) {
	p := NewStageProfiler()

	end := p.Zone("Sim.broadPhase")
	time.Sleep(time.Millisecond)
	end()

	p.BeginFrame()
	end = p.Zone("Solver.solveConstraints")
	time.Sleep(2 * time.Millisecond)
	end()
	late := p.Zone("Sim.narrowPhase")
	p.EndFrame()
	late()

	stages := p.LastFrameStageMs()
	if stages["broadphase_ms"] != 0 {
		t.Errorf("expected zone before frame to be dropped, got %f", stages["broadphase_ms"])
	}
	if stages["narrowphase_ms"] != 0 {
		t.Errorf("expected zone ending after frame to be dropped, got %f", stages["narrowphase_ms"])
	}
	if stages["solver_ms"] < 1 {
		t.Errorf("expected solver_ms >= 1, got %f", stages["solver_ms"])
	}

	zones := p.LastFrameZoneMs()
	if _, ok := zones["Solver.solveConstraints"]; !ok || len(zones) != 1 {
		t.Errorf("expected only the solver zone, got %v", zones)
	}
}

func TestStageProfilerTotalIsSumOfBuckets(t *testing.T) {
	p := NewStageProfiler()
	p.BeginFrame()
	for _, name := range []string{"Sim.broadPhase", "Sim.narrowPhase", "Sim.fetchResults", "Sim.integratePositions"} {
		end := p.Zone(name)
		time.Sleep(200 * time.Microsecond)
		end()
	}
	p.EndFrame()

	stages := p.LastFrameStageMs()
	var sum float64
	for _, key := range bucketKeys {
		sum += stages[key]
	}
	if diff := stages["total_ms"] - sum; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("expected total_ms %f to equal bucket sum %f", stages["total_ms"], sum)
	}
}

func TestStageProfilerEmptyBeforeFirstFrame(t *testing.T) {
	stages := NewStageProfiler().LastFrameStageMs()
	if len(stages) != int(bucketCount)+1 {
		t.Fatalf("expected %d keys, got %d", bucketCount+1, len(stages))
	}
	for k, v := range stages {
		if v != 0 {
			t.Errorf("expected %s = 0, got %f", k, v)
		}
	}
}
