package bench

// Stage is one of the fixed timing categories of a physics step.
type Stage int

const (
	Broadphase Stage = iota
	Narrowphase
	Coloring
	Solver
	Update
	Other
	Total
	NumStages
)

var stageNames = [NumStages]string{
	"broadphase",
	"narrowphase",
	"coloring",
	"solver",
	"update",
	"other",
	"total",
}

func (s Stage) String() string {
	if s < 0 || s >= NumStages {
		return "unknown"
	}
	return stageNames[s]
}

// Key is the column and timing-map key of the stage, e.g. "solver_ms".
func (s Stage) Key() string { return s.String() + "_ms" }

// Stages lists every stage in column order.
func Stages() []Stage {
	out := make([]Stage, NumStages)
	for i := range out {
		out[i] = Stage(i)
	}
	return out
}

// ParseStage accepts a stage name with or without the _ms suffix.
func ParseStage(name string) (Stage, bool) {
	for i, n := range stageNames {
		if name == n || name == n+"_ms" {
			return Stage(i), true
		}
	}
	return 0, false
}

// StageTimingSample holds the per-stage milliseconds of one measured step.
type StageTimingSample struct {
	RunID      string
	Task       string
	Difficulty string
	Step       int
	Dt         float64
	Ms         [NumStages]float64
}

func (s StageTimingSample) Get(stage Stage) float64 { return s.Ms[stage] }

// fillStages copies stage timings keyed "<stage>_ms"; absent keys stay 0.
func (s *StageTimingSample) fillStages(timings map[string]float64) {
	for _, st := range Stages() {
		s.Ms[st] = timings[st.Key()]
	}
}
