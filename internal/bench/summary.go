package bench

// StageStats are the summary statistics of one stage.
type StageStats struct {
	Mean float64
	P50  float64
	P95  float64
	Max  float64
}

// SummaryRow aggregates the samples of one task run.
type SummaryRow struct {
	RunID       string
	Task        string
	Difficulty  string
	Steps       int
	WarmupSteps int
	Dt          float64
	TaskConfig  string
	Stages      [NumStages]StageStats
}

func (r SummaryRow) Stat(stage Stage) StageStats { return r.Stages[stage] }

type SummaryInput struct {
	RunID       string
	Task        string
	Difficulty  string
	Steps       int
	WarmupSteps int
	Dt          float64
	TaskConfig  Metadata
}

// Summarize reduces samples into one row. Stages are aggregated
// independently; nothing is clamped.
func Summarize(samples []StageTimingSample, in SummaryInput) SummaryRow {
	row := SummaryRow{
		RunID:       in.RunID,
		Task:        in.Task,
		Difficulty:  in.Difficulty,
		Steps:       in.Steps,
		WarmupSteps: in.WarmupSteps,
		Dt:          in.Dt,
		TaskConfig:  in.TaskConfig.String(),
	}
	if len(samples) == 0 {
		return row
	}

	values := make([]float64, len(samples))
	for _, st := range Stages() {
		var sum, peak float64
		for i, s := range samples {
			v := s.Ms[st]
			values[i] = v
			sum += v
			if i == 0 || v > peak {
				peak = v
			}
		}
		row.Stages[st] = StageStats{
			Mean: sum / float64(len(samples)),
			P50:  Percentile(values, 50),
			P95:  Percentile(values, 95),
			Max:  peak,
		}
	}
	return row
}

// TotalsZero reports whether every row has a zero mean total.
func TotalsZero(rows []SummaryRow) bool {
	if len(rows) == 0 {
		return false
	}
	for _, r := range rows {
		if r.Stages[Total].Mean != 0 {
			return false
		}
	}
	return true
}
