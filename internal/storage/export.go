package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/gpubench/internal/bench"
)

type ExportStage struct {
	Mean float64 `json:"mean_ms"`
	P50  float64 `json:"p50_ms"`
	P95  float64 `json:"p95_ms"`
	Max  float64 `json:"max_ms"`
}

type ExportTask struct {
	Task        string                 `json:"task"`
	Difficulty  string                 `json:"difficulty"`
	Steps       int                    `json:"steps"`
	WarmupSteps int                    `json:"warmup_steps"`
	Dt          float64                `json:"dt"`
	TaskConfig  string                 `json:"task_config"`
	Stages      map[string]ExportStage `json:"stages"`
	StepMs      map[string][]float64   `json:"step_ms,omitempty"`
}

type ExportData struct {
	RunID string       `json:"run_id"`
	Tasks []ExportTask `json:"tasks"`
}

// NewExportData groups a report by task. Step series are included only when
// withSteps is set.
func NewExportData(r *bench.Report, withSteps bool) ExportData {
	data := ExportData{RunID: r.RunID, Tasks: make([]ExportTask, 0, len(r.Summaries))}
	for _, row := range r.Summaries {
		t := ExportTask{
			Task:        row.Task,
			Difficulty:  row.Difficulty,
			Steps:       row.Steps,
			WarmupSteps: row.WarmupSteps,
			Dt:          row.Dt,
			TaskConfig:  row.TaskConfig,
			Stages:      make(map[string]ExportStage, bench.NumStages),
		}
		for _, st := range bench.Stages() {
			s := row.Stat(st)
			t.Stages[st.String()] = ExportStage{Mean: s.Mean, P50: s.P50, P95: s.P95, Max: s.Max}
		}
		if withSteps {
			t.StepMs = make(map[string][]float64, bench.NumStages)
			for _, s := range r.Steps {
				if s.RunID != row.RunID || s.Task != row.Task {
					continue
				}
				for _, st := range bench.Stages() {
					t.StepMs[st.String()] = append(t.StepMs[st.String()], s.Get(st))
				}
			}
		}
		data.Tasks = append(data.Tasks, t)
	}
	return data
}

func WriteJSON(w io.Writer, r *bench.Report, withSteps bool) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(NewExportData(r, withSteps))
}

// ExportJSON writes the report to path, or to stdout when path is "-".
func ExportJSON(path string, r *bench.Report, withSteps bool) error {
	if path == "-" {
		return WriteJSON(os.Stdout, r, withSteps)
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := WriteJSON(file, r, withSteps); err != nil {
		return err
	}
	return file.Close()
}

// Report reassembles one run from the csv files.
func (s *Store) Report(runID string) (*bench.Report, error) {
	rows, err := s.LoadSummaries()
	if err != nil {
		return nil, err
	}
	r := &bench.Report{RunID: runID}
	for _, row := range rows {
		if row.RunID == runID {
			r.Summaries = append(r.Summaries, row)
		}
	}
	steps, err := s.LoadSteps(runID, "")
	if err != nil {
		return nil, err
	}
	r.Steps = steps
	return r, nil
}
