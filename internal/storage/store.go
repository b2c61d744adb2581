package storage

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/san-kum/gpubench/internal/bench"
)

const (
	StepsFile   = "results_steps.csv"
	SummaryFile = "results_summary.csv"
	RunFile     = "run.json"
)

// Store writes reports as CSV into one output directory. Each publish
// replaces the previous files.
type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) StepsPath() string   { return filepath.Join(s.baseDir, StepsFile) }
func (s *Store) SummaryPath() string { return filepath.Join(s.baseDir, SummaryFile) }

type RunMetadata struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Tasks     []string  `json:"tasks"`
	StepRows  int       `json:"step_rows"`
	Files     []string  `json:"files"`
}

// Publish writes the step rows, the summary rows and run.json.
func (s *Store) Publish(_ context.Context, r *bench.Report) error {
	if err := s.Init(); err != nil {
		return err
	}

	steps := make([][]string, len(r.Steps))
	for i, st := range r.Steps {
		steps[i] = st.Record()
	}
	if err := writeCSV(s.StepsPath(), bench.StepColumns(), steps); err != nil {
		return err
	}

	summaries := make([][]string, len(r.Summaries))
	tasks := make([]string, len(r.Summaries))
	for i, row := range r.Summaries {
		summaries[i] = row.Record()
		tasks[i] = row.Task
	}
	if err := writeCSV(s.SummaryPath(), bench.SummaryColumns(), summaries); err != nil {
		return err
	}

	meta := RunMetadata{
		ID:        r.RunID,
		Timestamp: time.Now(),
		Tasks:     tasks,
		StepRows:  len(r.Steps),
		Files:     []string{StepsFile, SummaryFile},
	}
	f, err := os.Create(filepath.Join(s.baseDir, RunFile))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// Load reads run.json.
func (s *Store) Load() (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, RunFile))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// readTable returns the rows of a CSV file keyed by header name.
func readTable(path string, want []string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("read %s: missing header", path)
	}
	header := records[0]
	for _, col := range want {
		if !slices.Contains(header, col) {
			return nil, fmt.Errorf("read %s: missing column %s", path, col)
		}
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(map[string]string, len(header))
		for i, col := range header {
			row[col] = rec[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type rowParser struct {
	row map[string]string
	err error
}

func (p *rowParser) float(col string) float64 {
	if p.err != nil {
		return 0
	}
	v, err := strconv.ParseFloat(p.row[col], 64)
	if err != nil {
		p.err = fmt.Errorf("column %s: %w", col, err)
	}
	return v
}

func (p *rowParser) int(col string) int {
	if p.err != nil {
		return 0
	}
	v, err := strconv.Atoi(p.row[col])
	if err != nil {
		p.err = fmt.Errorf("column %s: %w", col, err)
	}
	return v
}

// LoadSummaries reads every summary row.
func (s *Store) LoadSummaries() ([]bench.SummaryRow, error) {
	rows, err := readTable(s.SummaryPath(), bench.SummaryColumns())
	if err != nil {
		return nil, err
	}
	out := make([]bench.SummaryRow, 0, len(rows))
	for i, row := range rows {
		p := rowParser{row: row}
		sr := bench.SummaryRow{
			RunID:       row["run_id"],
			Task:        row["task"],
			Difficulty:  row["difficulty"],
			Steps:       p.int("steps"),
			WarmupSteps: p.int("warmup_steps"),
			Dt:          p.float("dt"),
			TaskConfig:  row["task_config"],
		}
		for _, st := range bench.Stages() {
			sr.Stages[st] = bench.StageStats{
				Mean: p.float(st.String() + "_mean_ms"),
				P50:  p.float(st.String() + "_p50_ms"),
				P95:  p.float(st.String() + "_p95_ms"),
				Max:  p.float(st.String() + "_max_ms"),
			}
		}
		if p.err != nil {
			return nil, fmt.Errorf("%s row %d: %w", SummaryFile, i+1, p.err)
		}
		out = append(out, sr)
	}
	return out, nil
}

// LoadSteps reads the step rows of one run and task. Empty filters match
// every row.
func (s *Store) LoadSteps(runID, task string) ([]bench.StageTimingSample, error) {
	rows, err := readTable(s.StepsPath(), bench.StepColumns())
	if err != nil {
		return nil, err
	}
	var out []bench.StageTimingSample
	for i, row := range rows {
		if (runID != "" && row["run_id"] != runID) || (task != "" && row["task"] != task) {
			continue
		}
		p := rowParser{row: row}
		sample := bench.StageTimingSample{
			RunID:      row["run_id"],
			Task:       row["task"],
			Difficulty: row["difficulty"],
			Step:       p.int("step"),
			Dt:         p.float("dt"),
		}
		for _, st := range bench.Stages() {
			sample.Ms[st] = p.float(st.Key())
		}
		if p.err != nil {
			return nil, fmt.Errorf("%s row %d: %w", StepsFile, i+1, p.err)
		}
		out = append(out, sample)
	}
	return out, nil
}

// ListRuns returns the distinct run ids of the summary file in order of
// first appearance.
func (s *Store) ListRuns() ([]string, error) {
	rows, err := s.LoadSummaries()
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, err
	}
	var runs []string
	for _, r := range rows {
		if !slices.Contains(runs, r.RunID) {
			runs = append(runs, r.RunID)
		}
	}
	return runs, nil
}
