// Package resultsdb keeps every published run in a SQLite database so runs
// with identical task configurations can be compared over time.
package resultsdb

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/san-kum/gpubench/internal/bench"
)

// DB is a results database. It is safe for use by one publisher at a time.
type DB struct {
	db *sql.DB
}

// Column names match the CSV headers so both stores read the same.
var (
	stepCols    = bench.StepColumns()
	summaryCols = bench.SummaryColumns()

	stepStageCols    = stepCols[5:]
	summaryStageCols = summaryCols[7:]
)

func schema() string {
	var b strings.Builder
	b.WriteString(`CREATE TABLE IF NOT EXISTS steps (
	run_id TEXT NOT NULL,
	task TEXT NOT NULL,
	difficulty TEXT NOT NULL,
	step INTEGER NOT NULL,
	dt REAL NOT NULL`)
	for _, c := range stepStageCols {
		fmt.Fprintf(&b, ",\n\t%s REAL NOT NULL", c)
	}
	b.WriteString(",\n\tPRIMARY KEY (run_id, task, step)\n);\n")

	b.WriteString(`CREATE TABLE IF NOT EXISTS summaries (
	run_id TEXT NOT NULL,
	task TEXT NOT NULL,
	difficulty TEXT NOT NULL,
	steps INTEGER NOT NULL,
	warmup_steps INTEGER NOT NULL,
	dt REAL NOT NULL,
	task_config TEXT NOT NULL,
	created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))`)
	for _, c := range summaryStageCols {
		fmt.Fprintf(&b, ",\n\t%s REAL NOT NULL", c)
	}
	b.WriteString(",\n\tPRIMARY KEY (run_id, task)\n);\n")
	b.WriteString("CREATE INDEX IF NOT EXISTS idx_summaries_config ON summaries(task, task_config);\n")
	return b.String()
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply sqlite pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema()); err != nil {
		db.Close()
		return nil, fmt.Errorf("create results schema: %w", err)
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error { return d.db.Close() }

func upsert(table string, keys, cols []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	var updates []string
	for _, c := range cols {
		if !slices.Contains(keys, c) {
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", c, c))
		}
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s",
		table, strings.Join(cols, ", "), placeholders, strings.Join(keys, ", "), strings.Join(updates, ", "))
}

// Publish upserts every row of the report in one transaction.
func (d *DB) Publish(ctx context.Context, r *bench.Report) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stepStmt, err := tx.PrepareContext(ctx, upsert("steps", []string{"run_id", "task", "step"}, stepCols))
	if err != nil {
		return fmt.Errorf("prepare steps: %w", err)
	}
	defer stepStmt.Close()
	for _, s := range r.Steps {
		args := []any{s.RunID, s.Task, s.Difficulty, s.Step, s.Dt}
		for _, v := range s.Ms {
			args = append(args, v)
		}
		if _, err := stepStmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert step %s/%s/%d: %w", s.RunID, s.Task, s.Step, err)
		}
	}

	sumStmt, err := tx.PrepareContext(ctx, upsert("summaries", []string{"run_id", "task"}, summaryCols))
	if err != nil {
		return fmt.Errorf("prepare summaries: %w", err)
	}
	defer sumStmt.Close()
	for _, row := range r.Summaries {
		args := []any{row.RunID, row.Task, row.Difficulty, row.Steps, row.WarmupSteps, row.Dt, row.TaskConfig}
		for _, st := range row.Stages {
			args = append(args, st.Mean, st.P50, st.P95, st.Max)
		}
		if _, err := sumStmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert summary %s/%s: %w", row.RunID, row.Task, err)
		}
	}
	return tx.Commit()
}

func scanSummaries(rows *sql.Rows) ([]bench.SummaryRow, error) {
	defer rows.Close()
	var out []bench.SummaryRow
	for rows.Next() {
		var r bench.SummaryRow
		dest := []any{&r.RunID, &r.Task, &r.Difficulty, &r.Steps, &r.WarmupSteps, &r.Dt, &r.TaskConfig}
		for i := range r.Stages {
			st := &r.Stages[i]
			dest = append(dest, &st.Mean, &st.P50, &st.P95, &st.Max)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Summaries returns every summary of a run in task order of insertion.
func (d *DB) Summaries(ctx context.Context, runID string) ([]bench.SummaryRow, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT "+strings.Join(summaryCols, ", ")+" FROM summaries WHERE run_id = ? ORDER BY rowid", runID)
	if err != nil {
		return nil, err
	}
	return scanSummaries(rows)
}

// History returns the summaries of task whose serialized configuration is
// exactly taskConfig, oldest first. An empty taskConfig matches any.
func (d *DB) History(ctx context.Context, task, taskConfig string) ([]bench.SummaryRow, error) {
	query := "SELECT " + strings.Join(summaryCols, ", ") + " FROM summaries WHERE task = ?"
	args := []any{task}
	if taskConfig != "" {
		query += " AND task_config = ?"
		args = append(args, taskConfig)
	}
	query += " ORDER BY created_at, run_id"
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return scanSummaries(rows)
}

// Steps returns the step rows of one run and task in step order.
func (d *DB) Steps(ctx context.Context, runID, task string) ([]bench.StageTimingSample, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT "+strings.Join(stepCols, ", ")+" FROM steps WHERE run_id = ? AND task = ? ORDER BY step", runID, task)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []bench.StageTimingSample
	for rows.Next() {
		var s bench.StageTimingSample
		dest := []any{&s.RunID, &s.Task, &s.Difficulty, &s.Step, &s.Dt}
		for i := range s.Ms {
			dest = append(dest, &s.Ms[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Runs lists run ids, newest first.
func (d *DB) Runs(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT run_id FROM summaries GROUP BY run_id ORDER BY MAX(created_at) DESC, run_id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
