package resultsdb

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/gpubench/internal/bench"
)

func report(runID string, totals ...float64) *bench.Report {
	md := bench.NewMetadata(map[string]any{"cube_count": 27, "difficulty": "easy"})
	var steps []bench.StageTimingSample
	for i, v := range totals {
		s := bench.StageTimingSample{RunID: runID, Task: "grid_stack", Difficulty: "easy", Step: i, Dt: 1.0 / 240}
		s.Ms[bench.Total] = v
		s.Ms[bench.Broadphase] = v / 4
		steps = append(steps, s)
	}
	row := bench.Summarize(steps, bench.SummaryInput{
		RunID: runID, Task: "grid_stack", Difficulty: "easy",
		Steps: len(totals), WarmupSteps: 1, Dt: 1.0 / 240, TaskConfig: md,
	})
	return &bench.Report{RunID: runID, Steps: steps, Summaries: []bench.SummaryRow{row}}
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPublishAndQuery(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	r := report("r1", 1, 2, 3)
	require.NoError(t, db.Publish(ctx, r))

	rows, err := db.Summaries(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, r.Summaries[0], rows[0])

	steps, err := db.Steps(ctx, "r1", "grid_stack")
	require.NoError(t, err)
	assert.Equal(t, r.Steps, steps)
}

func TestPublishIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, db.Publish(ctx, report("r1", 1, 2)))
	require.NoError(t, db.Publish(ctx, report("r1", 5, 6)))

	rows, err := db.Summaries(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 5.5, rows[0].Stat(bench.Total).Mean)

	steps, err := db.Steps(ctx, "r1", "grid_stack")
	require.NoError(t, err)
	assert.Len(t, steps, 2)
}

func TestHistoryMatchesConfiguration(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, db.Publish(ctx, report("r1", 1)))
	require.NoError(t, db.Publish(ctx, report("r2", 2)))

	other := report("r3", 3)
	other.Summaries[0].TaskConfig = "cube_count=125;difficulty=medium"
	require.NoError(t, db.Publish(ctx, other))

	cfg := report("x", 0).Summaries[0].TaskConfig
	hist, err := db.History(ctx, "grid_stack", cfg)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.ElementsMatch(t, []string{"r1", "r2"}, []string{hist[0].RunID, hist[1].RunID})

	all, err := db.History(ctx, "grid_stack", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := db.History(ctx, "particle_pour", cfg)
	require.NoError(t, err)
	assert.Empty(t, none)

	runs, err := db.Runs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"r1", "r2", "r3"}, runs)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "results.db")
	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Publish(ctx, report("r1", 1)))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	rows, err := db.Summaries(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
