package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/gpubench/internal/bench"
	"github.com/san-kum/gpubench/internal/compute"
	"github.com/san-kum/gpubench/internal/config"
	"github.com/san-kum/gpubench/internal/experiment"
	"github.com/san-kum/gpubench/internal/export"
	"github.com/san-kum/gpubench/internal/metrics"
	"github.com/san-kum/gpubench/internal/resultsdb"
	"github.com/san-kum/gpubench/internal/storage"
	"github.com/san-kum/gpubench/internal/tasks"
	"github.com/san-kum/gpubench/internal/tsdb"
	"github.com/san-kum/gpubench/internal/viz"
)

var (
	outputDir string
	dbPath    string
	logLevel  string
	theme     string

	configFile  string
	taskList    string
	difficulty  string
	steps       int
	warmupSteps int
	dt          float64
	device      string
	runID       string
	noProfile   bool
	noCSV       bool
	listTasks   bool
	checkCUDA   bool

	cubeCount    int
	cubeHalfSize float64
	cubeSpacing  float64

	ballCount              int
	ballRadius             float64
	containerHalfExtent    float64
	containerWallHeight    float64
	containerWallThickness float64
	seed                   int64

	urdfPath        string
	motion          string
	targetScale     float64
	rootHeight      float64
	jointStiffness  float64
	jointDamping    float64
	jointForceLimit float64

	promTextfile string
	influxURL    string
	influxToken  string
	influxOrg    string
	influxBucket string

	plotStage   string
	plotWidth   int
	plotHeight  int
	plotSVG     string
	historyConf string
	exportOut   string
	exportSteps bool
)

// main registers the gpubench commands and exits 1 if the selected command
// returns an error.
func main() {
	rootCmd := &cobra.Command{
		Use:           "gpubench",
		Short:         "gpu rigid-body physics benchmark harness",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger(logLevel)
		},
	}

	rootCmd.PersistentFlags().StringVar(&outputDir, "output-dir", config.DefaultOutputDir, "directory for csv results")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "sqlite results database")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&theme, "theme", viz.ThemeCyberpunk.Name, "color theme ("+strings.Join(viz.ThemeNames(), "|")+")")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the selected benchmark tasks",
		Args:  cobra.NoArgs,
		RunE:  runBenchmark,
	}
	f := runCmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&taskList, "tasks", config.DefaultTasks, "comma-separated list of tasks")
	f.StringVar(&difficulty, "difficulty", config.DefaultDifficulty, "shared difficulty preset ("+strings.Join(config.Difficulties, "|")+")")
	f.IntVar(&steps, "steps", config.DefaultSteps, "measured simulation steps")
	f.IntVar(&warmupSteps, "warmup-steps", config.DefaultWarmupSteps, "warmup steps")
	f.Float64Var(&dt, "dt", config.DefaultDt, "simulation timestep")
	f.StringVar(&device, "device", config.DefaultDevice, "gpu device (cuda[:N], emu[:workers])")
	f.StringVar(&runID, "run-id", "", "run identifier written to result rows (default YYYYMMDD-HHMMSS)")
	f.BoolVar(&noProfile, "no-profile", false, "disable the stage profiler")
	f.BoolVar(&noCSV, "no-csv", false, "skip writing csv results")
	f.BoolVar(&listTasks, "list-tasks", false, "list available task names and exit")
	f.BoolVar(&checkCUDA, "check-cuda", false, "probe a 64MB gpu allocation and exit")

	f.IntVar(&cubeCount, "cube-count", 0, "grid_stack body count (default from difficulty)")
	f.Float64Var(&cubeHalfSize, "cube-half-size", config.DefaultCubeHalfSize, "grid_stack cube half size")
	f.Float64Var(&cubeSpacing, "cube-spacing", 0, "grid_stack spacing (<= 0 selects 2.2 * half size)")

	f.IntVar(&ballCount, "ball-count", 0, "particle_pour body count (default from difficulty)")
	f.Float64Var(&ballRadius, "ball-radius", config.DefaultBallRadius, "particle_pour sphere radius")
	f.Float64Var(&containerHalfExtent, "container-half-extent", config.DefaultContainerHalfExtent, "container half extent")
	f.Float64Var(&containerWallHeight, "container-wall-height", config.DefaultContainerWallHeight, "container wall height")
	f.Float64Var(&containerWallThickness, "container-wall-thickness", config.DefaultContainerWallThickness, "container wall thickness")
	f.Int64Var(&seed, "seed", 0, "particle_pour jitter seed")

	f.StringVar(&urdfPath, "urdf", "", "articulated_urdf model path")
	f.StringVar(&motion, "motion", config.DefaultMotion, "articulated_urdf motion (walk|run)")
	f.Float64Var(&targetScale, "target-scale", config.DefaultTargetScale, "joint target amplitude")
	f.Float64Var(&rootHeight, "root-height", config.DefaultRootHeight, "minimum root height")
	f.Float64Var(&jointStiffness, "joint-stiffness", config.DefaultStiffness, "joint drive stiffness")
	f.Float64Var(&jointDamping, "joint-damping", config.DefaultDamping, "joint drive damping")
	f.Float64Var(&jointForceLimit, "joint-force-limit", config.DefaultForceLimit, "joint drive force limit")

	f.StringVar(&promTextfile, "prom-textfile", "", "write prometheus gauges to this textfile")
	f.StringVar(&influxURL, "influx-url", "", "influxdb v2 url")
	f.StringVar(&influxToken, "influx-token", os.Getenv("INFLUXDB_TOKEN"), "influxdb token")
	f.StringVar(&influxOrg, "influx-org", "", "influxdb organization")
	f.StringVar(&influxBucket, "influx-bucket", "", "influxdb bucket")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list registered tasks and aliases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return printTasks(tasks.NewRegistry(), true)
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check-cuda",
		Short: "probe a 64MB gpu allocation",
		Args:  cobra.NoArgs,
		RunE:  runCheckCUDA,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show summary results",
		Args:  cobra.MaximumNArgs(1),
		RunE:  showResults,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id] [task]",
		Short: "plot per-step stage times",
		Args:  cobra.ExactArgs(2),
		RunE:  plotSteps,
	}
	plotCmd.Flags().StringVar(&plotStage, "stage", bench.Total.String(), "stage to plot")
	plotCmd.Flags().IntVar(&plotWidth, "width", 80, "plot width")
	plotCmd.Flags().IntVar(&plotHeight, "height", 15, "plot height")
	plotCmd.Flags().StringVar(&plotSVG, "svg", "", "also write every stage to this svg file")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run results to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&exportOut, "out", "-", "output file (- for stdout)")
	exportCmd.Flags().BoolVar(&exportSteps, "steps", false, "include per-step series")

	browseCmd := &cobra.Command{
		Use:   "browse",
		Short: "browse results interactively",
		Args:  cobra.NoArgs,
		RunE:  browseResults,
	}

	historyCmd := &cobra.Command{
		Use:   "history [task]",
		Short: "list prior runs of a task with identical configuration",
		Args:  cobra.ExactArgs(1),
		RunE:  showHistory,
	}
	historyCmd.Flags().StringVar(&historyConf, "task-config", "", "serialized task config (default: most recent run's)")

	difficultiesCmd := &cobra.Command{
		Use:   "difficulties",
		Short: "list difficulty tiers and body counts",
		Args:  cobra.NoArgs,
		RunE:  listDifficulties,
	}

	rootCmd.AddCommand(runCmd, listCmd, checkCmd, showCmd, plotCmd, exportCmd, browseCmd, historyCmd, difficultiesCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func setupLogger(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("%w: log level %q", bench.ErrConfiguration, level)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}

// loadConfig starts from the config file or defaults and applies only the
// flags that were set explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", bench.ErrConfiguration, err)
		}
		cfg = loaded
	}

	set := cmd.Flags().Changed
	if set("tasks") {
		cfg.Tasks = taskList
	}
	if set("difficulty") {
		cfg.Difficulty = difficulty
	}
	if set("steps") {
		cfg.Steps = steps
	}
	if set("warmup-steps") {
		cfg.WarmupSteps = warmupSteps
	}
	if set("dt") {
		cfg.Dt = dt
	}
	if set("device") {
		cfg.Device = device
	}
	if set("output-dir") {
		cfg.OutputDir = outputDir
	}
	if set("run-id") {
		cfg.RunID = runID
	}
	if set("log-level") {
		cfg.LogLevel = logLevel
	}
	if noProfile {
		cfg.Profile = false
	}

	if set("cube-count") {
		cfg.GridStack.Count = &cubeCount
	}
	if set("cube-half-size") {
		cfg.GridStack.HalfSize = cubeHalfSize
	}
	if set("cube-spacing") {
		cfg.GridStack.Spacing = cubeSpacing
	}

	if set("ball-count") {
		cfg.Pour.Count = &ballCount
	}
	if set("ball-radius") {
		cfg.Pour.Radius = ballRadius
	}
	if set("container-half-extent") {
		cfg.Pour.ContainerHalfExtent = containerHalfExtent
	}
	if set("container-wall-height") {
		cfg.Pour.WallHeight = containerWallHeight
	}
	if set("container-wall-thickness") {
		cfg.Pour.WallThickness = containerWallThickness
	}
	if set("seed") {
		cfg.Pour.Seed = seed
	}

	if set("urdf") {
		cfg.Articulated.URDF = urdfPath
	}
	if set("motion") {
		cfg.Articulated.Motion = motion
	}
	if set("target-scale") {
		cfg.Articulated.TargetScale = targetScale
	}
	if set("root-height") {
		cfg.Articulated.RootHeight = rootHeight
	}
	if set("joint-stiffness") {
		cfg.Articulated.Stiffness = jointStiffness
	}
	if set("joint-damping") {
		cfg.Articulated.Damping = jointDamping
	}
	if set("joint-force-limit") {
		cfg.Articulated.ForceLimit = jointForceLimit
	}

	if noCSV {
		cfg.Sinks.CSV = false
	}
	if set("db") {
		cfg.Sinks.DBPath = dbPath
	}
	if set("prom-textfile") {
		cfg.Sinks.PromTextfile = promTextfile
	}
	if set("influx-url") {
		cfg.Sinks.Influx.URL = influxURL
	}
	if set("influx-token") || cfg.Sinks.Influx.Token == "" {
		cfg.Sinks.Influx.Token = influxToken
	}
	if set("influx-org") {
		cfg.Sinks.Influx.Org = influxOrg
	}
	if set("influx-bucket") {
		cfg.Sinks.Influx.Bucket = influxBucket
	}
	return cfg, nil
}

func runBenchmark(cmd *cobra.Command, args []string) error {
	registry := tasks.NewRegistry()
	if listTasks {
		return printTasks(registry, false)
	}
	if checkCUDA {
		return runCheckCUDA(cmd, args)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") || configFile != "" {
		if err := setupLogger(cfg.LogLevel); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	exp := experiment.New(cfg, registry, slog.Default())

	var written []string
	if cfg.Sinks.CSV {
		st := storage.New(cfg.OutputDir)
		exp.AddSink(st)
		written = append(written, st.StepsPath(), st.SummaryPath())
	}
	if cfg.Sinks.DBPath != "" {
		db, err := resultsdb.Open(cfg.Sinks.DBPath)
		if err != nil {
			return err
		}
		defer db.Close()
		exp.AddSink(db)
		written = append(written, cfg.Sinks.DBPath)
	}
	if cfg.Sinks.PromTextfile != "" {
		exp.AddSink(metrics.NewExporter(cfg.Sinks.PromTextfile))
		written = append(written, cfg.Sinks.PromTextfile)
	}
	if in := cfg.Sinks.Influx; in.Enabled() {
		sink := tsdb.New(in.URL, in.Token, in.Org, in.Bucket)
		defer sink.Close()
		exp.AddSink(sink)
	}

	slog.Info("starting benchmark", "run_id", cfg.RunID, "tasks", cfg.Tasks, "difficulty", cfg.Difficulty,
		"steps", cfg.Steps, "warmup_steps", cfg.WarmupSteps, "device", cfg.Device)

	if _, err := exp.Run(ctx); err != nil {
		return err
	}
	for _, p := range written {
		fmt.Printf("Wrote %s\n", p)
	}
	return nil
}

func printTasks(registry *tasks.Registry, withAliases bool) error {
	if !withAliases {
		for _, name := range registry.List() {
			fmt.Println(name)
		}
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TASK\tALIASES")
	for _, name := range registry.List() {
		fmt.Fprintf(w, "%s\t%s\n", name, strings.Join(registry.Aliases(name), ", "))
	}
	return w.Flush()
}

func runCheckCUDA(cmd *cobra.Command, args []string) error {
	ok, msg := compute.CheckCUDA()
	fmt.Println(msg)
	if !ok {
		return fmt.Errorf("cuda check failed: %s", msg)
	}
	return nil
}

// results opens the configured result source: the database when --db is
// set, otherwise the csv files in --output-dir.
type results struct {
	db    *resultsdb.DB
	store *storage.Store
}

func openResults() (*results, error) {
	if dbPath != "" {
		db, err := resultsdb.Open(dbPath)
		if err != nil {
			return nil, err
		}
		return &results{db: db}, nil
	}
	return &results{store: storage.New(outputDir)}, nil
}

func (r *results) Close() {
	if r.db != nil {
		r.db.Close()
	}
}

func (r *results) summaries(ctx context.Context, runID string) ([]bench.SummaryRow, error) {
	if r.db == nil {
		rows, err := r.store.LoadSummaries()
		if err != nil {
			return nil, err
		}
		if runID == "" {
			return rows, nil
		}
		var out []bench.SummaryRow
		for _, row := range rows {
			if row.RunID == runID {
				out = append(out, row)
			}
		}
		return out, nil
	}

	if runID != "" {
		return r.db.Summaries(ctx, runID)
	}
	runs, err := r.db.Runs(ctx)
	if err != nil {
		return nil, err
	}
	var out []bench.SummaryRow
	for _, id := range runs {
		rows, err := r.db.Summaries(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, rows...)
	}
	return out, nil
}

func (r *results) steps(ctx context.Context, runID, task string) ([]bench.StageTimingSample, error) {
	if r.db != nil {
		return r.db.Steps(ctx, runID, task)
	}
	return r.store.LoadSteps(runID, task)
}

func (r *results) report(ctx context.Context, runID string) (*bench.Report, error) {
	if r.db == nil {
		return r.store.Report(runID)
	}
	rows, err := r.db.Summaries(ctx, runID)
	if err != nil {
		return nil, err
	}
	report := &bench.Report{RunID: runID, Summaries: rows}
	for _, row := range rows {
		steps, err := r.db.Steps(ctx, runID, row.Task)
		if err != nil {
			return nil, err
		}
		report.Steps = append(report.Steps, steps...)
	}
	return report, nil
}

func showResults(cmd *cobra.Command, args []string) error {
	res, err := openResults()
	if err != nil {
		return err
	}
	defer res.Close()

	var id string
	if len(args) > 0 {
		id = args[0]
	}
	rows, err := res.summaries(cmd.Context(), id)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("no results found")
		return nil
	}
	fmt.Println(viz.SummaryTable(rows, viz.GetTheme(theme), -1))
	return nil
}

func plotSteps(cmd *cobra.Command, args []string) error {
	stage, ok := bench.ParseStage(plotStage)
	if !ok {
		return fmt.Errorf("%w: unknown stage %q", bench.ErrConfiguration, plotStage)
	}
	res, err := openResults()
	if err != nil {
		return err
	}
	defer res.Close()

	samples, err := res.steps(cmd.Context(), args[0], args[1])
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return errors.New("no data to plot")
	}

	series := viz.StageSeries(samples, stage)
	fmt.Printf("run: %s\n", args[0])
	fmt.Printf("task: %s\n", args[1])
	fmt.Printf("samples: %d\n\n", len(samples))
	fmt.Println(viz.PlotStage(samples, stage, plotWidth, plotHeight))
	fmt.Printf("\nmean=%.4f p50=%.4f p95=%.4f\n", mean(series), bench.Percentile(series, 50), bench.Percentile(series, 95))

	if plotSVG != "" {
		svg := export.StagesToSVG(samples, bench.Stages(), 800, 400)
		if err := os.WriteFile(plotSVG, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", plotSVG)
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	res, err := openResults()
	if err != nil {
		return err
	}
	defer res.Close()

	r, err := res.report(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(r.Summaries) == 0 {
		return fmt.Errorf("run not found: %s", args[0])
	}
	if err := storage.ExportJSON(exportOut, r, exportSteps); err != nil {
		return err
	}
	if exportOut != "-" {
		fmt.Printf("Wrote %s\n", exportOut)
	}
	return nil
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func browseResults(cmd *cobra.Command, args []string) error {
	res, err := openResults()
	if err != nil {
		return err
	}
	defer res.Close()

	ctx := cmd.Context()
	rows, err := res.summaries(ctx, "")
	if err != nil {
		return err
	}
	viz.SetTheme(theme)
	b := viz.NewBrowser(rows, func(runID, task string) ([]bench.StageTimingSample, error) {
		return res.steps(ctx, runID, task)
	})
	_, err = tea.NewProgram(b, tea.WithAltScreen()).Run()
	return err
}

func showHistory(cmd *cobra.Command, args []string) error {
	if dbPath == "" {
		return fmt.Errorf("%w: history requires --db", bench.ErrMissingInput)
	}
	db, err := resultsdb.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	task := tasks.NewRegistry().Resolve(args[0])
	taskConfig := historyConf
	if taskConfig == "" {
		all, err := db.History(ctx, task, "")
		if err != nil {
			return err
		}
		if len(all) == 0 {
			fmt.Printf("no runs of %s found\n", task)
			return nil
		}
		taskConfig = all[len(all)-1].TaskConfig
	}

	rows, err := db.History(ctx, task, taskConfig)
	if err != nil {
		return err
	}
	fmt.Printf("task: %s\n", task)
	fmt.Printf("config: %s\n\n", taskConfig)
	fmt.Println(viz.SummaryTable(rows, viz.GetTheme(theme), len(rows)-1))

	if len(rows) > 1 {
		first := rows[0].Stat(bench.Total).Mean
		last := rows[len(rows)-1].Stat(bench.Total).Mean
		if first > 0 {
			fmt.Printf("\ntotal_mean_ms %.4f -> %.4f (%+.1f%%)\n", first, last, 100*(last-first)/first)
		}
	}
	return nil
}

func listDifficulties(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TASK\t"+strings.ToUpper(strings.Join(config.Difficulties, "\t")))
	for _, task := range tasks.NewRegistry().List() {
		cells := []string{task}
		for _, d := range config.Difficulties {
			if n, ok := config.GetPreset(task, d); ok {
				cells = append(cells, fmt.Sprint(n))
			} else {
				cells = append(cells, "-")
			}
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	return w.Flush()
}
