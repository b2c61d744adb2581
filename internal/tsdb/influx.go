// Package tsdb publishes benchmark results to InfluxDB as time series.
package tsdb

import (
	"context"
	"fmt"
	"math"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/san-kum/gpubench/internal/bench"
)

const (
	StepMeasurement    = "physx_step"
	SummaryMeasurement = "physx_summary"
)

// PointWriter is the subset of api.WriteAPIBlocking the sink needs.
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

// Sink writes one point per measured step and one per summary row.
type Sink struct {
	writer    PointWriter
	batchSize int
	now       func() time.Time
	close     func()
}

// New connects to an InfluxDB v2 server. The connection is lazy; the first
// error surfaces on Publish.
func New(url, token, org, bucket string) *Sink {
	client := influxdb2.NewClient(url, token)
	return &Sink{
		writer:    client.WriteAPIBlocking(org, bucket),
		batchSize: 500,
		now:       time.Now,
		close:     client.Close,
	}
}

// NewWithWriter wraps an existing writer. now may be nil.
func NewWithWriter(w PointWriter, now func() time.Time) *Sink {
	if now == nil {
		now = time.Now
	}
	return &Sink{writer: w, batchSize: 500, now: now}
}

func (s *Sink) Close() {
	if s.close != nil {
		s.close()
	}
}

// Points converts a report. Step points are timestamped at the publish
// time plus simulated time so a run lays out on the time axis.
func Points(r *bench.Report, at time.Time) []*write.Point {
	points := make([]*write.Point, 0, len(r.Steps)+len(r.Summaries))
	for _, st := range r.Steps {
		fields := map[string]interface{}{"step": st.Step}
		for _, stage := range bench.Stages() {
			fields[stage.Key()] = st.Get(stage)
		}
		ts := at.Add(time.Duration(math.Round(float64(st.Step) * st.Dt * float64(time.Second))))
		points = append(points, influxdb2.NewPoint(StepMeasurement, tags(st.RunID, st.Task, st.Difficulty), fields, ts))
	}
	for _, row := range r.Summaries {
		fields := map[string]interface{}{
			"steps":        row.Steps,
			"warmup_steps": row.WarmupSteps,
			"dt":           row.Dt,
			"task_config":  row.TaskConfig,
		}
		for _, stage := range bench.Stages() {
			stat := row.Stat(stage)
			fields[stage.String()+"_mean_ms"] = stat.Mean
			fields[stage.String()+"_p50_ms"] = stat.P50
			fields[stage.String()+"_p95_ms"] = stat.P95
			fields[stage.String()+"_max_ms"] = stat.Max
		}
		points = append(points, influxdb2.NewPoint(SummaryMeasurement, tags(row.RunID, row.Task, row.Difficulty), fields, at))
	}
	return points
}

func tags(runID, task, difficulty string) map[string]string {
	return map[string]string{"run_id": runID, "task": task, "difficulty": difficulty}
}

func (s *Sink) Publish(ctx context.Context, r *bench.Report) error {
	points := Points(r, s.now())
	for start := 0; start < len(points); start += s.batchSize {
		end := min(start+s.batchSize, len(points))
		if err := s.writer.WritePoint(ctx, points[start:end]...); err != nil {
			return fmt.Errorf("write influx points %d-%d: %w", start, end, err)
		}
	}
	return nil
}
