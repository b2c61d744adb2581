// Package bench measures a physics system stage by stage.
//
// A [Runtime] bundles a GPU-backed [PhysicsSystem], the [Scene] it steps,
// an optional per-step control hook and the scenario [Metadata]. A [Runner]
// performs untimed warmup steps followed by measured steps, collecting one
// [StageTimingSample] per measured step; [Summarize] reduces those samples
// into a [SummaryRow] of mean, p50, p95 and max per stage.
//
// Rows reach persistence through the [Sink] interface.
package bench
