// Package operations runs the accident consolidation batch as a sequence of
// steps.
//
// Core Components:
//
// Pipeline: builds the default Load, Consolidate, Clean, Derive, Aggregate and
// Export sequence from the configuration and runs it. Steps execute strictly
// in order on a single goroutine; the first failure ends the run and the
// remaining steps are marked skipped.
//
// Step: a single unit of work. A step reads its input from the RunState and
// stores its output back into it. Table-producing steps never modify the
// table they receive.
//
// RunState: the data flowing between steps plus the per-step execution state.
//
// RunManifest: the JSON record written next to the exported table, holding
// stage timings, the RunReport of recoverable conditions and the blake2b
// digest of every output file.
//
// Errors returned by Run are *OperationError values whose Type tells source
// failures, data failures and cancellation apart.
//
// Example usage:
//
//	pipeline, err := operations.NewPipeline(cfg, paths, logger, telemetry)
//	if err != nil {
//		return err
//	}
//	manifest, err := pipeline.Run(ctx)
package operations
