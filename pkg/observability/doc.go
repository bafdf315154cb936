// Package observability provides OpenTelemetry tracing and metrics for a
// Decision Gate deployment, following cloud-native best practices.
//
// # Tracing and metrics
//
// Initialize a provider at application startup:
//
//	provider, err := observability.New(ctx, observability.DefaultConfig())
//	defer provider.Shutdown(ctx)
//
// Track an operation end-to-end (span + RED metrics in one call):
//
//	ctx, finish := provider.TrackOperation(ctx, "evaluate_gate",
//		observability.RunOperation(tenantID, namespaceID, scenarioID, runID)...)
//	err := doWork(ctx)
//	finish(err)
//
// # Audit timeline and SLOs
//
// AuditTimeline gives operators a queryable, in-memory feed of actions,
// evidence dispatches, gate evaluations, and inclusion proofs for a run.
// SLOTracker and SLIRegistry track latency/success-rate objectives per
// operation (evaluate_gate, advance_run, dispatch_evidence, export_runpack).
package observability
