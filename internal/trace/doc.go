// Package trace records spans and point events for layout runs.
//
// The driver opens a span per command and per file; type conversion opens
// one per enum at ScopeType and emitted operations log at ScopeOp. A
// Tracer decides from its Level which scopes are kept:
//
//	LevelPhase   driver and pass spans
//	LevelDetail  plus one span per converted type
//	LevelDebug   everything
//
// Events are written as they happen (ModeStream), kept in a bounded ring
// that is dumped on exit (ModeRing), or both. The command line exposes this
// through --trace, --trace-level and --trace-mode:
//
//	enumgen --trace=- --trace-level=detail layout decls.toml
//
// Tracers travel in a context.Context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopePass, "convert", parent)
//	defer span.End("")
package trace
