// Package trace records spans for the phases of a sysc compilation.
//
// The driver opens one span per input file, the pass pipeline one per pass
// run, lowering one per function and the interpreter one per call. Spans
// nest through parent IDs carried in the context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	span, ctx := trace.Start(ctx, trace.ScopePass, "cse")
//	defer span.End("")
//
// A stream tracer writes events as they happen; a ring tracer keeps the
// latest ones so the CLI can dump them when a file fails.
package trace
