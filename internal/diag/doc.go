// Package diag defines the diagnostic model shared by lowering, the
// optimization passes and the analyses.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity: Info, Warning or Error.
//   - Code: compact numeric identifier (see codes.go) with a stable string form.
//   - Message: human oriented text; keep it short.
//   - Primary: the Location (file, function, block) the finding is about.
//   - Notes: optional secondary locations with extra context.
//
// Passes report their rewrite counts as Info diagnostics, so a driver can
// print them, collect them into a Bag for tests, or drop them.
//
// # Emitting diagnostics
//
// Producers hold a Reporter and either call Report directly or build a
// diagnostic with ReportInfo/ReportWarning/ReportError, chain WithNote and
// call Emit. BagReporter collects into a Bag; WriterReporter prints messages
// line by line; MultiReporter fans out; DedupReporter drops repeats.
package diag
