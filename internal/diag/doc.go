// Package diag defines the diagnostic model shared by the declaration
// loader, the layout pass and the CLI.
//
// # Data model
//
// Diagnostic is the central record. It contains:
//
//   - Severity: Info, Warning or Error (severity.go).
//   - Code: compact numeric identifier with a stable string form (codes.go).
//     Layout faults use LAY1xxx, declaration-file problems DCL2xxx.
//   - Message: short, human oriented text.
//   - Primary span: the source.Span of the offending declaration.
//   - Notes: optional secondary spans, e.g. the case that made an enum
//     recursive.
//
// A layout fault never produces a partial layout: the driver turns the
// returned error into one Diagnostic tied to the enum declaration and the
// enum is left unregistered.
//
// # Emitting diagnostics
//
// Passes report through a Reporter. ReportError/ReportWarning build a
// ReportBuilder that can be enriched WithNote before Emit. BagReporter
// collects into a Bag, which supports a limit, sorting and deduplication.
// FormatGoldenDiagnostics renders a deterministic one-line-per-entry form
// used by golden tests and the --quiet CLI output.
package diag
