// Package diag defines the diagnostic model shared by all pipeline phases.
//
// Diagnostic is the central record: a Severity, a stable numeric Code, a
// human-oriented message, the primary source.Span, optional secondary Notes
// and, for non-exhaustive matches, the list of uncovered alternatives.
//
// Phases emit through a diag.Reporter so producers stay decoupled from
// storage and formatting. BagReporter aggregates into a Bag, which supports
// sorting, deduplication and merging; rendering lives in internal/diagfmt.
//
// Semantic errors are always fatal to the item being analyzed: nothing in
// this package (or its consumers) downgrades an error to a warning.
package diag
