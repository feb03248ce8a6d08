// Package scoring turns a street way graph and point samples into scored,
// merged and color-classified streets.
//
// The pipeline is Aggregate → MergeByName → Classify. Every step is pure:
// nothing here performs I/O, and degenerate input yields fewer streets
// rather than errors.
package scoring
