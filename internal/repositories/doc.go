// Package repositories implements SQLite persistence for fetch run history.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// Runs support soft deletes via deleted_at timestamps and deleted records are excluded from queries by default.
//
// Key Implementations:
//   - [RunRepository] : one row per pipeline run with status and track counters
//   - [RunTrackRepository] : per-track acquisition outcomes keyed by run and catalog position
//   - [RunRecorder] : adapts both repositories to the pipeline's recorder hook
//
// Sequence numbers provide stable, human-readable ordering (e.g., run #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
