// Package queue persists captioning jobs in SQLite and owns every status
// transition in their lifecycle.
//
// The Store is the single mutator: enqueue, the atomic batch claim,
// generation/failure outcomes, and terminal finalization all go through it,
// along with the paginated views the CLI renders. Claiming is lock-based
// with a stale-lock threshold; a crashed worker's rows become claimable
// again once the lock ages out, which is the sole crash-recovery mechanism.
//
// queued -> processing -> {generated, failed} -> {approved, rejected, skipped}
//
// failed rows stay claimable forever; there is no attempt cutoff. Treat this
// package as the source of truth for queue semantics; schema changes go in
// storage/schema.sql.
package queue
