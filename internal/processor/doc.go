// Package processor orchestrates claimed queue jobs through caption
// generation, normalization, the usability gate, and the approval policy.
//
// A batch runs synchronously to completion. Provider and quality failures
// are persisted on the job and never abort the remaining jobs; only
// storage-level errors surface to the caller. Auto-approval happens when
// manual review is disabled and the provider confidence meets the
// configured minimum; both automatic and manual approval go through
// ApproveRow, the single path that commits text to an image.
package processor
