// Package lifecycle drives the birth, death and rebirth state machine of a
// ledger record.
//
//	alive --(prarabdha <= threshold, TriggerDeath)--> death_pending
//	death_pending --(Rebirth)--> superseded   (successor id enters alive)
//
// The pure functions (CheckThreshold, Death, Successor, LokaFor, Inherit)
// are used by callers that already hold the per-user lock. Engine wraps them
// with store access and locking.
package lifecycle
