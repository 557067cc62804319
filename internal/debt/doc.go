// Package debt implements the Rnanubandhan network: a directed multigraph of
// karmic obligations between users.
//
// An edge points from the debtor to the receiver. Cycles and parallel edges
// are legal. While an edge is active its amount only decreases; a repaid or
// transferred edge is frozen and kept for history.
//
// Repay and Transfer are serialized per edge, independently of any per-user
// locking the caller performs.
package debt
