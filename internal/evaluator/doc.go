// Package evaluator maps named actions onto ledger deltas.
//
// An action resolves through a static table to a base reward or penalty and
// a target token. Intensity scales the impact linearly, a per-user Q-learning
// table adapts the reward to the user's history in their current role, and
// the cheat action uses an escalating penalty ladder instead of a flat
// value. Negative actions against another user raise the Rnanubandhan
// sub-ledger and carry a debt request for the debt network.
package evaluator
