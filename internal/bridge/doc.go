// Package bridge forwards ledger and lifecycle state to an external
// telemetry consumer over signed HTTP (the STP bridge).
//
// Every transmission carries a fresh nonce and timestamp and a signature
// over the canonical JSON of {transmission_id, nonce, timestamp, payload}.
// The nonce is registered before the request is sent, so two concurrent
// sends of the same nonce can never both go out. A nonce is released again
// only when no attempt could have reached the consumer.
//
// Outcomes are typed: see Error and its Kind. Callers branch on the kind
// rather than on error strings.
package bridge
