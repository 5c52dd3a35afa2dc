// Package rate provides the Redis-backed failed-login limiter.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes
// (after the configurable namespace):
//   - al:  login per-identifier (SHA-256 of the normalized identifier)
//   - ali: login per-IP
//
// # What this package must NOT do
//
//   - Decide what a rate-limited login looks like on the wire.
//   - Be imported outside the cashflow module.
package rate
