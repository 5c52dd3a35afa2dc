// Package password derives deterministic Argon2 digests from plaintext
// secrets and compares digests in constant time.
//
// # Output format
//
// Digests are the raw KDF output rendered as lowercase hex. The salt and the
// secondary key are process-wide configuration, so the same plaintext always
// yields the same digest under one configuration. The key is mixed in with
// HMAC-SHA512 before the KDF runs.
//
// # Architecture boundaries
//
// This package owns hashing and comparison only. Looking up stored digests and
// deciding what a mismatch means belongs to the login flow in the root package.
//
// # What this package must NOT do
//
//   - Store or retrieve digests.
//   - Import any other cashflow package.
//   - Log plaintext secrets or digests.
package password
