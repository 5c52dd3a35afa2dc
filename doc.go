// Package cashflow is the authentication core of a personal-finance backend:
// deterministic Argon2 password digests, HS512 session tokens, a guard that
// turns a request's credential header into claims or a finished response, and
// a fixed set of HTTP-facing outcomes.
//
// An [Engine] is assembled once through [Builder.Build] and is safe for
// concurrent use afterwards.
//
// # Architecture boundaries
//
// cashflow is the public surface. It exposes [Engine], [Builder], [Config],
// and value types ([Claims], [Credential], [MetricsSnapshot]). The guard and
// login pipelines, the Redis limiter, and audit dispatch live under internal/.
// Response construction lives in the status package so handlers can build
// responses without an Engine.
//
// # Tokens
//
// Tokens are stateless. There is no revocation list; a token stays valid
// until its exp claim passes. Logout is cookie clearing only.
//
// # Guard
//
// [Engine.Authorize] returns either claims or a finalized [status.Response],
// never both. Every failure past a missing header also clears the session
// cookie.
package cashflow
