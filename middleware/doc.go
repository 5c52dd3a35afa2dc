// Package middleware adapts cashflow.Engine to net/http.
//
// [Guard] runs Engine.Authorize on every request and either writes the
// failure response or passes the request on with claims attached, readable
// through cashflow.ClaimsFromContext. [ClientIP] attaches the peer address
// used by per-IP login throttling.
//
// This package makes no authorization decisions of its own.
package middleware
