// Package jwt issues and validates HS512 identity tokens.
//
// The signing algorithm is pinned at both ends: tokens declaring any other
// algorithm, including "none", fail validation. Validate deliberately skips
// time-based claim checks so callers can inspect expired claims; expiry is
// reported separately by [Manager.IsExpired].
package jwt
