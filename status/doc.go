// Package status defines the outcome taxonomy shared by every auth operation
// and the builders that turn an outcome into an HTTP response.
//
// Error bodies have the shape {"status", "error", "input"?} and success
// bodies {"status", "message", "data"?}. The HTTP code always comes from
// [Outcome.Code]; nothing else picks a transport code.
//
// Headers are keyed uniquely with the last write winning. Cookies are an
// ordered list and duplicates by name are kept for the transport to resolve.
package status
