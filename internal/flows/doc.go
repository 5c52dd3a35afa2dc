// Package flows holds the step order of the guard, login, and register
// operations. Each Run function takes a dependency struct of plain funcs
// and owns no resources; the Engine supplies the hasher, token manager,
// limiter, audit, and metrics.
//
// This package must not import cashflow.
package flows
