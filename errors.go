package cashflow

import (
	"errors"

	"github.com/cooperrunyan/cashflow/internal/rate"
	"github.com/cooperrunyan/cashflow/jwt"
	"github.com/cooperrunyan/cashflow/status"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong
	// password; callers cannot tell the two apart.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrLoginRateLimited is returned once the failed-login budget is spent.
	ErrLoginRateLimited = errors.New("login rate limited")
	// ErrEngineNotReady is returned by a zero or closed Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrCredentialNotFound must be returned by a CredentialStore for an
	// unknown email.
	ErrCredentialNotFound = errors.New("credential not found")
	// ErrCredentialExists must be returned by a CredentialWriter for a
	// duplicate email.
	ErrCredentialExists = errors.New("credential already exists")
	// ErrInvalidInput is returned for missing email or password on register.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRedisUnavailable wraps limiter backend failures.
	ErrRedisUnavailable = rate.ErrRedisUnavailable
	// ErrMalformedToken wraps every token validation failure.
	ErrMalformedToken = jwt.ErrMalformed
)

// OutcomeFor maps an Engine error onto the outcome a response should carry.
// A nil error maps to Ok.
func OutcomeFor(err error) status.Outcome {
	switch {
	case err == nil:
		return status.Ok
	case errors.Is(err, ErrInvalidCredentials):
		return status.BadLoginCredentials
	case errors.Is(err, ErrLoginRateLimited):
		return status.RateLimited
	case errors.Is(err, ErrCredentialExists):
		return status.Conflict
	case errors.Is(err, ErrInvalidInput):
		return status.BadInput
	case errors.Is(err, ErrCredentialNotFound):
		return status.DataNotFound
	case errors.Is(err, ErrMalformedToken):
		return status.MalformedCredential
	default:
		return status.InternalServerError
	}
}
