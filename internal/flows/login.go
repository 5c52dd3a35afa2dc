package flows

import (
	"context"
	"errors"
)

// Credential is the flow-local view of a stored login record.
type Credential struct {
	SubjectID string
	Email     string
	Digest    string
}

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	SubjectID string
	Email     string
	Token     string
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess     int
	LoginFailure     int
	LoginRateLimited int
	TokenIssued      int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess     string
	LoginFailure     string
	LoginRateLimited string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady     error
	InvalidCredentials error
	LoginRateLimited   error
	CredentialNotFound error
	RateLimitSignal    error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	ClientIPFromContext func(context.Context) string

	CheckLoginRate     func(context.Context, string, string) error
	IncrementLoginRate func(context.Context, string, string) error
	ResetLoginRate     func(context.Context, string, string) error

	Hash             func(context.Context, string) (string, error)
	CheckHash        func(string, string) bool
	DummyDigest      string
	LookupCredential func(context.Context, string) (Credential, error)
	IssueToken       func(string, string) (string, error)

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, error, map[string]string)
	Warn      func(string, ...any)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin checks email and password against the stored digest and issues
// a token on success.
//
// The password is hashed before the lookup, and an unknown email is compared
// against DummyDigest, so both failure cases do the same work.
func RunLogin(ctx context.Context, email, password string, deps LoginDeps) (*LoginResult, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, map[string]string) {}
	}
	if deps.Warn == nil {
		deps.Warn = func(string, ...any) {}
	}
	if deps.ClientIPFromContext == nil {
		deps.ClientIPFromContext = func(context.Context) string { return "" }
	}
	if deps.Hash == nil ||
		deps.CheckHash == nil ||
		deps.LookupCredential == nil ||
		deps.IssueToken == nil {
		return nil, deps.Errors.EngineNotReady
	}

	ip := deps.ClientIPFromContext(ctx)

	rateLimited := func(userID string) (*LoginResult, error) {
		deps.MetricInc(deps.Metrics.LoginRateLimited)
		deps.EmitAudit(ctx, deps.Events.LoginRateLimited, false, userID, deps.Errors.LoginRateLimited, map[string]string{
			"identifier": email,
		})
		return nil, deps.Errors.LoginRateLimited
	}

	if deps.CheckLoginRate != nil {
		if err := deps.CheckLoginRate(ctx, email, ip); err != nil {
			if errors.Is(err, deps.Errors.RateLimitSignal) {
				return rateLimited("")
			}
			return nil, err
		}
	}

	fail := func(userID, reason string) (*LoginResult, error) {
		if deps.IncrementLoginRate != nil {
			if err := deps.IncrementLoginRate(ctx, email, ip); err != nil {
				if errors.Is(err, deps.Errors.RateLimitSignal) {
					return rateLimited(userID)
				}
				deps.Warn("cashflow: login rate counter update failed", "error", err)
			}
		}
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, userID, deps.Errors.InvalidCredentials, map[string]string{
			"identifier": email,
			"reason":     reason,
		})
		return nil, deps.Errors.InvalidCredentials
	}

	if email == "" || password == "" {
		return fail("", "empty_credentials")
	}

	digest, err := deps.Hash(ctx, password)
	if err != nil {
		return nil, err
	}
	password = ""

	reference := deps.DummyDigest
	found := false
	cred, err := deps.LookupCredential(ctx, email)
	switch {
	case err == nil:
		reference = cred.Digest
		found = true
	case deps.Errors.CredentialNotFound != nil && errors.Is(err, deps.Errors.CredentialNotFound):
	default:
		return nil, err
	}

	match := deps.CheckHash(digest, reference)
	if !found {
		return fail("", "user_not_found")
	}
	if !match {
		return fail(cred.SubjectID, "password_mismatch")
	}

	if deps.ResetLoginRate != nil {
		if err := deps.ResetLoginRate(ctx, email, ip); err != nil {
			deps.Warn("cashflow: login rate counter reset failed", "error", err)
		}
	}

	token, err := deps.IssueToken(cred.SubjectID, cred.Email)
	if err != nil {
		return nil, err
	}
	deps.MetricInc(deps.Metrics.TokenIssued)
	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, cred.SubjectID, nil, nil)

	return &LoginResult{SubjectID: cred.SubjectID, Email: cred.Email, Token: token}, nil
}
