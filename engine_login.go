package cashflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cooperrunyan/cashflow/internal/flows"
	"github.com/cooperrunyan/cashflow/internal/rate"
)

// Login verifies email and password against store and issues a token.
//
// Unknown emails and wrong passwords both return ErrInvalidCredentials after
// the same hashing and comparison work. With login throttling enabled,
// exhausted budgets return ErrLoginRateLimited.
func (e *Engine) Login(ctx context.Context, email, password string, store CredentialStore) (*LoginResult, error) {
	if e == nil || e.hasher == nil || store == nil {
		return nil, ErrEngineNotReady
	}

	res, err := flows.RunLogin(ctx, email, password, e.loginDeps(store))
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			e.logger.InfoContext(ctx, "login rejected", slog.String("reason", "invalid_credentials"))
		} else if !errors.Is(err, ErrLoginRateLimited) {
			e.logger.ErrorContext(ctx, "login failed", slog.Any("error", err))
		}
		return nil, err
	}

	return &LoginResult{SubjectID: res.SubjectID, Email: res.Email, Token: res.Token}, nil
}

// Register hashes password, stores a new credential with a fresh subject ID,
// and issues a token for it.
func (e *Engine) Register(ctx context.Context, email, password string, store CredentialWriter) (*LoginResult, error) {
	if e == nil || e.hasher == nil || store == nil {
		return nil, ErrEngineNotReady
	}

	res, err := flows.RunRegister(ctx, email, password, e.registerDeps(store))
	if err != nil {
		if !errors.Is(err, ErrCredentialExists) && !errors.Is(err, ErrInvalidInput) {
			e.logger.ErrorContext(ctx, "register failed", slog.Any("error", err))
		}
		return nil, err
	}

	return &LoginResult{SubjectID: res.SubjectID, Email: res.Email, Token: res.Token}, nil
}

// LoginRetryAfter returns how long email stays throttled. It is zero when
// throttling is off or no window is open.
func (e *Engine) LoginRetryAfter(ctx context.Context, email string) time.Duration {
	if e == nil || e.rateLimiter == nil {
		return 0
	}
	d, err := e.rateLimiter.RetryAfter(ctx, email)
	if err != nil {
		e.logger.WarnContext(ctx, "login retry window unavailable", slog.Any("error", err))
		return 0
	}
	return d
}

func (e *Engine) loginDeps(store CredentialStore) flows.LoginDeps {
	deps := flows.LoginDeps{
		ClientIPFromContext: ClientIPFromContext,
		Hash:                e.HashContext,
		CheckHash:           e.CheckHash,
		DummyDigest:         e.dummyDigest,
		LookupCredential: func(ctx context.Context, email string) (flows.Credential, error) {
			cred, err := store.CredentialByEmail(ctx, email)
			if err != nil {
				return flows.Credential{}, err
			}
			return flows.Credential(cred), nil
		},
		IssueToken: e.tokens.Issue,
		MetricInc:  func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit:  e.emitAudit,
		Warn: func(msg string, args ...any) {
			e.logger.Warn(msg, args...)
		},
		Metrics: flows.LoginMetrics{
			LoginSuccess:     int(MetricLoginSuccess),
			LoginFailure:     int(MetricLoginFailure),
			LoginRateLimited: int(MetricLoginRateLimited),
			TokenIssued:      int(MetricTokenIssued),
		},
		Events: flows.LoginEvents{
			LoginSuccess:     auditEventLoginSuccess,
			LoginFailure:     auditEventLoginFailure,
			LoginRateLimited: auditEventLoginRateLimited,
		},
		Errors: flows.LoginErrors{
			EngineNotReady:     ErrEngineNotReady,
			InvalidCredentials: ErrInvalidCredentials,
			LoginRateLimited:   ErrLoginRateLimited,
			CredentialNotFound: ErrCredentialNotFound,
			RateLimitSignal:    rate.ErrRateLimited,
		},
	}
	if e.rateLimiter != nil {
		deps.CheckLoginRate = e.rateLimiter.CheckLogin
		deps.IncrementLoginRate = e.rateLimiter.IncrementLogin
		deps.ResetLoginRate = e.rateLimiter.ResetLogin
	}
	return deps
}

func (e *Engine) registerDeps(store CredentialWriter) flows.RegisterDeps {
	return flows.RegisterDeps{
		Hash:         e.HashContext,
		NewSubjectID: uuid.NewString,
		SaveCredential: func(ctx context.Context, cred flows.Credential) error {
			return store.CreateCredential(ctx, Credential(cred))
		},
		IssueToken: e.tokens.Issue,
		MetricInc:  func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit:  e.emitAudit,
		Metrics: flows.RegisterMetrics{
			RegisterSuccess:   int(MetricRegisterSuccess),
			RegisterDuplicate: int(MetricRegisterDuplicate),
			TokenIssued:       int(MetricTokenIssued),
		},
		Events: flows.RegisterEvents{
			RegisterSuccess:   auditEventRegisterSuccess,
			RegisterDuplicate: auditEventRegisterDuplicate,
			RegisterFailure:   auditEventRegisterFailure,
		},
		Errors: flows.RegisterErrors{
			EngineNotReady:   ErrEngineNotReady,
			InvalidInput:     ErrInvalidInput,
			CredentialExists: ErrCredentialExists,
		},
	}
}
