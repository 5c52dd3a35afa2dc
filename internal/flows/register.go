package flows

import (
	"context"
	"errors"
)

// RegisterMetrics carries metric IDs needed by the register flow.
type RegisterMetrics struct {
	RegisterSuccess   int
	RegisterDuplicate int
	TokenIssued       int
}

// RegisterEvents carries audit event names used by the register flow.
type RegisterEvents struct {
	RegisterSuccess   string
	RegisterDuplicate string
	RegisterFailure   string
}

// RegisterErrors carries host-level sentinel errors used by the register flow.
type RegisterErrors struct {
	EngineNotReady   error
	InvalidInput     error
	CredentialExists error
}

// RegisterDeps captures register dependencies.
type RegisterDeps struct {
	Hash           func(context.Context, string) (string, error)
	NewSubjectID   func() string
	SaveCredential func(context.Context, Credential) error
	IssueToken     func(string, string) (string, error)

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, error, map[string]string)

	Metrics RegisterMetrics
	Events  RegisterEvents
	Errors  RegisterErrors
}

// RunRegister stores a new credential and issues a token for it.
func RunRegister(ctx context.Context, email, password string, deps RegisterDeps) (*LoginResult, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, map[string]string) {}
	}
	if deps.Hash == nil ||
		deps.NewSubjectID == nil ||
		deps.SaveCredential == nil ||
		deps.IssueToken == nil {
		return nil, deps.Errors.EngineNotReady
	}
	if email == "" || password == "" {
		return nil, deps.Errors.InvalidInput
	}

	digest, err := deps.Hash(ctx, password)
	if err != nil {
		return nil, err
	}

	cred := Credential{SubjectID: deps.NewSubjectID(), Email: email, Digest: digest}
	if err := deps.SaveCredential(ctx, cred); err != nil {
		if deps.Errors.CredentialExists != nil && errors.Is(err, deps.Errors.CredentialExists) {
			deps.MetricInc(deps.Metrics.RegisterDuplicate)
			deps.EmitAudit(ctx, deps.Events.RegisterDuplicate, false, "", err, map[string]string{
				"identifier": email,
			})
			return nil, err
		}
		deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, "", err, map[string]string{
			"identifier": email,
		})
		return nil, err
	}

	token, err := deps.IssueToken(cred.SubjectID, cred.Email)
	if err != nil {
		return nil, err
	}
	deps.MetricInc(deps.Metrics.TokenIssued)
	deps.MetricInc(deps.Metrics.RegisterSuccess)
	deps.EmitAudit(ctx, deps.Events.RegisterSuccess, true, cred.SubjectID, nil, nil)

	return &LoginResult{SubjectID: cred.SubjectID, Email: cred.Email, Token: token}, nil
}
