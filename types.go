package cashflow

import (
	"context"

	"github.com/cooperrunyan/cashflow/jwt"
)

// Claims is the identity carried by a session token.
type Claims = jwt.Claims

// Credential is a stored login record. Digest is the hex output of the
// engine's hasher.
type Credential struct {
	SubjectID string
	Email     string
	Digest    string
}

// CredentialStore looks up credentials by email. Unknown emails must yield
// an error wrapping ErrCredentialNotFound.
type CredentialStore interface {
	CredentialByEmail(ctx context.Context, email string) (Credential, error)
}

// CredentialWriter persists new credentials. Duplicate emails must yield an
// error wrapping ErrCredentialExists.
type CredentialWriter interface {
	CreateCredential(ctx context.Context, cred Credential) error
}

// LoginResult is returned by Login and Register.
type LoginResult struct {
	SubjectID string
	Email     string
	Token     string
}
