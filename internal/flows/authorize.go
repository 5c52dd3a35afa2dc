package flows

import (
	"strings"

	"github.com/cooperrunyan/cashflow/jwt"
)

// AuthorizeFailureKind classifies guard failures for root-level mapping.
type AuthorizeFailureKind int

const (
	AuthorizeFailureNone AuthorizeFailureKind = iota
	AuthorizeFailureNoCredential
	AuthorizeFailureMalformed
	AuthorizeFailureExpired
	AuthorizeFailureCorrupt
)

// ClearsCookie reports whether the failure invalidates the stored session
// cookie. Only a missing credential leaves it alone.
func (k AuthorizeFailureKind) ClearsCookie() bool {
	switch k {
	case AuthorizeFailureMalformed, AuthorizeFailureExpired, AuthorizeFailureCorrupt:
		return true
	default:
		return false
	}
}

// AuthorizeResult returns either claims or a classified failure.
type AuthorizeResult struct {
	Failure AuthorizeFailureKind
	Err     error
	Claims  *jwt.Claims
}

// AuthorizeDeps captures the guard's token dependencies.
type AuthorizeDeps struct {
	Scheme    string
	Validate  func(string) (*jwt.Claims, error)
	IsExpired func(*jwt.Claims) bool
}

// RunAuthorize turns a credential header into claims or a failure kind,
// stopping at the first failed check.
func RunAuthorize(header string, present bool, deps AuthorizeDeps) AuthorizeResult {
	if !present {
		return AuthorizeResult{Failure: AuthorizeFailureNoCredential}
	}

	token := strings.TrimPrefix(header, deps.Scheme)

	claims, err := deps.Validate(token)
	if err != nil {
		return AuthorizeResult{Failure: AuthorizeFailureMalformed, Err: err}
	}
	if deps.IsExpired(claims) {
		return AuthorizeResult{Failure: AuthorizeFailureExpired}
	}
	if claims.UserID == "" {
		return AuthorizeResult{Failure: AuthorizeFailureCorrupt}
	}

	return AuthorizeResult{Claims: claims}
}
