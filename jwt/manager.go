package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const minSigningKeyBytes = 32

// ErrMalformed is returned by Validate for any token whose signature,
// algorithm, encoding, or claim structure cannot be trusted.
var ErrMalformed = errors.New("malformed token")

// Config carries the process-wide signing settings.
type Config struct {
	SigningKey []byte
	TTL        time.Duration
	Issuer     string

	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// Manager issues and validates HS512 identity tokens.
type Manager struct {
	config Config
	method jwt.SigningMethod
	parser *jwt.Parser
}

// Claims is the payload of an identity token.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.SigningKey) == 0 {
		return nil, errors.New("jwt signing key is required")
	}
	if len(cfg.SigningKey) < minSigningKeyBytes {
		return nil, fmt.Errorf("jwt signing key must be >= %d bytes", minSigningKeyBytes)
	}
	if cfg.TTL < 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.SigningKey = append([]byte(nil), cfg.SigningKey...)

	method := jwt.SigningMethodHS512
	return &Manager{
		config: cfg,
		method: method,
		// Expiry is reported by IsExpired rather than enforced here.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{method.Alg()}),
			jwt.WithStrictDecoding(),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// TTL returns the configured token lifetime.
func (m *Manager) TTL() time.Duration {
	return m.config.TTL
}

// Issue signs claims for subjectID and email that expire TTL from now.
func (m *Manager) Issue(subjectID, email string) (string, error) {
	now := m.config.Now()
	claims := Claims{
		UserID: subjectID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
			ID:        uuid.NewString(),
		},
	}

	return jwt.NewWithClaims(m.method, claims).SignedString(m.config.SigningKey)
}

// Validate verifies the signature and returns the claims without checking
// expiry. Every failure wraps ErrMalformed.
func (m *Manager) Validate(token string) (*Claims, error) {
	parsed, err := m.parser.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.config.SigningKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, jwt.ErrTokenInvalidClaims)
	}
	if m.config.Issuer != "" && claims.Issuer != m.config.Issuer {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, jwt.ErrTokenInvalidIssuer)
	}

	return claims, nil
}

// IsExpired reports whether claims expire at or before now. Claims without
// an expiry are treated as expired.
func (m *Manager) IsExpired(claims *Claims) bool {
	if claims == nil || claims.ExpiresAt == nil {
		return true
	}
	return !claims.ExpiresAt.Time.After(m.config.Now())
}
