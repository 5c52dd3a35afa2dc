package cashflow

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/cooperrunyan/cashflow/internal/audit"
	"github.com/cooperrunyan/cashflow/internal/rate"
	"github.com/cooperrunyan/cashflow/jwt"
	"github.com/cooperrunyan/cashflow/password"
)

// Engine ties the hasher, the token manager, the guard, and the login flows
// together. It is built once by Builder and is safe for concurrent use.
type Engine struct {
	config      Config
	hasher      *password.Argon2
	tokens      *jwt.Manager
	rateLimiter *rate.Limiter
	audit       *audit.Dispatcher
	metrics     *Metrics
	logger      *slog.Logger
	clock       func() time.Time
	dummyDigest string
}

// Close flushes the audit dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped returns how many audit events were dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Logger returns the engine's logger. It is never nil for a built engine.
func (e *Engine) Logger() *slog.Logger {
	if e == nil || e.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.logger
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Hash returns the hex digest of plaintext. It runs the memory-hard KDF on
// the calling goroutine; request handlers should prefer HashContext.
func (e *Engine) Hash(plaintext string) string {
	start := time.Now()
	digest := e.hasher.Hash(plaintext)
	e.metricInc(MetricHashComputed)
	e.metrics.Observe(MetricHashLatency, time.Since(start))
	return digest
}

// HashContext is Hash bounded by Password.MaxConcurrent.
func (e *Engine) HashContext(ctx context.Context, plaintext string) (string, error) {
	start := time.Now()
	digest, err := e.hasher.HashContext(ctx, plaintext)
	if err != nil {
		return "", err
	}
	e.metricInc(MetricHashComputed)
	e.metrics.Observe(MetricHashLatency, time.Since(start))
	return digest, nil
}

// CheckHash compares two digests in constant time.
func (e *Engine) CheckHash(candidate, reference string) bool {
	return e.hasher.CheckHash(candidate, reference)
}

// Issue signs a session token for subjectID and email.
func (e *Engine) Issue(subjectID, email string) (string, error) {
	token, err := e.tokens.Issue(subjectID, email)
	if err != nil {
		return "", err
	}
	e.metricInc(MetricTokenIssued)
	return token, nil
}

// ValidateToken verifies a token's signature and returns its claims without
// checking expiry. Failures wrap ErrMalformedToken.
func (e *Engine) ValidateToken(token string) (*Claims, error) {
	return e.tokens.Validate(token)
}

// IsExpired reports whether claims are at or past their expiry.
func (e *Engine) IsExpired(claims *Claims) bool {
	return e.tokens.IsExpired(claims)
}

// SessionCookie wraps token in the configured session cookie. Its lifetime
// matches the token TTL.
func (e *Engine) SessionCookie(token string) *http.Cookie {
	c := e.baseCookie()
	c.Value = token
	if ttl := e.config.JWT.TTL; ttl > 0 {
		c.MaxAge = int(ttl / time.Second)
		c.Expires = e.now().Add(ttl)
	}
	return c
}

// ClearSessionCookie returns an empty, already-expired session cookie.
func (e *Engine) ClearSessionCookie() *http.Cookie {
	c := e.baseCookie()
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	return c
}

func (e *Engine) baseCookie() *http.Cookie {
	return &http.Cookie{
		Name:     e.config.Session.CookieName,
		Path:     e.config.Session.CookiePath,
		Domain:   e.config.Session.CookieDomain,
		HttpOnly: true,
		Secure:   e.config.Security.RequireSecureCookies,
		SameSite: e.config.Security.SameSitePolicy,
	}
}
