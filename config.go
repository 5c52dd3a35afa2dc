package cashflow

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cooperrunyan/cashflow/password"
)

// Config is the complete engine configuration. It is copied into the Engine
// at Build time and never mutated afterwards.
type Config struct {
	JWT      JWTConfig
	Password PasswordConfig
	Session  SessionConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls token signing. The algorithm is always HS512.
type JWTConfig struct {
	SigningKey []byte
	TTL        time.Duration
	Issuer     string
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the process-wide hashing salt, secondary key, and
// Argon2 cost parameters.
type PasswordConfig struct {
	Salt          string
	Key           string
	Passes        uint32
	Lanes         uint8
	MemoryKiB     uint32
	Length        uint32
	Variant       string // "argon2i" (default) or "argon2id"
	MaxConcurrent int
}

/*
====================================
SESSION CONFIG
====================================
*/

// SessionConfig names the credential header, its scheme prefix, and the
// session cookie.
type SessionConfig struct {
	HeaderName   string
	Scheme       string
	CookieName   string
	CookiePath   string
	CookieDomain string
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig controls login throttling and cookie hardening.
type SecurityConfig struct {
	ProductionMode        bool
	EnableLoginThrottle   bool
	EnableIPThrottle      bool
	MaxLoginAttempts      int
	LoginCooldownDuration time.Duration
	RedisPrefix           string
	RequireSecureCookies  bool
	SameSitePolicy        http.SameSite
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// GuardRejections also audits every rejected Authorize call.
	GuardRejections bool
}

// MetricsConfig toggles in-process counters and the authorize histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns a development configuration. Secrets (signing key,
// salt, hash key) are left empty and must be supplied.
func DefaultConfig() Config {
	pw := password.DefaultConfig()
	return Config{
		JWT: JWTConfig{
			TTL: 24 * time.Hour,
		},
		Password: PasswordConfig{
			Passes:    pw.Passes,
			Lanes:     pw.Lanes,
			MemoryKiB: pw.MemoryKiB,
			Length:    pw.Length,
			Variant:   pw.Variant,
		},
		Session: SessionConfig{
			HeaderName: "Authorization",
			Scheme:     "Bearer ",
			CookieName: "jwt",
			CookiePath: "/",
		},
		Security: SecurityConfig{
			ProductionMode:        false,
			EnableLoginThrottle:   false,
			EnableIPThrottle:      false,
			MaxLoginAttempts:      5,
			LoginCooldownDuration: 15 * time.Minute,
			RedisPrefix:           "cf",
			RequireSecureCookies:  false,
			SameSitePolicy:        http.SameSiteLaxMode,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.SigningKey = cloneBytes(cfg.JWT.SigningKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (c *Config) passwordConfig() password.Config {
	return password.Config{
		Salt:          c.Password.Salt,
		Key:           c.Password.Key,
		Passes:        c.Password.Passes,
		Lanes:         c.Password.Lanes,
		MemoryKiB:     c.Password.MemoryKiB,
		Length:        c.Password.Length,
		Variant:       c.Password.Variant,
		MaxConcurrent: c.Password.MaxConcurrent,
	}
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first configuration error. Any error here is fatal:
// the engine refuses to build.
func (c *Config) Validate() error {
	// JWT
	if len(c.JWT.SigningKey) == 0 {
		return errors.New("JWT SigningKey is required")
	}
	if len(c.JWT.SigningKey) < 32 {
		return errors.New("JWT SigningKey must be >= 32 bytes")
	}
	if c.JWT.TTL < 0 {
		return errors.New("JWT TTL must be >= 0")
	}

	// Password
	if c.Password.Salt == "" {
		return errors.New("Password Salt is required")
	}
	if c.Password.Key == "" {
		return errors.New("Password Key is required")
	}
	if c.Password.Passes == 0 || c.Password.Lanes == 0 || c.Password.MemoryKiB == 0 || c.Password.Length == 0 {
		return errors.New("Password cost parameters must be > 0")
	}
	if c.Password.MaxConcurrent < 0 {
		return errors.New("Password MaxConcurrent must be >= 0")
	}

	// Session
	if strings.TrimSpace(c.Session.HeaderName) == "" {
		return errors.New("Session HeaderName is required")
	}
	if c.Session.CookieName == "" {
		return errors.New("Session CookieName is required")
	}
	if c.Session.CookiePath == "" {
		return errors.New("Session CookiePath is required")
	}

	// Security
	if c.Security.EnableLoginThrottle {
		if c.Security.MaxLoginAttempts <= 0 {
			return errors.New("MaxLoginAttempts must be > 0")
		}
		if c.Security.LoginCooldownDuration <= 0 {
			return errors.New("LoginCooldownDuration must be > 0")
		}
	}
	if c.Security.EnableIPThrottle && !c.Security.EnableLoginThrottle {
		return errors.New("EnableIPThrottle requires EnableLoginThrottle")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	if c.Security.ProductionMode {
		if len(c.JWT.SigningKey) < 64 {
			return errors.New("ProductionMode requires a JWT SigningKey of >= 64 bytes")
		}
		if c.JWT.TTL == 0 {
			return errors.New("ProductionMode requires JWT TTL > 0")
		}
		if c.Password.MemoryKiB < 64*1024 {
			return errors.New("ProductionMode requires Password MemoryKiB >= 65536")
		}
		if !c.Security.RequireSecureCookies {
			return errors.New("ProductionMode requires RequireSecureCookies")
		}
		if !c.Security.EnableLoginThrottle {
			return errors.New("ProductionMode requires EnableLoginThrottle")
		}
	}

	return nil
}

/*
====================================
LINT
====================================
*/

// ConfigWarning is a non-fatal configuration finding.
type ConfigWarning struct {
	Code    string
	Message string
}

func (w ConfigWarning) String() string {
	return fmt.Sprintf("%s: %s", w.Code, w.Message)
}

// ConfigWarnings is the result of Lint.
type ConfigWarnings []ConfigWarning

// Codes returns the warning codes in order.
func (ws ConfigWarnings) Codes() []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Code
	}
	return out
}

// Lint reports settings that are valid but risky. It never fails.
func (c *Config) Lint() ConfigWarnings {
	var ws ConfigWarnings
	add := func(code, msg string) {
		ws = append(ws, ConfigWarning{Code: code, Message: msg})
	}

	if !c.Security.ProductionMode {
		add("production_mode_off", "ProductionMode is disabled")
	}
	if !c.Security.EnableLoginThrottle {
		add("login_throttle_disabled", "failed logins are not rate limited")
	}
	if c.JWT.TTL > 7*24*time.Hour {
		add("ttl_long", "tokens cannot be revoked and live longer than a week")
	}
	if c.JWT.TTL == 0 {
		add("ttl_zero", "every issued token is already expired")
	}
	if !c.Security.RequireSecureCookies {
		add("insecure_cookies", "session cookie is sent over plain HTTP")
	}
	if c.Password.MemoryKiB < 64*1024 {
		add("kdf_memory_low", "Password MemoryKiB is below 64 MiB")
	}
	if c.Session.Scheme == "" {
		add("scheme_empty", "credential header is used without a scheme prefix")
	}
	if c.Security.SameSitePolicy == http.SameSiteNoneMode && !c.Security.RequireSecureCookies {
		add("samesite_none_insecure", "SameSite=None cookies are rejected by browsers without Secure")
	}

	return ws
}
