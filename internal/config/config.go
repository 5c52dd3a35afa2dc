// Package config loads the cashflow binary's settings with koanf.
//
// Sources are layered, later ones winning: built-in defaults, an optional
// YAML file, the legacy environment names (hash_key, hash_salt, jwt_key,
// jwt_exp), CASHFLOW_-prefixed environment variables, and finally any
// command-line flags the user set.
package config

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/cooperrunyan/cashflow"
)

const envPrefix = "CASHFLOW_"

// Settings is the full binary configuration.
type Settings struct {
	Server   ServerSettings   `koanf:"server"`
	Redis    RedisSettings    `koanf:"redis"`
	Log      LogSettings      `koanf:"log"`
	JWT      JWTSettings      `koanf:"jwt"`
	Password PasswordSettings `koanf:"password"`
	Session  SessionSettings  `koanf:"session"`
	Security SecuritySettings `koanf:"security"`
	Audit    AuditSettings    `koanf:"audit"`
	Metrics  MetricsSettings  `koanf:"metrics"`
}

type ServerSettings struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// DevRedis runs an in-process miniredis instead of dialing Redis.
	DevRedis bool `koanf:"dev_redis"`
}

type RedisSettings struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type LogSettings struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

type JWTSettings struct {
	SigningKey string        `koanf:"signing_key"`
	TTL        time.Duration `koanf:"ttl"`
	Issuer     string        `koanf:"issuer"`
}

type PasswordSettings struct {
	Salt          string `koanf:"salt"`
	Key           string `koanf:"key"`
	Passes        uint32 `koanf:"passes"`
	Lanes         uint8  `koanf:"lanes"`
	MemoryKiB     uint32 `koanf:"memory_kib"`
	Length        uint32 `koanf:"length"`
	Variant       string `koanf:"variant"`
	MaxConcurrent int    `koanf:"max_concurrent"`
}

type SessionSettings struct {
	HeaderName   string `koanf:"header_name"`
	Scheme       string `koanf:"scheme"`
	CookieName   string `koanf:"cookie_name"`
	CookiePath   string `koanf:"cookie_path"`
	CookieDomain string `koanf:"cookie_domain"`
}

type SecuritySettings struct {
	ProductionMode      bool          `koanf:"production_mode"`
	EnableLoginThrottle bool          `koanf:"login_throttle"`
	EnableIPThrottle    bool          `koanf:"ip_throttle"`
	MaxLoginAttempts    int           `koanf:"max_login_attempts"`
	LoginCooldown       time.Duration `koanf:"login_cooldown"`
	RedisPrefix         string        `koanf:"redis_prefix"`
	SecureCookies       bool          `koanf:"secure_cookies"`
	SameSite            string        `koanf:"same_site"`
}

type AuditSettings struct {
	Enabled         bool `koanf:"enabled"`
	BufferSize      int  `koanf:"buffer_size"`
	DropIfFull      bool `koanf:"drop_if_full"`
	GuardRejections bool `koanf:"guard_rejections"`
}

type MetricsSettings struct {
	Enabled           bool `koanf:"enabled"`
	LatencyHistograms bool `koanf:"latency_histograms"`
}

// legacyEnv maps the lowercase variable names of older deployments onto keys.
var legacyEnv = map[string]string{
	"hash_key":  "password.key",
	"hash_salt": "password.salt",
	"jwt_key":   "jwt.signing_key",
	"jwt_exp":   "jwt.ttl",
}

// flagKeys maps command-line flag names onto keys.
var flagKeys = map[string]string{
	"addr":       "server.addr",
	"dev-redis":  "server.dev_redis",
	"redis-addr": "redis.addr",
	"log-format": "log.format",
	"log-level":  "log.level",
}

func defaults() map[string]any {
	d := cashflow.DefaultConfig()
	return map[string]any{
		"server.addr":             ":8080",
		"server.shutdown_timeout": 10 * time.Second,
		"server.dev_redis":        false,
		"redis.addr":              "localhost:6379",
		"redis.db":                0,
		"log.format":              "json",
		"log.level":               "info",

		"jwt.ttl":    d.JWT.TTL,
		"jwt.issuer": "cashflow",

		"password.passes":         d.Password.Passes,
		"password.lanes":          d.Password.Lanes,
		"password.memory_kib":     d.Password.MemoryKiB,
		"password.length":         d.Password.Length,
		"password.variant":        d.Password.Variant,
		"password.max_concurrent": 0,

		"session.header_name": d.Session.HeaderName,
		"session.scheme":      d.Session.Scheme,
		"session.cookie_name": d.Session.CookieName,
		"session.cookie_path": d.Session.CookiePath,

		"security.max_login_attempts": d.Security.MaxLoginAttempts,
		"security.login_cooldown":     d.Security.LoginCooldownDuration,
		"security.redis_prefix":       d.Security.RedisPrefix,
		"security.same_site":          "lax",

		"audit.buffer_size":  d.Audit.BufferSize,
		"audit.drop_if_full": d.Audit.DropIfFull,

		"metrics.enabled": d.Metrics.Enabled,
	}
}

// Load reads settings from path (skipped when empty), the environment, and
// flags (skipped when nil).
func Load(path string, flags *pflag.FlagSet) (*Settings, error) {
	errb := oops.In("config")
	k := koanf.New(".")

	for key, val := range defaults() {
		if err := k.Set(key, val); err != nil {
			return nil, errb.Code("config_defaults").Wrapf(err, "set default %s", key)
		}
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, errb.Code("config_read").With("path", path).Wrapf(err, "read config file")
		}
	}

	if err := k.Load(env.ProviderWithValue("", ".", legacyEnvValue), nil); err != nil {
		return nil, errb.Code("config_env").Wrapf(err, "read legacy environment")
	}
	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, errb.Code("config_env").Wrapf(err, "read environment")
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey(flags)), nil); err != nil {
			return nil, errb.Code("config_flags").Wrapf(err, "read flags")
		}
	}

	var s Settings
	if err := k.UnmarshalWithConf("", &s, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, errb.Code("config_decode").Wrapf(err, "decode settings")
	}

	return &s, nil
}

// jwt_exp is a whole number of hours; it becomes a duration string so the
// prefixed jwt.ttl can still override it.
func legacyEnvValue(name, value string) (string, any) {
	key := legacyEnv[strings.ToLower(name)]
	if key == "jwt.ttl" {
		if hours, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return key, (time.Duration(hours) * time.Hour).String()
		}
	}
	return key, value
}

// CASHFLOW_SECURITY__MAX_LOGIN_ATTEMPTS -> security.max_login_attempts
func envKey(name string) string {
	name = strings.ToLower(strings.TrimPrefix(name, envPrefix))
	return strings.ReplaceAll(name, "__", ".")
}

func flagKey(flags *pflag.FlagSet) func(*pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		key, ok := flagKeys[f.Name]
		if !ok {
			return "", nil
		}
		return key, posflag.FlagVal(flags, f)
	}
}

// EngineConfig converts s into a cashflow.Config and validates it.
func (s *Settings) EngineConfig() (cashflow.Config, error) {
	errb := oops.In("config").Code("config_invalid")

	sameSite, err := parseSameSite(s.Security.SameSite)
	if err != nil {
		return cashflow.Config{}, errb.Wrap(err)
	}

	cfg := cashflow.Config{
		JWT: cashflow.JWTConfig{
			SigningKey: []byte(s.JWT.SigningKey),
			TTL:        s.JWT.TTL,
			Issuer:     s.JWT.Issuer,
		},
		Password: cashflow.PasswordConfig{
			Salt:          s.Password.Salt,
			Key:           s.Password.Key,
			Passes:        s.Password.Passes,
			Lanes:         s.Password.Lanes,
			MemoryKiB:     s.Password.MemoryKiB,
			Length:        s.Password.Length,
			Variant:       s.Password.Variant,
			MaxConcurrent: s.Password.MaxConcurrent,
		},
		Session: cashflow.SessionConfig{
			HeaderName:   s.Session.HeaderName,
			Scheme:       s.Session.Scheme,
			CookieName:   s.Session.CookieName,
			CookiePath:   s.Session.CookiePath,
			CookieDomain: s.Session.CookieDomain,
		},
		Security: cashflow.SecurityConfig{
			ProductionMode:        s.Security.ProductionMode,
			EnableLoginThrottle:   s.Security.EnableLoginThrottle,
			EnableIPThrottle:      s.Security.EnableIPThrottle,
			MaxLoginAttempts:      s.Security.MaxLoginAttempts,
			LoginCooldownDuration: s.Security.LoginCooldown,
			RedisPrefix:           s.Security.RedisPrefix,
			RequireSecureCookies:  s.Security.SecureCookies,
			SameSitePolicy:        sameSite,
		},
		Audit: cashflow.AuditConfig{
			Enabled:         s.Audit.Enabled,
			BufferSize:      s.Audit.BufferSize,
			DropIfFull:      s.Audit.DropIfFull,
			GuardRejections: s.Audit.GuardRejections,
		},
		Metrics: cashflow.MetricsConfig{
			Enabled:                 s.Metrics.Enabled,
			EnableLatencyHistograms: s.Metrics.LatencyHistograms,
		},
	}

	if err := cfg.Validate(); err != nil {
		return cashflow.Config{}, errb.Wrap(err)
	}
	return cfg, nil
}

func parseSameSite(v string) (http.SameSite, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "lax":
		return http.SameSiteLaxMode, nil
	case "strict":
		return http.SameSiteStrictMode, nil
	case "none":
		return http.SameSiteNoneMode, nil
	case "default":
		return http.SameSiteDefaultMode, nil
	default:
		return 0, oops.With("same_site", v).Errorf("unknown SameSite policy %q", v)
	}
}
