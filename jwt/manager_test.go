package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testKey = []byte("0123456789abcdef0123456789abcdef0123456789abcdef")

func newTestManager(t *testing.T, ttl time.Duration, now func() time.Time) *Manager {
	t.Helper()
	m, err := NewManager(Config{SigningKey: testKey, TTL: ttl, Now: now})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func TestIssueValidateRoundTrip(t *testing.T) {
	m := newTestManager(t, time.Hour, nil)

	token, err := m.Issue("user-1", "user@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("expected compact three-part token, got %q", token)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "user-1" || claims.Email != "user@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.ID == "" {
		t.Fatal("expected token id to be set")
	}
	if m.IsExpired(claims) {
		t.Fatal("expected fresh token to be unexpired")
	}
}

func TestIssueUsesHS512(t *testing.T) {
	m := newTestManager(t, time.Hour, nil)
	token, err := m.Issue("u", "e")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	parsed, _, err := gjwt.NewParser().ParseUnverified(token, &Claims{})
	if err != nil {
		t.Fatalf("parse unverified: %v", err)
	}
	if parsed.Method.Alg() != "HS512" {
		t.Fatalf("expected HS512, got %s", parsed.Method.Alg())
	}
}

func TestZeroTTLIsExpired(t *testing.T) {
	m := newTestManager(t, 0, nil)
	token, err := m.Issue("user-1", "user@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("expected expired token to still validate: %v", err)
	}
	if !m.IsExpired(claims) {
		t.Fatal("expected zero TTL token to be expired")
	}
}

func TestIsExpiredAfterClockAdvance(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	m := newTestManager(t, time.Hour, func() time.Time { return now })

	token, err := m.Issue("user-1", "user@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	now = now.Add(59 * time.Minute)
	if m.IsExpired(claims) {
		t.Fatal("expected token to be live before TTL")
	}
	now = now.Add(time.Minute)
	if !m.IsExpired(claims) {
		t.Fatal("expected token to expire exactly at TTL")
	}
}

func TestIsExpiredWithoutExpiry(t *testing.T) {
	m := newTestManager(t, time.Hour, nil)
	if !m.IsExpired(nil) {
		t.Fatal("expected nil claims to be expired")
	}
	if !m.IsExpired(&Claims{UserID: "u"}) {
		t.Fatal("expected claims without exp to be expired")
	}
}

func TestValidateRejectsTampering(t *testing.T) {
	m := newTestManager(t, time.Hour, nil)
	token, err := m.Issue("user-1", "user@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	for i := 0; i < len(token); i++ {
		b := []byte(token)
		if b[i] == 'A' {
			b[i] = 'B'
		} else {
			b[i] = 'A'
		}
		if _, err := m.Validate(string(b)); !errors.Is(err, ErrMalformed) {
			t.Fatalf("tampered byte %d: expected ErrMalformed, got %v", i, err)
		}
	}
}

func TestValidateRejectsOtherAlgorithms(t *testing.T) {
	m := newTestManager(t, time.Hour, nil)
	claims := Claims{UserID: "u", Email: "e", RegisteredClaims: gjwt.RegisteredClaims{
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}

	hs256, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(testKey)
	if err != nil {
		t.Fatalf("sign hs256: %v", err)
	}
	none, err := gjwt.NewWithClaims(gjwt.SigningMethodNone, claims).SignedString(gjwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}

	for name, token := range map[string]string{"HS256": hs256, "none": none} {
		if _, err := m.Validate(token); !errors.Is(err, ErrMalformed) {
			t.Fatalf("%s: expected ErrMalformed, got %v", name, err)
		}
	}
}

func TestValidateRejectsWrongKeyAndGarbage(t *testing.T) {
	m := newTestManager(t, time.Hour, nil)
	other, err := NewManager(Config{SigningKey: []byte(strings.Repeat("z", 64)), TTL: time.Hour})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	foreign, err := other.Issue("u", "e")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	for _, token := range []string{foreign, "", "garbage", "a.b.c", "a.b"} {
		if _, err := m.Validate(token); !errors.Is(err, ErrMalformed) {
			t.Fatalf("%q: expected ErrMalformed, got %v", token, err)
		}
	}
}

func TestValidateIssuer(t *testing.T) {
	issuing, err := NewManager(Config{SigningKey: testKey, TTL: time.Hour, Issuer: "cashflow"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	other, err := NewManager(Config{SigningKey: testKey, TTL: time.Hour, Issuer: "elsewhere"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	good, _ := issuing.Issue("u", "e")
	if _, err := issuing.Validate(good); err != nil {
		t.Fatalf("expected matching issuer to validate: %v", err)
	}
	bad, _ := other.Issue("u", "e")
	if _, err := issuing.Validate(bad); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected issuer mismatch to be malformed, got %v", err)
	}
}

func TestIssueAllowsEmptySubject(t *testing.T) {
	m := newTestManager(t, time.Hour, nil)
	token, err := m.Issue("", "user@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != "" {
		t.Fatalf("expected empty subject, got %q", claims.UserID)
	}
}

func TestNewManagerRejectsInvalidConfig(t *testing.T) {
	cases := map[string]Config{
		"missing key":  {TTL: time.Hour},
		"short key":    {SigningKey: []byte("short"), TTL: time.Hour},
		"negative ttl": {SigningKey: testKey, TTL: -time.Second},
	}
	for name, cfg := range cases {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
