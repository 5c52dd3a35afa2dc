package password

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Salt = "cashflow-test-salt"
	cfg.Key = "cashflow-test-key"
	cfg.Passes = 1
	cfg.MemoryKiB = 64
	return cfg
}

func newTestHasher(t *testing.T) *Argon2 {
	t.Helper()
	hasher, err := NewArgon2(testConfig())
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	return hasher
}

func TestHashIsDeterministicHex(t *testing.T) {
	hasher := newTestHasher(t)

	first := hasher.Hash("correct horse battery staple")
	second := hasher.Hash("correct horse battery staple")
	if first != second {
		t.Fatalf("expected deterministic digest, got %q and %q", first, second)
	}
	if len(first) != 128 {
		t.Fatalf("expected 128 hex chars, got %d", len(first))
	}
	if strings.ToLower(first) != first {
		t.Fatalf("expected lowercase hex, got %q", first)
	}
}

func TestHashDistinctPlaintexts(t *testing.T) {
	hasher := newTestHasher(t)
	corpus := []string{"", "a", "b", "password", "Password", "password ", "pässwörd", strings.Repeat("x", 1024)}

	seen := make(map[string]string, len(corpus))
	for _, p := range corpus {
		d := hasher.Hash(p)
		if prev, ok := seen[d]; ok {
			t.Fatalf("digest collision between %q and %q", prev, p)
		}
		seen[d] = p
	}
}

func TestHashDependsOnSaltKeyAndVariant(t *testing.T) {
	base := newTestHasher(t).Hash("secret")

	mutations := map[string]func(*Config){
		"salt":    func(c *Config) { c.Salt = "another-salt-value" },
		"key":     func(c *Config) { c.Key = "another-key" },
		"variant": func(c *Config) { c.Variant = VariantArgon2id },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			mutate(&cfg)
			hasher, err := NewArgon2(cfg)
			if err != nil {
				t.Fatalf("NewArgon2 error: %v", err)
			}
			if hasher.Hash("secret") == base {
				t.Fatalf("expected %s to change the digest", name)
			}
		})
	}
}

func TestCheckHash(t *testing.T) {
	hasher := newTestHasher(t)
	a := hasher.Hash("alpha")
	b := hasher.Hash("bravo")

	if !hasher.CheckHash(a, a) {
		t.Fatal("expected digest to match itself")
	}
	if !hasher.CheckHash(hasher.Hash("alpha"), a) {
		t.Fatal("expected equal digests to match")
	}
	if hasher.CheckHash(a, b) {
		t.Fatal("expected different digests to mismatch")
	}
	if hasher.CheckHash(a[:len(a)-1], a) {
		t.Fatal("expected truncated candidate to mismatch")
	}
	if hasher.CheckHash(a, a[:10]) {
		t.Fatal("expected truncated reference to mismatch")
	}
	if hasher.CheckHash(a+"00", a) {
		t.Fatal("expected overlong candidate to mismatch")
	}
	if hasher.CheckHash("", "") {
		t.Fatal("expected empty inputs to mismatch")
	}
}

func TestCompareDigestsScansFullLength(t *testing.T) {
	const n = 128
	ref := []byte(strings.Repeat("a", n))

	for pos := 0; pos < n; pos++ {
		cand := append([]byte(nil), ref...)
		cand[pos] = 'b'
		ok, scanned := compareDigests(cand, ref, n)
		if ok {
			t.Fatalf("difference at %d reported as match", pos)
		}
		if scanned != n {
			t.Fatalf("difference at %d scanned %d positions, want %d", pos, scanned, n)
		}
	}

	for _, cut := range []int{0, 1, 64, n - 1} {
		ok, scanned := compareDigests(ref[:cut], ref, n)
		if ok || scanned != n {
			t.Fatalf("truncated to %d: ok=%v scanned=%d", cut, ok, scanned)
		}
	}

	// A short input padded with zero bytes must still not match.
	zeros := make([]byte, n)
	if ok, _ := compareDigests(nil, zeros, n); ok {
		t.Fatal("expected missing positions to count as mismatch")
	}
}

func TestVerify(t *testing.T) {
	hasher := newTestHasher(t)
	digest := hasher.Hash("correct-password")

	if !hasher.Verify("correct-password", digest) {
		t.Fatal("expected password verification to succeed")
	}
	if hasher.Verify("wrong-password", digest) {
		t.Fatal("expected wrong password verification to fail")
	}
}

func TestHashContextMatchesHash(t *testing.T) {
	hasher := newTestHasher(t)

	got, err := hasher.HashContext(context.Background(), "secret")
	if err != nil {
		t.Fatalf("HashContext error: %v", err)
	}
	if got != hasher.Hash("secret") {
		t.Fatal("expected HashContext to produce the Hash digest")
	}
}

func TestHashContextHonorsCancellation(t *testing.T) {
	cfg := testConfig()
	cfg.MaxConcurrent = 1
	hasher, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}

	// Hold the only slot.
	if err := hasher.gate.Acquire(context.Background(), 1); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer hasher.gate.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := hasher.HashContext(ctx, "secret"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestNewArgon2RejectsInvalidConfig(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing salt", func(c *Config) { c.Salt = "" }},
		{"short salt", func(c *Config) { c.Salt = "short" }},
		{"missing key", func(c *Config) { c.Key = "" }},
		{"zero passes", func(c *Config) { c.Passes = 0 }},
		{"zero lanes", func(c *Config) { c.Lanes = 0 }},
		{"memory below lanes", func(c *Config) { c.MemoryKiB = 8 }},
		{"short length", func(c *Config) { c.Length = 8 }},
		{"unknown variant", func(c *Config) { c.Variant = "scrypt" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(&cfg)
			if _, err := NewArgon2(cfg); err == nil {
				t.Fatal("expected config error")
			}
		})
	}
}

func TestNewArgon2DefaultsVariant(t *testing.T) {
	cfg := testConfig()
	cfg.Variant = ""
	hasher, err := NewArgon2(cfg)
	if err != nil {
		t.Fatalf("NewArgon2 error: %v", err)
	}
	if hasher.Hash("x") != newTestHasher(t).Hash("x") {
		t.Fatal("expected empty variant to behave as argon2i")
	}
}
