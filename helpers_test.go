package cashflow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.SigningKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.JWT.Issuer = "cashflow-test"
	cfg.Password.Salt = "test-salt-value"
	cfg.Password.Key = "test-hash-key"
	cfg.Password.Passes = 1
	cfg.Password.Lanes = 1
	cfg.Password.MemoryKiB = 64
	return cfg
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestEngine(t *testing.T, cfg Config, configure ...func(*Builder)) *Engine {
	t.Helper()
	b := New().WithConfig(cfg)
	for _, fn := range configure {
		fn(b)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func newTestRedis(t *testing.T) (redis.UniversalClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb, mr
}

// memStore is a CredentialStore and CredentialWriter keyed by email.
type memStore struct {
	mu    sync.RWMutex
	creds map[string]Credential
}

func newMemStore() *memStore {
	return &memStore{creds: make(map[string]Credential)}
}

func (s *memStore) CredentialByEmail(_ context.Context, email string) (Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.creds[email]
	if !ok {
		return Credential{}, ErrCredentialNotFound
	}
	return cred, nil
}

func (s *memStore) CreateCredential(_ context.Context, cred Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.creds[cred.Email]; ok {
		return ErrCredentialExists
	}
	s.creds[cred.Email] = cred
	return nil
}
