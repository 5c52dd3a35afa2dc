package main

import (
	"context"
	"strings"
	"sync"

	"github.com/samber/oops"

	"github.com/cooperrunyan/cashflow"
)

// memStore keeps credentials in process memory, keyed by normalized email.
// It stands in for the real user database in the demo server.
type memStore struct {
	mu      sync.RWMutex
	byEmail map[string]cashflow.Credential
}

func newMemStore() *memStore {
	return &memStore{byEmail: make(map[string]cashflow.Credential)}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *memStore) CredentialByEmail(_ context.Context, email string) (cashflow.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.byEmail[normalizeEmail(email)]
	if !ok {
		return cashflow.Credential{}, oops.In("store").Code("credential_not_found").Wrap(cashflow.ErrCredentialNotFound)
	}
	return cred, nil
}

func (s *memStore) CreateCredential(_ context.Context, cred cashflow.Credential) error {
	key := normalizeEmail(cred.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[key]; ok {
		return oops.In("store").Code("credential_exists").Wrap(cashflow.ErrCredentialExists)
	}
	s.byEmail[key] = cred
	return nil
}

func (s *memStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byEmail)
}
