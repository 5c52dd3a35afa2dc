package cashflow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cooperrunyan/cashflow/status"
)

func TestRegisterThenLogin(t *testing.T) {
	engine := newTestEngine(t, testConfig())
	store := newMemStore()
	ctx := context.Background()

	reg, err := engine.Register(ctx, "a@b.c", "hunter22", store)
	require.NoError(t, err)
	require.NotEmpty(t, reg.SubjectID)
	require.NotEmpty(t, reg.Token)

	stored, err := store.CredentialByEmail(ctx, "a@b.c")
	require.NoError(t, err)
	assert.Equal(t, engine.Hash("hunter22"), stored.Digest)
	assert.NotEqual(t, "hunter22", stored.Digest)

	res, err := engine.Login(ctx, "a@b.c", "hunter22", store)
	require.NoError(t, err)
	assert.Equal(t, reg.SubjectID, res.SubjectID)

	claims, resp := engine.AuthorizeHeader(ctx, "Bearer "+res.Token, true)
	require.Nil(t, resp)
	assert.Equal(t, reg.SubjectID, claims.UserID)
	assert.Equal(t, "a@b.c", claims.Email)

	snap := engine.MetricsSnapshot()
	assert.Equal(t, uint64(1), snap.Counters[MetricRegisterSuccess])
	assert.Equal(t, uint64(1), snap.Counters[MetricLoginSuccess])
	assert.Equal(t, uint64(2), snap.Counters[MetricTokenIssued])
}

func TestRegisterErrors(t *testing.T) {
	engine := newTestEngine(t, testConfig())
	store := newMemStore()
	ctx := context.Background()

	_, err := engine.Register(ctx, "", "pw", store)
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, status.BadInput, OutcomeFor(err))

	_, err = engine.Register(ctx, "a@b.c", "pw", store)
	require.NoError(t, err)

	_, err = engine.Register(ctx, "a@b.c", "other", store)
	assert.ErrorIs(t, err, ErrCredentialExists)
	assert.Equal(t, status.Conflict, OutcomeFor(err))
	assert.Equal(t, uint64(1), engine.MetricsSnapshot().Counters[MetricRegisterDuplicate])
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	engine := newTestEngine(t, testConfig())
	store := newMemStore()
	ctx := context.Background()

	_, err := engine.Register(ctx, "a@b.c", "right", store)
	require.NoError(t, err)

	_, errWrong := engine.Login(ctx, "a@b.c", "wrong", store)
	_, errUnknown := engine.Login(ctx, "nobody@b.c", "right", store)
	_, errEmpty := engine.Login(ctx, "a@b.c", "", store)

	for _, err := range []error{errWrong, errUnknown, errEmpty} {
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Equal(t, status.BadLoginCredentials, OutcomeFor(err))
	}
	assert.Equal(t, errWrong.Error(), errUnknown.Error())
	assert.Equal(t, uint64(3), engine.MetricsSnapshot().Counters[MetricLoginFailure])
}

func TestLoginUnknownEmailStillHashes(t *testing.T) {
	engine := newTestEngine(t, testConfig())

	before := engine.MetricsSnapshot().Counters[MetricHashComputed]
	_, err := engine.Login(context.Background(), "nobody@b.c", "pw", newMemStore())
	require.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, before+1, engine.MetricsSnapshot().Counters[MetricHashComputed])
}

type failingStore struct{ err error }

func (s failingStore) CredentialByEmail(context.Context, string) (Credential, error) {
	return Credential{}, s.err
}

func TestLoginStoreErrorPropagates(t *testing.T) {
	engine := newTestEngine(t, testConfig())
	boom := errors.New("db down")

	_, err := engine.Login(context.Background(), "a@b.c", "pw", failingStore{err: boom})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, status.InternalServerError, OutcomeFor(err))
}

func TestLoginNilStore(t *testing.T) {
	engine := newTestEngine(t, testConfig())
	_, err := engine.Login(context.Background(), "a@b.c", "pw", nil)
	assert.ErrorIs(t, err, ErrEngineNotReady)

	var zero *Engine
	_, err = zero.Login(context.Background(), "a@b.c", "pw", newMemStore())
	assert.ErrorIs(t, err, ErrEngineNotReady)
}

func TestLoginThrottle(t *testing.T) {
	rdb, mr := newTestRedis(t)
	cfg := testConfig()
	cfg.Security.EnableLoginThrottle = true
	cfg.Security.MaxLoginAttempts = 3
	cfg.Security.LoginCooldownDuration = time.Minute
	engine := newTestEngine(t, cfg, func(b *Builder) { b.WithRedis(rdb) })
	store := newMemStore()
	ctx := context.Background()

	_, err := engine.Register(ctx, "a@b.c", "right", store)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := engine.Login(ctx, "a@b.c", "wrong", store)
		require.ErrorIs(t, err, ErrInvalidCredentials, "attempt %d", i)
	}

	_, err = engine.Login(ctx, "a@b.c", "wrong", store)
	require.ErrorIs(t, err, ErrLoginRateLimited)
	assert.Equal(t, status.RateLimited, OutcomeFor(err))

	// The right password does not bypass an exhausted budget.
	_, err = engine.Login(ctx, "a@b.c", "right", store)
	require.ErrorIs(t, err, ErrLoginRateLimited)
	assert.Greater(t, engine.LoginRetryAfter(ctx, "a@b.c"), time.Duration(0))

	mr.FastForward(time.Minute + time.Second)

	_, err = engine.Login(ctx, "a@b.c", "right", store)
	require.NoError(t, err)
	assert.Zero(t, engine.LoginRetryAfter(ctx, "a@b.c"))
}

func TestLoginSuccessResetsBudget(t *testing.T) {
	rdb, _ := newTestRedis(t)
	cfg := testConfig()
	cfg.Security.EnableLoginThrottle = true
	cfg.Security.MaxLoginAttempts = 2
	engine := newTestEngine(t, cfg, func(b *Builder) { b.WithRedis(rdb) })
	store := newMemStore()
	ctx := context.Background()

	_, err := engine.Register(ctx, "a@b.c", "right", store)
	require.NoError(t, err)

	for round := 0; round < 3; round++ {
		for i := 0; i < 2; i++ {
			_, err := engine.Login(ctx, "a@b.c", "wrong", store)
			require.ErrorIs(t, err, ErrInvalidCredentials)
		}
		_, err := engine.Login(ctx, "a@b.c", "right", store)
		require.NoError(t, err, "round %d", round)
	}
}

func TestLoginRedisDown(t *testing.T) {
	rdb, mr := newTestRedis(t)
	cfg := testConfig()
	cfg.Security.EnableLoginThrottle = true
	engine := newTestEngine(t, cfg, func(b *Builder) { b.WithRedis(rdb) })

	mr.Close()

	_, err := engine.Login(context.Background(), "a@b.c", "pw", newMemStore())
	require.ErrorIs(t, err, ErrRedisUnavailable)
	assert.Equal(t, status.InternalServerError, OutcomeFor(err))
}

func TestLoginAudit(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = true
	cfg.Audit.BufferSize = 8
	sink := NewChannelSink(8)
	engine := newTestEngine(t, cfg, func(b *Builder) { b.WithAuditSink(sink) })
	store := newMemStore()
	ctx := WithClientIP(context.Background(), "192.0.2.1")

	reg, err := engine.Register(ctx, "a@b.c", "right", store)
	require.NoError(t, err)
	_, err = engine.Login(ctx, "a@b.c", "wrong", store)
	require.Error(t, err)

	engine.Close()

	var events []AuditEvent
	for len(sink.Events()) > 0 {
		events = append(events, <-sink.Events())
	}
	require.Len(t, events, 2)

	assert.Equal(t, "register_success", events[0].EventType)
	assert.Equal(t, reg.SubjectID, events[0].UserID)
	assert.True(t, events[0].Success)
	assert.Equal(t, "Ok", events[0].Outcome)

	assert.Equal(t, "login_failure", events[1].EventType)
	assert.False(t, events[1].Success)
	assert.Equal(t, "192.0.2.1", events[1].IP)
	assert.Equal(t, "invalid_credentials", events[1].Error)
	assert.Equal(t, "BadLoginCredentials", events[1].Outcome)
	assert.Equal(t, "password_mismatch", events[1].Metadata["reason"])
	assert.Zero(t, engine.AuditDropped())
}

func TestOutcomeFor(t *testing.T) {
	tests := []struct {
		err  error
		want status.Outcome
	}{
		{nil, status.Ok},
		{ErrInvalidCredentials, status.BadLoginCredentials},
		{ErrLoginRateLimited, status.RateLimited},
		{ErrCredentialExists, status.Conflict},
		{ErrInvalidInput, status.BadInput},
		{ErrCredentialNotFound, status.DataNotFound},
		{ErrMalformedToken, status.MalformedCredential},
		{ErrRedisUnavailable, status.InternalServerError},
		{errors.New("other"), status.InternalServerError},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, OutcomeFor(tc.err), "%v", tc.err)
	}
}
