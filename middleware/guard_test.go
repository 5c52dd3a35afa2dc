package middleware

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cooperrunyan/cashflow"
)

func newEngine(t *testing.T, configure ...func(*cashflow.Builder)) *cashflow.Engine {
	t.Helper()
	cfg := cashflow.DefaultConfig()
	cfg.JWT.SigningKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Password.Salt = "middleware-salt"
	cfg.Password.Key = "middleware-key"
	cfg.Password.Passes = 1
	cfg.Password.MemoryKiB = 64

	b := cashflow.New().WithConfig(cfg)
	for _, fn := range configure {
		fn(b)
	}
	engine, err := b.Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)
	return engine
}

func TestGuard(t *testing.T) {
	engine := newEngine(t)
	token, err := engine.Issue("user-1", "a@b.c")
	require.NoError(t, err)

	var reached bool
	var subject string
	handler := Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		claims, ok := cashflow.ClaimsFromContext(r.Context())
		if ok {
			subject = claims.UserID
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("admits valid token", func(t *testing.T) {
		reached, subject = false, ""
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.True(t, reached)
		assert.Equal(t, "user-1", subject)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("rejects missing header", func(t *testing.T) {
		reached = false
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

		assert.False(t, reached)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Empty(t, rec.Result().Cookies())
		assert.Contains(t, rec.Body.String(), `"NoCredential"`)
	})

	t.Run("rejects malformed token and clears cookie", func(t *testing.T) {
		reached = false
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.False(t, reached)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "jwt", cookies[0].Name)
		assert.Equal(t, -1, cookies[0].MaxAge)
	})
}

type brokenWriter struct {
	*httptest.ResponseRecorder
}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestGuardLogsRejectionWriteFailure(t *testing.T) {
	var logs bytes.Buffer
	engine := newEngine(t, func(b *cashflow.Builder) {
		b.WithLogger(slog.New(slog.NewJSONHandler(&logs, nil)))
	})

	handler := Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("rejected request reached handler")
	}))
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	w := brokenWriter{httptest.NewRecorder()}

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, logs.String(), "write guard rejection")
	assert.Contains(t, logs.String(), "MalformedCredential")
	assert.Contains(t, logs.String(), "connection reset")
}

func TestGuardNilEngine(t *testing.T) {
	rec := httptest.NewRecorder()
	Guard(nil)(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestClientIP(t *testing.T) {
	var seen string
	handler := ClientIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = cashflow.ClientIPFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "198.51.100.7:5555"
	handler.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, "198.51.100.7", seen)
}
