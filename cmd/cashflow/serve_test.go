package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cooperrunyan/cashflow/internal/config"
)

func TestRunServeShutsDownOnCancel(t *testing.T) {
	settings, err := config.Load("", nil)
	require.NoError(t, err)
	settings.Server.Addr = "127.0.0.1:0"
	settings.Server.DevRedis = true
	settings.Log.Level = "error"
	settings.JWT.SigningKey = "0123456789abcdef0123456789abcdef"
	settings.Password.Salt = "serve-salt-value"
	settings.Password.Key = "serve-key"
	settings.Password.Passes = 1
	settings.Password.MemoryKiB = 64
	settings.Security.EnableLoginThrottle = true

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, runServe(ctx, settings))
}

func TestRunServeRejectsBadLogLevel(t *testing.T) {
	settings, err := config.Load("", nil)
	require.NoError(t, err)
	settings.Log.Level = "chatty"

	require.Error(t, runServe(context.Background(), settings))
}
