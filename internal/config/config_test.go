package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadYAMLWithEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9000"
redis:
  addr: "localhost:6379"
  ttl: "1h"
session:
  reading: "5s"
  code_attempts: 3
nats:
  subject_prefix: "events"
log:
  level: "debug"
`), 0o600))

	t.Setenv("PORT", "7000")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("CORS_ORIGINS", "http://a.test,http://b.test")
	t.Setenv("LOG_PRETTY", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "7000", cfg.Server.Port)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr)
	require.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	require.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
	require.Equal(t, 3, cfg.Session.CodeAttempts)
	require.Equal(t, "events", cfg.NATS.SubjectPrefix)
	require.Equal(t, "debug", cfg.Log.Level)
	require.True(t, cfg.Log.Pretty)
	require.Equal(t, 5*time.Second, DurationOr(cfg.Session.Reading, 10*time.Second))
}

func TestLoadMissingFileFallsBackToEnv(t *testing.T) {
	t.Setenv("REDIS_ADDR", "redis:6379")
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, "redis:6379", cfg.Redis.Addr)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [unclosed"), 0o600))
	_, err := Load(path)
	require.Error(t, err)
}

func TestDurationOr(t *testing.T) {
	require.Equal(t, 10*time.Minute, DurationOr("", 10*time.Minute))
	require.Equal(t, 10*time.Minute, DurationOr("soon", 10*time.Minute))
	require.Equal(t, 10*time.Minute, DurationOr("-1s", 10*time.Minute))
	require.Equal(t, time.Duration(0), DurationOr("0", 10*time.Minute))
	require.Equal(t, 90*time.Second, DurationOr("1m30s", time.Minute))
}
