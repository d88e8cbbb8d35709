package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORAGE", "")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 30*24*time.Hour, cfg.NearFutureWindow)
	assert.Equal(t, 6, cfg.AuditWindowBack)
	assert.Equal(t, 6, cfg.AuditWindowForward)
	assert.Equal(t, 365, cfg.MaxStayNights)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
}

func TestLoadMongoNeedsURI(t *testing.T) {
	t.Setenv("STORAGE", "mongo")
	t.Setenv("MONGO_URI", "")
	_, err := Load()
	assert.ErrorContains(t, err, "MONGO_URI")
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("AUDIT_CONCURRENCY", "many")
	_, err := Load()
	assert.ErrorContains(t, err, "AUDIT_CONCURRENCY")

	t.Setenv("AUDIT_CONCURRENCY", "")
	t.Setenv("CALENDAR_FETCH_TIMEOUT", "soon")
	_, err = Load()
	assert.ErrorContains(t, err, "CALENDAR_FETCH_TIMEOUT")
}

func TestLoadDotEnvKeepsExplicitEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("AUDIT_WINDOW_BACK=2\nAUDIT_CRON=@hourly\n"), 0o600))
	t.Setenv("AUDIT_WINDOW_BACK", "3")
	t.Setenv("AUDIT_CRON", "")
	os.Unsetenv("AUDIT_CRON")

	LoadDotEnv(path)
	t.Cleanup(func() { os.Unsetenv("AUDIT_CRON") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.AuditWindowBack)
	assert.Equal(t, "@hourly", cfg.AuditCron)
}
