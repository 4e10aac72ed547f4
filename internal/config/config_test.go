package config

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/izposoja/internal/circulation"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(nil, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "izposoja.sqlite3", cfg.DBPath)
	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, "Admin", cfg.AdminUser)
	assert.Equal(t, circulation.DefaultPolicy(), cfg.Policy)
	assert.Equal(t, 20.0, cfg.RateLimit)
	assert.Equal(t, 40, cfg.Burst)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenTTL)
}

func TestLoadEnvironmentAndFlags(t *testing.T) {
	t.Setenv("IZPOSOJA_DB", "/var/lib/izposoja.db")
	t.Setenv("LOAN_PERIOD_DAYS", "21")
	t.Setenv("ALLOW_OVERDUE_RENEWAL", "false")
	t.Setenv("MAX_RENEWALS", "5")

	cfg, err := Load([]string{"-max-renewals", "1", "-a", ":9000"}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/izposoja.db", cfg.DBPath)
	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, 21, cfg.Policy.LoanPeriodDays)
	assert.False(t, cfg.Policy.AllowOverdueRenewal)
	assert.Equal(t, 1, cfg.Policy.MaxRenewals, "flag should win over environment")
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("LOAN_PERIOD_DAYS", "two weeks")
	_, err := Load(nil, io.Discard)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOAN_PERIOD_DAYS")

	os.Unsetenv("LOAN_PERIOD_DAYS")
	_, err = Load([]string{"-loan-days", "0"}, io.Discard)
	assert.Error(t, err)

	_, err = Load([]string{"-rate", "5", "-burst", "0"}, io.Discard)
	assert.Error(t, err)

	_, err = Load([]string{"serve"}, io.Discard)
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := strings.Join([]string{
		"IZPOSOJA_ADMIN=Knjiznicar",
		"IZPOSOJA_ADDR=:7000",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// A real environment variable wins over the file.
	t.Setenv("IZPOSOJA_ADDR", ":6000")
	t.Setenv("IZPOSOJA_ADMIN", "")
	os.Unsetenv("IZPOSOJA_ADMIN")

	require.NoError(t, LoadDotEnv(path))
	cfg, err := Load(nil, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "Knjiznicar", cfg.AdminUser)
	assert.Equal(t, ":6000", cfg.Addr)

	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}
