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
	t.Chdir(t.TempDir())

	cfg, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "./lossaudit.db", cfg.Database.Path)
	assert.Equal(t, "auto", cfg.Reasoning.Provider)
	assert.Equal(t, 20*time.Second, cfg.Reasoning.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Telemetry.OTLPEndpoint)
	assert.Equal(t, "lossaudit", cfg.Telemetry.ServiceName)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	yaml := []byte(`server:
  addr: ":9100"
  cors_origins: ["https://ops.example.com"]
reasoning:
  provider: " Azure "
  timeout: 5s
  azure_deployment: gpt-4o
auth:
  token_ttl: 2h
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "lossaudit.yaml"), yaml, 0o644))
	t.Setenv("LOSSAUDIT_DATABASE_PATH", "/var/lib/lossaudit/audit.db")
	t.Setenv("LOSSAUDIT_SERVER_ADDR", ":9200")

	cfg, err := Load(New())
	require.NoError(t, err)
	assert.Equal(t, ":9200", cfg.Server.Addr)
	assert.Equal(t, []string{"https://ops.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "/var/lib/lossaudit/audit.db", cfg.Database.Path)
	assert.Equal(t, "azure", cfg.Reasoning.Provider)
	assert.Equal(t, 5*time.Second, cfg.Reasoning.Timeout)
	assert.Equal(t, "gpt-4o", cfg.Reasoning.AzureDeployment)
	assert.Equal(t, 2*time.Hour, cfg.Auth.TokenTTL)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lossaudit.yaml"), []byte("server: [unterminated"), 0o644))

	_, err := Load(New())
	require.Error(t, err)
}

func TestSplitOrigins(t *testing.T) {
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, splitOrigins([]string{"https://a.example, https://b.example"}))
	assert.Equal(t, []string{"*"}, splitOrigins([]string{" ", ""}))
	assert.Equal(t, []string{"*"}, splitOrigins(nil))
}
