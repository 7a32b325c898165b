package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const validYAML = `
listen: ":8081"
namespace: "collateral"
ttl: 2m
ledger:
  base_url: "http://ledger.internal:9000"
writers:
  - lending-core
directory:
  lending-core: writer-1
access:
  elevated:
    - admin-1
  operators:
    - ops-1
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "poscached.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadValid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, ":8081", cfg.Listen)
	assert.Equal(t, "collateral", cfg.Namespace)
	assert.Equal(t, 2*time.Minute, cfg.TTL)
	assert.Equal(t, "http://ledger.internal:9000", cfg.Ledger.BaseURL)
	assert.Equal(t, []string{"lending-core"}, cfg.Writers)
	assert.Equal(t, "writer-1", cfg.Directory["lending-core"])
	assert.Equal(t, []string{"admin-1"}, cfg.Access.Elevated)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
ledger:
  base_url: "http://ledger.internal:9000"
writers: [lending-core]
directory: {lending-core: writer-1}
`), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, ":9090", cfg.MetricsListen)
	assert.Equal(t, "positions", cfg.Namespace)
	assert.Equal(t, 5*time.Minute, cfg.TTL)
	assert.Equal(t, time.Duration(0), cfg.Retention) // keep-forever default
	assert.Equal(t, 500, cfg.MaxBatch)
	assert.Equal(t, 30*time.Second, cfg.WriterTTL)
	assert.Equal(t, 5*time.Second, cfg.Ledger.Timeout)
	assert.Equal(t, "poscache:degradations", cfg.Redis.Stream)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("POSCACHED_LISTEN", ":7070")
	t.Setenv("POSCACHED_LEDGER_URL", "http://ledger-canary:9000")

	cfg, err := Load(writeConfig(t, validYAML), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Listen)
	assert.Equal(t, "http://ledger-canary:9000", cfg.Ledger.BaseURL)
	assert.Equal(t, "collateral", cfg.Namespace) // untouched by env
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), zap.NewNop())
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "listen: [unterminated"), zap.NewNop())
	assert.Error(t, err)
}

func TestValidateRejectsMissingLedger(t *testing.T) {
	_, err := Load(writeConfig(t, `
writers: [lending-core]
directory: {lending-core: writer-1}
`), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger.base_url")
}

func TestValidateRejectsNoWriters(t *testing.T) {
	_, err := Load(writeConfig(t, `
ledger: {base_url: "http://ledger:9000"}
`), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "writer")
}

func TestValidateRejectsUnresolvedWriter(t *testing.T) {
	_, err := Load(writeConfig(t, `
ledger: {base_url: "http://ledger:9000"}
writers: [lending-core, risk-engine]
directory: {lending-core: writer-1}
`), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "risk-engine")
}
