package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oracle-relay-keeper/internal/workflow"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: keeper\n"))
	require.NoError(t, err)

	assert.Equal(t, time.Hour, cfg.Scheduler.Interval)
	assert.Equal(t, 5*time.Second, cfg.CoinGecko.RequestTimeout)
	assert.Equal(t, "API_KEY", cfg.Relay.APIKeySecret)
	assert.Equal(t, map[string]string{
		workflow.ArgOracle:      workflow.DefaultOracle,
		workflow.ArgUserAddress: workflow.DefaultUserAddress,
		workflow.ArgCurrency:    workflow.DefaultCurrency,
	}, cfg.Args())
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
oracle:
  address: "0x1111111111111111111111111111111111111111"
  currency: bitcoin
scheduler:
  cron: "*/15 * * * *"
secrets:
  API_KEY: abc
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "bitcoin", cfg.Args()[workflow.ArgCurrency])
	assert.Equal(t, "0x1111111111111111111111111111111111111111", cfg.Args()[workflow.ArgOracle])
	assert.Equal(t, "*/15 * * * *", cfg.Scheduler.Cron)
	assert.Equal(t, "abc", cfg.Secrets["api_key"])
}

func TestValidateRejectsBadAddress(t *testing.T) {
	_, err := Load(writeConfig(t, "oracle:\n  address: not-an-address\n"))
	assert.Error(t, err)
}

func TestValidateTelegramRequiresToken(t *testing.T) {
	_, err := Load(writeConfig(t, "alerting:\n  telegram:\n    enabled: true\n"))
	assert.Error(t, err)
}

func TestResolveMaxPoints(t *testing.T) {
	cfg := &Config{Export: ExportConfig{MaxDataPoints: 50}}
	assert.Equal(t, 50, cfg.ResolveMaxPoints(0))
	assert.Equal(t, 7, cfg.ResolveMaxPoints(7))
}

func TestValidateRejectsUnknownChannel(t *testing.T) {
	_, err := Load(writeConfig(t, "alerting:\n  channels: [log, pager]\n"))
	assert.Error(t, err)

	cfg, err := Load(writeConfig(t, "alerting:\n  channels: [log]\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"log"}, cfg.Alerting.Channels)
	assert.Equal(t, "stderr", cfg.Logging.Output)
}
