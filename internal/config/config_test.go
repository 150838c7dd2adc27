package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var boundEnv = []string{
	"INVOICE_API_URL", "INVOICE_OUTPUT_DIR", "INVOICE_ARCHIVE_ENABLED", "AWS_S3_BUCKET", "AWS_REGION",
	"AWS_S3_ENDPOINT", "DATABASE_DRIVER", "DATABASE_DSN", "DATABASE_PATH", "EMAIL_FROM", "EMAIL_FROM_NAME",
	"LARK_APP_ID", "LARK_APP_SECRET", "LARK_RECEIVE_ID", "SLACK_BOT_TOKEN", "SLACK_CHANNEL", "LOG_LEVEL", "PORT",
}

// clearEnv blanks every bound variable; viper ignores empty values
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range boundEnv {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/api/invoices", cfg.Store.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Store.Timeout)
	assert.Equal(t, "invoices", cfg.Output.Dir)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.False(t, cfg.Archive.Enabled)
	assert.Equal(t, "chat_id", cfg.Notify.Lark.ReceiveIDType)
	assert.Equal(t, "console", cfg.Logger.Format)
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
store:
  base_url: https://store.example.com/api/invoices
  timeout: 5s
output:
  dir: /tmp/out
notify:
  slack:
    enabled: true
    channel: C123
logger:
  level: debug
  format: json
`)
	t.Setenv("INVOICE_OUTPUT_DIR", "/srv/invoices")
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-env")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "https://store.example.com/api/invoices", cfg.Store.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Store.Timeout)
	assert.Equal(t, "/srv/invoices", cfg.Output.Dir)
	assert.True(t, cfg.Notify.Slack.Enabled)
	assert.Equal(t, "xoxb-env", cfg.Notify.Slack.BotToken)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoad_EnvBaseURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("INVOICE_API_URL", "http://10.0.0.5:9000/api/invoices")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:9000/api/invoices", cfg.Store.BaseURL)
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	base, err := Load("")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad scheme", func(c *Config) { c.Store.BaseURL = "ftp://store/api" }},
		{"no host", func(c *Config) { c.Store.BaseURL = "http:///api" }},
		{"empty output", func(c *Config) { c.Output.Dir = "" }},
		{"archive without bucket", func(c *Config) { c.Archive.Enabled = true }},
		{"port", func(c *Config) { c.Server.Port = 70000 }},
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = "postgres" }},
		{"lark without credentials", func(c *Config) { c.Notify.Lark.Enabled = true }},
		{"slack without token", func(c *Config) { c.Notify.Slack.Enabled = true }},
		{"log format", func(c *Config) { c.Logger.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := *base
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, base.Validate())
}
