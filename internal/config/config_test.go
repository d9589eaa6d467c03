package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/certwizard/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "certwizard.yaml", `
endpoint: https://wizard.example/issue.php
timeout: 45s
lock_ttl: 2m
log_level: debug
markdown: false
redis:
  addr: localhost:6379
  db: 2
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "https://wizard.example/issue.php", cfg.Endpoint)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.Equal(t, 2*time.Minute, cfg.LockTTL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.False(t, cfg.Markdown)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, "certwizard:", cfg.Redis.Prefix, "defaults survive partial sections")
	assert.Equal(t, domain.DefaultExplorerURL, cfg.ExplorerURL)
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "certwizard.json", `{"endpoint":"http://a.test/x","explorer_url":"https://e.test/%s"}`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://e.test/%s", cfg.ExplorerURL)
	assert.Zero(t, cfg.Timeout)
}

func TestLoad_Overrides(t *testing.T) {
	path := writeFile(t, "certwizard.yaml", "endpoint: http://file.test/x\nredis:\n  addr: file:6379\n")

	cfg, err := Load(path, map[string]any{
		"endpoint":   "http://flag.test/x",
		"redis.addr": "flag:6379",
		"timeout":    "10s",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://flag.test/x", cfg.Endpoint)
	assert.Equal(t, "flag:6379", cfg.Redis.Addr)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
}

func TestLoad_MissingDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", map[string]any{"endpoint": "http://flag.test/x"})
	require.NoError(t, err)
	assert.Equal(t, Default().LockTTL, cfg.LockTTL)

	_, err = Load("", nil)
	assert.ErrorContains(t, err, "endpoint is required")
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.ErrorContains(t, err, "failed to read config")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"Unknown key", "endpoint: http://a.test\nendpiont: typo\n", "invalid config"},
		{"Bad duration", "endpoint: http://a.test\ntimeout: soon\n", "invalid config"},
		{"Negative timeout", "endpoint: http://a.test\ntimeout: -1s\n", "timeout must not be negative"},
		{"Explorer without placeholder", "endpoint: http://a.test\nexplorer_url: https://e.test/\n", "explorer_url"},
		{"Bad step", "endpoint: http://a.test\nsteps:\n  - name: x\n    selector: x\n    trigger: t\n    method: PUT\n    response: text\n", "invalid step table"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "certwizard.yaml", tt.content), nil)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoad_Steps(t *testing.T) {
	path := writeFile(t, "certwizard.yaml", `
endpoint: http://a.test/x
steps:
  - name: ping
    selector: ping
    method: GET
    trigger: load
    display: ping-output
    panel: ping-panel
    placeholder: Processing...
    response: ignored
    terminal: true
`)
	cfg, err := Load(path, nil)
	require.NoError(t, err)
	require.Len(t, cfg.Steps, 1)
	assert.Equal(t, domain.StepName("ping"), cfg.Steps[0].Name)
	assert.Equal(t, domain.MethodGet, cfg.Steps[0].Method)
	assert.True(t, cfg.Steps[0].Terminal)
}

func TestRead_SkipsValidation(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Read("", nil)
	require.NoError(t, err)
	assert.Empty(t, cfg.Endpoint)
	assert.Error(t, cfg.Validate())
}
