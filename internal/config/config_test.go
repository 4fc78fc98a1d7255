package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"CONFIG_FILE", "ENVIRONMENT", "LOG_LEVEL",
	"PROVIDER_BASE_URL", "PROVIDER_TIMEOUT",
	"BREAKER_MAX_REQUESTS", "BREAKER_INTERVAL", "BREAKER_TIMEOUT",
	"BREAKER_FAILURE_THRESHOLD", "BREAKER_MIN_REQUESTS",
	"AUTOSAVE_WINDOW", "SEARCH_WINDOW", "HISTORY_CAPACITY", "EDITOR_COUNT",
	"SERVER_ADDRESS", "GRAPH_STORE", "TABLE_NAME", "AWS_REGION",
	"CORS_ALLOWED_ORIGINS", "EVENT_BUS_NAME",
	"ENABLE_TRACING", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SERVICE_NAME",
	"ENABLE_METRICS", "METRICS_NAMESPACE",
}

// clearEnv blanks every variable the loader reads; getEnv treats "" as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, "http://localhost:8080/", cfg.Provider.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, time.Second, cfg.Editor.AutosaveWindow)
	assert.Equal(t, 300*time.Millisecond, cfg.Editor.SearchWindow)
	assert.Equal(t, 100, cfg.Editor.HistoryCapacity)
	assert.Equal(t, 2, cfg.Editor.EditorCount)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "memory", cfg.Server.Store)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Empty(t, cfg.File)
}

func TestLoadConfig_Environment(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("AUTOSAVE_WINDOW", "250")
	t.Setenv("SEARCH_WINDOW", "2s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("BREAKER_FAILURE_THRESHOLD", "0.75")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 250*time.Millisecond, cfg.Editor.AutosaveWindow)
	assert.Equal(t, 2*time.Second, cfg.Editor.SearchWindow)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 0.75, cfg.Provider.Breaker.FailureThreshold)
}

func TestLoadFile_YAMLOverlay(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), `
logging:
  level: warn
provider:
  base_url: http://graph.internal:9000/
editor:
  autosave_window: 500ms
  history_capacity: 20
server:
  store: dynamodb
  table_name: graph-prod
`)

	t.Run("overlay replaces defaults", func(t *testing.T) {
		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, path, cfg.File)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.Equal(t, "http://graph.internal:9000/", cfg.Provider.BaseURL)
		assert.Equal(t, 500*time.Millisecond, cfg.Editor.AutosaveWindow)
		assert.Equal(t, 20, cfg.Editor.HistoryCapacity)
		assert.Equal(t, 300*time.Millisecond, cfg.Editor.SearchWindow, "untouched keys keep defaults")
		assert.Equal(t, "dynamodb", cfg.Server.Store)
		assert.Equal(t, "graph-prod", cfg.Server.TableName)
	})

	t.Run("environment beats overlay", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "error")
		cfg, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "error", cfg.Logging.Level)
	})

	t.Run("CONFIG_FILE selects the overlay", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", path)
		cfg, err := LoadConfig()
		require.NoError(t, err)
		assert.Equal(t, 20, cfg.Editor.HistoryCapacity)
	})
}

func TestLoadFile_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "bad level", body: "logging:\n  level: loud\n", wantErr: "logging.level must be one of"},
		{name: "bad store", body: "server:\n  store: sqlite\n", wantErr: "server.store must be one of"},
		{name: "zero autosave", body: "editor:\n  autosave_window: 0s\n", wantErr: "editor.autosavewindow must be greater than 0"},
		{name: "bad url", body: "provider:\n  base_url: not a url\n", wantErr: "provider.baseurl must be a valid URL"},
		{name: "tracing without endpoint", body: "tracing:\n  enabled: true\n", wantErr: "tracing.endpoint is required"},
		{name: "broken yaml", body: "editor: [", wantErr: "failed to parse config YAML"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			path := writeFile(t, t.TempDir(), tt.body)
			_, err := LoadFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, "editor:\n  autosave_window: 1s\n")

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	defer w.Stop()

	var mu sync.Mutex
	var seen *Config
	w.OnChange(func(c *Config) {
		mu.Lock()
		seen = c
		mu.Unlock()
	})
	w.Start()

	assert.Equal(t, time.Second, w.Current().Editor.AutosaveWindow)

	require.NoError(t, os.WriteFile(path, []byte("editor:\n  autosave_window: 2s\n"), 0o644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen != nil && seen.Editor.AutosaveWindow == 2*time.Second
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, 2*time.Second, w.Current().Editor.AutosaveWindow)
}

func TestWatcher_KeepsCurrentOnInvalidReload(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, t.TempDir(), "editor:\n  history_capacity: 10\n")

	w, err := NewWatcher(path, nil)
	require.NoError(t, err)
	defer w.Stop()
	w.Start()

	require.NoError(t, os.WriteFile(path, []byte("editor:\n  history_capacity: 0\n"), 0o644))
	time.Sleep(300 * time.Millisecond)

	assert.Equal(t, 10, w.Current().Editor.HistoryCapacity)
}
