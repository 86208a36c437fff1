package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DISTILL_CONFIG", "")
	t.Setenv("SURREALDB_URL", "")
	t.Setenv("DISTILL_EMBED_DIMENSION", "")
	t.Setenv("DISTILL_STALE_WINDOW", "")

	cfg := Load()

	assert.Equal(t, "ws://localhost:8000/rpc", cfg.SurrealDBURL)
	assert.Equal(t, ProviderNone, cfg.LLMProvider)
	assert.Equal(t, 1536, cfg.EmbedDimension)
	assert.Equal(t, time.Hour, cfg.StaleWindow)
	assert.Equal(t, 8000, cfg.GenerateMaxChars)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DISTILL_CONFIG", "")
	t.Setenv("DISTILL_EMBED_DIMENSION", "384")
	t.Setenv("DISTILL_STALE_WINDOW", "30m")
	t.Setenv("DISTILL_LLM_PROVIDER", "ollama")

	cfg := Load()

	assert.Equal(t, 384, cfg.EmbedDimension)
	assert.Equal(t, 30*time.Minute, cfg.StaleWindow)
	assert.Equal(t, ProviderOllama, cfg.LLMProvider)
}

func TestLoadConfigFileOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "distill.yaml")
	content := []byte(`
surrealdb:
  namespace: staging
embedding:
  provider: openai
  dimension: 768
stale_window: 2h
log_level: debug
`)
	require.NoError(t, os.WriteFile(path, content, 0644))

	t.Setenv("DISTILL_CONFIG", path)
	t.Setenv("SURREALDB_NAMESPACE", "")

	cfg := Load()

	assert.Equal(t, "staging", cfg.SurrealDBNamespace)
	assert.Equal(t, ProviderOpenAI, cfg.EmbedProvider)
	assert.Equal(t, 768, cfg.EmbedDimension)
	assert.Equal(t, 2*time.Hour, cfg.StaleWindow)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	// Fields absent from the file keep env/default values
	assert.Equal(t, "main", cfg.SurrealDBDatabase)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("WARNING"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("bogus"))
}

func TestSetupLoggerWithWriters(t *testing.T) {
	var stderr, file bytes.Buffer
	logger := SetupLoggerWithWriters(&stderr, &file, slog.LevelInfo)

	logger.Info("test message", "key", "value")

	assert.Contains(t, stderr.String(), "test message")
	assert.Contains(t, file.String(), `"msg":"test message"`)
}
