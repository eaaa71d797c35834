package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "https://api.openai.com/v1", cfg.OpenAI.BaseURL)
	require.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	require.Equal(t, DefaultSystemPrompt, cfg.Chat.SystemPrompt)
	require.Equal(t, 20, cfg.Chat.MaxHistoryMessages)
	require.Equal(t, time.Minute, cfg.RateLimit.Window)
	require.Equal(t, 10, cfg.RateLimit.MaxRequests)
	require.Equal(t, "info", cfg.Log.Level)
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := writeConfig(t, `
openai:
  api_key: "sk-from-file"
  model: "gpt-4o"
rate_limit:
  window: 30s
  max_requests: 5
chat:
  max_history_messages: 10
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "sk-from-file", cfg.OpenAI.APIKey)
	require.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	require.Equal(t, 30*time.Second, cfg.RateLimit.Window)
	require.Equal(t, 5, cfg.RateLimit.MaxRequests)
	require.Equal(t, 10, cfg.Chat.MaxHistoryMessages)
}

func TestLoadFallsBackToEnvCredential(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	path := writeConfig(t, "server:\n  port: 8080\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "sk-from-env", cfg.OpenAI.APIKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
