package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wemcdonald/sqlsafety/pkg/rollback"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, env := range keyEnv {
		t.Setenv(env, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearProviderEnv(t)

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, rollback.ProviderAuto, cfg.LLM.Provider)
	assert.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 10, cfg.DryRun.PreviewLimit)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, rollback.ProviderNone, cfg.ProviderConfig().Resolve())
}

func TestLoadFileAndEnv(t *testing.T) {
	clearProviderEnv(t)
	path := writeFile(t, "sqlsafety.yaml", `
llm:
  provider: openai
  model: gpt-4o-mini
  timeout: 5s
server:
  addr: ":9000"
dryrun:
  preview_limit: 3
`)
	t.Setenv("SQLSAFETY_SERVER_ADDR", ":9100")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 5*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 3, cfg.DryRun.PreviewLimit)
	assert.Equal(t, ":9100", cfg.Server.Addr, "env overrides the file")
	assert.Equal(t, "sk-test", cfg.Keys.OpenAI)

	pc := cfg.ProviderConfig()
	assert.Equal(t, rollback.ProviderOpenAI, pc.Resolve())
	assert.Equal(t, "sk-test", pc.OpenAIKey)
}

func TestProviderKeysFromEnv(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("DEEPSEEK_API_KEY", "ds")
	t.Setenv("DEEPSEEK_MODEL", "deepseek-reasoner")
	t.Setenv("ANTHROPIC_API_KEY", "an")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	pc := cfg.ProviderConfig()
	assert.Equal(t, rollback.ProviderDeepSeek, pc.Resolve())
	assert.Equal(t, "deepseek-reasoner", pc.DeepSeekModel)
	assert.Equal(t, "an", pc.AnthropicKey)
}

func TestLoadValidation(t *testing.T) {
	clearProviderEnv(t)
	tests := []struct {
		name    string
		content string
	}{
		{"unknown provider", "llm:\n  provider: cohere\n"},
		{"zero preview", "dryrun:\n  preview_limit: 0\n"},
		{"negative timeout", "llm:\n  timeout: -1s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(viper.New(), writeFile(t, "sqlsafety.yaml", tt.content))
			assert.ErrorIs(t, err, ErrConfigValidation)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	t.Setenv("SQLSAFETY_TEST_VALUE", "")
	os.Unsetenv("SQLSAFETY_TEST_VALUE")
	path := writeFile(t, ".env", "SQLSAFETY_TEST_VALUE=from-dotenv\n")

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "from-dotenv", os.Getenv("SQLSAFETY_TEST_VALUE"))

	t.Setenv("SQLSAFETY_TEST_VALUE", "already-set")
	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "already-set", os.Getenv("SQLSAFETY_TEST_VALUE"))
}
