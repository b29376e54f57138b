// Package config loads sqlsafety settings from flags, the environment, a
// .env file and an optional sqlsafety.yaml, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/wemcdonald/sqlsafety/pkg/dryrun"
	"github.com/wemcdonald/sqlsafety/pkg/report"
	"github.com/wemcdonald/sqlsafety/pkg/rollback"
)

const (
	// EnvPrefix prefixes every sqlsafety environment variable
	EnvPrefix = "SQLSAFETY"
	// FileName is the config file name searched for, without extension
	FileName = "sqlsafety"
)

// ErrConfigValidation is returned when configuration validation fails
var ErrConfigValidation = errors.New("configuration validation failed")

// Config is the full sqlsafety configuration
type Config struct {
	LLM    LLMConfig    `mapstructure:"llm"`
	Keys   APIKeys      `mapstructure:"keys"`
	Server ServerConfig `mapstructure:"server"`
	DryRun DryRunConfig `mapstructure:"dryrun"`
}

// LLMConfig selects the rollback generator
type LLMConfig struct {
	Provider    string        `mapstructure:"provider"`
	Model       string        `mapstructure:"model"`
	BaseURL     string        `mapstructure:"base_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	Temperature float32       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
}

// APIKeys holds provider credentials. They are read from the provider's
// conventional environment variables.
type APIKeys struct {
	OpenAI           string `mapstructure:"openai"`
	Anthropic        string `mapstructure:"anthropic"`
	DeepSeek         string `mapstructure:"deepseek"`
	DeepSeekEndpoint string `mapstructure:"deepseek_endpoint"`
	DeepSeekModel    string `mapstructure:"deepseek_model"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// DryRunConfig configures simulation
type DryRunConfig struct {
	PreviewLimit int `mapstructure:"preview_limit"`
}

var keyEnv = map[string]string{
	"keys.openai":            "OPENAI_API_KEY",
	"keys.anthropic":         "ANTHROPIC_API_KEY",
	"keys.deepseek":          "DEEPSEEK_API_KEY",
	"keys.deepseek_endpoint": "DEEPSEEK_ENDPOINT",
	"keys.deepseek_model":    "DEEPSEEK_MODEL",
}

// SetDefaults registers every key with its default value
func SetDefaults(v *viper.Viper) {
	v.SetDefault("llm.provider", rollback.ProviderAuto)
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", report.DefaultRollbackTimeout)
	v.SetDefault("llm.temperature", rollback.DefaultTemperature)
	v.SetDefault("llm.max_tokens", rollback.DefaultMaxTokens)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("dryrun.preview_limit", dryrun.DefaultPreviewLimit)
	for key := range keyEnv {
		v.SetDefault(key, "")
	}
}

// LoadDotEnv loads .env files into the process environment. Variables that
// are already set win, and missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

// Load reads configuration into v and decodes it. With cfgFile empty,
// sqlsafety.yaml is looked up in the working directory and then next to
// the executable; not finding one is fine.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range keyEnv {
		if err := v.BindEnv(key, EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if ex, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Dir(ex))
		}
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the decoded values
func (c *Config) Validate() error {
	switch strings.ToLower(c.LLM.Provider) {
	case "", rollback.ProviderAuto, rollback.ProviderNone, rollback.ProviderOpenAI,
		rollback.ProviderDeepSeek, rollback.ProviderAnthropic:
	default:
		return fmt.Errorf("%w: unknown llm.provider %q", ErrConfigValidation, c.LLM.Provider)
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("%w: llm.timeout must be positive", ErrConfigValidation)
	}
	if c.DryRun.PreviewLimit <= 0 {
		return fmt.Errorf("%w: dryrun.preview_limit must be positive", ErrConfigValidation)
	}
	return nil
}

// ProviderConfig returns the settings for rollback.NewGenerator
func (c *Config) ProviderConfig() rollback.ProviderConfig {
	return rollback.ProviderConfig{
		Provider:         c.LLM.Provider,
		Model:            c.LLM.Model,
		BaseURL:          c.LLM.BaseURL,
		Temperature:      c.LLM.Temperature,
		MaxTokens:        c.LLM.MaxTokens,
		OpenAIKey:        c.Keys.OpenAI,
		AnthropicKey:     c.Keys.Anthropic,
		DeepSeekKey:      c.Keys.DeepSeek,
		DeepSeekEndpoint: c.Keys.DeepSeekEndpoint,
		DeepSeekModel:    c.Keys.DeepSeekModel,
	}
}
