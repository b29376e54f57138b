package rollback

import (
	"fmt"
	"log/slog"
	"strings"
)

// Provider names accepted by NewGenerator
const (
	ProviderAuto      = "auto"
	ProviderNone      = "none"
	ProviderOpenAI    = "openai"
	ProviderDeepSeek  = "deepseek"
	ProviderAnthropic = "anthropic"
)

const (
	DefaultOpenAIModel      = "gpt-4o"
	DefaultAnthropicModel   = "claude-3-5-sonnet-20241022"
	DefaultDeepSeekModel    = "deepseek-chat"
	DefaultDeepSeekEndpoint = "https://api.deepseek.com/v1"
	DefaultTemperature      = 0.1
	DefaultMaxTokens        = 2048
)

// ProviderConfig selects and configures a hosted generator
type ProviderConfig struct {
	// Provider is one of auto, none, openai, deepseek or anthropic.
	Provider string
	// Model and BaseURL override the provider defaults when set.
	Model   string
	BaseURL string

	Temperature float32
	MaxTokens   int

	OpenAIKey        string
	AnthropicKey     string
	DeepSeekKey      string
	DeepSeekEndpoint string
	DeepSeekModel    string
}

// Resolve returns the provider that would be used. Auto picks the first
// provider with a key in the order deepseek, anthropic, openai.
func (c ProviderConfig) Resolve() string {
	provider := strings.ToLower(strings.TrimSpace(c.Provider))
	if provider != "" && provider != ProviderAuto {
		return provider
	}
	switch {
	case c.DeepSeekKey != "":
		return ProviderDeepSeek
	case c.AnthropicKey != "":
		return ProviderAnthropic
	case c.OpenAIKey != "":
		return ProviderOpenAI
	default:
		return ProviderNone
	}
}

// NewGenerator builds the generator selected by cfg. It returns
// ErrNotConfigured when no provider is selected or available.
func NewGenerator(cfg ProviderConfig, logger *slog.Logger) (Generator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = DefaultTemperature
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	switch provider := cfg.Resolve(); provider {
	case ProviderNone:
		return nil, ErrNotConfigured

	case ProviderOpenAI:
		if cfg.OpenAIKey == "" {
			return nil, missingKey(provider, "OPENAI_API_KEY")
		}
		return NewOpenAIGenerator(provider, cfg.OpenAIKey, cfg.BaseURL,
			firstNonEmpty(cfg.Model, DefaultOpenAIModel), temperature, maxTokens, logger), nil

	case ProviderDeepSeek:
		if cfg.DeepSeekKey == "" {
			return nil, missingKey(provider, "DEEPSEEK_API_KEY")
		}
		return NewOpenAIGenerator(provider, cfg.DeepSeekKey,
			firstNonEmpty(cfg.BaseURL, cfg.DeepSeekEndpoint, DefaultDeepSeekEndpoint),
			firstNonEmpty(cfg.Model, cfg.DeepSeekModel, DefaultDeepSeekModel),
			temperature, maxTokens, logger), nil

	case ProviderAnthropic:
		if cfg.AnthropicKey == "" {
			return nil, missingKey(provider, "ANTHROPIC_API_KEY")
		}
		return NewAnthropicGenerator(cfg.AnthropicKey, cfg.BaseURL,
			firstNonEmpty(cfg.Model, DefaultAnthropicModel), maxTokens, logger), nil

	default:
		return nil, fmt.Errorf("unknown rollback provider %q", provider)
	}
}

func missingKey(provider, env string) error {
	return fmt.Errorf("%w: provider %s selected but %s is not set", ErrNotConfigured, provider, env)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
