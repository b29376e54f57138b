package rollback

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sashabaranov/go-openai"
)

// OpenAIGenerator asks an OpenAI-compatible chat completion endpoint for the
// rollback script. DeepSeek is served through the same client with its own
// base URL.
type OpenAIGenerator struct {
	client      *openai.Client
	provider    string
	model       string
	temperature float32
	maxTokens   int
	logger      *slog.Logger
}

// NewOpenAIGenerator creates a generator for an OpenAI-compatible API. An
// empty baseURL uses the public OpenAI endpoint.
func NewOpenAIGenerator(provider, apiKey, baseURL, model string, temperature float32, maxTokens int, logger *slog.Logger) *OpenAIGenerator {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Initializing rollback generator", "provider", provider, "model", model)
	return &OpenAIGenerator{
		client:      openai.NewClientWithConfig(cfg),
		provider:    provider,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		logger:      logger,
	}
}

// Generate implements Generator
func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	g.logger.Debug("Generating rollback", "provider", g.provider, "model", g.model, "type", req.Type)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: BuildPrompt(req)},
		},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		g.logger.Error("Rollback generation failed", "provider", g.provider, "error", err)
		return "", g.wrapError(err)
	}

	if len(resp.Choices) == 0 {
		return "", &ProviderError{Provider: g.provider, Message: "response contained no choices", Err: ErrMalformedResponse}
	}
	g.logger.Debug("Received rollback", "provider", g.provider, "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}

func (g *OpenAIGenerator) wrapError(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	return &ProviderError{
		Provider:   g.provider,
		StatusCode: status,
		Message:    statusMessage(g.provider, status),
		Err:        err,
	}
}

// statusMessage turns the status codes users can act on into advice.
func statusMessage(provider string, status int) string {
	switch status {
	case http.StatusUnauthorized:
		return "invalid API key, check the key configured for " + provider
	case http.StatusTooManyRequests:
		return "API quota or rate limit exceeded, check the account's billing and limits"
	case 0:
		return "API request failed"
	default:
		return "API error " + http.StatusText(status)
	}
}
