package rollback

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/liushuangls/go-anthropic/v2"
)

// AnthropicGenerator asks the Anthropic Messages API for the rollback script.
type AnthropicGenerator struct {
	client    *anthropic.Client
	model     string
	maxTokens int
	logger    *slog.Logger
}

// NewAnthropicGenerator creates a generator for the Anthropic API. An empty
// baseURL uses the public endpoint.
func NewAnthropicGenerator(apiKey, baseURL, model string, maxTokens int, logger *slog.Logger) *AnthropicGenerator {
	var opts []anthropic.ClientOption
	if baseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(baseURL))
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("Initializing rollback generator", "provider", ProviderAnthropic, "model", model)
	return &AnthropicGenerator{
		client:    anthropic.NewClient(apiKey, opts...),
		model:     model,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// Generate implements Generator
func (g *AnthropicGenerator) Generate(ctx context.Context, req Request) (string, error) {
	g.logger.Debug("Generating rollback", "provider", ProviderAnthropic, "model", g.model, "type", req.Type)

	prompt := systemPrompt + "\n\n" + BuildPrompt(req)
	resp, err := g.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(g.model),
		MaxTokens: g.maxTokens,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &prompt},
			}},
		},
	})
	if err != nil {
		g.logger.Error("Rollback generation failed", "provider", ProviderAnthropic, "error", err)
		return "", g.wrapError(err)
	}

	text := extractTextFromResponse(resp)
	if text == "" {
		return "", &ProviderError{Provider: ProviderAnthropic, Message: "response contained no text", Err: ErrMalformedResponse}
	}
	return text, nil
}

func (g *AnthropicGenerator) wrapError(err error) error {
	status := 0
	var reqErr *anthropic.RequestError
	var apiErr *anthropic.APIError
	switch {
	case errors.As(err, &reqErr):
		status = reqErr.StatusCode
	case errors.As(err, &apiErr):
		switch apiErr.Type {
		case anthropic.ErrTypeAuthentication:
			status = http.StatusUnauthorized
		case anthropic.ErrTypeRateLimit:
			status = http.StatusTooManyRequests
		}
	}
	return &ProviderError{
		Provider:   ProviderAnthropic,
		StatusCode: status,
		Message:    statusMessage(ProviderAnthropic, status),
		Err:        err,
	}
}

func extractTextFromResponse(resp anthropic.MessagesResponse) string {
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			return *block.Text
		}
	}
	return ""
}
