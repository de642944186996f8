package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"paperrag/config"
	"paperrag/internal/port"
)

const (
	mistralBaseURL = "https://api.mistral.ai/v1"
	ollamaBaseURL  = "http://localhost:11434/v1"
)

// ChatClient talks to any OpenAI-compatible chat completion endpoint.
type ChatClient struct {
	client      *openai.Client
	model       string
	temperature float32
	timeout     time.Duration
	maxRetries  int
	baseDelay   time.Duration
}

// New builds the LLM selected by cfg.Provider.
func New(cfg config.LLMConfig) (port.LLM, error) {
	switch cfg.Provider {
	case "offline":
		return NewOffline(), nil
	case "mistral":
		return newChatClient(cfg, mistralBaseURL, true)
	case "openai":
		return newChatClient(cfg, "", true)
	case "ollama":
		return newChatClient(cfg, ollamaBaseURL, false)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}

func newChatClient(cfg config.LLMConfig, defaultBaseURL string, needsKey bool) (*ChatClient, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		if needsKey {
			return nil, fmt.Errorf("API key not found in environment variable: %s", cfg.APIKeyEnv)
		}
		apiKey = "ollama"
	}

	clientCfg := openai.DefaultConfig(apiKey)
	switch {
	case cfg.BaseURL != "":
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	case defaultBaseURL != "":
		clientCfg.BaseURL = defaultBaseURL
	}

	return &ChatClient{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: float32(cfg.Temperature),
		timeout:     time.Duration(cfg.TimeoutSecs) * time.Second,
		maxRetries:  cfg.MaxRetries,
		baseDelay:   time.Second,
	}, nil
}

// GenerateWithSystem sends a system and user message and returns the
// trimmed reply. Failed attempts are retried with exponential backoff.
func (c *ChatClient) GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: c.temperature,
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * c.baseDelay
			slog.Warn("llm request failed, retrying",
				"model", c.model, "attempt", attempt, "max_retries", c.maxRetries, "delay", delay, "error", lastErr)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		reply, err := c.complete(ctx, req)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		if ctx.Err() != nil || !retryable(err) {
			break
		}
	}

	return "", fmt.Errorf("chat completion failed: %w", lastErr)
}

func (c *ChatClient) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices returned from API")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// retryable reports whether err may succeed on another attempt. Client
// errors other than rate limiting are final.
func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == 429 || reqErr.HTTPStatusCode >= 500
	}
	return true
}

func (c *ChatClient) ModelName() string {
	return c.model
}
