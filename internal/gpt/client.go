// internal/gpt/client.go
package gpt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"fitcoach/internal/apperr"
	"fitcoach/internal/observability"
	"fitcoach/pkg/logger"
)

const (
	RoleSystem    = openai.ChatMessageRoleSystem
	RoleUser      = openai.ChatMessageRoleUser
	RoleAssistant = openai.ChatMessageRoleAssistant
)

// Message is one role-tagged turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is provider-neutral: a system instruction plus ordered turns.
type Request struct {
	System      string
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// Completion is the raw model output. Truncated is set when generation stopped
// on the token budget.
type Completion struct {
	Text         string
	Truncated    bool
	FinishReason string
}

type Client struct {
	client *openai.Client
	model  string
	logger *logger.Logger
}

func NewClient(apiKey string) *Client {
	return NewClientWithBaseURL(apiKey, "")
}

// NewClientWithBaseURL targets any OpenAI-compatible endpoint. An empty
// baseURL keeps the library default.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  openai.GPT4oMini,
		logger: logger.NewNop(),
	}
}

func (c *Client) WithModel(model string) *Client {
	if model != "" {
		c.model = model
	}
	return c
}

func (c *Client) WithLogger(l *logger.Logger) *Client {
	c.logger = l
	return c
}

// Complete sends one non-streaming completion request. It never retries.
// Provider error details are logged here and not returned to the caller.
func (c *Client) Complete(ctx context.Context, req Request) (*Completion, error) {
	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	for _, m := range req.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	started := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		observability.ObserveProviderRequest(c.model, "error", started)
		return nil, c.classify(ctx, err)
	}
	observability.ObserveProviderRequest(c.model, "ok", started)

	if len(resp.Choices) == 0 {
		c.logger.Errorw("Provider returned no choices", "model", c.model, "response_id", resp.ID)
		return nil, apperr.New(apperr.ProviderUnavailable, "no response from AI provider")
	}

	choice := resp.Choices[0]
	return &Completion{
		Text:         choice.Message.Content,
		Truncated:    choice.FinishReason == openai.FinishReasonLength,
		FinishReason: string(choice.FinishReason),
	}, nil
}

func (c *Client) classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return apperr.Wrap(apperr.Cancelled, "generation request cancelled", ctx.Err())
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		c.logger.Warnw("Provider request timed out", "model", c.model)
		return apperr.New(apperr.ProviderUnavailable, "AI provider did not respond in time")
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		c.logger.Errorw("Provider rejected completion request",
			"model", c.model,
			"status", apiErr.HTTPStatusCode,
			"type", apiErr.Type,
			"error", apiErr.Message)
		return apperr.New(apperr.ProviderUnavailable,
			fmt.Sprintf("AI provider request failed with status %d", apiErr.HTTPStatusCode))
	}

	c.logger.Errorw("Provider request failed", "model", c.model, "error", err)
	return apperr.New(apperr.ProviderUnavailable, "AI provider request failed")
}
