package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/NeuroShelf10/Neuroestante/pkg/config"
	"github.com/NeuroShelf10/Neuroestante/pkg/logger"
)

var errAPIKeyRequired = errors.New("openai api key is required")

// Message is a single turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompleter is the surface consumed by services that talk to the model.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []Message, temperature float32) (string, error)
}

// Client wraps the OpenAI chat completion API with the configured model.
type Client struct {
	api   *openai.Client
	model string
}

// NewClient validates the configuration and builds the shared client.
func NewClient(ctx context.Context, cfg config.OpenAIConfig, logg *logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errAPIKeyRequired
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = openai.GPT4oMini
	}

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("openai client initialized (model=%s)", model))
	}

	return &Client{
		api:   openai.NewClient(apiKey),
		model: model,
	}, nil
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// Complete runs a chat completion and returns the first choice's text.
func (c *Client) Complete(ctx context.Context, messages []Message, temperature float32) (string, error) {
	if c == nil || c.api == nil {
		return "", errors.New("openai client not initialized")
	}
	if len(messages) == 0 {
		return "", errors.New("at least one message is required")
	}

	req := openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: temperature,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, msg := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
