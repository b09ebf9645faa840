// Package genai provides chat completions through the OpenAI API.
package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/MovieBot/MovieBot/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultModel is used when no model is configured.
const DefaultModel = openai.ChatModelGPT4oMini

// Model aliases the OpenAI chat model identifier type.
type Model = openai.ChatModel

// ErrNoChoicesReturned indicates the API responded without any completion choices.
var ErrNoChoicesReturned = errors.New("no choices returned")

// chatService defines the minimal interface for chat completions.
type chatService interface {
	Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error)
}

// openaiChatService adapts the OpenAI client to chatService.
type openaiChatService struct {
	client openai.Client
}

func (s *openaiChatService) Create(ctx context.Context, params openai.ChatCompletionNewParams) (openai.ChatCompletion, error) {
	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return openai.ChatCompletion{}, err
	}
	return *resp, nil
}

// Opts holds configuration options for the GenAI client.
type Opts struct {
	APIKey string
	Model  string
}

// Option defines a configuration option for the GenAI client.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel sets the chat completion model.
func WithModel(model string) Option {
	return func(o *Opts) { o.Model = model }
}

// Client wraps the OpenAI chat completion service.
type Client struct {
	chat  chatService
	model Model
}

// NewClient initializes a GenAI client. The API key falls back to the
// OPENAI_API_KEY environment variable when not set via options.
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("genai.NewClient invoked", "APIKey_set", cfg.APIKey != "", "model", cfg.Model)

	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		slog.Error("genai.NewClient: OpenAI API key not set")
		return nil, fmt.Errorf("OpenAI API key not set")
	}

	model := Model(cfg.Model)
	if model == "" {
		model = DefaultModel
	}

	cli := openai.NewClient(option.WithAPIKey(apiKey))
	slog.Debug("genai.NewClient created client", "model", model)
	return &Client{chat: &openaiChatService{client: cli}, model: model}, nil
}

// Complete generates an assistant reply for the given system context and
// conversation turns.
func (c *Client) Complete(ctx context.Context, system []string, turns []models.ConversationMessage) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(system)+len(turns))
	for _, s := range system {
		messages = append(messages, openai.SystemMessage(s))
	}
	for _, turn := range turns {
		switch turn.Role {
		case models.RoleAssistant:
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: messages,
	}
	slog.Debug("genai.Complete sending request", "model", c.model, "messages", len(messages))
	resp, err := c.chat.Create(ctx, params)
	if err != nil {
		slog.Error("genai.Complete request failed", "error", err)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		slog.Error("genai.Complete: no choices returned")
		return "", ErrNoChoicesReturned
	}
	reply := resp.Choices[0].Message.Content
	slog.Debug("genai.Complete succeeded", "reply_length", len(reply))
	return reply, nil
}
