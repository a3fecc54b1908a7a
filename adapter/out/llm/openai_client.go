package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/clouderp-code/email-processor/core/domain"
	"github.com/clouderp-code/email-processor/core/port/out"
	"github.com/clouderp-code/email-processor/pkg/httputil"
)

const classifySystemPrompt = `You are an email classifier. Given an email, respond with a JSON object mapping each of the categories "inquiry", "support", "meeting" and "follow_up" to its probability. The probabilities must sum to 1. Respond with JSON only.`

// Config for the OpenAI-backed classification and completion client
type Config struct {
	APIKey string
	Model  string
}

// Client implements both the classifier and completion ports on the
// OpenAI chat API.
type Client struct {
	client *openai.Client
	model  string
	log    zerolog.Logger
}

func NewClient(cfg *Config, log zerolog.Logger) *Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.HTTPClient = httputil.NewPooledClient(httputil.OpenAIClientConfig())

	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}

	return &Client{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
		log:    log,
	}
}

// Classify asks the model for a category probability distribution.
func (c *Client) Classify(ctx context.Context, text string) (out.Distribution, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classifySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("classification request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("classification request: empty response")
	}

	var raw map[string]float64
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("parse classification response: %w", err)
	}

	dist := make(out.Distribution, len(raw))
	for name, p := range raw {
		dist[domain.Category(strings.ToLower(name))] = p
	}

	c.log.Debug().
		Int("tokens", resp.Usage.TotalTokens).
		Msg("[Client.Classify] distribution received")
	return dist, nil
}

// Complete generates reply text with per-variant token and temperature
// settings.
func (c *Client) Complete(ctx context.Context, req out.CompletionRequest) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("completion request: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion request: empty response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
