package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// OpenAIChatClient is the alternate Client backend, used when
// Config.Backend() resolves to BackendOpenAI (no OpenRouter key
// configured). It exercises the same go-openai SDK the teacher's
// embeddings client depends on, applied here to chat completions.
type OpenAIChatClient struct {
	client *openai.Client
}

// NewOpenAIChatClient creates an OpenAI chat-completion client.
func NewOpenAIChatClient(apiKey string) *OpenAIChatClient {
	return &OpenAIChatClient{client: openai.NewClient(apiKey)}
}

// NewOpenAIChatClientWithBaseURL points the client at a configured
// base URL, so tests can exercise Complete() against a local fake.
func NewOpenAIChatClientWithBaseURL(apiKey, baseURL string) *OpenAIChatClient {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &OpenAIChatClient{client: openai.NewClientWithConfig(cfg)}
}

// Complete implements the Client contract against the OpenAI chat
// completions endpoint.
func (c *OpenAIChatClient) Complete(ctx context.Context, req Request) (*Response, error) {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content}
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("OpenAI chat completion returned no choices")
	}

	return &Response{
		Content:      resp.Choices[0].Message.Content,
		FinishReason: string(resp.Choices[0].FinishReason),
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}
