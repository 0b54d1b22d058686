package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
)

func TestOpenAIChatClientCompleteMapsResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: "assistant", Content: "[CLARIFY] which environment?"}, FinishReason: "stop"},
			},
			Usage: openai.Usage{TotalTokens: 17},
		})
	}))
	defer server.Close()

	client := NewOpenAIChatClientWithBaseURL("test-key", server.URL)
	resp, err := client.Complete(context.Background(), Request{
		Model: "gpt-4o-mini",
		Messages: []Message{
			{Role: RoleSystem, Content: "You are the TechnicalArchitect."},
			{Role: RoleUser, Content: "What should we build first?"},
		},
	})
	if err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}
	if resp.Content != "[CLARIFY] which environment?" {
		t.Errorf("Unexpected content: %q", resp.Content)
	}
	if resp.TotalTokens != 17 {
		t.Errorf("Expected TotalTokens 17, got %d", resp.TotalTokens)
	}
}

func TestOpenAIChatClientCompleteErrorsOnEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{}})
	}))
	defer server.Close()

	client := NewOpenAIChatClientWithBaseURL("test-key", server.URL)
	_, err := client.Complete(context.Background(), Request{Model: "gpt-4o-mini", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if err == nil {
		t.Fatal("Expected an error when the backend returns no choices")
	}
}
