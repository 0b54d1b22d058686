package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewOpenRouterClient(t *testing.T) {
	client := NewOpenRouterClient("test-api-key")
	
	if client == nil {
		t.Fatal("Expected client to be created, got nil")
	}
	
	if client.apiKey != "test-api-key" {
		t.Errorf("Expected API key to be 'test-api-key', got '%s'", client.apiKey)
	}
	
	if client.baseURL != "https://openrouter.ai/api/v1" {
		t.Errorf("Expected base URL to be 'https://openrouter.ai/api/v1', got '%s'", client.baseURL)
	}
}

func TestChatResponse(t *testing.T) {
	// Test ChatResponse structure creation and field access
	response := ChatResponse{
		ID:      "test-123",
		Object:  "chat.completion",
		Created: 1234567890,
		Model:   "anthropic/claude-3.5-sonnet",
	}
	
	if response.ID != "test-123" {
		t.Errorf("Expected ID 'test-123', got '%s'", response.ID)
	}
	
	if response.Model != "anthropic/claude-3.5-sonnet" {
		t.Errorf("Expected model 'anthropic/claude-3.5-sonnet', got '%s'", response.Model)
	}
}

func TestConversationRequestValidation(t *testing.T) {
	testCases := []struct {
		name    string
		message string
		userID  string
		valid   bool
	}{
		{
			name:    "Valid request",
			message: "Hello",
			userID:  "user-123",
			valid:   true,
		},
		{
			name:    "Empty message",
			message: "",
			userID:  "user-123",
			valid:   false,
		},
		{
			name:    "Empty UserID",
			message: "Hello",
			userID:  "",
			valid:   false,
		},
	}
	
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			isValid := tc.message != "" && tc.userID != ""
			if isValid != tc.valid {
				t.Errorf("Expected validation result %v, got %v", tc.valid, isValid)
			}
		})
	}
}

func TestCompleteMapsRequestAndResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected Authorization header with test-key, got %q", r.Header.Get("Authorization"))
		}

		var decoded ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&decoded); err != nil {
			t.Fatalf("Failed to decode request body: %v", err)
		}
		if decoded.Model != "anthropic/claude-3.5-sonnet" {
			t.Errorf("Expected model passed through, got %q", decoded.Model)
		}
		if len(decoded.Messages) != 2 {
			t.Fatalf("Expected 2 messages, got %d", len(decoded.Messages))
		}

		_ = json.NewEncoder(w).Encode(ChatResponse{
			Choices: []ChatChoice{{Message: ChatMessage{Role: "assistant", Content: "[SOLUTION] ship it"}, FinishReason: "stop"}},
			Usage:   Usage{TotalTokens: 42},
		})
	}))
	defer server.Close()

	client := NewOpenRouterClientWithBaseURL("test-key", server.URL)
	resp, err := client.Complete(context.Background(), Request{
		Model:       "anthropic/claude-3.5-sonnet",
		Temperature: 0.2,
		MaxTokens:   500,
		Messages: []Message{
			{Role: RoleSystem, Content: "You are the Coordinator."},
			{Role: RoleUser, Content: "Summarize the plan."},
		},
	})
	if err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}
	if resp.Content != "[SOLUTION] ship it" {
		t.Errorf("Expected response content passed through, got %q", resp.Content)
	}
	if resp.TotalTokens != 42 {
		t.Errorf("Expected TotalTokens 42, got %d", resp.TotalTokens)
	}
}

func TestCompleteReturnsErrorOnEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(ChatResponse{Choices: []ChatChoice{}})
	}))
	defer server.Close()

	client := NewOpenRouterClientWithBaseURL("test-key", server.URL)
	_, err := client.Complete(context.Background(), Request{Model: "m", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	if err == nil {
		t.Fatal("Expected an error when the backend returns no choices")
	}
}

// Note: Testing the actual GenerateResponse method would require either:
// 1. A real OpenRouter API key (not suitable for CI)
// 2. Complex HTTP mocking setup 
// 3. Integration tests (separate from unit tests)
//
// For CI purposes, these structural tests verify the basic functionality
// without making external API calls.
