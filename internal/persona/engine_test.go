package persona

import (
	"context"
	"testing"

	"innerworld-backend/internal/llm"
	"innerworld-backend/internal/memory"
	"innerworld-backend/internal/parser"
	"innerworld-backend/internal/storage"
	"innerworld-backend/internal/types"
)

type stubClient struct {
	response string
	err      error
	lastReq  llm.Request
}

func (s *stubClient) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Response{Content: s.response}, nil
}

func testResolver() Resolver {
	return Resolver{byNormalizedName: map[string]string{
		"technicalarchitect": "TechnicalArchitect",
		"coordinator":        "Coordinator",
	}}
}

func TestEngineProcessParsesDelegate(t *testing.T) {
	client := &stubClient{response: "[DELEGATE:TechnicalArchitect] assess feasibility of the caching layer"}
	store := memory.New(storage.NewInMemoryMemoryRepository(), nil)
	engine := New(client, store)

	cfg := types.PersonaConfiguration{Persona: types.PersonaCoordinator, SystemPrompt: "You are the Coordinator.", Model: "m", Temperature: 0.5, MaxTokens: 100}
	action, err := engine.Process(context.Background(), cfg, "sess-1", "Design a cache", "Design a cache for the product catalog",
		nil, nil, Incoming{Content: "Design a cache for the product catalog"}, testResolver())
	if err != nil {
		t.Fatalf("Process() failed: %v", err)
	}
	if action.Kind != parser.ActionDelegate {
		t.Fatalf("Expected ActionDelegate, got %s", action.Kind)
	}
	if action.DelegateTarget != "TechnicalArchitect" {
		t.Errorf("Expected delegate target TechnicalArchitect, got %s", action.DelegateTarget)
	}
	if len(client.lastReq.Messages) == 0 {
		t.Fatal("Expected a non-empty transcript to be sent to the LLM client")
	}
	if client.lastReq.Messages[0].Role != llm.RoleSystem {
		t.Errorf("Expected first transcript entry to carry the system prompt, got role %s", client.lastReq.Messages[0].Role)
	}
}

func TestEngineProcessStoresOnStoreDirective(t *testing.T) {
	client := &stubClient{response: "[STORE:budget-ceiling] capped at $50k\n[SOLUTION] proceeding within budget"}
	store := memory.New(storage.NewInMemoryMemoryRepository(), nil)
	engine := New(client, store)

	cfg := types.PersonaConfiguration{Persona: types.PersonaCoordinator, SystemPrompt: "You are the Coordinator.", Model: "m"}
	_, err := engine.Process(context.Background(), cfg, "sess-1", "title", "problem", nil, nil, Incoming{Content: "go"}, testResolver())
	if err != nil {
		t.Fatalf("Process() failed: %v", err)
	}

	mem, err := store.GetByIdentifier(context.Background(), "sess-1", types.PersonaCoordinator, "budget-ceiling")
	if err != nil {
		t.Fatalf("GetByIdentifier() failed: %v", err)
	}
	if mem == nil || mem.Content != "capped at $50k" {
		t.Fatalf("Expected STORE directive to persist a memory, got %+v", mem)
	}
}

func TestEngineProcessReturnsStuckOnLLMError(t *testing.T) {
	client := &stubClient{err: errTransport{}}
	store := memory.New(storage.NewInMemoryMemoryRepository(), nil)
	engine := New(client, store)

	cfg := types.PersonaConfiguration{Persona: types.PersonaCoordinator, SystemPrompt: "sys", Model: "m"}
	action, err := engine.Process(context.Background(), cfg, "sess-1", "title", "problem", nil, nil, Incoming{Content: "go"}, testResolver())
	if err != nil {
		t.Fatalf("Process() should not return an error on LLM failure, got %v", err)
	}
	if action.Kind != parser.ActionStuck {
		t.Fatalf("Expected ActionStuck on LLM transport error, got %s", action.Kind)
	}
}

type errTransport struct{}

func (errTransport) Error() string { return "connection refused" }
