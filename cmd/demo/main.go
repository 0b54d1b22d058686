// Command demo runs two scripted scenarios against the Session
// Orchestrator over in-memory repositories and a canned LLM client,
// printing the resulting conversation log and broadcast events. It is
// a manual-inspection counterpart to the scenario tests in
// internal/orchestrator, not itself a test.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"innerworld-backend/internal/config"
	"innerworld-backend/internal/events"
	"innerworld-backend/internal/llm"
	"innerworld-backend/internal/memory"
	"innerworld-backend/internal/orchestrator"
	"innerworld-backend/internal/persona"
	"innerworld-backend/internal/storage"
	"innerworld-backend/internal/types"
)

// scriptedClient replays a fixed sequence of LLM responses, one per
// Complete call, looping back to [STUCK] once the script runs dry.
type scriptedClient struct {
	responses []string
	calls     int
}

func (s *scriptedClient) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if s.calls >= len(s.responses) {
		return &llm.Response{Content: "[STUCK] script exhausted"}, nil
	}
	resp := s.responses[s.calls]
	s.calls++
	return &llm.Response{Content: resp}, nil
}

func main() {
	fmt.Println("=== Scenario 1: delegation chain ending in a solution ===")
	runScenario(
		"Should we add a caching layer in front of the product catalog service?",
		[]string{
			"[DELEGATE:TechnicalArchitect] assess feasibility of a caching layer",
			"[DELEGATE:SeniorDeveloper] estimate implementation cost",
			"[SOLUTION] a Redis-backed cache is feasible and roughly a 2 day implementation",
			"[SOLUTION] Final plan: adopt a Redis-backed read-through cache in front of the catalog service.",
		},
		nil,
	)

	fmt.Println()
	fmt.Println("=== Scenario 2: clarification requested, then resumed with a user answer ===")
	runScenario(
		"Should we add a caching layer?",
		[]string{
			"[CLARIFY] What is the target request rate for this cache?",
			"[SOLUTION] At 500 req/s an in-process LRU cache is sufficient.",
		},
		[]string{"About 500 requests per second."},
	)
}

// runScenario initializes a session, lets its dispatch loop run to
// completion (or a clarification pause), optionally feeds a queued
// clarification response, and prints the conversation log and
// broadcast events once the session settles.
func runScenario(problem string, scriptedResponses []string, clarifications []string) {
	ctx := context.Background()

	repos := storage.NewInMemoryRepositories()
	loader, err := persona.New(ctx, repos.PersonaConfig)
	if err != nil {
		log.Fatalf("demo: persona.New() failed: %v", err)
	}
	client := &scriptedClient{responses: scriptedResponses}
	engine := persona.New(client, memory.New(repos.Memories, nil))
	recorder := events.NewRecorder()
	registry := orchestrator.NewRegistry()
	orch := orchestrator.New(repos, memory.New(repos.Memories, nil), loader, engine, recorder, registry, config.OrchestratorConfig{
		MaxDepth:             50,
		StuckStreakLimit:     5,
		ConversationWindow:   20,
		RecentMemoriesWindow: 10,
		AnswerRouteCharLimit: 100,
		CycleWindowTurns:     3,
		CycleSimilarityRatio: 0.9,
	})

	session, err := orch.Initialize(ctx, problem)
	if err != nil {
		log.Fatalf("demo: Initialize() failed: %v", err)
	}

	session = waitForSettled(orch, session.ID)

	for _, answer := range clarifications {
		if session.Status != types.SessionWaitingForClarification {
			break
		}
		if _, err := orch.HandleUserClarification(ctx, session.ID, answer); err != nil {
			log.Fatalf("demo: HandleUserClarification() failed: %v", err)
		}
		session = waitForSettled(orch, session.ID)
	}

	printTranscript(orch, session.ID)
	fmt.Printf("final status: %s\n", session.Status)
	if session.FinalSolution != "" {
		fmt.Printf("final solution: %s\n", session.FinalSolution)
	}

	fmt.Println("events:")
	for _, e := range recorder.Events(session.ID) {
		fmt.Printf("  [%d] %s\n", e.Sequence, e.Kind)
	}
}

// waitForSettled polls GetSession until the dispatch loop, which runs
// on its own goroutine via the Registry, reaches a status other than
// Active.
func waitForSettled(orch *orchestrator.Orchestrator, sessionID string) *types.Session {
	ctx := context.Background()
	for i := 0; i < 1000; i++ {
		session, err := orch.GetSession(ctx, sessionID)
		if err != nil {
			log.Fatalf("demo: GetSession() failed: %v", err)
		}
		if session.Status != types.SessionActive {
			return session
		}
		time.Sleep(time.Millisecond)
	}
	log.Fatalf("demo: session %s never settled", sessionID)
	return nil
}

func printTranscript(orch *orchestrator.Orchestrator, sessionID string) {
	messages, err := orch.ListMessages(context.Background(), sessionID)
	if err != nil {
		log.Fatalf("demo: ListMessages() failed: %v", err)
	}
	fmt.Println("transcript:")
	for _, m := range messages {
		if m.ToPersona != "" {
			fmt.Printf("  %s -> %s [%s]: %s\n", m.FromPersona, m.ToPersona, m.Kind, m.Content)
		} else {
			fmt.Printf("  %s [%s]: %s\n", m.FromPersona, m.Kind, m.Content)
		}
	}
}
