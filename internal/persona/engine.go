package persona

import (
	"context"
	"fmt"
	"log"
	"strings"

	"innerworld-backend/internal/llm"
	"innerworld-backend/internal/memory"
	"innerworld-backend/internal/parser"
	"innerworld-backend/internal/types"

	"github.com/tmc/langchaingo/llms"
)

// ConversationTurn is one prior entry in the window PersonaEngine
// assembles into the request transcript.
type ConversationTurn struct {
	From    types.Persona
	Content string
}

// Incoming is the message a persona is about to respond to, built by
// the Orchestrator per spec.md §4.4 step 3.
type Incoming struct {
	Content string
}

// Engine is the PersonaEngine: builds an LLM request from persona
// config + conversation slice + memories, invokes the LLMClient, and
// runs the text through ResponseParser. It is the teacher's
// ConversationChain generalized past a single "Supportive Companion"
// template into the ten-role roster, with its LangChain-Go dependency
// (previously blank-imported) now building the actual transcript.
type Engine struct {
	client llm.Client
	memory *memory.Store
}

// New builds a PersonaEngine.
func New(client llm.Client, memoryStore *memory.Store) *Engine {
	return &Engine{client: client, memory: memoryStore}
}

// Process implements spec.md §4.3's single operation.
func (e *Engine) Process(ctx context.Context, cfg types.PersonaConfiguration, sessionID, sessionTitle, problem string, history []ConversationTurn, memories []types.Memory, incoming Incoming, resolver Resolver) (parser.PersonaAction, error) {
	transcript := e.buildTranscript(cfg, sessionTitle, problem, history, memories, incoming)

	if refs := extractRememberRefs(incoming.Content); len(refs) > 0 {
		// Recalled notes go just ahead of the incoming message, which
		// stays the final transcript entry.
		last := transcript[len(transcript)-1]
		transcript = transcript[:len(transcript)-1]
		for _, id := range refs {
			if mem, err := e.memory.GetByIdentifier(ctx, sessionID, cfg.Persona, id); err == nil && mem != nil {
				transcript = append(transcript, llms.TextParts(llms.ChatMessageTypeGeneric,
					fmt.Sprintf("Recalled note [%s]: %s", mem.Identifier, mem.Content)))
			}
		}
		transcript = append(transcript, last)
	}

	req := flatten(cfg, transcript)

	resp, err := e.client.Complete(ctx, req)
	if err != nil {
		log.Printf("persona engine: LLM error for %s: %v", cfg.Persona, err)
		return parser.PersonaAction{
			Kind:    parser.ActionStuck,
			Content: fmt.Sprintf("LLM error: %v", err),
			Raw:     "",
		}, nil
	}

	action := parser.Parse(resp.Content, resolver)

	for _, store := range action.Stores {
		if _, err := e.memory.Store(ctx, sessionID, cfg.Persona, store.Identifier, store.Content); err != nil {
			log.Printf("persona engine: STORE directive failed for %s/%s: %v", cfg.Persona, store.Identifier, err)
		}
	}

	return action, nil
}

// buildTranscript assembles the request per spec.md §4.3: a leading
// summary line, recent memories, the last K conversation turns, then
// the incoming message.
func (e *Engine) buildTranscript(cfg types.PersonaConfiguration, sessionTitle, problem string, history []ConversationTurn, memories []types.Memory, incoming Incoming) []llms.MessageContent {
	transcript := make([]llms.MessageContent, 0, len(history)+len(memories)+3)

	transcript = append(transcript, llms.TextParts(llms.ChatMessageTypeSystem, cfg.SystemPrompt))
	transcript = append(transcript, llms.TextParts(llms.ChatMessageTypeGeneric,
		fmt.Sprintf("Session: %s\nProblem statement: %s", sessionTitle, problem)))

	if len(memories) > 0 {
		var b strings.Builder
		b.WriteString("Your recent notes:\n")
		for _, m := range memories {
			fmt.Fprintf(&b, "%s: %s\n", m.Identifier, m.Content)
		}
		transcript = append(transcript, llms.TextParts(llms.ChatMessageTypeGeneric, b.String()))
	}

	for _, turn := range history {
		role := llms.ChatMessageTypeGeneric
		if turn.From == types.PersonaUser {
			role = llms.ChatMessageTypeHuman
		}
		transcript = append(transcript, llms.TextParts(role, fmt.Sprintf("[%s] %s", turn.From, turn.Content)))
	}

	transcript = append(transcript, llms.TextParts(llms.ChatMessageTypeHuman, incoming.Content))
	return transcript
}

// flatten converts the langchaingo transcript representation into the
// backend-neutral llm.Request the Client contract accepts.
func flatten(cfg types.PersonaConfiguration, transcript []llms.MessageContent) llm.Request {
	messages := make([]llm.Message, 0, len(transcript))
	for _, mc := range transcript {
		var text strings.Builder
		for _, part := range mc.Parts {
			if tc, ok := part.(llms.TextContent); ok {
				text.WriteString(tc.Text)
			}
		}
		messages = append(messages, llm.Message{Role: roleFor(mc.Role), Content: text.String()})
	}

	return llm.Request{
		Model:       cfg.Model,
		Messages:    messages,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}
}

func roleFor(t llms.ChatMessageType) llm.Role {
	switch t {
	case llms.ChatMessageTypeSystem:
		return llm.RoleSystem
	case llms.ChatMessageTypeAI:
		return llm.RoleAssistant
	default:
		return llm.RoleUser
	}
}

// extractRememberRefs scans the incoming message text for
// [REMEMBER:id] markers, ahead of the parser running on the LLM's
// eventual response — Process resolves these against the
// *incoming* message before the call, per spec.md §4.3.
func extractRememberRefs(content string) []string {
	var out []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "[REMEMBER:") {
			continue
		}
		end := strings.Index(line, "]")
		if end < 0 {
			continue
		}
		id := strings.TrimSpace(line[len("[REMEMBER:"):end])
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}
