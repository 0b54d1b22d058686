package parser

import (
	"strings"
	"testing"
)

type stubResolver struct {
	names map[string]string
}

func (s stubResolver) CanonicalName(spoken string) (string, bool) {
	key := strings.ToLower(strings.Join(strings.Fields(spoken), ""))
	name, ok := s.names[key]
	return name, ok
}

func newResolver() stubResolver {
	return stubResolver{names: map[string]string{
		"technicalarchitect": "TechnicalArchitect",
		"seniordeveloper":    "SeniorDeveloper",
		"juniorqa":           "JuniorQA",
	}}
}

func TestParseDelegate(t *testing.T) {
	action := Parse("[DELEGATE:TechnicalArchitect] please assess feasibility", newResolver())

	if action.Kind != ActionDelegate {
		t.Fatalf("Expected ActionDelegate, got %s", action.Kind)
	}
	if action.DelegateTarget != "TechnicalArchitect" {
		t.Errorf("Expected DelegateTarget 'TechnicalArchitect', got '%s'", action.DelegateTarget)
	}
	if action.DelegationContext != "please assess feasibility" {
		t.Errorf("Expected delegation context, got '%s'", action.DelegationContext)
	}
}

func TestParseDelegateCaseAndWhitespaceInsensitive(t *testing.T) {
	action := Parse("[DELEGATE:  Senior Developer ] implement the parser", newResolver())

	if action.Kind != ActionDelegate {
		t.Fatalf("Expected ActionDelegate, got %s", action.Kind)
	}
	if action.DelegateTarget != "SeniorDeveloper" {
		t.Errorf("Expected canonical name 'SeniorDeveloper', got '%s'", action.DelegateTarget)
	}
}

func TestParseDelegateUnknownTargetDemotesToAnswer(t *testing.T) {
	action := Parse("[DELEGATE:Nonexistent] do the thing", newResolver())

	if action.Kind != ActionAnswer {
		t.Fatalf("Expected unknown delegate target to demote to ActionAnswer, got %s", action.Kind)
	}
	if !strings.Contains(action.Reasoning, "Nonexistent") {
		t.Errorf("Expected demotion reasoning to mention the unknown name, got '%s'", action.Reasoning)
	}
}

func TestParseClarify(t *testing.T) {
	action := Parse("[CLARIFY] What platform should this target?", newResolver())

	if action.Kind != ActionClarify {
		t.Fatalf("Expected ActionClarify, got %s", action.Kind)
	}
	if action.Content != "What platform should this target?" {
		t.Errorf("Unexpected clarify content: '%s'", action.Content)
	}
}

func TestParseSolutionMultiline(t *testing.T) {
	raw := "[SOLUTION]\nUse a queue-backed worker pool.\nShard by session id."
	action := Parse(raw, newResolver())

	if action.Kind != ActionSolution {
		t.Fatalf("Expected ActionSolution, got %s", action.Kind)
	}
	if !strings.Contains(action.Content, "Shard by session id.") {
		t.Errorf("Expected multi-line solution content preserved, got '%s'", action.Content)
	}
}

func TestParseStuck(t *testing.T) {
	action := Parse("[STUCK] missing API credentials, cannot proceed", newResolver())

	if action.Kind != ActionStuck {
		t.Fatalf("Expected ActionStuck, got %s", action.Kind)
	}
}

func TestParseDecline(t *testing.T) {
	action := Parse("[DECLINE] this request is out of scope for my role", newResolver())

	if action.Kind != ActionDecline {
		t.Fatalf("Expected ActionDecline, got %s", action.Kind)
	}
}

func TestParsePlainTextIsAnswer(t *testing.T) {
	action := Parse("The budget looks reasonable to me.", newResolver())

	if action.Kind != ActionAnswer {
		t.Fatalf("Expected ActionAnswer for untagged text, got %s", action.Kind)
	}
	if action.Content != "The budget looks reasonable to me." {
		t.Errorf("Unexpected answer content: '%s'", action.Content)
	}
}

func TestParseEmptyResponseIsAnswer(t *testing.T) {
	action := Parse("", newResolver())

	if action.Kind != ActionAnswer {
		t.Fatalf("Expected ActionAnswer for empty response, got %s", action.Kind)
	}
	if action.Content != "" {
		t.Errorf("Expected empty content, got '%s'", action.Content)
	}
}

func TestParseReasoningStrippedFromVisibleContent(t *testing.T) {
	raw := "[REASONING]Considering tradeoffs between REST and gRPC[/REASONING]\n[SOLUTION] Use gRPC for internal service calls."
	action := Parse(raw, newResolver())

	if action.Kind != ActionSolution {
		t.Fatalf("Expected ActionSolution, got %s", action.Kind)
	}
	if action.Reasoning != "Considering tradeoffs between REST and gRPC" {
		t.Errorf("Unexpected reasoning capture: '%s'", action.Reasoning)
	}
	if strings.Contains(action.Content, "REASONING") {
		t.Errorf("Expected reasoning tags stripped from content, got '%s'", action.Content)
	}
}

func TestParseStoreDirectives(t *testing.T) {
	raw := "[STORE:budget-ceiling] Client capped spend at $50k\n[SOLUTION] Proceeding within budget."
	action := Parse(raw, newResolver())

	if len(action.Stores) != 1 {
		t.Fatalf("Expected 1 store directive, got %d", len(action.Stores))
	}
	if action.Stores[0].Identifier != "budget-ceiling" {
		t.Errorf("Unexpected identifier: '%s'", action.Stores[0].Identifier)
	}
	if action.Stores[0].Content != "Client capped spend at $50k" {
		t.Errorf("Unexpected store content: '%s'", action.Stores[0].Content)
	}
	if action.Kind != ActionSolution {
		t.Fatalf("Expected STORE directive to not change the primary action kind, got %s", action.Kind)
	}
}

func TestParseRememberDirectives(t *testing.T) {
	raw := "[REMEMBER:budget-ceiling]\n[DELEGATE:JuniorQA] verify within the recalled budget"
	action := Parse(raw, newResolver())

	if len(action.Remembers) != 1 || action.Remembers[0].Identifier != "budget-ceiling" {
		t.Fatalf("Expected 1 remember directive for 'budget-ceiling', got %+v", action.Remembers)
	}
	if action.Kind != ActionDelegate {
		t.Fatalf("Expected ActionDelegate, got %s", action.Kind)
	}
}

// TestDelegateRoundTrip exercises the round-trip property (spec.md R2):
// rendering a parsed delegate action reproduces an equivalent directive
// that reparses to the same target and context.
func TestDelegateRoundTrip(t *testing.T) {
	original := Parse("[DELEGATE:JuniorQA] write regression tests for the parser", newResolver())
	rendered := RenderDelegate(original)
	reparsed := Parse(rendered, newResolver())

	if reparsed.Kind != ActionDelegate {
		t.Fatalf("Expected round-tripped text to reparse as ActionDelegate, got %s", reparsed.Kind)
	}
	if reparsed.DelegateTarget != original.DelegateTarget {
		t.Errorf("Round-trip target mismatch: got '%s', want '%s'", reparsed.DelegateTarget, original.DelegateTarget)
	}
	if reparsed.DelegationContext != original.DelegationContext {
		t.Errorf("Round-trip context mismatch: got '%s', want '%s'", reparsed.DelegationContext, original.DelegationContext)
	}
}

// TestFirstActionWins checks that when multiple primary tags appear,
// the first one present in the text determines the action kind.
func TestFirstActionWins(t *testing.T) {
	raw := "[CLARIFY] which environment?\n[SOLUTION] deploy to staging"
	action := Parse(raw, newResolver())

	if action.Kind != ActionClarify {
		t.Fatalf("Expected first tag CLARIFY to win, got %s", action.Kind)
	}
}

// TestFirstActionWinsByPosition pins the case a fixed tag-priority
// order would get wrong: SOLUTION occurs first in the text even
// though CLARIFY would win a kind-based priority ordering, so it must
// still be SOLUTION that wins.
func TestFirstActionWinsByPosition(t *testing.T) {
	raw := "[SOLUTION] deploy to staging\n[CLARIFY] which environment?"
	action := Parse(raw, newResolver())

	if action.Kind != ActionSolution {
		t.Fatalf("Expected textually-first tag SOLUTION to win, got %s", action.Kind)
	}
	// SOLUTION's content capture runs to the end of the text (a
	// solution may legitimately span multiple lines), so it swallows
	// the trailing CLARIFY line rather than treating it as a second tag.
	want := "deploy to staging\n[CLARIFY] which environment?"
	if action.Content != want {
		t.Fatalf("unexpected content for winning SOLUTION tag: got %q, want %q", action.Content, want)
	}
}
