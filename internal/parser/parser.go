// Package parser implements the line-oriented tag grammar that turns
// free-form LLM text into a typed PersonaAction (spec.md §4.1, §6.2).
// ResponseParser is a pure function: no I/O, never panics, and always
// produces a result — an unparseable or empty response maps to
// ActionAnswer with the raw text as content.
package parser

import (
	"regexp"
	"strings"
)

// ActionKind is the typed outcome of a turn.
type ActionKind string

const (
	ActionDelegate ActionKind = "delegate"
	ActionClarify  ActionKind = "clarify"
	ActionSolution ActionKind = "solution"
	ActionStuck    ActionKind = "stuck"
	ActionDecline  ActionKind = "decline"
	ActionAnswer   ActionKind = "answer"
)

// StoreDirective is a [STORE:identifier] content line found anywhere
// in the response, queued as a side effect processed after the action.
type StoreDirective struct {
	Identifier string
	Content    string
}

// RememberDirective is a [REMEMBER:identifier] retrieval marker. Parse
// collects these into PersonaAction.Remembers, which nothing outside
// the parser reads; memories are recalled only for [REMEMBER:id]
// markers that begin a line of the text a persona receives as its
// incoming message (see persona.extractRememberRefs).
type RememberDirective struct {
	Identifier string
}

// PersonaAction is the parsed outcome of one LLM response.
type PersonaAction struct {
	Kind              ActionKind
	Content           string // visible content (Answer/Clarify/Solution/Stuck/Decline payload)
	DelegateTarget    string // canonical persona name, set iff Kind == ActionDelegate
	DelegationContext string // payload after [DELEGATE:Name], set iff Kind == ActionDelegate
	Reasoning         string // contents of [REASONING]...[/REASONING], if present
	Stores            []StoreDirective
	Remembers         []RememberDirective
	Raw               string // always preserved for diagnostics
}

var (
	reasoningRe = regexp.MustCompile(`(?s)\[REASONING\](.*?)\[/REASONING\]`)
	delegateRe  = regexp.MustCompile(`(?m)^\[DELEGATE:([^\]]+)\]\s?(.*)$`)
	clarifyRe   = regexp.MustCompile(`(?m)^\[CLARIFY\]\s?(.*)$`)
	solutionRe  = regexp.MustCompile(`(?ms)^\[SOLUTION\]\s?(.*)`)
	stuckRe     = regexp.MustCompile(`(?m)^\[STUCK\]\s?(.*)$`)
	declineRe   = regexp.MustCompile(`(?m)^\[DECLINE\]\s?(.*)$`)
	storeRe     = regexp.MustCompile(`(?m)^\[STORE:([^\]]+)\]\s?(.*)$`)
	rememberRe  = regexp.MustCompile(`(?m)^\[REMEMBER:([^\]]+)\]`)
	tagLineRe   = regexp.MustCompile(`(?m)^\[(DELEGATE|CLARIFY|SOLUTION|STUCK|DECLINE|STORE|REMEMBER)[^\]]*\].*$`)
)

// Resolver looks up a persona's canonical display name from a
// case/whitespace-insensitive spelling. It is satisfied by the
// persona roster/loader; the parser takes it as a dependency instead
// of hard-coding the roster so it stays a pure function of its inputs.
type Resolver interface {
	CanonicalName(spoken string) (string, bool)
}

// Parse maps raw LLM response text to a PersonaAction.
func Parse(raw string, personas Resolver) PersonaAction {
	action := PersonaAction{Raw: raw}

	withoutReasoning := raw
	if m := reasoningRe.FindStringSubmatch(raw); m != nil {
		action.Reasoning = strings.TrimSpace(m[1])
		withoutReasoning = reasoningRe.ReplaceAllString(raw, "")
	}

	for _, m := range storeRe.FindAllStringSubmatch(withoutReasoning, -1) {
		action.Stores = append(action.Stores, StoreDirective{
			Identifier: strings.TrimSpace(m[1]),
			Content:    strings.TrimSpace(m[2]),
		})
	}
	for _, m := range rememberRe.FindAllStringSubmatch(withoutReasoning, -1) {
		action.Remembers = append(action.Remembers, RememberDirective{
			Identifier: strings.TrimSpace(m[1]),
		})
	}

	if kind, ok := firstActionTag(withoutReasoning); ok {
		switch kind {
		case ActionDelegate:
			m := delegateRe.FindStringSubmatch(withoutReasoning)
			spoken := strings.TrimSpace(m[1])
			canonical, ok := personas.CanonicalName(spoken)
			if !ok {
				action.Kind = ActionAnswer
				action.Content = visibleText(withoutReasoning)
				note := "unknown delegate target '" + spoken + "' — demoted to Answer"
				if action.Reasoning != "" {
					action.Reasoning += "; " + note
				} else {
					action.Reasoning = note
				}
				return action
			}
			action.Kind = ActionDelegate
			action.DelegateTarget = canonical
			action.DelegationContext = strings.TrimSpace(m[2])
			return action

		case ActionClarify:
			m := clarifyRe.FindStringSubmatch(withoutReasoning)
			action.Kind = ActionClarify
			action.Content = strings.TrimSpace(m[1])
			return action

		case ActionSolution:
			m := solutionRe.FindStringSubmatch(withoutReasoning)
			action.Kind = ActionSolution
			action.Content = strings.TrimSpace(m[1])
			return action

		case ActionStuck:
			m := stuckRe.FindStringSubmatch(withoutReasoning)
			action.Kind = ActionStuck
			action.Content = strings.TrimSpace(m[1])
			return action

		case ActionDecline:
			m := declineRe.FindStringSubmatch(withoutReasoning)
			action.Kind = ActionDecline
			action.Content = strings.TrimSpace(m[1])
			return action
		}
	}

	action.Kind = ActionAnswer
	action.Content = visibleText(withoutReasoning)
	return action
}

// firstActionTag reports which action tag occurs earliest by string
// index in text, among the five mutually exclusive action tags
// (spec.md §4.1: "the first action-tag ... wins", order within the
// text determines the winner, not a fixed priority between tag kinds).
func firstActionTag(text string) (ActionKind, bool) {
	type candidate struct {
		kind  ActionKind
		start int
	}
	var candidates []candidate
	for _, c := range []struct {
		re   *regexp.Regexp
		kind ActionKind
	}{
		{delegateRe, ActionDelegate},
		{clarifyRe, ActionClarify},
		{solutionRe, ActionSolution},
		{stuckRe, ActionStuck},
		{declineRe, ActionDecline},
	} {
		if loc := c.re.FindStringIndex(text); loc != nil {
			candidates = append(candidates, candidate{c.kind, loc[0]})
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	winner := candidates[0]
	for _, c := range candidates[1:] {
		if c.start < winner.start {
			winner = c
		}
	}
	return winner.kind, true
}

// visibleText strips every tag line (DELEGATE, CLARIFY, SOLUTION, STUCK,
// DECLINE, STORE, REMEMBER) and blank lines from the text and returns
// what remains as the Answer content.
func visibleText(text string) string {
	stripped := tagLineRe.ReplaceAllString(text, "")
	lines := strings.Split(stripped, "\n")
	var kept []string
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		kept = append(kept, strings.TrimRight(line, " \t"))
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

// RenderDelegate re-renders a Delegate action to its canonical wire
// form, used by round-trip tests (spec.md §8 R2).
func RenderDelegate(a PersonaAction) string {
	return "[DELEGATE:" + a.DelegateTarget + "] " + a.DelegationContext
}
