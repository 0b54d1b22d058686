// Package persona seeds the ten-role roster's default configuration
// and drives each turn through the LLM (PersonaEngine). The loader is
// grounded on the teacher's PersonaLoader: an in-memory default set,
// with room for a Repository-backed override per spec.md §4.3/§6.4.
package persona

import (
	"context"
	"log"

	"innerworld-backend/internal/storage"
	"innerworld-backend/internal/types"
)

// defaultSystemPrompt builds a role-flavored system prompt following
// the teacher's FormatPersonaPrompt convention: tone + boundaries
// baked into the prompt text up front.
func defaultSystemPrompt(role types.Persona, tone, focus string) string {
	return "You are the " + string(role) + " on a ten-role software delivery team working a single " +
		"problem end to end. Tone: " + tone + ". Focus: " + focus + ". " +
		"Respond using the team's tag grammar: [DELEGATE:<PersonaName>] to hand work to a teammate, " +
		"[CLARIFY] to ask the user a question, [SOLUTION] when the overall problem is resolved, " +
		"[STUCK] when you cannot proceed, [DECLINE] when a request is outside your role. " +
		"Use [STORE:<identifier>] to leave yourself a note for later turns and [REMEMBER:<identifier>] " +
		"to recall one. Wrap private deliberation in [REASONING]...[/REASONING]."
}

// Defaults returns the seeded PersonaConfiguration for all ten roles,
// enabled and sorted per types.Roster order, as spec.md §3 requires
// ("all ten roles must exist and be enabled for the default flow").
func Defaults() []types.PersonaConfiguration {
	specs := []struct {
		role  types.Persona
		name  string
		tone  string
		focus string
	}{
		{types.PersonaCoordinator, "Coordinator", "decisive, synthesizing", "breaking the problem into delegate-able work and compiling the final solution"},
		{types.PersonaBusinessAnalyst, "Business Analyst", "inquisitive, precise", "clarifying requirements, constraints, and success criteria"},
		{types.PersonaTechnicalArchitect, "Technical Architect", "pragmatic, systems-minded", "system design, technology choices, and integration risk"},
		{types.PersonaSeniorDeveloper, "Senior Developer", "confident, detail-oriented", "core implementation and nontrivial edge cases"},
		{types.PersonaJuniorDeveloper, "Junior Developer", "eager, careful", "scoped implementation tasks and following established patterns"},
		{types.PersonaSeniorQA, "Senior QA Engineer", "skeptical, thorough", "test strategy and identifying failure modes"},
		{types.PersonaJuniorQA, "Junior QA Engineer", "methodical, attentive", "writing and running concrete test cases"},
		{types.PersonaUXEngineer, "UX Engineer", "empathetic, user-focused", "user flows and interaction design"},
		{types.PersonaUIEngineer, "UI Engineer", "visual, consistency-minded", "interface layout, styling, and component structure"},
		{types.PersonaDocumentWriter, "Document Writer", "clear, concise", "writing the final user-facing documentation and summaries"},
	}

	out := make([]types.PersonaConfiguration, 0, len(specs))
	for i, s := range specs {
		out = append(out, types.PersonaConfiguration{
			Persona:      s.role,
			DisplayName:  s.name,
			Model:        "anthropic/claude-3.5-sonnet",
			SystemPrompt: defaultSystemPrompt(s.role, s.tone, s.focus),
			Temperature:  0.7,
			MaxTokens:    800,
			Enabled:      true,
			SortOrder:    i,
		})
	}
	return out
}

// Loader resolves persona display names to canonical roster personas
// and loads their seeded configuration, through the Repository
// contract so operators can override prompts/models without a
// redeploy.
type Loader struct {
	repo storage.PersonaConfigRepository
}

// New builds a Loader and seeds the default roster if the repository
// is empty (idempotent, per spec.md §6.4).
func New(ctx context.Context, repo storage.PersonaConfigRepository) (*Loader, error) {
	if err := repo.SeedDefaults(ctx, Defaults()); err != nil {
		return nil, types.NewError(types.ErrInternal, "failed to seed persona configurations", err)
	}
	return &Loader{repo: repo}, nil
}

// Load returns the configuration for a roster persona.
func (l *Loader) Load(ctx context.Context, role types.Persona) (*types.PersonaConfiguration, error) {
	cfg, err := l.repo.Get(ctx, role)
	if err != nil {
		return nil, err
	}
	if !cfg.Enabled {
		log.Printf("persona loader: %s is disabled but was requested", role)
	}
	return cfg, nil
}

// Resolver is a synchronous, pre-loaded snapshot of the roster's
// canonical names. ResponseParser must stay a pure function (no I/O),
// so name resolution is snapshotted once per turn via BuildResolver
// rather than hitting the repository from inside Parse.
type Resolver struct {
	byNormalizedName map[string]string
}

// CanonicalName implements parser.Resolver.
func (r Resolver) CanonicalName(spoken string) (string, bool) {
	name, ok := r.byNormalizedName[normalize(spoken)]
	return name, ok
}

// BuildResolver loads the current roster and returns a Resolver
// snapshot for use by ResponseParser.Parse.
func (l *Loader) BuildResolver(ctx context.Context) (Resolver, error) {
	configs, err := l.repo.List(ctx)
	if err != nil {
		return Resolver{}, err
	}
	byName := make(map[string]string, len(configs)*2)
	for _, cfg := range configs {
		byName[normalize(string(cfg.Persona))] = string(cfg.Persona)
		byName[normalize(cfg.DisplayName)] = string(cfg.Persona)
	}
	return Resolver{byNormalizedName: byName}, nil
}

func normalize(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '-' || r == '_' {
			continue
		}
		if r >= 'A' && r <= 'Z' {
			r = r + ('a' - 'A')
		}
		out = append(out, r)
	}
	return string(out)
}
