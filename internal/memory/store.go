// Package memory implements MemoryStore (spec.md §4.2): the
// per-(session,persona) identifier→content notebook personas read and
// write via STORE/REMEMBER directives. Limits are enforced here;
// persistence is delegated to the storage.MemoryRepository contract.
package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"innerworld-backend/internal/storage"
	"innerworld-backend/internal/types"
)

func now() time.Time { return time.Now() }

const (
	maxIdentifierTokens = 10
	maxContentTokens    = 2000
	maxRecent           = 10
	maxSearchResults    = 10
)

// EmbeddingsClient is the subset of the OpenAI embeddings client the
// supplemental SimilarMemories method depends on. Kept narrow (plain
// vectors in, a score out) so MemoryStore can be exercised in tests
// without an API key and so internal/embeddings's concrete client can
// satisfy it via a thin adapter.
type EmbeddingsClient interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	CalculateCosineSimilarity(a, b []float32) float32
}

// Store is the MemoryStore implementation.
type Store struct {
	repo       storage.MemoryRepository
	embeddings EmbeddingsClient
}

// New builds a Store. embeddings may be nil, in which case
// SimilarMemories falls back to substring Search.
func New(repo storage.MemoryRepository, embeddings EmbeddingsClient) *Store {
	return &Store{repo: repo, embeddings: embeddings}
}

// Store trims whitespace, enforces the identifier/content token caps,
// and upserts on (session, persona, identifier).
func (s *Store) Store(ctx context.Context, sessionID string, persona types.Persona, identifier, content string) (*types.Memory, error) {
	identifier = strings.TrimSpace(identifier)
	content = strings.TrimSpace(content)

	if identifier == "" {
		return nil, types.NewError(types.ErrInvalidInput, "memory identifier must not be empty", nil)
	}
	if n := len(strings.Fields(identifier)); n > maxIdentifierTokens {
		return nil, types.NewError(types.ErrInvalidInput, "memory identifier exceeds 10 whitespace-separated tokens", nil)
	}
	if n := len(strings.Fields(content)); n > maxContentTokens {
		return nil, types.NewError(types.ErrInvalidInput, "memory content exceeds 2000 whitespace-separated tokens", nil)
	}

	existing, err := s.repo.Get(ctx, sessionID, persona, identifier)
	if err != nil {
		return nil, types.NewError(types.ErrTransientBackend, "memory lookup failed", err)
	}

	mem := &types.Memory{
		SessionID:  sessionID,
		Persona:    persona,
		Identifier: identifier,
		Content:    content,
		CreatedAt:  now(),
	}
	if existing != nil {
		mem.ID = existing.ID
		mem.AccessCount = existing.AccessCount
		mem.LastAccessAt = existing.LastAccessAt
	}

	if err := s.repo.Upsert(ctx, mem); err != nil {
		return nil, types.NewError(types.ErrTransientBackend, "memory write failed", err)
	}
	return mem, nil
}

// GetRecent returns up to n memories ordered by creation time
// descending, incrementing access counters on every returned entry. n
// defaults to 10 when <= 0.
func (s *Store) GetRecent(ctx context.Context, sessionID string, persona types.Persona, n int) ([]types.Memory, error) {
	if n <= 0 {
		n = maxRecent
	}

	all, err := s.repo.ListByPersona(ctx, sessionID, persona)
	if err != nil {
		return nil, types.NewError(types.ErrTransientBackend, "memory list failed", err)
	}

	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	if len(all) > n {
		all = all[:n]
	}

	for i := range all {
		_ = s.repo.Touch(ctx, &all[i])
	}
	return all, nil
}

// GetByIdentifier returns the memory for (session, persona,
// identifier), or nil if absent, incrementing the access counter when
// found.
func (s *Store) GetByIdentifier(ctx context.Context, sessionID string, persona types.Persona, identifier string) (*types.Memory, error) {
	mem, err := s.repo.Get(ctx, sessionID, persona, identifier)
	if err != nil {
		return nil, types.NewError(types.ErrTransientBackend, "memory lookup failed", err)
	}
	if mem == nil {
		return nil, nil
	}
	_ = s.repo.Touch(ctx, mem)
	return mem, nil
}

// Search performs a case-insensitive substring match across
// identifier and content, returning up to 10 results ordered by
// creation time descending.
func (s *Store) Search(ctx context.Context, sessionID string, persona types.Persona, query string) ([]types.Memory, error) {
	all, err := s.repo.ListByPersona(ctx, sessionID, persona)
	if err != nil {
		return nil, types.NewError(types.ErrTransientBackend, "memory list failed", err)
	}

	needle := strings.ToLower(query)
	var matched []types.Memory
	for _, m := range all {
		if strings.Contains(strings.ToLower(m.Identifier), needle) || strings.Contains(strings.ToLower(m.Content), needle) {
			matched = append(matched, m)
		}
	}

	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	if len(matched) > maxSearchResults {
		matched = matched[:maxSearchResults]
	}
	return matched, nil
}

// SimilarMemories is the supplemental, non-normative ranking method
// described in SPEC_FULL.md §4.2: it ranks a persona's memories by
// embedding cosine similarity to query, scoped to a single session.
// When no embeddings client is configured it falls back to Search.
func (s *Store) SimilarMemories(ctx context.Context, sessionID string, persona types.Persona, query string, limit int) ([]types.Memory, error) {
	if s.embeddings == nil {
		return s.Search(ctx, sessionID, persona, query)
	}
	if limit <= 0 {
		limit = maxRecent
	}

	all, err := s.repo.ListByPersona(ctx, sessionID, persona)
	if err != nil {
		return nil, types.NewError(types.ErrTransientBackend, "memory list failed", err)
	}
	if len(all) == 0 {
		return nil, nil
	}

	queryEmbedding, err := s.embeddings.Embed(ctx, query)
	if err != nil {
		return s.Search(ctx, sessionID, persona, query)
	}

	type scored struct {
		mem   types.Memory
		score float32
	}
	ranked := make([]scored, 0, len(all))
	for _, m := range all {
		memEmbedding, err := s.embeddings.Embed(ctx, m.Identifier+": "+m.Content)
		if err != nil {
			continue
		}
		ranked = append(ranked, scored{mem: m, score: s.embeddings.CalculateCosineSimilarity(queryEmbedding, memEmbedding)})
	}

	sort.Slice(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]types.Memory, len(ranked))
	for i, r := range ranked {
		out[i] = r.mem
	}
	return out, nil
}
