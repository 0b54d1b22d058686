package memory

import (
	"context"
	"strings"
	"testing"

	"innerworld-backend/internal/storage"
	"innerworld-backend/internal/types"
)

func newTestStore() *Store {
	return New(storage.NewInMemoryMemoryRepository(), nil)
}

func TestStoreTrimsAndUpserts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	mem, err := s.Store(ctx, "sess-1", types.PersonaSeniorDeveloper, "  budget-ceiling  ", "  capped at $50k  ")
	if err != nil {
		t.Fatalf("Store() failed: %v", err)
	}
	if mem.Identifier != "budget-ceiling" || mem.Content != "capped at $50k" {
		t.Fatalf("Expected trimmed identifier/content, got %q / %q", mem.Identifier, mem.Content)
	}

	updated, err := s.Store(ctx, "sess-1", types.PersonaSeniorDeveloper, "budget-ceiling", "raised to $75k")
	if err != nil {
		t.Fatalf("Store() overwrite failed: %v", err)
	}
	if updated.ID != mem.ID {
		t.Errorf("Expected overwrite to reuse the existing memory id, got new id %s vs %s", updated.ID, mem.ID)
	}

	found, err := s.GetByIdentifier(ctx, "sess-1", types.PersonaSeniorDeveloper, "budget-ceiling")
	if err != nil {
		t.Fatalf("GetByIdentifier() failed: %v", err)
	}
	if found == nil || found.Content != "raised to $75k" {
		t.Fatalf("Expected overwritten content, got %+v", found)
	}
}

// TestStoreRejectsEmptyIdentifier is boundary case B-empty: identifier
// must not be empty after trimming.
func TestStoreRejectsEmptyIdentifier(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	_, err := s.Store(ctx, "sess-1", types.PersonaSeniorDeveloper, "   ", "some content")
	if !types.IsKind(err, types.ErrInvalidInput) {
		t.Fatalf("Expected ErrInvalidInput for empty identifier, got %v", err)
	}
}

// TestStoreIdentifierTokenBoundary is B1: exactly 10 tokens accepted,
// 11 tokens rejected.
func TestStoreIdentifierTokenBoundary(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	tenTokens := strings.Repeat("tok ", 10)
	if _, err := s.Store(ctx, "sess-1", types.PersonaSeniorDeveloper, tenTokens, "content"); err != nil {
		t.Fatalf("Expected 10-token identifier to be accepted, got %v", err)
	}

	elevenTokens := strings.Repeat("tok ", 11)
	if _, err := s.Store(ctx, "sess-1", types.PersonaSeniorDeveloper, elevenTokens, "content"); !types.IsKind(err, types.ErrInvalidInput) {
		t.Fatalf("Expected 11-token identifier to be rejected with ErrInvalidInput, got %v", err)
	}
}

// TestStoreContentTokenBoundary is B2: exactly 2000 tokens accepted,
// 2001 tokens rejected.
func TestStoreContentTokenBoundary(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	within := strings.Repeat("w ", 2000)
	if _, err := s.Store(ctx, "sess-1", types.PersonaSeniorDeveloper, "id", within); err != nil {
		t.Fatalf("Expected 2000-token content to be accepted, got %v", err)
	}

	over := strings.Repeat("w ", 2001)
	if _, err := s.Store(ctx, "sess-1", types.PersonaSeniorDeveloper, "id2", over); !types.IsKind(err, types.ErrInvalidInput) {
		t.Fatalf("Expected 2001-token content to be rejected with ErrInvalidInput, got %v", err)
	}
}

func TestGetRecentDefaultLimit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	for i := 0; i < 15; i++ {
		if _, err := s.Store(ctx, "sess-1", types.PersonaSeniorDeveloper, identifierFor(i), "content"); err != nil {
			t.Fatalf("Store() failed for item %d: %v", i, err)
		}
	}

	recent, err := s.GetRecent(ctx, "sess-1", types.PersonaSeniorDeveloper, 0)
	if err != nil {
		t.Fatalf("GetRecent() failed: %v", err)
	}
	if len(recent) != maxRecent {
		t.Fatalf("Expected default limit of %d, got %d", maxRecent, len(recent))
	}
}

func TestSearchIsCaseInsensitiveSubstring(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	if _, err := s.Store(ctx, "sess-1", types.PersonaSeniorDeveloper, "auth-flow", "Uses OAuth2 PKCE for mobile clients"); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}

	results, err := s.Search(ctx, "sess-1", types.PersonaSeniorDeveloper, "oauth2")
	if err != nil {
		t.Fatalf("Search() failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 search result, got %d", len(results))
	}
}

// TestMemoryIsolatedPerSessionAndPersona is R3: memories never leak
// across sessions or across personas within the same session.
func TestMemoryIsolatedPerSessionAndPersona(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	if _, err := s.Store(ctx, "sess-1", types.PersonaSeniorDeveloper, "shared-id", "dev note"); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}
	if _, err := s.Store(ctx, "sess-2", types.PersonaSeniorDeveloper, "shared-id", "other session note"); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}
	if _, err := s.Store(ctx, "sess-1", types.PersonaJuniorQA, "shared-id", "qa note"); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}

	mem, err := s.GetByIdentifier(ctx, "sess-1", types.PersonaSeniorDeveloper, "shared-id")
	if err != nil {
		t.Fatalf("GetByIdentifier() failed: %v", err)
	}
	if mem == nil || mem.Content != "dev note" {
		t.Fatalf("Expected session/persona-scoped isolation, got %+v", mem)
	}
}

func TestSimilarMemoriesFallsBackToSearchWithoutEmbeddingsClient(t *testing.T) {
	ctx := context.Background()
	s := newTestStore()

	if _, err := s.Store(ctx, "sess-1", types.PersonaSeniorDeveloper, "auth-flow", "Uses OAuth2 PKCE for mobile clients"); err != nil {
		t.Fatalf("Store() failed: %v", err)
	}

	results, err := s.SimilarMemories(ctx, "sess-1", types.PersonaSeniorDeveloper, "oauth2", 5)
	if err != nil {
		t.Fatalf("SimilarMemories() failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected fallback substring match to find 1 result, got %d", len(results))
	}
}

func identifierFor(i int) string {
	return "item-" + string(rune('a'+i))
}
