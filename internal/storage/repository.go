// Package storage defines the persistence contract for the
// orchestrator's four aggregates (Sessions, Messages, Memories,
// PersonaConfigurations) and provides two concrete implementations: an
// in-memory store for tests and local runs, and a DynamoDB-backed store
// for the deployable, following the teacher's DynamoDBClient interface
// + mock pattern in spirit.
package storage

import (
	"context"

	"innerworld-backend/internal/types"
)

// SessionRepository persists Session aggregates.
type SessionRepository interface {
	Create(ctx context.Context, session *types.Session) error
	Get(ctx context.Context, sessionID string) (*types.Session, error)
	Update(ctx context.Context, session *types.Session) error
}

// MessageRepository persists the append-only Message log per session.
type MessageRepository interface {
	Append(ctx context.Context, message *types.Message) error
	ListBySession(ctx context.Context, sessionID string) ([]types.Message, error)
}

// MemoryRepository persists per-(session,persona) Memory notes.
type MemoryRepository interface {
	// Upsert writes a memory, overwriting any existing row sharing
	// (SessionID, Persona, Identifier).
	Upsert(ctx context.Context, memory *types.Memory) error
	// Get returns the memory for (session, persona, identifier), or
	// nil if absent.
	Get(ctx context.Context, sessionID string, persona types.Persona, identifier string) (*types.Memory, error)
	// ListByPersona returns every memory recorded for (session,
	// persona), in no particular order; callers sort as needed.
	ListByPersona(ctx context.Context, sessionID string, persona types.Persona) ([]types.Memory, error)
	// Touch increments the access counter and sets last-access time.
	Touch(ctx context.Context, memory *types.Memory) error
}

// PersonaConfigRepository persists the seeded, overridable roster
// configuration. Seeding is idempotent: SeedDefaults is a no-op once
// any persona configuration exists.
type PersonaConfigRepository interface {
	Get(ctx context.Context, persona types.Persona) (*types.PersonaConfiguration, error)
	List(ctx context.Context) ([]types.PersonaConfiguration, error)
	SeedDefaults(ctx context.Context, defaults []types.PersonaConfiguration) error
}

// Repositories bundles the four repository contracts the Orchestrator
// depends on, mirroring how the teacher wires a single DynamoDBClient
// across its handlers.
type Repositories struct {
	Sessions      SessionRepository
	Messages      MessageRepository
	Memories      MemoryRepository
	PersonaConfig PersonaConfigRepository
}
