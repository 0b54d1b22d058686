package storage

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"innerworld-backend/internal/types"

	"github.com/google/uuid"
)

// InMemorySessionRepository is the teacher's MockDynamoDBClient pattern
// applied to the Session aggregate: a mutex-guarded map, used for
// local runs and tests when Config.DynamoDB.InMemory is true.
type InMemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]types.Session
}

func NewInMemorySessionRepository() *InMemorySessionRepository {
	return &InMemorySessionRepository{sessions: make(map[string]types.Session)}
}

func (r *InMemorySessionRepository) Create(ctx context.Context, session *types.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if session.ID == "" {
		session.ID = "session_" + uuid.New().String()
	}
	r.sessions[session.ID] = *session
	log.Printf("InMemorySessionRepository: created session %s", session.ID)
	return nil
}

func (r *InMemorySessionRepository) Get(ctx context.Context, sessionID string) (*types.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return nil, types.NewError(types.ErrNotFound, fmt.Sprintf("session %s not found", sessionID), nil)
	}
	return &session, nil
}

func (r *InMemorySessionRepository) Update(ctx context.Context, session *types.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[session.ID]; !ok {
		return types.NewError(types.ErrNotFound, fmt.Sprintf("session %s not found", session.ID), nil)
	}
	r.sessions[session.ID] = *session
	return nil
}

// InMemoryMessageRepository appends messages per session, mirroring
// the teacher's conversations map keyed by session id.
type InMemoryMessageRepository struct {
	mu       sync.RWMutex
	messages map[string][]types.Message
}

func NewInMemoryMessageRepository() *InMemoryMessageRepository {
	return &InMemoryMessageRepository{messages: make(map[string][]types.Message)}
}

func (r *InMemoryMessageRepository) Append(ctx context.Context, message *types.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if message.ID == "" {
		message.ID = "msg_" + uuid.New().String()
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}
	r.messages[message.SessionID] = append(r.messages[message.SessionID], *message)
	return nil
}

func (r *InMemoryMessageRepository) ListBySession(ctx context.Context, sessionID string) ([]types.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	msgs := r.messages[sessionID]
	out := make([]types.Message, len(msgs))
	copy(out, msgs)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

// InMemoryMemoryRepository backs the MemoryStore in tests and local
// runs. Keyed by session+persona+identifier to enforce the uniqueness
// invariant spec.md §3 requires.
type InMemoryMemoryRepository struct {
	mu       sync.RWMutex
	memories map[string]map[types.Persona]map[string]types.Memory
}

func NewInMemoryMemoryRepository() *InMemoryMemoryRepository {
	return &InMemoryMemoryRepository{memories: make(map[string]map[types.Persona]map[string]types.Memory)}
}

func (r *InMemoryMemoryRepository) Upsert(ctx context.Context, memory *types.Memory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if memory.ID == "" {
		memory.ID = "mem_" + uuid.New().String()
	}
	byPersona, ok := r.memories[memory.SessionID]
	if !ok {
		byPersona = make(map[types.Persona]map[string]types.Memory)
		r.memories[memory.SessionID] = byPersona
	}
	byIdent, ok := byPersona[memory.Persona]
	if !ok {
		byIdent = make(map[string]types.Memory)
		byPersona[memory.Persona] = byIdent
	}

	if existing, found := byIdent[memory.Identifier]; found {
		memory.ID = existing.ID
		memory.AccessCount = existing.AccessCount
	}
	byIdent[memory.Identifier] = *memory
	return nil
}

func (r *InMemoryMemoryRepository) Get(ctx context.Context, sessionID string, persona types.Persona, identifier string) (*types.Memory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byIdent, ok := r.memories[sessionID][persona]
	if !ok {
		return nil, nil
	}
	mem, ok := byIdent[identifier]
	if !ok {
		return nil, nil
	}
	return &mem, nil
}

func (r *InMemoryMemoryRepository) ListByPersona(ctx context.Context, sessionID string, persona types.Persona) ([]types.Memory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byIdent := r.memories[sessionID][persona]
	out := make([]types.Memory, 0, len(byIdent))
	for _, m := range byIdent {
		out = append(out, m)
	}
	return out, nil
}

func (r *InMemoryMemoryRepository) Touch(ctx context.Context, memory *types.Memory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	byIdent, ok := r.memories[memory.SessionID][memory.Persona]
	if !ok {
		return nil
	}
	existing, ok := byIdent[memory.Identifier]
	if !ok {
		return nil
	}
	now := time.Now()
	existing.AccessCount++
	existing.LastAccessAt = &now
	byIdent[memory.Identifier] = existing
	memory.AccessCount = existing.AccessCount
	memory.LastAccessAt = existing.LastAccessAt
	return nil
}

// InMemoryPersonaConfigRepository holds the seeded, overridable roster.
type InMemoryPersonaConfigRepository struct {
	mu      sync.RWMutex
	configs map[types.Persona]types.PersonaConfiguration
}

func NewInMemoryPersonaConfigRepository() *InMemoryPersonaConfigRepository {
	return &InMemoryPersonaConfigRepository{configs: make(map[types.Persona]types.PersonaConfiguration)}
}

func (r *InMemoryPersonaConfigRepository) Get(ctx context.Context, persona types.Persona) (*types.PersonaConfiguration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.configs[persona]
	if !ok {
		return nil, types.NewError(types.ErrNotFound, fmt.Sprintf("persona %s not configured", persona), nil)
	}
	return &cfg, nil
}

func (r *InMemoryPersonaConfigRepository) List(ctx context.Context) ([]types.PersonaConfiguration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.PersonaConfiguration, 0, len(r.configs))
	for _, cfg := range r.configs {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SortOrder < out[j].SortOrder })
	return out, nil
}

func (r *InMemoryPersonaConfigRepository) SeedDefaults(ctx context.Context, defaults []types.PersonaConfiguration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.configs) > 0 {
		log.Printf("InMemoryPersonaConfigRepository: seed skipped, %d personas already configured", len(r.configs))
		return nil
	}
	for _, cfg := range defaults {
		r.configs[cfg.Persona] = cfg
	}
	log.Printf("InMemoryPersonaConfigRepository: seeded %d personas", len(defaults))
	return nil
}

// NewInMemoryRepositories bundles the four in-memory implementations,
// the default wiring for local runs and tests (Config.DynamoDB.InMemory
// == true).
func NewInMemoryRepositories() *Repositories {
	return &Repositories{
		Sessions:      NewInMemorySessionRepository(),
		Messages:      NewInMemoryMessageRepository(),
		Memories:      NewInMemoryMemoryRepository(),
		PersonaConfig: NewInMemoryPersonaConfigRepository(),
	}
}
