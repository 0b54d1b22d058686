// Package types defines the domain entities shared across the
// orchestrator: sessions, messages, memories, and persona
// configuration. Entities here are rich, internal shapes; see dto.go
// for the trimmed records exposed to subscribers and callers.
package types

import "time"

// SessionStatus is the closed set of states a Session can occupy.
type SessionStatus string

const (
	SessionActive                SessionStatus = "active"
	SessionWaitingForClarification SessionStatus = "waiting_for_clarification"
	SessionCompleted             SessionStatus = "completed"
	SessionStuck                 SessionStatus = "stuck"
	SessionCancelled             SessionStatus = "cancelled"
	SessionError                 SessionStatus = "error"
	SessionInterrupted           SessionStatus = "interrupted"
)

// Terminal reports whether status has no outbound transitions.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

// Persona is one of the ten fixed roles driving a session, or User.
type Persona string

const (
	PersonaUser                Persona = "User"
	PersonaCoordinator         Persona = "Coordinator"
	PersonaBusinessAnalyst     Persona = "BusinessAnalyst"
	PersonaTechnicalArchitect  Persona = "TechnicalArchitect"
	PersonaSeniorDeveloper     Persona = "SeniorDeveloper"
	PersonaJuniorDeveloper     Persona = "JuniorDeveloper"
	PersonaSeniorQA            Persona = "SeniorQA"
	PersonaJuniorQA            Persona = "JuniorQA"
	PersonaUXEngineer          Persona = "UXEngineer"
	PersonaUIEngineer          Persona = "UIEngineer"
	PersonaDocumentWriter      Persona = "DocumentWriter"
)

// Roster is the fixed ten-persona lineup seeded at startup, in the
// default sort order new PersonaConfiguration rows receive.
var Roster = []Persona{
	PersonaCoordinator,
	PersonaBusinessAnalyst,
	PersonaTechnicalArchitect,
	PersonaSeniorDeveloper,
	PersonaJuniorDeveloper,
	PersonaSeniorQA,
	PersonaJuniorQA,
	PersonaUXEngineer,
	PersonaUIEngineer,
	PersonaDocumentWriter,
}

// MessageKind is the closed set of conversation entry kinds.
type MessageKind string

const (
	KindProblemStatement MessageKind = "problem_statement"
	KindQuestion         MessageKind = "question"
	KindAnswer           MessageKind = "answer"
	KindDelegation       MessageKind = "delegation"
	KindClarification    MessageKind = "clarification"
	KindUserResponse     MessageKind = "user_response"
	KindSolution         MessageKind = "solution"
	KindStuck            MessageKind = "stuck"
	KindDecline          MessageKind = "decline"
)

// Session is the root aggregate for one problem-solving conversation.
type Session struct {
	ID              string
	Title           string
	Problem         string
	Status          SessionStatus
	FinalSolution   string
	CurrentPersona  Persona
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasCurrentPersona mirrors the invariant that currentPersona is set
// iff status is Active or WaitingForClarification.
func (s *Session) HasCurrentPersona() bool {
	return s.Status == SessionActive || s.Status == SessionWaitingForClarification
}

// Message is an append-only entry in a session's conversation.
type Message struct {
	ID                 string
	SessionID          string
	FromPersona        Persona
	ToPersona          Persona // optional, zero value means unset
	Content             string
	Kind                MessageKind
	InternalReasoning   string
	Timestamp           time.Time
	ParentMessageID     string
	DelegateTarget      Persona
	DelegationContext   string
	Stuck               bool
	RawResponse         string
}

// Memory is a session-scoped persona note.
type Memory struct {
	ID           string
	SessionID    string
	Persona      Persona
	Identifier   string
	Content      string
	CreatedAt    time.Time
	AccessCount  int
	LastAccessAt *time.Time
}

// PersonaConfiguration is the static-but-overridable per-persona
// setting set, seeded once at startup.
type PersonaConfiguration struct {
	Persona      Persona
	DisplayName  string
	Model        string
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	Enabled      bool
	SortOrder    int
}
