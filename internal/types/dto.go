package types

import "time"

// SessionSummary is the trimmed, externally-serializable view of a
// Session. Internal Session entities are never serialized directly to
// subscribers or API callers; a SessionSummary is built at the
// boundary instead (see DESIGN.md, internal/types).
type SessionSummary struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Status         SessionStatus `json:"status"`
	CurrentPersona Persona       `json:"currentPersona,omitempty"`
	FinalSolution  string        `json:"finalSolution,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// NewSessionSummary builds the trimmed DTO from an internal Session.
func NewSessionSummary(s *Session) SessionSummary {
	return SessionSummary{
		ID:             s.ID,
		Title:          s.Title,
		Status:         s.Status,
		CurrentPersona: s.CurrentPersona,
		FinalSolution:  s.FinalSolution,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

// MessageView is the trimmed, externally-serializable view of a
// Message, broadcast to subscribers on MessageReceived.
type MessageView struct {
	ID                string      `json:"id"`
	SessionID         string      `json:"sessionId"`
	FromPersona       Persona     `json:"fromPersona"`
	ToPersona         Persona     `json:"toPersona,omitempty"`
	Content           string      `json:"content"`
	Kind              MessageKind `json:"kind"`
	Timestamp         time.Time   `json:"timestamp"`
	ParentMessageID   string      `json:"parentMessageId,omitempty"`
	DelegateTarget    Persona     `json:"delegateTarget,omitempty"`
	DelegationContext string      `json:"delegationContext,omitempty"`
	Stuck             bool        `json:"stuck,omitempty"`
}

// NewMessageView builds the trimmed DTO from an internal Message.
func NewMessageView(m *Message) MessageView {
	return MessageView{
		ID:                m.ID,
		SessionID:         m.SessionID,
		FromPersona:       m.FromPersona,
		ToPersona:         m.ToPersona,
		Content:           m.Content,
		Kind:              m.Kind,
		Timestamp:         m.Timestamp,
		ParentMessageID:   m.ParentMessageID,
		DelegateTarget:    m.DelegateTarget,
		DelegationContext: m.DelegationContext,
		Stuck:             m.Stuck,
	}
}

// EventKind is the closed set of event kinds delivered to subscribers.
type EventKind string

const (
	EventMessageReceived        EventKind = "message_received"
	EventSessionStatusChanged   EventKind = "session_status_changed"
	EventClarificationRequested EventKind = "clarification_requested"
	EventSolutionReady          EventKind = "solution_ready"
	EventSessionStuck           EventKind = "session_stuck"
)

// EventEnvelope is the wire shape delivered to subscribers of one
// session's event stream. Sequence is monotonic per session and lets
// the delivery side detect gaps; loss of a broadcast is allowed
// (best-effort) but never silently renumbers past events.
type EventEnvelope struct {
	Kind          EventKind      `json:"kind"`
	SessionID     string         `json:"sessionId"`
	Sequence      uint64         `json:"sequence"`
	Timestamp     time.Time      `json:"timestamp"`
	Session       SessionSummary `json:"session,omitempty"`
	Message       *MessageView   `json:"message,omitempty"`
	PartialResults string        `json:"partialResults,omitempty"`
}

// DelegationEdge records one Delegation hand-off for a session's
// DelegationGraph: who delegated to whom, with what payload, on which
// turn. It is the basis for the last-3-turns cycle-detection window
// and is never consulted across sessions.
type DelegationEdge struct {
	From      Persona
	To        Persona
	Signature string
	TurnIndex int
	Timestamp time.Time
}
