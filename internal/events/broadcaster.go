// Package events implements the EventBroadcaster contract (spec.md
// §4 roster, §6.3): fan-out of typed EventEnvelope values for one
// session id, at most best-effort — loss of a broadcast never blocks
// or fails the orchestration loop (spec.md §5, back-pressure policy).
package events

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"innerworld-backend/internal/types"
)

// Broadcaster is the external contract the Orchestrator depends on.
type Broadcaster interface {
	Broadcast(ctx context.Context, envelope types.EventEnvelope)
}

// Recorder is an in-process Broadcaster that keeps every envelope it
// receives, used by orchestrator tests to assert on emitted events
// without standing up a transport.
type Recorder struct {
	mu        sync.Mutex
	envelopes []types.EventEnvelope
	sequence  map[string]*uint64
}

// NewRecorder builds an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{sequence: make(map[string]*uint64)}
}

// Broadcast assigns the next per-session sequence number and records
// the envelope.
func (r *Recorder) Broadcast(ctx context.Context, envelope types.EventEnvelope) {
	r.mu.Lock()
	seq, ok := r.sequence[envelope.SessionID]
	if !ok {
		var zero uint64
		seq = &zero
		r.sequence[envelope.SessionID] = seq
	}
	envelope.Sequence = atomic.AddUint64(seq, 1)
	r.envelopes = append(r.envelopes, envelope)
	r.mu.Unlock()
}

// Events returns a snapshot of everything recorded so far, optionally
// filtered to one session.
func (r *Recorder) Events(sessionID string) []types.EventEnvelope {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sessionID == "" {
		out := make([]types.EventEnvelope, len(r.envelopes))
		copy(out, r.envelopes)
		return out
	}

	var out []types.EventEnvelope
	for _, e := range r.envelopes {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out
}

// NoopBroadcaster discards every envelope; useful as a zero-value-safe
// default when no subscriber transport is wired.
type NoopBroadcaster struct{}

func (NoopBroadcaster) Broadcast(ctx context.Context, envelope types.EventEnvelope) {
	log.Printf("events: no broadcaster configured, dropping %s for session %s", envelope.Kind, envelope.SessionID)
}
