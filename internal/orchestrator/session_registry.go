package orchestrator

import (
	"sync"
	"sync/atomic"
)

// Registry is the explicit worker handle spec.md §9 requires in place
// of fire-and-forget background processing: every session's dispatch
// loop is launched through Launch, and Cancel reaches the running
// loop by flipping the handle's cancelled flag, observed at the next
// turn boundary.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*sessionHandle
	// synchronous runs Launch inline instead of on its own goroutine.
	// Only set by tests, where a deterministic call sequence against a
	// scripted LLM client matters more than background execution.
	synchronous bool
}

type sessionHandle struct {
	mu        sync.Mutex // serializes Initialize/Process/Resume/HandleUserClarification for one session
	cancelled atomic.Bool
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*sessionHandle)}
}

func (r *Registry) handle(sessionID string) *sessionHandle {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.sessions[sessionID]
	if !ok {
		h = &sessionHandle{}
		r.sessions[sessionID] = h
	}
	return h
}

// Lock acquires the per-session mutex and returns the release
// function; callers defer the result.
func (r *Registry) Lock(sessionID string) func() {
	h := r.handle(sessionID)
	h.mu.Lock()
	return h.mu.Unlock
}

// SignalCancel flips the session's cancellation flag. The running
// Process loop (if any) observes it at its next iteration boundary.
func (r *Registry) SignalCancel(sessionID string) {
	r.handle(sessionID).cancelled.Store(true)
}

// Cancelled reports whether Cancel has been signaled for this session.
func (r *Registry) Cancelled(sessionID string) bool {
	return r.handle(sessionID).cancelled.Load()
}

// Launch runs fn on its own goroutine, registered under sessionID.
// This is the tracked counterpart to a bare `go fn()`: Cancel always
// has a handle to signal, even if the caller never awaits this
// goroutine's completion directly.
func (r *Registry) Launch(sessionID string, fn func()) {
	if r.synchronous {
		fn()
		return
	}
	go fn()
}
