// Package graph tracks the delegation hand-offs within a single
// session, for cycle detection (spec.md §4.5) and for a read-only
// diagnostic view of how a session's work was routed between
// personas. It is strictly session-scoped: unlike the teacher's
// NeptuneClient (a cross-session user-graph cache keyed by userID),
// nothing here is read across sessions, since spec.md's Non-goals
// explicitly exclude cross-session memory.
package graph

import (
	"sync"
	"time"

	"innerworld-backend/internal/types"
)

// DelegationGraph is one session's append-only trace of
// persona-to-persona hand-offs, adapting the teacher's
// CreateNode/CreateEdge interface idiom (internal/graph/neptune.go)
// from a cross-session Neptune-backed store into an in-memory,
// per-session structure owned by the Orchestrator.
type DelegationGraph struct {
	mu    sync.Mutex
	nodes []Node
	edges []types.DelegationEdge
}

// Node is one visited-persona record, analogous to the teacher's
// Neptune node concept but scoped to a turn within one session.
type Node struct {
	Persona   types.Persona
	TurnIndex int
}

// NewDelegationGraph builds an empty graph for one session.
func NewDelegationGraph() *DelegationGraph {
	return &DelegationGraph{}
}

// CreateNode records a persona's participation in the session at the
// given turn.
func (g *DelegationGraph) CreateNode(persona types.Persona, turnIndex int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes = append(g.nodes, Node{Persona: persona, TurnIndex: turnIndex})
}

// CreateEdge records a Delegation hand-off.
func (g *DelegationGraph) CreateEdge(from, to types.Persona, signature string, turnIndex int, timestamp time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edges = append(g.edges, types.DelegationEdge{From: from, To: to, Signature: signature, TurnIndex: turnIndex, Timestamp: timestamp})
}

// RecentEdges returns the last n edges recorded, most recent last —
// the window the cycle-detection heuristic inspects.
func (g *DelegationGraph) RecentEdges(n int) []types.DelegationEdge {
	g.mu.Lock()
	defer g.mu.Unlock()

	if n <= 0 || n > len(g.edges) {
		n = len(g.edges)
	}
	out := make([]types.DelegationEdge, n)
	copy(out, g.edges[len(g.edges)-n:])
	return out
}

// Edges returns every edge recorded so far, for the read-only
// diagnostic view of a session's routing.
func (g *DelegationGraph) Edges() []types.DelegationEdge {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]types.DelegationEdge, len(g.edges))
	copy(out, g.edges)
	return out
}
