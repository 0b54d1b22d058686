package graph

import (
	"testing"
	"time"

	"innerworld-backend/internal/types"
)

func TestDelegationGraphRecordsNodesAndEdges(t *testing.T) {
	g := NewDelegationGraph()

	g.CreateNode(types.PersonaCoordinator, 0)
	g.CreateNode(types.PersonaTechnicalArchitect, 1)
	g.CreateEdge(types.PersonaCoordinator, types.PersonaTechnicalArchitect, "assess feasibility", 0, time.Unix(0, 0))

	edges := g.Edges()
	if len(edges) != 1 {
		t.Fatalf("Expected 1 edge, got %d", len(edges))
	}
	if edges[0].From != types.PersonaCoordinator || edges[0].To != types.PersonaTechnicalArchitect {
		t.Errorf("Unexpected edge: %+v", edges[0])
	}
}

func TestDelegationGraphRecentEdgesWindow(t *testing.T) {
	g := NewDelegationGraph()

	for i := 0; i < 5; i++ {
		g.CreateEdge(types.PersonaCoordinator, types.PersonaSeniorDeveloper, "ctx", i, time.Unix(int64(i), 0))
	}

	recent := g.RecentEdges(3)
	if len(recent) != 3 {
		t.Fatalf("Expected 3 recent edges, got %d", len(recent))
	}
	if recent[len(recent)-1].TurnIndex != 4 {
		t.Errorf("Expected most recent edge to be turn 4, got %d", recent[len(recent)-1].TurnIndex)
	}
}

func TestDelegationGraphRecentEdgesClampsToAvailable(t *testing.T) {
	g := NewDelegationGraph()
	g.CreateEdge(types.PersonaCoordinator, types.PersonaSeniorDeveloper, "ctx", 0, time.Unix(0, 0))

	recent := g.RecentEdges(10)
	if len(recent) != 1 {
		t.Fatalf("Expected clamped result of 1 edge, got %d", len(recent))
	}
}
