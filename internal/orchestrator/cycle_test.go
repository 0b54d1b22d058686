package orchestrator

import (
	"testing"
	"time"

	"innerworld-backend/internal/graph"
	"innerworld-backend/internal/types"
)

func TestIsDelegationCycleDetectsExactRepeat(t *testing.T) {
	g := graph.NewDelegationGraph()
	g.CreateEdge(types.PersonaCoordinator, types.PersonaSeniorDeveloper, "implement the cache layer", 0, time.Unix(0, 0))

	if !isDelegationCycle(g, types.PersonaCoordinator, types.PersonaSeniorDeveloper, "implement   the cache layer", 3, 0.9) {
		t.Fatal("Expected whitespace-collapsed identical payload to be flagged as a cycle")
	}
}

func TestIsDelegationCycleDetectsSimilarPayload(t *testing.T) {
	g := graph.NewDelegationGraph()
	g.CreateEdge(types.PersonaCoordinator, types.PersonaSeniorDeveloper, "implement the cache layer for products", 0, time.Unix(0, 0))

	if !isDelegationCycle(g, types.PersonaCoordinator, types.PersonaSeniorDeveloper, "implement the cache layer for product", 3, 0.9) {
		t.Fatal("Expected near-identical payload to be flagged as a cycle")
	}
}

func TestIsDelegationCycleAllowsDistinctPayload(t *testing.T) {
	g := graph.NewDelegationGraph()
	g.CreateEdge(types.PersonaCoordinator, types.PersonaSeniorDeveloper, "implement the cache layer", 0, time.Unix(0, 0))

	if isDelegationCycle(g, types.PersonaCoordinator, types.PersonaSeniorDeveloper, "write the onboarding documentation", 3, 0.9) {
		t.Fatal("Expected a substantively different payload to not be flagged as a cycle")
	}
}

func TestIsDelegationCycleIgnoresOutsideWindow(t *testing.T) {
	g := graph.NewDelegationGraph()
	g.CreateEdge(types.PersonaCoordinator, types.PersonaSeniorDeveloper, "implement the cache layer", 0, time.Unix(0, 0))
	g.CreateEdge(types.PersonaCoordinator, types.PersonaBusinessAnalyst, "gather requirements", 1, time.Unix(1, 0))
	g.CreateEdge(types.PersonaCoordinator, types.PersonaUXEngineer, "sketch the flow", 2, time.Unix(2, 0))
	g.CreateEdge(types.PersonaCoordinator, types.PersonaUIEngineer, "build the component", 3, time.Unix(3, 0))

	if isDelegationCycle(g, types.PersonaCoordinator, types.PersonaSeniorDeveloper, "implement the cache layer", 3, 0.9) {
		t.Fatal("Expected a repeat outside the 3-turn window to not be flagged as a cycle")
	}
}

func TestIsDelegationCycleIgnoresDifferentPersonaPair(t *testing.T) {
	g := graph.NewDelegationGraph()
	g.CreateEdge(types.PersonaCoordinator, types.PersonaSeniorDeveloper, "implement the cache layer", 0, time.Unix(0, 0))

	if isDelegationCycle(g, types.PersonaCoordinator, types.PersonaJuniorDeveloper, "implement the cache layer", 3, 0.9) {
		t.Fatal("Expected a different (from,to) pair to not be flagged as a cycle")
	}
}
