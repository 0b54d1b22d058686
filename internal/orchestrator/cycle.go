package orchestrator

import (
	"strings"

	"innerworld-backend/internal/graph"
	"innerworld-backend/internal/types"

	"github.com/agnivade/levenshtein"
)

// defaultCycleWindowTurns is the default lookback window for delegation-cycle
// detection (spec.md §4.5): an edge repeating within the last 3 turns
// with a substantively identical payload is treated as a loop.
const defaultCycleWindowTurns = 3

// defaultCycleSimilarityRatio is the Levenshtein-distance similarity
// threshold above which two payloads are considered the same for
// cycle-detection purposes.
const defaultCycleSimilarityRatio = 0.9

// isDelegationCycle reports whether delegating from -> to with the
// given payload repeats an edge already present in the graph's last
// windowTurns edges, using whitespace-collapsed exact match or a
// Levenshtein similarity ratio >= similarityRatio.
func isDelegationCycle(g *graph.DelegationGraph, from, to types.Persona, payload string, windowTurns int, similarityRatio float64) bool {
	if windowTurns <= 0 {
		windowTurns = defaultCycleWindowTurns
	}
	if similarityRatio <= 0 {
		similarityRatio = defaultCycleSimilarityRatio
	}

	collapsed := collapseWhitespace(payload)
	for _, edge := range g.RecentEdges(windowTurns) {
		if edge.From != from || edge.To != to {
			continue
		}
		if collapseWhitespace(edge.Signature) == collapsed {
			return true
		}
		if similarityRatioFn(edge.Signature, payload) >= similarityRatio {
			return true
		}
	}
	return false
}

// similarityRatioFn returns a 0..1 score where 1 means identical,
// derived from the normalized Levenshtein edit distance between a and
// b (1 - distance/maxLen).
func similarityRatioFn(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
