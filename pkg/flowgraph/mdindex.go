package flowgraph

import (
	"math"
	"sort"
)

// edgeWeight computes the MD-index structural weight of one edge from the
// four degree quantities of its endpoints (out_degree(u), in_degree(u),
// out_degree(v), in_degree(v)) plus the top-down or bottom-up topology
// levels of those endpoints.
//
// The original engine's exact rational function is not part of the
// retrieved source (see DESIGN.md); this implementation uses the
// reciprocal-degree form from the public MD-index literature, with a
// +1 bonus when the edge crosses a topology level (distinguishing
// forward structural edges from same-level/back edges), each degree
// guarded against division by zero. Any formula that is a fixed rational
// function of the same six inputs is conformant.
func edgeWeight(outU, inU, outV, inV int, levelU, levelV int) float64 {
	term := func(d int) float64 {
		if d == 0 {
			return 0
		}
		return 1.0 / math.Sqrt(float64(d))
	}
	w := term(outU) + term(inU) + term(outV) + term(inV)
	if levelU != levelV {
		w += 1.0
	}
	return w
}

// calculateMDIndex computes the function's MD index (top-down if
// inverted is false, bottom-up otherwise) as the sort-before-sum of every
// edge weight, required for determinism under floating-point
// non-associativity.
func (g *Graph) calculateMDIndex(inverted bool) float64 {
	weights := make([]float64, len(g.Edges))
	for i := range g.Edges {
		e := &g.Edges[i]
		u, v := e.Source, e.Target
		var levelU, levelV int
		if inverted {
			levelU, levelV = g.Vertices[u].BFSBottomUp, g.Vertices[v].BFSBottomUp
		} else {
			levelU, levelV = g.Vertices[u].BFSTopDown, g.Vertices[v].BFSTopDown
		}
		w := edgeWeight(g.OutDegree(u), g.InDegree(u), g.OutDegree(v), g.InDegree(v), levelU, levelV)
		weights[i] = w
		if inverted {
			e.MDBottomUp = w
		} else {
			e.MDTopDown = w
		}
	}
	return sortedSum(weights)
}

// sortedSum sorts values ascending before summing, the determinism rule
// applied to every MD-index aggregation in the engine (vertex, flow
// graph, call graph) so floating-point addition order never changes the
// result between runs.
func sortedSum(values []float64) float64 {
	sort.Float64s(values)
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum
}

// VertexMDIndex is the sum of all incident edge MD indices for vertex v
// (top-down if inverted is false), sorted before summation.
func (g *Graph) VertexMDIndex(v uint32, inverted bool) float64 {
	var values []float64
	for _, ei := range g.inEdges[v] {
		if inverted {
			values = append(values, g.Edges[ei].MDBottomUp)
		} else {
			values = append(values, g.Edges[ei].MDTopDown)
		}
	}
	for _, ei := range g.outEdges[v] {
		if inverted {
			values = append(values, g.Edges[ei].MDBottomUp)
		} else {
			values = append(values, g.Edges[ei].MDTopDown)
		}
	}
	return sortedSum(values)
}
