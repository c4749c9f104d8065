package flowgraph

// Initialize runs the post-construction analyses required before a flow
// graph can participate in matching: BFS topology levels, MD-index edge
// weights (top-down and bottom-up), call levels, and dominator-based loop
// marking. It is a no-op on a Discarded graph.
func (g *Graph) Initialize() {
	if g.Discarded || len(g.Vertices) == 0 {
		return
	}
	g.calculateTopology()
	g.MDIndex = g.calculateMDIndex(false)
	g.MDIndexInverted = g.calculateMDIndex(true)
	g.calculateCallLevels()
	g.markLoops()
}

// calculateTopology computes BFS top-down levels from the entry vertex
// and BFS bottom-up levels from every exit vertex (a vertex with no
// outgoing edges), storing them per-vertex.
func (g *Graph) calculateTopology() {
	n := len(g.Vertices)
	for i := 0; i < n; i++ {
		g.Vertices[i].BFSTopDown = -1
		g.Vertices[i].BFSBottomUp = -1
	}

	// Top-down, single source: the entry vertex.
	queue := []uint32{g.EntryVertex}
	g.Vertices[g.EntryVertex].BFSTopDown = 0
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		level := g.Vertices[v].BFSTopDown
		for _, ei := range g.outEdges[v] {
			t := g.Edges[ei].Target
			if g.Vertices[t].BFSTopDown == -1 {
				g.Vertices[t].BFSTopDown = level + 1
				queue = append(queue, t)
			}
		}
	}
	// Unreachable vertices (shouldn't occur in a well-formed CFG, but the
	// codec is a collaborator) get level 0 rather than -1 so downstream
	// arithmetic never sees a negative level.
	for i := 0; i < n; i++ {
		if g.Vertices[i].BFSTopDown == -1 {
			g.Vertices[i].BFSTopDown = 0
		}
	}

	// Bottom-up, multi-source: every vertex with no outgoing edges.
	for i := 0; i < n; i++ {
		if len(g.outEdges[i]) == 0 {
			g.Vertices[i].BFSBottomUp = 0
			queue = append(queue, uint32(i))
		}
	}
	if len(queue) == 0 {
		// No exits at all (e.g. an infinite loop with no return) — seed
		// from every vertex with in-degree 0 so the level set is still
		// well defined for the whole function.
		for i := 0; i < n; i++ {
			if g.Vertices[i].BFSBottomUp == -1 && len(g.inEdges[i]) == 0 {
				g.Vertices[i].BFSBottomUp = 0
				queue = append(queue, uint32(i))
			}
		}
	}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		level := g.Vertices[v].BFSBottomUp
		for _, ei := range g.inEdges[v] {
			s := g.Edges[ei].Source
			if g.Vertices[s].BFSBottomUp == -1 {
				g.Vertices[s].BFSBottomUp = level + 1
				queue = append(queue, s)
			}
		}
	}
	for i := 0; i < n; i++ {
		if g.Vertices[i].BFSBottomUp == -1 {
			g.Vertices[i].BFSBottomUp = 0
		}
	}
}

// CallLevel is one (call target address, topology level, sequence within
// block) triple, retained on the flow graph and exposed through
// CallLevels; the call graph's MD index does not read them.
type CallLevel struct {
	Address  uint64
	Level    int
	Sequence int
}

// calculateCallLevels emits (call-target-address, (level, sequence))
// triples for every block with calls, stably sorted by target address.
func (g *Graph) calculateCallLevels() {
	g.callLevels = g.callLevels[:0]
	for i := range g.Vertices {
		targets := g.CallTargetsOf(uint32(i))
		if len(targets) == 0 {
			continue
		}
		level := g.Vertices[i].BFSTopDown
		for seq, t := range targets {
			g.callLevels = append(g.callLevels, CallLevel{
				Address:  uint64(t),
				Level:    level,
				Sequence: seq,
			})
		}
	}
	stableSortCallLevels(g.callLevels)
}

// CallLevels returns the call levels computed by calculateCallLevels.
func (g *Graph) CallLevels() []CallLevel { return g.callLevels }

func stableSortCallLevels(levels []CallLevel) {
	// Simple stable insertion-adjacent sort is fine: function bodies have
	// few calls, and we need stability, which sort.SliceStable already
	// gives us — kept as a named helper so call sites read like the
	// historical "SortByAddressLevel" comparator.
	sortStableByAddress(levels)
}
