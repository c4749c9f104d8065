package flowgraph

// markLoops computes the immediate-dominator tree rooted at the entry
// vertex and, for every edge (u, v) where v dominates u, marks it as a
// loop back-edge: sets EdgeDominated on the edge, LoopEntry on v, and
// increments LoopCount.
//
// The dominator computation itself uses the classic iterative
// reverse-postorder fixed-point algorithm (Cooper, Harvey & Kennedy,
// "A Simple, Fast Dominance Algorithm"), which is equivalent in outcome
// to Lengauer-Tarjan for the small, single-function graphs this engine
// operates on, and is considerably simpler to hand-write correctly
// (grounded in the worklist shape of
// other_examples/77767e38_godoctor-godoctor__extras-cfg-df.go.go and
// other_examples/753f879a_junjiewwang-perf-analysis__internal-parser-hprof-dom_hierarchical.go.go).
func (g *Graph) markLoops() {
	n := len(g.Vertices)
	if n == 0 {
		return
	}

	order := g.reversePostorder()
	postIndex := make([]int, n)
	for i, v := range order {
		postIndex[v] = i
	}

	const undefined = -1
	idom := make([]int, n)
	for i := range idom {
		idom[i] = undefined
	}
	idom[g.EntryVertex] = int(g.EntryVertex)

	changed := true
	for changed {
		changed = false
		for _, v := range order {
			if v == g.EntryVertex {
				continue
			}
			newIdom := undefined
			for _, ei := range g.inEdges[v] {
				pred := int(g.Edges[ei].Source)
				if idom[pred] == undefined {
					continue
				}
				if newIdom == undefined {
					newIdom = pred
					continue
				}
				newIdom = intersect(postIndex, idom, newIdom, pred)
			}
			if newIdom != undefined && idom[v] != newIdom {
				idom[v] = newIdom
				changed = true
			}
		}
	}

	// Vertices unreachable from the entry (shouldn't occur in a
	// well-formed CFG, but the codec is a collaborator) never get a
	// predecessor with a defined idom, so they are left at undefined by
	// the fixed-point loop above. Clamp them to the root so dominates'
	// idom-chain walk below always terminates instead of indexing idom
	// with undefined.
	for i := range idom {
		if idom[i] == undefined {
			idom[i] = int(g.EntryVertex)
		}
	}

	for i := range g.Edges {
		e := &g.Edges[i]
		source, target := int(e.Source), int(e.Target)
		if dominates(idom, int(target), source, int(g.EntryVertex)) {
			e.Flags |= EdgeDominated
			g.Vertices[target].Flags |= LoopEntry
			g.LoopCount++
		}
	}
}

// dominates reports whether candidate dominates node, by walking node's
// immediate-dominator chain up to the root.
func dominates(idom []int, candidate, node, root int) bool {
	for node != root {
		if node == candidate {
			return true
		}
		node = idom[node]
	}
	return node == candidate
}

// intersect finds the common ancestor of two nodes in the (partially
// built) dominator tree, per Cooper/Harvey/Kennedy's "intersect"
// procedure. postIndex holds each vertex's position in reverse postorder,
// so the node farther from the entry has the larger index and is the one
// moved up to its immediate dominator.
func intersect(postIndex, idom []int, a, b int) int {
	for a != b {
		for postIndex[a] > postIndex[b] {
			a = idom[a]
		}
		for postIndex[b] > postIndex[a] {
			b = idom[b]
		}
	}
	return a
}

// reversePostorder returns vertex indices in reverse postorder of a DFS
// from the entry vertex, the iteration order the dominance fixed-point
// loop requires for fast convergence. Vertices unreachable from the
// entry are appended afterward so every vertex still gets an order
// index.
func (g *Graph) reversePostorder() []uint32 {
	n := len(g.Vertices)
	visited := make([]bool, n)
	var post []uint32

	var stack []uint32
	var childIdx []int
	stack = append(stack, g.EntryVertex)
	childIdx = append(childIdx, 0)
	visited[g.EntryVertex] = true

	for len(stack) > 0 {
		top := len(stack) - 1
		v := stack[top]
		outs := g.outEdges[v]
		if childIdx[top] < len(outs) {
			ei := outs[childIdx[top]]
			childIdx[top]++
			t := g.Edges[ei].Target
			if !visited[t] {
				visited[t] = true
				stack = append(stack, t)
				childIdx = append(childIdx, 0)
			}
			continue
		}
		post = append(post, v)
		stack = stack[:top]
		childIdx = childIdx[:top]
	}

	// Reverse postorder.
	order := make([]uint32, 0, n)
	for i := len(post) - 1; i >= 0; i-- {
		order = append(order, post[i])
	}
	for i := uint32(0); int(i) < n; i++ {
		if !visited[i] {
			order = append(order, i)
		}
	}
	return order
}
