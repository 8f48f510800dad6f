package graph

// SimplifyReport counts what Simplify removed.
type SimplifyReport struct {
	Collapsed   int // interior trail points bypassed
	PrunedNodes int
	EdgesBefore int
	EdgesAfter  int
}

// Simplify bypasses interior trail points: a trail point with exactly two
// edges, both leading to trail points of its own stage, is replaced by a
// single edge carrying the summed weight. Nodes left without edges, including
// stop areas that were never linked, are then pruned. Shortest-path distances
// between surviving nodes are unchanged.
func Simplify(g *Graph) SimplifyReport {
	rep := SimplifyReport{EdgesBefore: g.EdgeCount()}
	for n := range g.nodes {
		if collapse(g, n) {
			rep.Collapsed++
		}
	}
	rep.PrunedNodes = g.Prune()
	rep.EdgesAfter = g.EdgeCount()
	return rep
}

func collapse(g *Graph, n int) bool {
	self := g.nodes[n]
	if self.Kind != TrailPoint || g.Degree(n) != 2 {
		return false
	}
	inc := g.Incident(n)
	a, b := inc[0].Other(n), inc[1].Other(n)
	if a == b || a == n || b == n {
		return false
	}
	for _, m := range [2]int{a, b} {
		nb := g.nodes[m]
		if nb.Kind != TrailPoint || nb.Stage != self.Stage {
			return false
		}
	}
	g.RemoveEdge(inc[0].ID)
	g.RemoveEdge(inc[1].ID)
	_, _ = g.AddEdge(a, b, inc[0].Weight+inc[1].Weight)
	return true
}
