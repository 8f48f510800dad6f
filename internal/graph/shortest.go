package graph

import (
	"container/heap"
	"fmt"
	"math"
)

// Tree is the result of a single-source shortest-path search.
type Tree struct {
	Source int
	Dist   []float64 // +Inf when unreachable
	Prev   []int     // predecessor node on a shortest path, -1 for source and unreachable
}

func (t Tree) Reachable(n int) bool { return !math.IsInf(t.Dist[n], 1) }

// PathTo returns the node sequence from the source to n, or nil if n is unreachable.
func (t Tree) PathTo(n int) []int {
	if !t.Reachable(n) {
		return nil
	}
	var rev []int
	for cur := n; cur >= 0; cur = t.Prev[cur] {
		rev = append(rev, cur)
	}
	for i, j := 0, len(rev)-1; i < j; i, j = i+1, j-1 {
		rev[i], rev[j] = rev[j], rev[i]
	}
	return rev
}

// ShortestPaths runs Dijkstra from src over the undirected graph. Weights are
// non-negative by construction (AddEdge rejects negatives).
func ShortestPaths(g *Graph, src int) (Tree, error) {
	if !g.valid(src) {
		return Tree{}, fmt.Errorf("%w: source %d", ErrNodeOutOfRange, src)
	}
	r := &runner{
		g:       g,
		dist:    make([]float64, len(g.nodes)),
		prev:    make([]int, len(g.nodes)),
		visited: make([]bool, len(g.nodes)),
	}
	r.init(src)
	r.process()
	return Tree{Source: src, Dist: r.dist, Prev: r.prev}, nil
}

type runner struct {
	g       *Graph
	dist    []float64
	prev    []int
	visited []bool
	pq      nodePQ
}

func (r *runner) init(src int) {
	for i := range r.dist {
		r.dist[i] = math.Inf(1)
		r.prev[i] = -1
	}
	r.dist[src] = 0
	heap.Init(&r.pq)
	heap.Push(&r.pq, &nodeItem{id: src, dist: 0})
}

func (r *runner) process() {
	for r.pq.Len() > 0 {
		item := heap.Pop(&r.pq).(*nodeItem)
		u := item.id
		// stale entry, lazy decrease-key
		if r.visited[u] {
			continue
		}
		r.visited[u] = true
		r.relax(u)
	}
}

func (r *runner) relax(u int) {
	for _, id := range r.g.adj[u] {
		e := r.g.edges[id]
		v := e.Other(u)
		nd := r.dist[u] + e.Weight
		if nd >= r.dist[v] {
			continue
		}
		r.dist[v] = nd
		r.prev[v] = u
		heap.Push(&r.pq, &nodeItem{id: v, dist: nd})
	}
}

type nodeItem struct {
	id   int
	dist float64
}

// nodePQ is a min-heap ordered by dist.
type nodePQ []*nodeItem

func (pq nodePQ) Len() int           { return len(pq) }
func (pq nodePQ) Less(i, j int) bool { return pq[i].dist < pq[j].dist }
func (pq nodePQ) Swap(i, j int)      { pq[i], pq[j] = pq[j], pq[i] }

func (pq *nodePQ) Push(x interface{}) { *pq = append(*pq, x.(*nodeItem)) }

func (pq *nodePQ) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return item
}
