// Package graph holds the trail network: trail points and stop areas joined by
// undirected, weighted edges. Nodes live in an arena and are addressed by
// index; edges store index pairs.
//
// A Graph is owned by exactly one pipeline stage at a time (Build, Simplify,
// shortest-path search) and is not safe for concurrent use.
package graph

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"

	"trailhead-planner/internal/geom"
)

var ErrNodeOutOfRange = errors.New("graph: node index out of range")

type Kind int

const (
	TrailPoint Kind = iota
	StopArea
)

func (k Kind) String() string {
	switch k {
	case TrailPoint:
		return "trail_point"
	case StopArea:
		return "stop_area"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Node is a trail point or a stop area. The kind is fixed at creation.
type Node struct {
	ID  int
	Pos orb.Point

	Kind Kind

	// TrailPoint only
	Stage string
	Along float64 // cumulative distance along the stage, meters

	// StopArea only
	StopAreaID int
}

type Edge struct {
	ID     int
	A, B   int
	Weight float64
}

// Other returns the endpoint of e that is not n.
func (e Edge) Other(n int) int {
	if e.A == n {
		return e.B
	}
	return e.A
}

type Graph struct {
	nodes []Node
	edges []Edge
	alive []bool
	adj   [][]int // node -> incident live edge ids
}

func New() *Graph { return &Graph{} }

func (g *Graph) AddTrailPoint(pos orb.Point, stage string, along float64) int {
	return g.addNode(Node{Pos: pos, Kind: TrailPoint, Stage: stage, Along: along})
}

func (g *Graph) AddStopArea(pos orb.Point, stopAreaID int) int {
	return g.addNode(Node{Pos: pos, Kind: StopArea, StopAreaID: stopAreaID})
}

func (g *Graph) addNode(n Node) int {
	n.ID = len(g.nodes)
	g.nodes = append(g.nodes, n)
	g.adj = append(g.adj, nil)
	return n.ID
}

// AddEdge joins a and b. Parallel edges between the same pair are kept apart.
func (g *Graph) AddEdge(a, b int, weight float64) (int, error) {
	if !g.valid(a) || !g.valid(b) {
		return 0, fmt.Errorf("%w: edge %d-%d", ErrNodeOutOfRange, a, b)
	}
	if weight < 0 {
		return 0, fmt.Errorf("graph: negative weight %f on edge %d-%d", weight, a, b)
	}
	id := len(g.edges)
	g.edges = append(g.edges, Edge{ID: id, A: a, B: b, Weight: weight})
	g.alive = append(g.alive, true)
	g.adj[a] = append(g.adj[a], id)
	if b != a {
		g.adj[b] = append(g.adj[b], id)
	}
	return id, nil
}

// Connect adds an edge weighted by the Euclidean distance between a and b.
func (g *Graph) Connect(a, b int) (int, error) {
	if !g.valid(a) || !g.valid(b) {
		return 0, fmt.Errorf("%w: edge %d-%d", ErrNodeOutOfRange, a, b)
	}
	return g.AddEdge(a, b, geom.Distance(g.nodes[a].Pos, g.nodes[b].Pos))
}

func (g *Graph) RemoveEdge(id int) {
	if id < 0 || id >= len(g.edges) || !g.alive[id] {
		return
	}
	g.alive[id] = false
	e := g.edges[id]
	g.adj[e.A] = without(g.adj[e.A], id)
	g.adj[e.B] = without(g.adj[e.B], id)
}

func without(ids []int, id int) []int {
	for i, x := range ids {
		if x == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func (g *Graph) valid(n int) bool { return n >= 0 && n < len(g.nodes) }

func (g *Graph) Node(n int) Node { return g.nodes[n] }

func (g *Graph) Nodes() []Node { return g.nodes }

func (g *Graph) NodeCount() int { return len(g.nodes) }

func (g *Graph) EdgeCount() int {
	c := 0
	for _, ok := range g.alive {
		if ok {
			c++
		}
	}
	return c
}

// Edges returns the live edges in creation order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for i, e := range g.edges {
		if g.alive[i] {
			out = append(out, e)
		}
	}
	return out
}

// Incident returns the live edges touching n.
func (g *Graph) Incident(n int) []Edge {
	out := make([]Edge, 0, len(g.adj[n]))
	for _, id := range g.adj[n] {
		out = append(out, g.edges[id])
	}
	return out
}

// Degree counts incident edges, so parallel edges count once each.
func (g *Graph) Degree(n int) int { return len(g.adj[n]) }

// Prune drops every node without edges and renumbers the rest, keeping their
// relative order. Edge ids are renumbered as well.
func (g *Graph) Prune() int {
	remap := make([]int, len(g.nodes))
	var nodes []Node
	for i, n := range g.nodes {
		if len(g.adj[i]) == 0 {
			remap[i] = -1
			continue
		}
		remap[i] = len(nodes)
		n.ID = len(nodes)
		nodes = append(nodes, n)
	}
	removed := len(g.nodes) - len(nodes)

	old := g.Edges()
	g.nodes = nodes
	g.edges = nil
	g.alive = nil
	g.adj = make([][]int, len(nodes))
	for _, e := range old {
		// both endpoints have an edge, so neither was dropped
		_, _ = g.AddEdge(remap[e.A], remap[e.B], e.Weight)
	}
	return removed
}

// Stats summarises the graph for logs and metrics.
type Stats struct {
	Nodes       int
	Edges       int
	TrailPoints int
	StopAreas   int
	Extent      orb.Bound
}

func (g *Graph) Stats() Stats {
	s := Stats{Nodes: len(g.nodes), Edges: g.EdgeCount()}
	pts := make([]orb.Point, 0, len(g.nodes))
	for _, n := range g.nodes {
		if n.Kind == StopArea {
			s.StopAreas++
		} else {
			s.TrailPoints++
		}
		pts = append(pts, n.Pos)
	}
	s.Extent = geom.Bounds(pts)
	return s
}

func (s Stats) String() string {
	return fmt.Sprintf("nodes=%d edges=%d trail_points=%d stop_areas=%d extent=%.0fx%.0fm",
		s.Nodes, s.Edges, s.TrailPoints, s.StopAreas,
		s.Extent.Max.X()-s.Extent.Min.X(), s.Extent.Max.Y()-s.Extent.Min.Y())
}
