package graph

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/paulmach/orb"

	"trailhead-planner/internal/geom"
	"trailhead-planner/internal/hiking"
)

const (
	// StitchRadius is the farthest a stage endpoint is joined to another stage.
	StitchRadius = 250.0
	// LinkRadius bounds the walk from a trail point to its nearest stop area.
	LinkRadius = 5000.0

	// Stop areas served only by on-demand local traffic carry this in their name.
	localServiceMarker = "Närtrafik"
)

// Stitch records an endpoint that was joined to another stage, or, when
// Joined is false, one that had nothing within StitchRadius.
type Stitch struct {
	Node    int
	Stage   string
	Nearest int // -1 when no other stage exists
	Dist    float64
	Joined  bool
}

type Link struct {
	StopAreaID int
	StopArea   int
	TrailPoint int
	Dist       float64
}

// BuildReport lists the non-fatal outcomes of Build for diagnostics.
type BuildReport struct {
	Stitches      []Stitch
	Links         []Link
	LocalExcluded []int // stop area ids dropped by the local service filter
	Unlinked      []int // stop area ids that no trail point chose
}

func (r BuildReport) Unstitched() []Stitch {
	var out []Stitch
	for _, s := range r.Stitches {
		if !s.Joined {
			out = append(out, s)
		}
	}
	return out
}

// IsLocalService reports whether a stop area only has short-range local service.
func IsLocalService(sa hiking.StopArea) bool {
	return strings.Contains(sa.Name, localServiceMarker)
}

// Build creates the initial graph: one chain of trail points per stage,
// endpoints stitched to nearby stages and each stop area linked to at most one
// trail point. Unlinked stop areas are still present and isolated; Simplify
// prunes them.
func Build(stages hiking.Stages, stopAreas map[int]hiking.StopArea) (*Graph, BuildReport, error) {
	g := New()
	var rep BuildReport

	labels := make([]string, 0, len(stages))
	for label := range stages {
		if _, err := hiking.ParseStage(label); err != nil {
			return nil, rep, fmt.Errorf("stage %q: %w", label, err)
		}
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		addStage(g, label, stages[label])
	}

	rep.Stitches = stitchEndpoints(g)

	ids := make([]int, 0, len(stopAreas))
	for id := range stopAreas {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	var keep []hiking.StopArea
	for _, id := range ids {
		sa := stopAreas[id]
		if IsLocalService(sa) {
			rep.LocalExcluded = append(rep.LocalExcluded, sa.ID)
			continue
		}
		keep = append(keep, sa)
	}
	rep.Links, rep.Unlinked = linkStopAreas(g, keep)
	return g, rep, nil
}

func addStage(g *Graph, label string, pts []orb.Point) {
	prev := -1
	along := 0.0
	for _, p := range pts {
		if prev >= 0 {
			along += geom.Distance(g.nodes[prev].Pos, p)
		}
		n := g.AddTrailPoint(p, label, along)
		if prev >= 0 {
			_, _ = g.Connect(prev, n)
		}
		prev = n
	}
}

func stitchEndpoints(g *Graph) []Stitch {
	var endpoints []int
	for i := range g.nodes {
		if g.Degree(i) < 2 {
			endpoints = append(endpoints, i)
		}
	}

	var out []Stitch
	for _, n := range endpoints {
		// an earlier stitch may already have joined this one
		if g.Degree(n) >= 2 {
			continue
		}
		self := g.nodes[n]
		nearest, d := closest(g, self.Pos, func(c Node) bool {
			return c.Kind == TrailPoint && c.Stage != self.Stage
		})
		s := Stitch{Node: n, Stage: self.Stage, Nearest: nearest, Dist: d}
		if nearest >= 0 && d <= StitchRadius {
			_, _ = g.AddEdge(n, nearest, d)
			s.Joined = true
		}
		out = append(out, s)
	}
	return out
}

func linkStopAreas(g *Graph, stopAreas []hiking.StopArea) ([]Link, []int) {
	if len(stopAreas) == 0 {
		return nil, nil
	}
	trailPoints := len(g.nodes)
	saNodes := make([]int, 0, len(stopAreas))
	for _, sa := range stopAreas {
		saNodes = append(saNodes, g.AddStopArea(sa.Point(), sa.ID))
	}

	// every trail point registers with its nearest stop area
	best := make(map[int]Link, len(saNodes))
	for tp := 0; tp < trailPoints; tp++ {
		pos := g.nodes[tp].Pos
		sa, d := -1, math.Inf(1)
		for _, n := range saNodes {
			if dd := geom.Distance(pos, g.nodes[n].Pos); dd < d {
				sa, d = n, dd
			}
		}
		if sa < 0 || d >= LinkRadius {
			continue
		}
		// keep the closest registration per stop area, first one on ties
		if cur, ok := best[sa]; !ok || d < cur.Dist {
			best[sa] = Link{StopAreaID: g.nodes[sa].StopAreaID, StopArea: sa, TrailPoint: tp, Dist: d}
		}
	}

	var links []Link
	var unlinked []int
	for _, n := range saNodes {
		l, ok := best[n]
		if !ok {
			unlinked = append(unlinked, g.nodes[n].StopAreaID)
			continue
		}
		_, _ = g.AddEdge(l.StopArea, l.TrailPoint, l.Dist)
		links = append(links, l)
	}
	return links, unlinked
}

// closest scans every node accepted by match and returns the nearest one,
// or -1 and +Inf when none match.
func closest(g *Graph, p orb.Point, match func(Node) bool) (int, float64) {
	best, bestD := -1, math.Inf(1)
	for _, n := range g.nodes {
		if !match(n) {
			continue
		}
		if d := geom.Distance(p, n.Pos); d < bestD {
			best, bestD = n.ID, d
		}
	}
	return best, bestD
}
