// Package paths turns a simplified trail graph into the catalogue of walk-only
// path candidates between pairs of stop areas.
package paths

import (
	"fmt"

	"trailhead-planner/internal/graph"
	"trailhead-planner/internal/hiking"
)

const (
	// MinHike and MaxHike bound the total walk, connector legs included.
	MinHike = 1000.0
	MaxHike = 40000.0
)

// Rejection reasons, also used as metric labels.
const (
	RejectTooShort  = "too_short"
	RejectTooLong   = "too_long"
	RejectConnector = "connector"
)

type Metrics interface {
	PathEmitted()
	PathRejected(reason string)
}

// Report counts candidates per outcome.
type Report struct {
	Sources  int
	Emitted  int
	Rejected map[string]int
}

// Extract searches shortest paths from every stop area and keeps the pairs
// that make a real hike: between MinHike and MaxHike long, and where the two
// connector legs together are no more than half of the walk. Each ordered
// pair (src, dest) yields at most one Path.
func Extract(g *graph.Graph, m Metrics) ([]hiking.Path, Report, error) {
	rep := Report{Rejected: map[string]int{}}
	reject := func(reason string) {
		rep.Rejected[reason]++
		if m != nil {
			m.PathRejected(reason)
		}
	}

	var stops []int
	connector := map[int]float64{}
	for _, n := range g.Nodes() {
		if n.Kind != graph.StopArea {
			continue
		}
		c, err := connectorDist(g, n.ID)
		if err != nil {
			return nil, rep, err
		}
		stops = append(stops, n.ID)
		connector[n.ID] = c
	}

	var out []hiking.Path
	for _, s := range stops {
		rep.Sources++
		tree, err := graph.ShortestPaths(g, s)
		if err != nil {
			return nil, rep, err
		}
		for _, d := range stops {
			if d == s || !tree.Reachable(d) {
				continue
			}
			v := tree.Dist[d]
			switch {
			case v < MinHike:
				reject(RejectTooShort)
				continue
			case v > MaxHike:
				reject(RejectTooLong)
				continue
			}
			if 2*(connector[s]+connector[d]) > v {
				reject(RejectConnector)
				continue
			}
			out = append(out, hiking.Path{
				Dist:     int(v),
				SrcDist:  int(connector[s]),
				DestDist: int(connector[d]),
				Src:      g.Node(s).StopAreaID,
				Dest:     g.Node(d).StopAreaID,
				Stages:   stageLabels(g, tree.PathTo(d)),
			})
			rep.Emitted++
			if m != nil {
				m.PathEmitted()
			}
		}
	}
	return out, rep, nil
}

// connectorDist is the weight of the single edge linking a stop area to the trail.
func connectorDist(g *graph.Graph, n int) (float64, error) {
	inc := g.Incident(n)
	if len(inc) != 1 {
		return 0, fmt.Errorf("stop area %d has %d links, want 1", g.Node(n).StopAreaID, len(inc))
	}
	return inc[0].Weight, nil
}

func stageLabels(g *graph.Graph, route []int) string {
	labels := make([]string, 0, len(route))
	for _, n := range route {
		if node := g.Node(n); node.Kind == graph.TrailPoint {
			labels = append(labels, node.Stage)
		}
	}
	return hiking.JoinLabels(labels)
}
