package transit

import (
	"context"
	"log"
	"sort"

	"github.com/paulmach/orb"

	"trailhead-planner/internal/geom"
	"trailhead-planner/internal/hiking"
)

// HarvestSpacing is the minimum straight-line distance between two sampled
// points of a stage.
const HarvestSpacing = 1000.0

type NearbyLister interface {
	NearestStopAreas(ctx context.Context, x, y, radius int) ([]hiking.StopArea, error)
}

// Harvest builds a stop-area catalogue by asking the provider for stop areas
// near both ends of every stage and near points sampled along it. A failed
// sample is logged and skipped; only context cancellation aborts.
func Harvest(ctx context.Context, l NearbyLister, stages hiking.Stages, radius int) (map[int]hiking.StopArea, error) {
	labels := make([]string, 0, len(stages))
	for label := range stages {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	out := make(map[int]hiking.StopArea)
	for _, label := range labels {
		samples := samplePoints(stages[label])
		log.Printf("stage %s: %d samples", label, len(samples))
		for _, p := range samples {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			found, err := l.NearestStopAreas(ctx, int(p.X()), int(p.Y()), radius)
			if err != nil {
				log.Printf("nearest stop areas at (%.0f, %.0f) on stage %s: %v", p.X(), p.Y(), label, err)
				continue
			}
			for _, sa := range found {
				out[sa.ID] = sa
			}
		}
	}
	return out, nil
}

// samplePoints returns the last point, the first point and then every point
// at least HarvestSpacing from the previously sampled one.
func samplePoints(pts []orb.Point) []orb.Point {
	if len(pts) == 0 {
		return nil
	}
	out := []orb.Point{pts[len(pts)-1], pts[0]}
	last := pts[0]
	for _, p := range pts[1:] {
		if geom.Distance(last, p) < HarvestSpacing {
			continue
		}
		out = append(out, p)
		last = p
	}
	return out
}
