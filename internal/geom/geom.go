// Package geom holds the planar geometry helpers shared by the graph stages.
// Positions are already projected to a metric grid, so plain Euclidean
// distance is the walking distance between two points.
package geom

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Distance returns the Euclidean distance in meters.
func Distance(a, b orb.Point) float64 { return planar.Distance(a, b) }

// Bounds returns the bounding box of all points, or an empty bound for no points.
func Bounds(pts []orb.Point) orb.Bound {
	if len(pts) == 0 {
		return orb.Bound{}
	}
	return orb.MultiPoint(pts).Bound()
}
