package hiking

import (
	"time"

	"github.com/paulmach/orb"
)

// Stages maps a stage label (e.g. "5_1") to its ordered, projected track points.
type Stages map[string][]orb.Point

type StopArea struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	X    int    `json:"x"` // planar, meters
	Y    int    `json:"y"`
}

func (s StopArea) Point() orb.Point { return orb.Point{float64(s.X), float64(s.Y)} }

// Path is a walk-only candidate between two stop areas via the trail network.
// Distances are whole meters.
type Path struct {
	Dist     int    `json:"dist"`     // total, including both connector legs
	SrcDist  int    `json:"srcdist"`  // src stop area -> trail
	DestDist int    `json:"destdist"` // trail -> dest stop area
	Src      int    `json:"src"`
	Dest     int    `json:"dest"`
	Stages   string `json:"etapp"` // e.g. "5_1;5_2"
}

// TrailDist is the distance walked on the trail itself.
func (p Path) TrailDist() int { return p.Dist - p.SrcDist - p.DestDist }

// Reverse returns the same walk in the opposite direction.
func (p Path) Reverse() Path {
	return Path{
		Dist:     p.Dist,
		SrcDist:  p.DestDist,
		DestDist: p.SrcDist,
		Src:      p.Dest,
		Dest:     p.Src,
		Stages:   reverseLabels(p.Stages),
	}
}

type Journey struct {
	DepartureTime time.Time `json:"departureTime"`
	ArrivalTime   time.Time `json:"arrivalTime"`
	Changes       int       `json:"changes"`
}

func (j Journey) TravelTime() time.Duration { return j.ArrivalTime.Sub(j.DepartureTime) }
