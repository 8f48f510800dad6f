package ranker

import (
	"fmt"
	"time"

	"trailhead-planner/internal/hiking"
)

type Report struct {
	Origin      string    `json:"origin,omitempty"`
	Destination string    `json:"destination,omitempty"`
	Distance    int       `json:"distance"`
	Departure   time.Time `json:"departure,omitzero"`
	Entries     []Entry   `json:"entries"`
}

type Entry struct {
	Src      hiking.StopArea `json:"src"`
	Dest     hiking.StopArea `json:"dest"`
	TotalKm  float64         `json:"totalKm"`
	SrcKm    float64         `json:"srcKm"`
	DestKm   float64         `json:"destKm"`
	TrailKm  float64         `json:"trailKm"`
	Trail    string          `json:"trail"`
	Stages   string          `json:"stages"`
	Outbound *LegReport      `json:"outbound,omitempty"`
	Return   *LegReport      `json:"return,omitempty"`
	Score    int             `json:"score"`
}

type LegReport struct {
	Departure time.Time `json:"departure"`
	Arrival   time.Time `json:"arrival"`
	Changes   int       `json:"changes"`
	Score     int       `json:"score"`
}

func legReport(l Leg) *LegReport {
	return &LegReport{
		Departure: l.Journey.DepartureTime,
		Arrival:   l.Journey.ArrivalTime,
		Changes:   l.Journey.Changes,
		Score:     l.Score,
	}
}

func km(m int) float64 { return float64(m) / 1000 }

func entry(p hiking.Path, stops map[int]hiking.StopArea) (Entry, error) {
	trail, err := hiking.Describe(p.Stages)
	if err != nil {
		return Entry{}, fmt.Errorf("path %d -> %d: %w", p.Src, p.Dest, err)
	}
	return Entry{
		Src:     stops[p.Src],
		Dest:    stops[p.Dest],
		TotalKm: km(p.Dist),
		SrcKm:   km(p.SrcDist),
		DestKm:  km(p.DestDist),
		TrailKm: km(p.TrailDist()),
		Trail:   trail,
		Stages:  p.Stages,
	}, nil
}

// NewReport renders ranked itineraries. An unknown trail code in any path is
// an error.
func NewReport(req Request, its []Itinerary, stops map[int]hiking.StopArea) (Report, error) {
	rep := Report{
		Origin:    req.Origin.Name,
		Distance:  req.Distance,
		Departure: req.Departure,
		Entries:   make([]Entry, 0, len(its)),
	}
	if req.Destination != nil {
		rep.Destination = req.Destination.Name
	}
	for _, it := range its {
		e, err := entry(it.Path, stops)
		if err != nil {
			return Report{}, err
		}
		e.Outbound = legReport(it.Outbound)
		if it.Return != nil {
			e.Return = legReport(*it.Return)
		}
		e.Score = it.Score
		rep.Entries = append(rep.Entries, e)
	}
	return rep, nil
}

// NewPathReport renders the result of Closest.
func NewPathReport(distance int, paths []hiking.Path, stops map[int]hiking.StopArea) (Report, error) {
	rep := Report{Distance: distance, Entries: make([]Entry, 0, len(paths))}
	for _, p := range paths {
		e, err := entry(p, stops)
		if err != nil {
			return Report{}, err
		}
		rep.Entries = append(rep.Entries, e)
	}
	return rep, nil
}
