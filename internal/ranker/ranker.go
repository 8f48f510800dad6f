// Package ranker combines walk-only path candidates with live transit journeys
// and picks a non-overlapping set of itineraries, best first.
package ranker

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"trailhead-planner/internal/hiking"
	"trailhead-planner/internal/transit"
)

// MaxScore is six hours in seconds, the most a single transit leg can score.
const MaxScore = 21600

const DefaultConcurrency = 8

var ErrBadRequest = errors.New("ranker: bad request")

type Request struct {
	Distance  int // desired total walk, meters
	Tolerance int
	Origin    hiking.StopArea
	// Destination is where the hiker wants to end up. When nil only the
	// outbound leg is planned.
	Destination  *hiking.StopArea
	Departure    time.Time
	WalkingSpeed float64 // meters per hour
}

func (r Request) validate() error {
	switch {
	case r.Distance <= 0:
		return fmt.Errorf("%w: distance must be positive", ErrBadRequest)
	case r.Tolerance < 0:
		return fmt.Errorf("%w: negative tolerance", ErrBadRequest)
	case r.Departure.IsZero():
		return fmt.Errorf("%w: missing departure time", ErrBadRequest)
	case r.Destination != nil && r.WalkingSpeed <= 0:
		return fmt.Errorf("%w: walking speed must be positive", ErrBadRequest)
	}
	return nil
}

// directional reports whether the walk has a fixed sense: the hiker starts
// from one place and ends at another.
func (r Request) directional() bool {
	return r.Destination != nil && r.Destination.ID != r.Origin.ID
}

// Leg is a scored transit journey.
type Leg struct {
	Journey hiking.Journey
	Score   int
}

type Itinerary struct {
	Path     hiking.Path
	Outbound Leg
	Return   *Leg
	Score    int
}

type Metrics interface {
	RoundObserve(tasks int, d time.Duration)
	LookupFailed()
	ItinerariesRanked(n int)
}

type Ranker struct {
	finder      transit.JourneyFinder
	stops       map[int]hiking.StopArea
	concurrency int
	metrics     Metrics
}

// New returns a Ranker querying f. stops resolves the stop area ids found in
// path records; paths touching unknown stop areas are ignored.
func New(f transit.JourneyFinder, stops map[int]hiking.StopArea, concurrency int, m Metrics) *Ranker {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Ranker{finder: f, stops: stops, concurrency: concurrency, metrics: m}
}

// Score rates a journey against the earliest acceptable departure. ok is
// false when the journey leaves before target.
func Score(j hiking.Journey, target time.Time) (score int, ok bool) {
	if j.DepartureTime.Before(target) {
		return 0, false
	}
	travel := int(j.TravelTime() / time.Second)
	wait := int(j.DepartureTime.Sub(target) / time.Second)
	return MaxScore - (2*travel + wait), true
}

// best returns the highest scoring viable journey, the earliest listed one
// winning ties.
func best(js []hiking.Journey, target time.Time) (Leg, bool) {
	var out Leg
	found := false
	for _, j := range js {
		s, ok := Score(j, target)
		if !ok || s <= 0 {
			continue
		}
		if !found || s > out.Score {
			out = Leg{Journey: j, Score: s}
			found = true
		}
	}
	return out, found
}

type query struct {
	from, to hiking.StopArea
	after    time.Time
}

// lookup runs one round of journey queries, at most r.concurrency at a time,
// and returns the best viable leg per query index. Failed queries count as
// having no journeys.
func (r *Ranker) lookup(ctx context.Context, qs []query) map[int]Leg {
	start := time.Now()
	legs := make([]*Leg, len(qs))
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, q := range qs {
		i, q := i, q
		g.Go(func() error {
			js, err := r.finder.QueryJourneys(ctx, q.from, q.to, q.after)
			if err != nil {
				log.Printf("journeys %d -> %d after %s: %v", q.from.ID, q.to.ID, q.after.Format(time.RFC3339), err)
				if r.metrics != nil {
					r.metrics.LookupFailed()
				}
				return nil
			}
			if l, ok := best(js, q.after); ok {
				legs[i] = &l
			}
			return nil
		})
	}
	_ = g.Wait()
	if r.metrics != nil {
		r.metrics.RoundObserve(len(qs), time.Since(start))
	}

	out := make(map[int]Leg, len(qs))
	for i, l := range legs {
		if l != nil {
			out[i] = *l
		}
	}
	return out
}

// candidates filters paths to the distance band and to known stop areas,
// adding reversed walks for directional requests. Output is ordered by
// (src, dest).
func (r *Ranker) candidates(req Request, paths []hiking.Path) []hiking.Path {
	type key struct{ src, dest int }
	seen := map[key]bool{}
	var out []hiking.Path
	add := func(p hiking.Path) {
		k := key{p.Src, p.Dest}
		if seen[k] {
			return
		}
		if _, ok := r.stops[p.Src]; !ok {
			return
		}
		if _, ok := r.stops[p.Dest]; !ok {
			return
		}
		seen[k] = true
		out = append(out, p)
	}
	for _, p := range paths {
		if !inBand(p, req.Distance, req.Tolerance) {
			continue
		}
		add(p)
	}
	if req.directional() {
		for _, p := range paths {
			if inBand(p, req.Distance, req.Tolerance) {
				add(p.Reverse())
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Src != out[j].Src {
			return out[i].Src < out[j].Src
		}
		return out[i].Dest < out[j].Dest
	})
	return out
}

func inBand(p hiking.Path, d, tol int) bool {
	return p.Dist >= d-tol && p.Dist <= d+tol
}

// WalkingTime is how long dist meters take at speed meters per hour.
func WalkingTime(dist int, speed float64) time.Duration {
	return time.Duration(float64(dist) / speed * float64(time.Hour))
}

// Rank plans itineraries for req over the path catalogue. Journeys to every
// candidate trailhead are looked up in one round; when a destination is set a
// second round looks up the way home from every reachable trail end. The
// result is ordered by descending score and never uses a stop area twice.
func (r *Ranker) Rank(ctx context.Context, req Request, paths []hiking.Path) ([]Itinerary, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	cands := r.candidates(req, paths)
	if len(cands) == 0 {
		return nil, nil
	}

	// Round 1: origin to each distinct trailhead.
	var outQs []query
	outIdx := map[int]int{}
	for _, p := range cands {
		if _, ok := outIdx[p.Src]; ok {
			continue
		}
		outIdx[p.Src] = len(outQs)
		outQs = append(outQs, query{from: req.Origin, to: r.stops[p.Src], after: req.Departure})
	}
	outLegs := r.lookup(ctx, outQs)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var its []Itinerary
	for _, p := range cands {
		l, ok := outLegs[outIdx[p.Src]]
		if !ok {
			continue
		}
		its = append(its, Itinerary{Path: p, Outbound: l})
	}

	if req.Destination != nil {
		// Round 2: trail end to destination, leaving once the walk is done.
		type retKey struct {
			dest  int
			after time.Time
		}
		var retQs []query
		retIdx := map[retKey]int{}
		itQ := make([]int, len(its))
		for i, it := range its {
			after := it.Outbound.Journey.ArrivalTime.Add(WalkingTime(it.Path.Dist, req.WalkingSpeed))
			k := retKey{it.Path.Dest, after.UTC()}
			qi, ok := retIdx[k]
			if !ok {
				qi = len(retQs)
				retIdx[k] = qi
				retQs = append(retQs, query{from: r.stops[it.Path.Dest], to: *req.Destination, after: after})
			}
			itQ[i] = qi
		}
		retLegs := r.lookup(ctx, retQs)
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		kept := its[:0]
		for i, it := range its {
			l, ok := retLegs[itQ[i]]
			if !ok {
				continue
			}
			it.Return = &l
			kept = append(kept, it)
		}
		its = kept
	}

	for i := range its {
		it := &its[i]
		it.Score = it.Outbound.Score - it.Path.SrcDist - it.Path.DestDist
		if it.Return != nil {
			it.Score += it.Return.Score
		}
	}
	sort.SliceStable(its, func(i, j int) bool { return its[i].Score > its[j].Score })

	out := selectDisjoint(its, func(it Itinerary) hiking.Path { return it.Path })
	if r.metrics != nil {
		r.metrics.ItinerariesRanked(len(out))
	}
	return out, nil
}

// Closest is the offline search: paths within tolerance of d, closest first,
// never using a stop area twice.
func Closest(paths []hiking.Path, d, tolerance int) []hiking.Path {
	var in []hiking.Path
	for _, p := range paths {
		if inBand(p, d, tolerance) {
			in = append(in, p)
		}
	}
	sort.SliceStable(in, func(i, j int) bool { return abs(in[i].Dist-d) < abs(in[j].Dist-d) })
	return selectDisjoint(in, func(p hiking.Path) hiking.Path { return p })
}

// selectDisjoint walks sorted items and keeps those whose src and dest stop
// areas are both still unused.
func selectDisjoint[T any](sorted []T, path func(T) hiking.Path) []T {
	used := map[int]bool{}
	var out []T
	for _, v := range sorted {
		p := path(v)
		if used[p.Src] || used[p.Dest] {
			continue
		}
		used[p.Src] = true
		used[p.Dest] = true
		out = append(out, v)
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
