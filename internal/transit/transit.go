// Package transit talks to the public transport provider: it resolves stop
// areas by name or position and looks up journeys between two stop areas.
package transit

import (
	"context"
	"errors"
	"time"

	"trailhead-planner/internal/hiking"
)

var (
	ErrStopAreaNotFound = errors.New("transit: stop area not found")
	ErrProvider         = errors.New("transit: provider error")
)

// Provider is what the rest of the system needs from the transport provider.
type Provider interface {
	LookupStopArea(ctx context.Context, name string) (hiking.StopArea, error)
	NearestStopArea(ctx context.Context, x, y, radius int) (hiking.StopArea, error)
	JourneyFinder
}

// JourneyFinder returns journeys from one stop area to another departing at or after a time.
type JourneyFinder interface {
	QueryJourneys(ctx context.Context, from, to hiking.StopArea, departAfter time.Time) ([]hiking.Journey, error)
}

// Metrics receives per-request observations. Endpoint is one of the
// Endpoint* constants.
type Metrics interface {
	RequestObserve(endpoint string, d time.Duration, err error)
	CacheHit(endpoint string)
}

const (
	EndpointStation  = "querystation"
	EndpointNearest  = "neareststation"
	EndpointJourneys = "resultspage"
)
