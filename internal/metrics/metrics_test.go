package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trailhead-planner/internal/graph"
	"trailhead-planner/internal/paths"
	"trailhead-planner/internal/publisher"
	"trailhead-planner/internal/ranker"
	"trailhead-planner/internal/transit"
)

var (
	_ paths.Metrics     = (*Collector)(nil)
	_ transit.Metrics   = (*Collector)(nil)
	_ ranker.Metrics    = (*Collector)(nil)
	_ publisher.Metrics = (*Collector)(nil)
)

func TestCollectorCounts(t *testing.T) {
	c := NewCollector()

	c.PathEmitted()
	c.PathEmitted()
	c.PathRejected(paths.RejectTooShort)
	c.RequestObserve(transit.EndpointJourneys, 20*time.Millisecond, nil)
	c.RequestObserve(transit.EndpointJourneys, 20*time.Millisecond, errors.New("boom"))
	c.CacheHit(transit.EndpointNearest)
	c.LookupFailed()
	c.ItinerariesRanked(3)
	c.Build(graph.BuildReport{
		Stitches: []graph.Stitch{{Joined: true}, {Joined: false}, {Joined: true}},
		Links:    []graph.Link{{}, {}},
		Unlinked: []int{7},
	})
	c.Graph("simplified", graph.Stats{Nodes: 12, Edges: 11})
	c.NATSSetConnected(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.PathsEmitted))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.PathsRejected.WithLabelValues(paths.RejectTooShort)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ProviderRequests.WithLabelValues(transit.EndpointJourneys, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ProviderRequests.WithLabelValues(transit.EndpointJourneys, "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.CacheHits.WithLabelValues(transit.EndpointNearest)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.LookupFailures))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.Itineraries))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.Stitched))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Unstitched))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Unlinked))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.LinkedStopAreas))
	assert.Equal(t, 12.0, testutil.ToFloat64(c.GraphNodes.WithLabelValues("simplified")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.NATSConnected))
}

func TestHandlerExposesRegistry(t *testing.T) {
	c := NewCollector()
	c.PathEmitted()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "paths_emitted_total 1")
}
