package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trailhead-planner/internal/hiking"
	"trailhead-planner/internal/ranker"
	"trailhead-planner/internal/transit"
)

type fakeStops map[string]hiking.StopArea

func (f fakeStops) LookupStopArea(_ context.Context, name string) (hiking.StopArea, error) {
	if name == "down" {
		return hiking.StopArea{}, fmt.Errorf("%w: HTTP 503", transit.ErrProvider)
	}
	sa, ok := f[name]
	if !ok {
		return hiking.StopArea{}, fmt.Errorf("%w: %q", transit.ErrStopAreaNotFound, name)
	}
	return sa, nil
}

type fakeFinder struct{}

func (fakeFinder) QueryJourneys(_ context.Context, from, to hiking.StopArea, after time.Time) ([]hiking.Journey, error) {
	dep := after.Add(10 * time.Minute)
	return []hiking.Journey{{DepartureTime: dep, ArrivalTime: dep.Add(40 * time.Minute)}}, nil
}

type recordingPublisher struct {
	reports []ranker.Report
	err     error
}

func (p *recordingPublisher) PublishReport(rep ranker.Report) error {
	p.reports = append(p.reports, rep)
	return p.err
}

var stopCatalogue = map[int]hiking.StopArea{
	1: {ID: 1, Name: "Kivik Centrum"},
	2: {ID: 2, Name: "Brösarp"},
	3: {ID: 3, Name: "Vitemölla"},
}

var pathCatalogue = []hiking.Path{
	{Dist: 12000, SrcDist: 300, DestDist: 200, Src: 1, Dest: 2, Stages: "4_1;4_2"},
	{Dist: 6000, SrcDist: 100, DestDist: 100, Src: 1, Dest: 3, Stages: "4_1"},
}

func newHandler(pub Publisher) *Handler {
	stops := fakeStops{
		"Malmö": {ID: 100, Name: "Malmö C"},
		"Lund":  {ID: 200, Name: "Lund C"},
	}
	return New(Options{
		Stops:        stops,
		Finder:       fakeFinder{},
		Concurrency:  2,
		Tolerance:    1000,
		WalkingSpeed: 4000,
		Location:     time.UTC,
		Publisher:    pub,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "paths_emitted_total 0")
		}),
	}, pathCatalogue, stopCatalogue)
}

func get(t *testing.T, h *Handler, url string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	return rec
}

func TestItinerariesRanked(t *testing.T) {
	pub := &recordingPublisher{}
	h := newHandler(pub)

	rec := get(t, h, "/itineraries?distance=12000&from=Malm%C3%B6&to=Lund&depart=2026-05-16T08:00:00Z")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var rep ranker.Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rep))
	assert.Equal(t, "Malmö C", rep.Origin)
	assert.Equal(t, "Lund C", rep.Destination)
	require.NotEmpty(t, rep.Entries)
	assert.NotNil(t, rep.Entries[0].Outbound)
	assert.NotNil(t, rep.Entries[0].Return)

	require.Len(t, pub.reports, 1)
	assert.Equal(t, rep.Origin, pub.reports[0].Origin)
}

func TestItinerariesPublishFailureIsNotFatal(t *testing.T) {
	h := newHandler(&recordingPublisher{err: errors.New("nats: connection closed")})
	rec := get(t, h, "/itineraries?distance=6000&from=Lund&depart=2026-05-16T08:00:00Z")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestItinerariesDistanceOnly(t *testing.T) {
	h := newHandler(nil)
	rec := get(t, h, "/itineraries?distance=6200")
	require.Equal(t, http.StatusOK, rec.Code)

	var rep ranker.Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rep))
	require.Len(t, rep.Entries, 1)
	assert.Equal(t, "Vitemölla", rep.Entries[0].Dest.Name)
	assert.Equal(t, "Österlenleden etapp 1", rep.Entries[0].Trail)
	assert.Nil(t, rep.Entries[0].Outbound)
}

func TestItinerariesErrors(t *testing.T) {
	h := newHandler(nil)
	const at = "&depart=2026-05-16T08:00:00Z"
	cases := []struct {
		url  string
		want int
	}{
		{"/itineraries", http.StatusBadRequest},
		{"/itineraries?distance=abc", http.StatusBadRequest},
		{"/itineraries?distance=5000&tolerance=-3", http.StatusBadRequest},
		{"/itineraries?distance=5000&depart=tomorrow&from=Lund", http.StatusBadRequest},
		{"/itineraries?distance=5000" + at, http.StatusBadRequest},
		{"/itineraries?distance=5000&from=Atlantis" + at, http.StatusNotFound},
		{"/itineraries?distance=5000&from=Lund&to=Atlantis" + at, http.StatusNotFound},
		{"/itineraries?distance=5000&from=down" + at, http.StatusBadGateway},
	}
	for _, c := range cases {
		t.Run(c.url, func(t *testing.T) {
			rec := get(t, h, c.url)
			assert.Equal(t, c.want, rec.Code, rec.Body.String())
			var body map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	h := newHandler(nil)

	rec := get(t, h, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, 2.0, body["paths"])

	rec = get(t, h, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "paths_emitted_total")

	rec = httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/itineraries?distance=5000", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSetCatalogue(t *testing.T) {
	h := newHandler(nil)
	h.SetCatalogue([]hiking.Path{{Dist: 20000, Src: 2, Dest: 3, Stages: "2_4"}}, stopCatalogue)

	rec := get(t, h, "/itineraries?distance=20000")
	require.Equal(t, http.StatusOK, rec.Code)
	var rep ranker.Report
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rep))
	require.Len(t, rep.Entries, 1)
	assert.Equal(t, "Nord-sydleden etapp 4", rep.Entries[0].Trail)

	rec = get(t, h, "/healthz")
	assert.Contains(t, rec.Body.String(), `"paths":1`)
}
