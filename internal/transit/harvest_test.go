package transit

import (
	"context"
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trailhead-planner/internal/hiking"
)

type fakeLister struct {
	calls  []orb.Point
	radius []int
	byX    map[int][]hiking.StopArea
	failX  map[int]bool
	cancel context.CancelFunc
}

func (f *fakeLister) NearestStopAreas(ctx context.Context, x, y, radius int) ([]hiking.StopArea, error) {
	f.calls = append(f.calls, orb.Point{float64(x), float64(y)})
	f.radius = append(f.radius, radius)
	if f.cancel != nil {
		f.cancel()
	}
	if f.failX[x] {
		return nil, errors.New("boom")
	}
	return f.byX[x], nil
}

func TestSamplePoints(t *testing.T) {
	pts := []orb.Point{{0, 0}, {400, 0}, {1000, 0}, {1500, 0}, {2100, 0}, {2200, 0}}
	got := samplePoints(pts)
	assert.Equal(t, []orb.Point{{2200, 0}, {0, 0}, {1000, 0}, {2100, 0}}, got)

	assert.Nil(t, samplePoints(nil))
	assert.Equal(t, []orb.Point{{5, 5}, {5, 5}}, samplePoints([]orb.Point{{5, 5}}))
}

func TestHarvestMergesAndSkipsFailures(t *testing.T) {
	a := hiking.StopArea{ID: 1, Name: "A", X: 0, Y: 0}
	b := hiking.StopArea{ID: 2, Name: "B", X: 900, Y: 0}
	c := hiking.StopArea{ID: 3, Name: "C", X: 5000, Y: 0}
	l := &fakeLister{
		byX: map[int][]hiking.StopArea{
			0:    {a},
			1000: {a, b},
			5000: {c},
		},
		failX: map[int]bool{6000: true},
	}
	stages := hiking.Stages{
		"1_1": {{0, 0}, {1000, 0}},
		"2_1": {{5000, 0}, {6000, 0}},
	}

	got, err := Harvest(context.Background(), l, stages, 5000)
	require.NoError(t, err)
	assert.Equal(t, map[int]hiking.StopArea{1: a, 2: b, 3: c}, got)

	// 1_1: last, first, 1000. 2_1: last (fails), first, 6000 (fails).
	assert.Len(t, l.calls, 6)
	for _, r := range l.radius {
		assert.Equal(t, 5000, r)
	}
}

func TestHarvestStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := &fakeLister{cancel: cancel}
	stages := hiking.Stages{"1_1": {{0, 0}, {1000, 0}, {2000, 0}}}

	_, err := Harvest(ctx, l, stages, 5000)
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, l.calls, 1)
}
