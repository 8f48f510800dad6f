package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trailhead-planner/internal/hiking"
)

type fakeSource struct {
	mu     sync.Mutex
	latest time.Time
	err    error
	paths  []hiking.Path
	loads  int
}

func (s *fakeSource) Latest(context.Context) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.err
}

func (s *fakeSource) Load(context.Context) ([]hiking.Path, map[int]hiking.StopArea, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	return s.paths, stopCatalogue, nil
}

func (s *fakeSource) set(latest time.Time, paths []hiking.Path) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest, s.paths = latest, paths
}

func TestRefreshLoadsOnlyNewer(t *testing.T) {
	t0 := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{latest: t0}
	h := newHandler(nil)
	r := NewRefresher(src, h, 0, t0)

	changed, err := r.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Zero(t, src.loads)

	src.set(t0.Add(time.Hour), []hiking.Path{{Dist: 3000, Src: 1, Dest: 3, Stages: "4_1"}})
	changed, err = r.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, src.loads)
	assert.Len(t, h.cat.Load().paths, 1)

	changed, err = r.Refresh(context.Background())
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestRefreshPropagatesSourceErrors(t *testing.T) {
	src := &fakeSource{err: errors.New("connection refused")}
	r := NewRefresher(src, newHandler(nil), 0, time.Time{})
	_, err := r.Refresh(context.Background())
	require.Error(t, err)
	assert.Len(t, r.h.cat.Load().paths, len(pathCatalogue))
}

func TestRefresherLoop(t *testing.T) {
	t0 := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{latest: t0.Add(time.Minute), paths: []hiking.Path{}}
	h := newHandler(nil)
	r := NewRefresher(src, h, 5*time.Millisecond, t0)

	r.Start(context.Background())
	assert.Eventually(t, func() bool { return len(h.cat.Load().paths) == 0 }, time.Second, 5*time.Millisecond)
	r.Stop()
}
