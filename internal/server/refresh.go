package server

import (
	"context"
	"log"
	"sync"
	"time"

	"trailhead-planner/internal/hiking"
)

// CatalogueSource is where a newer catalogue can come from.
type CatalogueSource interface {
	// Latest reports when the current catalogue was stored.
	Latest(ctx context.Context) (time.Time, error)
	Load(ctx context.Context) ([]hiking.Path, map[int]hiking.StopArea, error)
}

// Refresher polls a CatalogueSource and swaps newer catalogues into a Handler.
type Refresher struct {
	src      CatalogueSource
	h        *Handler
	interval time.Duration

	mu     sync.Mutex
	loaded time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRefresher returns a Refresher for h whose current catalogue was stored at loaded.
func NewRefresher(src CatalogueSource, h *Handler, interval time.Duration, loaded time.Time) *Refresher {
	return &Refresher{src: src, h: h, interval: interval, loaded: loaded}
}

// Start launches the polling loop. It is a no-op when interval is not positive.
func (r *Refresher) Start(parent context.Context) {
	if r.interval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	r.cancel = cancel
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := r.Refresh(ctx); err != nil {
					log.Printf("refresh catalogue error: %v", err)
				}
			}
		}
	}()
}

func (r *Refresher) Stop() {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
}

// Refresh loads the catalogue if the source holds a newer one than the
// Handler serves, and reports whether it did.
func (r *Refresher) Refresh(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	latest, err := r.src.Latest(ctx)
	if err != nil {
		return false, err
	}
	if !latest.After(r.loaded) {
		return false, nil
	}
	paths, stops, err := r.src.Load(ctx)
	if err != nil {
		return false, err
	}
	r.h.SetCatalogue(paths, stops)
	log.Printf("catalogue reloaded: %d paths, %d stop areas (stored %s)", len(paths), len(stops), latest.Format(time.RFC3339))
	r.loaded = latest
	return true, nil
}
