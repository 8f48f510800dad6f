// Package server exposes itinerary ranking over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"

	"trailhead-planner/internal/hiking"
	"trailhead-planner/internal/ranker"
	"trailhead-planner/internal/transit"
)

type StopResolver interface {
	LookupStopArea(ctx context.Context, name string) (hiking.StopArea, error)
}

type Publisher interface {
	PublishReport(rep ranker.Report) error
}

type Options struct {
	Stops         StopResolver
	Finder        transit.JourneyFinder
	Concurrency   int
	RankerMetrics ranker.Metrics // optional
	Tolerance     int
	WalkingSpeed  float64
	Location      *time.Location
	Publisher     Publisher    // optional
	Metrics       http.Handler // optional, served on /metrics
}

// catalogue is swapped as a whole when a newer one is loaded.
type catalogue struct {
	paths  []hiking.Path
	stops  map[int]hiking.StopArea
	ranker *ranker.Ranker
}

type Handler struct {
	opts Options
	cat  atomic.Pointer[catalogue]
}

func New(opts Options, paths []hiking.Path, stops map[int]hiking.StopArea) *Handler {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	h := &Handler{opts: opts}
	h.SetCatalogue(paths, stops)
	return h
}

// SetCatalogue replaces the path and stop-area catalogues used by later
// requests. Requests in flight keep the catalogue they started with.
func (h *Handler) SetCatalogue(paths []hiking.Path, stops map[int]hiking.StopArea) {
	h.cat.Store(&catalogue{
		paths:  paths,
		stops:  stops,
		ranker: ranker.New(h.opts.Finder, stops, h.opts.Concurrency, h.opts.RankerMetrics),
	})
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/itineraries", h.Itineraries).Methods("GET")
	router.HandleFunc("/healthz", h.Healthz).Methods("GET")
	if h.opts.Metrics != nil {
		router.Handle("/metrics", h.opts.Metrics).Methods("GET")
	}
}

func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	cat := h.cat.Load()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"paths":     len(cat.paths),
		"stopAreas": len(cat.stops),
	})
}

// Itineraries ranks itineraries for ?distance=&from=&to=&depart=. Without
// depart it falls back to the distance-only search.
func (h *Handler) Itineraries(w http.ResponseWriter, r *http.Request) {
	cat := h.cat.Load()
	q := r.URL.Query()
	distance, err := strconv.Atoi(q.Get("distance"))
	if err != nil || distance <= 0 {
		httpError(w, http.StatusBadRequest, "distance must be a positive number of meters")
		return
	}
	tolerance := h.opts.Tolerance
	if v := q.Get("tolerance"); v != "" {
		if tolerance, err = strconv.Atoi(v); err != nil || tolerance < 0 {
			httpError(w, http.StatusBadRequest, "invalid tolerance")
			return
		}
	}

	if q.Get("depart") == "" {
		found := ranker.Closest(cat.paths, distance, tolerance)
		rep, err := ranker.NewPathReport(distance, found, cat.stops)
		if err != nil {
			httpError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, rep)
		return
	}

	depart, err := time.ParseInLocation(time.RFC3339, q.Get("depart"), h.opts.Location)
	if err != nil {
		httpError(w, http.StatusBadRequest, "depart must be RFC3339")
		return
	}
	if q.Get("from") == "" {
		httpError(w, http.StatusBadRequest, "from is required with depart")
		return
	}

	origin, ok := h.resolve(w, r.Context(), q.Get("from"))
	if !ok {
		return
	}
	req := ranker.Request{
		Distance:     distance,
		Tolerance:    tolerance,
		Origin:       origin,
		Departure:    depart,
		WalkingSpeed: h.opts.WalkingSpeed,
	}
	if to := q.Get("to"); to != "" {
		dest, ok := h.resolve(w, r.Context(), to)
		if !ok {
			return
		}
		req.Destination = &dest
	}

	its, err := cat.ranker.Rank(r.Context(), req, cat.paths)
	if err != nil {
		if errors.Is(err, ranker.ErrBadRequest) {
			httpError(w, http.StatusBadRequest, err.Error())
			return
		}
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rep, err := ranker.NewReport(req, its, cat.stops)
	if err != nil {
		httpError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if h.opts.Publisher != nil {
		if err := h.opts.Publisher.PublishReport(rep); err != nil {
			log.Printf("publish report for %q: %v", origin.Name, err)
		}
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *Handler) resolve(w http.ResponseWriter, ctx context.Context, name string) (hiking.StopArea, bool) {
	sa, err := h.opts.Stops.LookupStopArea(ctx, name)
	switch {
	case err == nil:
		return sa, true
	case errors.Is(err, transit.ErrStopAreaNotFound):
		httpError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, transit.ErrProvider):
		httpError(w, http.StatusBadGateway, err.Error())
	default:
		httpError(w, http.StatusInternalServerError, err.Error())
	}
	return hiking.StopArea{}, false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func httpError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
