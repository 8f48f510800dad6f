package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"trailhead-planner/internal/graph"
)

type Collector struct {
	reg *prometheus.Registry

	GraphNodes      *prometheus.GaugeVec // stage label: built|simplified
	GraphEdges      *prometheus.GaugeVec
	LinkedStopAreas prometheus.Gauge

	Stitched   prometheus.Counter
	Unstitched prometheus.Counter
	Unlinked   prometheus.Counter

	PathsEmitted  prometheus.Counter
	PathsRejected *prometheus.CounterVec // reason label: too_short|too_long|connector

	ProviderRequests *prometheus.CounterVec // endpoint, outcome: ok|error
	ProviderDuration *prometheus.HistogramVec
	CacheHits        *prometheus.CounterVec

	LookupFailures prometheus.Counter
	RoundDuration  prometheus.Histogram
	RoundTasks     prometheus.Histogram
	Itineraries    prometheus.Counter

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
	PublishDuration prometheus.Histogram
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		GraphNodes: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trailgraph_nodes",
			Help: "Number of nodes in the trail graph.",
		}, []string{"stage"}),
		GraphEdges: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "trailgraph_edges",
			Help: "Number of edges in the trail graph.",
		}, []string{"stage"}),
		LinkedStopAreas: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trailgraph_linked_stop_areas",
			Help: "Stop areas linked to a trail point.",
		}),
		Stitched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trailgraph_stitched_endpoints_total",
			Help: "Stage endpoints joined to another stage.",
		}),
		Unstitched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trailgraph_unstitched_endpoints_total",
			Help: "Stage endpoints with no other stage within the stitch radius.",
		}),
		Unlinked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trailgraph_unlinked_stop_areas_total",
			Help: "Stop areas not linked to any trail point.",
		}),
		PathsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "paths_emitted_total",
			Help: "Path candidates written to the catalogue.",
		}),
		PathsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "paths_rejected_total",
			Help: "Path candidates rejected by the extractor.",
		}, []string{"reason"}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transit_requests_total",
			Help: "Requests sent to the transit provider.",
		}, []string{"endpoint", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "transit_request_duration_seconds",
			Help:    "Duration of transit provider requests, decoding included.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"endpoint"}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transit_cache_hits_total",
			Help: "Transit responses served from cache.",
		}, []string{"endpoint"}),
		LookupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ranker_lookup_failures_total",
			Help: "Journey lookups that failed and counted as no journeys.",
		}),
		RoundDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ranker_round_duration_seconds",
			Help:    "Duration of one round of concurrent journey lookups.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		RoundTasks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ranker_round_tasks",
			Help:    "Journey lookups issued per round.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		Itineraries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ranker_itineraries_total",
			Help: "Itineraries accepted by the ranker.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "publisher_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "publisher_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "publisher_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "publisher_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
	}

	reg.MustRegister(
		c.GraphNodes, c.GraphEdges, c.LinkedStopAreas,
		c.Stitched, c.Unstitched, c.Unlinked,
		c.PathsEmitted, c.PathsRejected,
		c.ProviderRequests, c.ProviderDuration, c.CacheHits,
		c.LookupFailures, c.RoundDuration, c.RoundTasks, c.Itineraries,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected, c.PublishDuration,
	)

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}

// Graph records the graph size after the named pipeline stage.
func (c *Collector) Graph(stage string, s graph.Stats) {
	c.GraphNodes.WithLabelValues(stage).Set(float64(s.Nodes))
	c.GraphEdges.WithLabelValues(stage).Set(float64(s.Edges))
}

func (c *Collector) Build(r graph.BuildReport) {
	unstitched := len(r.Unstitched())
	c.Stitched.Add(float64(len(r.Stitches) - unstitched))
	c.Unstitched.Add(float64(unstitched))
	c.Unlinked.Add(float64(len(r.Unlinked)))
	c.LinkedStopAreas.Set(float64(len(r.Links)))
}

// paths.Metrics

func (c *Collector) PathEmitted()               { c.PathsEmitted.Inc() }
func (c *Collector) PathRejected(reason string) { c.PathsRejected.WithLabelValues(reason).Inc() }

// transit.Metrics

func (c *Collector) RequestObserve(endpoint string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.ProviderRequests.WithLabelValues(endpoint, outcome).Inc()
	c.ProviderDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (c *Collector) CacheHit(endpoint string) { c.CacheHits.WithLabelValues(endpoint).Inc() }

// ranker.Metrics

func (c *Collector) RoundObserve(tasks int, d time.Duration) {
	c.RoundTasks.Observe(float64(tasks))
	c.RoundDuration.Observe(d.Seconds())
}

func (c *Collector) LookupFailed()           { c.LookupFailures.Inc() }
func (c *Collector) ItinerariesRanked(n int) { c.Itineraries.Add(float64(n)) }

// publisher.Metrics

func (c *Collector) NATSPublishedInc()              { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc()             { c.NATSPublishErrs.Inc() }
func (c *Collector) PublishObserve(d time.Duration) { c.PublishDuration.Observe(d.Seconds()) }

func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}
