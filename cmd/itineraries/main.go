package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trailhead-planner/internal/catalog"
	"trailhead-planner/internal/config"
	"trailhead-planner/internal/db"
	"trailhead-planner/internal/hiking"
	"trailhead-planner/internal/metrics"
	"trailhead-planner/internal/publisher"
	"trailhead-planner/internal/ranker"
	"trailhead-planner/internal/server"
	"trailhead-planner/internal/transit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	distance := flag.Int("distance", 0, "wanted hike length, meters")
	tolerance := flag.Int("tolerance", cfg.DistanceTolerance, "accepted deviation from -distance, meters")
	from := flag.String("from", "", "origin stop area name")
	to := flag.String("to", "", "destination stop area name; empty plans a one-way trip from -from")
	depart := flag.String("depart", "", "earliest departure (RFC3339); empty lists paths by distance only")
	pathsFile := flag.String("paths", cfg.PathsFile, "path catalogue (JSON), used when no database is configured")
	stopsFile := flag.String("stopareas", cfg.StopAreasFile, "stop-area catalogue (JSON), used when no database is configured")
	serve := flag.Bool("serve", false, "serve itineraries over HTTP on HTTP_ADDR")
	refresh := flag.Duration("refresh", 5*time.Minute, "database catalogue poll interval in -serve mode, 0 disables")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Catalogue: database when configured, JSON files otherwise
	var (
		conn   *sql.DB
		paths  []hiking.Path
		stops  map[int]hiking.StopArea
		stored time.Time
	)
	if cfg.DatabaseURL != "" {
		dsn, err := db.WithDBName(cfg.DatabaseURL, cfg.DatabaseName)
		if err != nil {
			log.Fatalf("compose DSN: %v", err)
		}
		conn, err = db.Open(dsn)
		if err != nil {
			log.Fatalf("db open error: %v", err)
		}
		defer conn.Close()
		if err := db.Ping(ctx, conn); err != nil {
			log.Fatalf("db ping error: %v", err)
		}
		src := db.Catalogue{DB: conn}
		if stored, err = src.Latest(ctx); err != nil {
			log.Fatalf("catalogue import time: %v", err)
		}
		if paths, stops, err = src.Load(ctx); err != nil {
			log.Fatalf("load catalogue: %v", err)
		}
	} else {
		if paths, err = catalog.LoadPaths(*pathsFile); err != nil {
			log.Fatalf("load paths: %v", err)
		}
		if stops, err = catalog.LoadStopAreas(*stopsFile); err != nil {
			log.Fatalf("load stop areas: %v", err)
		}
	}
	log.Printf("catalogue: %d paths, %d stop areas", len(paths), len(stops))

	mcol := metrics.NewCollector()
	client, err := transit.NewClient(transit.Options{
		BaseURL:  cfg.TransitBaseURL,
		Timeout:  cfg.TransitTimeout,
		CacheTTL: cfg.TransitCacheTTL,
		Location: cfg.Location,
		Metrics:  mcol,
	})
	if err != nil {
		log.Fatalf("transit client: %v", err)
	}

	var pub *publisher.NATSPublisher
	if cfg.NATSURL != "" {
		pub, err = publisher.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, mcol)
		if err != nil {
			log.Fatalf("nats error: %v", err)
		}
		defer pub.Close()
	}

	if *serve {
		opts := server.Options{
			Stops:         client,
			Finder:        client,
			Concurrency:   cfg.RankerConcurrency,
			RankerMetrics: mcol,
			Tolerance:     cfg.DistanceTolerance,
			WalkingSpeed:  cfg.WalkingSpeed,
			Location:      cfg.Location,
			Metrics:       mcol.Handler(),
		}
		if pub != nil {
			opts.Publisher = pub
		}
		h := server.New(opts, paths, stops)
		if conn != nil {
			r := server.NewRefresher(db.Catalogue{DB: conn}, h, *refresh, stored)
			r.Start(ctx)
			defer r.Stop()
		}
		runServer(ctx, cfg.HTTPAddr, h)
		return
	}

	if cfg.MetricsAddr != "" {
		srv := mcol.Serve(cfg.MetricsAddr)
		defer srv.Close()
	}
	if *distance <= 0 {
		log.Fatalf("-distance must be a positive number of meters")
	}

	var rep ranker.Report
	if *depart == "" {
		found := ranker.Closest(paths, *distance, *tolerance)
		if rep, err = ranker.NewPathReport(*distance, found, stops); err != nil {
			log.Fatalf("report: %v", err)
		}
	} else {
		rep, err = rank(ctx, cfg, client, mcol, paths, stops, *distance, *tolerance, *from, *to, *depart)
		if err != nil {
			log.Fatalf("rank itineraries: %v", err)
		}
		if pub != nil {
			if err := pub.PublishReport(rep); err != nil {
				log.Printf("publish report: %v", err)
			}
		}
	}
	printReport(os.Stdout, rep, cfg.Location)
}

func rank(ctx context.Context, cfg *config.Config, client *transit.Client, m ranker.Metrics,
	paths []hiking.Path, stops map[int]hiking.StopArea, distance, tolerance int, from, to, depart string) (ranker.Report, error) {
	if from == "" {
		return ranker.Report{}, errors.New("-from is required with -depart")
	}
	t, err := time.ParseInLocation(time.RFC3339, depart, cfg.Location)
	if err != nil {
		return ranker.Report{}, fmt.Errorf("-depart: %w", err)
	}
	origin, err := client.LookupStopArea(ctx, from)
	if err != nil {
		return ranker.Report{}, err
	}
	req := ranker.Request{
		Distance:     distance,
		Tolerance:    tolerance,
		Origin:       origin,
		Departure:    t,
		WalkingSpeed: cfg.WalkingSpeed,
	}
	if to != "" {
		dest, err := client.LookupStopArea(ctx, to)
		if err != nil {
			return ranker.Report{}, err
		}
		req.Destination = &dest
	}
	its, err := ranker.New(client, stops, cfg.RankerConcurrency, m).Rank(ctx, req, paths)
	if err != nil {
		return ranker.Report{}, err
	}
	return ranker.NewReport(req, its, stops)
}

func printReport(w io.Writer, rep ranker.Report, loc *time.Location) {
	if len(rep.Entries) == 0 {
		fmt.Fprintf(w, "Inga vandringar runt %.1f km hittades\n", float64(rep.Distance)/1000)
		return
	}
	for _, e := range rep.Entries {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Från %s till %s: minst %.1f km\n", e.Src.Name, e.Dest.Name, e.TotalKm)
		fmt.Fprintf(w, "  Gå minst %.1f km från %s till leden\n", e.SrcKm, e.Src.Name)
		fmt.Fprintf(w, "  Gå %.1f km på %s\n", e.TrailKm, e.Trail)
		fmt.Fprintf(w, "  Gå minst %.1f km från leden till %s\n", e.DestKm, e.Dest.Name)
		if e.Outbound != nil {
			fmt.Fprintf(w, "  Dit: %s - %s, %d byten\n",
				e.Outbound.Departure.In(loc).Format("15:04"), e.Outbound.Arrival.In(loc).Format("15:04"), e.Outbound.Changes)
		}
		if e.Return != nil {
			fmt.Fprintf(w, "  Hem: %s - %s, %d byten\n",
				e.Return.Departure.In(loc).Format("15:04"), e.Return.Arrival.In(loc).Format("15:04"), e.Return.Changes)
		}
		if e.Outbound != nil {
			fmt.Fprintf(w, "  Poäng: %d\n", e.Score)
		}
	}
}

func runServer(ctx context.Context, addr string, h *server.Handler) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	log.Printf("serving itineraries on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("http server: %v", err)
	}
	log.Println("shutdown complete")
}
