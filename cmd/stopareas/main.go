package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"trailhead-planner/internal/catalog"
	"trailhead-planner/internal/config"
	"trailhead-planner/internal/db"
	"trailhead-planner/internal/metrics"
	"trailhead-planner/internal/transit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	stagesFile := flag.String("stages", cfg.StagesFile, "stage catalogue (JSON)")
	out := flag.String("out", cfg.StopAreasFile, "stop-area catalogue to write (JSON)")
	radius := flag.Int("radius", cfg.StopAreaRadius, "search radius around sampled points, meters")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stages, err := catalog.LoadStages(*stagesFile)
	if err != nil {
		log.Fatalf("load stages: %v", err)
	}

	mcol := metrics.NewCollector()
	if cfg.MetricsAddr != "" {
		srv := mcol.Serve(cfg.MetricsAddr)
		defer srv.Close()
	}

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

	stops, err := transit.Harvest(ctx, client, stages, *radius)
	if err != nil {
		log.Fatalf("harvest stop areas: %v", err)
	}
	log.Printf("harvested %d stop areas from %d stages", len(stops), len(stages))

	if err := catalog.SaveStopAreas(*out, stops); err != nil {
		log.Fatalf("save stop areas: %v", err)
	}
	log.Printf("wrote %s", *out)

	if cfg.DatabaseURL == "" {
		return
	}
	dsn, err := db.WithDBName(cfg.DatabaseURL, cfg.DatabaseName)
	if err != nil {
		log.Fatalf("compose DSN: %v", err)
	}
	conn, err := db.Open(dsn)
	if err != nil {
		log.Fatalf("db open error: %v", err)
	}
	defer conn.Close()
	if err := db.Ping(ctx, conn); err != nil {
		log.Fatalf("db ping error: %v", err)
	}
	if err := db.EnsureSchema(ctx, conn); err != nil {
		log.Fatalf("db schema: %v", err)
	}
	if err := db.SaveStopAreas(ctx, conn, stops); err != nil {
		log.Fatalf("db save stop areas: %v", err)
	}
	log.Printf("stored %d stop areas in database", len(stops))
}
