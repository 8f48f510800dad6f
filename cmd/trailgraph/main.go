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
	"trailhead-planner/internal/graph"
	"trailhead-planner/internal/hiking"
	"trailhead-planner/internal/metrics"
	"trailhead-planner/internal/paths"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	stagesFile := flag.String("stages", cfg.StagesFile, "stage catalogue (JSON)")
	stopsFile := flag.String("stopareas", cfg.StopAreasFile, "stop-area catalogue (JSON)")
	out := flag.String("out", cfg.PathsFile, "path catalogue to write (JSON)")
	verbose := flag.Bool("v", false, "log every stitch and stop-area link")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	stages, err := catalog.LoadStages(*stagesFile)
	if err != nil {
		log.Fatalf("load stages: %v", err)
	}
	stops, err := catalog.LoadStopAreas(*stopsFile)
	if err != nil {
		log.Fatalf("load stop areas: %v", err)
	}
	log.Printf("loaded %d stages and %d stop areas", len(stages), len(stops))

	mcol := metrics.NewCollector()
	if cfg.MetricsAddr != "" {
		srv := mcol.Serve(cfg.MetricsAddr)
		defer srv.Close()
	}

	g, rep, err := graph.Build(stages, stops)
	if err != nil {
		log.Fatalf("build graph: %v", err)
	}
	logBuild(g, rep, stops, *verbose)
	mcol.Build(rep)
	built := g.Stats()
	mcol.Graph("built", built)
	log.Printf("graph built: %s", built)

	srep := graph.Simplify(g)
	simplified := g.Stats()
	mcol.Graph("simplified", simplified)
	log.Printf("graph simplified: collapsed=%d pruned=%d edges %d -> %d; %s",
		srep.Collapsed, srep.PrunedNodes, srep.EdgesBefore, srep.EdgesAfter, simplified)

	found, prep, err := paths.Extract(g, mcol)
	if err != nil {
		log.Fatalf("extract paths: %v", err)
	}
	log.Printf("extracted %d paths from %d stop areas (%d rejected)", prep.Emitted, prep.Sources, rejected(prep))

	if err := catalog.SavePaths(*out, found); err != nil {
		log.Fatalf("save paths: %v", err)
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
	if err := db.SavePaths(ctx, conn, found); err != nil {
		log.Fatalf("db save paths: %v", err)
	}
	log.Printf("stored %d paths in database", len(found))
}

func logBuild(g *graph.Graph, rep graph.BuildReport, stops map[int]hiking.StopArea, verbose bool) {
	for _, s := range rep.Stitches {
		switch {
		case !s.Joined:
			log.Printf("%s is not close to anything, at least %.0f m", s.Stage, s.Dist)
		case verbose:
			log.Printf("add link between %s and %s (%.0f m)", s.Stage, g.Node(s.Nearest).Stage, s.Dist)
		}
	}
	if verbose {
		for _, l := range rep.Links {
			log.Printf("connecting %s with %s (%.0f m)", stops[l.StopAreaID].Name, g.Node(l.TrailPoint).Stage, l.Dist)
		}
	}
	for _, id := range rep.Unlinked {
		log.Printf("stop area %s is too far from any trail", stops[id].Name)
	}
	log.Printf("stitched %d of %d stage ends, linked %d stop areas, %d local-service excluded, %d unlinked",
		len(rep.Stitches)-len(rep.Unstitched()), len(rep.Stitches), len(rep.Links), len(rep.LocalExcluded), len(rep.Unlinked))
}

func rejected(r paths.Report) int {
	n := 0
	for _, c := range r.Rejected {
		n += c
	}
	return n
}
