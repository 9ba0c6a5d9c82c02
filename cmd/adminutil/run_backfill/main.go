package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/festivo-app/festivo/internal/config"
	"github.com/festivo-app/festivo/internal/db"
	"github.com/festivo-app/festivo/internal/views"
)

func main() {
	kind := flag.String("kind", "", "View kind to rebuild: client or supplier")
	batch := flag.Int("batch", 0, "Actors fetched per batch (default 50)")
	parallel := flag.Int("parallel", 0, "Concurrent rebuilds (default 8)")
	skipFresh := flag.Duration("skip-fresher-than", 0, "Skip views rebuilt within this window, e.g. 30m")
	flag.Parse()

	if *kind != "client" && *kind != "supplier" {
		log.Fatalf("usage: go run cmd/adminutil/run_backfill/main.go -kind client|supplier [-batch N] [-parallel N] [-skip-fresher-than 30m]")
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	db.Init(cfg.DBSource)

	engine := views.NewEngine(views.NewPGSource(db.Conn), views.NewPGViewStore(db.Conn))

	start := time.Now()
	report, err := engine.Backfill(context.Background(), views.BackfillOptions{
		Kind:            *kind,
		BatchSize:       *batch,
		Parallelism:     *parallel,
		SkipFresherThan: *skipFresh,
	})
	if err != nil {
		log.Fatalf("backfill failed: %v", err)
	}

	fmt.Printf("Backfill of %s views finished in %s\n", report.Kind, time.Since(start).Round(time.Millisecond))
	fmt.Printf("  processed: %d\n  skipped:   %d\n  failed:    %d\n", report.Processed, report.Skipped, report.Failed)
	for _, e := range report.Errors {
		fmt.Printf("  error: %s\n", e)
	}
}
