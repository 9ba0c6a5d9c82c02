package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"github.com/festivo-app/festivo/internal/config"
	"github.com/festivo-app/festivo/internal/db"
	"github.com/festivo-app/festivo/internal/views"
)

func main() {
	threshold := flag.Duration("threshold", 0, "Flag views older than this (default from VIEW_STALE_MINUTES)")
	limit := flag.Int("limit", 100, "Maximum rows to list")
	flag.Parse()

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	db.Init(cfg.DBSource)

	if *threshold <= 0 {
		*threshold = cfg.StaleThreshold()
	}

	engine := views.NewEngine(views.NewPGSource(db.Conn), views.NewPGViewStore(db.Conn))
	stale, err := engine.FreshnessAudit(context.Background(), *threshold, *limit)
	if err != nil {
		log.Fatalf("freshness audit failed: %v", err)
	}

	if len(stale) == 0 {
		fmt.Printf("No views older than %s.\n", *threshold)
		return
	}
	fmt.Printf("%d views older than %s:\n", len(stale), *threshold)
	for _, v := range stale {
		fmt.Printf("  %-8s %s  rebuilt %s\n", v.Kind, v.ActorID, v.RebuiltAt.Format("2006-01-02 15:04:05"))
	}
}
