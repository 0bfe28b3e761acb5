package main

import (
	"context"
	"log"

	"groundbooking/internal/config"
	"groundbooking/internal/container"
	"groundbooking/internal/database"
)

// One maintenance pass, for cron deployments that run without the API's
// background worker.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.DBDebug)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer database.Close(db)

	c := container.NewContainer(cfg, db, nil)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*cfg.StoreTimeout)
	defer cancel()

	rep, err := c.Maintenance.RunOnce(ctx)
	if err != nil {
		log.Fatalf("booking cleanup failed: expired=%d completed=%d purged_holds=%d err=%v", rep.Expired, rep.Completed, rep.Purged, err)
	}

	log.Printf("booking cleanup completed: expired=%d completed=%d purged_holds=%d", rep.Expired, rep.Completed, rep.Purged)
}
