package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"groundbooking/internal/config"
	"groundbooking/internal/container"
	"groundbooking/internal/database"
	"groundbooking/internal/repository"
	"groundbooking/internal/routes"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.DBDebug)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Printf("db_close_failed err=%v", err)
		}
	}()

	if err := repository.Migrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	c := container.NewContainer(cfg, db, nil)
	defer c.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rs, err := c.Settings.Load(ctx)
	if err != nil {
		log.Fatalf("load settings: %v", err)
	}
	log.Printf("rates day=%d night=%d night_window=%d-%d", rs.DayRate, rs.NightRate, rs.NightStartHour, rs.NightEndHour)

	maintenanceDone := c.Maintenance.Start(ctx, cfg.MaintenanceInterval)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           routes.SetupRoutes(c),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown_failed err=%v", err)
	}

	// The worker emits events; let its last pass finish before the deferred
	// c.Close drains the event queues.
	select {
	case <-maintenanceDone:
	case <-shutdownCtx.Done():
		log.Printf("maintenance_stop_timeout")
	}
}
