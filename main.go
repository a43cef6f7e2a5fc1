package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tradesim/internal/api"
	"tradesim/internal/bridge"
	"tradesim/internal/control"
	"tradesim/internal/events"
	"tradesim/internal/reconcile"
	"tradesim/internal/store"
	"tradesim/internal/stream"
	"tradesim/pkg/config"
	"tradesim/pkg/db"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	log.Printf("tradesim core starting (instance %s)", cfg.InstanceID)

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.New(ctx, database, cfg.StateKey)
	if err != nil {
		log.Fatalf("load store: %v", err)
	}

	bus := events.NewBus()
	bridgeClient := bridge.NewClient(cfg.BridgeURL, cfg.IndicatorURL)

	defaults, err := control.LoadDefaults(cfg.DefaultsPath)
	if err != nil {
		log.Fatalf("load strategy defaults: %v", err)
	}
	controller := control.New(bridgeClient, st, bus, defaults)
	streams := stream.NewManager(bridgeClient, bus, cfg.StreamRetries, cfg.RetryDelay)

	// Probe the bridge once at boot so the persisted session flag matches the
	// terminal's real state before anything else runs.
	if status, err := bridgeClient.Status(ctx); err != nil {
		log.Printf("bridge status probe failed: %v", err)
	} else if status.LoggedIn() {
		st.Login(status.Account())
		log.Printf("bridge session found for account %d", status.AccountNumber)
		controller.ResumeActive(ctx)
	} else if st.IsLoggedIn() {
		log.Println("bridge session gone, clearing persisted login")
		st.Logout()
	}

	reconciler := reconcile.New(bridgeClient, st, bus, cfg.PollInterval)
	reconciler.Start(ctx)

	server := api.NewServer(bus, st, bridgeClient, streams, controller, cfg.JWTSecret)
	go func() {
		if err := server.Start(":" + cfg.Port); err != nil {
			log.Fatalf("api server error: %v", err)
		}
	}()
	log.Printf("api listening on :%s", cfg.Port)

	<-ctx.Done()
	log.Println("shutting down")
	streams.StopAll()
}
