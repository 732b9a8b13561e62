// fleetd is the Omlethub fleet daemon: it owns the server registry, its
// background maintenance loops and the HTTP API.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"omlethub/internal/api"
	"omlethub/internal/app"
	"omlethub/internal/config"
	"omlethub/internal/fleet"
	"omlethub/internal/logger"
	"omlethub/internal/storage"
	"omlethub/internal/ws"
)

func main() {
	configDir, err := config.Dir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving config directory: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().Str("database", cfg.DatabasePath).Msg("Starting fleetd")

	store, err := storage.NewGormStore(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}

	registry, err := fleet.NewRegistry(store, fleet.Options{
		JoinScheme:    cfg.JoinScheme,
		AddressDomain: cfg.AddressDomain,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load fleet")
	}

	hubManager := ws.NewHubManager()
	registry.SetLogSink(hubManager)
	registry.Start()

	container := &app.Container{
		Store:      store,
		Registry:   registry,
		HubManager: hubManager,
	}

	apiServer := api.NewAPIServer(container)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      apiServer.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 0, // websocket streams stay open
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("address", httpServer.Addr).Msg("API listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("API server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("API server forced to shut down")
	}

	registry.Stop()
	log.Info().Msg("Fleet daemon exited")
}
