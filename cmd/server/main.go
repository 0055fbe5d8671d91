package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"parking-service/internal/config"
	"parking-service/internal/db"
	httpapi "parking-service/internal/http"
	"parking-service/internal/seed"
	"parking-service/internal/service"
	"parking-service/internal/storage"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "parking-service").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	debounce := time.Duration(cfg.Storage.DebounceMs) * time.Millisecond

	var store storage.Gateway
	if cfg.Database.InMemory {
		log.Info().Msg("running with in-memory storage")
		store = storage.NewMemoryGateway(debounce, log)
	} else {
		gdb, err := db.Connect(cfg.Database.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		log.Info().Msg("database connection established")
		store = storage.NewDBGateway(gdb, debounce, log)
	}

	vehicles := service.NewVehicleService(store, log)
	sessions := service.NewSessionService(vehicles, store, cfg.Parking, log)
	exceptions := service.NewExceptionService(sessions, vehicles, store, log)
	lpr := service.NewLPRService(sessions, exceptions, cfg.LPR, log)
	stats := service.NewStatsService(sessions, exceptions, vehicles, store, log)
	backups := service.NewBackupService(vehicles, sessions, exceptions, store, log)

	ctx := context.Background()
	if err := vehicles.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to load vehicles")
	}
	if err := sessions.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to load sessions")
	}
	if err := exceptions.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to load exceptions")
	}

	if cfg.Seed.Enabled && len(vehicles.Snapshot()) == 0 {
		if err := seed.Run(ctx, cfg.Seed.Value, vehicles, sessions, exceptions, log); err != nil {
			log.Fatal().Err(err).Msg("failed to seed fixture data")
		}
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	handler := httpapi.NewHandler(vehicles, sessions, exceptions, lpr, stats, backups, cfg, log)
	handler.Register(r, httpapi.AuthMiddleware(cfg.Auth.JWTSecret))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}

	// Drain any debounced writes before exiting so the persisted state
	// matches the in-memory state.
	if err := store.Flush(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("failed to flush pending writes")
	}

	log.Info().Msg("stopped")
}
