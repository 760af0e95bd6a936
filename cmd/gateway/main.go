package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/assessment"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/auth"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/config"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/history"
	httpClient "github.com/andrapiyadisha/cardio-risk-ml-system/pkg/http"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/logging"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/metrics"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/session"
	"github.com/andrapiyadisha/cardio-risk-ml-system/pkg/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Setup logging
	logger := logging.Setup(cfg.LogLevel, cfg.IsDevelopment())

	// Start metrics server
	metrics.Start(cfg.MetricsAddr, logger)

	kv, err := session.OpenKV(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.SessionBackend).Msg("Failed to open session storage")
	}
	defer session.CloseKV(kv)

	store := session.NewStore(kv)
	store.Hydrate()

	client := httpClient.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)
	gateway := web.NewGateway(
		store,
		auth.NewService(client, store),
		assessment.NewPipeline(client, store),
		history.NewAggregator(client, store),
	)

	log.Info().
		Str("port", cfg.Port).
		Str("api", cfg.APIBaseURL).
		Str("session_backend", cfg.SessionBackend).
		Str("session", store.State().String()).
		Msg("Gateway starting")

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      gateway.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 15*time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	log.Info().Msg("Gateway stopped")
}
