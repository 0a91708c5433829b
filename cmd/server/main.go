package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"timeauction/backend/internal/auction"
	"timeauction/backend/internal/broker"
	"timeauction/backend/internal/config"
	"timeauction/backend/internal/gateway"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	setupLogging(cfg)

	settings, err := cfg.GameSettings()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load game settings")
	}

	bus, err := newBroker(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create broker")
	}
	defer bus.Close()

	clock := clockwork.NewRealClock()
	registry := auction.NewRegistry(bus, clock, settings)
	matchmaker := auction.NewMatchmaker(registry)

	manager := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	manager.SetDispatcher(gateway.NewDispatcher(registry, matchmaker, clock))

	fanout := gateway.NewFanout(bus, manager)
	if err := fanout.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start event fanout")
	}
	defer fanout.Stop()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	go manager.Start(ctx)

	srv := setupServer(cfg, registry, matchmaker, manager)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("broker", cfg.Broker).Msg("lobby server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
}

func newBroker(cfg *config.Config) (broker.Broker, error) {
	if cfg.Broker == config.BrokerNATS {
		natsCfg := broker.DefaultNATSConfig()
		natsCfg.URL = cfg.NATSURL
		return broker.NewNATSBroker(natsCfg)
	}
	return broker.NewMemoryBroker(), nil
}
