package main

import (
	"context"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"go.uber.org/automaxprocs/maxprocs"

	counter "github.com/Borislavv/invocation-counter/internal/counter"
	"github.com/Borislavv/invocation-counter/internal/counter/config"
	"github.com/Borislavv/invocation-counter/pkg/k8s/probe/liveness"
	"github.com/Borislavv/invocation-counter/pkg/shutdown"
)

const (
	configPath      = "invocationCounter.cfg.yaml"
	configPathLocal = "invocationCounter.cfg.local.yaml"
)

// setMaxProcs automatically sets the optimal GOMAXPROCS value (CPU parallelism)
// based on the available CPUs and cgroup/docker CPU quotas (uses automaxprocs).
func setMaxProcs() {
	if _, err := maxprocs.Set(); err != nil {
		log.Err(err).Msg("[main] setting up GOMAXPROCS value failed")
		panic(err)
	}
	log.Info().Msgf("[main] optimized GOMAXPROCS=%d was set up", runtime.GOMAXPROCS(0))
}

// loadCfg loads the configuration struct, preferring the local override file.
func loadCfg() (*config.Config, error) {
	cfg, err := config.LoadConfig(configPathLocal)
	if err != nil {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			log.Err(err).Msg("[config] failed to load")
			return nil, err
		} else {
			log.Info().Msgf("[config] config loaded from '%v'", configPath)
		}
	} else {
		log.Info().Msgf("[config] config loaded from '%v'", configPathLocal)
	}
	return cfg, nil
}

// Main entrypoint: configures and starts the invocation counter service.
func main() {
	// Create a root context for graceful shutdown and cancellation.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optimize GOMAXPROCS for the current environment.
	setMaxProcs()

	// Load the application configuration.
	cfg, cfgError := loadCfg()
	if cfgError != nil {
		log.Err(cfgError).Msg("[main] failed to load counter config")
		return
	}

	// Setup graceful shutdown handler (SIGTERM, SIGINT, etc).
	gracefulShutdown := shutdown.NewGraceful(ctx, cancel)
	gracefulShutdown.SetGracefulTimeout(time.Minute)

	// Initialize liveness probe for Kubernetes/Cloud health checks.
	probe := liveness.NewProbe(time.Second * 5)

	// Initialize and start the counter application.
	app, err := counter.NewApp(ctx, cfg, probe)
	if err != nil {
		log.Err(err).Msg("[main] failed to init counter app")
		return
	}

	// Register app for graceful shutdown.
	gracefulShutdown.Add(1)
	go app.Start(gracefulShutdown)

	// Listen for OS signals or context cancellation and await shutdown.
	if err := gracefulShutdown.ListenCancelAndAwait(); err != nil {
		log.Err(err).Msg("failed to gracefully shut down service")
	}
}
