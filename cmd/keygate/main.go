package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"keygate/internal/auth"
	"keygate/internal/cache"
	"keygate/internal/config"
	"keygate/internal/handlers"
	"keygate/internal/logging"
	"keygate/internal/metrics"
	"keygate/internal/providers/apikey"
	"keygate/internal/providers/ipallowlist"
)

var version = "dev"

func main() {
	var (
		configFile = flag.String("config", "", "Path to configuration file")
		envPrefix  = flag.String("env-prefix", "KEYGATE", "Environment variable prefix")
		envFile    = flag.String("env-file", ".env", "Path to a .env file loaded into the environment")
	)
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "Environment file loading failed: %v\n", err)
		os.Exit(1)
	}

	// Load main configuration
	configLoader := config.NewLoader(*configFile, *envPrefix)
	mainConfig, err := configLoader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration loading failed: %v\n", err)
		os.Exit(1)
	}

	// Verifier settings come from the same YAML document plus the environment
	verifierConfigLoader := config.NewEnvConfigLoader(*envPrefix, configLoader.Raw())

	logger, err := logging.NewLogger(mainConfig.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	logger.Info("starting keygate", "version", version)

	if err := run(mainConfig, verifierConfigLoader, logger); err != nil {
		logger.Error("keygate stopped with error", "error", err)
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}

func run(mainConfig *auth.Config, verifierConfigLoader auth.ConfigLoader, logger auth.Logger) error {
	promMetrics, err := metrics.NewMetrics(mainConfig.Metrics)
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	// Redis with memory fallback
	cacheInstance := cache.NewCache(mainConfig.Cache, logger)

	guard := auth.NewGuard(mainConfig, verifierConfigLoader, cacheInstance, promMetrics, logger)
	defer func() {
		if err := guard.Close(); err != nil {
			logger.Error("guard shutdown error", "error", err)
		}
	}()

	apiKeyVerifier := apikey.NewVerifier(cacheInstance, guard.LockManager(), logger, promMetrics)
	if err := registerVerifiers(guard, apiKeyVerifier, ipallowlist.NewVerifier(logger)); err != nil {
		return err
	}
	guard.Health(context.Background())

	server := handlers.NewServer(mainConfig, guard, cacheInstance, logger, promMetrics,
		handlers.WithAllowedHeaders(apiKeyVerifier.HeaderName()))

	serverErrors := make(chan error, 2)
	go func() {
		serverErrors <- server.Start()
	}()

	var metricsServer *metrics.Server
	if mainConfig.Metrics.Enabled {
		metricsServer, err = promMetrics.NewServer(mainConfig.Server.Host, logger)
		if err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		go func() {
			serverErrors <- metricsServer.Start()
		}()
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	var runErr error
	select {
	case runErr = <-serverErrors:
		logger.Error("server error", "error", runErr)
	case sig := <-interrupt:
		logger.Info("received interrupt signal", "signal", sig.String())
	}

	logger.Info("starting graceful shutdown")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), mainConfig.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Stop(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
	}

	return runErr
}

// registerVerifiers loads each verifier's configuration and adds it to the guard
func registerVerifiers(guard *auth.Guard, verifiers ...auth.Verifier) error {
	for _, verifier := range verifiers {
		if err := guard.RegisterVerifier(verifier); err != nil {
			return fmt.Errorf("failed to register %s verifier: %w", verifier.Type(), err)
		}
	}
	return nil
}
