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

	"github.com/go-playground/validator/v10"

	"github.com/openbench/openbench/cmd/openbench/server"
	"github.com/openbench/openbench/internal/catalog"
	"github.com/openbench/openbench/internal/config"
	"github.com/openbench/openbench/internal/logging"
	"github.com/openbench/openbench/internal/runner"
	"github.com/openbench/openbench/internal/store"
	"github.com/openbench/openbench/internal/tracing"
)

var (
	// Version can be set during the compilation
	Version string = "0.0.1"
	// Build is set during the compilation
	Build string
	// BuildDate is set during the compilation
	BuildDate string
)

func main() {
	logger, logShutdown, err := logging.NewLogger()
	if err != nil {
		// no point trying to continue
		logging.FallbackLogger().Error("Failed to create service logger", "error", err.Error())
		log.Fatal(err)
	}

	serviceConfig, err := config.LoadConfig(logger, Version, Build, BuildDate)
	if err != nil {
		logger.Error("Failed to create service config", "error", err.Error())
		log.Fatal(err)
	}

	// set up the validator
	validate := validator.New(validator.WithRequiredStructEnabled())

	// set up the tracer
	_, traceShutdown, err := tracing.Setup("openbench", serviceConfig.Service.Version, logger)
	if err != nil {
		logger.Error("Failed to set up tracing", "error", err.Error())
		log.Fatal(err)
	}

	// set up the run store
	if serviceConfig.Database == nil {
		logger.Error("No database configuration provided")
		log.Fatal("no database configuration provided")
	}
	runStore, err := store.NewStore(*serviceConfig.Database, logger)
	if err != nil {
		logger.Error("Failed to create run store", "error", err.Error())
		log.Fatal(err)
	}

	artifacts := runner.NewArtifactStore(serviceConfig.Runner.RunsDir)
	builder := &runner.ToolCommandBuilder{
		Tool:          serviceConfig.Runner.Tool,
		SimulatorPath: serviceConfig.Runner.SimulatorPath,
		ForceMock:     serviceConfig.Runner.ForceMock,
	}
	engine := runner.NewEngine(runStore, artifacts, builder, logger,
		runner.WithCredentialEnv(serviceConfig.Runner.Env))

	srv, err := server.NewServer(logger, serviceConfig, engine, catalog.New(), validate)
	if err != nil {
		logger.Error("Failed to create server", "error", err.Error())
		log.Fatal(err)
	}

	// log the start up details
	logger.Info("Server starting",
		"server_port", srv.GetPort(),
		"version", serviceConfig.Service.Version,
		"build", serviceConfig.Service.Build,
		"build_date", serviceConfig.Service.BuildDate,
		"runs_dir", serviceConfig.Runner.RunsDir,
		"tool", serviceConfig.Runner.Tool,
		"force_mock", serviceConfig.Runner.ForceMock,
		"local", serviceConfig.Service.LocalMode,
	)

	// Start server in a goroutine
	go func() {
		if err := srv.Start(); err != nil {
			if errors.Is(err, http.ErrServerClosed) {
				logger.Info("Server closed gracefully")
				return
			}
			logger.Error("Server failed to start", "error", err.Error())
			log.Fatal(err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Create a context with timeout for graceful shutdown
	waitForShutdown := 30 * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), waitForShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err.Error(), "timeout", waitForShutdown)
	} else {
		logger.Info("Server shutdown gracefully")
	}

	// let in-flight run supervisors persist their terminal states
	engine.Wait()

	if err := runStore.Close(); err != nil {
		logger.Error("Failed to close run store", "error", err.Error())
	}
	if err := traceShutdown(ctx); err != nil {
		logger.Error("Failed to shut down tracing", "error", err.Error())
	}
	_ = logShutdown() // ignore the error
}
