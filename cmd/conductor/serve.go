package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/aretw0/conductor"
	"github.com/aretw0/conductor/internal/config"
	"github.com/aretw0/conductor/internal/logging"
	httpadapter "github.com/aretw0/conductor/pkg/adapters/http"
	redisadapter "github.com/aretw0/conductor/pkg/adapters/redis"
	"github.com/aretw0/conductor/pkg/dsl"
	"github.com/aretw0/conductor/pkg/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the orchestration HTTP server",
	Long:  `Starts the orchestrator and exposes its JSON API over HTTP. With a Redis address configured, definitions and instances are persisted and domain events flow through Redis pub/sub.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfgPath, _ := cmd.Flags().GetString("config")
		defsPath, _ := cmd.Flags().GetString("definitions")

		if err := runServe(cfgPath, defsPath); err != nil {
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	serveCmd.Flags().String("definitions", "", "YAML definition file to register at startup")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cfgPath, defsPath string) error {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	logger := logging.New(logging.ParseLevel(cfg.LogLevel))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := observability.NewMetrics(registry)

	opts := []conductor.Option{
		conductor.WithLogger(logger),
		conductor.WithMetrics(metrics),
	}

	if cfg.Redis.Addr != "" {
		client := backend.NewClient(&backend.Options{Addr: cfg.Redis.Addr})
		defer client.Close()

		opts = append(opts,
			conductor.WithRepository(redisadapter.NewRepository(client, cfg.Redis.Prefix)),
			conductor.WithEventBus(redisadapter.NewBus(client, cfg.Redis.Prefix,
				redisadapter.WithBusLogger(logger))),
		)
		logger.Info("redis adapters enabled", "addr", cfg.Redis.Addr, "prefix", cfg.Redis.Prefix)
	}

	core := conductor.New(opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := core.Start(ctx); err != nil {
		return fmt.Errorf("starting orchestrator: %w", err)
	}

	if defsPath != "" {
		defs, err := dsl.LoadFile(defsPath)
		if err != nil {
			return fmt.Errorf("loading definitions: %w", err)
		}
		for _, def := range defs {
			if _, err := core.RegisterDefinition(ctx, def); err != nil {
				return fmt.Errorf("registering %s@%s: %w", def.Name, def.Version, err)
			}
		}
		logger.Info("definitions registered from file", "path", defsPath, "count", len(defs))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/", httpadapter.NewHandler(core, httpadapter.WithLogger(logger)))

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("starting conductor server", "addr", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err

	case <-ctx.Done():
		logger.Info("shutdown signal received")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("graceful shutdown did not complete, forcing close", "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("closing server: %w", err)
			}
		}

		// Let in-flight sagas finish before exiting.
		core.Drain()
		return nil
	}
}
