package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pixveil/pixveil/internal/access"
	"github.com/pixveil/pixveil/internal/cluster"
	"github.com/pixveil/pixveil/internal/config"
	"github.com/pixveil/pixveil/internal/events"
	"github.com/pixveil/pixveil/internal/logging"
	"github.com/pixveil/pixveil/internal/presence"
	"github.com/pixveil/pixveil/internal/router"
	"github.com/pixveil/pixveil/internal/store"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	logger.Info("Node starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)

	// Setup record store
	logger.Info("Connecting to record store", "type", cfg.Store.Type)
	recordStore, err := store.New(cfg.Store, cfg.Etcd)
	if err != nil {
		logger.Fatal("Failed to connect to record store", "error", err)
	}
	defer func() { _ = recordStore.Close() }()

	// Connect to event bus (configurable backend)
	logger.Info("Connecting to event bus", "type", cfg.Events.Type, "url", cfg.Events.URL)
	bus, err := events.NewBus(cfg.Events)
	if err != nil {
		logger.Fatal("Failed to connect to event bus", "error", err)
	}
	defer func() { _ = bus.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Rehydrate durable state
	registry := presence.NewRegistry(recordStore, cfg.Presence.TTL, logger)
	if err := registry.Load(ctx); err != nil {
		logger.Fatal("Failed to load identities", "error", err)
	}

	accessManager := access.NewManager(recordStore, logger)
	if err := accessManager.Load(ctx); err != nil {
		logger.Fatal("Failed to load access state", "error", err)
	}

	// Leadership: clustered election or single-server static leader
	var leadership cluster.Leadership
	if cfg.Cluster.Enabled {
		sampler := cluster.NewCPUSampler(cfg.Cluster.LoadRefresh, logger)
		defer sampler.Stop()

		transport := cluster.NewTCPTransport(cfg.Cluster.NodeAddr, cfg.Cluster.NetTimeout, logger)
		elector := cluster.NewElector(cluster.Config{
			NodeAddr:           cfg.Cluster.NodeAddr,
			Peers:              cfg.Cluster.Peers,
			HeartbeatInterval:  cfg.Cluster.HeartbeatInterval,
			ElectionTimeoutMin: cfg.Cluster.ElectionTimeoutMin,
			ElectionTimeoutMax: cfg.Cluster.ElectionTimeoutMax,
			LeaderTerm:         cfg.Cluster.LeaderTerm,
			NetTimeout:         cfg.Cluster.NetTimeout,
			Sampler:            sampler.Load,
		}, transport, logger)

		if err := elector.Start(); err != nil {
			logger.Fatal("Failed to start elector", "error", err)
		}
		defer func() { _ = elector.Stop() }()

		leadership = elector
		logger.Info("Cluster mode enabled",
			"node_addr", cfg.Cluster.NodeAddr,
			"peers", len(cfg.Cluster.Peers),
		)
	} else {
		leadership = &cluster.StaticLeader{Addr: cfg.ListenAddr()}
		logger.Info("Single-server mode, this node is always leader")
	}

	// Log authentication status
	if cfg.Auth.Enabled {
		logger.Info("API key authentication enabled", "num_keys", len(cfg.Auth.APIKeys))
	} else {
		logger.Warn("API key authentication DISABLED - all requests will be allowed")
	}

	// Initialize router
	app := router.New(logger, registry, accessManager, leadership, bus, *cfg)

	// Start server in goroutine
	go func() {
		addr := cfg.ListenAddr()
		logger.Info("Server listening", "address", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with 10 second timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
