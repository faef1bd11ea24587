package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/heliolearn/pulsechan/internal/channel"
	"github.com/heliolearn/pulsechan/internal/config"
	"github.com/heliolearn/pulsechan/internal/metrics"
	"github.com/heliolearn/pulsechan/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/channeld.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting channeld",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"channel_url", cfg.Channel.URL,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Metrics registry
	registry := prometheus.NewRegistry()
	channelMetrics := metrics.NewChannel(registry)

	// Create the channel service
	svc := channel.NewService(channel.Config{
		URL:                  cfg.Channel.URL,
		DialTimeout:          cfg.Channel.DialTimeout,
		WriteTimeout:         cfg.Channel.WriteTimeout,
		BackoffBase:          cfg.Channel.BackoffBase,
		BackoffMax:           cfg.Channel.BackoffMax,
		MinRetryInterval:     cfg.Channel.MinRetryInterval,
		MaxReconnectAttempts: cfg.Channel.MaxReconnectAttempts,
		CircuitCooldown:      cfg.Channel.CircuitCooldown,
		HeartbeatInterval:    cfg.Channel.HeartbeatInterval,
		HeartbeatTimeout:     cfg.Channel.HeartbeatTimeout,
		QueueLimit:           cfg.Channel.QueueLimit,
		DedupWindow:          cfg.Channel.DedupWindow,
		DedupSweepInterval:   cfg.Channel.DedupSweepInterval,
		Logger:               logger,
		Metrics:              channelMetrics,
	})
	defer svc.Close()

	// Log state transitions and realtime events for operators
	svc.OnStatusChange(func(state channel.State) {
		logger.Info("channel status changed", "state", state)
	})
	svc.SubscribeToTypes(
		[]string{channel.TypeNotification, channel.TypeContentUpdate},
		func(msg channel.Message) {
			logger.Info("realtime event", "type", msg.Type, "timestamp", msg.Timestamp)
		},
	)

	svc.Connect()

	// Health and metrics server
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(svc.Snapshot())
	})

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: mux,
	}

	go func() {
		logger.Info("starting health server", "port", cfg.Metrics.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", "error", err)
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	logger.Info("channeld stopped")
}
