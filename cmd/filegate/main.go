package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/filegate/filegate/internal/logger"
	"github.com/filegate/filegate/pkg/config"
	"github.com/filegate/filegate/pkg/dispatch"
	"github.com/filegate/filegate/pkg/metrics"
	"github.com/filegate/filegate/pkg/server"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	logLevel := flag.String("log-level", "", "Log level override (DEBUG, INFO, WARN, ERROR)")
	initConfig := flag.Bool("init", false, "Write a starter config file and exit")
	forceInit := flag.Bool("force", false, "Overwrite an existing config file with -init")
	flag.Parse()

	if *initConfig {
		runInit(*configPath, *forceInit)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// CLI flag beats file and environment
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if err := logger.Configure(cfg.Logging.Format, cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}
	logger.SetLevel(cfg.Logging.Level)
	defer logger.Sync()

	logger.Info("Log level set to: %s", cfg.Logging.Level)

	gw, err := config.CreateGateway(&cfg.Policy)
	if err != nil {
		log.Fatalf("Failed to build gateway: %v", err)
	}
	limiter := config.CreateRateLimiter(&cfg.RateLimit)
	gm := config.CreateGatewayMetrics(&cfg.Metrics)

	logPolicySummary(cfg)

	if cfg.Metrics.Enabled {
		go serveMetrics(cfg.Metrics.Listen)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := server.New(dispatch.New(gw, limiter, gm), os.Stdin, os.Stdout)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- srv.Serve(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("Serving requests on stdin/stdout")

	select {
	case <-sigChan:
		logger.Info("Shutdown signal received, initiating graceful shutdown...")
		cancel()

		select {
		case err := <-serverDone:
			if err != nil && err != context.Canceled {
				logger.Error("Server shutdown error: %v", err)
				os.Exit(1)
			}
			logger.Info("Server stopped gracefully")
		case <-time.After(cfg.Server.ShutdownTimeout):
			logger.Error("Shutdown timed out after %v", cfg.Server.ShutdownTimeout)
			os.Exit(1)
		}

	case err := <-serverDone:
		if err != nil {
			logger.Error("Server error: %v", err)
			os.Exit(1)
		}
		logger.Info("Server stopped")
	}
}

func runInit(configPath string, force bool) {
	if configPath != "" {
		if err := config.InitConfigToPath(configPath, force); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Config written to %s\n", configPath)
		return
	}
	path, err := config.InitConfig(force)
	if err != nil {
		log.Fatalf("Failed to write config: %v", err)
	}
	fmt.Fprintf(os.Stderr, "Config written to %s\n", path)
}

func logPolicySummary(cfg *config.Config) {
	if len(cfg.Policy.AllowedPaths) > 0 {
		logger.Info("Allowed roots: %v", cfg.Policy.AllowedPaths)
	} else {
		logger.Info("Allowed roots: unrestricted")
	}
	if len(cfg.Policy.DeniedPaths) > 0 {
		logger.Info("Denied roots: %v", cfg.Policy.DeniedPaths)
	}
	if cfg.Policy.ReadOnly {
		logger.Info("Read-only mode enabled")
	}
	if cfg.Policy.MaxFileSize > 0 {
		logger.Info("Max file size: %d bytes", cfg.Policy.MaxFileSize)
	}
	if cfg.RateLimit.RequestsPerSecond > 0 || cfg.RateLimit.Burst > 0 {
		logger.Info("Rate limit: %d req/s, burst %d", cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}
}

func serveMetrics(listen string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	logger.Info("Metrics endpoint listening on %s", listen)
	if err := http.ListenAndServe(listen, mux); err != nil {
		logger.Error("Metrics endpoint failed: %v", err)
	}
}
