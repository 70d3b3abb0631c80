package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yudistirasd/baileys-api/internal/config"
	"github.com/yudistirasd/baileys-api/internal/constants"
	"github.com/yudistirasd/baileys-api/internal/database"
	"github.com/yudistirasd/baileys-api/internal/events"
	"github.com/yudistirasd/baileys-api/internal/models"
	"github.com/yudistirasd/baileys-api/internal/retry"
	"github.com/yudistirasd/baileys-api/internal/service"
	"github.com/yudistirasd/baileys-api/internal/tracing"
	"github.com/yudistirasd/baileys-api/pkg/wa"

	"github.com/sirupsen/logrus"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	// CLI flags
	verbose    = flag.Bool("verbose", false, "Enable verbose logging (includes sensitive information)")
	configPath = flag.String("config", "config.json", "Path to configuration file")
	version    = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *version {
		fmt.Printf("baileys-api %s\nBuild Time: %s\nGit Commit: %s\n", Version, BuildTime, GitCommit)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logrus.Fatalf("Application error: %v", err)
	}
}

func run(ctx context.Context) error {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	logger.WithFields(logrus.Fields{
		"version": Version,
		"build":   BuildTime,
		"commit":  GitCommit,
	}).Info("Starting baileys-api")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
		logger.Info("Verbose logging enabled - sensitive information will be logged")
	} else {
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			logger.Warnf("Invalid log level %q, defaulting to info", cfg.LogLevel)
			level = logrus.InfoLevel
		}
		logger.SetLevel(level)
	}

	tracingManager := tracing.NewTracingManager(tracingConfig(cfg.Tracing), logger)
	if err := tracingManager.Initialize(ctx); err != nil {
		logger.Warnf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := tracingManager.Shutdown(context.Background()); err != nil {
			logger.Warnf("Failed to shutdown tracing: %v", err)
		}
	}()

	// Database bring-up with exponential backoff: SQLite on a slow or
	// contended volume may need a few attempts.
	var db *database.Database
	backoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: time.Duration(cfg.Retry.InitialBackoffMs) * time.Millisecond,
		MaxDelay:     time.Duration(cfg.Retry.MaxBackoffMs) * time.Millisecond,
		Multiplier:   2.0,
		MaxAttempts:  constants.DefaultDatabaseRetryAttempts,
		Jitter:       true,
	})
	err = backoff.Retry(ctx, func() error {
		var initErr error
		db, initErr = database.New(cfg.Database.Path)
		if initErr != nil {
			logger.Warnf("Failed to initialize database: %v", initErr)
		}
		return initErr
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database after retries: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warnf("Failed to close database: %v", err)
		}
	}()

	bus := events.NewBus(logger)
	defer bus.Close()

	chatWriter := service.NewChatWriter(db, logger)
	chatWriter.Start(bus)
	defer chatWriter.Stop()

	var forwarder *events.AMQPForwarder
	if cfg.AMQP.URL != "" {
		forwarder, err = events.NewAMQPForwarder(cfg.AMQP.URL, cfg.AMQP.Exchange, bus, logger)
		if err != nil {
			return fmt.Errorf("failed to start AMQP forwarder: %w", err)
		}
		go forwarder.Run(ctx)
		defer func() {
			if err := forwarder.Close(); err != nil {
				logger.Warnf("Failed to close AMQP forwarder: %v", err)
			}
		}()
		logger.WithField("exchange", cfg.AMQP.Exchange).Info("AMQP forwarder started")
	}

	registry := service.NewRegistry(db, bus, logger)
	for _, seed := range cfg.Sessions {
		client := wa.NewGatewayClient(wa.ClientConfig{
			BaseURL:   cfg.Gateway.BaseURL,
			APIKey:    cfg.Gateway.APIKey,
			SessionID: seed.ID,
			Timeout:   time.Duration(cfg.Gateway.TimeoutSec) * time.Second,
		})
		if _, err := registry.Add(seed.ID, client); err != nil {
			return fmt.Errorf("failed to register session %s: %w", seed.ID, err)
		}
	}

	msgService := service.NewMessageService(db, registry, logger)

	server := NewServer(cfg.Server, registry, msgService, bus, logger)
	serverErrCh := make(chan error, constants.ServerErrorChannelSize)
	go func() {
		if err := server.Start(); err != nil {
			serverErrCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-serverErrCh:
		logger.Error(err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(constants.DefaultGracefulShutdownSec)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server gracefully: %w", err)
	}

	logger.Info("Server shutdown completed")
	return nil
}

func tracingConfig(cfg models.TracingConfig) tracing.TracingConfig {
	out := tracing.DefaultTracingConfig()
	out.Enabled = cfg.Enabled
	out.UseStdout = cfg.UseStdout
	if cfg.ServiceName != "" {
		out.ServiceName = cfg.ServiceName
	}
	if cfg.ServiceVersion != "" {
		out.ServiceVersion = cfg.ServiceVersion
	}
	if cfg.Environment != "" {
		out.Environment = cfg.Environment
	}
	if cfg.OTLPEndpoint != "" {
		out.OTLPEndpoint = cfg.OTLPEndpoint
	}
	if cfg.SampleRate > 0 {
		out.SampleRate = cfg.SampleRate
	}
	return out
}
