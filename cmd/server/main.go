package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/thraizz/wildwood-server-go/internal/config"
	"github.com/thraizz/wildwood-server-go/internal/game"
	"github.com/thraizz/wildwood-server-go/internal/game/persistence"
	"github.com/thraizz/wildwood-server-go/internal/server"
	"github.com/thraizz/wildwood-server-go/internal/session"
	"github.com/thraizz/wildwood-server-go/internal/storage"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting wildwood server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Save slots
	store, err := storage.Open(ctx, cfg.StorageBackend(), logger)
	if err != nil {
		logger.Fatal("failed to open storage", zap.Error(err))
	}
	defer store.Close()

	writer := persistence.NewWriter(store, logger)
	defer writer.Close()

	// Effect sinks
	hub := server.NewHub(logger)
	go hub.Run(ctx)

	sinks := game.MultiSink{hub}
	if cfg.NATS.Embedded || cfg.NATS.URL != "" {
		url := cfg.NATS.URL
		if cfg.NATS.Embedded {
			ns, err := server.StartEmbeddedNATS(cfg.NATS.Host, cfg.NATS.Port, logger)
			if err != nil {
				logger.Fatal("failed to start embedded nats", zap.Error(err))
			}
			defer ns.Shutdown()
			if url == "" {
				url = ns.ClientURL()
			}
		}
		natsSink, err := server.NewNATSSink(url, cfg.NATS.Subject, logger)
		if err != nil {
			logger.Fatal("failed to connect to nats", zap.Error(err))
		}
		defer natsSink.Close()
		sinks = append(sinks, natsSink)
	}

	rules := cfg.Rules()
	banners, animations := cfg.Queues()
	factory := func(id string) (*game.Engine, error) {
		return game.NewEngine(logger,
			game.WithSessionID(id),
			game.WithConfig(rules),
			game.WithPersister(writer, id),
			game.WithSink(sinks),
			game.WithSchedulerOptions(banners, animations),
		)
	}

	sessionMgr := session.NewManager(factory, logger,
		session.WithStore(store),
		session.WithLimits(cfg.Sessions.MaxSessions, cfg.Sessions.IdleTimeout),
	)
	logger.Info("session manager initialized",
		zap.Int("max_sessions", cfg.Sessions.MaxSessions),
		zap.Duration("idle_timeout", cfg.Sessions.IdleTimeout),
	)
	if cfg.Sessions.IdleTimeout > 0 {
		go sessionMgr.CleanupIdleSessions(ctx, cfg.Sessions.IdleTimeout/4)
	}

	// HTTP API and websockets
	api := server.NewAPI(sessionMgr, hub, logger)
	httpServer := &http.Server{
		Addr:         cfg.Server.HTTP.Address,
		Handler:      api.Router(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
	}
	go func() {
		logger.Info("starting HTTP server", zap.String("address", cfg.Server.HTTP.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	// gRPC health and reflection
	grpcServer, healthServer := server.NewGRPCServer(logger, cfg.Server.GRPC.MaxConcurrentStreams)
	lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
	if err != nil {
		logger.Fatal("failed to listen", zap.Error(err))
	}
	go func() {
		logger.Info("starting gRPC server", zap.String("address", cfg.Server.GRPC.Address))
		if serveErr := grpcServer.Serve(lis); serveErr != nil {
			logger.Error("gRPC server error", zap.Error(serveErr))
		}
	}()

	logger.Info("wildwood server initialized",
		zap.String("version", version),
		zap.String("http_address", cfg.Server.HTTP.Address),
		zap.String("grpc_address", cfg.Server.GRPC.Address),
		zap.String("storage_driver", cfg.Storage.Driver),
		zap.Bool("content_enabled", cfg.Content.Enabled),
	)

	// Wait for termination signal
	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown error", zap.Error(err))
	}
	cancel()

	sessionMgr.CloseAll()
	writer.Flush()
	if n := writer.Failures(); n > 0 {
		logger.Warn("some saves failed", zap.Int("failures", n))
	}

	grpcServer.GracefulStop()

	logger.Info("wildwood server stopped")
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
