// Command simulate autoplays runs headlessly and prints balance figures.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse environment: %v\n", err)
		os.Exit(1)
	}

	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid SIM_LOG_LEVEL: %v\n", err)
		os.Exit(1)
	}
	zapCfg := zap.NewDevelopmentConfig()
	zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := zapCfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Info("simulating",
		zap.Int("runs", cfg.Runs),
		zap.Int64("seed", cfg.Seed),
		zap.String("character", cfg.Character),
		zap.Int("max_days", cfg.MaxDays),
	)
	outcomes, err := simulate(ctx, cfg, logger)
	if err != nil {
		logger.Error("simulation stopped", zap.Error(err))
	}
	fmt.Println(summarise(outcomes))
	if err != nil {
		os.Exit(1)
	}
}
