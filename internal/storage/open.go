package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverBolt     = "bolt"
)

// Drivers lists every supported driver.
var Drivers = []string{DriverMemory, DriverFile, DriverSQLite, DriverPostgres, DriverBolt}

// Config selects and configures a backend.
type Config struct {
	Driver string
	DSN    string // postgres connection string
	Path   string // directory for file, database file for sqlite and bolt
}

// Open builds the configured backend.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var (
		store Store
		err   error
	)
	switch cfg.Driver {
	case "", DriverMemory:
		store = NewMemory()
	case DriverFile:
		store, err = NewFile(cfg.Path, logger)
	case DriverSQLite:
		store, err = OpenSQLite(cfg.Path)
	case DriverPostgres:
		store, err = OpenPostgres(ctx, cfg.DSN)
	case DriverBolt:
		store, err = OpenBolt(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Driver, err)
	}
	logger.Info("storage opened", zap.String("driver", cfg.Driver))
	return store, nil
}
