package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/coa-verifier/internal/common"
	"github.com/joseph-ayodele/coa-verifier/internal/refstore"
	repo "github.com/joseph-ayodele/coa-verifier/internal/repository"
)

// ConnectDB opens the configured database and makes sure the reference and certificate tables
// exist.
func ConnectDB(ctx context.Context, cfg common.DatabaseConfig, logger *slog.Logger) (*repo.DB, error) {
	var (
		db  *repo.DB
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		db, err = repo.OpenSQLite(ctx, cfg.URL, logger)
	default:
		db, err = repo.Open(ctx, repo.Config{
			DSN:              cfg.URL,
			MaxConns:         cfg.MaxConns,
			MinConns:         cfg.MinConns,
			MaxConnLifetime:  cfg.MaxConnLifetime,
			MaxConnIdleTime:  cfg.MaxConnIdleTime,
			DialTimeout:      cfg.DialTimeout,
			StatementTimeout: cfg.StatementTimeout,
		}, logger)
	}
	if err != nil {
		logger.Error("failed to connect to database", "driver", cfg.Driver, "error", err)
		return nil, err
	}

	if err := refstore.EnsureSchema(ctx, db.Driver); err != nil {
		db.Close(logger)
		return nil, err
	}
	if err := repo.Migrate(ctx, db.Driver); err != nil {
		db.Close(logger)
		return nil, err
	}
	logger.Info("database ready", "driver", cfg.Driver)
	return db, nil
}

// PingDB pings the database to ensure it's responsive
func PingDB(ctx context.Context, db *repo.DB, logger *slog.Logger, timeout time.Duration) error {
	return db.HealthCheck(ctx, timeout, logger)
}
