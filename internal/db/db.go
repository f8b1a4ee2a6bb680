// Package db implements the Postgres side of the entity id lookup
package db

import (
	"context"
	"errors"
	"fmt"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"orderconsumer/internal/config"
)

// A DB is a wrapper for database pool
type DB struct {
	pool *pgxpool.Pool
}

// NewDB creates a new instance of DB using pool
func NewDB(pool *pgxpool.Pool) *DB {
	return &DB{pool}
}

// NewDBWithConfig creates a new instance of DB based on the configuration file
func NewDBWithConfig(ctx context.Context, cfg *config.Config) (*DB, error) {
	if cfg == nil {
		return nil, errors.New("no config was provided")
	}
	poolCfg, err := pgxpool.ParseConfig(connString(&cfg.Database))
	if err != nil {
		return nil, err
	}
	if cfg.Database.MaxOpenConnections > 0 {
		poolCfg.MaxConns = int32(cfg.Database.MaxOpenConnections)
	}
	poolCfg.MinConns = int32(cfg.Database.MinOpenConnections)
	poolCfg.MinIdleConns = int32(cfg.Database.MinIdleConnections)
	if cfg.Database.HealthCheckPeriod > 0 {
		poolCfg.HealthCheckPeriod = cfg.Database.HealthCheckPeriod
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	return &DB{pool}, nil
}

func connString(cfg *config.DatabaseConfig) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s", cfg.User, cfg.Password,
		cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode,
	)
}

// Ping calls the pool's ping
func (db *DB) Ping(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// WithTx wraps the function with database queries in a transaction
func (db *DB) WithTx(ctx context.Context, opts pgx.TxOptions, fn func(tx pgx.Tx) error) error {
	tx, err := db.pool.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// Close closes the connection to the pool
func (db *DB) Close() {
	db.pool.Close()
}
