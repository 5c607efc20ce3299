// Package database provides storage for the market data warehouse.
//
// This package includes:
//   - Connection management using lib/pq and GORM over PostgreSQL
//   - The transactional replace-load Store used by the pipeline
//   - Typed errors for load failures, missing resources and driver errors
//
// Data models (Symbol, Bar, FeatureReturnsRSI, etc.) live in the models_pkg package.
package database

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"quant-warehouse/config"
)

// Database holds the GORM connection and the sql.DB pool beneath it
type Database struct {
	db  *gorm.DB
	sql *sql.DB
}

// DB returns the underlying GORM database instance
func (d *Database) DB() *gorm.DB {
	return d.db
}

// Connect opens a pooled lib/pq connection and wraps it with GORM
func Connect(ctx context.Context, cfg config.DatabaseConfig, log *zap.Logger) (*Database, error) {
	sqlDB, err := NewConnection(ctx, cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("Database connection established",
		zap.String("host", cfg.Host), zap.Int("port", cfg.Port), zap.String("database", cfg.Name))
	return &Database{db: db, sql: sqlDB}, nil
}

// Ping checks if the database connection is alive
func (d *Database) Ping(ctx context.Context) error {
	return d.sql.PingContext(ctx)
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.sql.Close()
}
