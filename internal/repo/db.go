// Package repo implements the SQL-backed announcements store on GORM.
//
// The package follows the thin repository approach: the free functions in
// this package take a *gorm.DB (which may be a transaction) and do nothing but
// query composition. Store composes them into the store.Store contract,
// adding locking, transactions and error mapping.
//
// This file contains database bootstrapping helpers for SQLite (pure Go
// driver) and schema migrations.
package repo

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/announcements-backend/internal/domain"
)

// DefaultDSN is a private in-memory database that lives as long as the
// process holds a connection to it.
const DefaultDSN = "file:announcements?mode=memory&cache=shared"

// IsMemoryDSN reports whether dsn names an in-memory SQLite database.
func IsMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}

// OpenSQLite opens (or creates) a SQLite database, applies PRAGMAs, tunes the
// pool and installs the OpenTelemetry tracing plugin.
//
// In-memory databases are pinned to a single connection so that every query
// sees the same database and writes never contend for the shared-cache lock.
func OpenSQLite(dsn string) (*gorm.DB, error) {
	if !IsMemoryDSN(dsn) {
		// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
		path := strings.TrimPrefix(dsn, "file:")
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path = path[:i]
		}
		if dir := filepath.Dir(path); dir != "." {
			if _, err := os.Stat(dir); err != nil {
				return nil, err
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	if !IsMemoryDSN(dsn) {
		db.Exec("PRAGMA journal_mode=WAL;")
		db.Exec("PRAGMA synchronous=NORMAL;")
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	// Pool
	if sqlDB, err := db.DB(); err == nil {
		if IsMemoryDSN(dsn) {
			sqlDB.SetMaxOpenConns(1)
			sqlDB.SetMaxIdleConns(1)
			sqlDB.SetConnMaxIdleTime(0)
			sqlDB.SetConnMaxLifetime(0)
		} else {
			sqlDB.SetMaxOpenConns(10)
			sqlDB.SetMaxIdleConns(10)
			sqlDB.SetConnMaxIdleTime(5 * time.Minute)
			sqlDB.SetConnMaxLifetime(30 * time.Minute)
		}
	}

	if err := db.Use(tracing.NewPlugin()); err != nil {
		return nil, err
	}
	return db, nil
}

// AutoMigrate creates or updates the four store tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Announcement{},
		&domain.Comment{},
		&domain.Reaction{},
		&domain.IdempotencyRecord{},
	)
}
