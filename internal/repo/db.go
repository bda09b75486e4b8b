// Package repo is the GORM persistence layer: one file per aggregate with
// plain functions taking a *gorm.DB, so services choose the transaction.
package repo

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-claims-backend/internal/config"
	"github.com/tbourn/go-claims-backend/internal/domain"
)

// sqlitePragmas run on every pooled connection. WAL lets the HTTP server and
// claimctl share one file; foreign keys guard the step and attachment rows.
var sqlitePragmas = []string{
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
	"foreign_keys(1)",
	"busy_timeout(5000)",
}

type pool struct {
	maxOpen  int
	idleTime time.Duration
	lifetime time.Duration
}

var (
	sqlitePool   = pool{maxOpen: 10, idleTime: 5 * time.Minute, lifetime: 30 * time.Minute}
	postgresPool = pool{maxOpen: 20, idleTime: 5 * time.Minute, lifetime: 30 * time.Minute}
)

// Open connects to the database cfg.Driver names.
func Open(cfg config.DBConfig) (*gorm.DB, error) {
	switch cfg.Driver {
	case "sqlite":
		return OpenSQLite(cfg.Path)
	case "postgres":
		return OpenPostgres(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Driver)
	}
}

// OpenSQLite opens or creates the database file at path. The parent
// directory must exist.
func OpenSQLite(path string) (*gorm.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("sqlite dir: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return db, sqlitePool.apply(db)
}

func sqliteDSN(path string) string {
	q := url.Values{}
	for _, p := range sqlitePragmas {
		q.Add("_pragma", p)
	}
	return path + "?" + q.Encode()
}

// OpenPostgres connects through the pgx-backed GORM driver.
func OpenPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return db, postgresPool.apply(db)
}

func (p pool) apply(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(p.maxOpen)
	sqlDB.SetMaxIdleConns(p.maxOpen)
	sqlDB.SetConnMaxIdleTime(p.idleTime)
	sqlDB.SetConnMaxLifetime(p.lifetime)
	return nil
}

// EnableTracing makes every query a span under the caller's trace.
func EnableTracing(db *gorm.DB) error {
	return db.Use(tracing.NewPlugin(tracing.WithoutMetrics()))
}

// AutoMigrate creates or updates every table the service uses.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Approval{},
		&domain.ApproverStep{},
		&domain.Attachment{},
		&domain.ChatMessage{},
		&domain.UsedToken{},
		&domain.AuditEntry{},
		&domain.User{},
		&domain.DirectoryEntry{},
		&domain.Idempotency{},
	)
}
