package testutil

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"gorm.io/gorm"

	"github.com/yungbote/knowledge-backend/internal/data/db"
	"github.com/yungbote/knowledge-backend/internal/platform/logger"
)

// Logger is a discard logger; repo tests assert on rows, not log lines.
func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	return logger.Nop()
}

type sharedDB struct {
	once sync.Once
	db   *gorm.DB
	err  error
}

var shared sharedDB

// DB returns a migrated handle for repo integration tests. TEST_POSTGRES_DSN
// selects a shared Postgres server; without it each test gets its own sqlite
// file, which accepts the same partial indexes and upserts.
func DB(tb testing.TB) *gorm.DB {
	tb.Helper()
	dsn := strings.TrimSpace(os.Getenv("TEST_POSTGRES_DSN"))
	if dsn == "" {
		gdb, err := migrated(db.DriverSQLite, filepath.Join(tb.TempDir(), "repos.db"))
		if err != nil {
			tb.Fatalf("sqlite test db: %v", err)
		}
		if sqlDB, err := gdb.DB(); err == nil {
			tb.Cleanup(func() { _ = sqlDB.Close() })
		}
		return gdb
	}
	shared.once.Do(func() {
		shared.db, shared.err = migrated(db.DriverPostgres, dsn)
	})
	if shared.err != nil {
		tb.Fatalf("test db: %v", shared.err)
	}
	return shared.db
}

func migrated(driver, dsn string) (*gorm.DB, error) {
	gdb, err := db.Open(driver, dsn, nil)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrateAll(gdb); err != nil {
		return nil, err
	}
	if err := db.EnsureKnowledgeIndexes(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}

// Tx opens a transaction that is rolled back when the test ends, so tests
// never see each other's rows.
func Tx(tb testing.TB, gdb *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := gdb.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() { tx.Rollback() })
	return tx
}
