package db

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/knowledge-backend/internal/platform/envutil"
	"github.com/yungbote/knowledge-backend/internal/platform/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type PostgresService struct {
	db     *gorm.DB
	log    *logger.Logger
	driver string
}

// NewPostgresService opens the relational store. DB_DRIVER=sqlite switches to
// a local file (SQLITE_PATH) for development runs.
func NewPostgresService(logg *logger.Logger) (*PostgresService, error) {
	serviceLog := logg.With("service", "PostgresService")
	driver := strings.ToLower(envutil.String("DB_DRIVER", DriverPostgres))

	dsn := PostgresDSNFromEnv()
	if driver == DriverSQLite {
		dsn = envutil.String("SQLITE_PATH", "knowledge.db")
	}
	db, err := Open(driver, dsn, NewGormLogger(logg, envutil.Millis("DB_SLOW_QUERY_MS", time.Second)))
	if err != nil {
		return nil, err
	}
	serviceLog.Info("Database connected", "driver", driver)
	return &PostgresService{db: db, log: serviceLog, driver: driver}, nil
}

// Open connects with the given driver. For sqlite, dsn is a file path or
// ":memory:" and foreign keys are switched on so cascades fire.
func Open(driver, dsn string, gormLog gormLogger.Interface) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite:
		dialector = sqlite.Open(dsn + "?_foreign_keys=on")
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}
	if gormLog == nil {
		gormLog = gormLogger.Discard
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog, TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		if err := db.Exec(`PRAGMA foreign_keys = ON;`).Error; err != nil {
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	}
	return db, nil
}

func PostgresDSNFromEnv() string {
	if dsn := envutil.String("POSTGRES_DSN", ""); dsn != "" {
		return dsn
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		envutil.String("POSTGRES_USER", "postgres"),
		envutil.String("POSTGRES_PASSWORD", ""),
		envutil.String("POSTGRES_HOST", "localhost"),
		envutil.String("POSTGRES_PORT", "5432"),
		envutil.String("POSTGRES_NAME", "knowledge"),
		envutil.String("POSTGRES_SSLMODE", "disable"),
	)
}

func (s *PostgresService) DB() *gorm.DB { return s.db }

func (s *PostgresService) Driver() string { return s.driver }

func (s *PostgresService) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
