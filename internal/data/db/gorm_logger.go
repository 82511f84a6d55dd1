package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/knowledge-backend/internal/platform/ctxutil"
	"github.com/yungbote/knowledge-backend/internal/platform/logger"
)

// GormLogger sends GORM output through the service logger. Slow queries
// and failed queries are warnings; record-not-found is expected and dropped.
type GormLogger struct {
	log   *logger.Logger
	slow  time.Duration
	level gormLogger.LogLevel
}

func NewGormLogger(log *logger.Logger, slow time.Duration) *GormLogger {
	if log == nil {
		log = logger.Nop()
	}
	return &GormLogger{log: log.With("component", "gorm"), slow: slow, level: gormLogger.Warn}
}

func (l *GormLogger) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	out := *l
	out.level = level
	return &out
}

func (l *GormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormLogger.Info {
		l.log.Info(fmt.Sprintf(msg, args...), ctxutil.LogFields(ctx)...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormLogger.Warn {
		l.log.Warn(fmt.Sprintf(msg, args...), ctxutil.LogFields(ctx)...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= gormLogger.Error {
		l.log.Error(fmt.Sprintf(msg, args...), ctxutil.LogFields(ctx)...)
	}
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormLogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormLogger.Error:
		sql, rows := fc()
		l.log.Warn("query failed", append(ctxutil.LogFields(ctx), "sql", sql, "rows", rows, "elapsed", elapsed, "error", err)...)
	case l.slow > 0 && elapsed > l.slow && l.level >= gormLogger.Warn:
		sql, rows := fc()
		l.log.Warn("slow query", append(ctxutil.LogFields(ctx), "sql", sql, "rows", rows, "elapsed", elapsed)...)
	case l.level >= gormLogger.Info:
		sql, rows := fc()
		l.log.Debug("query", append(ctxutil.LogFields(ctx), "sql", sql, "rows", rows, "elapsed", elapsed)...)
	}
}
