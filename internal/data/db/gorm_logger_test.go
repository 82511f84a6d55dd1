package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/knowledge-backend/internal/platform/logger"
)

func TestGormLoggerTrace(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewGormLogger(logger.NewWithCore(core), 10*time.Millisecond)
	sql := func() (string, int64) { return "SELECT 1", 1 }
	ctx := context.Background()

	l.Trace(ctx, time.Now(), sql, nil)
	l.Trace(ctx, time.Now(), sql, gorm.ErrRecordNotFound)
	if n := logs.Len(); n != 0 {
		t.Fatalf("fast and not-found queries should be quiet at warn, got %d", n)
	}

	l.Trace(ctx, time.Now().Add(-time.Second), sql, nil)
	l.Trace(ctx, time.Now(), sql, errors.New("relation does not exist"))
	entries := logs.TakeAll()
	if len(entries) != 2 || entries[0].Message != "slow query" || entries[1].Message != "query failed" {
		t.Fatalf("unexpected entries: %+v", entries)
	}

	l.LogMode(gormLogger.Silent).Trace(ctx, time.Now().Add(-time.Second), sql, errors.New("x"))
	l.LogMode(gormLogger.Info).Trace(ctx, time.Now(), sql, nil)
	entries = logs.TakeAll()
	if len(entries) != 1 || entries[0].Message != "query" {
		t.Fatalf("silent should drop, info should log: %+v", entries)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "", nil); err == nil {
		t.Fatalf("expected error")
	}
}
