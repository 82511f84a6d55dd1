package aggregates

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/knowledge-backend/internal/domain/aggregates"
	"github.com/yungbote/knowledge-backend/internal/observability"
	"github.com/yungbote/knowledge-backend/internal/platform/dbctx"
	"github.com/yungbote/knowledge-backend/internal/platform/logger"
)

type BaseDeps struct {
	DB     *gorm.DB
	Log    *logger.Logger
	Runner TxRunner
	Hooks  Hooks
}

func (d BaseDeps) withDefaults() BaseDeps {
	if d.Runner == nil {
		d.Runner = NewGormTxRunner(d.DB)
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	return d
}

// executeWrite runs fn in one transaction under op. The returned error is
// always mapped to a domain code; hooks see the same code as status.
func executeWrite(ctx context.Context, deps BaseDeps, op string, fn func(dbc dbctx.Context) error) error {
	deps = deps.withDefaults()
	op = strings.TrimSpace(op)
	if op == "" {
		op = "aggregate.write"
	}
	ctx, span := observability.StartSpan(ctx, op, attribute.String("aggregate.operation", op))
	start := time.Now()

	mapped := MapError(op, deps.Runner.InTx(ctx, fn))
	status := aggregateErrorStatus(mapped)
	switch status {
	case string(domainagg.CodeConflict):
		deps.Hooks.IncConflict(op)
	case string(domainagg.CodeRetryable):
		deps.Hooks.IncRetry(op)
	case string(domainagg.CodeInternal):
		deps.Log.Warn("aggregate write failed", "operation", op, "error", mapped)
	}
	deps.Hooks.ObserveOperation(op, status, time.Since(start))

	span.SetAttributes(attribute.String("aggregate.status", status))
	observability.EndSpan(span, mapped)
	return mapped
}

func aggregateErrorStatus(err error) string {
	if err == nil {
		return "success"
	}
	code := domainagg.CodeOf(err)
	if code == "" {
		code = domainagg.CodeOf(MapError("aggregate.status", err))
	}
	if code == "" {
		return "failure"
	}
	return string(code)
}
