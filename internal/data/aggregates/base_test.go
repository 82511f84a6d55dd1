package aggregates

import (
	"context"
	"errors"
	"testing"
	"time"

	domainagg "github.com/yungbote/knowledge-backend/internal/domain/aggregates"
	"github.com/yungbote/knowledge-backend/internal/platform/dbctx"
)

type passthroughRunner struct{}

func (passthroughRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	return fn(dbctx.Context{Ctx: ctx})
}

type countingHooks struct {
	statuses  []string
	conflicts int
	retries   int
}

func (h *countingHooks) ObserveOperation(_, status string, _ time.Duration) {
	h.statuses = append(h.statuses, status)
}
func (h *countingHooks) IncConflict(string) { h.conflicts++ }
func (h *countingHooks) IncRetry(string)    { h.retries++ }

func TestExecuteWriteReportsMappedStatus(t *testing.T) {
	cases := []struct {
		name      string
		body      error
		status    string
		conflicts int
		retries   int
	}{
		{name: "ok", status: "success"},
		{name: "missing", body: NotFoundError("node"), status: string(domainagg.CodeNotFound)},
		{name: "slug taken", body: ConflictError("slug"), status: string(domainagg.CodeConflict), conflicts: 1},
		{name: "lock timeout", body: RetryableError("lock"), status: string(domainagg.CodeRetryable), retries: 1},
		{name: "deadline", body: context.DeadlineExceeded, status: string(domainagg.CodeRetryable), retries: 1},
		{name: "unknown", body: errors.New("disk on fire"), status: string(domainagg.CodeInternal)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hooks := &countingHooks{}
			err := executeWrite(context.Background(), BaseDeps{Runner: passthroughRunner{}, Hooks: hooks}, "knowledge.test",
				func(dbctx.Context) error { return tc.body })
			if (err == nil) != (tc.body == nil) {
				t.Fatalf("err=%v body=%v", err, tc.body)
			}
			if len(hooks.statuses) != 1 || hooks.statuses[0] != tc.status {
				t.Fatalf("statuses: want=[%s] got=%v", tc.status, hooks.statuses)
			}
			if hooks.conflicts != tc.conflicts || hooks.retries != tc.retries {
				t.Fatalf("counters: conflicts=%d retries=%d", hooks.conflicts, hooks.retries)
			}
			if err != nil && string(domainagg.CodeOf(err)) != tc.status {
				t.Fatalf("returned code %q does not match status %q", domainagg.CodeOf(err), tc.status)
			}
		})
	}
}

func TestChainHooksFansOut(t *testing.T) {
	a, b := &countingHooks{}, &countingHooks{}
	h := ChainHooks(a, nil, b)
	h.ObserveOperation("knowledge.publish", "conflict", time.Millisecond)
	h.IncConflict("knowledge.publish")
	h.IncRetry("knowledge.publish")
	for i, got := range []*countingHooks{a, b} {
		if len(got.statuses) != 1 || got.conflicts != 1 || got.retries != 1 {
			t.Fatalf("hook %d missed events: %+v", i, got)
		}
	}
}

func TestGormTxRunnerRejectsNilDB(t *testing.T) {
	err := (&gormTxRunner{}).InTx(context.Background(), func(dbctx.Context) error { return nil })
	if !domainagg.IsCode(err, domainagg.CodeInternal) {
		t.Fatalf("expected internal, got %v", err)
	}
}
