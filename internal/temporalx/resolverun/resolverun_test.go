package resolverun

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"

	domainagg "github.com/yungbote/knowledge-backend/internal/domain/aggregates"
	"github.com/yungbote/knowledge-backend/internal/modules/knowledge"
)

type fakeResolver struct {
	res   knowledge.ResolveResult
	err   error
	calls chan uuid.UUID
}

func (f *fakeResolver) Resolve(ctx context.Context, id uuid.UUID) (knowledge.ResolveResult, error) {
	if f.calls != nil {
		f.calls <- id
	}
	if _, ok := ctx.Deadline(); !ok {
		return knowledge.ResolveResult{}, errors.New("expected a bounded context")
	}
	return f.res, f.err
}

func TestActivityReportsOutcome(t *testing.T) {
	id, book := uuid.New(), uuid.New()
	a := &Activities{Resolver: &fakeResolver{res: knowledge.ResolveResult{
		KnowledgeID: id,
		Outcome:     domainagg.BindOutcomeBound,
		BookID:      &book,
	}}}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	out, err := a.Resolve(ctx, Input{KnowledgeID: id.String()})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if out.Outcome != "bound" || out.BookID != book.String() || out.MergedInto != "" {
		t.Fatalf("unexpected output: %+v", out)
	}
}

func TestActivityClassifiesErrors(t *testing.T) {
	cases := []struct {
		err          error
		typ          string
		nonRetryable bool
	}{
		{domainagg.NewError(domainagg.CodeValidation, "op", "bad isbn", nil), "validation", true},
		{domainagg.NewError(domainagg.CodeNotFound, "op", "no record", nil), "not_found", true},
		{domainagg.NewError(domainagg.CodeExternalLookup, "isbndb.LookupISBN", "isbndb status 401", nil), "external_lookup", true},
		{domainagg.NewError(domainagg.CodeRetryable, "op", "deadlock", nil), "retryable", false},
		{domainagg.NewError(domainagg.CodeConflict, "op", "raced", nil), "conflict", false},
		{errors.New("boom"), "internal", false},
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for _, tc := range cases {
		a := &Activities{Resolver: &fakeResolver{err: tc.err}}
		_, err := a.Resolve(ctx, Input{KnowledgeID: uuid.NewString()})
		var appErr *temporal.ApplicationError
		if !errors.As(err, &appErr) {
			t.Fatalf("%v: expected application error, got %T", tc.err, err)
		}
		if appErr.Type() != tc.typ || appErr.NonRetryable() != tc.nonRetryable {
			t.Fatalf("%v: got type=%s nonRetryable=%v", tc.err, appErr.Type(), appErr.NonRetryable())
		}
	}

	a := &Activities{Resolver: &fakeResolver{}}
	_, err := a.Resolve(ctx, Input{KnowledgeID: "nope"})
	var appErr *temporal.ApplicationError
	if !errors.As(err, &appErr) || !appErr.NonRetryable() {
		t.Fatalf("malformed id should be non-retryable, got %v", err)
	}
}

func TestGoroutineDispatcherRunsInBackground(t *testing.T) {
	r := &fakeResolver{calls: make(chan uuid.UUID, 1)}
	d := NewGoroutineDispatcher(nil, r, time.Second)
	id := uuid.New()

	ctx, cancel := context.WithCancel(context.Background())
	if err := d.DispatchResolve(ctx, id); err != nil {
		t.Fatalf("DispatchResolve: %v", err)
	}
	cancel()

	select {
	case got := <-r.calls:
		if got != id {
			t.Fatalf("resolved %s, want %s", got, id)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("background resolve never ran")
	}
}

func TestWorkflowID(t *testing.T) {
	id := uuid.MustParse("7f1b2a4e-9c1d-4c39-9a53-0e2f3e1d2c3b")
	if got := WorkflowID(id); got != "knowledge_resolve:7f1b2a4e-9c1d-4c39-9a53-0e2f3e1d2c3b" {
		t.Fatalf("unexpected id %q", got)
	}
}
