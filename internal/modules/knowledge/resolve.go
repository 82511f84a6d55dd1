package knowledge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	types "github.com/yungbote/knowledge-backend/internal/domain"
	domainagg "github.com/yungbote/knowledge-backend/internal/domain/aggregates"
	domainknowledge "github.com/yungbote/knowledge-backend/internal/domain/knowledge"
	"github.com/yungbote/knowledge-backend/internal/observability"
	"github.com/yungbote/knowledge-backend/internal/platform/dbctx"
	"github.com/yungbote/knowledge-backend/internal/platform/retry"
	"github.com/yungbote/knowledge-backend/internal/realtime"
)

type ResolveResult struct {
	KnowledgeID uuid.UUID             `json:"knowledge_id"`
	Outcome     domainagg.BindOutcome `json:"outcome"`
	BookID      *uuid.UUID            `json:"book_id,omitempty"`
	MergedInto  *uuid.UUID            `json:"merged_into,omitempty"`
}

// Resolve binds a book node to its canonical record, merging it into the
// owner's existing node for that record when there is one. Calling it again
// on a bound node (or a non-book node) is a no-op with no external calls.
func (u Usecases) Resolve(ctx context.Context, knowledgeID uuid.UUID) (out ResolveResult, err error) {
	const op = "Knowledge.Resolve"
	ctx, span := observability.StartSpan(ctx, "knowledge.resolve", attribute.String("knowledge.id", knowledgeID.String()))
	defer func() {
		observability.EndSpan(span, err)
		u.deps.Metrics.IncResolveOutcome(resolveOutcomeLabel(out, err))
	}()

	out = ResolveResult{KnowledgeID: knowledgeID, Outcome: domainagg.BindOutcomeNoop}
	if knowledgeID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing knowledge_id", nil)
	}
	if u.deps.Knowledge == nil || u.deps.Aggregate == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "knowledge usecases not configured", nil)
	}

	node, err := u.deps.Knowledge.GetByID(dbctx.Context{Ctx: ctx}, knowledgeID)
	if err != nil {
		return out, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if node == nil {
		return out, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("knowledge not found: %s", knowledgeID), nil)
	}
	if !node.Kind.NeedsResolution() || node.IsResolved() {
		out.BookID = node.BookID
		return out, nil
	}

	query, kind, err := resolutionQuery(op, node)
	if err != nil {
		return out, u.recordFailure(ctx, node.ID, err)
	}
	book, err := u.ResolveBook(ctx, query, kind)
	if err == nil && book == nil {
		err = domainagg.NewError(domainagg.CodeNotFound, op, "no book resolved", nil)
	}
	if err != nil {
		return out, u.recordFailure(ctx, node.ID, err)
	}

	var res domainagg.BindOrMergeResult
	err = retry.Do(ctx, retry.Policy{
		MaxAttempts: u.deps.Config.MergeMaxAttempts,
		Backoff:     retry.NoDelay,
		Retryable:   domainagg.Retryable,
		OnRetry: func(attempt int, _ time.Duration, err error) {
			u.log.Info("bind lost a race, retrying", "knowledge_id", node.ID, "attempt", attempt, "error", err)
		},
	}, func(ctx context.Context, _ int) error {
		r, err := u.deps.Aggregate.BindOrMerge(ctx, domainagg.BindOrMergeInput{
			KnowledgeID: node.ID,
			BookID:      book.ID,
			BookTitle:   book.Title,
		})
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if err != nil {
		if retry.IsExhausted(err) {
			err = domainagg.NewError(domainagg.CodeConflict, op, "bind conflicts exhausted", err)
		}
		return out, u.recordFailure(ctx, node.ID, err)
	}

	out.Outcome = res.Outcome
	switch res.Outcome {
	case domainagg.BindOutcomeBound:
		bookID := book.ID
		out.BookID = &bookID
		u.emit(ctx, realtime.Signal{Type: realtime.SignalPublished, KnowledgeID: node.ID, UserID: node.UserID, BookID: &bookID, At: u.deps.Now()})
		u.mirrorBound(ctx, node.ID, book)
	case domainagg.BindOutcomeMerged:
		bookID := book.ID
		into := res.MergedInto
		out.BookID = &bookID
		out.MergedInto = &into
		u.log.Info("merged duplicate node", "knowledge_id", node.ID, "into", into, "moved_edges", res.MovedEdges, "skipped_edges", res.SkippedEdges)
		u.emit(ctx, realtime.Signal{Type: realtime.SignalMerged, KnowledgeID: node.ID, UserID: node.UserID, BookID: &bookID, MergedInto: &into, At: u.deps.Now()})
		if err := u.deps.Graph.MergeInto(ctx, node.ID, into); err != nil {
			u.log.Warn("graph mirror merge failed (continuing)", "knowledge_id", node.ID, "error", err)
		}
	default:
		if current, _ := u.deps.Knowledge.GetByID(dbctx.Context{Ctx: ctx}, node.ID); current != nil {
			out.BookID = current.BookID
		}
	}
	return out, nil
}

// ResolveOwned runs Resolve on behalf of the node's owner.
func (u Usecases) ResolveOwned(ctx context.Context, actor, knowledgeID uuid.UUID) (ResolveResult, error) {
	const op = "Knowledge.ResolveOwned"
	if actor == uuid.Nil {
		return ResolveResult{}, domainagg.NewError(domainagg.CodeForbidden, op, "actor required", nil)
	}
	if u.deps.Knowledge == nil {
		return ResolveResult{}, domainagg.NewError(domainagg.CodeInternal, op, "knowledge usecases not configured", nil)
	}
	k, err := u.deps.Knowledge.GetByID(dbctx.Context{Ctx: ctx}, knowledgeID)
	if err != nil {
		return ResolveResult{}, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if k == nil {
		return ResolveResult{}, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("knowledge not found: %s", knowledgeID), nil)
	}
	if k.UserID != actor {
		return ResolveResult{}, domainagg.NewError(domainagg.CodeForbidden, op, "only the owner may resolve", nil)
	}
	return u.Resolve(ctx, knowledgeID)
}

// ResolvePending sweeps unresolved book nodes. Failures are persisted on each
// node by Resolve and do not stop the sweep.
func (u Usecases) ResolvePending(ctx context.Context, limit int) (int, error) {
	if u.deps.Knowledge == nil {
		return 0, domainagg.NewError(domainagg.CodeInternal, "Knowledge.ResolvePending", "knowledge usecases not configured", nil)
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := u.deps.Knowledge.ListUnresolved(dbctx.Context{Ctx: ctx}, limit)
	if err != nil {
		return 0, err
	}
	resolved := 0
	for _, k := range rows {
		if ctx.Err() != nil {
			return resolved, ctx.Err()
		}
		res, err := u.Resolve(ctx, k.ID)
		if err != nil {
			u.log.Warn("pending resolve failed", "knowledge_id", k.ID, "error", err)
			continue
		}
		if res.Outcome != domainagg.BindOutcomeNoop {
			resolved++
		}
	}
	return resolved, nil
}

// resolutionQuery picks the stored query and kind. A missing kind is inferred:
// anything that parses as an ISBN is looked up as one.
func resolutionQuery(op string, node *types.Knowledge) (string, types.QueryKind, error) {
	query := ""
	if node.Query != nil {
		query = strings.TrimSpace(*node.Query)
	}
	if query == "" {
		return "", "", domainagg.NewError(domainagg.CodeValidation, op, "book node has no query", nil)
	}
	if node.QueryKind != nil && *node.QueryKind != "" {
		return query, *node.QueryKind, nil
	}
	if _, _, err := domainknowledge.NormalizeISBN(query); err == nil {
		return query, types.QueryKindISBN, nil
	}
	return query, types.QueryKindSearch, nil
}

// recordFailure persists err on the node and returns it unchanged.
func (u Usecases) recordFailure(ctx context.Context, id uuid.UUID, err error) error {
	if rerr := u.deps.Aggregate.RecordResolutionError(ctx, id, err.Error()); rerr != nil {
		u.log.Warn("failed to persist resolution error", "knowledge_id", id, "error", rerr)
	}
	return err
}

func (u Usecases) emit(ctx context.Context, sig realtime.Signal) {
	if u.deps.Signals == nil {
		return
	}
	status := "ok"
	if err := u.deps.Signals.Publish(ctx, sig); err != nil {
		status = "error"
		u.log.Warn("signal publish failed", "type", sig.Type, "knowledge_id", sig.KnowledgeID, "error", err)
	}
	u.deps.Metrics.IncSignal(string(sig.Type), status)
}

func (u Usecases) mirrorBound(ctx context.Context, id uuid.UUID, book *types.Book) {
	if u.deps.Graph == nil {
		return
	}
	dbc := dbctx.Context{Ctx: ctx}
	node, err := u.deps.Knowledge.GetByID(dbc, id)
	if err != nil || node == nil {
		return
	}
	var edges []*types.Connection
	if u.deps.Connections != nil {
		edges, _ = u.deps.Connections.ListOutbound(dbc, id)
	}
	if err := u.deps.Graph.UpsertBound(ctx, node, book, edges); err != nil {
		u.log.Warn("graph mirror upsert failed (continuing)", "knowledge_id", id, "error", err)
	}
}

func resolveOutcomeLabel(out ResolveResult, err error) string {
	if err != nil {
		if code := domainagg.CodeOf(err); code != "" {
			return string(code)
		}
		return "error"
	}
	return string(out.Outcome)
}
