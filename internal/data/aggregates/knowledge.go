package aggregates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yungbote/knowledge-backend/internal/data/repos"
	types "github.com/yungbote/knowledge-backend/internal/domain"
	domainagg "github.com/yungbote/knowledge-backend/internal/domain/aggregates"
	"github.com/yungbote/knowledge-backend/internal/platform/dbctx"
)

type KnowledgeAggregateDeps struct {
	Base BaseDeps

	Knowledge   repos.KnowledgeRepo
	Connections repos.ConnectionRepo
	Media       repos.MediaAttachmentRepo
	Aliases     repos.SlugAliasRepo
}

type knowledgeAggregate struct {
	deps KnowledgeAggregateDeps
}

func NewKnowledgeAggregate(deps KnowledgeAggregateDeps) domainagg.KnowledgeAggregate {
	deps.Base = deps.Base.withDefaults()
	return &knowledgeAggregate{deps: deps}
}

func (a *knowledgeAggregate) configured() bool {
	return a.deps.Knowledge != nil && a.deps.Connections != nil && a.deps.Media != nil && a.deps.Aliases != nil
}

func (a *knowledgeAggregate) BindOrMerge(ctx context.Context, in domainagg.BindOrMergeInput) (domainagg.BindOrMergeResult, error) {
	const op = domainagg.OpBindOrMerge
	out := domainagg.BindOrMergeResult{KnowledgeID: in.KnowledgeID}
	if in.KnowledgeID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing knowledge_id", nil)
	}
	if in.BookID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing book_id", nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "knowledge aggregate repos not configured", nil)
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		res, err := a.bindOrMerge(dbc, in)
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	if err != nil {
		return domainagg.BindOrMergeResult{KnowledgeID: in.KnowledgeID}, err
	}
	return out, nil
}

func (a *knowledgeAggregate) bindOrMerge(dbc dbctx.Context, in domainagg.BindOrMergeInput) (domainagg.BindOrMergeResult, error) {
	out := domainagg.BindOrMergeResult{KnowledgeID: in.KnowledgeID, Outcome: domainagg.BindOutcomeNoop}

	node, err := a.deps.Knowledge.GetByID(dbc, in.KnowledgeID)
	if err != nil {
		return out, err
	}
	if node == nil {
		return out, NotFoundError(fmt.Sprintf("knowledge not found: %s", in.KnowledgeID))
	}
	out.UserID = node.UserID
	if node.IsResolved() {
		return out, nil
	}

	survivor, err := a.deps.Knowledge.GetByUserBook(dbc, node.UserID, in.BookID, node.ID)
	if err != nil {
		return out, err
	}
	if survivor == nil {
		title := strings.TrimSpace(in.BookTitle)
		if title == "" {
			title = node.Title
		}
		bound, err := a.deps.Knowledge.Bind(dbc, node.ID, in.BookID, title)
		if err != nil {
			return out, err
		}
		if !bound {
			// Lost a race with another resolve of the same node.
			return out, nil
		}
		out.Outcome = domainagg.BindOutcomeBound
		return out, nil
	}

	moved, skipped, err := a.mergeInto(dbc, node, survivor)
	if err != nil {
		return out, err
	}
	out.Outcome = domainagg.BindOutcomeMerged
	out.MergedInto = survivor.ID
	out.MovedEdges = moved
	out.SkippedEdges = skipped
	return out, nil
}

// mergeInto re-parents every edge and attachment of node onto survivor,
// retires node's slug as an alias and deletes node. Edges that would duplicate an existing
// (source, target, kind) triple or become self loops are dropped.
func (a *knowledgeAggregate) mergeInto(dbc dbctx.Context, node, survivor *types.Knowledge) (int, int, error) {
	moved := 0
	drop := []uuid.UUID{}

	inbound, err := a.deps.Connections.ListInbound(dbc, node.ID)
	if err != nil {
		return 0, 0, err
	}
	for _, e := range inbound {
		if e == nil {
			continue
		}
		if e.SourceID == node.ID || e.SourceID == survivor.ID {
			drop = append(drop, e.ID)
			continue
		}
		exists, err := a.deps.Connections.Exists(dbc, e.SourceID, survivor.ID, e.Kind)
		if err != nil {
			return 0, 0, err
		}
		if exists {
			drop = append(drop, e.ID)
			continue
		}
		if err := a.deps.Connections.Repoint(dbc, e.ID, e.SourceID, survivor.ID); err != nil {
			return 0, 0, err
		}
		moved++
	}

	outbound, err := a.deps.Connections.ListOutbound(dbc, node.ID)
	if err != nil {
		return 0, 0, err
	}
	for _, e := range outbound {
		if e == nil || containsID(drop, e.ID) {
			continue
		}
		if e.TargetID == survivor.ID || e.TargetID == node.ID {
			drop = append(drop, e.ID)
			continue
		}
		exists, err := a.deps.Connections.Exists(dbc, survivor.ID, e.TargetID, e.Kind)
		if err != nil {
			return 0, 0, err
		}
		if exists {
			drop = append(drop, e.ID)
			continue
		}
		if err := a.deps.Connections.Repoint(dbc, e.ID, survivor.ID, e.TargetID); err != nil {
			return 0, 0, err
		}
		moved++
	}

	if len(drop) > 0 {
		if err := a.deps.Connections.DeleteByIDs(dbc, drop); err != nil {
			return 0, 0, err
		}
	}

	if _, err := a.deps.Media.Reassign(dbc, node.ID, survivor.ID); err != nil {
		return 0, 0, err
	}

	if node.HasSlug() {
		if err := a.deps.Aliases.Upsert(dbc, node.UserID, *node.Slug, survivor.ID); err != nil {
			return 0, 0, err
		}
	}
	if err := a.deps.Aliases.Reassign(dbc, node.ID, survivor.ID); err != nil {
		return 0, 0, err
	}
	if err := a.deps.Knowledge.Delete(dbc, node.ID); err != nil {
		return 0, 0, err
	}
	return moved, len(drop), nil
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (a *knowledgeAggregate) AssignSlug(ctx context.Context, in domainagg.AssignSlugInput) (domainagg.AssignSlugResult, error) {
	const op = domainagg.OpAssignSlug
	out := domainagg.AssignSlugResult{KnowledgeID: in.KnowledgeID}
	slug := strings.TrimSpace(in.Slug)
	if in.KnowledgeID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing knowledge_id", nil)
	}
	if slug == "" {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing slug", nil)
	}
	if !a.configured() {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "knowledge aggregate repos not configured", nil)
	}
	publishedAt := in.PublishedAt.UTC()
	if in.PublishedAt.IsZero() {
		publishedAt = time.Now().UTC()
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		node, err := a.deps.Knowledge.GetByID(dbc, in.KnowledgeID)
		if err != nil {
			return err
		}
		if node == nil {
			return NotFoundError(fmt.Sprintf("knowledge not found: %s", in.KnowledgeID))
		}
		if node.UserID != in.UserID {
			return ForbiddenError("only the owner may publish")
		}
		if node.HasSlug() {
			out.Slug = *node.Slug
			out.AlreadyPublished = true
			return nil
		}

		alias, err := a.deps.Aliases.GetByUserSlug(dbc, node.UserID, slug)
		if err != nil {
			return err
		}
		if alias != nil && alias.KnowledgeID != node.ID {
			return ConflictError(fmt.Sprintf("slug %q is retired", slug))
		}

		ok, err := a.deps.Knowledge.SetSlug(dbc, node.ID, slug, publishedAt)
		if err != nil {
			return err
		}
		if !ok {
			current, err := a.deps.Knowledge.GetByID(dbc, node.ID)
			if err != nil {
				return err
			}
			if current == nil {
				return NotFoundError(fmt.Sprintf("knowledge not found: %s", in.KnowledgeID))
			}
			if !current.HasSlug() {
				return RetryableError("slug write did not apply")
			}
			out.Slug = *current.Slug
			out.AlreadyPublished = true
			return nil
		}
		out.Slug = slug
		return nil
	})
	if err != nil {
		return domainagg.AssignSlugResult{KnowledgeID: in.KnowledgeID}, err
	}
	return out, nil
}

func (a *knowledgeAggregate) RecordResolutionError(ctx context.Context, knowledgeID uuid.UUID, message string) error {
	const op = domainagg.OpRecordResolutionError
	if knowledgeID == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, op, "missing knowledge_id", nil)
	}
	if !a.configured() {
		return domainagg.NewError(domainagg.CodeInternal, op, "knowledge aggregate repos not configured", nil)
	}
	msg := strings.TrimSpace(message)
	if msg == "" {
		msg = "resolution failed"
	}
	if len(msg) > 1000 {
		msg = msg[:1000]
	}
	return executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		node, err := a.deps.Knowledge.GetByID(dbc, knowledgeID)
		if err != nil {
			return err
		}
		if node == nil || node.IsResolved() {
			return nil
		}
		return a.deps.Knowledge.SetResolutionError(dbc, knowledgeID, &msg)
	})
}
