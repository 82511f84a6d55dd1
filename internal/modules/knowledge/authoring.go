package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	types "github.com/yungbote/knowledge-backend/internal/domain"
	domainagg "github.com/yungbote/knowledge-backend/internal/domain/aggregates"
	"github.com/yungbote/knowledge-backend/internal/platform/dbctx"
	"github.com/yungbote/knowledge-backend/internal/platform/validate"
)

type MediaInput struct {
	Kind     string `json:"kind" validate:"omitempty,oneof=image video audio document"`
	URL      string `json:"url" validate:"required,url"`
	MimeType string `json:"mime_type"`
	Width    int    `json:"width" validate:"min=0"`
	Height   int    `json:"height" validate:"min=0"`
}

type CreateKnowledgeInput struct {
	Kind        string       `json:"kind" validate:"required,oneof=book note collection"`
	Title       string       `json:"title" validate:"max=500"`
	Description string       `json:"description"`
	Content     string       `json:"content"`
	Query       string       `json:"query" validate:"max=500"`
	QueryKind   string       `json:"query_kind" validate:"omitempty,oneof=isbn search"`
	IsOrigin    bool         `json:"is_origin"`
	IsPrivate   bool         `json:"is_private"`
	Media       []MediaInput `json:"media" validate:"max=20,dive"`
}

// CreateKnowledge stores a new unresolved node for actor and, for book nodes,
// hands it to the resolve dispatcher.
func (u Usecases) CreateKnowledge(ctx context.Context, actor uuid.UUID, in CreateKnowledgeInput) (*types.Knowledge, error) {
	const op = "Knowledge.Create"
	if actor == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeForbidden, op, "actor required", nil)
	}
	if err := validate.Struct(in); err != nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, err.Error(), nil)
	}
	kind := types.KnowledgeKind(in.Kind)
	title := strings.TrimSpace(in.Title)
	query := strings.TrimSpace(in.Query)
	if kind.NeedsResolution() && query == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "book nodes require a query", nil)
	}
	if !kind.NeedsResolution() && title == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "title is required", nil)
	}
	if u.deps.Knowledge == nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "knowledge usecases not configured", nil)
	}

	k := &types.Knowledge{
		UserID:      actor,
		Kind:        kind,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Content:     in.Content,
		IsOrigin:    in.IsOrigin,
		IsPrivate:   in.IsPrivate,
	}
	if kind.NeedsResolution() {
		k.Query = &query
		if in.QueryKind != "" {
			qk := types.QueryKind(in.QueryKind)
			k.QueryKind = &qk
		}
		if k.Title == "" {
			k.Title = query
		}
	}

	dbc := dbctx.Context{Ctx: ctx}
	if err := u.deps.Knowledge.Create(dbc, k); err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if len(in.Media) > 0 && u.deps.Media != nil {
		rows := make([]*types.MediaAttachment, 0, len(in.Media))
		for i, m := range in.Media {
			kindName := m.Kind
			if kindName == "" {
				kindName = "image"
			}
			rows = append(rows, &types.MediaAttachment{
				KnowledgeID: k.ID,
				Kind:        kindName,
				URL:         strings.TrimSpace(m.URL),
				MimeType:    m.MimeType,
				Width:       m.Width,
				Height:      m.Height,
				SortIndex:   i,
			})
		}
		if err := u.deps.Media.Create(dbc, rows); err != nil {
			return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
		}
	}

	if kind.NeedsResolution() && u.deps.Dispatcher != nil {
		if err := u.deps.Dispatcher.DispatchResolve(ctx, k.ID); err != nil {
			// The node stays unresolved and is picked up by the pending sweep.
			u.log.Warn("resolve dispatch failed", "knowledge_id", k.ID, "error", err)
		}
	}
	return k, nil
}

type ConnectInput struct {
	SourceID   uuid.UUID `json:"-"`
	TargetID   uuid.UUID `json:"target_id"`
	Kind       string    `json:"kind" validate:"required,oneof=reference comment primary_reference"`
	Annotation string    `json:"annotation" validate:"max=2000"`
	SortIndex  int       `json:"sort_index" validate:"min=0"`
}

// Connect adds an edge from a node the actor owns. Re-adding an existing
// (source, target, kind) edge returns the existing one.
func (u Usecases) Connect(ctx context.Context, actor uuid.UUID, in ConnectInput) (*types.Connection, bool, error) {
	const op = "Knowledge.Connect"
	if actor == uuid.Nil {
		return nil, false, domainagg.NewError(domainagg.CodeForbidden, op, "actor required", nil)
	}
	if err := validate.Struct(in); err != nil {
		return nil, false, domainagg.NewError(domainagg.CodeValidation, op, err.Error(), nil)
	}
	if in.TargetID == uuid.Nil {
		return nil, false, domainagg.NewError(domainagg.CodeValidation, op, "target_id is required", nil)
	}
	if in.SourceID == in.TargetID {
		return nil, false, domainagg.NewError(domainagg.CodeValidation, op, "a node cannot connect to itself", nil)
	}
	if u.deps.Knowledge == nil || u.deps.Connections == nil {
		return nil, false, domainagg.NewError(domainagg.CodeInternal, op, "knowledge usecases not configured", nil)
	}

	dbc := dbctx.Context{Ctx: ctx}
	source, err := u.deps.Knowledge.GetByID(dbc, in.SourceID)
	if err != nil {
		return nil, false, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if source == nil {
		return nil, false, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("knowledge not found: %s", in.SourceID), nil)
	}
	if source.UserID != actor {
		return nil, false, domainagg.NewError(domainagg.CodeForbidden, op, "only the owner may connect", nil)
	}
	target, err := u.deps.Knowledge.GetByID(dbc, in.TargetID)
	if err != nil {
		return nil, false, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if target == nil || !target.VisibleTo(&actor) {
		return nil, false, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("knowledge not found: %s", in.TargetID), nil)
	}

	c := &types.Connection{
		SourceID:   source.ID,
		TargetID:   target.ID,
		Kind:       types.ConnectionKind(in.Kind),
		Annotation: strings.TrimSpace(in.Annotation),
		SortIndex:  in.SortIndex,
	}
	created, err := u.deps.Connections.Create(dbc, c)
	if err != nil {
		return nil, false, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if !created {
		existing, err := u.findEdge(dbc, source.ID, target.ID, c.Kind)
		if err != nil {
			return nil, false, domainagg.Wrap(domainagg.CodeInternal, op, err)
		}
		if existing != nil {
			c = existing
		}
	}
	return c, created, nil
}

func (u Usecases) findEdge(dbc dbctx.Context, sourceID, targetID uuid.UUID, kind types.ConnectionKind) (*types.Connection, error) {
	out, err := u.deps.Connections.ListOutbound(dbc, sourceID)
	if err != nil {
		return nil, err
	}
	for _, e := range out {
		if e.TargetID == targetID && e.Kind == kind {
			return e, nil
		}
	}
	return nil, nil
}

// Disconnect removes an edge whose source the actor owns.
func (u Usecases) Disconnect(ctx context.Context, actor, connectionID uuid.UUID) error {
	const op = "Knowledge.Disconnect"
	if actor == uuid.Nil {
		return domainagg.NewError(domainagg.CodeForbidden, op, "actor required", nil)
	}
	if u.deps.Knowledge == nil || u.deps.Connections == nil {
		return domainagg.NewError(domainagg.CodeInternal, op, "knowledge usecases not configured", nil)
	}
	dbc := dbctx.Context{Ctx: ctx}
	c, err := u.deps.Connections.GetByID(dbc, connectionID)
	if err != nil {
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if c == nil {
		return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("connection not found: %s", connectionID), nil)
	}
	source, err := u.deps.Knowledge.GetByID(dbc, c.SourceID)
	if err != nil {
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if source == nil || source.UserID != actor {
		return domainagg.NewError(domainagg.CodeForbidden, op, "only the owner may disconnect", nil)
	}
	if err := u.deps.Connections.DeleteByIDs(dbc, []uuid.UUID{c.ID}); err != nil {
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	return nil
}

// DeleteKnowledge removes an owned node. Its edges, media and aliases cascade.
func (u Usecases) DeleteKnowledge(ctx context.Context, actor, knowledgeID uuid.UUID) error {
	const op = "Knowledge.Delete"
	if actor == uuid.Nil {
		return domainagg.NewError(domainagg.CodeForbidden, op, "actor required", nil)
	}
	if u.deps.Knowledge == nil {
		return domainagg.NewError(domainagg.CodeInternal, op, "knowledge usecases not configured", nil)
	}
	dbc := dbctx.Context{Ctx: ctx}
	k, err := u.deps.Knowledge.GetByID(dbc, knowledgeID)
	if err != nil {
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if k == nil {
		return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("knowledge not found: %s", knowledgeID), nil)
	}
	if k.UserID != actor {
		return domainagg.NewError(domainagg.CodeForbidden, op, "only the owner may delete", nil)
	}
	if err := u.deps.Knowledge.Delete(dbc, k.ID); err != nil {
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if err := u.deps.Graph.Delete(ctx, k.ID); err != nil {
		u.log.Warn("graph mirror delete failed (continuing)", "knowledge_id", k.ID, "error", err)
	}
	return nil
}
