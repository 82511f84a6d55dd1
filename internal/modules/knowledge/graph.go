package knowledge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/knowledge-backend/internal/data/repos"
	types "github.com/yungbote/knowledge-backend/internal/domain"
	domainagg "github.com/yungbote/knowledge-backend/internal/domain/aggregates"
	"github.com/yungbote/knowledge-backend/internal/observability"
	"github.com/yungbote/knowledge-backend/internal/platform/dbctx"
)

type QueryNodeInput struct {
	Namespace string
	SlugOrID  string
	// Actor is nil for anonymous readers.
	Actor    *uuid.UUID
	Page     int
	PageSize int
}

type NodeView struct {
	ID          uuid.UUID                `json:"id"`
	UserID      uuid.UUID                `json:"user_id"`
	Kind        types.KnowledgeKind      `json:"kind"`
	Title       string                   `json:"title"`
	Description string                   `json:"description,omitempty"`
	Content     string                   `json:"content,omitempty"`
	Slug        *string                  `json:"slug,omitempty"`
	IsOrigin    bool                     `json:"is_origin"`
	IsPrivate   bool                     `json:"is_private"`
	PublishedAt *time.Time               `json:"published_at,omitempty"`
	Book        *types.Book              `json:"book,omitempty"`
	Media       []*types.MediaAttachment `json:"media"`
	CreatedAt   time.Time                `json:"created_at"`
	UpdatedAt   time.Time                `json:"updated_at"`
}

type EdgeView struct {
	ID         uuid.UUID            `json:"id"`
	Kind       types.ConnectionKind `json:"kind"`
	SortIndex  int                  `json:"sort_index"`
	Annotation string               `json:"annotation,omitempty"`
	CreatedAt  time.Time            `json:"created_at"`
	Target     NodeView             `json:"target"`
}

type Redirect struct {
	Namespace string `json:"namespace"`
	Slug      string `json:"slug"`
}

type GraphMeta struct {
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	Total      int64     `json:"total"`
	TotalPages int       `json:"total_pages"`
	HasMore    bool      `json:"has_more"`
	Redirect   *Redirect `json:"redirect,omitempty"`
}

// GraphView is the per-query nested projection of one node and a page of its
// outgoing edges.
type GraphView struct {
	Node  NodeView   `json:"node"`
	Edges []EdgeView `json:"edges"`
	Meta  GraphMeta  `json:"meta"`
}

func (u Usecases) QueryNode(ctx context.Context, in QueryNodeInput) (view *GraphView, err error) {
	const op = "Knowledge.QueryNode"
	ctx, span := observability.StartSpan(ctx, "knowledge.query_node",
		attribute.String("knowledge.namespace", in.Namespace),
		attribute.Int("knowledge.page", in.Page),
	)
	defer func() { observability.EndSpan(span, err) }()

	if u.deps.Users == nil || u.deps.Knowledge == nil || u.deps.Connections == nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "graph query not configured", nil)
	}
	page, pageSize, err := u.pageBounds(op, in.Page, in.PageSize)
	if err != nil {
		return nil, err
	}
	namespace := strings.TrimSpace(in.Namespace)
	ident := strings.TrimSpace(in.SlugOrID)
	if namespace == "" || ident == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "namespace and identifier required", nil)
	}

	dbc := dbctx.Context{Ctx: ctx}
	owner, err := u.deps.Users.GetByHandle(dbc, namespace)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if owner == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("namespace not found: %s", namespace), nil)
	}

	node, canonical, err := u.lookupNode(dbc, owner.ID, ident)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	// Private nodes answer NotFound to everyone but the owner.
	if node == nil || !node.VisibleTo(in.Actor) {
		return nil, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("knowledge not found: %s/%s", namespace, ident), nil)
	}

	edges, total, err := u.deps.Connections.PageOutgoing(dbc, repos.PageOutgoingInput{
		SourceID: node.ID,
		ViewerID: in.Actor,
		Offset:   (page - 1) * pageSize,
		Limit:    pageSize,
	})
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}

	expanded, err := u.expand(ctx, node, edges)
	if err != nil {
		return nil, domainagg.Wrap(domainagg.CodeInternal, op, err)
	}

	view = &GraphView{
		Node:  expanded.view(node),
		Edges: make([]EdgeView, 0, len(edges)),
		Meta: GraphMeta{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
			HasMore:    int64(page*pageSize) < total,
		},
	}
	for _, e := range edges {
		target := expanded.nodes[e.TargetID]
		if target == nil {
			continue
		}
		view.Edges = append(view.Edges, EdgeView{
			ID:         e.ID,
			Kind:       e.Kind,
			SortIndex:  e.SortIndex,
			Annotation: e.Annotation,
			CreatedAt:  e.CreatedAt,
			Target:     expanded.view(target),
		})
	}
	if !canonical && node.HasSlug() {
		view.Meta.Redirect = &Redirect{Namespace: owner.Handle, Slug: *node.Slug}
	}
	return view, nil
}

func (u Usecases) pageBounds(op string, page, pageSize int) (int, int, error) {
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = u.deps.Config.DefaultPageSize
	}
	if page < 1 {
		return 0, 0, domainagg.NewError(domainagg.CodeValidation, op, "page must be at least 1", nil)
	}
	if pageSize < 1 || pageSize > u.deps.Config.MaxPageSize {
		return 0, 0, domainagg.NewError(domainagg.CodeValidation, op,
			fmt.Sprintf("page_size must be between 1 and %d", u.deps.Config.MaxPageSize), nil)
	}
	return page, pageSize, nil
}

// lookupNode resolves ident as an id, then a current slug, then a retired
// slug. canonical is true only for a current-slug hit.
func (u Usecases) lookupNode(dbc dbctx.Context, ownerID uuid.UUID, ident string) (*types.Knowledge, bool, error) {
	if id, err := uuid.Parse(ident); err == nil {
		k, err := u.deps.Knowledge.GetByID(dbc, id)
		if err != nil {
			return nil, false, err
		}
		if k != nil && k.UserID == ownerID {
			return k, false, nil
		}
	}
	slug := strings.ToLower(ident)
	k, err := u.deps.Knowledge.GetByUserSlug(dbc, ownerID, slug)
	if err != nil || k != nil {
		return k, k != nil && *k.Slug == ident, err
	}
	if u.deps.Aliases == nil {
		return nil, false, nil
	}
	alias, err := u.deps.Aliases.GetByUserSlug(dbc, ownerID, slug)
	if err != nil || alias == nil {
		return nil, false, err
	}
	k, err = u.deps.Knowledge.GetByID(dbc, alias.KnowledgeID)
	if err != nil || k == nil || k.UserID != ownerID {
		return nil, false, err
	}
	return k, false, nil
}

type expansion struct {
	nodes map[uuid.UUID]*types.Knowledge
	books map[uuid.UUID]*types.Book
	media map[uuid.UUID][]*types.MediaAttachment
}

func (x expansion) view(k *types.Knowledge) NodeView {
	v := NodeView{
		ID:          k.ID,
		UserID:      k.UserID,
		Kind:        k.Kind,
		Title:       k.Title,
		Description: k.Description,
		Content:     k.Content,
		Slug:        k.Slug,
		IsOrigin:    k.IsOrigin,
		IsPrivate:   k.IsPrivate,
		PublishedAt: k.PublishedAt,
		Media:       x.media[k.ID],
		CreatedAt:   k.CreatedAt,
		UpdatedAt:   k.UpdatedAt,
	}
	if v.Media == nil {
		v.Media = []*types.MediaAttachment{}
	}
	if k.BookID != nil {
		v.Book = x.books[*k.BookID]
	}
	return v
}

// expand batch-loads edge targets, then their books and media concurrently.
func (u Usecases) expand(ctx context.Context, node *types.Knowledge, edges []*types.Connection) (expansion, error) {
	x := expansion{
		nodes: map[uuid.UUID]*types.Knowledge{node.ID: node},
		books: map[uuid.UUID]*types.Book{},
		media: map[uuid.UUID][]*types.MediaAttachment{},
	}
	targetIDs := make([]uuid.UUID, 0, len(edges))
	for _, e := range edges {
		targetIDs = append(targetIDs, e.TargetID)
	}
	if len(targetIDs) > 0 {
		targets, err := u.deps.Knowledge.GetByIDs(dbctx.Context{Ctx: ctx}, targetIDs)
		if err != nil {
			return x, err
		}
		for _, t := range targets {
			x.nodes[t.ID] = t
		}
	}

	nodeIDs := make([]uuid.UUID, 0, len(x.nodes))
	bookIDs := []uuid.UUID{}
	for id, k := range x.nodes {
		nodeIDs = append(nodeIDs, id)
		if k.BookID != nil {
			bookIDs = append(bookIDs, *k.BookID)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	var books []*types.Book
	var media []*types.MediaAttachment
	if u.deps.Books != nil && len(bookIDs) > 0 {
		g.Go(func() error {
			var err error
			books, err = u.deps.Books.GetByIDs(dbctx.Context{Ctx: gctx}, bookIDs)
			return err
		})
	}
	if u.deps.Media != nil {
		g.Go(func() error {
			var err error
			media, err = u.deps.Media.ListByKnowledgeIDs(dbctx.Context{Ctx: gctx}, nodeIDs)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return x, err
	}
	for _, b := range books {
		x.books[b.ID] = b
	}
	for _, m := range media {
		x.media[m.KnowledgeID] = append(x.media[m.KnowledgeID], m)
	}
	return x, nil
}
