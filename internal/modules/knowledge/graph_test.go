package knowledge

import (
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/knowledge-backend/internal/domain"
	domainagg "github.com/yungbote/knowledge-backend/internal/domain/aggregates"
)

func TestQueryNodePaginatesOutgoingEdges(t *testing.T) {
	h := newHarness(t)
	slug := "reading-list"
	src := h.note(h.owner.ID, "Reading List", func(k *types.Knowledge) { k.Slug = &slug })
	for i := 0; i < 15; i++ {
		target := h.note(h.owner.ID, title(i), nil)
		h.connect(src.ID, target.ID, i)
	}

	p1, err := h.uc.QueryNode(h.ctx, QueryNodeInput{Namespace: "reader", SlugOrID: slug, Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	p2, err := h.uc.QueryNode(h.ctx, QueryNodeInput{Namespace: "reader", SlugOrID: slug, Page: 2, PageSize: 10})
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if len(p1.Edges) != 10 || len(p2.Edges) != 5 {
		t.Fatalf("page sizes: want=10,5 got=%d,%d", len(p1.Edges), len(p2.Edges))
	}
	if p1.Meta.Total != 15 || p2.Meta.Total != 15 {
		t.Fatalf("totals: want=15 got=%d,%d", p1.Meta.Total, p2.Meta.Total)
	}
	if !p1.Meta.HasMore || p2.Meta.HasMore || p1.Meta.TotalPages != 2 {
		t.Fatalf("unexpected meta: %+v %+v", p1.Meta, p2.Meta)
	}
	if p1.Edges[0].Target.Title != title(0) || p2.Edges[4].Target.Title != title(14) {
		t.Fatalf("edges not ordered by sort_index: first=%s last=%s", p1.Edges[0].Target.Title, p2.Edges[4].Target.Title)
	}
	if p1.Meta.Redirect != nil {
		t.Fatalf("canonical slug must not redirect")
	}

	p3, err := h.uc.QueryNode(h.ctx, QueryNodeInput{Namespace: "reader", SlugOrID: slug, Page: 3, PageSize: 10})
	if err != nil {
		t.Fatalf("page 3: %v", err)
	}
	if len(p3.Edges) != 0 || p3.Meta.Total != 15 {
		t.Fatalf("past-the-end page: %d edges total=%d", len(p3.Edges), p3.Meta.Total)
	}
}

func TestQueryNodeHidesPrivateTargetsFromOthers(t *testing.T) {
	h := newHarness(t)
	src := h.note(h.owner.ID, "Public", nil)
	pub := h.note(h.owner.ID, "visible", nil)
	priv := h.note(h.owner.ID, "hidden", func(k *types.Knowledge) { k.IsPrivate = true })
	h.connect(src.ID, pub.ID, 0)
	h.connect(src.ID, priv.ID, 1)

	anon, err := h.uc.QueryNode(h.ctx, QueryNodeInput{Namespace: "reader", SlugOrID: src.ID.String()})
	if err != nil {
		t.Fatalf("anonymous: %v", err)
	}
	if len(anon.Edges) != 1 || anon.Meta.Total != 1 || anon.Edges[0].Target.ID != pub.ID {
		t.Fatalf("anonymous should see only the public target: %+v", anon.Meta)
	}
	if anon.Meta.PageSize != 20 || anon.Meta.Page != 1 {
		t.Fatalf("defaults: %+v", anon.Meta)
	}

	owner := h.owner.ID
	mine, err := h.uc.QueryNode(h.ctx, QueryNodeInput{Namespace: "reader", SlugOrID: src.ID.String(), Actor: &owner})
	if err != nil {
		t.Fatalf("owner: %v", err)
	}
	if len(mine.Edges) != 2 || mine.Meta.Total != 2 {
		t.Fatalf("owner should see both targets, got %d", len(mine.Edges))
	}
}

func TestQueryNodePrivateNodeIsNotFound(t *testing.T) {
	h := newHarness(t)
	priv := h.note(h.owner.ID, "secret", func(k *types.Knowledge) { k.IsPrivate = true })

	stranger := h.stranger.ID
	_, err := h.uc.QueryNode(h.ctx, QueryNodeInput{Namespace: "reader", SlugOrID: priv.ID.String(), Actor: &stranger})
	mustCode(t, err, domainagg.CodeNotFound)
	_, err = h.uc.QueryNode(h.ctx, QueryNodeInput{Namespace: "reader", SlugOrID: priv.ID.String()})
	mustCode(t, err, domainagg.CodeNotFound)

	owner := h.owner.ID
	if _, err := h.uc.QueryNode(h.ctx, QueryNodeInput{Namespace: "reader", SlugOrID: priv.ID.String(), Actor: &owner}); err != nil {
		t.Fatalf("owner should see private node: %v", err)
	}
}

func TestQueryNodeRedirectsToCanonicalSlug(t *testing.T) {
	h := newHarness(t)
	slug := "the-martian"
	n := h.note(h.owner.ID, "The Martian", func(k *types.Knowledge) { k.Slug = &slug })

	byID, err := h.uc.QueryNode(h.ctx, QueryNodeInput{Namespace: "Reader", SlugOrID: n.ID.String()})
	if err != nil {
		t.Fatalf("by id: %v", err)
	}
	if byID.Meta.Redirect == nil || byID.Meta.Redirect.Slug != slug || byID.Meta.Redirect.Namespace != "reader" {
		t.Fatalf("expected redirect to canonical slug, got %+v", byID.Meta.Redirect)
	}

	if err := h.store.SlugAliases().Upsert(h.dbc, h.owner.ID, "old-martian", n.ID); err != nil {
		t.Fatalf("seed alias: %v", err)
	}
	byAlias, err := h.uc.QueryNode(h.ctx, QueryNodeInput{Namespace: "reader", SlugOrID: "old-martian"})
	if err != nil {
		t.Fatalf("by alias: %v", err)
	}
	if byAlias.Node.ID != n.ID || byAlias.Meta.Redirect == nil || byAlias.Meta.Redirect.Slug != slug {
		t.Fatalf("alias should resolve with redirect: %+v", byAlias.Meta)
	}
}

func TestQueryNodeExpandsBookAndMedia(t *testing.T) {
	h := newHarness(t)
	h.lookup.add("9780143127741", "0143127748", "The Martian")
	src := h.note(h.owner.ID, "shelf", nil)
	book := h.bookNode(h.owner.ID, "9780143127741")
	if _, err := h.uc.Resolve(h.ctx, book.ID); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := h.store.Media().Create(h.dbc, []*types.MediaAttachment{
		{KnowledgeID: book.ID, Kind: "image", URL: "https://example.com/b.jpg", SortIndex: 1},
		{KnowledgeID: book.ID, Kind: "image", URL: "https://example.com/a.jpg", SortIndex: 0},
	}); err != nil {
		t.Fatalf("seed media: %v", err)
	}
	h.connect(src.ID, book.ID, 0)

	view, err := h.uc.QueryNode(h.ctx, QueryNodeInput{Namespace: "reader", SlugOrID: src.ID.String()})
	if err != nil {
		t.Fatalf("QueryNode: %v", err)
	}
	if len(view.Edges) != 1 {
		t.Fatalf("edges: %d", len(view.Edges))
	}
	target := view.Edges[0].Target
	if target.Book == nil || target.Book.Title != "The Martian" {
		t.Fatalf("book not expanded: %+v", target.Book)
	}
	if len(target.Media) != 2 || target.Media[0].URL != "https://example.com/a.jpg" {
		t.Fatalf("media not expanded in order: %+v", target.Media)
	}
	if view.Node.Media == nil {
		t.Fatalf("media should serialize as an empty list")
	}
}

func TestQueryNodeValidation(t *testing.T) {
	h := newHarness(t)
	n := h.note(h.owner.ID, "x", nil)

	_, err := h.uc.QueryNode(h.ctx, QueryNodeInput{Namespace: "nobody", SlugOrID: n.ID.String()})
	mustCode(t, err, domainagg.CodeNotFound)

	_, err = h.uc.QueryNode(h.ctx, QueryNodeInput{Namespace: "stranger", SlugOrID: n.ID.String()})
	mustCode(t, err, domainagg.CodeNotFound)

	_, err = h.uc.QueryNode(h.ctx, QueryNodeInput{Namespace: "reader", SlugOrID: n.ID.String(), PageSize: 101})
	mustCode(t, err, domainagg.CodeValidation)

	_, err = h.uc.QueryNode(h.ctx, QueryNodeInput{Namespace: "reader", SlugOrID: n.ID.String(), Page: -1})
	mustCode(t, err, domainagg.CodeValidation)

	_, err = h.uc.QueryNode(h.ctx, QueryNodeInput{Namespace: "reader", SlugOrID: uuid.New().String()})
	mustCode(t, err, domainagg.CodeNotFound)
}
