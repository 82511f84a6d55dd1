package knowledge

import (
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/knowledge-backend/internal/domain"
	domainagg "github.com/yungbote/knowledge-backend/internal/domain/aggregates"
)

func TestPublishSuffixesTakenSlug(t *testing.T) {
	h := newHarness(t)
	first := h.note(h.owner.ID, "Hello World", nil)
	second := h.note(h.owner.ID, "Hello World", nil)

	s1, err := h.uc.Publish(h.ctx, h.owner.ID, first.ID)
	if err != nil {
		t.Fatalf("publish first: %v", err)
	}
	s2, err := h.uc.Publish(h.ctx, h.owner.ID, second.ID)
	if err != nil {
		t.Fatalf("publish second: %v", err)
	}
	if s1 != "hello-world" || s2 != "hello-world-2" {
		t.Fatalf("slugs: want=hello-world,hello-world-2 got=%s,%s", s1, s2)
	}
	if got := h.reload(second.ID); got.PublishedAt == nil {
		t.Fatalf("published_at not set")
	}
}

func TestPublishIsIdempotent(t *testing.T) {
	h := newHarness(t)
	n := h.note(h.owner.ID, "Hello World", nil)
	s1, err := h.uc.Publish(h.ctx, h.owner.ID, n.ID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	s2, err := h.uc.Publish(h.ctx, h.owner.ID, n.ID)
	if err != nil {
		t.Fatalf("republish: %v", err)
	}
	if s1 != s2 {
		t.Fatalf("slug changed: %s -> %s", s1, s2)
	}
}

func TestPublishSlugsAreScopedPerOwner(t *testing.T) {
	h := newHarness(t)
	a := h.note(h.owner.ID, "Hello World", nil)
	b := h.note(h.stranger.ID, "Hello World", nil)
	sa, _ := h.uc.Publish(h.ctx, h.owner.ID, a.ID)
	sb, err := h.uc.Publish(h.ctx, h.stranger.ID, b.ID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if sa != "hello-world" || sb != "hello-world" {
		t.Fatalf("each owner gets the bare slug: %s %s", sa, sb)
	}
}

func TestPublishForbiddenForNonOwner(t *testing.T) {
	h := newHarness(t)
	n := h.note(h.owner.ID, "Hello World", nil)
	_, err := h.uc.Publish(h.ctx, h.stranger.ID, n.ID)
	mustCode(t, err, domainagg.CodeForbidden)
	if h.reload(n.ID).Slug != nil {
		t.Fatalf("no slug may be written on forbidden publish")
	}
	if len(h.hooks.Operations) != 0 {
		t.Fatalf("forbidden publish must not open a write: %+v", h.hooks.Operations)
	}
}

func TestPublishMissingNode(t *testing.T) {
	h := newHarness(t)
	_, err := h.uc.Publish(h.ctx, h.owner.ID, uuid.New())
	mustCode(t, err, domainagg.CodeNotFound)
}

func TestPublishFailsAtCeiling(t *testing.T) {
	h := newHarness(t, withConfig(Config{SlugMaxAttempts: 3}))
	for _, s := range []string{"hello-world", "hello-world-2", "hello-world-3"} {
		slug := s
		h.note(h.owner.ID, "Hello World", func(k *types.Knowledge) { k.Slug = &slug })
	}
	n := h.note(h.owner.ID, "Hello World", nil)

	_, err := h.uc.Publish(h.ctx, h.owner.ID, n.ID)
	mustCode(t, err, domainagg.CodePublishFailed)
	if h.reload(n.ID).Slug != nil {
		t.Fatalf("failed publish must leave the node unpublished")
	}
	if len(h.hooks.Conflicts) != 3 {
		t.Fatalf("conflict attempts: want=3 got=%d", len(h.hooks.Conflicts))
	}
}

func TestPublishSkipsRetiredAlias(t *testing.T) {
	h := newHarness(t)
	survivor := h.note(h.owner.ID, "Survivor", nil)
	if err := h.store.SlugAliases().Upsert(h.dbc, h.owner.ID, "hello-world", survivor.ID); err != nil {
		t.Fatalf("seed alias: %v", err)
	}
	n := h.note(h.owner.ID, "Hello World", nil)
	s, err := h.uc.Publish(h.ctx, h.owner.ID, n.ID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if s != "hello-world-2" {
		t.Fatalf("retired slug should count as taken, got %s", s)
	}
}
