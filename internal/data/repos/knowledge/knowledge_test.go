package knowledge

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/knowledge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/knowledge-backend/internal/domain"
	"github.com/yungbote/knowledge-backend/internal/platform/dbctx"
)

func TestKnowledgeRepoBindAndSlug(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewKnowledgeRepo(db, testutil.Logger(t))
	u := testutil.SeedUser(t, ctx, tx, "owner")
	book := testutil.SeedBook(t, ctx, tx, "9780143127741", "The Book")

	n1 := testutil.SeedKnowledge(t, ctx, tx, u.ID, "draft", func(k *types.Knowledge) { k.Kind = types.KindBook })
	n2 := testutil.SeedKnowledge(t, ctx, tx, u.ID, "draft two", func(k *types.Knowledge) { k.Kind = types.KindBook })

	ok, err := repo.Bind(dbc, n1.ID, book.ID, book.Title)
	if err != nil || !ok {
		t.Fatalf("Bind: ok=%v err=%v", ok, err)
	}
	ok, err = repo.Bind(dbc, n1.ID, book.ID, book.Title)
	if err != nil || ok {
		t.Fatalf("Bind (again): expected no-op, ok=%v err=%v", ok, err)
	}

	got, err := repo.GetByID(dbc, n1.ID)
	if err != nil || got == nil || got.BookID == nil || *got.BookID != book.ID || got.Title != "The Book" {
		t.Fatalf("GetByID after bind: %+v err=%v", got, err)
	}

	other, err := repo.GetByUserBook(dbc, u.ID, book.ID, n2.ID)
	if err != nil || other == nil || other.ID != n1.ID {
		t.Fatalf("GetByUserBook: %+v err=%v", other, err)
	}

	// A second node of the same owner cannot bind the same book.
	if err := tx.SavePoint("bind_dup").Error; err != nil {
		t.Fatalf("savepoint: %v", err)
	}
	_, err = repo.Bind(dbc, n2.ID, book.ID, book.Title)
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("Bind duplicate: expected ErrDuplicatedKey, got %v", err)
	}
	if err := tx.RollbackTo("bind_dup").Error; err != nil {
		t.Fatalf("rollback to savepoint: %v", err)
	}

	now := time.Now().UTC()
	ok, err = repo.SetSlug(dbc, n1.ID, "the-book", now)
	if err != nil || !ok {
		t.Fatalf("SetSlug: ok=%v err=%v", ok, err)
	}
	ok, err = repo.SetSlug(dbc, n1.ID, "other", now)
	if err != nil || ok {
		t.Fatalf("SetSlug (again): expected no-op, ok=%v err=%v", ok, err)
	}
	bySlug, err := repo.GetByUserSlug(dbc, u.ID, "the-book")
	if err != nil || bySlug == nil || bySlug.ID != n1.ID {
		t.Fatalf("GetByUserSlug: %+v err=%v", bySlug, err)
	}

	if err := tx.SavePoint("slug_dup").Error; err != nil {
		t.Fatalf("savepoint: %v", err)
	}
	_, err = repo.SetSlug(dbc, n2.ID, "the-book", now)
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("SetSlug duplicate: expected ErrDuplicatedKey, got %v", err)
	}
	if err := tx.RollbackTo("slug_dup").Error; err != nil {
		t.Fatalf("rollback to savepoint: %v", err)
	}

	msg := "no record"
	if err := repo.SetResolutionError(dbc, n2.ID, &msg); err != nil {
		t.Fatalf("SetResolutionError: %v", err)
	}
	got, _ = repo.GetByID(dbc, n2.ID)
	if got.ResolutionError == nil || *got.ResolutionError != msg {
		t.Fatalf("resolution error not stored: %+v", got.ResolutionError)
	}

	if err := repo.Delete(dbc, n2.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, err = repo.GetByID(dbc, n2.ID)
	if err != nil || got != nil {
		t.Fatalf("GetByID after delete: %+v err=%v", got, err)
	}
}

func TestConnectionRepoPageOutgoing(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewConnectionRepo(db, testutil.Logger(t))
	owner := testutil.SeedUser(t, ctx, tx, "owner")
	stranger := testutil.SeedUser(t, ctx, tx, "stranger")

	src := testutil.SeedKnowledge(t, ctx, tx, owner.ID, "source", nil)
	for i := 0; i < 15; i++ {
		target := testutil.SeedKnowledge(t, ctx, tx, owner.ID, "target", nil)
		testutil.SeedConnection(t, ctx, tx, src.ID, target.ID, types.ConnectionReference, i)
	}
	private := testutil.SeedKnowledge(t, ctx, tx, owner.ID, "private", func(k *types.Knowledge) { k.IsPrivate = true })
	testutil.SeedConnection(t, ctx, tx, src.ID, private.ID, types.ConnectionReference, 99)

	page1, total, err := repo.PageOutgoing(dbc, PageOutgoingInput{SourceID: src.ID, ViewerID: &stranger.ID, Offset: 0, Limit: 10})
	if err != nil {
		t.Fatalf("PageOutgoing page 1: %v", err)
	}
	if len(page1) != 10 || total != 15 {
		t.Fatalf("page 1: want 10/15 got %d/%d", len(page1), total)
	}
	for i, c := range page1 {
		if c.SortIndex != i {
			t.Fatalf("page 1 order: index %d has sort_index %d", i, c.SortIndex)
		}
	}

	page2, total, err := repo.PageOutgoing(dbc, PageOutgoingInput{SourceID: src.ID, ViewerID: &stranger.ID, Offset: 10, Limit: 10})
	if err != nil {
		t.Fatalf("PageOutgoing page 2: %v", err)
	}
	if len(page2) != 5 || total != 15 {
		t.Fatalf("page 2: want 5/15 got %d/%d", len(page2), total)
	}

	_, total, err = repo.PageOutgoing(dbc, PageOutgoingInput{SourceID: src.ID, ViewerID: &owner.ID, Offset: 0, Limit: 10})
	if err != nil || total != 16 {
		t.Fatalf("owner should see private target: total=%d err=%v", total, err)
	}

	empty, total, err := repo.PageOutgoing(dbc, PageOutgoingInput{SourceID: src.ID, Offset: 40, Limit: 10})
	if err != nil || len(empty) != 0 || total != 15 {
		t.Fatalf("past last page: len=%d total=%d err=%v", len(empty), total, err)
	}
}

func TestConnectionRepoCreateIsIdempotent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewConnectionRepo(db, testutil.Logger(t))
	u := testutil.SeedUser(t, ctx, tx, "owner")
	a := testutil.SeedKnowledge(t, ctx, tx, u.ID, "a", nil)
	b := testutil.SeedKnowledge(t, ctx, tx, u.ID, "b", nil)

	created, err := repo.Create(dbc, &types.Connection{SourceID: a.ID, TargetID: b.ID, Kind: types.ConnectionReference})
	if err != nil || !created {
		t.Fatalf("Create: created=%v err=%v", created, err)
	}
	created, err = repo.Create(dbc, &types.Connection{SourceID: a.ID, TargetID: b.ID, Kind: types.ConnectionReference})
	if err != nil || created {
		t.Fatalf("Create duplicate: created=%v err=%v", created, err)
	}
	exists, err := repo.Exists(dbc, a.ID, b.ID, types.ConnectionReference)
	if err != nil || !exists {
		t.Fatalf("Exists: %v err=%v", exists, err)
	}

	// Deleting the target cascades to the edge.
	if err := tx.WithContext(ctx).Where("id = ?", b.ID).Delete(&types.Knowledge{}).Error; err != nil {
		t.Fatalf("delete target: %v", err)
	}
	out, err := repo.ListOutbound(dbc, a.ID)
	if err != nil || len(out) != 0 {
		t.Fatalf("ListOutbound after cascade: %d err=%v", len(out), err)
	}
}
