package knowledge

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/knowledge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/knowledge-backend/internal/domain"
	"github.com/yungbote/knowledge-backend/internal/platform/dbctx"
)

func TestMediaRepoReassignAppendsAfterTarget(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx, Tx: tx}

	repo := NewMediaAttachmentRepo(db, testutil.Logger(t))
	u := testutil.SeedUser(t, ctx, tx, "owner")
	keep := testutil.SeedKnowledge(t, ctx, tx, u.ID, "keep", nil)
	fold := testutil.SeedKnowledge(t, ctx, tx, u.ID, "fold", nil)

	if err := repo.Create(dbc, []*types.MediaAttachment{
		{KnowledgeID: keep.ID, Kind: "image", URL: "https://example.com/a.jpg", SortIndex: 0},
		{KnowledgeID: keep.ID, Kind: "image", URL: "https://example.com/b.jpg", SortIndex: 1},
		{KnowledgeID: fold.ID, Kind: "image", URL: "https://example.com/c.jpg", SortIndex: 0},
		{KnowledgeID: fold.ID, Kind: "image", URL: "https://example.com/d.jpg", SortIndex: 1},
	}); err != nil {
		t.Fatalf("seed media: %v", err)
	}

	moved, err := repo.Reassign(dbc, fold.ID, keep.ID)
	if err != nil || moved != 2 {
		t.Fatalf("Reassign: moved=%d err=%v", moved, err)
	}
	rows, err := repo.ListByKnowledgeIDs(dbc, []uuid.UUID{keep.ID, fold.ID})
	if err != nil {
		t.Fatalf("ListByKnowledgeIDs: %v", err)
	}
	want := []string{"a", "b", "c", "d"}
	if len(rows) != len(want) {
		t.Fatalf("rows: want=%d got=%d", len(want), len(rows))
	}
	for i, m := range rows {
		if m.KnowledgeID != keep.ID || m.SortIndex != i || m.URL != "https://example.com/"+want[i]+".jpg" {
			t.Fatalf("row %d: %+v", i, m)
		}
	}

	moved, err = repo.Reassign(dbc, fold.ID, keep.ID)
	if err != nil || moved != 0 {
		t.Fatalf("Reassign with nothing left: moved=%d err=%v", moved, err)
	}
}
