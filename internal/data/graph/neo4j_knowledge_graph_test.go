package graph

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/knowledge-backend/internal/domain"
)

func TestMirrorWithoutClientIsNoop(t *testing.T) {
	m := NewMirror(nil, nil)
	node := &types.Knowledge{ID: uuid.New(), UserID: uuid.New(), Kind: types.KindBook}
	if err := m.UpsertBound(context.Background(), node, nil, nil); err != nil {
		t.Fatalf("UpsertBound: %v", err)
	}
	if err := m.MergeInto(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("MergeInto: %v", err)
	}
	if err := m.Delete(context.Background(), uuid.New()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	var nilMirror *Mirror
	if err := nilMirror.Delete(context.Background(), uuid.New()); err != nil {
		t.Fatalf("nil mirror Delete: %v", err)
	}
}

func TestUpsertParamsSkipsForeignEdgesAndOptionalBook(t *testing.T) {
	node := &types.Knowledge{ID: uuid.New(), UserID: uuid.New(), Kind: types.KindBook, Title: "The Martian"}
	edges := []*types.Connection{
		{ID: uuid.New(), SourceID: node.ID, TargetID: uuid.New(), Kind: types.ConnectionReference},
		{ID: uuid.New(), SourceID: uuid.New(), TargetID: node.ID, Kind: types.ConnectionReference},
		nil,
	}
	params, stmts := upsertParams(node, nil, edges, time.Unix(0, 0))
	if len(stmts) != 2 || stmts[1] != upsertEdgesCypher {
		t.Fatalf("expected node and edge statements, got %d", len(stmts))
	}
	if rows := params["edges"].([]map[string]any); len(rows) != 1 {
		t.Fatalf("edge rows: %d", len(rows))
	}
	if _, ok := params["book_id"]; ok {
		t.Fatalf("book params without a book")
	}

	isbn := "9780143127741"
	_, stmts = upsertParams(node, &types.Book{ID: uuid.New(), ISBN13: &isbn}, nil, time.Unix(0, 0))
	if len(stmts) != 2 || stmts[1] != bindBookCypher {
		t.Fatalf("expected node and book statements")
	}
}
