package graph

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	types "github.com/yungbote/knowledge-backend/internal/domain"
	"github.com/yungbote/knowledge-backend/internal/platform/logger"
	"github.com/yungbote/knowledge-backend/internal/platform/neo4jdb"
)

// Mirror keeps a read-optimized copy of bound nodes and their edges in Neo4j.
// Postgres stays the source of truth; every method is best-effort and a nil
// client turns it into a no-op.
type Mirror struct {
	client     *neo4jdb.Client
	log        *logger.Logger
	schemaOnce sync.Once
}

func NewMirror(client *neo4jdb.Client, log *logger.Logger) *Mirror {
	if log == nil {
		log = logger.Nop()
	}
	return &Mirror{client: client, log: log.With("service", "KnowledgeGraphMirror")}
}

func (m *Mirror) enabled() bool { return m != nil && m.client.Enabled() }

var schemaStatements = []string{
	`CREATE CONSTRAINT knowledge_id_unique IF NOT EXISTS FOR (k:Knowledge) REQUIRE k.id IS UNIQUE`,
	`CREATE CONSTRAINT book_id_unique IF NOT EXISTS FOR (b:Book) REQUIRE b.id IS UNIQUE`,
}

// ensureSchema runs once per mirror. Schema statements cannot share a
// transaction with data writes, so each gets its own.
func (m *Mirror) ensureSchema(ctx context.Context) {
	m.schemaOnce.Do(func() {
		for _, stmt := range schemaStatements {
			if err := m.client.Write(ctx, nil, stmt); err != nil {
				m.log.Warn("neo4j schema init failed, continuing", "error", err)
			}
		}
	})
}

const upsertNodeCypher = `
MERGE (k:Knowledge {id: $id})
SET k.user_id = $user_id,
    k.kind = $kind,
    k.title = $title,
    k.is_private = $is_private,
    k.synced_at = $synced_at
`

const bindBookCypher = `
MATCH (k:Knowledge {id: $id})
MERGE (b:Book {id: $book_id})
SET b.title = $book_title, b.isbn13 = $isbn13
MERGE (k)-[:BOUND_TO]->(b)
`

const upsertEdgesCypher = `
MATCH (k:Knowledge {id: $id})
UNWIND $edges AS e
MERGE (t:Knowledge {id: e.target_id})
MERGE (k)-[r:CONNECTS {id: e.id}]->(t)
SET r.kind = e.kind, r.sort_index = e.sort_index
`

// UpsertBound writes the node, its book and its current outgoing edges.
func (m *Mirror) UpsertBound(ctx context.Context, node *types.Knowledge, book *types.Book, edges []*types.Connection) error {
	if !m.enabled() || node == nil || node.ID == uuid.Nil {
		return nil
	}
	m.ensureSchema(ctx)
	params, stmts := upsertParams(node, book, edges, time.Now().UTC())
	return m.client.Write(ctx, params, stmts...)
}

func upsertParams(node *types.Knowledge, book *types.Book, edges []*types.Connection, now time.Time) (map[string]any, []string) {
	edgeRows := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		if e == nil || e.SourceID != node.ID {
			continue
		}
		edgeRows = append(edgeRows, map[string]any{
			"id":         e.ID.String(),
			"target_id":  e.TargetID.String(),
			"kind":       string(e.Kind),
			"sort_index": int64(e.SortIndex),
		})
	}
	params := map[string]any{
		"id":         node.ID.String(),
		"user_id":    node.UserID.String(),
		"kind":       string(node.Kind),
		"title":      node.Title,
		"is_private": node.IsPrivate,
		"synced_at":  now.Format(time.RFC3339Nano),
		"edges":      edgeRows,
	}
	stmts := []string{upsertNodeCypher}
	if book != nil && book.ID != uuid.Nil {
		params["book_id"] = book.ID.String()
		params["book_title"] = book.Title
		params["isbn13"] = ""
		if book.ISBN13 != nil {
			params["isbn13"] = *book.ISBN13
		}
		stmts = append(stmts, bindBookCypher)
	}
	if len(edgeRows) > 0 {
		stmts = append(stmts, upsertEdgesCypher)
	}
	return params, stmts
}

// MergeInto moves relationships of the deleted node onto the survivor and
// removes the deleted node from the mirror. Edges that would become
// self-loops on the survivor are dropped, as in Postgres.
func (m *Mirror) MergeInto(ctx context.Context, fromID, intoID uuid.UUID) error {
	if !m.enabled() || fromID == uuid.Nil || intoID == uuid.Nil {
		return nil
	}
	return m.client.Write(ctx, map[string]any{"from": fromID.String(), "into": intoID.String()},
		`
MATCH (src:Knowledge)-[r:CONNECTS]->(n:Knowledge {id: $from})
MATCH (m:Knowledge {id: $into})
WHERE src.id <> $into
MERGE (src)-[r2:CONNECTS {id: r.id}]->(m)
SET r2.kind = r.kind, r2.sort_index = r.sort_index
`,
		`
MATCH (n:Knowledge {id: $from})-[r:CONNECTS]->(t:Knowledge)
MATCH (m:Knowledge {id: $into})
WHERE t.id <> $into
MERGE (m)-[r2:CONNECTS {id: r.id}]->(t)
SET r2.kind = r.kind, r2.sort_index = r.sort_index
`,
		`MATCH (n:Knowledge {id: $from}) DETACH DELETE n`,
	)
}

func (m *Mirror) Delete(ctx context.Context, id uuid.UUID) error {
	if !m.enabled() || id == uuid.Nil {
		return nil
	}
	return m.client.Write(ctx, map[string]any{"id": id.String()}, `MATCH (n:Knowledge {id: $id}) DETACH DELETE n`)
}
