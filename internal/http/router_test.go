package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/knowledge-backend/internal/data/aggregates"
	aggtestutil "github.com/yungbote/knowledge-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/knowledge-backend/internal/data/repos/memstore"
	types "github.com/yungbote/knowledge-backend/internal/domain"
	domainagg "github.com/yungbote/knowledge-backend/internal/domain/aggregates"
	kbhttp "github.com/yungbote/knowledge-backend/internal/http"
	httpH "github.com/yungbote/knowledge-backend/internal/http/handlers"
	httpMW "github.com/yungbote/knowledge-backend/internal/http/middleware"
	"github.com/yungbote/knowledge-backend/internal/modules/knowledge"
	"github.com/yungbote/knowledge-backend/internal/platform/jwtauth"
	"github.com/yungbote/knowledge-backend/internal/platform/logger"
)

type stubLookup struct{}

func (stubLookup) LookupISBN(_ context.Context, isbn string) (*types.Book, error) {
	if isbn != "9780143127741" {
		return nil, domainagg.NewError(domainagg.CodeNotFound, "stub", "no record", nil)
	}
	isbn10 := "0143127748"
	return &types.Book{ISBN13: &isbn, ISBN10: &isbn10, Title: "The Martian"}, nil
}

func (stubLookup) Search(context.Context, string) ([]*types.Book, error) { return nil, nil }

type api struct {
	t      *testing.T
	router http.Handler
	tokens *jwtauth.Verifier
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := memstore.New()
	uc := knowledge.New(knowledge.UsecasesDeps{
		Users:       store.Users(),
		Books:       store.Books(),
		Knowledge:   store.Knowledge(),
		Connections: store.Connections(),
		Media:       store.Media(),
		Aliases:     store.SlugAliases(),
		Aggregate: aggregates.NewKnowledgeAggregate(aggregates.KnowledgeAggregateDeps{
			Base:        aggregates.BaseDeps{Runner: &aggtestutil.InjectedTxRunner{}},
			Knowledge:   store.Knowledge(),
			Connections: store.Connections(),
			Media:       store.Media(),
			Aliases:     store.SlugAliases(),
		}),
		Lookup: stubLookup{},
	})
	tokens, err := jwtauth.New("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("jwtauth: %v", err)
	}
	router := kbhttp.NewRouter(kbhttp.RouterConfig{
		Log:              logger.Nop(),
		AuthMiddleware:   httpMW.NewAuthMiddleware(logger.Nop(), tokens),
		UserHandler:      httpH.NewUserHandler(uc, tokens),
		KnowledgeHandler: httpH.NewKnowledgeHandler(uc),
		HealthHandler:    httpH.NewHealthHandler(nil),
	})
	return &api{t: t, router: router, tokens: tokens}
}

func (a *api) do(method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			a.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	out := map[string]any{}
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") != "text/plain; charset=utf-8" {
		_ = json.Unmarshal(rec.Body.Bytes(), &out)
	}
	return rec, out
}

func (a *api) register(handle string) string {
	a.t.Helper()
	rec, body := a.do(http.MethodPost, "/api/register", "", map[string]any{"handle": handle})
	if rec.Code != http.StatusCreated {
		a.t.Fatalf("register %s: %d %s", handle, rec.Code, rec.Body.String())
	}
	return body["access_token"].(string)
}

func (a *api) create(token string, body map[string]any) string {
	a.t.Helper()
	rec, out := a.do(http.MethodPost, "/api/knowledge", token, body)
	if rec.Code != http.StatusCreated {
		a.t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	return out["knowledge"].(map[string]any)["id"].(string)
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHealthcheck(t *testing.T) {
	a := newAPI(t)
	rec, _ := a.do(http.MethodGet, "/healthcheck", "", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: %d %q", rec.Code, rec.Body.String())
	}
}

func TestPublishAndReadFlow(t *testing.T) {
	a := newAPI(t)
	tok := a.register("reader")

	list := a.create(tok, map[string]any{"kind": "collection", "title": "Hello World"})
	book := a.create(tok, map[string]any{"kind": "book", "query": "9780143127741", "query_kind": "isbn"})

	rec, body := a.do(http.MethodPost, "/api/knowledge/"+book+"/resolve", tok, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("resolve: %d %s", rec.Code, rec.Body.String())
	}
	if body["result"].(map[string]any)["outcome"] != string(domainagg.BindOutcomeBound) {
		t.Fatalf("unexpected resolve body: %s", rec.Body.String())
	}

	rec, _ = a.do(http.MethodPost, "/api/knowledge/"+list+"/connections", tok, map[string]any{
		"target_id": book, "kind": "reference",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("connect: %d %s", rec.Code, rec.Body.String())
	}
	rec, _ = a.do(http.MethodPost, "/api/knowledge/"+list+"/connections", tok, map[string]any{
		"target_id": book, "kind": "reference",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("duplicate connect should be 200, got %d", rec.Code)
	}

	rec, body = a.do(http.MethodPost, "/api/knowledge/"+list+"/publish", tok, nil)
	if rec.Code != http.StatusOK || body["slug"] != "hello-world" {
		t.Fatalf("publish: %d %s", rec.Code, rec.Body.String())
	}

	rec, body = a.do(http.MethodGet, "/api/u/reader/hello-world", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("query: %d %s", rec.Code, rec.Body.String())
	}
	edges := body["edges"].([]any)
	if len(edges) != 1 {
		t.Fatalf("edges: %d", len(edges))
	}
	target := edges[0].(map[string]any)["target"].(map[string]any)
	if target["book"].(map[string]any)["title"] != "The Martian" {
		t.Fatalf("book not expanded: %v", target)
	}

	rec, body = a.do(http.MethodGet, "/api/u/reader/"+list+"?page_size=5", "", nil)
	if rec.Code != http.StatusMovedPermanently {
		t.Fatalf("query by id should redirect, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/api/u/reader/hello-world?page_size=5" {
		t.Fatalf("location: %q", loc)
	}
	redirect := body["meta"].(map[string]any)["redirect"].(map[string]any)
	if redirect["slug"] != "hello-world" {
		t.Fatalf("redirect body: %v", redirect)
	}
}

func TestAuthAndErrorMapping(t *testing.T) {
	a := newAPI(t)
	owner := a.register("reader")
	other := a.register("stranger")
	id := a.create(owner, map[string]any{"kind": "note", "title": "secret", "is_private": true})

	rec, body := a.do(http.MethodPost, "/api/knowledge", "", map[string]any{"kind": "note", "title": "x"})
	if rec.Code != http.StatusUnauthorized || errorCode(body) != "unauthorized" {
		t.Fatalf("anonymous create: %d %s", rec.Code, rec.Body.String())
	}

	rec, body = a.do(http.MethodPost, "/api/knowledge/"+id+"/publish", other, nil)
	if rec.Code != http.StatusForbidden || errorCode(body) != "forbidden" {
		t.Fatalf("foreign publish: %d %s", rec.Code, rec.Body.String())
	}

	rec, _ = a.do(http.MethodGet, "/api/u/reader/"+id, other, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("private node for stranger: %d", rec.Code)
	}
	rec, _ = a.do(http.MethodGet, "/api/u/reader/"+id, owner, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("private node for owner: %d %s", rec.Code, rec.Body.String())
	}

	rec, body = a.do(http.MethodGet, "/api/u/reader/"+id+"?page_size=101", owner, nil)
	if rec.Code != http.StatusBadRequest || errorCode(body) != "validation" {
		t.Fatalf("page_size bound: %d %s", rec.Code, rec.Body.String())
	}
	rec, _ = a.do(http.MethodGet, "/api/u/reader/"+id+"?page=abc", owner, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric page: %d", rec.Code)
	}

	rec, body = a.do(http.MethodPost, "/api/knowledge", owner, map[string]any{"kind": "movie", "title": "x"})
	if rec.Code != http.StatusBadRequest || errorCode(body) != "validation" {
		t.Fatalf("bad kind: %d %s", rec.Code, rec.Body.String())
	}

	rec, _ = a.do(http.MethodDelete, "/api/knowledge/not-a-uuid", owner, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: %d", rec.Code)
	}
	rec, _ = a.do(http.MethodDelete, "/api/knowledge/"+uuid.NewString(), owner, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing node: %d", rec.Code)
	}
	rec, _ = a.do(http.MethodDelete, "/api/knowledge/"+id, owner, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}

	rec, body = a.do(http.MethodPost, "/api/register", "", map[string]any{"handle": "reader"})
	if rec.Code != http.StatusConflict || errorCode(body) != "conflict" {
		t.Fatalf("duplicate handle: %d %s", rec.Code, rec.Body.String())
	}
}

func TestResolveFailureMapsToStatus(t *testing.T) {
	a := newAPI(t)
	tok := a.register("reader")
	id := a.create(tok, map[string]any{"kind": "book", "query": "9780000000002"})

	rec, body := a.do(http.MethodPost, "/api/knowledge/"+id+"/resolve", tok, nil)
	if rec.Code != http.StatusNotFound || errorCode(body) != "not_found" {
		t.Fatalf("unresolvable isbn: %d %s", rec.Code, rec.Body.String())
	}
}
