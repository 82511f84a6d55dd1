package knowledge

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/knowledge-backend/internal/data/aggregates"
	aggtestutil "github.com/yungbote/knowledge-backend/internal/data/aggregates/testutil"
	"github.com/yungbote/knowledge-backend/internal/data/repos"
	"github.com/yungbote/knowledge-backend/internal/data/repos/memstore"
	types "github.com/yungbote/knowledge-backend/internal/domain"
	domainagg "github.com/yungbote/knowledge-backend/internal/domain/aggregates"
	"github.com/yungbote/knowledge-backend/internal/platform/dbctx"
	"github.com/yungbote/knowledge-backend/internal/realtime"
	"github.com/yungbote/knowledge-backend/internal/realtime/bus"
)

type fakeLookup struct {
	mu     sync.Mutex
	books  map[string]*types.Book
	search []*types.Book
	err    error
	gate   chan struct{}

	isbnCalls   atomic.Int32
	sawDeadline atomic.Bool
	searchCalls atomic.Int32
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{books: map[string]*types.Book{}}
}

func (f *fakeLookup) add(isbn13, isbn10, title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := &types.Book{ISBN13: &isbn13, Title: title}
	if isbn10 != "" {
		b.ISBN10 = &isbn10
	}
	f.books[isbn13] = b
}

func (f *fakeLookup) LookupISBN(ctx context.Context, isbn string) (*types.Book, error) {
	f.isbnCalls.Add(1)
	if _, ok := ctx.Deadline(); ok {
		f.sawDeadline.Store(true)
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	b, ok := f.books[isbn]
	if !ok {
		return nil, domainagg.NewError(domainagg.CodeNotFound, "fake.LookupISBN", "no record for isbn "+isbn, nil)
	}
	out := *b
	return &out, nil
}

func (f *fakeLookup) Search(_ context.Context, _ string) ([]*types.Book, error) {
	f.searchCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]*types.Book, 0, len(f.search))
	for _, b := range f.search {
		c := *b
		out = append(out, &c)
	}
	return out, nil
}

type recordingDispatcher struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (d *recordingDispatcher) DispatchResolve(_ context.Context, id uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ids = append(d.ids, id)
	return nil
}

type harness struct {
	t      *testing.T
	ctx    context.Context
	dbc    dbctx.Context
	store  *memstore.MemStore
	lookup *fakeLookup
	hooks  *aggtestutil.HooksRecorder
	uc     Usecases

	sigMu   sync.Mutex
	signals []realtime.Signal

	owner    *types.User
	stranger *types.User
}

type harnessOption func(*UsecasesDeps, *memstore.MemStore)

// withKnowledgeRepo swaps the node repo seen by the aggregate.
func withKnowledgeRepo(wrap func(repos.KnowledgeRepo) repos.KnowledgeRepo) harnessOption {
	return func(d *UsecasesDeps, s *memstore.MemStore) {
		d.Aggregate = aggregates.NewKnowledgeAggregate(aggregates.KnowledgeAggregateDeps{
			Base:        aggregates.BaseDeps{Runner: &aggtestutil.InjectedTxRunner{}},
			Knowledge:   wrap(s.Knowledge()),
			Connections: s.Connections(),
			Media:       s.Media(),
			Aliases:     s.SlugAliases(),
		})
	}
}

func withConfig(cfg Config) harnessOption {
	return func(d *UsecasesDeps, _ *memstore.MemStore) { d.Config = cfg }
}

func withDispatcher(disp Dispatcher) harnessOption {
	return func(d *UsecasesDeps, _ *memstore.MemStore) { d.Dispatcher = disp }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	ctx := context.Background()
	h := &harness{
		t:      t,
		ctx:    ctx,
		dbc:    dbctx.Context{Ctx: ctx},
		store:  memstore.New(),
		lookup: newFakeLookup(),
		hooks:  &aggtestutil.HooksRecorder{},
	}
	signals := bus.NewMemoryBus()
	if err := signals.StartForwarder(ctx, func(m realtime.Signal) {
		h.sigMu.Lock()
		defer h.sigMu.Unlock()
		h.signals = append(h.signals, m)
	}); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}

	deps := UsecasesDeps{
		Users:       h.store.Users(),
		Books:       h.store.Books(),
		Knowledge:   h.store.Knowledge(),
		Connections: h.store.Connections(),
		Media:       h.store.Media(),
		Aliases:     h.store.SlugAliases(),
		Aggregate: aggregates.NewKnowledgeAggregate(aggregates.KnowledgeAggregateDeps{
			Base:        aggregates.BaseDeps{Runner: &aggtestutil.InjectedTxRunner{}, Hooks: h.hooks},
			Knowledge:   h.store.Knowledge(),
			Connections: h.store.Connections(),
			Media:       h.store.Media(),
			Aliases:     h.store.SlugAliases(),
		}),
		Lookup:  h.lookup,
		Signals: signals,
	}
	for _, opt := range opts {
		opt(&deps, h.store)
	}
	h.uc = New(deps)
	h.owner = h.user("reader")
	h.stranger = h.user("stranger")
	return h
}

func (h *harness) user(handle string) *types.User {
	h.t.Helper()
	u := &types.User{Handle: handle}
	if err := h.store.Users().Create(h.dbc, u); err != nil {
		h.t.Fatalf("seed user %q: %v", handle, err)
	}
	return u
}

func (h *harness) bookNode(owner uuid.UUID, query string) *types.Knowledge {
	h.t.Helper()
	q := query
	k := &types.Knowledge{UserID: owner, Kind: types.KindBook, Title: query, Query: &q}
	if err := h.store.Knowledge().Create(h.dbc, k); err != nil {
		h.t.Fatalf("seed book node: %v", err)
	}
	return k
}

func (h *harness) note(owner uuid.UUID, title string, mutate func(*types.Knowledge)) *types.Knowledge {
	h.t.Helper()
	k := &types.Knowledge{UserID: owner, Kind: types.KindNote, Title: title}
	if mutate != nil {
		mutate(k)
	}
	if err := h.store.Knowledge().Create(h.dbc, k); err != nil {
		h.t.Fatalf("seed note %q: %v", title, err)
	}
	return k
}

func (h *harness) connect(src, tgt uuid.UUID, sortIndex int) *types.Connection {
	h.t.Helper()
	c := &types.Connection{SourceID: src, TargetID: tgt, Kind: types.ConnectionReference, SortIndex: sortIndex}
	if _, err := h.store.Connections().Create(h.dbc, c); err != nil {
		h.t.Fatalf("seed edge: %v", err)
	}
	return c
}

func (h *harness) reload(id uuid.UUID) *types.Knowledge {
	h.t.Helper()
	k, err := h.store.Knowledge().GetByID(h.dbc, id)
	if err != nil {
		h.t.Fatalf("reload %s: %v", id, err)
	}
	return k
}

func (h *harness) signalsOf(kind realtime.SignalType) []realtime.Signal {
	h.sigMu.Lock()
	defer h.sigMu.Unlock()
	out := []realtime.Signal{}
	for _, s := range h.signals {
		if s.Type == kind {
			out = append(out, s)
		}
	}
	return out
}

func mustCode(t *testing.T, err error, code domainagg.ErrorCode) {
	t.Helper()
	if !domainagg.IsCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func strp(s string) *string { return &s }

func title(i int) string { return fmt.Sprintf("target %02d", i) }
