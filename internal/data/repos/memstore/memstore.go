package memstore

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/knowledge-backend/internal/data/repos/knowledge"
	types "github.com/yungbote/knowledge-backend/internal/domain"
	domainknowledge "github.com/yungbote/knowledge-backend/internal/domain/knowledge"
	"github.com/yungbote/knowledge-backend/internal/platform/dbctx"
)

// MemStore is an in-memory stand-in for the knowledge tables. It enforces the
// same unique indexes (returning gorm.ErrDuplicatedKey) and cascades edge,
// media and alias rows when a node is deleted. Rows are copied in and out.
type MemStore struct {
	mu sync.Mutex

	users   map[uuid.UUID]types.User
	books   map[uuid.UUID]types.Book
	nodes   map[uuid.UUID]types.Knowledge
	edges   map[uuid.UUID]types.Connection
	media   map[uuid.UUID]types.MediaAttachment
	aliases map[uuid.UUID]types.KnowledgeSlugAlias

	seq int64
}

func New() *MemStore {
	return &MemStore{
		users:   map[uuid.UUID]types.User{},
		books:   map[uuid.UUID]types.Book{},
		nodes:   map[uuid.UUID]types.Knowledge{},
		edges:   map[uuid.UUID]types.Connection{},
		media:   map[uuid.UUID]types.MediaAttachment{},
		aliases: map[uuid.UUID]types.KnowledgeSlugAlias{},
	}
}

// tick returns strictly increasing timestamps so ordering by created_at is stable.
func (s *MemStore) tick() time.Time {
	s.seq++
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(s.seq) * time.Millisecond)
}

func (s *MemStore) Users() knowledge.UserRepo               { return memUsers{s} }
func (s *MemStore) Books() knowledge.BookRepo               { return memBooks{s} }
func (s *MemStore) Knowledge() knowledge.KnowledgeRepo      { return memKnowledge{s} }
func (s *MemStore) Connections() knowledge.ConnectionRepo   { return memConnections{s} }
func (s *MemStore) Media() knowledge.MediaAttachmentRepo    { return memMedia{s} }
func (s *MemStore) SlugAliases() knowledge.SlugAliasRepo    { return memAliases{s} }

func (s *MemStore) NodeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nodes)
}

func (s *MemStore) EdgeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.edges)
}

func (s *MemStore) BookCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.books)
}

// ---- users ----

type memUsers struct{ s *MemStore }

func (r memUsers) Create(_ dbctx.Context, u *types.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Handle = strings.ToLower(strings.TrimSpace(u.Handle))
	for _, existing := range r.s.users {
		if existing.Handle == u.Handle {
			return gorm.ErrDuplicatedKey
		}
	}
	u.CreatedAt = r.s.tick()
	u.UpdatedAt = u.CreatedAt
	r.s.users[u.ID] = *u
	return nil
}

func (r memUsers) GetByID(_ dbctx.Context, id uuid.UUID) (*types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (r memUsers) GetByHandle(_ dbctx.Context, handle string) (*types.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	handle = strings.ToLower(strings.TrimSpace(handle))
	for _, u := range r.s.users {
		if u.Handle == handle {
			out := u
			return &out, nil
		}
	}
	return nil, nil
}

// ---- books ----

type memBooks struct{ s *MemStore }

func (r memBooks) GetByID(_ dbctx.Context, id uuid.UUID) (*types.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if b, ok := r.s.books[id]; ok {
		return &b, nil
	}
	return nil, nil
}

func (r memBooks) GetByIDs(_ dbctx.Context, ids []uuid.UUID) ([]*types.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*types.Book{}
	for _, id := range ids {
		if b, ok := r.s.books[id]; ok {
			out = append(out, &b)
		}
	}
	return out, nil
}

func (r memBooks) GetByIdentifier(_ dbctx.Context, column, value string) (*types.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.findLocked(column, value)
}

func (r memBooks) findLocked(column, value string) (*types.Book, error) {
	known := false
	for _, c := range domainknowledge.BookIdentifierColumns {
		known = known || c == column
	}
	if !known {
		return nil, fmt.Errorf("unknown book identifier column %q", column)
	}
	for _, b := range r.s.books {
		if b.Identifiers()[column] == value {
			out := b
			return &out, nil
		}
	}
	return nil, nil
}

func (r memBooks) UpsertByIdentifiers(_ dbctx.Context, book *types.Book) (*types.Book, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if book == nil || len(book.Identifiers()) == 0 {
		return nil, fmt.Errorf("book has no identifiers")
	}
	for _, col := range domainknowledge.BookIdentifierColumns {
		v, ok := book.Identifiers()[col]
		if !ok {
			continue
		}
		existing, _ := r.findLocked(col, v)
		if existing == nil {
			continue
		}
		updated := *book
		updated.ID = existing.ID
		updated.ISBN13, updated.ISBN10 = existing.ISBN13, existing.ISBN10
		updated.ASIN, updated.GoogleBooksID, updated.OpenLibraryID = existing.ASIN, existing.GoogleBooksID, existing.OpenLibraryID
		updated.CreatedAt = existing.CreatedAt
		updated.UpdatedAt = r.s.tick()
		r.s.books[existing.ID] = updated
		return &updated, nil
	}
	row := *book
	row.ID = uuid.New()
	row.CreatedAt = r.s.tick()
	row.UpdatedAt = row.CreatedAt
	r.s.books[row.ID] = row
	return &row, nil
}

// ---- knowledge ----

type memKnowledge struct{ s *MemStore }

func (r memKnowledge) checkUniqueLocked(k types.Knowledge) error {
	for _, other := range r.s.nodes {
		if other.ID == k.ID || other.UserID != k.UserID {
			continue
		}
		if k.Slug != nil && other.Slug != nil && *k.Slug == *other.Slug {
			return gorm.ErrDuplicatedKey
		}
		if k.BookID != nil && other.BookID != nil && *k.BookID == *other.BookID {
			return gorm.ErrDuplicatedKey
		}
	}
	return nil
}

func (r memKnowledge) Create(_ dbctx.Context, k *types.Knowledge) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	if _, ok := r.s.nodes[k.ID]; ok {
		return gorm.ErrDuplicatedKey
	}
	if err := r.checkUniqueLocked(*k); err != nil {
		return err
	}
	k.CreatedAt = r.s.tick()
	k.UpdatedAt = k.CreatedAt
	r.s.nodes[k.ID] = *k
	return nil
}

func (r memKnowledge) GetByID(_ dbctx.Context, id uuid.UUID) (*types.Knowledge, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if k, ok := r.s.nodes[id]; ok {
		return &k, nil
	}
	return nil, nil
}

func (r memKnowledge) GetByIDs(_ dbctx.Context, ids []uuid.UUID) ([]*types.Knowledge, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*types.Knowledge{}
	for _, id := range ids {
		if k, ok := r.s.nodes[id]; ok {
			out = append(out, &k)
		}
	}
	return out, nil
}

func (r memKnowledge) GetByUserSlug(_ dbctx.Context, userID uuid.UUID, slug string) (*types.Knowledge, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, k := range r.s.nodes {
		if k.UserID == userID && k.Slug != nil && *k.Slug == slug {
			out := k
			return &out, nil
		}
	}
	return nil, nil
}

func (r memKnowledge) GetByUserBook(_ dbctx.Context, userID, bookID, excludeID uuid.UUID) (*types.Knowledge, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, k := range r.s.nodes {
		if k.ID != excludeID && k.UserID == userID && k.BookID != nil && *k.BookID == bookID {
			out := k
			return &out, nil
		}
	}
	return nil, nil
}

func (r memKnowledge) Bind(_ dbctx.Context, id, bookID uuid.UUID, title string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k, ok := r.s.nodes[id]
	if !ok || k.BookID != nil {
		return false, nil
	}
	b := bookID
	k.BookID = &b
	k.Title = title
	k.ResolutionError = nil
	if err := r.checkUniqueLocked(k); err != nil {
		return false, err
	}
	k.UpdatedAt = r.s.tick()
	r.s.nodes[id] = k
	return true, nil
}

func (r memKnowledge) SetSlug(_ dbctx.Context, id uuid.UUID, slug string, publishedAt time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k, ok := r.s.nodes[id]
	if !ok || k.Slug != nil {
		return false, nil
	}
	sl := slug
	at := publishedAt
	k.Slug = &sl
	k.PublishedAt = &at
	if err := r.checkUniqueLocked(k); err != nil {
		return false, err
	}
	k.UpdatedAt = r.s.tick()
	r.s.nodes[id] = k
	return true, nil
}

func (r memKnowledge) SetResolutionError(_ dbctx.Context, id uuid.UUID, msg *string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k, ok := r.s.nodes[id]
	if !ok {
		return nil
	}
	if msg != nil {
		m := *msg
		msg = &m
	}
	k.ResolutionError = msg
	k.UpdatedAt = r.s.tick()
	r.s.nodes[id] = k
	return nil
}

func (r memKnowledge) Delete(_ dbctx.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.nodes, id)
	for eid, e := range r.s.edges {
		if e.SourceID == id || e.TargetID == id {
			delete(r.s.edges, eid)
		}
	}
	for mid, m := range r.s.media {
		if m.KnowledgeID == id {
			delete(r.s.media, mid)
		}
	}
	for aid, a := range r.s.aliases {
		if a.KnowledgeID == id {
			delete(r.s.aliases, aid)
		}
	}
	return nil
}

func (r memKnowledge) ListUnresolved(_ dbctx.Context, limit int) ([]*types.Knowledge, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*types.Knowledge{}
	for _, k := range r.s.nodes {
		if k.Kind == types.KindBook && k.BookID == nil && k.ResolutionError == nil && k.Query != nil {
			kk := k
			out = append(out, &kk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ---- connections ----

type memConnections struct{ s *MemStore }

func (r memConnections) existsLocked(sourceID, targetID uuid.UUID, kind types.ConnectionKind, exclude uuid.UUID) bool {
	for _, e := range r.s.edges {
		if e.ID != exclude && e.SourceID == sourceID && e.TargetID == targetID && e.Kind == kind {
			return true
		}
	}
	return false
}

func (r memConnections) Create(_ dbctx.Context, c *types.Connection) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.nodes[c.SourceID]; !ok {
		return false, gorm.ErrForeignKeyViolated
	}
	if _, ok := r.s.nodes[c.TargetID]; !ok {
		return false, gorm.ErrForeignKeyViolated
	}
	if r.existsLocked(c.SourceID, c.TargetID, c.Kind, uuid.Nil) {
		return false, nil
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = r.s.tick()
	c.UpdatedAt = c.CreatedAt
	r.s.edges[c.ID] = *c
	return true, nil
}

func (r memConnections) GetByID(_ dbctx.Context, id uuid.UUID) (*types.Connection, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if e, ok := r.s.edges[id]; ok {
		return &e, nil
	}
	return nil, nil
}

func (r memConnections) Exists(_ dbctx.Context, sourceID, targetID uuid.UUID, kind types.ConnectionKind) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.existsLocked(sourceID, targetID, kind, uuid.Nil), nil
}

func (r memConnections) list(match func(types.Connection) bool) []*types.Connection {
	out := []*types.Connection{}
	for _, e := range r.s.edges {
		if match(e) {
			ee := e
			out = append(out, &ee)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortIndex != out[j].SortIndex {
			return out[i].SortIndex < out[j].SortIndex
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r memConnections) ListInbound(_ dbctx.Context, targetID uuid.UUID) ([]*types.Connection, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.list(func(e types.Connection) bool { return e.TargetID == targetID }), nil
}

func (r memConnections) ListOutbound(_ dbctx.Context, sourceID uuid.UUID) ([]*types.Connection, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.list(func(e types.Connection) bool { return e.SourceID == sourceID }), nil
}

func (r memConnections) Repoint(_ dbctx.Context, id, sourceID, targetID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.edges[id]
	if !ok {
		return nil
	}
	if r.existsLocked(sourceID, targetID, e.Kind, id) {
		return gorm.ErrDuplicatedKey
	}
	e.SourceID, e.TargetID = sourceID, targetID
	e.UpdatedAt = r.s.tick()
	r.s.edges[id] = e
	return nil
}

func (r memConnections) DeleteByIDs(_ dbctx.Context, ids []uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		delete(r.s.edges, id)
	}
	return nil
}

func (r memConnections) PageOutgoing(_ dbctx.Context, in knowledge.PageOutgoingInput) ([]*types.Connection, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	all := r.list(func(e types.Connection) bool {
		if e.SourceID != in.SourceID {
			return false
		}
		t, ok := r.s.nodes[e.TargetID]
		return ok && t.VisibleTo(in.ViewerID)
	})
	total := int64(len(all))
	if in.Limit <= 0 || in.Offset >= len(all) {
		return []*types.Connection{}, total, nil
	}
	end := in.Offset + in.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[in.Offset:end], total, nil
}

// ---- media ----

type memMedia struct{ s *MemStore }

func (r memMedia) Create(_ dbctx.Context, rows []*types.MediaAttachment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range rows {
		if m.ID == uuid.Nil {
			m.ID = uuid.New()
		}
		m.CreatedAt = r.s.tick()
		r.s.media[m.ID] = *m
	}
	return nil
}

func (r memMedia) ListByKnowledgeIDs(_ dbctx.Context, ids []uuid.UUID) ([]*types.MediaAttachment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := map[uuid.UUID]bool{}
	for _, id := range ids {
		want[id] = true
	}
	out := []*types.MediaAttachment{}
	for _, m := range r.s.media {
		if want[m.KnowledgeID] {
			mm := m
			out = append(out, &mm)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortIndex != out[j].SortIndex {
			return out[i].SortIndex < out[j].SortIndex
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r memMedia) Reassign(_ dbctx.Context, fromID, toID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if fromID == toID {
		return 0, nil
	}
	next := 0
	var moving []types.MediaAttachment
	for _, m := range r.s.media {
		switch m.KnowledgeID {
		case toID:
			next = max(next, m.SortIndex+1)
		case fromID:
			moving = append(moving, m)
		}
	}
	sort.Slice(moving, func(i, j int) bool {
		if moving[i].SortIndex != moving[j].SortIndex {
			return moving[i].SortIndex < moving[j].SortIndex
		}
		return moving[i].CreatedAt.Before(moving[j].CreatedAt)
	})
	for i, m := range moving {
		m.KnowledgeID = toID
		m.SortIndex = next + i
		r.s.media[m.ID] = m
	}
	return len(moving), nil
}

// ---- slug aliases ----

type memAliases struct{ s *MemStore }

func (r memAliases) Upsert(_ dbctx.Context, userID uuid.UUID, slug string, knowledgeID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, a := range r.s.aliases {
		if a.UserID == userID && a.Slug == slug {
			a.KnowledgeID = knowledgeID
			r.s.aliases[id] = a
			return nil
		}
	}
	a := types.KnowledgeSlugAlias{ID: uuid.New(), UserID: userID, Slug: slug, KnowledgeID: knowledgeID, CreatedAt: r.s.tick()}
	r.s.aliases[a.ID] = a
	return nil
}

func (r memAliases) GetByUserSlug(_ dbctx.Context, userID uuid.UUID, slug string) (*types.KnowledgeSlugAlias, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.aliases {
		if a.UserID == userID && a.Slug == slug {
			out := a
			return &out, nil
		}
	}
	return nil, nil
}

func (r memAliases) Reassign(_ dbctx.Context, fromID, toID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, a := range r.s.aliases {
		if a.KnowledgeID == fromID {
			a.KnowledgeID = toID
			r.s.aliases[id] = a
		}
	}
	return nil
}
