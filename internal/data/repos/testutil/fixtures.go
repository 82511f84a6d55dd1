package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/knowledge-backend/internal/domain"
)

func create(tb testing.TB, ctx context.Context, tx *gorm.DB, what string, row any) {
	tb.Helper()
	if err := tx.WithContext(ctx).Create(row).Error; err != nil {
		tb.Fatalf("seed %s: %v", what, err)
	}
}

// SeedUser inserts a user whose handle is prefix plus a random suffix, so
// parallel tests sharing one database never collide on the handle index.
func SeedUser(tb testing.TB, ctx context.Context, tx *gorm.DB, prefix string) *types.User {
	u := &types.User{ID: uuid.New(), Handle: prefix + "-" + uuid.NewString()[:8], DisplayName: prefix}
	create(tb, ctx, tx, "user", u)
	return u
}

func SeedBook(tb testing.TB, ctx context.Context, tx *gorm.DB, isbn13, title string) *types.Book {
	b := &types.Book{ID: uuid.New(), ISBN13: PtrString(isbn13), Title: title}
	create(tb, ctx, tx, "book", b)
	return b
}

// SeedKnowledge inserts a note owned by userID; mutate may turn it into any
// other kind before the insert.
func SeedKnowledge(tb testing.TB, ctx context.Context, tx *gorm.DB, userID uuid.UUID, title string, mutate func(*types.Knowledge)) *types.Knowledge {
	k := &types.Knowledge{ID: uuid.New(), UserID: userID, Kind: types.KindNote, Title: title}
	if mutate != nil {
		mutate(k)
	}
	create(tb, ctx, tx, "knowledge", k)
	return k
}

func SeedConnection(tb testing.TB, ctx context.Context, tx *gorm.DB, sourceID, targetID uuid.UUID, kind types.ConnectionKind, sortIndex int) *types.Connection {
	c := &types.Connection{ID: uuid.New(), SourceID: sourceID, TargetID: targetID, Kind: kind, SortIndex: sortIndex}
	create(tb, ctx, tx, "connection", c)
	return c
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrString(v string) *string { return &v }
