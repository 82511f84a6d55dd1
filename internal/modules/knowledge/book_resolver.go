package knowledge

import (
	"context"
	"fmt"
	"strings"

	types "github.com/yungbote/knowledge-backend/internal/domain"
	domainagg "github.com/yungbote/knowledge-backend/internal/domain/aggregates"
	domainknowledge "github.com/yungbote/knowledge-backend/internal/domain/knowledge"
	"github.com/yungbote/knowledge-backend/internal/platform/dbctx"
)

// ResolveBook finds the canonical book for a query, fetching and persisting it
// when the local store has no match. Concurrent calls for the same identifier
// share one external lookup.
func (u Usecases) ResolveBook(ctx context.Context, query string, kind types.QueryKind) (*types.Book, error) {
	const op = "Knowledge.ResolveBook"
	if u.deps.Books == nil || u.deps.Lookup == nil {
		return nil, domainagg.NewError(domainagg.CodeInternal, op, "book resolver not configured", nil)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, "query required", nil)
	}
	switch kind {
	case types.QueryKindISBN:
		return u.resolveISBN(ctx, op, query)
	case types.QueryKindSearch:
		return u.resolveSearch(ctx, op, query)
	default:
		return nil, domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("unsupported query kind %q", kind), nil)
	}
}

func (u Usecases) resolveISBN(ctx context.Context, op, raw string) (*types.Book, error) {
	isbn13, isbn10, err := domainknowledge.NormalizeISBN(raw)
	if err != nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, op, fmt.Sprintf("malformed isbn %q", raw), err)
	}
	dbc := dbctx.Context{Ctx: ctx}
	if b, err := u.findLocalISBN(dbc, isbn13, isbn10); err != nil || b != nil {
		return b, err
	}

	return u.sharedLookup(ctx, op, "isbn:"+isbn13, func(ctx context.Context) (*types.Book, error) {
		dbc := dbctx.Context{Ctx: ctx}
		// A concurrent resolver may have persisted the record meanwhile.
		if b, err := u.findLocalISBN(dbc, isbn13, isbn10); err != nil || b != nil {
			return b, err
		}
		fetched, err := u.deps.Lookup.LookupISBN(ctx, isbn13)
		if err != nil {
			return nil, err
		}
		if fetched.ISBN13 == nil || *fetched.ISBN13 == "" {
			fetched.ISBN13 = &isbn13
		}
		if (fetched.ISBN10 == nil || *fetched.ISBN10 == "") && isbn10 != "" {
			fetched.ISBN10 = &isbn10
		}
		return u.deps.Books.UpsertByIdentifiers(dbc, fetched)
	})
}

func (u Usecases) findLocalISBN(dbc dbctx.Context, isbn13, isbn10 string) (*types.Book, error) {
	b, err := u.deps.Books.GetByIdentifier(dbc, "isbn13", isbn13)
	if err != nil || b != nil {
		return b, err
	}
	if isbn10 == "" {
		return nil, nil
	}
	return u.deps.Books.GetByIdentifier(dbc, "isbn10", isbn10)
}

// resolveSearch takes the provider's first candidate. There is no tie-break
// between equally plausible results.
func (u Usecases) resolveSearch(ctx context.Context, op, query string) (*types.Book, error) {
	key := "search:" + strings.ToLower(query)
	return u.sharedLookup(ctx, op, key, func(ctx context.Context) (*types.Book, error) {
		candidates, err := u.deps.Lookup.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		var first *types.Book
		for _, c := range candidates {
			if c != nil && len(c.Identifiers()) > 0 {
				first = c
				break
			}
		}
		if first == nil {
			return nil, domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("no book matches %q", query), nil)
		}
		return u.deps.Books.UpsertByIdentifiers(dbctx.Context{Ctx: ctx}, first)
	})
}

// sharedLookup runs fn once per key across concurrent callers. fn gets a
// context detached from any single caller and bounded by LookupTimeout, so a
// caller giving up never fails the others waiting on the same key.
func (u Usecases) sharedLookup(ctx context.Context, op, key string, fn func(context.Context) (*types.Book, error)) (*types.Book, error) {
	ch := u.flight.DoChan(key, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), u.deps.Config.LookupTimeout)
		defer cancel()
		return fn(lctx)
	})
	select {
	case <-ctx.Done():
		return nil, domainagg.Wrap(domainagg.CodeRetryable, op, ctx.Err())
	case res := <-ch:
		return sharedBook(res.Val, res.Err)
	}
}

// sharedBook copies a singleflight result so callers never share a pointer.
func sharedBook(v any, err error) (*types.Book, error) {
	if err != nil {
		return nil, err
	}
	b, _ := v.(*types.Book)
	if b == nil {
		return nil, nil
	}
	out := *b
	return &out, nil
}
