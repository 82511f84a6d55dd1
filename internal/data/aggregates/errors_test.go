package aggregates

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/knowledge-backend/internal/domain/aggregates"
)

func TestMapErrorClassifies(t *testing.T) {
	cases := []struct {
		in   error
		want domainagg.ErrorCode
	}{
		{ValidationError("bad slug"), domainagg.CodeValidation},
		{fmt.Errorf("publish: %w", ForbiddenError("not owner")), domainagg.CodeForbidden},
		{NotFoundError("node"), domainagg.CodeNotFound},
		{gorm.ErrRecordNotFound, domainagg.CodeNotFound},
		{gorm.ErrForeignKeyViolated, domainagg.CodeNotFound},
		{fmt.Errorf("bind: %w", gorm.ErrDuplicatedKey), domainagg.CodeConflict},
		{&pgconn.PgError{Code: "23505"}, domainagg.CodeConflict},
		{errors.New("UNIQUE constraint failed: knowledge.user_id, knowledge.book_id"), domainagg.CodeConflict},
		{&pgconn.PgError{Code: "40P01"}, domainagg.CodeRetryable},
		{&pgconn.PgError{Code: "57014", Message: "canceling statement due to statement timeout"}, domainagg.CodeRetryable},
		{context.DeadlineExceeded, domainagg.CodeRetryable},
		{errors.New("database is locked"), domainagg.CodeRetryable},
		{&pgconn.PgError{Code: "42P01", Message: "relation missing"}, domainagg.CodeInternal},
		{errors.New("boom"), domainagg.CodeInternal},
	}
	for _, tc := range cases {
		err := MapError("knowledge.test", tc.in)
		if got := domainagg.CodeOf(err); got != tc.want {
			t.Fatalf("%v: want=%s got=%s", tc.in, tc.want, got)
		}
		if !errors.Is(err, tc.in) {
			t.Fatalf("%v: cause lost", tc.in)
		}
	}
}

func TestMapErrorPassesCodedErrorsThrough(t *testing.T) {
	in := domainagg.NewError(domainagg.CodePublishFailed, "knowledge.publish", "ceiling", nil)
	if out := MapError("other", in); out != in {
		t.Fatalf("expected passthrough")
	}
	if MapError("op", nil) != nil {
		t.Fatalf("nil should stay nil")
	}
}
