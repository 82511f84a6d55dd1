package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/knowledge-backend/internal/domain/aggregates"
)

// Bodies passed to executeWrite report failures with these helpers; the op
// is filled in by MapError on the way out.
func NotFoundError(msg string) error  { return tagged(domainagg.CodeNotFound, msg) }
func ForbiddenError(msg string) error { return tagged(domainagg.CodeForbidden, msg) }
func ConflictError(msg string) error  { return tagged(domainagg.CodeConflict, msg) }
func RetryableError(msg string) error { return tagged(domainagg.CodeRetryable, msg) }
func ValidationError(msg string) error {
	return tagged(domainagg.CodeValidation, msg)
}

type taggedError struct {
	code domainagg.ErrorCode
	msg  string
}

func (e *taggedError) Error() string { return e.msg }

func tagged(code domainagg.ErrorCode, msg string) error {
	return &taggedError{code: code, msg: strings.TrimSpace(msg)}
}

var sentinelCodes = []struct {
	err  error
	code domainagg.ErrorCode
}{
	{gorm.ErrDuplicatedKey, domainagg.CodeConflict},
	{gorm.ErrRecordNotFound, domainagg.CodeNotFound},
	{gorm.ErrForeignKeyViolated, domainagg.CodeNotFound},
	{context.Canceled, domainagg.CodeRetryable},
	{context.DeadlineExceeded, domainagg.CodeRetryable},
}

// Postgres SQLSTATEs we classify; anything else falls through to text.
var pgStateCodes = map[string]domainagg.ErrorCode{
	"23505": domainagg.CodeConflict,  // unique_violation
	"23503": domainagg.CodeNotFound,  // foreign_key_violation
	"40001": domainagg.CodeRetryable, // serialization_failure
	"40P01": domainagg.CodeRetryable, // deadlock_detected
	"55P03": domainagg.CodeRetryable, // lock_not_available
	"57014": domainagg.CodeRetryable, // query_canceled (statement_timeout)
}

// Fragments for drivers without structured errors, sqlite mostly.
var messageCodes = []struct {
	fragment string
	code     domainagg.ErrorCode
}{
	{"duplicate key", domainagg.CodeConflict},
	{"unique constraint failed", domainagg.CodeConflict},
	{"already exists", domainagg.CodeConflict},
	{"deadlock", domainagg.CodeRetryable},
	{"serialization", domainagg.CodeRetryable},
	{"database is locked", domainagg.CodeRetryable},
	{"timeout", domainagg.CodeRetryable},
	{"temporar", domainagg.CodeRetryable},
}

// MapError converts any failure from a write body into a *domainagg.Error.
// Errors that already carry a code pass through unchanged.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *domainagg.Error
	if errors.As(err, &existing) {
		return err
	}
	return domainagg.Wrap(classify(err), op, err)
}

func classify(err error) domainagg.ErrorCode {
	var t *taggedError
	if errors.As(err, &t) {
		return t.code
	}
	for _, s := range sentinelCodes {
		if errors.Is(err, s.err) {
			return s.code
		}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if code, ok := pgStateCodes[strings.TrimSpace(pgErr.Code)]; ok {
			return code
		}
	}
	msg := strings.ToLower(err.Error())
	for _, m := range messageCodes {
		if strings.Contains(msg, m.fragment) {
			return m.code
		}
	}
	return domainagg.CodeInternal
}
