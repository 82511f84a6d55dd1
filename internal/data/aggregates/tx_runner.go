package aggregates

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	domainagg "github.com/yungbote/knowledge-backend/internal/domain/aggregates"
	"github.com/yungbote/knowledge-backend/internal/platform/dbctx"
	"github.com/yungbote/knowledge-backend/internal/platform/envutil"
)

// TxRunner is the transaction boundary every aggregate write goes through.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type gormTxRunner struct {
	db               *gorm.DB
	statementTimeout time.Duration
}

// NewGormTxRunner runs bodies in GORM transactions. On Postgres each
// transaction gets a local statement_timeout (AGGREGATE_STATEMENT_TIMEOUT_MS)
// so a merge blocked on row locks fails as retryable instead of hanging.
func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{
		db:               db,
		statementTimeout: envutil.Millis("AGGREGATE_STATEMENT_TIMEOUT_MS", 5*time.Second),
	}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "aggregate.tx", "transaction runner has nil db", nil)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if r.statementTimeout > 0 && tx.Dialector.Name() == "postgres" {
			stmt := fmt.Sprintf("SET LOCAL statement_timeout = %d", r.statementTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}
