package testutil

import (
	"context"
	"sync"

	"github.com/yungbote/knowledge-backend/internal/data/aggregates"
	"github.com/yungbote/knowledge-backend/internal/platform/dbctx"
)

// InjectedTxRunner runs aggregate bodies without a database. The zero value
// commits every call; FailOn and FailCommit inject failures by call number
// (1-based) or on every commit.
type InjectedTxRunner struct {
	mu sync.Mutex

	FailOn     map[int]error
	FailCommit error

	Calls     int
	Commits   int
	Rollbacks int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.Calls++
	injected := r.FailOn[r.Calls]
	r.mu.Unlock()

	err := injected
	if err == nil && fn != nil {
		err = fn(dbctx.Context{Ctx: ctx})
	}
	if err == nil {
		err = r.FailCommit
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.Rollbacks++
		return err
	}
	r.Commits++
	return nil
}

// Counts returns calls, commits and rollbacks under the lock.
func (r *InjectedTxRunner) Counts() (calls, commits, rollbacks int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Calls, r.Commits, r.Rollbacks
}
