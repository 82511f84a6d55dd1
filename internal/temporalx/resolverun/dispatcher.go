package resolverun

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/api/enums/v1"
	temporalsdkclient "go.temporal.io/sdk/client"

	"github.com/yungbote/knowledge-backend/internal/platform/logger"
)

// TemporalDispatcher starts one knowledge_resolve workflow per node. The
// workflow id is derived from the node id, so re-dispatching a node that is
// still resolving is a no-op.
type TemporalDispatcher struct {
	client    temporalsdkclient.Client
	taskQueue string
}

func NewTemporalDispatcher(c temporalsdkclient.Client, taskQueue string) *TemporalDispatcher {
	return &TemporalDispatcher{client: c, taskQueue: taskQueue}
}

func WorkflowID(knowledgeID uuid.UUID) string {
	return WorkflowName + ":" + knowledgeID.String()
}

func (d *TemporalDispatcher) DispatchResolve(ctx context.Context, knowledgeID uuid.UUID) error {
	if d == nil || d.client == nil {
		return fmt.Errorf("temporal not configured")
	}
	opts := temporalsdkclient.StartWorkflowOptions{
		ID:                       WorkflowID(knowledgeID),
		TaskQueue:                d.taskQueue,
		WorkflowIDReusePolicy:    enums.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowIDConflictPolicy: enums.WORKFLOW_ID_CONFLICT_POLICY_USE_EXISTING,
	}
	_, err := d.client.ExecuteWorkflow(ctx, opts, WorkflowName, Input{KnowledgeID: knowledgeID.String()})
	return err
}

// GoroutineDispatcher resolves in the background of the current process,
// each run bounded by timeout. Used when Temporal is not configured.
type GoroutineDispatcher struct {
	log      *logger.Logger
	resolver Resolver
	timeout  time.Duration
}

func NewGoroutineDispatcher(log *logger.Logger, resolver Resolver, timeout time.Duration) *GoroutineDispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &GoroutineDispatcher{log: log.With("service", "GoroutineDispatcher"), resolver: resolver, timeout: timeout}
}

func (d *GoroutineDispatcher) DispatchResolve(_ context.Context, knowledgeID uuid.UUID) error {
	if d.resolver == nil {
		return fmt.Errorf("resolver not configured")
	}
	// The request context ends with the request; resolution outlives it.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		res, err := d.resolver.Resolve(ctx, knowledgeID)
		if err != nil {
			d.log.Warn("background resolve failed", "knowledge_id", knowledgeID, "error", err)
			return
		}
		d.log.Debug("background resolve done", "knowledge_id", knowledgeID, "outcome", res.Outcome)
	}()
	return nil
}
