package temporalworker

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/yungbote/knowledge-backend/internal/platform/logger"
	"github.com/yungbote/knowledge-backend/internal/temporalx"
	"github.com/yungbote/knowledge-backend/internal/temporalx/resolverun"
)

type Runner struct {
	log      *logger.Logger
	cfg      temporalx.Config
	tc       temporalsdkclient.Client
	resolver resolverun.Resolver
}

func NewRunner(log *logger.Logger, cfg temporalx.Config, tc temporalsdkclient.Client, resolver resolverun.Resolver) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if resolver == nil {
		return nil, fmt.Errorf("temporal worker missing resolver")
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{log: log.With("service", "TemporalWorker"), cfg: cfg, tc: tc, resolver: resolver}, nil
}

// Start polls the task queue until ctx is done. Start failures are retried
// for TEMPORAL_WORKER_START_MAX_WAIT_SECONDS.
func (r *Runner) Start(ctx context.Context) error {
	if r == nil || r.tc == nil {
		return fmt.Errorf("temporal worker not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	r.log.Info("Starting Temporal worker", "address", r.cfg.Address, "namespace", r.cfg.Namespace, "task_queue", r.cfg.TaskQueue)

	if r.cfg.AutoRegisterNamespace {
		if err := temporalx.EnsureNamespace(ctx, r.cfg, r.log); err != nil {
			r.log.Warn("Temporal namespace ensure failed; worker will retry on start", "namespace", r.cfg.Namespace, "error", err)
		}
	}

	attempt := 0
	_, err := temporalx.Retry(ctx, r.log, "temporal worker start", r.cfg.DialBackoff, r.cfg.DialBackoffMax, r.cfg.DialMaxWait,
		func() (struct{}, error) {
			attempt++
			w := r.newWorker()
			startErr := w.Start()
			if startErr == nil {
				go func() {
					<-ctx.Done()
					w.Stop()
				}()
				r.log.Info("Temporal worker started", "task_queue", r.cfg.TaskQueue, "attempts", attempt)
				return struct{}{}, nil
			}
			w.Stop()
			var nfe *serviceerror.NamespaceNotFound
			if errors.As(startErr, &nfe) {
				if r.cfg.AutoRegisterNamespace {
					_ = temporalx.EnsureNamespace(ctx, r.cfg, r.log)
				}
				return struct{}{}, fmt.Errorf("temporal namespace not found (namespace=%s): %w", r.cfg.Namespace, startErr)
			}
			return struct{}{}, startErr
		})
	return err
}

func (r *Runner) newWorker() worker.Worker {
	// Workflow tasks need at least two slots for sticky execution.
	wfSlots := r.cfg.WorkerConcurrency
	if wfSlots < 2 {
		wfSlots = 2
	}
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     r.cfg.WorkerConcurrency,
		MaxConcurrentWorkflowTaskExecutionSize: wfSlots,
	})
	acts := &resolverun.Activities{Log: r.log, Resolver: r.resolver}
	w.RegisterWorkflowWithOptions(resolverun.Workflow, workflow.RegisterOptions{Name: resolverun.WorkflowName})
	w.RegisterActivityWithOptions(acts.Resolve, activity.RegisterOptions{Name: resolverun.ActivityResolve})
	return w
}
