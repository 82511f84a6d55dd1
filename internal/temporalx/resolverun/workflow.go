package resolverun

import (
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	domainagg "github.com/yungbote/knowledge-backend/internal/domain/aggregates"
)

// NonRetryableCodes are failures a retry cannot fix. A lookup failure is
// terminal: the client already retried 429s and the error is recorded on the
// node.
var NonRetryableCodes = []string{
	string(domainagg.CodeValidation),
	string(domainagg.CodeNotFound),
	string(domainagg.CodeForbidden),
	string(domainagg.CodeExternalLookup),
}

func Workflow(ctx workflow.Context, in Input) (Output, error) {
	if strings.TrimSpace(in.KnowledgeID) == "" {
		return Output{}, fmt.Errorf("resolverun: missing knowledge_id")
	}
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        5 * time.Second,
			BackoffCoefficient:     2.0,
			MaximumInterval:        5 * time.Minute,
			MaximumAttempts:        8,
			NonRetryableErrorTypes: NonRetryableCodes,
		},
	})
	var out Output
	if err := workflow.ExecuteActivity(ctx, ActivityResolve, in).Get(ctx, &out); err != nil {
		return Output{}, err
	}
	return out, nil
}
