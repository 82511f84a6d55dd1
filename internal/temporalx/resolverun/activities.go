package resolverun

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"

	domainagg "github.com/yungbote/knowledge-backend/internal/domain/aggregates"
	"github.com/yungbote/knowledge-backend/internal/modules/knowledge"
	"github.com/yungbote/knowledge-backend/internal/platform/logger"
)

type Resolver interface {
	Resolve(ctx context.Context, knowledgeID uuid.UUID) (knowledge.ResolveResult, error)
}

type Activities struct {
	Log      *logger.Logger
	Resolver Resolver
}

func (a *Activities) Resolve(ctx context.Context, in Input) (Output, error) {
	out := Output{KnowledgeID: strings.TrimSpace(in.KnowledgeID)}
	if a == nil || a.Resolver == nil {
		return out, fmt.Errorf("resolverun: activity not configured")
	}
	id, err := uuid.Parse(out.KnowledgeID)
	if err != nil || id == uuid.Nil {
		return out, temporal.NewNonRetryableApplicationError("invalid knowledge_id", string(domainagg.CodeValidation), err)
	}

	res, err := a.Resolver.Resolve(ctx, id)
	if err != nil {
		if a.Log != nil {
			a.Log.Warn("resolve activity failed", "knowledge_id", id, "code", domainagg.CodeOf(err), "error", err)
		}
		return out, applicationError(err)
	}
	out.Outcome = string(res.Outcome)
	if res.BookID != nil {
		out.BookID = res.BookID.String()
	}
	if res.MergedInto != nil {
		out.MergedInto = res.MergedInto.String()
	}
	return out, nil
}

// applicationError tags err with its aggregate code so the workflow retry
// policy can match it by type.
func applicationError(err error) error {
	code := domainagg.CodeOf(err)
	if code == "" {
		code = domainagg.CodeInternal
	}
	for _, c := range NonRetryableCodes {
		if string(code) == c {
			return temporal.NewNonRetryableApplicationError(err.Error(), string(code), err)
		}
	}
	return temporal.NewApplicationErrorWithCause(err.Error(), string(code), err)
}
