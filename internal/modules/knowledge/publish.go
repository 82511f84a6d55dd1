package knowledge

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	domainagg "github.com/yungbote/knowledge-backend/internal/domain/aggregates"
	"github.com/yungbote/knowledge-backend/internal/observability"
	"github.com/yungbote/knowledge-backend/internal/platform/dbctx"
	"github.com/yungbote/knowledge-backend/internal/platform/retry"
)

// Publish gives a node its permanent slug and returns it. A node that already
// has a slug keeps it. Taken candidates are retried with a numeric suffix up
// to the configured ceiling.
func (u Usecases) Publish(ctx context.Context, actorID, knowledgeID uuid.UUID) (slug string, err error) {
	const op = "Knowledge.Publish"
	ctx, span := observability.StartSpan(ctx, "knowledge.publish", attribute.String("knowledge.id", knowledgeID.String()))
	defer func() { observability.EndSpan(span, err) }()

	if actorID == uuid.Nil {
		return "", domainagg.NewError(domainagg.CodeForbidden, op, "actor required", nil)
	}
	if u.deps.Knowledge == nil || u.deps.Aggregate == nil {
		return "", domainagg.NewError(domainagg.CodeInternal, op, "knowledge usecases not configured", nil)
	}

	node, err := u.deps.Knowledge.GetByID(dbctx.Context{Ctx: ctx}, knowledgeID)
	if err != nil {
		return "", domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
	if node == nil {
		return "", domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("knowledge not found: %s", knowledgeID), nil)
	}
	if node.UserID != actorID {
		return "", domainagg.NewError(domainagg.CodeForbidden, op, "only the owner may publish", nil)
	}
	if node.HasSlug() {
		return *node.Slug, nil
	}

	base := Slugify(node.Title)
	publishedAt := u.deps.Now()
	attempts := 0
	err = retry.Do(ctx, retry.Policy{
		MaxAttempts: u.deps.Config.SlugMaxAttempts,
		Backoff:     retry.NoDelay,
		Retryable: func(err error) bool {
			return domainagg.IsCode(err, domainagg.CodeConflict)
		},
	}, func(ctx context.Context, attempt int) error {
		attempts = attempt
		res, err := u.deps.Aggregate.AssignSlug(ctx, domainagg.AssignSlugInput{
			KnowledgeID: node.ID,
			UserID:      actorID,
			Slug:        slugCandidate(base, attempt),
			PublishedAt: publishedAt,
		})
		if err != nil {
			return err
		}
		slug = res.Slug
		return nil
	})
	u.deps.Metrics.ObservePublishAttempts(attempts)
	if err != nil {
		if retry.IsExhausted(err) {
			return "", domainagg.NewError(domainagg.CodePublishFailed, op,
				fmt.Sprintf("no free slug for %q after %d attempts", base, attempts), err)
		}
		return "", err
	}
	u.log.Info("knowledge published", "knowledge_id", node.ID, "slug", slug, "attempts", attempts)
	return slug, nil
}
