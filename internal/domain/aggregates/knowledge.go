package aggregates

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// KnowledgeAggregate owns the merge-convergence and slug invariants.
//
// Write method failures should return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeConflict, CodeRetryable, CodeInternal.
type KnowledgeAggregate interface {
	// BindOrMerge binds a node to a book, or merges it into the owner's
	// existing node for that book and deletes it.
	BindOrMerge(ctx context.Context, in BindOrMergeInput) (BindOrMergeResult, error)

	// AssignSlug sets the slug on an unpublished node. A taken slug is CodeConflict.
	AssignSlug(ctx context.Context, in AssignSlugInput) (AssignSlugResult, error)

	// RecordResolutionError persists a resolution failure on the node.
	RecordResolutionError(ctx context.Context, knowledgeID uuid.UUID, message string) error
}

type BindOutcome string

const (
	BindOutcomeNoop   BindOutcome = "noop"
	BindOutcomeBound  BindOutcome = "bound"
	BindOutcomeMerged BindOutcome = "merged"
)

type BindOrMergeInput struct {
	KnowledgeID uuid.UUID
	BookID      uuid.UUID
	BookTitle   string
}

type BindOrMergeResult struct {
	Outcome     BindOutcome
	KnowledgeID uuid.UUID
	UserID      uuid.UUID
	// MergedInto is set when Outcome is BindOutcomeMerged.
	MergedInto uuid.UUID
	// Re-pointed and dropped edge counts for the merge path.
	MovedEdges   int
	SkippedEdges int
}

type AssignSlugInput struct {
	KnowledgeID uuid.UUID
	UserID      uuid.UUID
	Slug        string
	PublishedAt time.Time
}

type AssignSlugResult struct {
	KnowledgeID uuid.UUID
	Slug        string
	// AlreadyPublished is true when the node had a slug before this call.
	AlreadyPublished bool
}
